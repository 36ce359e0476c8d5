package utils

import (
	"fmt"
	"math/rand"
	"time"
)

var randSrc = rand.New(rand.NewSource(time.Now().UnixNano()))

// GetTestKey returns a deterministic, sortable test key such as
// "emberdb-key-000000042", for seeding index/engine tests with ordered data.
func GetTestKey(i int) []byte {
	return []byte(fmt.Sprintf("emberdb-key-%09d", i))
}

// RandomValue returns n random ASCII letters behind the fixed prefix
// "emberdb-value-" (so n+14 bytes in all), prefixed so failures are easy to
// spot in test output.
func RandomValue(n int) []byte {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = letters[randSrc.Intn(len(letters))]
	}
	return append([]byte("emberdb-value-"), buf...)
}
