// Package config provides configuration management for emberdb.
package config

import (
	"encoding/json"
	"os"

	"github.com/emberdb/emberdb"
	"github.com/emberdb/emberdb/index"
)

// Config holds the settings needed to open an emberdb Engine plus the
// ambient settings (logging) that aren't part of Options itself.
type Config struct {
	// Storage
	DataDir            string  `json:"data_dir"`
	DataFileSize       int64   `json:"data_file_size"`
	SyncWrites         bool    `json:"sync_writes"`
	BytesPerSync       uint    `json:"bytes_per_sync"`
	IndexType          string  `json:"index_type"`
	MMapAtStartup      bool    `json:"mmap_at_startup"`
	DataFileMergeRatio float32 `json:"data_file_merge_ratio"`

	// Logging
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns the default configuration, mirroring
// emberdb.DefaultOptions.
func DefaultConfig() *Config {
	opts := emberdb.DefaultOptions()
	return &Config{
		DataDir:            "data",
		DataFileSize:       opts.DataFileSize,
		SyncWrites:         opts.SyncWrites,
		BytesPerSync:       opts.BytesPerSync,
		IndexType:          "btree",
		MMapAtStartup:      opts.MMapAtStartup,
		DataFileMergeRatio: opts.DataFileMergeRatio,
		LogLevel:           "info",
	}
}

// Load loads configuration from a JSON file, falling back to
// DefaultConfig if the file doesn't exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// EngineOptions translates this Config into emberdb.Options, resolving
// DataDir relative to nothing (callers pass an already-resolved path) and
// IndexType from its string name.
func (c *Config) EngineOptions() emberdb.Options {
	opts := emberdb.DefaultOptions()
	opts.DirPath = c.DataDir
	opts.DataFileSize = c.DataFileSize
	opts.SyncWrites = c.SyncWrites
	opts.BytesPerSync = c.BytesPerSync
	opts.MMapAtStartup = c.MMapAtStartup
	opts.DataFileMergeRatio = c.DataFileMergeRatio
	opts.IndexType = parseIndexType(c.IndexType)
	return opts
}

func parseIndexType(name string) index.IndexType {
	switch name {
	case "skiplist":
		return index.SkipListIndex
	case "bptree":
		return index.BPlusTreeIndex
	default:
		return index.BTreeIndex
	}
}
