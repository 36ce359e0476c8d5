// Package emberdb is an embeddable, Bitcask-model key/value store: writes
// append to a log-structured segment file, and a pluggable in-memory or
// on-disk index maps each live key to its most recent position in that
// log. A typical embedder opens an Engine, issues Put/Get/Delete directly
// or batches them through a WriteBatch, and occasionally calls Merge to
// reclaim space from overwritten and deleted records.
//
// Three index backends are available (Options.IndexType): an ordered
// in-memory B-tree (the default), a concurrent skiplist, and a persistent
// B+ tree that survives process restarts without replaying the log.
package emberdb
