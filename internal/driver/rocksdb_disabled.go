//go:build !rocksdb

package driver

// The RocksDB driver needs the system librocksdb; rebuild with
// -tags rocksdb to register it.
