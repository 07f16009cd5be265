package store

import "github.com/covault/covault"

// Move references for all storage types into this package for shorter
// names everywhere.

type ReadOnlyKVStore = covault.ReadOnlyKVStore
type KVStore = covault.KVStore
type Iterator = covault.Iterator
type Model = covault.Model
type CacheableKVStore = covault.CacheableKVStore
type KVCacheWrap = covault.KVCacheWrap
type CommitKVStore = covault.CommitKVStore
type CommitID = covault.CommitID

// SetDeleter is the write subset of a KVStore.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Batch groups writes to be applied to the underlying store at once.
type Batch interface {
	SetDeleter
	Write() error
}
