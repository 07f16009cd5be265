/*
Package vaulttest provides helpers for testing code built around the
vault ledger: deterministic addresses, scripted invokers and store
constructors. It must not be imported by production code.
*/
package vaulttest

import (
	"github.com/covault/covault"
	"github.com/covault/covault/store"
	"github.com/covault/covault/store/iavl"
)

// NamedAddress returns a deterministic address derived from the given
// name. The same name always produces the same address.
func NamedAddress(name string) covault.Address {
	return covault.NewAddress([]byte(name))
}

// MemStore returns an empty cacheable store that is discarded at the
// end of the test.
func MemStore() covault.CacheableKVStore {
	return store.MemStore()
}

// CommitStore returns an empty commit-capable store with no disk
// backing.
func CommitStore() iavl.CommitStore {
	return iavl.MockCommitStore()
}
