package vaulttest

import (
	"github.com/covault/covault"
)

// Invocation is a snapshot of a single invoker call.
type Invocation struct {
	Destination covault.Address
	Amount      int64
	Payload     []byte
}

// Invoker is a scripted vault.Invoker implementation. Every call is
// recorded. If Err is set, it is returned from each call. If Hook is
// set, it runs with the caller's store and its result becomes the
// call result (after Err).
//
// The zero value is a recording invoker that always succeeds.
type Invoker struct {
	Err   error
	Hook  func(db covault.KVStore) error
	Calls []Invocation
}

func (inv *Invoker) Invoke(db covault.KVStore, destination covault.Address, amount int64, payload []byte) error {
	inv.Calls = append(inv.Calls, Invocation{
		Destination: destination.Clone(),
		Amount:      amount,
		Payload:     append([]byte(nil), payload...),
	})
	if inv.Err != nil {
		return inv.Err
	}
	if inv.Hook != nil {
		return inv.Hook(db)
	}
	return nil
}
