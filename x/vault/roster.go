package vault

import (
	"encoding/binary"

	"github.com/covault/covault"
	"github.com/covault/covault/errors"
)

// Roster is the immutable owner set and quorum threshold of a ledger.
// It is fixed at construction time; there is no way to change owners
// or the threshold of a live ledger.
type Roster struct {
	// Owners lists the addresses permitted to propose, approve,
	// revoke and execute actions. Order matters only for Address
	// derivation and the Owners query.
	Owners []covault.Address

	// Threshold is the number of distinct owner approvals required
	// before an action may execute.
	Threshold uint32
}

// NewRoster is a convenience constructor.
func NewRoster(threshold uint32, owners ...covault.Address) Roster {
	return Roster{
		Owners:    owners,
		Threshold: threshold,
	}
}

// Validate enforces owner and threshold boundaries.
func (r Roster) Validate() error {
	if len(r.Owners) == 0 {
		return errors.Wrap(ErrInvalidConfig, "no owners")
	}
	seen := make(map[string]struct{}, len(r.Owners))
	for i, o := range r.Owners {
		if o.IsZero() {
			return errors.Wrapf(ErrInvalidConfig, "owner %d is the zero identity", i)
		}
		if err := o.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidConfig, "owner %d: %s", i, err)
		}
		if _, ok := seen[string(o)]; ok {
			return errors.Wrapf(ErrInvalidConfig, "duplicate owner %s", o)
		}
		seen[string(o)] = struct{}{}
	}
	if r.Threshold == 0 {
		return errors.Wrap(ErrInvalidConfig, "threshold must be greater than 0")
	}
	if int(r.Threshold) > len(r.Owners) {
		return errors.Wrapf(ErrInvalidConfig,
			"threshold %d exceeds owner count %d", r.Threshold, len(r.Owners))
	}
	return nil
}

// IsOwner returns true iff the given address is part of the roster.
func (r Roster) IsOwner(addr covault.Address) bool {
	for _, o := range r.Owners {
		if o.Equals(addr) {
			return true
		}
	}
	return false
}

// Copy returns a deep copy so the caller cannot mutate shared state.
func (r Roster) Copy() Roster {
	owners := make([]covault.Address, 0, len(r.Owners))
	for _, o := range r.Owners {
		owners = append(owners, o.Clone())
	}
	return Roster{
		Owners:    owners,
		Threshold: r.Threshold,
	}
}

// Address derives the deterministic account address of a ledger with
// this roster. Deposits are credited to it and the default invoker
// settles executed actions from it.
func (r Roster) Address() covault.Address {
	data := make([]byte, 0, len(r.Owners)*covault.AddressLength+4)
	for _, o := range r.Owners {
		data = append(data, o...)
	}
	var t [4]byte
	binary.BigEndian.PutUint32(t[:], r.Threshold)
	data = append(data, t[:]...)
	return covault.NewAddress(data)
}
