package vault

import (
	"github.com/covault/covault"
	"github.com/covault/covault/errors"
	"github.com/covault/covault/orm"
)

var _ orm.CloneableData = (*Action)(nil)

// Validate enforces the creation-time invariants of an action. The
// mutable fields (executed flag, approval count) have no invalid
// values of their own.
func (a *Action) Validate() error {
	if err := a.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if a.Amount < 0 {
		return errors.Wrapf(errors.ErrAmount, "negative amount %d", a.Amount)
	}
	if err := a.Proposer.Validate(); err != nil {
		return errors.Wrap(err, "proposer")
	}
	return nil
}

// Copy produces an independent clone of this action.
func (a *Action) Copy() orm.CloneableData {
	return &Action{
		Destination:   a.Destination.Clone(),
		Amount:        a.Amount,
		Payload:       append([]byte(nil), a.Payload...),
		Executed:      a.Executed,
		ApprovalCount: a.ApprovalCount,
		Proposer:      a.Proposer.Clone(),
	}
}

var _ orm.CloneableData = (*Approval)(nil)

func (a *Approval) Validate() error {
	if err := a.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	return nil
}

func (a *Approval) Copy() orm.CloneableData {
	return &Approval{Owner: a.Owner.Clone()}
}

var _ orm.CloneableData = (*Funds)(nil)

func (f *Funds) Validate() error {
	if f.Total < 0 {
		return errors.Wrapf(errors.ErrAmount, "negative balance %d", f.Total)
	}
	return nil
}

func (f *Funds) Copy() orm.CloneableData {
	return &Funds{Total: f.Total}
}

// actionKey converts a dense 0-based action index into the 8 byte
// storage key. Keys sort in index order.
func actionKey(index int64) []byte {
	return orm.EncodeSequence(index)
}

// approvalKey is the composite key of one owner's mark on one action.
func approvalKey(index int64, owner covault.Address) []byte {
	return append(actionKey(index), owner...)
}

// ActionBucket is a type-safe wrapper around the append-only action
// log. Indices are dense, sequential and assigned at creation.
type ActionBucket struct {
	orm.Bucket
	seq orm.Sequence
}

// NewActionBucket initializes an ActionBucket with the default name.
func NewActionBucket() ActionBucket {
	b := orm.NewBucket("actions", orm.NewSimpleObj(nil, new(Action)))
	return ActionBucket{
		Bucket: b,
		seq:    b.Sequence(orm.SeqID),
	}
}

// Create appends a new action and returns its index.
func (b ActionBucket) Create(db covault.KVStore, action *Action) (int64, error) {
	n, err := b.seq.NextInt(db)
	if err != nil {
		return 0, errors.Wrap(err, "action sequence")
	}
	// the sequence starts at 1, indices start at 0
	index := n - 1
	if err := b.Save(db, orm.NewSimpleObj(actionKey(index), action)); err != nil {
		return 0, err
	}
	return index, nil
}

// Count returns the number of actions ever created.
func (b ActionBucket) Count(db covault.ReadOnlyKVStore) (int64, error) {
	n, _, err := b.seq.Latest(db)
	return n, err
}

// GetAction returns the action with the given index.
func (b ActionBucket) GetAction(db covault.ReadOnlyKVStore, index int64) (*Action, error) {
	if index < 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "action %d", index)
	}
	obj, err := b.Get(db, actionKey(index))
	if err != nil {
		return nil, errors.Wrap(err, "bucket lookup")
	}
	if obj == nil || obj.Value() == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "action %d", index)
	}
	a, ok := obj.Value().(*Action)
	if !ok {
		return nil, errors.Wrapf(errors.ErrModel, "invalid type: %T", obj.Value())
	}
	return a, nil
}

// Update overwrites the stored record of an existing action.
func (b ActionBucket) Update(db covault.KVStore, index int64, action *Action) error {
	return b.Save(db, orm.NewSimpleObj(actionKey(index), action))
}

// ApprovalBucket stores the two-level (action, owner) approval marks.
// A mark exists iff a record is present under the composite key.
type ApprovalBucket struct {
	orm.Bucket
}

// NewApprovalBucket initializes an ApprovalBucket with the default
// name.
func NewApprovalBucket() ApprovalBucket {
	return ApprovalBucket{
		Bucket: orm.NewBucket("approvals", orm.NewSimpleObj(nil, new(Approval))),
	}
}

// Has returns true iff the owner holds a standing approval for the
// action.
func (b ApprovalBucket) Has(db covault.ReadOnlyKVStore, index int64, owner covault.Address) (bool, error) {
	obj, err := b.Get(db, approvalKey(index, owner))
	if err != nil {
		return false, errors.Wrap(err, "bucket lookup")
	}
	return obj != nil, nil
}

// Grant stores the owner's mark for the action.
func (b ApprovalBucket) Grant(db covault.KVStore, index int64, owner covault.Address) error {
	obj := orm.NewSimpleObj(approvalKey(index, owner), &Approval{Owner: owner.Clone()})
	return b.Save(db, obj)
}

// Withdraw removes the owner's mark for the action.
func (b ApprovalBucket) Withdraw(db covault.KVStore, index int64, owner covault.Address) error {
	return b.Delete(db, approvalKey(index, owner))
}
