package vault

import (
	"sync"

	"github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/libs/log"

	"github.com/covault/covault"
	"github.com/covault/covault/errors"
)

// Ledger is the collective authorization engine. Owners propose
// actions, approve or revoke until the quorum threshold is met, then
// any owner executes. Every mutating operation is a single atomic
// transition: it either fully applies or leaves no trace.
//
// A ledger serializes its mutations. The guard is non-blocking: a
// mutating call that arrives while another is in flight fails with
// ErrBusy instead of waiting, which also turns reentrant calls made by
// the invoker into clean errors rather than deadlocks. Read operations
// only see committed state, never a transition half way through.
type Ledger struct {
	mu   sync.RWMutex
	busy chan struct{}

	db        covault.CacheableKVStore
	roster    Roster
	actions   ActionBucket
	approvals ApprovalBucket
	book      Book
	invoker   Invoker
	logger    log.Logger
	recorder  Recorder
}

// Option configures optional ledger collaborators.
type Option func(*Ledger)

// WithLogger directs the ledger's operational log. The default drops
// everything.
func WithLogger(logger log.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithRecorder directs the ledger's audit records. The default drops
// everything.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.recorder = r }
}

// WithInvoker replaces the default book-backed invoker.
func WithInvoker(inv Invoker) Option {
	return func(l *Ledger) { l.invoker = inv }
}

// NewLedger validates the roster and returns a ready ledger on top of
// the given store. The roster and threshold are fixed for the lifetime
// of the instance.
func NewLedger(db covault.CacheableKVStore, roster Roster, opts ...Option) (*Ledger, error) {
	if err := roster.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{
		busy:      make(chan struct{}, 1),
		db:        db,
		roster:    roster.Copy(),
		actions:   NewActionBucket(),
		approvals: NewApprovalBucket(),
		book:      NewBook(),
		logger:    log.NewNopLogger(),
		recorder:  NopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.invoker == nil {
		l.invoker = NewBookInvoker(l.book, l.roster.Address())
	}
	return l, nil
}

// Address returns the ledger's own account address, derived from the
// roster. Deposits are credited to it.
func (l *Ledger) Address() covault.Address {
	return l.roster.Address()
}

// Owners returns a copy of the owner roster.
func (l *Ledger) Owners() []covault.Address {
	return l.roster.Copy().Owners
}

// RequiredApprovals returns the quorum threshold.
func (l *Ledger) RequiredApprovals() uint32 {
	return l.roster.Threshold
}

// Propose appends a new action and returns its index. Indices are
// dense and sequential, starting at 0. Proposing does not imply an
// approval; the proposer votes separately.
func (l *Ledger) Propose(caller, destination covault.Address, amount int64, payload []byte) (int64, error) {
	if err := l.acquire("propose"); err != nil {
		return 0, err
	}
	defer l.release()
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.roster.IsOwner(caller) {
		return 0, errors.Wrapf(errors.ErrUnauthorized, "%s is not an owner", caller)
	}

	action := &Action{
		Destination: destination.Clone(),
		Amount:      amount,
		Payload:     append([]byte(nil), payload...),
		Proposer:    caller.Clone(),
	}

	cache := l.db.CacheWrap()
	index, err := l.actions.Create(cache, action)
	if err != nil {
		cache.Discard()
		return 0, err
	}
	if err := cache.Write(); err != nil {
		return 0, errors.Wrap(err, "commit proposal")
	}

	l.logger.Info("action proposed",
		"action-id", index, "proposer", caller, "destination", destination, "amount", amount)
	l.record(ActionProposed,
		intPair(TagActionID, index),
		addrPair(TagProposer, caller),
		addrPair(TagDestination, destination),
		intPair(TagAmount, amount),
	)
	return index, nil
}

// Approve sets the caller's mark on the action and bumps the approval
// counter. The two writes land atomically. Approving twice without an
// intervening revoke fails with ErrDuplicateApproval.
func (l *Ledger) Approve(caller covault.Address, index int64) error {
	if err := l.acquire("approve"); err != nil {
		return err
	}
	defer l.release()
	l.mu.Lock()
	defer l.mu.Unlock()

	action, err := l.pending(caller, index)
	if err != nil {
		return err
	}
	marked, err := l.approvals.Has(l.db, index, caller)
	if err != nil {
		return err
	}
	if marked {
		return errors.Wrapf(ErrDuplicateApproval, "action %d, owner %s", index, caller)
	}

	cache := l.db.CacheWrap()
	action.ApprovalCount++
	if err := writeBoth(cache,
		func(db covault.KVStore) error { return l.approvals.Grant(db, index, caller) },
		func(db covault.KVStore) error { return l.actions.Update(db, index, action) },
	); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit approval")
	}

	l.logger.Info("action approved",
		"action-id", index, "owner", caller, "approvals", action.ApprovalCount)
	l.record(ActionApproved,
		intPair(TagActionID, index),
		addrPair(TagOwner, caller),
	)
	return nil
}

// Revoke clears the caller's mark and decrements the counter, again
// atomically. A revoked owner may approve the same action later; that
// is not a duplicate.
func (l *Ledger) Revoke(caller covault.Address, index int64) error {
	if err := l.acquire("revoke"); err != nil {
		return err
	}
	defer l.release()
	l.mu.Lock()
	defer l.mu.Unlock()

	action, err := l.pending(caller, index)
	if err != nil {
		return err
	}
	marked, err := l.approvals.Has(l.db, index, caller)
	if err != nil {
		return err
	}
	if !marked {
		return errors.Wrapf(ErrNoApproval, "action %d, owner %s", index, caller)
	}
	if action.ApprovalCount == 0 {
		// cannot happen while marks and counter move together
		return errors.Wrapf(errors.ErrHuman, "approval mark without counter on action %d", index)
	}

	cache := l.db.CacheWrap()
	action.ApprovalCount--
	if err := writeBoth(cache,
		func(db covault.KVStore) error { return l.approvals.Withdraw(db, index, caller) },
		func(db covault.KVStore) error { return l.actions.Update(db, index, action) },
	); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit revocation")
	}

	l.logger.Info("approval revoked",
		"action-id", index, "owner", caller, "approvals", action.ApprovalCount)
	l.record(ApprovalRevoked,
		intPair(TagActionID, index),
		addrPair(TagOwner, caller),
	)
	return nil
}

// Execute finalizes an action once the quorum threshold is met. Any
// owner may execute, not only the proposer. The executed flag is set
// before the invoker runs; if the invoker fails, flag and invoker
// writes are discarded together and the call fails with
// ErrExecutionFailed, leaving the action open for another attempt.
func (l *Ledger) Execute(caller covault.Address, index int64) error {
	if err := l.acquire("execute"); err != nil {
		return err
	}
	defer l.release()
	l.mu.Lock()
	defer l.mu.Unlock()

	action, err := l.pending(caller, index)
	if err != nil {
		return err
	}
	if action.ApprovalCount < l.roster.Threshold {
		return errors.Wrapf(ErrInsufficientApprovals,
			"action %d has %d of %d", index, action.ApprovalCount, l.roster.Threshold)
	}

	cache := l.db.CacheWrap()
	// mark first: nothing inside this unit of work may observe the
	// action as still open
	action.Executed = true
	if err := l.actions.Update(cache, index, action); err != nil {
		cache.Discard()
		return err
	}
	if err := l.invoker.Invoke(cache, action.Destination, action.Amount, action.Payload); err != nil {
		cache.Discard()
		l.logger.Error("action execution failed",
			"action-id", index, "owner", caller, "err", err)
		return errors.Wrapf(ErrExecutionFailed, "action %d: %s", index, err)
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit execution")
	}

	l.logger.Info("action executed",
		"action-id", index, "owner", caller, "destination", action.Destination, "amount", action.Amount)
	l.record(ActionExecuted,
		intPair(TagActionID, index),
		addrPair(TagOwner, caller),
		addrPair(TagDestination, action.Destination),
		intPair(TagAmount, action.Amount),
	)
	return nil
}

// Deposit credits the ledger's account. Anyone may fund a ledger, not
// only owners.
func (l *Ledger) Deposit(sender covault.Address, amount int64) error {
	if err := l.acquire("deposit"); err != nil {
		return err
	}
	defer l.release()
	l.mu.Lock()
	defer l.mu.Unlock()

	cache := l.db.CacheWrap()
	if err := l.book.Credit(cache, l.roster.Address(), amount); err != nil {
		cache.Discard()
		return err
	}
	if err := cache.Write(); err != nil {
		return errors.Wrap(err, "commit deposit")
	}

	l.logger.Info("funds received", "sender", sender, "amount", amount)
	l.record(FundsReceived,
		addrPair(TagSender, sender),
		intPair(TagAmount, amount),
	)
	return nil
}

// ActionCount returns the number of actions ever proposed. Valid
// indices are [0, count).
func (l *Ledger) ActionCount() (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.actions.Count(l.db)
}

// GetAction returns a copy of the full action record.
func (l *Ledger) GetAction(index int64) (*Action, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.actions.GetAction(l.db, index)
}

// HasApproved returns true iff the owner holds a standing approval for
// the action.
func (l *Ledger) HasApproved(index int64, owner covault.Address) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.approvals.Has(l.db, index, owner)
}

// BalanceOf returns the book balance of the given address. Use
// l.Address() for the ledger's own funds.
func (l *Ledger) BalanceOf(addr covault.Address) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.book.Balance(l.db, addr)
}

// pending runs the precondition sequence shared by Approve, Revoke and
// Execute: the caller must be an owner, the action must exist and must
// not have been executed yet. Checks run in this order and the first
// failing one wins.
func (l *Ledger) pending(caller covault.Address, index int64) (*Action, error) {
	if !l.roster.IsOwner(caller) {
		return nil, errors.Wrapf(errors.ErrUnauthorized, "%s is not an owner", caller)
	}
	action, err := l.actions.GetAction(l.db, index)
	if err != nil {
		return nil, err
	}
	if action.Executed {
		return nil, errors.Wrapf(ErrAlreadyExecuted, "action %d", index)
	}
	return action, nil
}

// acquire takes the global non-reentrant guard. It never blocks: if
// another mutation is in flight the caller gets ErrBusy and must
// re-invoke later.
func (l *Ledger) acquire(op string) error {
	select {
	case l.busy <- struct{}{}:
		return nil
	default:
		return errors.Wrapf(ErrBusy, "%s while another operation is in flight", op)
	}
}

func (l *Ledger) release() {
	<-l.busy
}

// writeBoth applies the given writes to one scratch-pad so they land
// atomically.
func writeBoth(db covault.KVStore, writes ...func(covault.KVStore) error) error {
	for _, w := range writes {
		if err := w(db); err != nil {
			return err
		}
	}
	return nil
}

// record emits one audit record.
func (l *Ledger) record(kind string, extra ...common.KVPair) {
	tags := make(common.KVPairs, 0, len(extra)+1)
	tags = append(tags, tagPair(TagAction, kind))
	tags = append(tags, extra...)
	l.recorder.Record(tags)
}
