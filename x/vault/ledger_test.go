package vault

import (
	"testing"

	"github.com/tendermint/tendermint/libs/common"

	"github.com/covault/covault"
	"github.com/covault/covault/errors"
	"github.com/covault/covault/vaulttest"
	"github.com/covault/covault/vaulttest/assert"
)

var (
	alice    = vaulttest.NamedAddress("alice")
	bob      = vaulttest.NamedAddress("bob")
	carl     = vaulttest.NamedAddress("carl")
	dave     = vaulttest.NamedAddress("dave")
	merchant = vaulttest.NamedAddress("merchant")
)

// twoOfThree returns a fresh ledger with a 2-of-3 roster and a
// recording invoker that always succeeds.
func twoOfThree(t *testing.T) (*Ledger, *vaulttest.Invoker) {
	t.Helper()
	inv := &vaulttest.Invoker{}
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(2, alice, bob, carl), WithInvoker(inv))
	assert.Nil(t, err)
	return l, inv
}

func TestNewLedgerRejectsBadRoster(t *testing.T) {
	if _, err := NewLedger(vaulttest.MemStore(), NewRoster(0, alice)); !ErrInvalidConfig.Is(err) {
		t.Fatalf("want invalid config, got %+v", err)
	}
	if _, err := NewLedger(vaulttest.MemStore(), NewRoster(2, alice)); !ErrInvalidConfig.Is(err) {
		t.Fatalf("want invalid config, got %+v", err)
	}
}

func TestLedgerQueries(t *testing.T) {
	l, _ := twoOfThree(t)

	assert.Equal(t, []covault.Address{alice, bob, carl}, l.Owners())
	assert.Equal(t, uint32(2), l.RequiredApprovals())
	assert.Equal(t, NewRoster(2, alice, bob, carl).Address(), l.Address())

	count, err := l.ActionCount()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), count)

	// the owner list is a copy, not a window into the roster
	l.Owners()[0] = dave
	if !l.Owners()[0].Equals(alice) {
		t.Fatal("returned owner slice must not alias internal state")
	}
}

func TestProposalLifecycle(t *testing.T) {
	l, inv := twoOfThree(t)

	index, err := l.Propose(alice, merchant, 50, []byte("invoice-7"))
	assert.Nil(t, err)
	assert.Equal(t, int64(0), index)

	count, err := l.ActionCount()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), count)

	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, merchant, action.Destination)
	assert.Equal(t, int64(50), action.Amount)
	assert.Equal(t, []byte("invoice-7"), action.Payload)
	assert.Equal(t, alice, action.Proposer)
	assert.Equal(t, false, action.Executed)
	// proposing is not approving
	assert.Equal(t, uint32(0), action.ApprovalCount)
	approved, err := l.HasApproved(index, alice)
	assert.Nil(t, err)
	assert.Equal(t, false, approved)

	// not enough approvals yet
	assert.Nil(t, l.Approve(alice, index))
	assert.IsErr(t, ErrInsufficientApprovals, l.Execute(alice, index))
	assert.Equal(t, 0, len(inv.Calls))

	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Execute(carl, index))

	action, err = l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, true, action.Executed)
	assert.Equal(t, uint32(2), action.ApprovalCount)

	// exactly one invocation, with the proposed parameters
	assert.Equal(t, 1, len(inv.Calls))
	assert.Equal(t, vaulttest.Invocation{
		Destination: merchant,
		Amount:      50,
		Payload:     []byte("invoice-7"),
	}, inv.Calls[0])
}

func TestNonOwnersAreRejected(t *testing.T) {
	l, inv := twoOfThree(t)

	if _, err := l.Propose(dave, merchant, 50, nil); !errors.ErrUnauthorized.Is(err) {
		t.Fatalf("want unauthorized, got %+v", err)
	}
	count, err := l.ActionCount()
	assert.Nil(t, err)
	assert.Equal(t, int64(0), count)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))

	assert.IsErr(t, errors.ErrUnauthorized, l.Approve(dave, index))
	assert.IsErr(t, errors.ErrUnauthorized, l.Revoke(dave, index))
	assert.IsErr(t, errors.ErrUnauthorized, l.Execute(dave, index))

	// the ownership check runs before the existence check
	assert.IsErr(t, errors.ErrUnauthorized, l.Approve(dave, 42))

	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, uint32(2), action.ApprovalCount)
	assert.Equal(t, false, action.Executed)
	assert.Equal(t, 0, len(inv.Calls))
}

func TestUnknownActionIndex(t *testing.T) {
	l, _ := twoOfThree(t)

	assert.IsErr(t, errors.ErrNotFound, l.Approve(alice, 0))
	assert.IsErr(t, errors.ErrNotFound, l.Revoke(alice, 0))
	assert.IsErr(t, errors.ErrNotFound, l.Execute(alice, 0))
	assert.IsErr(t, errors.ErrNotFound, l.Approve(alice, -1))
	if _, err := l.GetAction(7); !errors.ErrNotFound.Is(err) {
		t.Fatalf("want not found, got %+v", err)
	}
}

func TestDuplicateApproval(t *testing.T) {
	l, _ := twoOfThree(t)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)

	assert.Nil(t, l.Approve(alice, index))
	assert.IsErr(t, ErrDuplicateApproval, l.Approve(alice, index))

	// the duplicate attempt changed nothing
	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), action.ApprovalCount)
}

func TestRevokeAndReapprove(t *testing.T) {
	l, _ := twoOfThree(t)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)

	// nothing to revoke yet
	assert.IsErr(t, ErrNoApproval, l.Revoke(alice, index))

	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))

	assert.Nil(t, l.Revoke(bob, index))
	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, uint32(1), action.ApprovalCount)
	approved, err := l.HasApproved(index, bob)
	assert.Nil(t, err)
	assert.Equal(t, false, approved)

	// a second revoke is not pending anymore
	assert.IsErr(t, ErrNoApproval, l.Revoke(bob, index))

	// quorum was lost
	assert.IsErr(t, ErrInsufficientApprovals, l.Execute(alice, index))

	// revoking is not a permanent ban
	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Execute(bob, index))
}

func TestExecutedActionIsTerminal(t *testing.T) {
	l, inv := twoOfThree(t)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Execute(alice, index))

	assert.IsErr(t, ErrAlreadyExecuted, l.Execute(bob, index))
	assert.IsErr(t, ErrAlreadyExecuted, l.Approve(carl, index))
	assert.IsErr(t, ErrAlreadyExecuted, l.Revoke(alice, index))

	assert.Equal(t, 1, len(inv.Calls))
}

func TestFailedExecutionRollsBack(t *testing.T) {
	l, inv := twoOfThree(t)
	inv.Err = errors.ErrState.New("downstream rejected")

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))

	err = l.Execute(carl, index)
	assert.IsErr(t, ErrExecutionFailed, err)

	// the action is exactly as before the attempt
	action, getErr := l.GetAction(index)
	assert.Nil(t, getErr)
	assert.Equal(t, false, action.Executed)
	assert.Equal(t, uint32(2), action.ApprovalCount)

	// and a later attempt may succeed
	inv.Err = nil
	assert.Nil(t, l.Execute(carl, index))
	action, getErr = l.GetAction(index)
	assert.Nil(t, getErr)
	assert.Equal(t, true, action.Executed)
	assert.Equal(t, 2, len(inv.Calls))
}

func TestReentrantInvocationIsRejected(t *testing.T) {
	var (
		l     *Ledger
		inner error
	)
	inv := &vaulttest.Invoker{
		Hook: func(covault.KVStore) error {
			// a malicious effect calling back into the ledger
			_, inner = l.Propose(alice, merchant, 1, nil)
			return nil
		},
	}
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(2, alice, bob, carl), WithInvoker(inv))
	assert.Nil(t, err)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))

	// the outer execute succeeds, the inner call is turned away
	assert.Nil(t, l.Execute(alice, index))
	assert.IsErr(t, ErrBusy, inner)

	count, err := l.ActionCount()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), count)
}

func TestReentrantFailurePropagates(t *testing.T) {
	inv := &vaulttest.Invoker{}
	inv.Hook = func(covault.KVStore) error {
		return errors.ErrState.New("gave up")
	}
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(1, alice), WithInvoker(inv))
	assert.Nil(t, err)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))

	assert.IsErr(t, ErrExecutionFailed, l.Execute(alice, index))
	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, false, action.Executed)
}

// countMatchesMarks verifies the stored counter against the individual
// marks of every owner.
func countMatchesMarks(t *testing.T, l *Ledger, index int64) {
	t.Helper()
	action, err := l.GetAction(index)
	assert.Nil(t, err)
	var marks uint32
	for _, owner := range l.Owners() {
		ok, err := l.HasApproved(index, owner)
		assert.Nil(t, err)
		if ok {
			marks++
		}
	}
	assert.Equal(t, marks, action.ApprovalCount)
}

func TestApprovalCountStaysConsistent(t *testing.T) {
	l, _ := twoOfThree(t)

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	countMatchesMarks(t, l, index)

	steps := []func() error{
		func() error { return l.Approve(alice, index) },
		func() error { return l.Approve(alice, index) }, // duplicate
		func() error { return l.Approve(bob, index) },
		func() error { return l.Revoke(alice, index) },
		func() error { return l.Revoke(alice, index) }, // nothing left
		func() error { return l.Approve(carl, index) },
		func() error { return l.Execute(bob, index) },
		func() error { return l.Approve(alice, index) }, // terminal
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Logf("step %d: %v", i, err)
		}
		countMatchesMarks(t, l, index)
	}
}

func TestDefaultInvokerPaysFromDeposits(t *testing.T) {
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(2, alice, bob, carl))
	assert.Nil(t, err)

	assert.Nil(t, l.Deposit(dave, 100))
	total, err := l.BalanceOf(l.Address())
	assert.Nil(t, err)
	assert.Equal(t, int64(100), total)

	assert.IsErr(t, errors.ErrAmount, l.Deposit(dave, 0))
	assert.IsErr(t, errors.ErrAmount, l.Deposit(dave, -3))

	index, err := l.Propose(alice, merchant, 30, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Execute(alice, index))

	total, err = l.BalanceOf(l.Address())
	assert.Nil(t, err)
	assert.Equal(t, int64(70), total)
	total, err = l.BalanceOf(merchant)
	assert.Nil(t, err)
	assert.Equal(t, int64(30), total)
}

func TestExecuteBeyondBalanceRollsBack(t *testing.T) {
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(1, alice))
	assert.Nil(t, err)
	assert.Nil(t, l.Deposit(dave, 10))

	index, err := l.Propose(alice, merchant, 50, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))

	err = l.Execute(alice, index)
	assert.IsErr(t, ErrExecutionFailed, err)

	total, getErr := l.BalanceOf(l.Address())
	assert.Nil(t, getErr)
	assert.Equal(t, int64(10), total)
	action, getErr := l.GetAction(index)
	assert.Nil(t, getErr)
	assert.Equal(t, false, action.Executed)

	// top up and retry
	assert.Nil(t, l.Deposit(dave, 40))
	assert.Nil(t, l.Execute(alice, index))
	total, getErr = l.BalanceOf(merchant)
	assert.Nil(t, getErr)
	assert.Equal(t, int64(50), total)
}

func TestLedgerOverCommitStore(t *testing.T) {
	db := vaulttest.CommitStore()
	l, err := NewLedger(db, NewRoster(1, alice))
	assert.Nil(t, err)

	assert.Nil(t, l.Deposit(dave, 10))
	index, err := l.Propose(alice, merchant, 10, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Execute(alice, index))

	id, err := db.Commit()
	assert.Nil(t, err)
	assert.Equal(t, int64(1), id.Version)

	action, err := l.GetAction(index)
	assert.Nil(t, err)
	assert.Equal(t, true, action.Executed)
	total, err := l.BalanceOf(merchant)
	assert.Nil(t, err)
	assert.Equal(t, int64(10), total)
}

func TestAuditRecords(t *testing.T) {
	var records []common.KVPairs
	rec := RecorderFunc(func(tags common.KVPairs) {
		records = append(records, tags)
	})
	l, err := NewLedger(vaulttest.MemStore(), NewRoster(2, alice, bob, carl), WithRecorder(rec))
	assert.Nil(t, err)

	assert.Nil(t, l.Deposit(dave, 100))
	index, err := l.Propose(alice, merchant, 30, nil)
	assert.Nil(t, err)
	assert.Nil(t, l.Approve(alice, index))
	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Revoke(bob, index))
	assert.Nil(t, l.Approve(bob, index))
	assert.Nil(t, l.Execute(carl, index))

	// a failed operation leaves no record
	assert.IsErr(t, ErrAlreadyExecuted, l.Execute(carl, index))

	want := []string{
		FundsReceived,
		ActionProposed,
		ActionApproved,
		ActionApproved,
		ApprovalRevoked,
		ActionApproved,
		ActionExecuted,
	}
	assert.Equal(t, len(want), len(records))
	for i, kind := range want {
		assert.Equal(t, TagAction, string(records[i][0].Key))
		assert.Equal(t, kind, string(records[i][0].Value))
	}
}
