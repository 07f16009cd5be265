package vault

import (
	"github.com/covault/covault/errors"
)

// vault reserves error codes 1100-1110.
var (
	// ErrInvalidConfig is returned by the ledger constructor when
	// the owner roster or the threshold is unusable. No ledger is
	// created.
	ErrInvalidConfig = errors.Register(1100, "invalid ledger configuration")

	// ErrAlreadyExecuted is returned on any attempt to mutate an
	// action that reached its terminal state.
	ErrAlreadyExecuted = errors.Register(1101, "action already executed")

	// ErrDuplicateApproval is returned when an owner approves an
	// action they already have a standing approval for.
	ErrDuplicateApproval = errors.Register(1102, "action already approved by this owner")

	// ErrNoApproval is returned when an owner revokes an approval
	// they never gave (or already revoked).
	ErrNoApproval = errors.Register(1103, "no approval to revoke")

	// ErrInsufficientApprovals is returned by Execute before the
	// quorum threshold is met.
	ErrInsufficientApprovals = errors.Register(1104, "insufficient approvals")

	// ErrExecutionFailed is returned when the invoker reports a
	// failure. The ledger is left exactly as before the call.
	ErrExecutionFailed = errors.Register(1105, "action execution failed")

	// ErrInsufficientFunds is returned by the funds book when an
	// account does not hold the amount to be moved.
	ErrInsufficientFunds = errors.Register(1106, "insufficient funds")

	// ErrBusy is returned by every mutating entry point while
	// another operation is in flight. Reentrant calls made by an
	// invoker receive this error.
	ErrBusy = errors.Register(1107, "ledger busy")
)
