package vault

import (
	"strconv"

	"github.com/tendermint/tendermint/libs/common"

	"github.com/covault/covault"
)

// Tag keys attached to emitted audit records.
const (
	TagAction      = "action"
	TagActionID    = "action-id"
	TagOwner       = "owner"
	TagProposer    = "proposer"
	TagDestination = "destination"
	TagAmount      = "amount"
	TagSender      = "sender"
)

// Values of the TagAction tag, one per auditable operation.
const (
	ActionProposed  = "action-proposed"
	ActionApproved  = "action-approved"
	ApprovalRevoked = "approval-revoked"
	ActionExecuted  = "action-executed"
	FundsReceived   = "funds-received"
)

// Recorder consumes the audit records emitted by a ledger. Records are
// observability output only: the ledger state does not depend on them
// being stored anywhere.
type Recorder interface {
	Record(tags common.KVPairs)
}

// NopRecorder drops every record.
type NopRecorder struct{}

func (NopRecorder) Record(common.KVPairs) {}

// RecorderFunc adapts a plain function to the Recorder interface.
type RecorderFunc func(tags common.KVPairs)

func (f RecorderFunc) Record(tags common.KVPairs) { f(tags) }

func tagPair(key, value string) common.KVPair {
	return common.KVPair{Key: []byte(key), Value: []byte(value)}
}

func addrPair(key string, addr covault.Address) common.KVPair {
	return tagPair(key, addr.String())
}

func intPair(key string, value int64) common.KVPair {
	return tagPair(key, strconv.FormatInt(value, 10))
}
