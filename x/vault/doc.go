/*
Package vault implements a collective authorization ledger.

A ledger is constructed with an immutable roster: a list of distinct
owner addresses and a quorum threshold. Any owner may propose an
action, a transfer of an amount to a destination together with an
opaque payload. Owners then approve (and may revoke their approval)
until the threshold is met, at which point any owner may execute the
action. Execution marks the action first and only then hands it to the
configured Invoker; if the invoker fails, the whole operation is
rolled back and the action can be retried.

Every mutating entry point is covered by a single non-reentrant guard.
A call that arrives while another operation is in flight, including a
call made by the invoker back into the ledger, fails fast with ErrBusy
and changes nothing.

Actions are an append-only audit log: they are never deleted and once
executed never change again.
*/
package vault
