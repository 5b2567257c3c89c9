/*
machine.go - The authoritative cheque state machine

PURPOSE:
  One table owns every legal (status, trigger) pair. Transition operations in
  engine.go consult it before mutating a record, and the Can* predicates the
  presentation layer uses consult the same table, so the two can never drift
  apart.

STATE DIAGRAM:

  received ──sweep──▶ due
     │                 │
     ├──deposit────────┼──────▶ deposited ──clear──▶ cleared
     │                 │            │
     │                 │            └──bounce──▶ bounced ──replace──▶ replaced
     ├──withdraw───────┼──▶ withdrawn                      (new cheque starts
     │                 │                                    over in received)
     └──cancel─────────┴── deposited ──cancel──▶ cancelled

  A cheque bounces only from deposited: it must have been presented to a bank.
  Withdrawal happens only before deposit: once presented, the instrument can
  only clear or bounce. Cancellation is available any time before an
  irreversible bank-side event.

SEE ALSO:
  - engine.go: Applies transitions
  - errors.go: IllegalTransitionError
*/
package cheque

// =============================================================================
// TRIGGERS
// =============================================================================

// Trigger names an operation that moves a cheque between statuses.
type Trigger string

const (
	TriggerMarkDue  Trigger = "mark_due" // time sweep only, never operator-driven
	TriggerDeposit  Trigger = "deposit"
	TriggerClear    Trigger = "clear"
	TriggerBounce   Trigger = "bounce"
	TriggerReplace  Trigger = "replace"
	TriggerWithdraw Trigger = "withdraw"
	TriggerCancel   Trigger = "cancel"
)

// transitionOrder fixes a stable ordering for Allowed-set reporting.
var transitionOrder = []Trigger{
	TriggerMarkDue, TriggerDeposit, TriggerClear, TriggerBounce,
	TriggerReplace, TriggerWithdraw, TriggerCancel,
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

type transition struct {
	From []Status
	To   Status
}

// transitions is the single source of truth for the lifecycle. Nothing else
// in the package hardcodes a (status, trigger) judgement.
var transitions = map[Trigger]transition{
	TriggerMarkDue:  {From: []Status{StatusReceived}, To: StatusDue},
	TriggerDeposit:  {From: []Status{StatusReceived, StatusDue}, To: StatusDeposited},
	TriggerClear:    {From: []Status{StatusDeposited}, To: StatusCleared},
	TriggerBounce:   {From: []Status{StatusDeposited}, To: StatusBounced},
	TriggerReplace:  {From: []Status{StatusBounced}, To: StatusReplaced},
	TriggerWithdraw: {From: []Status{StatusReceived, StatusDue}, To: StatusWithdrawn},
	TriggerCancel:   {From: []Status{StatusReceived, StatusDue, StatusDeposited}, To: StatusCancelled},
}

// Allows reports whether trigger is legal from status.
func Allows(status Status, trigger Trigger) bool {
	t, ok := transitions[trigger]
	if !ok {
		return false
	}
	for _, from := range t.From {
		if from == status {
			return true
		}
	}
	return false
}

// Next returns the destination status for a legal (status, trigger) pair, or
// an IllegalTransitionError naming the allowed set. It never silently no-ops:
// re-applying a transition to its own destination is as illegal as skipping a
// state.
func Next(id ChequeID, status Status, trigger Trigger) (Status, error) {
	if !Allows(status, trigger) {
		return "", &IllegalTransitionError{
			ChequeID: id,
			Current:  status,
			Trigger:  trigger,
			Allowed:  AllowedTriggers(status),
		}
	}
	return transitions[trigger].To, nil
}

// AllowedTriggers returns every trigger legal from status, in a stable order.
func AllowedTriggers(status Status) []Trigger {
	var out []Trigger
	for _, trig := range transitionOrder {
		if Allows(status, trig) {
			out = append(out, trig)
		}
	}
	return out
}

// =============================================================================
// PREDICATES - The contract the presentation layer builds its actions from
// =============================================================================

func CanDeposit(s Status) bool  { return Allows(s, TriggerDeposit) }
func CanClear(s Status) bool    { return Allows(s, TriggerClear) }
func CanBounce(s Status) bool   { return Allows(s, TriggerBounce) }
func CanReplace(s Status) bool  { return Allows(s, TriggerReplace) }
func CanWithdraw(s Status) bool { return Allows(s, TriggerWithdraw) }
func CanCancel(s Status) bool   { return Allows(s, TriggerCancel) }

// IsFinal reports whether the instrument itself is done moving through the
// bank workflow. Bounced counts as final: the only edge out of it (replace)
// terminates this instrument and starts a fresh one in received.
func IsFinal(s Status) bool {
	switch s {
	case StatusReceived, StatusDue, StatusDeposited:
		return false
	}
	return true
}
