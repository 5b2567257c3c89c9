package cheque_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atrium/pdc-engine/cheque"
)

// legalPairs is the full lifecycle, spelled out pair by pair. The machine
// must allow exactly these and nothing else.
var legalPairs = map[cheque.Status]map[cheque.Trigger]cheque.Status{
	cheque.StatusReceived: {
		cheque.TriggerMarkDue:  cheque.StatusDue,
		cheque.TriggerDeposit:  cheque.StatusDeposited,
		cheque.TriggerWithdraw: cheque.StatusWithdrawn,
		cheque.TriggerCancel:   cheque.StatusCancelled,
	},
	cheque.StatusDue: {
		cheque.TriggerDeposit:  cheque.StatusDeposited,
		cheque.TriggerWithdraw: cheque.StatusWithdrawn,
		cheque.TriggerCancel:   cheque.StatusCancelled,
	},
	cheque.StatusDeposited: {
		cheque.TriggerClear:  cheque.StatusCleared,
		cheque.TriggerBounce: cheque.StatusBounced,
		cheque.TriggerCancel: cheque.StatusCancelled,
	},
	cheque.StatusBounced: {
		cheque.TriggerReplace: cheque.StatusReplaced,
	},
	cheque.StatusCleared:   {},
	cheque.StatusCancelled: {},
	cheque.StatusReplaced:  {},
	cheque.StatusWithdrawn: {},
}

var allTriggers = []cheque.Trigger{
	cheque.TriggerMarkDue, cheque.TriggerDeposit, cheque.TriggerClear,
	cheque.TriggerBounce, cheque.TriggerReplace, cheque.TriggerWithdraw,
	cheque.TriggerCancel,
}

func TestMachine_ExhaustiveTransitionTable(t *testing.T) {
	// GIVEN: every (status, trigger) pair
	// WHEN: asking the machine for the next status
	// THEN: legal pairs land where the lifecycle says, illegal pairs error

	for _, status := range cheque.AllStatuses {
		expected, known := legalPairs[status]
		require.True(t, known, "status %s missing from test table", status)

		for _, trig := range allTriggers {
			next, err := cheque.Next("chq-1", status, trig)

			if to, ok := expected[trig]; ok {
				assert.NoError(t, err, "%s + %s should be legal", status, trig)
				assert.Equal(t, to, next, "%s + %s destination", status, trig)
			} else {
				assert.Error(t, err, "%s + %s should be illegal", status, trig)
				var illegal *cheque.IllegalTransitionError
				assert.ErrorAs(t, err, &illegal)
				assert.ErrorIs(t, err, cheque.ErrIllegalTransition)
			}
		}
	}
}

func TestMachine_IllegalTransitionNamesAllowedSet(t *testing.T) {
	// GIVEN: a deposited cheque
	// WHEN: trying to withdraw it
	// THEN: the error carries the triggers that WOULD have been legal

	_, err := cheque.Next("chq-1", cheque.StatusDeposited, cheque.TriggerWithdraw)
	require.Error(t, err)

	var illegal *cheque.IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, cheque.StatusDeposited, illegal.Current)
	assert.Equal(t, cheque.TriggerWithdraw, illegal.Trigger)
	assert.ElementsMatch(t,
		[]cheque.Trigger{cheque.TriggerClear, cheque.TriggerBounce, cheque.TriggerCancel},
		illegal.Allowed)
}

func TestMachine_PredicatesAgreeWithTable(t *testing.T) {
	// The Can* helpers exist so the UI never hardcodes lifecycle knowledge;
	// they must answer exactly what the table answers.

	for _, status := range cheque.AllStatuses {
		assert.Equal(t, cheque.Allows(status, cheque.TriggerDeposit), cheque.CanDeposit(status), "deposit from %s", status)
		assert.Equal(t, cheque.Allows(status, cheque.TriggerClear), cheque.CanClear(status), "clear from %s", status)
		assert.Equal(t, cheque.Allows(status, cheque.TriggerBounce), cheque.CanBounce(status), "bounce from %s", status)
		assert.Equal(t, cheque.Allows(status, cheque.TriggerReplace), cheque.CanReplace(status), "replace from %s", status)
		assert.Equal(t, cheque.Allows(status, cheque.TriggerWithdraw), cheque.CanWithdraw(status), "withdraw from %s", status)
		assert.Equal(t, cheque.Allows(status, cheque.TriggerCancel), cheque.CanCancel(status), "cancel from %s", status)
	}
}

func TestMachine_FinalStatusesHaveNoExit(t *testing.T) {
	// Every status IsFinal calls final must have an empty allowed set, with
	// the one documented exception: bounced is final for the instrument but
	// still allows replace.

	for _, status := range cheque.AllStatuses {
		allowed := cheque.AllowedTriggers(status)
		if status == cheque.StatusBounced {
			assert.True(t, cheque.IsFinal(status))
			assert.Equal(t, []cheque.Trigger{cheque.TriggerReplace}, allowed)
			continue
		}
		if cheque.IsFinal(status) {
			assert.Empty(t, allowed, "final status %s must not allow triggers", status)
		} else {
			assert.NotEmpty(t, allowed, "active status %s must allow triggers", status)
		}
	}
}

func TestMachine_UnknownTriggerRejected(t *testing.T) {
	assert.False(t, cheque.Allows(cheque.StatusReceived, cheque.Trigger("shred")))
}
