// notifier.go - Logging notifier for cheque lifecycle events.
//
// Placeholder dispatch: events are structured-logged instead of emailed.
// The cheque package only sees the Notifier interface, so swapping in a
// real channel (email, webhook, SMS gateway) is a wiring change in main.
package api

import (
	"context"

	"go.uber.org/zap"

	"github.com/atrium/pdc-engine/cheque"
)

// LogNotifier writes lifecycle events to the structured log.
type LogNotifier struct {
	Logger *zap.Logger
}

// NewLogNotifier creates a notifier. A nil logger defaults to no-op.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{Logger: logger}
}

func (n *LogNotifier) ChequeDeposited(_ context.Context, e cheque.Event) {
	n.Logger.Info("cheque deposited", eventFields(e)...)
}

func (n *LogNotifier) ChequeBounced(_ context.Context, e cheque.Event) {
	n.Logger.Warn("cheque bounced", append(eventFields(e), zap.String("reason", e.Reason))...)
}

func (n *LogNotifier) ChequeDepositDue(_ context.Context, e cheque.Event) {
	n.Logger.Info("cheque deposit due soon", eventFields(e)...)
}

func eventFields(e cheque.Event) []zap.Field {
	return []zap.Field{
		zap.String("cheque_id", string(e.ChequeID)),
		zap.String("tenant_id", string(e.TenantID)),
		zap.String("cheque_number", e.ChequeNumber),
		zap.String("amount", e.Amount.String()),
		zap.String("cheque_date", e.ChequeDate.String()),
		zap.String("event_date", e.EventDate.String()),
	}
}
