/*
sweep.go - Time-driven promotion and reminders

PURPOSE:
  Once per scheduling cycle (daily by design) the sweep promotes received
  cheques whose date has entered the due window, and emits a due-soon
  reminder for cheques approaching their date. The current date is an
  explicit parameter so tests can sweep any day deterministically.

FAILURE SEMANTICS:
  One bad cheque never blocks the rest of the run. Failures are logged and
  counted; the sweep has no caller to throw to. Races with operator actions
  are benign: a cheque deposited between listing and promotion simply reports
  an illegal mark_due and is skipped.

REMINDER BOOKKEEPING:
  The state machine does not encode "reminder sent"; the store records it per
  cheque, and MarkReminded's uniqueness is what bounds notifications to at
  most one per cheque even when sweeps overlap.

SEE ALSO:
  - api/scheduler.go: The ticker that drives this on an interval
  - store.go: ListDuePromotions, ListReminderCandidates, MarkReminded
*/
package cheque

import (
	"context"

	"go.uber.org/zap"
)

// SweepConfig bounds the two windows the sweep works with.
type SweepConfig struct {
	// DueWindowDays is how many days before its date a cheque becomes due.
	DueWindowDays int
	// ReminderWindowDays is how many days before its date a due-soon
	// reminder is emitted.
	ReminderWindowDays int
}

// DefaultSweepConfig matches the design targets: due a week out, reminded
// three days out.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{DueWindowDays: 7, ReminderWindowDays: 3}
}

// SweepReport aggregates one run's outcome.
type SweepReport struct {
	AsOf     Date
	Promoted int
	Reminded int
	Failures int
}

// Sweeper performs the periodic due-date sweep.
type Sweeper struct {
	Store    TxStore
	Engine   *Engine
	Notifier Notifier
	Config   SweepConfig
	Logger   *zap.Logger
}

// NewSweeper wires a sweeper. Nil notifier and logger default to no-ops.
func NewSweeper(store TxStore, engine *Engine, notifier Notifier, cfg SweepConfig, logger *zap.Logger) *Sweeper {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{Store: store, Engine: engine, Notifier: notifier, Config: cfg, Logger: logger}
}

// Run executes one sweep as of the given date: promotes received cheques
// inside the due window and emits at-most-once due-soon reminders.
func (s *Sweeper) Run(ctx context.Context, asOf Date) (SweepReport, error) {
	report := SweepReport{AsOf: asOf}

	dueBy := asOf.AddDays(s.Config.DueWindowDays)
	candidates, err := s.Store.ListDuePromotions(ctx, dueBy)
	if err != nil {
		return report, err
	}

	for _, rec := range candidates {
		if _, err := s.Engine.MarkDue(ctx, rec.ID); err != nil {
			if IsClientError(err) || IsRetryable(err) {
				// An operator got to the cheque first; nothing to promote.
				s.Logger.Debug("sweep: promotion skipped",
					zap.String("cheque_id", string(rec.ID)),
					zap.Error(err))
				continue
			}
			report.Failures++
			s.Logger.Error("sweep: promotion failed",
				zap.String("cheque_id", string(rec.ID)),
				zap.String("cheque_date", rec.ChequeDate.String()),
				zap.Error(err))
			continue
		}
		report.Promoted++
	}

	remindBy := asOf.AddDays(s.Config.ReminderWindowDays)
	reminders, err := s.Store.ListReminderCandidates(ctx, remindBy)
	if err != nil {
		return report, err
	}

	for _, rec := range reminders {
		first, err := s.Store.MarkReminded(ctx, rec.ID)
		if err != nil {
			report.Failures++
			s.Logger.Error("sweep: reminder bookkeeping failed",
				zap.String("cheque_id", string(rec.ID)),
				zap.Error(err))
			continue
		}
		if !first {
			continue
		}
		s.Notifier.ChequeDepositDue(ctx, eventFor(&rec, rec.ChequeDate, ""))
		report.Reminded++
	}

	s.Logger.Info("sweep completed",
		zap.String("as_of", asOf.String()),
		zap.Int("promoted", report.Promoted),
		zap.Int("reminded", report.Reminded),
		zap.Int("failures", report.Failures))

	return report, nil
}
