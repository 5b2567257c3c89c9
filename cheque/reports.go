/*
reports.go - Read-only dashboard and history projections

PURPOSE:
  Derived views over the cheque store: operator KPIs, the upcoming-due list,
  recent deposits, and per-tenant history. These never mutate state and are
  computed on demand, not cached. All of them are correct for zero cheques:
  zero values and empty lists, never errors.

DATE HANDLING:
  Every view takes an explicit asOf date. "This week" is the calendar week
  (Monday-based) containing asOf; "this month" its calendar month.

BOUNCE COUNTING:
  A replaced cheque bounced before it was replaced, so bounce counts use the
  bounced date stamp, not the current status. Status alone would undercount
  the moment a bounced cheque is replaced.
*/
package cheque

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// Reporter computes read-only projections.
type Reporter struct {
	Store Store
}

// =============================================================================
// SUMMARY KPIs
// =============================================================================

type DashboardSummary struct {
	AsOf Date

	TotalPDCsReceived int

	DueThisWeekCount int
	DueThisWeekValue decimal.Decimal

	DepositedThisMonthCount int
	DepositedThisMonthValue decimal.Decimal

	// Sum of amounts over cheques in received/due/deposited.
	TotalOutstandingValue decimal.Decimal

	BouncedLast30Days int
	BounceRatePercent decimal.Decimal
}

// DashboardSummary computes the operator KPIs as of the given date.
func (r *Reporter) DashboardSummary(ctx context.Context, asOf Date) (*DashboardSummary, error) {
	records, err := r.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &DashboardSummary{
		AsOf:                    asOf,
		DueThisWeekValue:        decimal.Zero,
		DepositedThisMonthValue: decimal.Zero,
		TotalOutstandingValue:   decimal.Zero,
	}

	weekStart := asOf.StartOfWeek()
	weekEnd := weekStart.AddDays(6)
	monthStart := asOf.StartOfMonth()
	monthEnd := monthStart.AddMonths(1).AddDays(-1)
	bounceFloor := asOf.AddDays(-30)

	bouncedEver := 0
	for _, rec := range records {
		out.TotalPDCsReceived++

		if rec.IsOutstanding() {
			out.TotalOutstandingValue = out.TotalOutstandingValue.Add(rec.Amount)

			if rec.ChequeDate.AfterOrEqual(weekStart) && rec.ChequeDate.BeforeOrEqual(weekEnd) {
				out.DueThisWeekCount++
				out.DueThisWeekValue = out.DueThisWeekValue.Add(rec.Amount)
			}
		}

		if rec.DepositDate != nil &&
			rec.DepositDate.AfterOrEqual(monthStart) && rec.DepositDate.BeforeOrEqual(monthEnd) {
			out.DepositedThisMonthCount++
			out.DepositedThisMonthValue = out.DepositedThisMonthValue.Add(rec.Amount)
		}

		if rec.BouncedDate != nil {
			bouncedEver++
			if rec.BouncedDate.AfterOrEqual(bounceFloor) {
				out.BouncedLast30Days++
			}
		}
	}

	out.BounceRatePercent = ratePercent(bouncedEver, out.TotalPDCsReceived)
	return out, nil
}

// =============================================================================
// LISTS
// =============================================================================

// UpcomingCheque is a due cheque with its countdown for display.
type UpcomingCheque struct {
	Record       Record
	DaysUntilDue int // floored at 0: overdue cheques display as due today
}

// Upcoming returns due cheques with dates up to windowDays out, soonest first.
func (r *Reporter) Upcoming(ctx context.Context, asOf Date, windowDays int) ([]UpcomingCheque, error) {
	records, err := r.Store.ListByStatus(ctx, StatusDue)
	if err != nil {
		return nil, err
	}

	cutoff := asOf.AddDays(windowDays)
	out := []UpcomingCheque{}
	for _, rec := range records {
		if rec.ChequeDate.After(cutoff) {
			continue
		}
		days := DaysBetween(asOf, rec.ChequeDate)
		if days < 0 {
			days = 0
		}
		out = append(out, UpcomingCheque{Record: rec, DaysUntilDue: days})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.ChequeDate.Before(out[j].Record.ChequeDate)
	})
	return out, nil
}

// RecentlyDeposited returns the most recently deposited cheques.
func (r *Reporter) RecentlyDeposited(ctx context.Context, limit int) ([]Record, error) {
	records, err := r.Store.ListDeposited(ctx, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// =============================================================================
// TENANT HISTORY
// =============================================================================

type TenantHistory struct {
	TenantID TenantID

	TotalCheques int
	ClearedCount int
	BouncedCount int
	PendingCount int // received/due/deposited

	ClearedAmount decimal.Decimal
	PendingAmount decimal.Decimal

	BounceRatePercent decimal.Decimal

	Page     int
	PageSize int
	Cheques  []Record
}

// TenantHistory returns one page of a tenant's cheques together with
// whole-history totals. Page numbering starts at 1.
func (r *Reporter) TenantHistory(ctx context.Context, tenantID TenantID, page, pageSize int) (*TenantHistory, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	all, err := r.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &TenantHistory{
		TenantID:      tenantID,
		ClearedAmount: decimal.Zero,
		PendingAmount: decimal.Zero,
		Page:          page,
		PageSize:      pageSize,
	}

	for _, rec := range all {
		if rec.TenantID != tenantID {
			continue
		}
		out.TotalCheques++
		if rec.Status == StatusCleared {
			out.ClearedCount++
			out.ClearedAmount = out.ClearedAmount.Add(rec.Amount)
		}
		if rec.BouncedDate != nil {
			out.BouncedCount++
		}
		if rec.IsOutstanding() {
			out.PendingCount++
			out.PendingAmount = out.PendingAmount.Add(rec.Amount)
		}
	}
	out.BounceRatePercent = ratePercent(out.BouncedCount, out.TotalCheques)

	cheques, _, err := r.Store.ListByTenant(ctx, tenantID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	if cheques == nil {
		cheques = []Record{}
	}
	out.Cheques = cheques

	return out, nil
}

// ratePercent returns 100*part/total, and zero when total is zero.
func ratePercent(part, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total)))
}
