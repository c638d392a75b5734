package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceRow is one entry of a party statement together with the running
// balance right after it.
type BalanceRow struct {
	Entry        *Entry
	BalanceAfter decimal.Decimal
}

// BalanceTimeline is the replay of a party's entries. A positive balance means
// the party owes the shop.
type BalanceTimeline struct {
	Rows           []BalanceRow
	TotalDebit     decimal.Decimal
	TotalCredit    decimal.Decimal
	CurrentBalance decimal.Decimal
}

// ComputeBalance replays entries from zero in (transaction date, creation time,
// input order) order. Deleted entries are skipped. The input slice is not
// modified.
func ComputeBalance(entries []*Entry) BalanceTimeline {
	ordered := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.IsDeleted() {
			continue
		}
		ordered = append(ordered, e)
	}

	slices.SortStableFunc(ordered, func(a, b *Entry) int {
		if c := DateOnly(a.TransactionDate).Compare(DateOnly(b.TransactionDate)); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	timeline := BalanceTimeline{
		Rows:           make([]BalanceRow, 0, len(ordered)),
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
		CurrentBalance: decimal.Zero,
	}

	balance := decimal.Zero
	for _, e := range ordered {
		if e.EntryType == EntryCredit {
			timeline.TotalCredit = timeline.TotalCredit.Add(e.Amount)
		} else {
			timeline.TotalDebit = timeline.TotalDebit.Add(e.Amount)
		}
		balance = balance.Add(e.SignedAmount())
		timeline.Rows = append(timeline.Rows, BalanceRow{Entry: e, BalanceAfter: balance})
	}

	timeline.CurrentBalance = timeline.TotalDebit.Sub(timeline.TotalCredit)
	return timeline
}

// Window returns the rows whose transaction date falls within [from, to] and
// the balance carried into the first of them. A zero bound is open.
func (t BalanceTimeline) Window(from, to time.Time) (opening decimal.Decimal, rows []BalanceRow) {
	opening = decimal.Zero
	rows = make([]BalanceRow, 0, len(t.Rows))

	for _, row := range t.Rows {
		day := DateOnly(row.Entry.TransactionDate)
		if !from.IsZero() && day.Before(DateOnly(from)) {
			opening = row.BalanceAfter
			continue
		}
		if !to.IsZero() && day.After(DateOnly(to)) {
			break
		}
		rows = append(rows, row)
	}

	return opening, rows
}

// BalanceLabel describes a balance from the shop's point of view for the
// party's relationship type.
func BalanceLabel(entity EntityType, balance decimal.Decimal) string {
	labels := LabelsFor(entity)
	switch balance.Sign() {
	case 1:
		return labels.Receivable
	case -1:
		return labels.Payable
	default:
		return "Settled"
	}
}
