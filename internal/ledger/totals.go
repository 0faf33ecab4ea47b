package ledger

import (
	"interior-ledger/internal/models"

	"github.com/shopspring/decimal"
)

type Totals struct {
	Received decimal.Decimal `json:"received"`
	Pending  decimal.Decimal `json:"pending"`
	// Unallocated is overpayment beyond the last stage. Always zero for
	// ledger totals, where it is already part of Received.
	Unallocated decimal.Decimal `json:"unallocated"`
}

func zeroTotals() Totals {
	return Totals{Received: decimal.Zero, Pending: decimal.Zero, Unallocated: decimal.Zero}
}

// LedgerTotals sums raw ledger values with no carry-forward applied.
// Pending is required minus paid per row, so an overpaid row lowers it.
func LedgerTotals(stages []models.PaymentStage, extra []models.ExtraWork) Totals {
	t := zeroTotals()
	for _, s := range stages {
		t.Received = t.Received.Add(s.PaidAmount)
		t.Pending = t.Pending.Add(s.RequiredAmount.Sub(s.PaidAmount))
	}
	for _, w := range extra {
		t.Received = t.Received.Add(w.PaidAmount)
		t.Pending = t.Pending.Add(w.Amount.Sub(w.PaidAmount))
	}
	return t
}

// EffectiveTotals sums carry-forward adjusted stage figures. Received counts
// each payment once (Applied per stage, leftover in Unallocated). Extra work has
// no carry-forward, so its pending side is clamped at zero per item.
func EffectiveTotals(allocations []Allocation, extra []models.ExtraWork) Totals {
	t := zeroTotals()
	for _, a := range allocations {
		for _, s := range a.Stages {
			t.Received = t.Received.Add(s.Applied)
			t.Pending = t.Pending.Add(s.EffectiveBalance)
		}
		t.Unallocated = t.Unallocated.Add(a.UnallocatedExcess)
	}
	for _, w := range extra {
		t.Received = t.Received.Add(w.PaidAmount)
		t.Pending = t.Pending.Add(decimal.Max(decimal.Zero, w.Amount.Sub(w.PaidAmount)))
	}
	return t
}

// GroupByProject splits stage rows per project and sorts each group.
func GroupByProject(stages []models.PaymentStage) map[uint][]models.PaymentStage {
	out := make(map[uint][]models.PaymentStage)
	for _, s := range stages {
		out[s.ProjectID] = append(out[s.ProjectID], s)
	}
	for id := range out {
		SortStages(out[id])
	}
	return out
}
