package ledger

import (
	"interior-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// AllocatedStage is a stage row as displayed after carry-forward.
type AllocatedStage struct {
	models.PaymentStage
	EffectivePaid    decimal.Decimal      `json:"effectivePaid"`
	EffectiveBalance decimal.Decimal      `json:"effectiveBalance"`
	EffectiveStatus  models.PaymentStatus `json:"effectiveStatus"`
	HasCarryForward  bool                 `json:"hasCarryForward"`
	// Applied is the part of EffectivePaid that stays with this stage, i.e.
	// EffectivePaid minus what flows on to the next one.
	Applied decimal.Decimal `json:"applied"`
}

type Allocation struct {
	Stages []AllocatedStage `json:"stages"`
	// UnallocatedExcess is what is left over after the final stage. It is
	// not folded into any stage figure.
	UnallocatedExcess decimal.Decimal `json:"unallocatedExcess"`
}

// Allocate walks stages in the given order and credits each stage's surplus to
// the next one. Callers pass rows already sorted with SortStages. The input is
// not modified.
func Allocate(stages []models.PaymentStage) Allocation {
	out := Allocation{
		Stages:            make([]AllocatedStage, 0, len(stages)),
		UnallocatedExcess: decimal.Zero,
	}

	carry := decimal.Zero
	for _, s := range stages {
		effectivePaid := s.PaidAmount.Add(carry)
		balance := s.RequiredAmount.Sub(effectivePaid)
		excess := decimal.Max(decimal.Zero, effectivePaid.Sub(s.RequiredAmount))

		out.Stages = append(out.Stages, AllocatedStage{
			PaymentStage:     s,
			EffectivePaid:    effectivePaid,
			EffectiveBalance: decimal.Max(decimal.Zero, balance),
			EffectiveStatus:  StatusFor(effectivePaid, s.RequiredAmount),
			HasCarryForward:  s.PaidAmount.LessThan(effectivePaid),
			Applied:          effectivePaid.Sub(excess),
		})
		carry = excess
	}
	out.UnallocatedExcess = carry
	return out
}
