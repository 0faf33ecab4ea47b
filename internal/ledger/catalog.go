// Package ledger holds the payment stage catalog and the read-time computations
// over stage rows: status derivation, carry-forward allocation and totals.
// Nothing here touches storage.
package ledger

import (
	"sort"

	"interior-ledger/internal/models"

	"github.com/shopspring/decimal"
)

type StageDefinition struct {
	Key        models.StageKey `json:"key"`
	Label      string          `json:"label"`
	Percentage int             `json:"percentage"`
}

// Stages is the fixed payment schedule in billing order. Percentages sum to 100.
var Stages = []StageDefinition{
	{Key: models.StageBooking, Label: "Booking", Percentage: 5},
	{Key: models.StagePOP, Label: "POP", Percentage: 25},
	{Key: models.StagePlywood, Label: "Plywood", Percentage: 25},
	{Key: models.StageLamination, Label: "Lamination", Percentage: 30},
	{Key: models.StagePaint, Label: "Paint", Percentage: 10},
	{Key: models.StageFabric, Label: "Fabric", Percentage: 5},
}

var hundred = decimal.NewFromInt(100)

// Definition looks up a stage by key.
func Definition(key models.StageKey) (StageDefinition, bool) {
	for _, s := range Stages {
		if s.Key == key {
			return s, true
		}
	}
	return StageDefinition{}, false
}

func stageIndex(key models.StageKey) int {
	for i, s := range Stages {
		if s.Key == key {
			return i
		}
	}
	return len(Stages)
}

// RequiredAmount is totalCost * percentage / 100, unrounded.
func RequiredAmount(totalCost decimal.Decimal, percentage int) decimal.Decimal {
	return totalCost.Mul(decimal.NewFromInt(int64(percentage))).Div(hundred)
}

// SortStages orders rows by catalog position in place. Unknown keys go last.
func SortStages(stages []models.PaymentStage) {
	sort.SliceStable(stages, func(i, j int) bool {
		return stageIndex(stages[i].Stage) < stageIndex(stages[j].Stage)
	})
}

// BuildStages returns the six stage rows for a project at the given contract
// value. Rows already present in existing keep their ID and PaidAmount; only the
// required amount, percentage and status are rescaled.
func BuildStages(projectID uint, totalCost decimal.Decimal, existing []models.PaymentStage) []models.PaymentStage {
	byKey := make(map[models.StageKey]models.PaymentStage, len(existing))
	for _, s := range existing {
		byKey[s.Stage] = s
	}

	out := make([]models.PaymentStage, 0, len(Stages))
	for _, def := range Stages {
		row, ok := byKey[def.Key]
		if !ok {
			row = models.PaymentStage{
				ProjectID:  projectID,
				Stage:      def.Key,
				PaidAmount: decimal.Zero,
			}
		}
		row.Percentage = def.Percentage
		row.RequiredAmount = RequiredAmount(totalCost, def.Percentage)
		row.Status = StatusFor(row.PaidAmount, row.RequiredAmount)
		out = append(out, row)
	}
	return out
}
