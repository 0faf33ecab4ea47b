package ledger

import (
	"interior-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// StatusFor derives a payment status from paid and required amounts.
func StatusFor(paid, required decimal.Decimal) models.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(required):
		return models.PaymentCompleted
	case paid.IsPositive():
		return models.PaymentPartial
	default:
		return models.PaymentPending
	}
}
