package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExtraWork is an out-of-scope work item billed separately from the stage ledger.
type ExtraWork struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProjectID   uint            `gorm:"index;not null" json:"projectId"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Status      PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	PaidAmount  decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"paidAmount"`
	CreatedBy   uint            `json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (ExtraWork) TableName() string { return "extra_work" }

type ExtraWorkPayment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProjectID       uint            `gorm:"index;not null" json:"projectId"`
	ExtraWorkID     uint            `gorm:"index;not null" json:"extraWorkId"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"paymentDate"`
	PaymentMethod   string          `gorm:"size:50" json:"paymentMethod,omitempty"`
	ReferenceNumber string          `gorm:"size:100" json:"referenceNumber,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	ProofPath       string          `gorm:"size:512" json:"-"`
	RecordedBy      uint            `gorm:"not null" json:"recordedBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}
