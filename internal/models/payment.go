package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StageKey string
type PaymentStatus string

const (
	StageBooking    StageKey = "booking"
	StagePOP        StageKey = "pop_stage"
	StagePlywood    StageKey = "plywood_stage"
	StageLamination StageKey = "lamination_stage"
	StagePaint      StageKey = "paint_stage"
	StageFabric     StageKey = "fabric_stage"

	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
)

// ProjectCost is the contract value of a project. One row per project.
type ProjectCost struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProjectID uint            `gorm:"uniqueIndex;not null" json:"projectId"`
	TotalCost decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"totalCost"`
	CreatedBy uint            `json:"createdBy"`
	UpdatedBy uint            `json:"updatedBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// PaymentStage is the materialized ledger row for one project stage.
// PaidAmount only ever reflects transactions tagged to this stage.
type PaymentStage struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ProjectID      uint            `gorm:"uniqueIndex:idx_payment_stage_project;not null" json:"projectId"`
	Stage          StageKey        `gorm:"uniqueIndex:idx_payment_stage_project;type:varchar(32);not null" json:"stage"`
	Percentage     int             `gorm:"not null" json:"percentage"`
	RequiredAmount decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"requiredAmount"`
	PaidAmount     decimal.Decimal `gorm:"type:numeric(18,4);not null;default:0" json:"paidAmount"`
	Status         PaymentStatus   `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// PaymentTransaction is an append-only payment entry against a stage.
type PaymentTransaction struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProjectID       uint            `gorm:"index;not null" json:"projectId"`
	StageID         uint            `gorm:"index;not null" json:"stageId"`
	Amount          decimal.Decimal `gorm:"type:numeric(18,4);not null" json:"amount"`
	PaymentDate     time.Time       `gorm:"not null" json:"paymentDate"`
	PaymentMethod   string          `gorm:"size:50" json:"paymentMethod,omitempty"`
	ReferenceNumber string          `gorm:"size:100" json:"referenceNumber,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	ProofPath       string          `gorm:"size:512" json:"-"` // object key in the proofs bucket
	RecordedBy      uint            `gorm:"not null" json:"recordedBy"`
	CreatedAt       time.Time       `json:"createdAt"`
}
