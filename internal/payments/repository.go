package payments

import (
	"context"
	"errors"

	"interior-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by a Repository when the addressed row is missing.
var ErrNotFound = errors.New("record not found")

// Repository is the relational store behind the ledger. Each mutating method
// is a single transaction: a paid amount is only ever changed by an atomic
// increment in the same transaction that inserts or deletes the payment row.
type Repository interface {
	ProjectExists(ctx context.Context, projectID uint) (bool, error)

	GetCost(ctx context.Context, projectID uint) (*models.ProjectCost, error)
	// SaveCost upserts the cost row and rescales the project's stage rows.
	SaveCost(ctx context.Context, projectID uint, totalCost decimal.Decimal, actorID uint) (models.ProjectCost, []models.PaymentStage, error)

	GetStage(ctx context.Context, stageID uint) (models.PaymentStage, error)
	ListStages(ctx context.Context, projectID uint) ([]models.PaymentStage, error)
	ListAllStages(ctx context.Context) ([]models.PaymentStage, error)

	// InsertTransaction stores txn and adds its amount to the stage.
	InsertTransaction(ctx context.Context, txn *models.PaymentTransaction) (models.PaymentStage, error)
	// DeleteTransaction removes the row and subtracts its amount from the stage.
	DeleteTransaction(ctx context.Context, transactionID uint) (models.PaymentTransaction, models.PaymentStage, error)
	ListTransactions(ctx context.Context, projectID uint) ([]models.PaymentTransaction, error)

	InsertExtraWork(ctx context.Context, work *models.ExtraWork) error
	GetExtraWork(ctx context.Context, extraWorkID uint) (models.ExtraWork, error)
	// DeleteExtraWork fails with ErrHasPayments while payments reference the item.
	DeleteExtraWork(ctx context.Context, extraWorkID uint) (models.ExtraWork, error)
	ListExtraWork(ctx context.Context, projectID uint) ([]models.ExtraWork, error)
	ListAllExtraWork(ctx context.Context) ([]models.ExtraWork, error)

	InsertExtraWorkPayment(ctx context.Context, p *models.ExtraWorkPayment) (models.ExtraWork, error)
	DeleteExtraWorkPayment(ctx context.Context, paymentID uint) (models.ExtraWorkPayment, models.ExtraWork, error)
	ListExtraWorkPayments(ctx context.Context, projectID uint) ([]models.ExtraWorkPayment, error)
}

// ErrHasPayments blocks deleting an extra-work item that still has payments.
var ErrHasPayments = errors.New("extra work has payments")
