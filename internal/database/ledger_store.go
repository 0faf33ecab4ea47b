package database

import (
	"context"
	"errors"
	"time"

	"interior-ledger/internal/ledger"
	"interior-ledger/internal/models"
	"interior-ledger/internal/payments"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore is the postgres-backed payments.Repository.
type LedgerStore struct {
	db *gorm.DB
}

var _ payments.Repository = (*LedgerStore)(nil)

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return payments.ErrNotFound
	}
	return err
}

func forUpdate() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

func (s *LedgerStore) ProjectExists(ctx context.Context, projectID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", projectID).Count(&count).Error
	return count > 0, err
}

func (s *LedgerStore) GetCost(ctx context.Context, projectID uint) (*models.ProjectCost, error) {
	var cost models.ProjectCost
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).First(&cost).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cost, nil
}

func (s *LedgerStore) SaveCost(ctx context.Context, projectID uint, totalCost decimal.Decimal, actorID uint) (models.ProjectCost, []models.PaymentStage, error) {
	var (
		cost models.ProjectCost
		rows []models.PaymentStage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(forUpdate()).Where("project_id = ?", projectID).First(&cost).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			cost = models.ProjectCost{ProjectID: projectID, TotalCost: totalCost, CreatedBy: actorID, UpdatedBy: actorID}
			if err := tx.Create(&cost).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			cost.TotalCost = totalCost
			cost.UpdatedBy = actorID
			if err := tx.Save(&cost).Error; err != nil {
				return err
			}
		}

		// строки этапов блокируем, чтобы пересчёт не затёр параллельный платёж
		var existing []models.PaymentStage
		if err := tx.Clauses(forUpdate()).Where("project_id = ?", projectID).Find(&existing).Error; err != nil {
			return err
		}
		rows = ledger.BuildStages(projectID, totalCost, existing)
		for i := range rows {
			if err := tx.Save(&rows[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.ProjectCost{}, nil, err
	}
	return cost, rows, nil
}

func (s *LedgerStore) GetStage(ctx context.Context, stageID uint) (models.PaymentStage, error) {
	var stage models.PaymentStage
	if err := s.db.WithContext(ctx).First(&stage, stageID).Error; err != nil {
		return models.PaymentStage{}, mapNotFound(err)
	}
	return stage, nil
}

func (s *LedgerStore) ListStages(ctx context.Context, projectID uint) ([]models.PaymentStage, error) {
	var stages []models.PaymentStage
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("id asc").Find(&stages).Error
	return stages, err
}

func (s *LedgerStore) ListAllStages(ctx context.Context) ([]models.PaymentStage, error) {
	var stages []models.PaymentStage
	err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = payment_stages.project_id AND projects.deleted_at IS NULL").
		Order("payment_stages.project_id asc, payment_stages.id asc").
		Find(&stages).Error
	return stages, err
}

// applyStageDelta adds delta to a stage's paid amount in a single UPDATE and
// recomputes status on the now-locked row.
func applyStageDelta(tx *gorm.DB, stageID uint, delta decimal.Decimal) (models.PaymentStage, error) {
	res := tx.Model(&models.PaymentStage{}).
		Where("id = ?", stageID).
		Updates(map[string]any{
			"paid_amount": gorm.Expr("paid_amount + ?", delta),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return models.PaymentStage{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.PaymentStage{}, payments.ErrNotFound
	}

	var stage models.PaymentStage
	if err := tx.First(&stage, stageID).Error; err != nil {
		return models.PaymentStage{}, mapNotFound(err)
	}
	status := ledger.StatusFor(stage.PaidAmount, stage.RequiredAmount)
	if status != stage.Status {
		if err := tx.Model(&stage).Update("status", status).Error; err != nil {
			return models.PaymentStage{}, err
		}
	}
	stage.Status = status
	return stage, nil
}

func (s *LedgerStore) InsertTransaction(ctx context.Context, txn *models.PaymentTransaction) (models.PaymentStage, error) {
	var stage models.PaymentStage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(txn).Error; err != nil {
			return err
		}
		var err error
		stage, err = applyStageDelta(tx, txn.StageID, txn.Amount)
		return err
	})
	return stage, err
}

func (s *LedgerStore) DeleteTransaction(ctx context.Context, transactionID uint) (models.PaymentTransaction, models.PaymentStage, error) {
	var (
		txn   models.PaymentTransaction
		stage models.PaymentStage
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&txn, transactionID).Error; err != nil {
			return mapNotFound(err)
		}
		if err := tx.Delete(&models.PaymentTransaction{}, txn.ID).Error; err != nil {
			return err
		}
		var err error
		stage, err = applyStageDelta(tx, txn.StageID, txn.Amount.Neg())
		return err
	})
	return txn, stage, err
}

func (s *LedgerStore) ListTransactions(ctx context.Context, projectID uint) ([]models.PaymentTransaction, error) {
	var txns []models.PaymentTransaction
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("payment_date asc, id asc").
		Find(&txns).Error
	return txns, err
}

func (s *LedgerStore) InsertExtraWork(ctx context.Context, work *models.ExtraWork) error {
	return s.db.WithContext(ctx).Create(work).Error
}

func (s *LedgerStore) GetExtraWork(ctx context.Context, extraWorkID uint) (models.ExtraWork, error) {
	var work models.ExtraWork
	if err := s.db.WithContext(ctx).First(&work, extraWorkID).Error; err != nil {
		return models.ExtraWork{}, mapNotFound(err)
	}
	return work, nil
}

func (s *LedgerStore) DeleteExtraWork(ctx context.Context, extraWorkID uint) (models.ExtraWork, error) {
	var work models.ExtraWork
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&work, extraWorkID).Error; err != nil {
			return mapNotFound(err)
		}
		var count int64
		if err := tx.Model(&models.ExtraWorkPayment{}).Where("extra_work_id = ?", work.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return payments.ErrHasPayments
		}
		return tx.Delete(&models.ExtraWork{}, work.ID).Error
	})
	return work, err
}

func (s *LedgerStore) ListExtraWork(ctx context.Context, projectID uint) ([]models.ExtraWork, error) {
	var works []models.ExtraWork
	err := s.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at asc, id asc").Find(&works).Error
	return works, err
}

func (s *LedgerStore) ListAllExtraWork(ctx context.Context) ([]models.ExtraWork, error) {
	var works []models.ExtraWork
	err := s.db.WithContext(ctx).
		Joins("JOIN projects ON projects.id = extra_work.project_id AND projects.deleted_at IS NULL").
		Order("extra_work.id asc").
		Find(&works).Error
	return works, err
}

func applyExtraWorkDelta(tx *gorm.DB, extraWorkID uint, delta decimal.Decimal) (models.ExtraWork, error) {
	res := tx.Model(&models.ExtraWork{}).
		Where("id = ?", extraWorkID).
		Updates(map[string]any{
			"paid_amount": gorm.Expr("paid_amount + ?", delta),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return models.ExtraWork{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.ExtraWork{}, payments.ErrNotFound
	}

	var work models.ExtraWork
	if err := tx.First(&work, extraWorkID).Error; err != nil {
		return models.ExtraWork{}, mapNotFound(err)
	}
	status := ledger.StatusFor(work.PaidAmount, work.Amount)
	if status != work.Status {
		if err := tx.Model(&work).Update("status", status).Error; err != nil {
			return models.ExtraWork{}, err
		}
	}
	work.Status = status
	return work, nil
}

func (s *LedgerStore) InsertExtraWorkPayment(ctx context.Context, p *models.ExtraWorkPayment) (models.ExtraWork, error) {
	var work models.ExtraWork
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		var err error
		work, err = applyExtraWorkDelta(tx, p.ExtraWorkID, p.Amount)
		return err
	})
	return work, err
}

func (s *LedgerStore) DeleteExtraWorkPayment(ctx context.Context, paymentID uint) (models.ExtraWorkPayment, models.ExtraWork, error) {
	var (
		p    models.ExtraWorkPayment
		work models.ExtraWork
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(forUpdate()).First(&p, paymentID).Error; err != nil {
			return mapNotFound(err)
		}
		if err := tx.Delete(&models.ExtraWorkPayment{}, p.ID).Error; err != nil {
			return err
		}
		var err error
		work, err = applyExtraWorkDelta(tx, p.ExtraWorkID, p.Amount.Neg())
		return err
	})
	return p, work, err
}

func (s *LedgerStore) ListExtraWorkPayments(ctx context.Context, projectID uint) ([]models.ExtraWorkPayment, error) {
	var out []models.ExtraWorkPayment
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("payment_date asc, id asc").
		Find(&out).Error
	return out, err
}
