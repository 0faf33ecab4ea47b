// Package payments implements the project payment ledger: contract value,
// stage payments with reversal, and extra work billed outside the stages.
package payments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"interior-ledger/internal/apperrors"
	"interior-ledger/internal/ledger"
	"interior-ledger/internal/models"
	"interior-ledger/internal/realtime"
	"interior-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AuditFunc records an audit entry tied to a project, so ledger events stay in
// the project's history after the rows they name are deleted.
// database.CreateProjectAuditLog satisfies it.
type AuditFunc func(userID, projectID uint, entity string, entityID uint, action, details string)

type Config struct {
	ProofURLTTL time.Duration
	Audit       AuditFunc
}

type Service struct {
	repo   Repository
	blob   storage.Blob
	events realtime.Publisher
	log    *zap.Logger
	cfg    Config
}

func NewService(repo Repository, blob storage.Blob, events realtime.Publisher, log *zap.Logger, cfg Config) *Service {
	if events == nil {
		events = realtime.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ProofURLTTL <= 0 {
		cfg.ProofURLTTL = time.Hour
	}
	if cfg.Audit == nil {
		cfg.Audit = func(uint, uint, string, uint, string, string) {}
	}
	return &Service{repo: repo, blob: blob, events: events, log: log, cfg: cfg}
}

// ProofFile is an uploaded proof-of-payment attachment.
type ProofFile struct {
	Name string
	Data io.Reader
}

// PaymentInput describes one payment. ProjectID, when set, must match the
// owning project of the stage or extra-work item.
type PaymentInput struct {
	ProjectID       uint
	Amount          decimal.Decimal
	PaymentDate     time.Time
	PaymentMethod   string
	ReferenceNumber string
	Notes           string
	Proof           *ProofFile
}

func (in PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return apperrors.Validation("amount must be > 0")
	}
	if in.PaymentDate.IsZero() {
		return apperrors.Validation("payment date is required")
	}
	return nil
}

func (s *Service) SetProjectCost(ctx context.Context, actor models.Actor, projectID uint, totalCost decimal.Decimal) (models.ProjectCost, error) {
	if !actor.CanManageCost() {
		return models.ProjectCost{}, apperrors.Forbidden("only admins and managers can set the project cost")
	}
	if totalCost.IsNegative() {
		return models.ProjectCost{}, apperrors.Validation("cost must be ≥ 0")
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return models.ProjectCost{}, err
	}

	cost, _, err := s.repo.SaveCost(ctx, projectID, totalCost, actor.UserID)
	if err != nil {
		return models.ProjectCost{}, apperrors.Backend("save project cost", err)
	}

	s.cfg.Audit(actor.UserID, projectID, "project", projectID, "cost_set", "Contract value set to "+totalCost.StringFixed(2))
	s.publish(ctx, realtime.EventCostSet, projectID, cost.ID, actor)
	return cost, nil
}

// RecordPayment stores a payment against a stage. Overpayment is accepted;
// the surplus is carried forward only in the allocated view.
func (s *Service) RecordPayment(ctx context.Context, actor models.Actor, stageID uint, in PaymentInput) (models.PaymentTransaction, error) {
	if !actor.CanRecordPayments() {
		return models.PaymentTransaction{}, apperrors.Forbidden("not allowed to record payments")
	}
	if err := in.validate(); err != nil {
		return models.PaymentTransaction{}, err
	}

	stage, err := s.repo.GetStage(ctx, stageID)
	if err != nil {
		return models.PaymentTransaction{}, s.notFound(err, "payment stage not found")
	}
	if in.ProjectID != 0 && stage.ProjectID != in.ProjectID {
		return models.PaymentTransaction{}, apperrors.NotFound("payment stage not found")
	}

	proofPath, err := s.uploadProof(ctx, stage.ProjectID, in.Proof)
	if err != nil {
		return models.PaymentTransaction{}, err
	}

	txn := models.PaymentTransaction{
		ProjectID:       stage.ProjectID,
		StageID:         stage.ID,
		Amount:          in.Amount,
		PaymentDate:     in.PaymentDate,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		Notes:           strings.TrimSpace(in.Notes),
		ProofPath:       proofPath,
		RecordedBy:      actor.UserID,
	}
	if _, err := s.repo.InsertTransaction(ctx, &txn); err != nil {
		s.discardProof(ctx, proofPath)
		return models.PaymentTransaction{}, s.notFound(err, "payment stage not found")
	}

	s.cfg.Audit(actor.UserID, txn.ProjectID, "payment_transaction", txn.ID, "create",
		fmt.Sprintf("Payment %s recorded for stage %s", txn.Amount.StringFixed(2), stage.Stage))
	s.publish(ctx, realtime.EventPaymentRecorded, txn.ProjectID, txn.ID, actor)
	return txn, nil
}

// ReversePayment deletes a transaction and takes its amount back off the
// stage. Later stages' carry-forward follows on the next read.
func (s *Service) ReversePayment(ctx context.Context, actor models.Actor, transactionID uint) error {
	if !actor.CanRecordPayments() {
		return apperrors.Forbidden("not allowed to reverse payments")
	}

	txn, stage, err := s.repo.DeleteTransaction(ctx, transactionID)
	if err != nil {
		return s.notFound(err, "payment transaction not found")
	}
	s.discardProof(ctx, txn.ProofPath)

	s.cfg.Audit(actor.UserID, txn.ProjectID, "payment_transaction", txn.ID, "reverse",
		fmt.Sprintf("Payment %s reversed on stage %s", txn.Amount.StringFixed(2), stage.Stage))
	s.publish(ctx, realtime.EventPaymentReversed, txn.ProjectID, txn.ID, actor)
	return nil
}

func (s *Service) AddExtraWork(ctx context.Context, actor models.Actor, projectID uint, amount decimal.Decimal, description string) (models.ExtraWork, error) {
	if !actor.CanManageCost() {
		return models.ExtraWork{}, apperrors.Forbidden("only admins and managers can add extra work")
	}
	description = strings.TrimSpace(description)
	if !amount.IsPositive() {
		return models.ExtraWork{}, apperrors.Validation("amount must be > 0")
	}
	if description == "" {
		return models.ExtraWork{}, apperrors.Validation("description is required")
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return models.ExtraWork{}, err
	}

	work := models.ExtraWork{
		ProjectID:   projectID,
		Amount:      amount,
		Description: description,
		PaidAmount:  decimal.Zero,
		Status:      ledger.StatusFor(decimal.Zero, amount),
		CreatedBy:   actor.UserID,
	}
	if err := s.repo.InsertExtraWork(ctx, &work); err != nil {
		return models.ExtraWork{}, apperrors.Backend("save extra work", err)
	}

	s.cfg.Audit(actor.UserID, projectID, "extra_work", work.ID, "create", "Extra work added: "+work.Description)
	s.publish(ctx, realtime.EventExtraWorkAdded, projectID, work.ID, actor)
	return work, nil
}

func (s *Service) DeleteExtraWork(ctx context.Context, actor models.Actor, extraWorkID uint) error {
	if !actor.CanManageCost() {
		return apperrors.Forbidden("only admins and managers can delete extra work")
	}
	work, err := s.repo.DeleteExtraWork(ctx, extraWorkID)
	if errors.Is(err, ErrHasPayments) {
		return apperrors.Validation("reverse the payments on this extra work first")
	}
	if err != nil {
		return s.notFound(err, "extra work not found")
	}

	s.cfg.Audit(actor.UserID, work.ProjectID, "extra_work", work.ID, "delete", "Extra work deleted: "+work.Description)
	s.publish(ctx, realtime.EventExtraWorkDeleted, work.ProjectID, work.ID, actor)
	return nil
}

func (s *Service) RecordExtraWorkPayment(ctx context.Context, actor models.Actor, extraWorkID uint, in PaymentInput) (models.ExtraWorkPayment, error) {
	if !actor.CanRecordPayments() {
		return models.ExtraWorkPayment{}, apperrors.Forbidden("not allowed to record payments")
	}
	if err := in.validate(); err != nil {
		return models.ExtraWorkPayment{}, err
	}

	work, err := s.repo.GetExtraWork(ctx, extraWorkID)
	if err != nil {
		return models.ExtraWorkPayment{}, s.notFound(err, "extra work not found")
	}
	if in.ProjectID != 0 && work.ProjectID != in.ProjectID {
		return models.ExtraWorkPayment{}, apperrors.NotFound("extra work not found")
	}

	proofPath, err := s.uploadProof(ctx, work.ProjectID, in.Proof)
	if err != nil {
		return models.ExtraWorkPayment{}, err
	}

	p := models.ExtraWorkPayment{
		ProjectID:       work.ProjectID,
		ExtraWorkID:     work.ID,
		Amount:          in.Amount,
		PaymentDate:     in.PaymentDate,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		ReferenceNumber: strings.TrimSpace(in.ReferenceNumber),
		Notes:           strings.TrimSpace(in.Notes),
		ProofPath:       proofPath,
		RecordedBy:      actor.UserID,
	}
	if _, err := s.repo.InsertExtraWorkPayment(ctx, &p); err != nil {
		s.discardProof(ctx, proofPath)
		return models.ExtraWorkPayment{}, s.notFound(err, "extra work not found")
	}

	s.cfg.Audit(actor.UserID, p.ProjectID, "extra_work_payment", p.ID, "create",
		fmt.Sprintf("Payment %s recorded for extra work #%d", p.Amount.StringFixed(2), work.ID))
	s.publish(ctx, realtime.EventExtraWorkPaid, p.ProjectID, p.ID, actor)
	return p, nil
}

func (s *Service) ReverseExtraWorkPayment(ctx context.Context, actor models.Actor, paymentID uint) error {
	if !actor.CanRecordPayments() {
		return apperrors.Forbidden("not allowed to reverse payments")
	}

	p, work, err := s.repo.DeleteExtraWorkPayment(ctx, paymentID)
	if err != nil {
		return s.notFound(err, "extra work payment not found")
	}
	s.discardProof(ctx, p.ProofPath)

	s.cfg.Audit(actor.UserID, p.ProjectID, "extra_work_payment", p.ID, "reverse",
		fmt.Sprintf("Payment %s reversed on extra work #%d", p.Amount.StringFixed(2), work.ID))
	s.publish(ctx, realtime.EventExtraWorkReversed, p.ProjectID, p.ID, actor)
	return nil
}

func (s *Service) requireProject(ctx context.Context, projectID uint) error {
	ok, err := s.repo.ProjectExists(ctx, projectID)
	if err != nil {
		return apperrors.Backend("load project", err)
	}
	if !ok {
		return apperrors.NotFound("project not found")
	}
	return nil
}

func (s *Service) notFound(err error, msg string) error {
	if errors.Is(err, ErrNotFound) {
		return apperrors.NotFound(msg)
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Backend("ledger store", err)
}

func (s *Service) uploadProof(ctx context.Context, projectID uint, proof *ProofFile) (string, error) {
	if proof == nil || proof.Data == nil {
		return "", nil
	}
	if s.blob == nil {
		return "", apperrors.Validation("proof uploads are not configured")
	}
	if _, ok := storage.ProofContentType(proof.Name); !ok {
		return "", apperrors.Validation("proof must be a PDF, JPEG, PNG or WebP file")
	}
	objectPath := fmt.Sprintf("%d/%s%s", projectID, uuid.NewString(), strings.ToLower(path.Ext(proof.Name)))
	stored, err := s.blob.Upload(ctx, storage.ProofsBucket, objectPath, proof.Data)
	if err != nil {
		return "", apperrors.Backend("upload proof", err)
	}
	return stored, nil
}

// discardProof removes an attachment. Failures are logged, not returned: the
// ledger change has already been committed or rolled back by then.
func (s *Service) discardProof(ctx context.Context, objectPath string) {
	if objectPath == "" || s.blob == nil {
		return
	}
	if err := s.blob.Remove(ctx, storage.ProofsBucket, objectPath); err != nil {
		s.log.Warn("failed to remove proof file", zap.String("path", objectPath), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, typ realtime.EventType, projectID, entityID uint, actor models.Actor) {
	ev := realtime.Event{
		Type:      typ,
		ProjectID: projectID,
		EntityID:  entityID,
		ActorID:   actor.UserID,
		At:        time.Now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("failed to publish ledger event", zap.String("type", string(typ)), zap.Uint("project_id", projectID), zap.Error(err))
	}
}
