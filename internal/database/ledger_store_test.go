package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"interior-ledger/internal/models"
	"interior-ledger/internal/payments"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var payDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// newTestDB opens a migrated sqlite file. The sqlite dialect drops FOR UPDATE,
// everything else runs the same statements as postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createProject(t *testing.T, db *gorm.DB, title string) models.Project {
	t.Helper()
	client := models.Client{Name: title + " client"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatal(err)
	}
	project := models.Project{
		ClientID: client.ID,
		Title:    title,
		Type:     models.ProjectResidential,
		Status:   models.StatusExecution,
	}
	if err := db.Create(&project).Error; err != nil {
		t.Fatal(err)
	}
	return project
}

func stageByKey(t *testing.T, stages []models.PaymentStage, key models.StageKey) models.PaymentStage {
	t.Helper()
	for _, s := range stages {
		if s.Stage == key {
			return s
		}
	}
	t.Fatalf("stage %s not found", key)
	return models.PaymentStage{}
}

func expectStage(t *testing.T, s models.PaymentStage, paid, required int64, status models.PaymentStatus) {
	t.Helper()
	if !s.PaidAmount.Equal(d(paid)) || !s.RequiredAmount.Equal(d(required)) || s.Status != status {
		t.Fatalf("stage %s: paid %s required %s status %s, want %d %d %s",
			s.Stage, s.PaidAmount, s.RequiredAmount, s.Status, paid, required, status)
	}
}

func TestSaveCostRescalesKeepingPaidAmounts(t *testing.T) {
	db := newTestDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	project := createProject(t, db, "Sea view flat")

	cost, stages, err := store.SaveCost(ctx, project.ID, d(1000000), 1)
	if err != nil {
		t.Fatalf("save cost: %v", err)
	}
	if len(stages) != 6 || cost.CreatedBy != 1 || cost.UpdatedBy != 1 {
		t.Fatalf("unexpected first save: %d stages, cost %+v", len(stages), cost)
	}
	booking := stageByKey(t, stages, models.StageBooking)
	expectStage(t, booking, 0, 50000, models.PaymentPending)

	txn := models.PaymentTransaction{
		ProjectID: project.ID, StageID: booking.ID, Amount: d(80000), PaymentDate: payDate, RecordedBy: 1,
	}
	if _, err := store.InsertTransaction(ctx, &txn); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}

	cost, _, err = store.SaveCost(ctx, project.ID, d(2000000), 2)
	if err != nil {
		t.Fatalf("rescale: %v", err)
	}
	if cost.CreatedBy != 1 || cost.UpdatedBy != 2 {
		t.Fatalf("rescale should keep the original author: %+v", cost)
	}

	stored, err := store.GetCost(ctx, project.ID)
	if err != nil || stored == nil || !stored.TotalCost.Equal(d(2000000)) {
		t.Fatalf("stored cost %+v, err %v", stored, err)
	}

	rows, err := store.ListStages(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("rescale must not duplicate stages, got %d rows", len(rows))
	}
	rescaled := stageByKey(t, rows, models.StageBooking)
	if rescaled.ID != booking.ID {
		t.Fatalf("stage row replaced: id %d -> %d", booking.ID, rescaled.ID)
	}
	expectStage(t, rescaled, 80000, 100000, models.PaymentPartial)
	expectStage(t, stageByKey(t, rows, models.StageLamination), 0, 600000, models.PaymentPending)
}

func TestPaymentRecordReverseRoundTrip(t *testing.T) {
	db := newTestDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	project := createProject(t, db, "Villa")

	_, stages, err := store.SaveCost(ctx, project.ID, d(1000000), 1)
	if err != nil {
		t.Fatal(err)
	}
	pop := stageByKey(t, stages, models.StagePOP)

	first := models.PaymentTransaction{ProjectID: project.ID, StageID: pop.ID, Amount: d(100000), PaymentDate: payDate, RecordedBy: 1}
	stage, err := store.InsertTransaction(ctx, &first)
	if err != nil {
		t.Fatal(err)
	}
	expectStage(t, stage, 100000, 250000, models.PaymentPartial)

	second := models.PaymentTransaction{ProjectID: project.ID, StageID: pop.ID, Amount: d(150000), PaymentDate: payDate, RecordedBy: 1}
	stage, err = store.InsertTransaction(ctx, &second)
	if err != nil {
		t.Fatal(err)
	}
	expectStage(t, stage, 250000, 250000, models.PaymentCompleted)

	removed, stage, err := store.DeleteTransaction(ctx, second.ID)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if removed.ID != second.ID || !removed.Amount.Equal(d(150000)) {
		t.Fatalf("unexpected removed row %+v", removed)
	}
	expectStage(t, stage, 100000, 250000, models.PaymentPartial)

	if _, stage, err = store.DeleteTransaction(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	expectStage(t, stage, 0, 250000, models.PaymentPending)

	fromDB, err := store.GetStage(ctx, pop.ID)
	if err != nil {
		t.Fatal(err)
	}
	expectStage(t, fromDB, 0, 250000, models.PaymentPending)

	if _, _, err := store.DeleteTransaction(ctx, first.ID); !errors.Is(err, payments.ErrNotFound) {
		t.Fatalf("second reversal: expected ErrNotFound, got %v", err)
	}
	if txns, _ := store.ListTransactions(ctx, project.ID); len(txns) != 0 {
		t.Fatalf("expected no transactions left, got %d", len(txns))
	}
}

func TestInsertTransactionUnknownStageRollsBack(t *testing.T) {
	db := newTestDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	project := createProject(t, db, "Office")

	txn := models.PaymentTransaction{ProjectID: project.ID, StageID: 999, Amount: d(10), PaymentDate: payDate, RecordedBy: 1}
	if _, err := store.InsertTransaction(ctx, &txn); !errors.Is(err, payments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if txns, _ := store.ListTransactions(ctx, project.ID); len(txns) != 0 {
		t.Fatalf("transaction row must be rolled back, got %d", len(txns))
	}
}

func TestExtraWorkStore(t *testing.T) {
	db := newTestDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	project := createProject(t, db, "Duplex")

	work := models.ExtraWork{
		ProjectID: project.ID, Amount: d(20000), Description: "false ceiling",
		PaidAmount: decimal.Zero, Status: models.PaymentPending, CreatedBy: 1,
	}
	if err := store.InsertExtraWork(ctx, &work); err != nil {
		t.Fatal(err)
	}

	p := models.ExtraWorkPayment{
		ProjectID: project.ID, ExtraWorkID: work.ID, Amount: d(20000), PaymentDate: payDate, RecordedBy: 1,
	}
	updated, err := store.InsertExtraWorkPayment(ctx, &p)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.PaidAmount.Equal(d(20000)) || updated.Status != models.PaymentCompleted {
		t.Fatalf("after payment: %+v", updated)
	}

	if _, err := store.DeleteExtraWork(ctx, work.ID); !errors.Is(err, payments.ErrHasPayments) {
		t.Fatalf("expected ErrHasPayments, got %v", err)
	}
	if _, err := store.GetExtraWork(ctx, work.ID); err != nil {
		t.Fatalf("refused delete must keep the row: %v", err)
	}

	_, updated, err = store.DeleteExtraWorkPayment(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.PaidAmount.IsZero() || updated.Status != models.PaymentPending {
		t.Fatalf("after reversal: %+v", updated)
	}

	if _, err := store.DeleteExtraWork(ctx, work.ID); err != nil {
		t.Fatalf("delete without payments: %v", err)
	}
	if _, err := store.GetExtraWork(ctx, work.ID); !errors.Is(err, payments.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestListAllSkipsDeletedProjects(t *testing.T) {
	db := newTestDB(t)
	store := NewLedgerStore(db)
	ctx := context.Background()
	kept := createProject(t, db, "Kept")
	dropped := createProject(t, db, "Dropped")

	for _, p := range []models.Project{kept, dropped} {
		if _, _, err := store.SaveCost(ctx, p.ID, d(100000), 1); err != nil {
			t.Fatal(err)
		}
		work := models.ExtraWork{ProjectID: p.ID, Amount: d(500), Description: "handles", Status: models.PaymentPending, PaidAmount: decimal.Zero}
		if err := store.InsertExtraWork(ctx, &work); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Delete(&dropped).Error; err != nil {
		t.Fatal(err)
	}

	stages, err := store.ListAllStages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stages) != 6 {
		t.Fatalf("expected 6 stages of the live project, got %d", len(stages))
	}
	for _, s := range stages {
		if s.ProjectID != kept.ID {
			t.Fatalf("stage of deleted project %d listed", s.ProjectID)
		}
	}

	works, err := store.ListAllExtraWork(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(works) != 1 || works[0].ProjectID != kept.ID {
		t.Fatalf("unexpected extra work %+v", works)
	}

	if ok, _ := store.ProjectExists(ctx, dropped.ID); ok {
		t.Fatal("deleted project reported as existing")
	}
}

func TestProjectHistoryIncludesLedgerEvents(t *testing.T) {
	db := newTestDB(t)
	prev := DB
	DB = db
	t.Cleanup(func() { DB = prev })

	user := models.User{Username: "accounts@studio.local", PasswordHash: "x", Role: models.RoleAccounts}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	project := createProject(t, db, "Penthouse")
	other := createProject(t, db, "Other")

	CreateAuditLog(user.ID, "project", project.ID, "create", "Project created")
	CreateProjectAuditLog(user.ID, project.ID, "payment_transaction", 41, "create", "Payment recorded")
	CreateProjectAuditLog(user.ID, project.ID, "payment_transaction", 41, "reverse", "Payment reversed")
	CreateProjectAuditLog(user.ID, other.ID, "extra_work", 7, "create", "Extra work added")
	CreateAuditLog(user.ID, "client", project.ID, "update", "Client updated")

	logs, err := ProjectHistory(db, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"project/create", "payment_transaction/create", "payment_transaction/reverse"}
	if len(logs) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), logs)
	}
	for i, l := range logs {
		if got := l.Entity + "/" + l.Action; got != want[i] {
			t.Errorf("entry %d: got %s, want %s", i, got, want[i])
		}
		if l.User.ID != user.ID {
			t.Errorf("entry %d: user not preloaded", i)
		}
	}
}
