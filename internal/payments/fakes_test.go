package payments

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"interior-ledger/internal/ledger"
	"interior-ledger/internal/models"
	"interior-ledger/internal/realtime"

	"github.com/shopspring/decimal"
)

// memRepo is an in-memory Repository with the same increment/decrement
// semantics as the gorm store.
type memRepo struct {
	mu       sync.Mutex
	nextID   uint
	projects map[uint]bool
	costs    map[uint]models.ProjectCost
	stages   map[uint]models.PaymentStage
	txns     map[uint]models.PaymentTransaction
	works    map[uint]models.ExtraWork
	wpays    map[uint]models.ExtraWorkPayment

	failInsert error
}

func newMemRepo(projectIDs ...uint) *memRepo {
	r := &memRepo{
		projects: map[uint]bool{},
		costs:    map[uint]models.ProjectCost{},
		stages:   map[uint]models.PaymentStage{},
		txns:     map[uint]models.PaymentTransaction{},
		works:    map[uint]models.ExtraWork{},
		wpays:    map[uint]models.ExtraWorkPayment{},
	}
	for _, id := range projectIDs {
		r.projects[id] = true
	}
	return r
}

func (r *memRepo) id() uint {
	r.nextID++
	return r.nextID
}

func (r *memRepo) ProjectExists(_ context.Context, projectID uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[projectID], nil
}

func (r *memRepo) GetCost(_ context.Context, projectID uint) (*models.ProjectCost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.costs[projectID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memRepo) SaveCost(_ context.Context, projectID uint, totalCost decimal.Decimal, actorID uint) (models.ProjectCost, []models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.costs[projectID]
	if !ok {
		c = models.ProjectCost{ID: r.id(), ProjectID: projectID, CreatedBy: actorID, CreatedAt: time.Now()}
	}
	c.TotalCost = totalCost
	c.UpdatedBy = actorID
	c.UpdatedAt = time.Now()
	r.costs[projectID] = c

	var existing []models.PaymentStage
	for _, s := range r.stages {
		if s.ProjectID == projectID {
			existing = append(existing, s)
		}
	}
	rows := ledger.BuildStages(projectID, totalCost, existing)
	for i := range rows {
		if rows[i].ID == 0 {
			rows[i].ID = r.id()
		}
		r.stages[rows[i].ID] = rows[i]
	}
	return c, rows, nil
}

func (r *memRepo) GetStage(_ context.Context, stageID uint) (models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stages[stageID]
	if !ok {
		return models.PaymentStage{}, ErrNotFound
	}
	return s, nil
}

func (r *memRepo) stageByKey(projectID uint, key models.StageKey) models.PaymentStage {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.stages {
		if s.ProjectID == projectID && s.Stage == key {
			return s
		}
	}
	return models.PaymentStage{}
}

func (r *memRepo) ListStages(_ context.Context, projectID uint) ([]models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentStage
	for _, s := range r.stages {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memRepo) ListAllStages(_ context.Context) ([]models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentStage
	for _, s := range r.stages {
		out = append(out, s)
	}
	return out, nil
}

func (r *memRepo) InsertTransaction(_ context.Context, txn *models.PaymentTransaction) (models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert != nil {
		return models.PaymentStage{}, r.failInsert
	}
	s, ok := r.stages[txn.StageID]
	if !ok {
		return models.PaymentStage{}, ErrNotFound
	}
	txn.ID = r.id()
	txn.CreatedAt = time.Now()
	r.txns[txn.ID] = *txn
	s.PaidAmount = s.PaidAmount.Add(txn.Amount)
	s.Status = ledger.StatusFor(s.PaidAmount, s.RequiredAmount)
	r.stages[s.ID] = s
	return s, nil
}

func (r *memRepo) DeleteTransaction(_ context.Context, transactionID uint) (models.PaymentTransaction, models.PaymentStage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[transactionID]
	if !ok {
		return models.PaymentTransaction{}, models.PaymentStage{}, ErrNotFound
	}
	s := r.stages[txn.StageID]
	s.PaidAmount = s.PaidAmount.Sub(txn.Amount)
	s.Status = ledger.StatusFor(s.PaidAmount, s.RequiredAmount)
	r.stages[s.ID] = s
	delete(r.txns, transactionID)
	return txn, s, nil
}

func (r *memRepo) ListTransactions(_ context.Context, projectID uint) ([]models.PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PaymentTransaction
	for _, t := range r.txns {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) InsertExtraWork(_ context.Context, work *models.ExtraWork) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	work.ID = r.id()
	r.works[work.ID] = *work
	return nil
}

func (r *memRepo) GetExtraWork(_ context.Context, extraWorkID uint) (models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.works[extraWorkID]
	if !ok {
		return models.ExtraWork{}, ErrNotFound
	}
	return w, nil
}

func (r *memRepo) DeleteExtraWork(_ context.Context, extraWorkID uint) (models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.works[extraWorkID]
	if !ok {
		return models.ExtraWork{}, ErrNotFound
	}
	for _, p := range r.wpays {
		if p.ExtraWorkID == extraWorkID {
			return models.ExtraWork{}, ErrHasPayments
		}
	}
	delete(r.works, extraWorkID)
	return w, nil
}

func (r *memRepo) ListExtraWork(_ context.Context, projectID uint) ([]models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExtraWork
	for _, w := range r.works {
		if w.ProjectID == projectID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (r *memRepo) ListAllExtraWork(_ context.Context) ([]models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExtraWork
	for _, w := range r.works {
		out = append(out, w)
	}
	return out, nil
}

func (r *memRepo) InsertExtraWorkPayment(_ context.Context, p *models.ExtraWorkPayment) (models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failInsert != nil {
		return models.ExtraWork{}, r.failInsert
	}
	w, ok := r.works[p.ExtraWorkID]
	if !ok {
		return models.ExtraWork{}, ErrNotFound
	}
	p.ID = r.id()
	r.wpays[p.ID] = *p
	w.PaidAmount = w.PaidAmount.Add(p.Amount)
	w.Status = ledger.StatusFor(w.PaidAmount, w.Amount)
	r.works[w.ID] = w
	return w, nil
}

func (r *memRepo) DeleteExtraWorkPayment(_ context.Context, paymentID uint) (models.ExtraWorkPayment, models.ExtraWork, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.wpays[paymentID]
	if !ok {
		return models.ExtraWorkPayment{}, models.ExtraWork{}, ErrNotFound
	}
	w := r.works[p.ExtraWorkID]
	w.PaidAmount = w.PaidAmount.Sub(p.Amount)
	w.Status = ledger.StatusFor(w.PaidAmount, w.Amount)
	r.works[w.ID] = w
	delete(r.wpays, paymentID)
	return p, w, nil
}

func (r *memRepo) ListExtraWorkPayments(_ context.Context, projectID uint) ([]models.ExtraWorkPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExtraWorkPayment
	for _, p := range r.wpays {
		if p.ProjectID == projectID {
			out = append(out, p)
		}
	}
	return out, nil
}

// memBlob is an in-memory storage.Blob.
type memBlob struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failWrite error
}

func newMemBlob() *memBlob { return &memBlob{objects: map[string][]byte{}} }

func (b *memBlob) Upload(_ context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	if b.failWrite != nil {
		return "", b.failWrite
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[bucket+"/"+objectPath] = data
	return objectPath, nil
}

func (b *memBlob) SignedURL(_ context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[bucket+"/"+objectPath]; !ok {
		return "", errors.New("not found")
	}
	return "https://files.test/" + bucket + "/" + objectPath + "?ttl=" + ttl.String(), nil
}

func (b *memBlob) Remove(_ context.Context, bucket, objectPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, bucket+"/"+objectPath)
	return nil
}

func (b *memBlob) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

type audited struct {
	userID    uint
	projectID uint
	entity    string
	entityID uint
	action   string
}

type recorder struct {
	mu     sync.Mutex
	audits []audited
	events []realtime.Event
}

func (r *recorder) audit(userID, projectID uint, entity string, entityID uint, action, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, audited{userID, projectID, entity, entityID, action})
}

func (r *recorder) Publish(_ context.Context, ev realtime.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func proof(name, body string) *ProofFile {
	return &ProofFile{Name: name, Data: bytes.NewBufferString(body)}
}
