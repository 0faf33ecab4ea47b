package payments

import (
	"context"

	"interior-ledger/internal/apperrors"
	"interior-ledger/internal/ledger"
	"interior-ledger/internal/models"
	"interior-ledger/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransactionView struct {
	models.PaymentTransaction
	ProofURL string `json:"proofUrl,omitempty"`
}

type ExtraWorkPaymentView struct {
	models.ExtraWorkPayment
	ProofURL string `json:"proofUrl,omitempty"`
}

type ExtraWorkView struct {
	models.ExtraWork
	Payments []ExtraWorkPaymentView `json:"payments"`
}

// LedgerView is everything the accounts page shows for one project.
type LedgerView struct {
	ProjectID         uint                    `json:"projectId"`
	Cost              *models.ProjectCost     `json:"cost"`
	Stages            []ledger.AllocatedStage `json:"stages"`
	UnallocatedExcess decimal.Decimal         `json:"unallocatedExcess"`
	Transactions      []TransactionView       `json:"transactions"`
	ExtraWork         []ExtraWorkView         `json:"extraWork"`
	LedgerTotals      ledger.Totals           `json:"ledgerTotals"`
	EffectiveTotals   ledger.Totals           `json:"effectiveTotals"`
}

// TotalsView holds both semantics side by side: raw ledger sums and
// carry-forward adjusted sums.
type TotalsView struct {
	Ledger    ledger.Totals `json:"ledger"`
	Effective ledger.Totals `json:"effective"`
}

// ProjectLedger loads one project's ledger and runs the allocator over it.
// Nothing computed here is written back.
func (s *Service) ProjectLedger(ctx context.Context, projectID uint) (LedgerView, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return LedgerView{}, err
	}

	cost, err := s.repo.GetCost(ctx, projectID)
	if err != nil {
		return LedgerView{}, apperrors.Backend("load project cost", err)
	}
	stages, err := s.repo.ListStages(ctx, projectID)
	if err != nil {
		return LedgerView{}, apperrors.Backend("load payment stages", err)
	}
	txns, err := s.repo.ListTransactions(ctx, projectID)
	if err != nil {
		return LedgerView{}, apperrors.Backend("load payment transactions", err)
	}
	works, err := s.repo.ListExtraWork(ctx, projectID)
	if err != nil {
		return LedgerView{}, apperrors.Backend("load extra work", err)
	}
	workPayments, err := s.repo.ListExtraWorkPayments(ctx, projectID)
	if err != nil {
		return LedgerView{}, apperrors.Backend("load extra work payments", err)
	}

	ledger.SortStages(stages)
	alloc := ledger.Allocate(stages)

	view := LedgerView{
		ProjectID:         projectID,
		Cost:              cost,
		Stages:            alloc.Stages,
		UnallocatedExcess: alloc.UnallocatedExcess,
		Transactions:      make([]TransactionView, 0, len(txns)),
		ExtraWork:         make([]ExtraWorkView, 0, len(works)),
		LedgerTotals:      ledger.LedgerTotals(stages, works),
		EffectiveTotals:   ledger.EffectiveTotals([]ledger.Allocation{alloc}, works),
	}

	for _, t := range txns {
		view.Transactions = append(view.Transactions, TransactionView{
			PaymentTransaction: t,
			ProofURL:           s.proofURL(ctx, t.ProofPath),
		})
	}

	byWork := make(map[uint][]ExtraWorkPaymentView)
	for _, p := range workPayments {
		byWork[p.ExtraWorkID] = append(byWork[p.ExtraWorkID], ExtraWorkPaymentView{
			ExtraWorkPayment: p,
			ProofURL:         s.proofURL(ctx, p.ProofPath),
		})
	}
	for _, w := range works {
		payments := byWork[w.ID]
		if payments == nil {
			payments = []ExtraWorkPaymentView{}
		}
		view.ExtraWork = append(view.ExtraWork, ExtraWorkView{ExtraWork: w, Payments: payments})
	}
	return view, nil
}

// Totals aggregates across all projects.
func (s *Service) Totals(ctx context.Context) (TotalsView, error) {
	stages, err := s.repo.ListAllStages(ctx)
	if err != nil {
		return TotalsView{}, apperrors.Backend("load payment stages", err)
	}
	works, err := s.repo.ListAllExtraWork(ctx)
	if err != nil {
		return TotalsView{}, apperrors.Backend("load extra work", err)
	}

	grouped := ledger.GroupByProject(stages)
	allocations := make([]ledger.Allocation, 0, len(grouped))
	for _, rows := range grouped {
		allocations = append(allocations, ledger.Allocate(rows))
	}

	return TotalsView{
		Ledger:    ledger.LedgerTotals(stages, works),
		Effective: ledger.EffectiveTotals(allocations, works),
	}, nil
}

// proofURL signs a short-lived link. A missing file yields no link rather
// than failing the whole page.
func (s *Service) proofURL(ctx context.Context, objectPath string) string {
	if objectPath == "" || s.blob == nil {
		return ""
	}
	u, err := s.blob.SignedURL(ctx, storage.ProofsBucket, objectPath, s.cfg.ProofURLTTL)
	if err != nil {
		s.log.Warn("failed to sign proof url", zap.String("path", objectPath), zap.Error(err))
		return ""
	}
	return u
}
