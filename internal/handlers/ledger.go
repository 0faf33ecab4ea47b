package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"interior-ledger/internal/models"
	"interior-ledger/internal/payments"
	"interior-ledger/internal/report"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxProofBytes caps an uploaded payment proof.
const MaxProofBytes = 10 << 20

// LedgerService is the part of payments.Service the HTTP layer needs.
type LedgerService interface {
	SetProjectCost(ctx context.Context, actor models.Actor, projectID uint, totalCost decimal.Decimal) (models.ProjectCost, error)
	ProjectLedger(ctx context.Context, projectID uint) (payments.LedgerView, error)
	Totals(ctx context.Context) (payments.TotalsView, error)

	RecordPayment(ctx context.Context, actor models.Actor, stageID uint, in payments.PaymentInput) (models.PaymentTransaction, error)
	ReversePayment(ctx context.Context, actor models.Actor, transactionID uint) error

	AddExtraWork(ctx context.Context, actor models.Actor, projectID uint, amount decimal.Decimal, description string) (models.ExtraWork, error)
	DeleteExtraWork(ctx context.Context, actor models.Actor, extraWorkID uint) error
	RecordExtraWorkPayment(ctx context.Context, actor models.Actor, extraWorkID uint, in payments.PaymentInput) (models.ExtraWorkPayment, error)
	ReverseExtraWorkPayment(ctx context.Context, actor models.Actor, paymentID uint) error
}

// Ledger serves project cost, stage payments and extra work.
type Ledger struct {
	svc LedgerService
	log *zap.Logger
}

func NewLedger(svc LedgerService, log *zap.Logger) *Ledger {
	return &Ledger{svc: svc, log: log}
}

type costRequest struct {
	TotalCost decimal.Decimal `json:"totalCost"`
}

// SetCost handles PUT /projects/:id/cost.
func (h *Ledger) SetCost(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req costRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "totalCost must be a number")
		return
	}

	cost, err := h.svc.SetProjectCost(c.Request.Context(), actor, projectID, req.TotalCost)
	if err != nil {
		respondError(c, err)
		return
	}

	view, err := h.svc.ProjectLedger(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost, "ledger": view})
}

// Show handles GET /projects/:id/ledger.
func (h *Ledger) Show(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.ProjectLedger(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Export handles GET /projects/:id/ledger/export.
func (h *Ledger) Export(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.svc.ProjectLedger(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	f, err := report.LedgerWorkbook(view)
	if err != nil {
		h.log.Error("build ledger workbook", zap.Uint("project_id", projectID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build export"})
		return
	}
	defer f.Close()

	c.Header("Content-Type", report.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="project-%d-ledger.xlsx"`, projectID))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.log.Warn("write ledger workbook", zap.Uint("project_id", projectID), zap.Error(err))
	}
}

// Totals handles GET /dashboard/totals.
func (h *Ledger) Totals(c *gin.Context) {
	totals, err := h.svc.Totals(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

//
// ПЛАТЕЖИ ПО ЭТАПАМ
//

type paymentRequest struct {
	StageID         uint            `json:"stageId"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     string          `json:"paymentDate"`
	PaymentMethod   string          `json:"paymentMethod"`
	ReferenceNumber string          `json:"referenceNumber"`
	Notes           string          `json:"notes"`
}

// parsed payment plus the open proof file, if any; close must be called
type paymentUpload struct {
	req   paymentRequest
	proof multipart.File
	name  string
}

func (u *paymentUpload) close() {
	if u.proof != nil {
		_ = u.proof.Close()
	}
}

func (u *paymentUpload) input(projectID uint) (payments.PaymentInput, error) {
	in := payments.PaymentInput{
		ProjectID:       projectID,
		Amount:          u.req.Amount,
		PaymentMethod:   strings.TrimSpace(u.req.PaymentMethod),
		ReferenceNumber: strings.TrimSpace(u.req.ReferenceNumber),
		Notes:           strings.TrimSpace(u.req.Notes),
	}
	if d := strings.TrimSpace(u.req.PaymentDate); d != "" {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return in, errors.New("paymentDate must be YYYY-MM-DD")
		}
		in.PaymentDate = t
	}
	if u.proof != nil {
		in.Proof = &payments.ProofFile{Name: u.name, Data: u.proof}
	}
	return in, nil
}

// readPayment accepts either a JSON body or a multipart form whose
// optional "proof" part is the receipt.
func readPayment(c *gin.Context) (*paymentUpload, error) {
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, errors.New("invalid payment data")
		}
		return &paymentUpload{req: req}, nil
	}

	u := &paymentUpload{req: paymentRequest{
		PaymentDate:     c.PostForm("payment_date"),
		PaymentMethod:   c.PostForm("payment_method"),
		ReferenceNumber: c.PostForm("reference_number"),
		Notes:           c.PostForm("notes"),
	}}
	if s := c.PostForm("stage_id"); s != "" {
		id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.New("invalid stage_id")
		}
		u.req.StageID = uint(id)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.PostForm("amount")))
	if err != nil {
		return nil, errors.New("amount must be a number")
	}
	u.req.Amount = amount

	fh, err := c.FormFile("proof")
	if errors.Is(err, http.ErrMissingFile) {
		return u, nil
	}
	if err != nil {
		return nil, errors.New("invalid proof upload")
	}
	if fh.Size > MaxProofBytes {
		return nil, errors.New("proof file is too large")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, errors.New("invalid proof upload")
	}
	u.proof = f
	u.name = fh.Filename
	return u, nil
}

// RecordPayment handles POST /projects/:id/payments.
func (h *Ledger) RecordPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}

	upload, err := readPayment(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer upload.close()

	if upload.req.StageID == 0 {
		badRequest(c, "stageId is required")
		return
	}
	in, err := upload.input(projectID)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	tx, err := h.svc.RecordPayment(c.Request.Context(), actor, upload.req.StageID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// ReversePayment handles DELETE /payments/:id.
func (h *Ledger) ReversePayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ReversePayment(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

//
// ДОПОЛНИТЕЛЬНЫЕ РАБОТЫ
//

type extraWorkRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// AddExtraWork handles POST /projects/:id/extra-work.
func (h *Ledger) AddExtraWork(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req extraWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid extra work data")
		return
	}

	ew, err := h.svc.AddExtraWork(c.Request.Context(), actor, projectID, req.Amount, strings.TrimSpace(req.Description))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ew)
}

// DeleteExtraWork handles DELETE /extra-work/:id.
func (h *Ledger) DeleteExtraWork(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteExtraWork(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RecordExtraWorkPayment handles POST /extra-work/:id/payments.
// ProjectID is filled in by the service from the extra work item.
func (h *Ledger) RecordExtraWorkPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	extraWorkID, ok := idParam(c, "id")
	if !ok {
		return
	}

	upload, err := readPayment(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	defer upload.close()

	in, err := upload.input(0)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.svc.RecordExtraWorkPayment(c.Request.Context(), actor, extraWorkID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// ReverseExtraWorkPayment handles DELETE /extra-work-payments/:id.
func (h *Ledger) ReverseExtraWorkPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.ReverseExtraWorkPayment(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
