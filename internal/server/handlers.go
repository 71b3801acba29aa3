package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autolearner-go/internal/learner"
	"autolearner-go/internal/model"
)

const defaultHistoryLimit = 20

// Service is the subset of the record accessor the API exposes.
type Service interface {
	Snapshot() learner.State
	Material(id string) (*model.Material, bool)
	Reload(ctx context.Context) ([]*model.Material, error)
	Submit(ctx context.Context, sourceReference string) (*model.Receipt, error)
	History(limit int) ([]*model.Submission, error)
}

var _ Service = (*learner.Accessor)(nil)

type RecordHandler struct {
	svc    Service
	logger learner.Logger
}

func NewRecordHandler(svc Service, logger learner.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

// GET /api/records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	respondOK(c, newStateResponse(h.svc.Snapshot()))
}

// GET /api/records/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	id := c.Param("id")
	m, ok := h.svc.Material(id)
	if !ok {
		respondError(c, http.StatusNotFound, "record_not_found", fmt.Errorf("record %s is not loaded", id))
		return
	}
	respondOK(c, newMaterialResponse(m))
}

// POST /api/records/reload
func (h *RecordHandler) Reload(c *gin.Context) {
	materials, err := h.svc.Reload(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, learner.ErrUnauthenticated):
			respondError(c, http.StatusConflict, "no_identity", err)
		case errors.Is(err, learner.ErrLedgerRead):
			respondError(c, http.StatusBadGateway, "ledger_read_failed", err)
		default:
			h.logger.Error("reload failed", "error", err)
			respondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	// The load may have been superseded; report what it returned.
	respondOK(c, gin.H{"materials": newMaterialList(materials)})
}

type SubmissionHandler struct {
	svc    Service
	logger learner.Logger
}

func NewSubmissionHandler(svc Service, logger learner.Logger) *SubmissionHandler {
	return &SubmissionHandler{svc: svc, logger: logger}
}

// POST /api/submissions
func (h *SubmissionHandler) Submit(c *gin.Context) {
	var req SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	receipt, err := h.svc.Submit(c.Request.Context(), req.SourceURI)
	if err != nil {
		switch {
		case errors.Is(err, learner.ErrUnauthenticated):
			respondError(c, http.StatusUnauthorized, "no_identity", err)
		case errors.Is(err, learner.ErrInvalidSource):
			respondError(c, http.StatusBadRequest, "invalid_source", err)
		case errors.Is(err, learner.ErrLedgerWrite):
			respondError(c, http.StatusBadGateway, "ledger_write_failed", err)
		default:
			h.logger.Error("submission failed", "error", err)
			respondError(c, http.StatusInternalServerError, "internal", err)
		}
		return
	}

	c.JSON(http.StatusCreated, ReceiptResponse{
		TxHash:      receipt.TxHash,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
		RecordID:    receipt.RecordID,
	})
}

// GET /api/submissions?limit=n
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = n
	}

	subs, err := h.svc.History(limit)
	if err != nil {
		if errors.Is(err, learner.ErrUnauthenticated) {
			respondError(c, http.StatusUnauthorized, "no_identity", err)
			return
		}
		h.logger.Error("listing submissions failed", "error", err)
		respondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	out := make([]SubmissionResponse, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubmissionResponse{
			ID:          s.ID,
			Owner:       s.Owner,
			SourceURI:   s.SourceReference,
			TxHash:      s.TxHash,
			RecordID:    s.RecordID,
			SubmittedAt: s.SubmittedAt.UTC(),
		})
	}
	respondOK(c, gin.H{"submissions": out})
}

// GET /healthcheck
func HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{"status": "ok"})
}
