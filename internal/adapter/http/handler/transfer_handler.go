package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gotransfer/internal/adapter/http/dto"
	"github.com/iho/gotransfer/internal/infrastructure/metrics"
	"github.com/iho/gotransfer/internal/usecase"
)

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC *usecase.TransferUseCase
	metrics    *metrics.Metrics
}

// NewTransferHandler creates a new TransferHandler. m may be nil.
func NewTransferHandler(transferUC *usecase.TransferUseCase, m *metrics.Metrics) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, metrics: m}
}

// Create executes a transfer.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "REQ-400", "invalid request body: "+err.Error())
		return
	}

	start := time.Now()

	receipt, err := h.transferUC.Transfer(r.Context(), req.ToUseCaseInput())
	if err != nil {
		_, code := mapDomainError(err)
		h.observe("FAILED", code, time.Since(start))
		writeDomainError(w, err)

		return
	}

	h.observe("SUCCESS", "", time.Since(start))

	if h.metrics != nil {
		amount, _ := req.Amount.Float64()
		h.metrics.TransferAmount.Observe(amount)
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromReceipt(receipt))
}

// Get retrieves a transfer record by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "REQ-400", "missing transfer ID")
		return
	}

	record, err := h.transferUC.GetRecord(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RecordFromDomain(record))
}

// GetByKey retrieves the transfer record written for an idempotency key,
// so a caller that was told "duplicate" can inspect the original outcome.
func (h *TransferHandler) GetByKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "REQ-400", "missing idempotency key")
		return
	}

	record, err := h.transferUC.GetRecordByKey(r.Context(), key)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.RecordFromDomain(record))
}

func (h *TransferHandler) observe(status, reason string, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}

	h.metrics.TransfersTotal.WithLabelValues(status).Inc()
	h.metrics.TransferDuration.Observe(elapsed.Seconds())

	if reason != "" {
		h.metrics.TransferFailures.WithLabelValues(reason).Inc()
	}
}
