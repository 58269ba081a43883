package handler

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
)

const (
	// IdempotencyKeyHeader makes a payment submission safe to retry
	IdempotencyKeyHeader = "Idempotency-Key"

	// IdempotentReplayHeader is set to "true" on a replayed response
	IdempotentReplayHeader = "Idempotent-Replayed"

	maxIdempotencyKeyLength = 255
)

// PaymentHandler handles payment submissions
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Create applies a payment to a bill of lading and returns the ledger entry.
// A replayed Idempotency-Key answers 200 with the original entry.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		RespondBadRequest(c, "Idempotency-Key is too long")
		return
	}

	request := &reconciliation.PaymentRequest{
		WorkOrderNo: req.WorkOrderNo,
		Amount:      req.Amount,
		PaymentType: ledger.PaymentType(req.PaymentType),
		Details: ledger.Details{
			PickupLocation:  req.PickupLocation,
			DropoffLocation: req.DropoffLocation,
			Comments:        req.Comments,
		},
		CorrelationID: middleware.GetCorrelationID(c),
	}
	if req.BOLID != "" {
		request.BOLID = uuid.MustParse(req.BOLID)
	}
	if req.Date != nil {
		request.Details.Date = *req.Date
	}

	entry, replayed, err := h.paymentService.Submit(c.Request.Context(), middleware.GetPrincipal(c), key, request)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if replayed {
		c.Header(IdempotentReplayHeader, "true")
		RespondOK(c, mapEntryToResponse(entry))
		return
	}
	RespondCreated(c, mapEntryToResponse(entry))
}

// List returns the caller's payments newest first, with the broker of each bill
func (h *PaymentHandler) List(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	payments, err := h.paymentService.List(c.Request.Context(), middleware.GetPrincipal(c), params.Limit, params.Offset)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := make([]HistoryResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, mapHistoryToResponse(p))
	}
	RespondWithList(c, out, params.Limit, params.Offset, len(out))
}

func (h *PaymentHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid payment ID")
	if !ok {
		return
	}

	entry, err := h.paymentService.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapEntryToResponse(entry))
}
