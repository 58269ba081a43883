package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/workorder"
)

// WorkOrderHandler serves the work order queries
type WorkOrderHandler struct {
	workOrders workorder.Service
	logger     *slog.Logger
}

// NewWorkOrderHandler creates a new work order handler
func NewWorkOrderHandler(logger *slog.Logger, workOrders workorder.Service) *WorkOrderHandler {
	return &WorkOrderHandler{
		workOrders: workOrders,
		logger:     logger,
	}
}

// Pending lists every work order with an outstanding balance, oldest first
func (h *WorkOrderHandler) Pending(c *gin.Context) {
	pending, err := h.workOrders.ListPending(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := []WorkOrderResponse{}
	for w, err := range pending {
		if err != nil {
			RespondError(c, h.logger, err)
			return
		}
		out = append(out, mapWorkOrderToResponse(w))
	}
	RespondOK(c, out)
}

func (h *WorkOrderHandler) Status(c *gin.Context) {
	status, err := h.workOrders.Status(c.Request.Context(), middleware.GetPrincipal(c), c.Param("work_order_no"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapStatusToResponse(status))
}

// Transactions lists the payments of a work order in the order they were applied
func (h *WorkOrderHandler) Transactions(c *gin.Context) {
	history, err := h.workOrders.Transactions(c.Request.Context(), middleware.GetPrincipal(c), c.Param("work_order_no"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := make([]HistoryResponse, 0, len(history))
	for _, entry := range history {
		out = append(out, mapHistoryToResponse(entry))
	}
	RespondOK(c, out)
}
