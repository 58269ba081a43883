package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
)

// ExpenseHandler handles daily expense requests
type ExpenseHandler struct {
	expenseService service.ExpenseService
	logger         *slog.Logger
}

func NewExpenseHandler(logger *slog.Logger, expenseService service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

func (h *ExpenseHandler) Create(c *gin.Context) {
	var req CreateDailyExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		RespondBadRequest(c, "date must be formatted as YYYY-MM-DD")
		return
	}

	e, err := h.expenseService.Create(c.Request.Context(), middleware.GetPrincipal(c), expense.Input{
		Date:             date,
		DieselAmount:     req.DieselAmount,
		DieselLocation:   req.DieselLocation,
		DEFAmount:        req.DEFAmount,
		DEFLocation:      req.DEFLocation,
		OtherDescription: req.OtherExpenseDescription,
		OtherAmount:      req.OtherExpenseAmount,
		OtherLocation:    req.OtherExpenseLocation,
		Total:            req.Total,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapExpenseToResponse(e))
}

// List returns the caller's expenses, most recent day first
func (h *ExpenseHandler) List(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	expenses, err := h.expenseService.List(c.Request.Context(), middleware.GetPrincipal(c), params.Limit, params.Offset)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := make([]ExpenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, mapExpenseToResponse(e))
	}
	RespondWithList(c, out, params.Limit, params.Offset, len(out))
}

func (h *ExpenseHandler) GetByID(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid expense ID")
	if !ok {
		return
	}

	e, err := h.expenseService.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapExpenseToResponse(e))
}
