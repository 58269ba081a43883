package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
)

// BOLHandler handles HTTP requests for bill of lading operations
type BOLHandler struct {
	bolService service.BOLService
	logger     *slog.Logger
}

// NewBOLHandler creates a new bill of lading handler
func NewBOLHandler(logger *slog.Logger, bolService service.BOLService) *BOLHandler {
	return &BOLHandler{
		bolService: bolService,
		logger:     logger,
	}
}

// Create registers a new bill of lading. Totals are derived from the vehicle prices.
func (h *BOLHandler) Create(c *gin.Context) {
	var req CreateBOLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	b, err := h.bolService.Create(c.Request.Context(), middleware.GetPrincipal(c), req.Metadata, req.Vehicles)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapBOLToResponse(b))
}

func (h *BOLHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	b, err := h.bolService.Get(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBOLToResponse(b))
}

// List returns bills newest first, windowed by limit and offset
func (h *BOLHandler) List(c *gin.Context) {
	var params ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	bills, err := h.bolService.List(c.Request.Context(), middleware.GetPrincipal(c), params.Limit, params.Offset)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := make([]BOLResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, mapBOLToResponse(b))
	}
	RespondWithList(c, out, params.Limit, params.Offset, len(out))
}

// Update edits descriptive fields and line items. Lowering the total below
// the collected amount is a 409.
func (h *BOLHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateBOLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Metadata == nil && req.Vehicles == nil {
		RespondBadRequest(c, "Nothing to update")
		return
	}

	b, err := h.bolService.Edit(c.Request.Context(), middleware.GetPrincipal(c), id, bol.Change{
		Metadata: req.Metadata,
		Vehicles: req.Vehicles,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapBOLToResponse(b))
}

func (h *BOLHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.bolService.Delete(c.Request.Context(), middleware.GetPrincipal(c), id); err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}

// Revisions lists total amount changes oldest first
func (h *BOLHandler) Revisions(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	revisions, err := h.bolService.Revisions(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	out := make([]RevisionResponse, 0, len(revisions))
	for _, r := range revisions {
		out = append(out, mapRevisionToResponse(r))
	}
	RespondOK(c, out)
}

func (h *BOLHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	return parseUUIDParam(c, h.logger, "id", "Invalid bill of lading ID")
}

func parseUUIDParam(c *gin.Context, logger *slog.Logger, name, message string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		logger.Warn(message, name, raw, "error", err)
		RespondBadRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}
