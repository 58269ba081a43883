package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
)

// StatementURLHeader carries the archived document URL
const StatementURLHeader = "X-Statement-URL"

// StatementHandler serves statements as JSON and PDF
type StatementHandler struct {
	statements service.StatementService
	logger     *slog.Logger
}

// NewStatementHandler creates a new statement handler
func NewStatementHandler(logger *slog.Logger, statements service.StatementService) *StatementHandler {
	return &StatementHandler{
		statements: statements,
		logger:     logger,
	}
}

// Get returns a snapshot built from committed state
func (h *StatementHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid bill of lading ID")
	if !ok {
		return
	}

	snapshot, err := h.statements.Snapshot(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapStatementToResponse(snapshot))
}

// PDF renders the statement document
func (h *StatementHandler) PDF(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "id", "Invalid bill of lading ID")
	if !ok {
		return
	}

	pdf, url, err := h.statements.PDF(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	if url != "" {
		c.Header(StatementURLHeader, url)
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="statement-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Projected returns the snapshot kept by the ledger projector. It may lag
// the committed state by the events still in flight.
func (h *StatementHandler) Projected(c *gin.Context) {
	id, ok := parseUUIDParam(c, h.logger, "bol_id", "Invalid bill of lading ID")
	if !ok {
		return
	}

	snapshot, err := h.statements.Projected(c.Request.Context(), middleware.GetPrincipal(c), id)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapStatementToResponse(snapshot))
}
