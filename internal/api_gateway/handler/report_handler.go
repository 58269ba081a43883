package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
)

type ReportHandler struct {
	reports service.ReportService
	logger  *slog.Logger
}

func NewReportHandler(logger *slog.Logger, reports service.ReportService) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// Summary totals bills dated between from and to, both inclusive (YYYY-MM-DD)
func (h *ReportHandler) Summary(c *gin.Context) {
	var params SummaryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "from and to are required dates (YYYY-MM-DD)")
		return
	}

	summary, err := h.reports.Summary(c.Request.Context(), middleware.GetPrincipal(c), params.From, params.To)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	RespondOK(c, mapSummaryToResponse(summary))
}
