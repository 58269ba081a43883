package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/handler"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/platform/metrics"
)

type handlers struct {
	bols       *handler.BOLHandler
	payments   *handler.PaymentHandler
	expenses   *handler.ExpenseHandler
	workOrders *handler.WorkOrderHandler
	statements *handler.StatementHandler
	reports    *handler.ReportHandler
}

type authSettings struct {
	secret []byte
	issuer string
	policy *auth.Policy
}

// setupRouter configures API routes and middleware for the application
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, authn authSettings, m *metrics.Metrics) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	if m != nil {
		r.Use(middleware.Metrics(m))
	}

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Authenticate(logger, authn.secret, authn.issuer, authn.policy))
	{
		bols := v1.Group("/bols")
		{
			bols.POST("", h.bols.Create)
			bols.GET("", h.bols.List)
			bols.GET("/:id", h.bols.GetByID)
			bols.PUT("/:id", h.bols.Update)
			bols.DELETE("/:id", h.bols.Delete)
			bols.GET("/:id/revisions", h.bols.Revisions)
			bols.GET("/:id/statement", h.statements.Get)
			bols.GET("/:id/statement.pdf", h.statements.PDF)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", h.payments.Create)
			payments.GET("", h.payments.List)
			payments.GET("/:id", h.payments.GetByID)
		}

		expenses := v1.Group("/daily-expenses")
		{
			expenses.POST("", h.expenses.Create)
			expenses.GET("", h.expenses.List)
			expenses.GET("/:id", h.expenses.GetByID)
		}

		workOrders := v1.Group("/work-orders")
		{
			workOrders.GET("/pending", h.workOrders.Pending)
			workOrders.GET("/:work_order_no/status", h.workOrders.Status)
			workOrders.GET("/:work_order_no/transactions", h.workOrders.Transactions)
		}

		v1.GET("/statements/:bol_id", h.statements.Projected)
		v1.GET("/reports/summary", h.reports.Summary)
	}

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
