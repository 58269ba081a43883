package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	bolredis "github.com/idealtransport/bol-ledger/internal/data/redis"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", shared.ValidationError{Field: "vehicles", Reason: "at least one vehicle is required"}, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"invalid amount", shared.InvalidAmountError{Amount: dec("0")}, http.StatusBadRequest, "INVALID_AMOUNT"},
		{"overpayment", shared.OverpaymentError{Amount: dec("1000"), DueAmount: dec("900")}, http.StatusBadRequest, "OVERPAYMENT"},
		{"unauthenticated", shared.UnauthenticatedError{}, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"forbidden", shared.ForbiddenError{UserID: "driver-1", Capability: "edit_bol"}, http.StatusForbidden, "FORBIDDEN"},
		{"not found", shared.NotFoundError{Resource: shared.ResourceWorkOrder, Key: "WO-9"}, http.StatusNotFound, "NOT_FOUND"},
		{"wrapped conflict", fmt.Errorf("edit: %w", shared.ConflictError{Resource: shared.ResourceBillOfLading, ID: "x", Reason: "has transactions"}), http.StatusConflict, "CONFLICT"},
		{"in flight", bolredis.ErrInFlight, http.StatusConflict, "REQUEST_IN_FLIGHT"},
		{"idempotency key reused", service.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED"},
		{"renderer disabled", service.ErrRendererDisabled, http.StatusServiceUnavailable, "RENDERER_DISABLED"},
		{"unknown", errors.New("connection reset by peer"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(nil)
			router.GET("/x", func(c *gin.Context) {
				RespondError(c, newTestLogger(), tt.err)
			})

			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

			assert.Equal(t, tt.status, rr.Code)
			env := decode(t, rr, nil)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.NotEmpty(t, env.CorrelationID)
		})
	}

	t.Run("overpayment carries the due amount", func(t *testing.T) {
		router := setupTestRouter(nil)
		router.GET("/x", func(c *gin.Context) {
			RespondError(c, newTestLogger(), shared.OverpaymentError{Amount: dec("1000"), DueAmount: dec("900")})
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

		env := decode(t, rr, nil)
		assert.Equal(t, "900.00", env.Error.DueAmount)
		assert.Equal(t, "amount", env.Error.Field)
		assert.Contains(t, env.Error.Message, "exceeds remaining due amount")
	})

	t.Run("internal errors do not leak", func(t *testing.T) {
		router := setupTestRouter(nil)
		router.GET("/x", func(c *gin.Context) {
			RespondError(c, newTestLogger(), errors.New("pq: password authentication failed"))
		})
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.NotContains(t, rr.Body.String(), "password")
	})
}
