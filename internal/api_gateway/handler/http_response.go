package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/service"
	bolredis "github.com/idealtransport/bol-ledger/internal/data/redis"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

// Response represents a standard API response
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo represents error information in a response
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	// DueAmount is set on overpayment rejections
	DueAmount string `json:"due_amount,omitempty"`
}

// MetaInfo describes the window of a list response
type MetaInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondWithList sends a JSON list response with its window
func RespondWithList(c *gin.Context, data interface{}, limit, offset, count int) {
	c.JSON(http.StatusOK, &Response{
		Data:          data,
		CorrelationID: middleware.GetCorrelationID(c),
		Meta:          &MetaInfo{Limit: limit, Offset: offset, Count: count},
	})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, info *ErrorInfo) {
	c.AbortWithStatusJSON(statusCode, &Response{
		Error:         info,
		CorrelationID: middleware.GetCorrelationID(c),
	})
}

// RespondOK sends a 200 OK response with data
func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

// RespondCreated sends a 201 Created response with data
func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

// RespondNoContent sends a 204 No Content response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondBadRequest sends a 400 Bad Request response with an error
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, &ErrorInfo{Code: "BAD_REQUEST", Message: message})
}

// RespondError maps a service error onto its HTTP status. Anything outside
// the domain taxonomy is logged and answered with a generic 500.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validationErr    shared.ValidationError
		invalidAmountErr shared.InvalidAmountError
		overpaymentErr   shared.OverpaymentError
		unauthErr        shared.UnauthenticatedError
		forbiddenErr     shared.ForbiddenError
		notFoundErr      shared.NotFoundError
		conflictErr      shared.ConflictError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondWithError(c, http.StatusBadRequest, &ErrorInfo{
			Code:    "VALIDATION_FAILED",
			Message: validationErr.Error(),
			Field:   validationErr.Field,
		})
	case errors.As(err, &invalidAmountErr):
		RespondWithError(c, http.StatusBadRequest, &ErrorInfo{
			Code:    "INVALID_AMOUNT",
			Message: invalidAmountErr.Error(),
			Field:   "amount",
		})
	case errors.As(err, &overpaymentErr):
		RespondWithError(c, http.StatusBadRequest, &ErrorInfo{
			Code:      "OVERPAYMENT",
			Message:   overpaymentErr.Error(),
			Field:     "amount",
			DueAmount: overpaymentErr.DueAmount.StringFixed(bol.MoneyPlaces),
		})
	case errors.As(err, &unauthErr):
		RespondWithError(c, http.StatusUnauthorized, &ErrorInfo{Code: "UNAUTHORIZED", Message: "Authentication required"})
	case errors.As(err, &forbiddenErr):
		RespondWithError(c, http.StatusForbidden, &ErrorInfo{Code: "FORBIDDEN", Message: forbiddenErr.Error()})
	case errors.As(err, &notFoundErr):
		RespondWithError(c, http.StatusNotFound, &ErrorInfo{Code: "NOT_FOUND", Message: notFoundErr.Error()})
	case errors.As(err, &conflictErr):
		RespondWithError(c, http.StatusConflict, &ErrorInfo{Code: "CONFLICT", Message: conflictErr.Error()})
	case errors.Is(err, bolredis.ErrInFlight):
		RespondWithError(c, http.StatusConflict, &ErrorInfo{Code: "REQUEST_IN_FLIGHT", Message: "A request with this Idempotency-Key is still being processed"})
	case errors.Is(err, service.ErrIdempotencyKeyReused):
		RespondWithError(c, http.StatusUnprocessableEntity, &ErrorInfo{Code: "IDEMPOTENCY_KEY_REUSED", Message: "This Idempotency-Key was already used for a different payment"})
	case errors.Is(err, service.ErrRendererDisabled):
		RespondWithError(c, http.StatusServiceUnavailable, &ErrorInfo{Code: "RENDERER_DISABLED", Message: "Statement rendering is not enabled"})
	default:
		logger.Error("Request failed",
			"correlation_id", middleware.GetCorrelationID(c),
			"route", c.FullPath(),
			"error", err)
		_ = c.Error(err)
		RespondWithError(c, http.StatusInternalServerError, &ErrorInfo{
			Code:    "INTERNAL_SERVER_ERROR",
			Message: "An internal server error occurred",
		})
	}
}
