package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"iter"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/api_gateway/middleware"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
	"github.com/idealtransport/bol-ledger/internal/workorder"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// setupTestRouter returns a router that runs every request as principal
func setupTestRouter(principal *auth.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID())
	r.Use(func(c *gin.Context) {
		if principal != nil {
			c.Set(middleware.PrincipalKey, principal)
		}
		c.Next()
	})
	return r
}

func operator() *auth.Principal {
	return auth.DefaultPolicy().Principal("op-1", auth.RoleOperator)
}

func superuser() *auth.Principal {
	return auth.DefaultPolicy().Principal("admin-1", auth.RoleSuperuser)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error"`
	CorrelationID string          `json:"correlation_id"`
	Meta          *MetaInfo       `json:"meta"`
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func testBill(t *testing.T) *bol.BillOfLading {
	t.Helper()
	b, err := bol.New(bol.Metadata{
		DriverName:  "Sam Carter",
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		WorkOrderNo: "WO-1001",
		Pickup:      bol.Party{Name: "Lot 9", City: "Dallas"},
		Delivery:    bol.Party{Name: "Metro Auto", City: "Tulsa"},
	}, []bol.Vehicle{
		{Year: "2019", Make: "Toyota", Model: "Camry", VIN: "4T1B11HK5KU000001", Price: dec("1000")},
		{Year: "2021", Make: "Honda", Model: "Civic", VIN: "2HGFC2F59MH000002", Price: dec("500")},
	}, "admin-1")
	require.NoError(t, err)
	return b
}

type MockBOLService struct {
	mock.Mock
}

func (m *MockBOLService) Create(ctx context.Context, principal *auth.Principal, metadata bol.Metadata, vehicles []bol.Vehicle) (*bol.BillOfLading, error) {
	args := m.Called(ctx, principal, metadata, vehicles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLService) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*bol.BillOfLading, error) {
	args := m.Called(ctx, principal, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLService) Edit(ctx context.Context, principal *auth.Principal, id uuid.UUID, change bol.Change) (*bol.BillOfLading, error) {
	args := m.Called(ctx, principal, id, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	return m.Called(ctx, principal, id).Error(0)
}

func (m *MockBOLService) Revisions(ctx context.Context, principal *auth.Principal, id uuid.UUID) ([]*bol.AmountRevision, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bol.AmountRevision), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Submit(ctx context.Context, principal *auth.Principal, idempotencyKey string, request *reconciliation.PaymentRequest) (*ledger.Entry, bool, error) {
	args := m.Called(ctx, principal, idempotencyKey, request)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ledger.Entry), args.Bool(1), args.Error(2)
}

func (m *MockPaymentService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*ledger.History, error) {
	args := m.Called(ctx, principal, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.History), args.Error(1)
}

func (m *MockPaymentService) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) Create(ctx context.Context, principal *auth.Principal, input expense.Input) (*expense.DailyExpense, error) {
	args := m.Called(ctx, principal, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expense.DailyExpense), args.Error(1)
}

func (m *MockExpenseService) List(ctx context.Context, principal *auth.Principal, limit, offset int) ([]*expense.DailyExpense, error) {
	args := m.Called(ctx, principal, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*expense.DailyExpense), args.Error(1)
}

func (m *MockExpenseService) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*expense.DailyExpense, error) {
	args := m.Called(ctx, principal, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expense.DailyExpense), args.Error(1)
}

type MockWorkOrderService struct {
	mock.Mock
}

func (m *MockWorkOrderService) ListPending(ctx context.Context, principal *auth.Principal) (iter.Seq2[*bol.WorkOrder, error], error) {
	args := m.Called(ctx, principal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(iter.Seq2[*bol.WorkOrder, error]), args.Error(1)
}

func (m *MockWorkOrderService) Status(ctx context.Context, principal *auth.Principal, workOrderNo string) (*workorder.Status, error) {
	args := m.Called(ctx, principal, workOrderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workorder.Status), args.Error(1)
}

func (m *MockWorkOrderService) Transactions(ctx context.Context, principal *auth.Principal, workOrderNo string) ([]*ledger.History, error) {
	args := m.Called(ctx, principal, workOrderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.History), args.Error(1)
}

type MockStatementService struct {
	mock.Mock
}

func (m *MockStatementService) Snapshot(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error) {
	args := m.Called(ctx, principal, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Snapshot), args.Error(1)
}

func (m *MockStatementService) PDF(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, principal, bolID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStatementService) Projected(ctx context.Context, principal *auth.Principal, bolID uuid.UUID) (*statement.Snapshot, error) {
	args := m.Called(ctx, principal, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Snapshot), args.Error(1)
}

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Summary(ctx context.Context, principal *auth.Principal, from, to time.Time) (*bol.Summary, error) {
	args := m.Called(ctx, principal, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.Summary), args.Error(1)
}
