package service

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/expense"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func superuser() *auth.Principal {
	return auth.DefaultPolicy().Principal("admin-1", auth.RoleSuperuser)
}

func operator() *auth.Principal {
	return auth.DefaultPolicy().Principal("op-1", auth.RoleOperator)
}

func driver() *auth.Principal {
	return auth.DefaultPolicy().Principal("driver-1", auth.RoleDriver)
}

func testMetadata() bol.Metadata {
	return bol.Metadata{
		DriverName:  "Sam Carter",
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		WorkOrderNo: "WO-1001",
		Broker:      bol.Broker{Name: "Acme Logistics"},
	}
}

func testVehicles() []bol.Vehicle {
	return []bol.Vehicle{
		{Make: "Toyota", Model: "Camry", Price: dec("1000")},
		{Make: "Honda", Model: "Civic", Price: dec("500")},
	}
}

type MockBOLRepo struct {
	mock.Mock
}

func (m *MockBOLRepo) Create(ctx context.Context, b *bol.BillOfLading) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBOLRepo) GetByID(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) GetByWorkOrderNo(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	args := m.Called(ctx, workOrderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) List(ctx context.Context, limit, offset int) ([]*bol.BillOfLading, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) Update(ctx context.Context, b *bol.BillOfLading) error {
	return m.Called(ctx, b).Error(0)
}

func (m *MockBOLRepo) UpdateBalances(ctx context.Context, id uuid.UUID, totalCollected, dueAmount decimal.Decimal) error {
	return m.Called(ctx, id, totalCollected, dueAmount).Error(0)
}

func (m *MockBOLRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBOLRepo) LockForShare(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) LockByWorkOrderNo(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	args := m.Called(ctx, workOrderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) Pending(ctx context.Context) iter.Seq2[*bol.WorkOrder, error] {
	return m.Called(ctx).Get(0).(iter.Seq2[*bol.WorkOrder, error])
}

func (m *MockBOLRepo) Summarize(ctx context.Context, from, to time.Time) (*bol.Summary, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.Summary), args.Error(1)
}

func (m *MockBOLRepo) AddRevision(ctx context.Context, rev *bol.AmountRevision) error {
	return m.Called(ctx, rev).Error(0)
}

func (m *MockBOLRepo) Revisions(ctx context.Context, bolID uuid.UUID) ([]*bol.AmountRevision, error) {
	args := m.Called(ctx, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bol.AmountRevision), args.Error(1)
}

func (m *MockBOLRepo) WithTx(tx pgx.Tx) bol.Repository {
	return m.Called(tx).Get(0).(bol.Repository)
}

type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) Append(ctx context.Context, entry *ledger.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockLedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) ListByBOL(ctx context.Context, bolID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) CountByBOL(ctx context.Context, bolID uuid.UUID) (int64, error) {
	args := m.Called(ctx, bolID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepo) HistoryByWorkOrderNo(ctx context.Context, workOrderNo string) ([]*ledger.History, error) {
	args := m.Called(ctx, workOrderNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.History), args.Error(1)
}

func (m *MockLedgerRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ledger.History, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.History), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m.Called(tx).Get(0).(ledger.Repository)
}

type MockStatementRepo struct {
	mock.Mock
}

func (m *MockStatementRepo) Save(ctx context.Context, s *statement.Snapshot) (bool, error) {
	args := m.Called(ctx, s)
	return args.Bool(0), args.Error(1)
}

func (m *MockStatementRepo) Get(ctx context.Context, bolID uuid.UUID) (*statement.Snapshot, error) {
	args := m.Called(ctx, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*statement.Snapshot), args.Error(1)
}

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) ApplyPayment(ctx context.Context, principal *auth.Principal, request *reconciliation.PaymentRequest) (*ledger.Entry, error) {
	args := m.Called(ctx, principal, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) PDF(ctx context.Context, s *statement.Snapshot) ([]byte, error) {
	args := m.Called(ctx, s)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Put(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, body, contentType)
	return args.String(0), args.Error(1)
}

type MockExpenseRepo struct {
	mock.Mock
}

func (m *MockExpenseRepo) Create(ctx context.Context, e *expense.DailyExpense) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockExpenseRepo) GetByID(ctx context.Context, id uuid.UUID) (*expense.DailyExpense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*expense.DailyExpense), args.Error(1)
}

func (m *MockExpenseRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*expense.DailyExpense, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*expense.DailyExpense), args.Error(1)
}
