package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// MockBOLRepo covers the calls the projector makes; anything else panics
type MockBOLRepo struct {
	bol.Repository
	mock.Mock
}

func (m *MockBOLRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) WithTx(tx pgx.Tx) bol.Repository {
	return m
}

type MockLedgerRepo struct {
	ledger.Repository
	mock.Mock
}

func (m *MockLedgerRepo) ListByBOL(ctx context.Context, bolID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, bolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	return m
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

type MockProjectionService struct {
	mock.Mock
}

func (m *MockProjectionService) Project(ctx context.Context, event *shared.PaymentAppliedEvent) error {
	return m.Called(ctx, event).Error(0)
}
