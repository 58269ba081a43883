package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type statementFixture struct {
	svc        *StatementServiceImpl
	pool       pgxmock.PgxPoolIface
	bolRepo    *MockBOLRepo
	ledgerRepo *MockLedgerRepo
	stmtRepo   *MockStatementRepo
	renderer   *MockRenderer
	archiver   *MockArchiver
}

func newStatementFixture(t *testing.T) *statementFixture {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	f := &statementFixture{
		pool:       pool,
		bolRepo:    new(MockBOLRepo),
		ledgerRepo: new(MockLedgerRepo),
		stmtRepo:   new(MockStatementRepo),
		renderer:   new(MockRenderer),
		archiver:   new(MockArchiver),
	}
	f.bolRepo.On("WithTx", mock.Anything).Return(f.bolRepo).Maybe()
	f.ledgerRepo.On("WithTx", mock.Anything).Return(f.ledgerRepo).Maybe()
	f.svc = NewStatementService(newTestLogger(), pool, f.bolRepo, f.ledgerRepo, f.stmtRepo, f.renderer, f.archiver).(*StatementServiceImpl)
	return f
}

// expectRead sets up a committed read of b and its entries
func (f *statementFixture) expectRead(b *bol.BillOfLading, entries []*ledger.Entry) {
	f.pool.ExpectBegin()
	f.bolRepo.On("LockForShare", mock.Anything, b.ID).Return(b, nil).Once()
	f.ledgerRepo.On("ListByBOL", mock.Anything, b.ID).Return(entries, nil).Once()
	f.pool.ExpectCommit()
}

func TestStatementService_Snapshot(t *testing.T) {
	t.Run("consistent ledger", func(t *testing.T) {
		f := newStatementFixture(t)
		b := newBill(t)
		_, err := b.ApplyPayment(dec("600"))
		require.NoError(t, err)
		f.expectRead(b, []*ledger.Entry{ledger.NewEntry(b, dec("600"), ledger.PaymentTypeZelle, ledger.Details{}, "op-1")})

		s, err := f.svc.Snapshot(context.Background(), operator(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, b, s.BOL)
		assert.Len(t, s.LineItems, 2)
		assert.Equal(t, shared.PaymentStatusPartial, s.PaymentStatus)
		assert.Equal(t, int64(1), s.Version())
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("ledger sum mismatch is an error", func(t *testing.T) {
		f := newStatementFixture(t)
		b := newBill(t)
		_, err := b.ApplyPayment(dec("600"))
		require.NoError(t, err)
		f.expectRead(b, []*ledger.Entry{})

		_, err = f.svc.Snapshot(context.Background(), operator(), b.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "inconsistent ledger snapshot")
	})

	t.Run("unknown bill rolls back", func(t *testing.T) {
		f := newStatementFixture(t)
		id := uuid.New()
		f.pool.ExpectBegin()
		f.bolRepo.On("LockForShare", mock.Anything, id).
			Return(nil, shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: id.String()}).Once()
		f.pool.ExpectRollback()

		_, err := f.svc.Snapshot(context.Background(), operator(), id)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: shared.ResourceBillOfLading})
		f.ledgerRepo.AssertNotCalled(t, "ListByBOL", mock.Anything, mock.Anything)
		require.NoError(t, f.pool.ExpectationsWereMet())
	})

	t.Run("driver cannot view", func(t *testing.T) {
		f := newStatementFixture(t)
		_, err := f.svc.Snapshot(context.Background(), driver(), uuid.New())
		assert.ErrorIs(t, err, shared.ForbiddenError{})
		require.NoError(t, f.pool.ExpectationsWereMet(), "no transaction may be started")
	})
}

func TestStatementService_Snapshot_ReadsInsideOneTransaction(t *testing.T) {
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	b := newBill(t)
	var (
		order []string
		txs   []any
	)
	record := func(step string) func(mock.Arguments) {
		return func(args mock.Arguments) {
			order = append(order, step)
			if strings.HasSuffix(step, "WithTx") {
				txs = append(txs, args.Get(0))
			}
		}
	}

	bolRepo, txBOLs := new(MockBOLRepo), new(MockBOLRepo)
	ledgerRepo, txEntries := new(MockLedgerRepo), new(MockLedgerRepo)
	bolRepo.On("WithTx", mock.Anything).Run(record("bol.WithTx")).Return(txBOLs).Once()
	ledgerRepo.On("WithTx", mock.Anything).Run(record("ledger.WithTx")).Return(txEntries).Once()
	txBOLs.On("LockForShare", mock.Anything, b.ID).Run(record("lock")).Return(b, nil).Once()
	txEntries.On("ListByBOL", mock.Anything, b.ID).Run(record("entries")).Return([]*ledger.Entry{}, nil).Once()

	pool.ExpectBegin()
	pool.ExpectCommit()

	svc := NewStatementService(newTestLogger(), pool, bolRepo, ledgerRepo, nil, nil, nil)
	_, err = svc.Snapshot(context.Background(), operator(), b.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"bol.WithTx", "lock", "ledger.WithTx", "entries"}, order)
	require.Len(t, txs, 2)
	assert.NotNil(t, txs[0])
	assert.Same(t, txs[0], txs[1], "both reads must use the same transaction")
	bolRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	ledgerRepo.AssertNotCalled(t, "ListByBOL", mock.Anything, mock.Anything)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestStatementService_PDF(t *testing.T) {
	setup := func(t *testing.T, f *statementFixture) uuid.UUID {
		b := newBill(t)
		f.expectRead(b, []*ledger.Entry{})
		return b.ID
	}

	t.Run("rendered and archived", func(t *testing.T) {
		f := newStatementFixture(t)
		id := setup(t, f)
		pdf := []byte("%PDF-1.4")
		f.renderer.On("PDF", mock.Anything, mock.AnythingOfType("*statement.Snapshot")).Return(pdf, nil).Once()
		f.archiver.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "statements/"+id.String()+"/") && strings.HasSuffix(key, "-v0.pdf")
		}), pdf, "application/pdf").Return("https://docs.example.com/statements/x.pdf", nil).Once()

		got, url, err := f.svc.PDF(context.Background(), superuser(), id)
		require.NoError(t, err)
		assert.Equal(t, pdf, got)
		assert.Equal(t, "https://docs.example.com/statements/x.pdf", url)
	})

	t.Run("archive failure still returns the document", func(t *testing.T) {
		f := newStatementFixture(t)
		id := setup(t, f)
		f.renderer.On("PDF", mock.Anything, mock.Anything).Return([]byte("%PDF"), nil).Once()
		f.archiver.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied")).Once()

		got, url, err := f.svc.PDF(context.Background(), superuser(), id)
		require.NoError(t, err)
		assert.NotEmpty(t, got)
		assert.Empty(t, url)
	})

	t.Run("renderer disabled", func(t *testing.T) {
		svc := NewStatementService(newTestLogger(), nil, new(MockBOLRepo), new(MockLedgerRepo), nil, nil, nil)
		_, _, err := svc.PDF(context.Background(), superuser(), uuid.New())
		assert.ErrorIs(t, err, ErrRendererDisabled)
	})

	t.Run("render failure", func(t *testing.T) {
		f := newStatementFixture(t)
		id := setup(t, f)
		renderErr := errors.New("chrome crashed")
		f.renderer.On("PDF", mock.Anything, mock.Anything).Return(nil, renderErr).Once()

		_, _, err := f.svc.PDF(context.Background(), superuser(), id)
		assert.ErrorIs(t, err, renderErr)
		f.archiver.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStatementService_Projected(t *testing.T) {
	f := newStatementFixture(t)
	b := newBill(t)
	snapshot := statement.New(b, nil)
	f.stmtRepo.On("Get", mock.Anything, b.ID).Return(snapshot, nil).Once()

	got, err := f.svc.Projected(context.Background(), operator(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got)
}
