package reconciliation

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/outbox"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// memDB hands out memTx values. When inner is set, Begin, Commit and Rollback
// are forwarded to it so pgxmock expectations still apply.
type memDB struct {
	inner persistence.TxBeginner
}

func (db *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if db.inner == nil {
		return &memTx{}, nil
	}
	tx, err := db.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &memTx{Tx: tx}, nil
}

// memTx stages writes until Commit and holds row locks until the
// transaction ends.
type memTx struct {
	pgx.Tx
	mu       sync.Mutex
	onCommit []func()
	release  []func()
}

func (tx *memTx) stage(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.onCommit = append(tx.onCommit, fn)
}

func (tx *memTx) hold(unlock func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.release = append(tx.release, unlock)
}

func (tx *memTx) Commit(ctx context.Context) error {
	if tx.Tx != nil {
		if err := tx.Tx.Commit(ctx); err != nil {
			tx.end(false)
			return err
		}
	}
	tx.end(true)
	return nil
}

func (tx *memTx) Rollback(ctx context.Context) error {
	var err error
	if tx.Tx != nil {
		err = tx.Tx.Rollback(ctx)
	}
	tx.end(false)
	return err
}

func (tx *memTx) end(commit bool) {
	tx.mu.Lock()
	staged, release := tx.onCommit, tx.release
	tx.onCommit, tx.release = nil, nil
	tx.mu.Unlock()

	if commit {
		for _, fn := range staged {
			fn()
		}
	}
	for i := len(release) - 1; i >= 0; i-- {
		release[i]()
	}
}

// memBOLRepo keeps bills in memory; only the methods used by payments are
// implemented. Bills locked through a memTx stay locked until it ends.
type memBOLRepo struct {
	bol.Repository
	mu    sync.Mutex
	bols  map[uuid.UUID]bol.BillOfLading
	rows  map[uuid.UUID]*sync.Mutex
	inTx  *memTx
	owner *memBOLRepo
}

func newMemBOLRepo(bills ...*bol.BillOfLading) *memBOLRepo {
	r := &memBOLRepo{
		bols: make(map[uuid.UUID]bol.BillOfLading),
		rows: make(map[uuid.UUID]*sync.Mutex),
	}
	for _, b := range bills {
		r.bols[b.ID] = *b
	}
	return r
}

func (r *memBOLRepo) root() *memBOLRepo {
	if r.owner != nil {
		return r.owner
	}
	return r
}

func (r *memBOLRepo) WithTx(tx pgx.Tx) bol.Repository {
	mtx, ok := tx.(*memTx)
	if !ok {
		return r.root()
	}
	return &memBOLRepo{owner: r.root(), inTx: mtx}
}

func (r *memBOLRepo) lockRow(id uuid.UUID) {
	if r.inTx == nil {
		return
	}
	root := r.root()
	root.mu.Lock()
	row, ok := root.rows[id]
	if !ok {
		row = &sync.Mutex{}
		root.rows[id] = row
	}
	root.mu.Unlock()

	row.Lock()
	r.inTx.hold(row.Unlock)
}

func (r *memBOLRepo) LockForUpdate(_ context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	r.lockRow(id)
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	b, ok := root.bols[id]
	if !ok {
		return nil, shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: id.String()}
	}
	return &b, nil
}

func (r *memBOLRepo) LockByWorkOrderNo(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	root := r.root()
	root.mu.Lock()
	id := uuid.Nil
	for _, b := range root.bols {
		if b.WorkOrderNo == workOrderNo {
			id = b.ID
			break
		}
	}
	root.mu.Unlock()
	if id == uuid.Nil {
		return nil, shared.NotFoundError{Resource: shared.ResourceWorkOrder, Key: workOrderNo}
	}
	return r.LockForUpdate(ctx, id)
}

func (r *memBOLRepo) UpdateBalances(_ context.Context, id uuid.UUID, totalCollected, dueAmount decimal.Decimal) error {
	root := r.root()
	apply := func() {
		root.mu.Lock()
		defer root.mu.Unlock()
		b := root.bols[id]
		b.TotalCollected = totalCollected
		b.DueAmount = dueAmount
		root.bols[id] = b
	}
	if r.inTx != nil {
		r.inTx.stage(apply)
		return nil
	}
	apply()
	return nil
}

func (r *memBOLRepo) get(id uuid.UUID) bol.BillOfLading {
	root := r.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return root.bols[id]
}

type memLedgerRepo struct {
	ledger.Repository
	mu      sync.Mutex
	entries []*ledger.Entry
}

type memLedgerTx struct {
	*memLedgerRepo
	tx *memTx
}

func (r *memLedgerRepo) WithTx(tx pgx.Tx) ledger.Repository {
	if mtx, ok := tx.(*memTx); ok {
		return &memLedgerTx{memLedgerRepo: r, tx: mtx}
	}
	return r
}

func (r *memLedgerRepo) Append(_ context.Context, entry *ledger.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLedgerTx) Append(ctx context.Context, entry *ledger.Entry) error {
	r.tx.stage(func() { _ = r.memLedgerRepo.Append(ctx, entry) })
	return nil
}

func (r *memLedgerRepo) all() []*ledger.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ledger.Entry(nil), r.entries...)
}

type memOutboxRepo struct {
	outbox.Repository
	mu       sync.Mutex
	messages []*outbox.Message
}

type memOutboxTx struct {
	*memOutboxRepo
	tx *memTx
}

func (r *memOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	if mtx, ok := tx.(*memTx); ok {
		return &memOutboxTx{memOutboxRepo: r, tx: mtx}
	}
	return r
}

func (r *memOutboxRepo) Create(_ context.Context, message *outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	message.ID = int64(len(r.messages) + 1)
	r.messages = append(r.messages, message)
	return nil
}

func (r *memOutboxTx) Create(ctx context.Context, message *outbox.Message) error {
	r.tx.stage(func() { _ = r.memOutboxRepo.Create(ctx, message) })
	return nil
}

func (r *memOutboxRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

type MockBOLManager struct {
	mock.Mock
}

func (m *MockBOLManager) LockAndApply(ctx context.Context, tx pgx.Tx, request *PaymentRequest) (*bol.BillOfLading, decimal.Decimal, error) {
	args := m.Called(ctx, tx, request)
	if args.Get(0) == nil {
		return nil, decimal.Zero, args.Error(2)
	}
	return args.Get(0).(*bol.BillOfLading), args.Get(1).(decimal.Decimal), args.Error(2)
}

type MockLedgerRecorder struct {
	mock.Mock
}

func (m *MockLedgerRecorder) Record(ctx context.Context, tx pgx.Tx, b *bol.BillOfLading, amount decimal.Decimal, request *PaymentRequest, userID string) (*ledger.Entry, error) {
	args := m.Called(ctx, tx, b, amount, request, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

type MockOutboxManager struct {
	mock.Mock
}

func (m *MockOutboxManager) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, request *PaymentRequest, b *bol.BillOfLading, entry *ledger.Entry) error {
	args := m.Called(ctx, tx, request, b, entry)
	return args.Error(0)
}

type MockBOLRepo struct {
	bol.Repository
	mock.Mock
}

func (m *MockBOLRepo) WithTx(tx pgx.Tx) bol.Repository {
	args := m.Called(tx)
	return args.Get(0).(bol.Repository)
}

func (m *MockBOLRepo) LockForUpdate(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bol.BillOfLading), args.Error(1)
}

func (m *MockBOLRepo) UpdateBalances(ctx context.Context, id uuid.UUID, totalCollected, dueAmount decimal.Decimal) error {
	args := m.Called(ctx, id, totalCollected, dueAmount)
	return args.Error(0)
}

type MockOutboxRepo struct {
	outbox.Repository
	mock.Mock
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	args := m.Called(tx)
	return args.Get(0).(outbox.Repository)
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}
