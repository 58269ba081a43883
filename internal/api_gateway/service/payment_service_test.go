package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/config"
	bolredis "github.com/idealtransport/bol-ledger/internal/data/redis"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/reconciliation"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newIdempotencyStore(t *testing.T) (*bolredis.IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := bolredis.NewIdempotencyStore(newTestLogger(), client, &config.RedisConfig{
		IdempotencyTTL: 24 * time.Hour,
		LockTTL:        30 * time.Second,
	})
	return store, mr
}

func paymentRequest() *reconciliation.PaymentRequest {
	return &reconciliation.PaymentRequest{
		BOLID:       uuid.New(),
		Amount:      dec("600"),
		PaymentType: ledger.PaymentTypeCash,
	}
}

func TestPaymentService_Submit(t *testing.T) {
	t.Run("without key goes straight to the engine", func(t *testing.T) {
		engine := new(MockEngine)
		svc := NewPaymentService(newTestLogger(), engine, nil, nil)
		request := paymentRequest()
		entry := &ledger.Entry{ID: uuid.New(), CollectedAmount: dec("600")}
		engine.On("ApplyPayment", mock.Anything, mock.Anything, request).Return(entry, nil).Once()

		got, replayed, err := svc.Submit(context.Background(), operator(), "", request)
		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, entry, got)
	})

	t.Run("same key replays the first result", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		entry := &ledger.Entry{
			ID:              uuid.New(),
			BOLID:           uuid.New(),
			CollectedAmount: dec("600"),
			DueAmount:       dec("900"),
			PaymentType:     ledger.PaymentTypeCash,
			UserID:          "op-1",
		}
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil).Once()
		request := paymentRequest()
		retry := *request

		first, replayed, err := svc.Submit(context.Background(), operator(), "key-1", request)
		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, entry.ID, first.ID)

		second, replayed, err := svc.Submit(context.Background(), operator(), "key-1", &retry)
		require.NoError(t, err)
		assert.True(t, replayed)
		assert.Equal(t, entry.ID, second.ID)
		assert.True(t, second.DueAmount.Equal(dec("900")))
		engine.AssertNumberOfCalls(t, "ApplyPayment", 1)
	})

	t.Run("same key with a different payment is refused", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(&ledger.Entry{ID: uuid.New()}, nil).Once()
		request := paymentRequest()

		_, _, err := svc.Submit(context.Background(), operator(), "key-7", request)
		require.NoError(t, err)

		changes := map[string]func(r *reconciliation.PaymentRequest){
			"amount":       func(r *reconciliation.PaymentRequest) { r.Amount = dec("60") },
			"bill":         func(r *reconciliation.PaymentRequest) { r.BOLID = uuid.New() },
			"payment type": func(r *reconciliation.PaymentRequest) { r.PaymentType = ledger.PaymentTypeZelle },
			"comments":     func(r *reconciliation.PaymentRequest) { r.Details.Comments = "second truck" },
		}
		for name, change := range changes {
			other := *request
			change(&other)
			got, replayed, err := svc.Submit(context.Background(), operator(), "key-7", &other)
			assert.ErrorIs(t, err, ErrIdempotencyKeyReused, name)
			assert.Nil(t, got, name)
			assert.False(t, replayed, name)
		}
		engine.AssertNumberOfCalls(t, "ApplyPayment", 1)

		// the original payment still replays
		_, replayed, err := svc.Submit(context.Background(), operator(), "key-7", request)
		require.NoError(t, err)
		assert.True(t, replayed)
	})

	t.Run("formatting differences still replay", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(&ledger.Entry{ID: uuid.New()}, nil).Once()
		request := paymentRequest()

		_, _, err := svc.Submit(context.Background(), operator(), "key-8", request)
		require.NoError(t, err)

		retry := *request
		retry.Amount = dec("600.00")
		retry.PaymentType = " cash"
		_, replayed, err := svc.Submit(context.Background(), operator(), "key-8", &retry)
		require.NoError(t, err)
		assert.True(t, replayed)
		engine.AssertNumberOfCalls(t, "ApplyPayment", 1)
	})

	t.Run("keys are scoped per user", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(&ledger.Entry{ID: uuid.New()}, nil).Twice()

		_, _, err := svc.Submit(context.Background(), operator(), "shared-key", paymentRequest())
		require.NoError(t, err)
		_, replayed, err := svc.Submit(context.Background(), superuser(), "shared-key", paymentRequest())
		require.NoError(t, err)
		assert.False(t, replayed)
		engine.AssertNumberOfCalls(t, "ApplyPayment", 2)
	})

	t.Run("rejections are not cached", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		over := shared.OverpaymentError{Amount: dec("1000"), DueAmount: dec("900")}
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(nil, over).Once()
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(&ledger.Entry{ID: uuid.New()}, nil).Once()

		_, _, err := svc.Submit(context.Background(), operator(), "key-2", paymentRequest())
		assert.ErrorIs(t, err, shared.OverpaymentError{})

		_, replayed, err := svc.Submit(context.Background(), operator(), "key-2", paymentRequest())
		require.NoError(t, err)
		assert.False(t, replayed)
	})

	t.Run("in-flight duplicate", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)

		stored, err := store.Begin(context.Background(), "op-1:key-3")
		require.NoError(t, err)
		require.Nil(t, stored)

		_, _, err = svc.Submit(context.Background(), operator(), "key-3", paymentRequest())
		assert.ErrorIs(t, err, bolredis.ErrInFlight)
		engine.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("anonymous principal never sees a stored result", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)

		_, _, err := svc.Submit(context.Background(), nil, "key-4", paymentRequest())
		assert.ErrorIs(t, err, shared.UnauthenticatedError{})
		engine.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("driver may record a payment", func(t *testing.T) {
		engine := new(MockEngine)
		store, _ := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		entry := &ledger.Entry{ID: uuid.New(), CollectedAmount: dec("600"), UserID: "driver-1"}
		engine.On("ApplyPayment", mock.Anything, mock.Anything, mock.Anything).Return(entry, nil).Once()

		got, replayed, err := svc.Submit(context.Background(), driver(), "key-6", paymentRequest())
		require.NoError(t, err)
		assert.False(t, replayed)
		assert.Equal(t, entry.ID, got.ID)
	})

	t.Run("redis unavailable", func(t *testing.T) {
		engine := new(MockEngine)
		store, mr := newIdempotencyStore(t)
		svc := NewPaymentService(newTestLogger(), engine, nil, store)
		mr.Close()

		_, _, err := svc.Submit(context.Background(), operator(), "key-5", paymentRequest())
		require.Error(t, err)
		assert.False(t, errors.Is(err, bolredis.ErrInFlight))
		engine.AssertNotCalled(t, "ApplyPayment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_List(t *testing.T) {
	t.Run("only the caller's payments", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := NewPaymentService(newTestLogger(), new(MockEngine), ledgerRepo, nil)
		history := []*ledger.History{{
			Entry:         ledger.Entry{ID: uuid.New(), UserID: "driver-1", CollectedAmount: dec("250")},
			BrokerName:    "Central Dispatch",
			BrokerAddress: "12 Elm St",
			BrokerPhone:   "214-555-0101",
		}}
		ledgerRepo.On("ListByUser", mock.Anything, "driver-1", 20, 0).Return(history, nil).Once()

		got, err := svc.List(context.Background(), driver(), 0, -5)
		require.NoError(t, err)
		assert.Equal(t, history, got)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("limit is capped", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := NewPaymentService(newTestLogger(), new(MockEngine), ledgerRepo, nil)
		ledgerRepo.On("ListByUser", mock.Anything, "op-1", 100, 200).Return([]*ledger.History{}, nil).Once()

		_, err := svc.List(context.Background(), operator(), 1000, 200)
		require.NoError(t, err)
		ledgerRepo.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		ledgerRepo := new(MockLedgerRepo)
		svc := NewPaymentService(newTestLogger(), new(MockEngine), ledgerRepo, nil)

		_, err := svc.List(context.Background(), nil, 20, 0)
		assert.ErrorIs(t, err, shared.UnauthenticatedError{})
		ledgerRepo.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_Get(t *testing.T) {
	ledgerRepo := new(MockLedgerRepo)
	svc := NewPaymentService(newTestLogger(), new(MockEngine), ledgerRepo, nil)
	mine := &ledger.Entry{ID: uuid.New(), UserID: "driver-1", CollectedAmount: dec("250")}
	theirs := &ledger.Entry{ID: uuid.New(), UserID: "op-1", CollectedAmount: dec("100")}
	ledgerRepo.On("GetByID", mock.Anything, mine.ID).Return(mine, nil)
	ledgerRepo.On("GetByID", mock.Anything, theirs.ID).Return(theirs, nil)

	t.Run("own payment", func(t *testing.T) {
		got, err := svc.Get(context.Background(), driver(), mine.ID)
		require.NoError(t, err)
		assert.Equal(t, mine, got)
	})

	t.Run("someone else's payment is not found", func(t *testing.T) {
		got, err := svc.Get(context.Background(), driver(), theirs.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: shared.ResourceLedgerEntry, Key: theirs.ID.String()})
	})

	t.Run("unknown payment", func(t *testing.T) {
		id := uuid.New()
		ledgerRepo.On("GetByID", mock.Anything, id).
			Return(nil, shared.NotFoundError{Resource: shared.ResourceLedgerEntry, Key: id.String()}).Once()

		_, err := svc.Get(context.Background(), driver(), id)
		assert.ErrorIs(t, err, shared.NotFoundError{Resource: shared.ResourceLedgerEntry})
	})

	t.Run("anonymous", func(t *testing.T) {
		_, err := svc.Get(context.Background(), nil, mine.ID)
		assert.ErrorIs(t, err, shared.UnauthenticatedError{})
	})
}
