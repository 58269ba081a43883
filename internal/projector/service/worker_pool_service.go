package service

import (
	"context"
	"log/slog"

	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProjectionService bounds concurrent projections with an ants pool.
// Project blocks until its task has run.
type WorkerPoolProjectionService struct {
	baseService ProjectionService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolProjectionService(
	baseService ProjectionService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProjectionService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolProjectionService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

func (s *WorkerPoolProjectionService) Project(ctx context.Context, event *shared.PaymentAppliedEvent) error {
	resultChan := make(chan error, 1)
	eventCopy := *event

	err := s.pool.Submit(func() {
		resultChan <- s.baseService.Project(ctx, &eventCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit projection to worker pool",
			"event_id", event.EventID.String(),
			"error", err,
		)
		return err
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool. Submissions after Shutdown fail.
func (s *WorkerPoolProjectionService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

func (s *WorkerPoolProjectionService) Running() int {
	return s.pool.Running()
}

func (s *WorkerPoolProjectionService) Capacity() int {
	return s.pool.Cap()
}
