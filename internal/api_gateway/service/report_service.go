package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/idealtransport/bol-ledger/internal/domain/auth"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
)

type ReportServiceImpl struct {
	bolRepo bol.Repository
	logger  *slog.Logger
}

func NewReportService(logger *slog.Logger, bolRepo bol.Repository) ReportService {
	return &ReportServiceImpl{
		bolRepo: bolRepo,
		logger:  logger,
	}
}

// Summary covers bills dated in [from, to]
func (s *ReportServiceImpl) Summary(ctx context.Context, principal *auth.Principal, from, to time.Time) (*bol.Summary, error) {
	if err := auth.Require(principal, auth.CapabilityViewReports); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, shared.ValidationError{Field: "to", Reason: "must not be before from"}
	}

	summary, err := s.bolRepo.Summarize(ctx, from, to)
	if err != nil {
		s.logger.Error("Failed to summarize bills of lading", "from", from, "to", to, "error", err)
		return nil, err
	}
	return summary, nil
}
