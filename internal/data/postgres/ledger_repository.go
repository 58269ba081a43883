package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `id, bol_id, entry_date, work_order_no, collected_amount, due_amount,
		payment_type, pickup_location, dropoff_location, comments, user_id, created_at`

// LedgerRepository implements the ledger.Repository interface for PostgreSQL.
// Rows are never updated or deleted.
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *LedgerRepository) Append(ctx context.Context, e *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.BOLID,
		e.Date,
		nullableString(e.WorkOrderNo),
		e.CollectedAmount,
		e.DueAmount,
		e.PaymentType,
		e.PickupLocation,
		e.DropoffLocation,
		e.Comments,
		e.UserID,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append ledger entry", "bol_id", e.BOLID.String(), "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: shared.ResourceLedgerEntry, Key: id.String()}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return e, nil
}

func (r *LedgerRepository) ListByBOL(ctx context.Context, bolID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE bol_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.querier.Query(ctx, query, bolID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", "bol_id", bolID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []*ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan ledger entry", "error", err)
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over ledger entries: %w", err)
	}
	return entries, nil
}

func (r *LedgerRepository) CountByBOL(ctx context.Context, bolID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM ledger_entries WHERE bol_id = $1`, bolID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count ledger entries", "bol_id", bolID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return count, nil
}

const historyColumns = `e.id, e.bol_id, e.entry_date, e.work_order_no, e.collected_amount, e.due_amount,
		e.payment_type, e.pickup_location, e.dropoff_location, e.comments, e.user_id, e.created_at,
		COALESCE(b.work_order_no, ''), b.driver_name,
		COALESCE(b.broker->>'name', ''), COALESCE(b.broker->>'address', ''), COALESCE(b.broker->>'phone', ''),
		COALESCE(b.pickup->>'city', ''), COALESCE(b.delivery->>'city', '')`

// HistoryByWorkOrderNo reads the bill's current descriptive fields through a join
// instead of the copies fixed on each entry.
func (r *LedgerRepository) HistoryByWorkOrderNo(ctx context.Context, workOrderNo string) ([]*ledger.History, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM ledger_entries e
		JOIN bills_of_lading b ON b.id = e.bol_id
		WHERE b.work_order_no = $1
		ORDER BY e.seq ASC
	`

	rows, err := r.querier.Query(ctx, query, workOrderNo)
	if err != nil {
		r.logger.Error("Failed to load payment history", "work_order_no", workOrderNo, "error", err)
		return nil, fmt.Errorf("failed to load payment history: %w", err)
	}
	return collectHistory(rows)
}

func (r *LedgerRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*ledger.History, error) {
	query := `
		SELECT ` + historyColumns + `
		FROM ledger_entries e
		JOIN bills_of_lading b ON b.id = e.bol_id
		WHERE e.user_id = $1
		ORDER BY e.seq DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list payments", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return collectHistory(rows)
}

func collectHistory(rows pgx.Rows) ([]*ledger.History, error) {
	defer rows.Close()

	history := []*ledger.History{}
	for rows.Next() {
		var h ledger.History
		var entryWorkOrderNo *string
		err := rows.Scan(
			&h.ID,
			&h.BOLID,
			&h.Date,
			&entryWorkOrderNo,
			&h.CollectedAmount,
			&h.DueAmount,
			&h.PaymentType,
			&h.PickupLocation,
			&h.DropoffLocation,
			&h.Comments,
			&h.UserID,
			&h.CreatedAt,
			&h.CurrentWorkOrderNo,
			&h.DriverName,
			&h.BrokerName,
			&h.BrokerAddress,
			&h.BrokerPhone,
			&h.PickupCity,
			&h.DeliveryCity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment history: %w", err)
		}
		h.WorkOrderNo = derefString(entryWorkOrderNo)
		history = append(history, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over payment history: %w", err)
	}
	return history, nil
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	var workOrderNo *string
	err := row.Scan(
		&e.ID,
		&e.BOLID,
		&e.Date,
		&workOrderNo,
		&e.CollectedAmount,
		&e.DueAmount,
		&e.PaymentType,
		&e.PickupLocation,
		&e.DropoffLocation,
		&e.Comments,
		&e.UserID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.WorkOrderNo = derefString(workOrderNo)
	return &e, nil
}
