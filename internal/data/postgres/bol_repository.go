package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/platform/persistence"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const bolColumns = `id, work_order_no, driver_name, bol_date, pickup, delivery, broker,
		condition_codes, remarks, signatures, total_amount, total_collected, due_amount,
		created_by, created_at, updated_at`

// BOLRepository implements the bol.Repository interface for PostgreSQL
type BOLRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewBOLRepository(logger *slog.Logger, db *persistence.PostgresDB) bol.Repository {
	return &BOLRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *BOLRepository) WithTx(tx pgx.Tx) bol.Repository {
	return &BOLRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the bill and its vehicles. Call it inside a transaction.
func (r *BOLRepository) Create(ctx context.Context, b *bol.BillOfLading) error {
	docs, err := marshalDescriptive(b)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bills_of_lading (` + bolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = r.querier.Exec(ctx, query,
		b.ID,
		nullableString(b.WorkOrderNo),
		b.DriverName,
		b.Date,
		docs.pickup,
		docs.delivery,
		docs.broker,
		b.ConditionCodes,
		b.Remarks,
		docs.signatures,
		b.TotalAmount,
		b.TotalCollected,
		b.DueAmount,
		b.CreatedBy,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return duplicateWorkOrder(b.WorkOrderNo)
		}
		r.logger.Error("Failed to create bill of lading", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to create bill of lading: %w", err)
	}

	return r.insertVehicles(ctx, b.ID, b.Vehicles)
}

func (r *BOLRepository) GetByID(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading WHERE id = $1`
	return r.getOne(ctx, query, id.String(), id)
}

func (r *BOLRepository) GetByWorkOrderNo(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading WHERE work_order_no = $1`
	return r.getOne(ctx, query, workOrderNo, workOrderNo)
}

// LockForUpdate reads the bill with a row lock. Concurrent lockers of the
// same bill wait until the holding transaction ends.
func (r *BOLRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id.String(), id)
}

func (r *BOLRepository) LockByWorkOrderNo(ctx context.Context, workOrderNo string) (*bol.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading WHERE work_order_no = $1 FOR UPDATE`
	return r.getOne(ctx, query, workOrderNo, workOrderNo)
}

func (r *BOLRepository) LockForShare(ctx context.Context, id uuid.UUID) (*bol.BillOfLading, error) {
	query := `SELECT ` + bolColumns + ` FROM bills_of_lading WHERE id = $1 FOR SHARE`
	return r.getOne(ctx, query, id.String(), id)
}

func (r *BOLRepository) getOne(ctx context.Context, query, key string, arg any) (*bol.BillOfLading, error) {
	b, err := scanBOL(r.querier.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: key}
		}
		r.logger.Error("Failed to get bill of lading", "key", key, "error", err)
		return nil, fmt.Errorf("failed to get bill of lading: %w", err)
	}

	b.Vehicles, err = r.vehicles(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// List returns bills newest first, without vehicles
func (r *BOLRepository) List(ctx context.Context, limit, offset int) ([]*bol.BillOfLading, error) {
	query := `
		SELECT ` + bolColumns + `
		FROM bills_of_lading
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list bills of lading", "error", err)
		return nil, fmt.Errorf("failed to list bills of lading: %w", err)
	}
	defer rows.Close()

	bills := []*bol.BillOfLading{}
	for rows.Next() {
		b, err := scanBOL(rows)
		if err != nil {
			r.logger.Error("Failed to scan bill of lading", "error", err)
			return nil, fmt.Errorf("failed to scan bill of lading: %w", err)
		}
		bills = append(bills, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bills of lading: %w", err)
	}
	return bills, nil
}

// Update rewrites the bill and replaces its vehicles. Call it inside a transaction.
func (r *BOLRepository) Update(ctx context.Context, b *bol.BillOfLading) error {
	docs, err := marshalDescriptive(b)
	if err != nil {
		return err
	}

	query := `
		UPDATE bills_of_lading
		SET work_order_no = $1, driver_name = $2, bol_date = $3, pickup = $4, delivery = $5,
			broker = $6, condition_codes = $7, remarks = $8, signatures = $9,
			total_amount = $10, total_collected = $11, due_amount = $12, updated_at = $13
		WHERE id = $14
	`
	result, err := r.querier.Exec(ctx, query,
		nullableString(b.WorkOrderNo),
		b.DriverName,
		b.Date,
		docs.pickup,
		docs.delivery,
		docs.broker,
		b.ConditionCodes,
		b.Remarks,
		docs.signatures,
		b.TotalAmount,
		b.TotalCollected,
		b.DueAmount,
		b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		if isPgError(err, pgUniqueViolation) {
			return duplicateWorkOrder(b.WorkOrderNo)
		}
		r.logger.Error("Failed to update bill of lading", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to update bill of lading: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: b.ID.String()}
	}

	if _, err := r.querier.Exec(ctx, `DELETE FROM bol_vehicles WHERE bol_id = $1`, b.ID); err != nil {
		r.logger.Error("Failed to clear vehicles", "id", b.ID.String(), "error", err)
		return fmt.Errorf("failed to clear vehicles: %w", err)
	}
	return r.insertVehicles(ctx, b.ID, b.Vehicles)
}

func (r *BOLRepository) UpdateBalances(ctx context.Context, id uuid.UUID, totalCollected, dueAmount decimal.Decimal) error {
	query := `
		UPDATE bills_of_lading
		SET total_collected = $1, due_amount = $2, updated_at = $3
		WHERE id = $4
	`
	result, err := r.querier.Exec(ctx, query, totalCollected, dueAmount, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update balances", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update balances: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: id.String()}
	}
	return nil
}

func (r *BOLRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.querier.Exec(ctx, `DELETE FROM bills_of_lading WHERE id = $1`, id)
	if err != nil {
		if isPgError(err, pgForeignKeyViolation) {
			return shared.ConflictError{Resource: shared.ResourceBillOfLading, ID: id.String(), Reason: "has transactions"}
		}
		r.logger.Error("Failed to delete bill of lading", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete bill of lading: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NotFoundError{Resource: shared.ResourceBillOfLading, Key: id.String()}
	}
	return nil
}

// Pending runs a new query on every iteration, so results always reflect the
// latest committed state.
func (r *BOLRepository) Pending(ctx context.Context) iter.Seq2[*bol.WorkOrder, error] {
	query := `
		SELECT id, work_order_no, driver_name, bol_date, total_amount, total_collected, due_amount
		FROM bills_of_lading
		WHERE due_amount > 0
		ORDER BY created_at ASC, id
	`

	return func(yield func(*bol.WorkOrder, error) bool) {
		rows, err := r.querier.Query(ctx, query)
		if err != nil {
			r.logger.Error("Failed to query pending work orders", "error", err)
			yield(nil, fmt.Errorf("failed to query pending work orders: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var wo bol.WorkOrder
			var workOrderNo *string
			if err := rows.Scan(
				&wo.BOLID,
				&workOrderNo,
				&wo.DriverName,
				&wo.Date,
				&wo.TotalAmount,
				&wo.TotalCollected,
				&wo.DueAmount,
			); err != nil {
				yield(nil, fmt.Errorf("failed to scan pending work order: %w", err))
				return
			}
			wo.WorkOrderNo = derefString(workOrderNo)
			if !yield(&wo, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("error iterating over pending work orders: %w", err))
		}
	}
}

// Summarize aggregates bills dated within [from, to]
func (r *BOLRepository) Summarize(ctx context.Context, from, to time.Time) (*bol.Summary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_collected), 0),
			COALESCE(SUM(due_amount), 0),
			COUNT(*) FILTER (WHERE due_amount <= 0),
			COUNT(*) FILTER (WHERE due_amount > 0 AND total_collected > 0),
			COUNT(*) FILTER (WHERE due_amount > 0 AND total_collected <= 0)
		FROM bills_of_lading
		WHERE bol_date >= $1 AND bol_date <= $2
	`

	s := &bol.Summary{From: from, To: to}
	var paid, partial, pending int64
	err := r.querier.QueryRow(ctx, query, from, to).Scan(
		&s.Count,
		&s.Billed,
		&s.Collected,
		&s.Outstanding,
		&paid,
		&partial,
		&pending,
	)
	if err != nil {
		r.logger.Error("Failed to summarize bills of lading", "error", err)
		return nil, fmt.Errorf("failed to summarize bills of lading: %w", err)
	}
	s.ByStatus = map[shared.PaymentStatus]int64{
		shared.PaymentStatusPaid:    paid,
		shared.PaymentStatusPartial: partial,
		shared.PaymentStatusPending: pending,
	}
	return s, nil
}

func (r *BOLRepository) AddRevision(ctx context.Context, rev *bol.AmountRevision) error {
	query := `
		INSERT INTO bol_amount_revisions (id, bol_id, previous_total, new_total, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.querier.Exec(ctx, query,
		rev.ID,
		rev.BOLID,
		rev.PreviousTotal,
		rev.NewTotal,
		rev.ChangedBy,
		rev.ChangedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record amount revision", "bol_id", rev.BOLID.String(), "error", err)
		return fmt.Errorf("failed to record amount revision: %w", err)
	}
	return nil
}

func (r *BOLRepository) Revisions(ctx context.Context, bolID uuid.UUID) ([]*bol.AmountRevision, error) {
	query := `
		SELECT id, bol_id, previous_total, new_total, changed_by, changed_at
		FROM bol_amount_revisions
		WHERE bol_id = $1
		ORDER BY changed_at ASC
	`

	rows, err := r.querier.Query(ctx, query, bolID)
	if err != nil {
		r.logger.Error("Failed to list amount revisions", "bol_id", bolID.String(), "error", err)
		return nil, fmt.Errorf("failed to list amount revisions: %w", err)
	}
	defer rows.Close()

	revisions := []*bol.AmountRevision{}
	for rows.Next() {
		var rev bol.AmountRevision
		if err := rows.Scan(&rev.ID, &rev.BOLID, &rev.PreviousTotal, &rev.NewTotal, &rev.ChangedBy, &rev.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan amount revision: %w", err)
		}
		revisions = append(revisions, &rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over amount revisions: %w", err)
	}
	return revisions, nil
}

func (r *BOLRepository) vehicles(ctx context.Context, bolID uuid.UUID) ([]bol.Vehicle, error) {
	query := `
		SELECT year, make, model, vin, mileage, price
		FROM bol_vehicles
		WHERE bol_id = $1
		ORDER BY position
	`

	rows, err := r.querier.Query(ctx, query, bolID)
	if err != nil {
		r.logger.Error("Failed to load vehicles", "bol_id", bolID.String(), "error", err)
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []bol.Vehicle{}
	for rows.Next() {
		var v bol.Vehicle
		if err := rows.Scan(&v.Year, &v.Make, &v.Model, &v.VIN, &v.Mileage, &v.Price); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *BOLRepository) insertVehicles(ctx context.Context, bolID uuid.UUID, vehicles []bol.Vehicle) error {
	query := `
		INSERT INTO bol_vehicles (bol_id, position, year, make, model, vin, mileage, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, v := range vehicles {
		if _, err := r.querier.Exec(ctx, query, bolID, i, v.Year, v.Make, v.Model, v.VIN, v.Mileage, v.Price); err != nil {
			r.logger.Error("Failed to insert vehicle", "bol_id", bolID.String(), "position", i, "error", err)
			return fmt.Errorf("failed to insert vehicle: %w", err)
		}
	}
	return nil
}

type descriptiveDocs struct {
	pickup, delivery, broker, signatures []byte
}

func marshalDescriptive(b *bol.BillOfLading) (descriptiveDocs, error) {
	var docs descriptiveDocs
	var err error
	if docs.pickup, err = json.Marshal(b.Pickup); err != nil {
		return docs, fmt.Errorf("failed to encode pickup: %w", err)
	}
	if docs.delivery, err = json.Marshal(b.Delivery); err != nil {
		return docs, fmt.Errorf("failed to encode delivery: %w", err)
	}
	if docs.broker, err = json.Marshal(b.Broker); err != nil {
		return docs, fmt.Errorf("failed to encode broker: %w", err)
	}
	if docs.signatures, err = json.Marshal(b.Signatures); err != nil {
		return docs, fmt.Errorf("failed to encode signatures: %w", err)
	}
	return docs, nil
}

func scanBOL(row pgx.Row) (*bol.BillOfLading, error) {
	var b bol.BillOfLading
	var workOrderNo *string
	var docs descriptiveDocs
	err := row.Scan(
		&b.ID,
		&workOrderNo,
		&b.DriverName,
		&b.Date,
		&docs.pickup,
		&docs.delivery,
		&docs.broker,
		&b.ConditionCodes,
		&b.Remarks,
		&docs.signatures,
		&b.TotalAmount,
		&b.TotalCollected,
		&b.DueAmount,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.WorkOrderNo = derefString(workOrderNo)

	for _, d := range []struct {
		raw []byte
		dst any
	}{
		{docs.pickup, &b.Pickup},
		{docs.delivery, &b.Delivery},
		{docs.broker, &b.Broker},
		{docs.signatures, &b.Signatures},
	} {
		if len(d.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(d.raw, d.dst); err != nil {
			return nil, fmt.Errorf("failed to decode descriptive fields: %w", err)
		}
	}
	return &b, nil
}

func duplicateWorkOrder(workOrderNo string) error {
	return shared.ConflictError{
		Resource: shared.ResourceWorkOrder,
		ID:       workOrderNo,
		Reason:   "work order number already exists",
	}
}
