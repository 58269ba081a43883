// Package mongo holds the MongoDB read-model repositories.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/idealtransport/bol-ledger/internal/domain/statement"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// StatementCollectionName is the name of the statement collection in MongoDB
	StatementCollectionName = "bol_statements"
)

// StatementRepository implements the statement.Repository interface for MongoDB
type StatementRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewStatementRepository creates a new MongoDB statement repository
func NewStatementRepository(logger *slog.Logger, db *mongo.Database) statement.Repository {
	return &StatementRepository{
		db:     db,
		logger: logger,
	}
}

// Save replaces the stored snapshot only when s is newer. When the filter
// matches nothing the upsert inserts; a duplicate key error then means an
// equal or newer version is already stored.
func (r *StatementRepository) Save(ctx context.Context, s *statement.Snapshot) (bool, error) {
	collection := r.db.Collection(StatementCollectionName)

	doc, err := toDocument(s)
	if err != nil {
		return false, err
	}

	filter := bson.M{
		"_id":     doc.ID,
		"version": bson.M{"$lt": doc.Version},
	}

	_, err = collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Skipped stale statement snapshot",
				"bol_id", doc.ID,
				"version", doc.Version)
			return false, nil
		}
		r.logger.Error("Failed to save statement snapshot",
			"bol_id", doc.ID,
			"error", err)
		return false, fmt.Errorf("failed to save statement snapshot: %w", err)
	}

	return true, nil
}

// Get returns the latest projected snapshot of a bill
func (r *StatementRepository) Get(ctx context.Context, bolID uuid.UUID) (*statement.Snapshot, error) {
	collection := r.db.Collection(StatementCollectionName)

	var doc statementDocument
	err := collection.FindOne(ctx, bson.M{"_id": bolID.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shared.NotFoundError{Resource: shared.ResourceStatement, Key: bolID.String()}
		}
		r.logger.Error("Failed to get statement snapshot",
			"bol_id", bolID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get statement snapshot: %w", err)
	}

	return doc.toSnapshot()
}

type statementDocument struct {
	ID                string               `bson:"_id"`
	Version           int64                `bson:"version"`
	WorkOrderNo       string               `bson:"work_order_no,omitempty"`
	DriverName        string               `bson:"driver_name"`
	Date              time.Time            `bson:"date"`
	PickupName        string               `bson:"pickup_name,omitempty"`
	PickupCity        string               `bson:"pickup_city,omitempty"`
	DeliveryName      string               `bson:"delivery_name,omitempty"`
	DeliveryCity      string               `bson:"delivery_city,omitempty"`
	BrokerName        string               `bson:"broker_name,omitempty"`
	TotalAmount       primitive.Decimal128 `bson:"total_amount"`
	TotalCollected    primitive.Decimal128 `bson:"total_collected"`
	DueAmount         primitive.Decimal128 `bson:"due_amount"`
	PaymentStatus     string               `bson:"payment_status"`
	PaymentPercentage primitive.Decimal128 `bson:"payment_percentage"`
	LineItems         []lineItemDocument   `bson:"line_items"`
	Entries           []entryDocument      `bson:"entries"`
	CreatedBy         string               `bson:"created_by"`
	GeneratedAt       time.Time            `bson:"generated_at"`
}

type lineItemDocument struct {
	Year    string               `bson:"year"`
	Make    string               `bson:"make"`
	Model   string               `bson:"model"`
	VIN     string               `bson:"vin"`
	Mileage string               `bson:"mileage,omitempty"`
	Price   primitive.Decimal128 `bson:"price"`
}

type entryDocument struct {
	ID              string               `bson:"id"`
	Date            time.Time            `bson:"date"`
	WorkOrderNo     string               `bson:"work_order_no,omitempty"`
	CollectedAmount primitive.Decimal128 `bson:"collected_amount"`
	DueAmount       primitive.Decimal128 `bson:"due_amount"`
	PaymentType     string               `bson:"payment_type"`
	PickupLocation  string               `bson:"pickup_location,omitempty"`
	DropoffLocation string               `bson:"dropoff_location,omitempty"`
	Comments        string               `bson:"comments,omitempty"`
	UserID          string               `bson:"user_id"`
	CreatedAt       time.Time            `bson:"created_at"`
}

func toDocument(s *statement.Snapshot) (*statementDocument, error) {
	var c decimalCodec
	b := s.BOL
	doc := &statementDocument{
		ID:                b.ID.String(),
		Version:           s.Version(),
		WorkOrderNo:       b.WorkOrderNo,
		DriverName:        b.DriverName,
		Date:              b.Date,
		PickupName:        b.Pickup.Name,
		PickupCity:        b.Pickup.City,
		DeliveryName:      b.Delivery.Name,
		DeliveryCity:      b.Delivery.City,
		BrokerName:        b.Broker.Name,
		TotalAmount:       c.encode(b.TotalAmount),
		TotalCollected:    c.encode(b.TotalCollected),
		DueAmount:         c.encode(b.DueAmount),
		PaymentStatus:     string(s.PaymentStatus),
		PaymentPercentage: c.encode(s.PaymentPercentage),
		CreatedBy:         b.CreatedBy,
		GeneratedAt:       s.GeneratedAt,
		LineItems:         make([]lineItemDocument, 0, len(s.LineItems)),
		Entries:           make([]entryDocument, 0, len(s.Entries)),
	}
	for _, v := range s.LineItems {
		doc.LineItems = append(doc.LineItems, lineItemDocument{
			Year:    v.Year,
			Make:    v.Make,
			Model:   v.Model,
			VIN:     v.VIN,
			Mileage: v.Mileage,
			Price:   c.encode(v.Price),
		})
	}
	for _, e := range s.Entries {
		doc.Entries = append(doc.Entries, entryDocument{
			ID:              e.ID.String(),
			Date:            e.Date,
			WorkOrderNo:     e.WorkOrderNo,
			CollectedAmount: c.encode(e.CollectedAmount),
			DueAmount:       c.encode(e.DueAmount),
			PaymentType:     string(e.PaymentType),
			PickupLocation:  e.PickupLocation,
			DropoffLocation: e.DropoffLocation,
			Comments:        e.Comments,
			UserID:          e.UserID,
			CreatedAt:       e.CreatedAt,
		})
	}
	if c.err != nil {
		return nil, fmt.Errorf("failed to encode statement snapshot: %w", c.err)
	}
	return doc, nil
}

func (d *statementDocument) toSnapshot() (*statement.Snapshot, error) {
	var c decimalCodec
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid statement id %q: %w", d.ID, err)
	}

	b := &bol.BillOfLading{
		ID: id,
		Metadata: bol.Metadata{
			DriverName:  d.DriverName,
			Date:        d.Date,
			WorkOrderNo: d.WorkOrderNo,
			Pickup:      bol.Party{Name: d.PickupName, City: d.PickupCity},
			Delivery:    bol.Party{Name: d.DeliveryName, City: d.DeliveryCity},
			Broker:      bol.Broker{Name: d.BrokerName},
		},
		TotalAmount:    c.decode(d.TotalAmount),
		TotalCollected: c.decode(d.TotalCollected),
		DueAmount:      c.decode(d.DueAmount),
		CreatedBy:      d.CreatedBy,
	}
	for _, li := range d.LineItems {
		b.Vehicles = append(b.Vehicles, bol.Vehicle{
			Year:    li.Year,
			Make:    li.Make,
			Model:   li.Model,
			VIN:     li.VIN,
			Mileage: li.Mileage,
			Price:   c.decode(li.Price),
		})
	}

	entries := make([]*ledger.Entry, 0, len(d.Entries))
	for _, ed := range d.Entries {
		entryID, err := uuid.Parse(ed.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid ledger entry id %q: %w", ed.ID, err)
		}
		entries = append(entries, &ledger.Entry{
			ID:              entryID,
			BOLID:           id,
			Date:            ed.Date,
			WorkOrderNo:     ed.WorkOrderNo,
			CollectedAmount: c.decode(ed.CollectedAmount),
			DueAmount:       c.decode(ed.DueAmount),
			PaymentType:     ledger.PaymentType(ed.PaymentType),
			PickupLocation:  ed.PickupLocation,
			DropoffLocation: ed.DropoffLocation,
			Comments:        ed.Comments,
			UserID:          ed.UserID,
			CreatedAt:       ed.CreatedAt,
		})
	}

	if c.err != nil {
		return nil, fmt.Errorf("failed to decode statement snapshot: %w", c.err)
	}

	return &statement.Snapshot{
		BOL:               b,
		LineItems:         b.Vehicles,
		Entries:           entries,
		PaymentStatus:     shared.PaymentStatus(d.PaymentStatus),
		PaymentPercentage: c.decode(d.PaymentPercentage),
		GeneratedAt:       d.GeneratedAt,
	}, nil
}

// decimalCodec converts between decimal.Decimal and BSON Decimal128, keeping
// the first error
type decimalCodec struct {
	err error
}

func (c *decimalCodec) encode(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

func (c *decimalCodec) decode(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil && c.err == nil {
		c.err = err
	}
	return d
}
