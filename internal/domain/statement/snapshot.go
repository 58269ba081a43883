// Package statement builds the read-only ledger snapshot handed to the document renderer.
package statement

import (
	"fmt"
	"time"

	"github.com/idealtransport/bol-ledger/internal/domain/bol"
	"github.com/idealtransport/bol-ledger/internal/domain/ledger"
	"github.com/idealtransport/bol-ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Snapshot is a bill of lading with its line items and full payment history
type Snapshot struct {
	BOL               *bol.BillOfLading    `json:"bol"`
	LineItems         []bol.Vehicle        `json:"line_items"`
	Entries           []*ledger.Entry      `json:"entries"`
	PaymentStatus     shared.PaymentStatus `json:"payment_status"`
	PaymentPercentage decimal.Decimal      `json:"payment_percentage"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// New assembles a snapshot. Entries must be in creation order.
func New(b *bol.BillOfLading, entries []*ledger.Entry) *Snapshot {
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	return &Snapshot{
		BOL:               b,
		LineItems:         b.Vehicles,
		Entries:           entries,
		PaymentStatus:     b.PaymentStatus(),
		PaymentPercentage: b.PaymentPercentage(),
		GeneratedAt:       time.Now().UTC(),
	}
}

// Version orders snapshots of the same bill; it grows with every payment
func (s *Snapshot) Version() int64 {
	return int64(len(s.Entries))
}

// Verify checks the bill's balances against its line items and ledger history
func (s *Snapshot) Verify() error {
	if err := s.BOL.CheckBalances(); err != nil {
		return fmt.Errorf("bill of lading %s: %w", s.BOL.ID, err)
	}

	collected := ledger.Sum(s.Entries)
	if !collected.Equal(s.BOL.TotalCollected) {
		return fmt.Errorf("bill of lading %s: ledger sum %s does not match total collected %s",
			s.BOL.ID, collected, s.BOL.TotalCollected)
	}

	for _, e := range s.Entries {
		if e.BOLID != s.BOL.ID {
			return fmt.Errorf("ledger entry %s belongs to bill of lading %s", e.ID, e.BOLID)
		}
		if !e.CollectedAmount.IsPositive() {
			return fmt.Errorf("ledger entry %s has non-positive amount %s", e.ID, e.CollectedAmount)
		}
		if e.DueAmount.IsNegative() {
			return fmt.Errorf("ledger entry %s has negative due amount %s", e.ID, e.DueAmount)
		}
	}
	return nil
}
