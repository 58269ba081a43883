package statement

import (
	"context"

	"github.com/google/uuid"
)

// Repository stores the latest projected snapshot per bill of lading
type Repository interface {
	// Save upserts s unless a snapshot with an equal or higher version is
	// already stored. It reports whether s was written.
	Save(ctx context.Context, s *Snapshot) (bool, error)
	Get(ctx context.Context, bolID uuid.UUID) (*Snapshot, error)
}
