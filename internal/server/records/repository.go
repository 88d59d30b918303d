package records

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// Find locates the record for an exact (user, vehicle, course) slot.
	Find(ctx context.Context, userID int32, vehicleID, courseID uuid.UUID) (*Record, error)
	// FilterList returns records matching every supplied filter field,
	// fastest first.
	FilterList(ctx context.Context, filter Filter) ([]*Record, error)
	// UpsertIfNotSlower atomically claims the (user, vehicle, course)
	// slot when the candidate ticks are less than or equal to the stored
	// ones, or when no record exists yet. The comparison happens inside
	// the database, so concurrent submissions cannot race past each
	// other. A slower candidate leaves the row untouched and reports
	// Improved=false with the standing record's id.
	UpsertIfNotSlower(ctx context.Context, candidate *Record) (UpsertResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
