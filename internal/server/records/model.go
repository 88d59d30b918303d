// Package records stores best time-trial runs: one row per
// (user, vehicle, course), holding the fastest accepted run and the id
// under which its replay blob is keyed.
package records

import (
	"time"

	"github.com/google/uuid"
)

// Record is a persisted best run. ID is stable for the lifetime of the
// (user, vehicle, course) slot; improving the time updates the row in
// place and the replay blob is overwritten under the same id.
type Record struct {
	ID            uuid.UUID
	UserID        int32
	VehicleID     uuid.UUID
	CourseID      uuid.UUID
	ReplayVersion int32
	TotalTicks    int32
	CreatedAt     time.Time
}

// Filter narrows a record listing. Nil fields do not constrain.
type Filter struct {
	UserID    *int32
	VehicleID *uuid.UUID
	CourseID  *uuid.UUID
}

// Empty reports whether the filter constrains nothing.
func (f Filter) Empty() bool {
	return f.UserID == nil && f.VehicleID == nil && f.CourseID == nil
}

// UpsertResult reports what a conditional upsert did to the slot.
type UpsertResult struct {
	ID uuid.UUID
	// Improved is true when the submission now holds the slot, either
	// as a brand new record or by displacing a slower one.
	Improved bool
	// Inserted is true only when the slot did not exist before.
	Inserted bool
}
