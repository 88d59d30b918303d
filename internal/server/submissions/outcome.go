// Package submissions implements the replay intake pipeline: size gate,
// consistency proof against the simulation oracle, conditional ledger
// upsert, and blob persistence with background repair.
package submissions

// Outcome classifies what the pipeline did with a submission.
type Outcome int

const (
	// AcceptedNew claimed a previously empty (user, vehicle, course) slot.
	AcceptedNew Outcome = iota
	// AcceptedImproved displaced a slower or equal stored run.
	AcceptedImproved
	// RejectedSlower lost to a strictly faster stored run. Ledger and
	// blob are untouched.
	RejectedSlower
	// RejectedInvalid failed the consistency proof. Terminal: resending
	// the same bytes can never succeed.
	RejectedInvalid
	// RejectedOversized exceeded the size cap. The oracle is never
	// consulted for these.
	RejectedOversized
)

func (o Outcome) String() string {
	switch o {
	case AcceptedNew:
		return "accepted_new"
	case AcceptedImproved:
		return "accepted_improved"
	case RejectedSlower:
		return "rejected_slower"
	case RejectedInvalid:
		return "rejected_invalid"
	case RejectedOversized:
		return "rejected_oversized"
	default:
		return "unknown"
	}
}

// Accepted reports whether the submission now holds its slot.
func (o Outcome) Accepted() bool {
	return o == AcceptedNew || o == AcceptedImproved
}
