// Package arbiter wraps the deterministic replay simulator consulted to
// prove that an uploaded time trial is self-consistent. The simulator is a
// foreign, CPU-bound component with a hard internal step cap; Pool keeps
// its invocations off the request-serving goroutines.
package arbiter

import "fmt"

// SimResult is the outcome of a full consistency re-derivation.
// ElapsedTicks is the length of the re-simulated run; ExpectedTicks is the
// length the replay itself claims. The two counts are derived
// independently, so their agreement proves the replay reproduces a
// legitimate, non-tampered run.
type SimResult struct {
	ElapsedTicks  int32
	ExpectedTicks int32
}

// Consistent reports whether the replay reproduced a legitimate run:
// both tick counts strictly positive and equal.
func (r SimResult) Consistent() bool {
	return r.ElapsedTicks > 0 && r.ElapsedTicks == r.ExpectedTicks
}

// ReplayInfo is the cheap metadata form: header extraction only, no
// re-simulation. Used on read paths where validity is not being
// re-established.
type ReplayInfo struct {
	ReplayVersion   int32
	CheckpointCount int32
	TickCount       int32
}

// Arbiter is the simulation oracle. Implementations must be safe for
// concurrent use and are expected to return within the simulator's
// internal step cap rather than hang.
type Arbiter interface {
	// Simulate re-executes the replay to completion.
	Simulate(data []byte) (SimResult, error)
	// Inspect extracts replay metadata without re-deriving consistency.
	Inspect(data []byte) (ReplayInfo, error)
}

// Error carries the diagnostic reported by the simulator. The message
// originates from a foreign component and must not be shown to untrusted
// users verbatim.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("simulator error: %s", e.Message)
}
