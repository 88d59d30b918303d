package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/nfmw/ttserver/internal/common"
	"github.com/nfmw/ttserver/internal/logging"
	"github.com/nfmw/ttserver/internal/server/arbiter"
	"github.com/nfmw/ttserver/internal/server/blobstore"
	"github.com/nfmw/ttserver/internal/server/records"
)

// MaxReplayBytes caps uploaded replays. Larger payloads are refused
// before the oracle is consulted.
const MaxReplayBytes = 10 << 20

// sweepInterval paces background retries of blob writes that exhausted
// their inline attempts.
const sweepInterval = 30 * time.Second

// Oracle is the slice of the arbiter pool the pipeline uses.
type Oracle interface {
	Simulate(ctx context.Context, data []byte) (arbiter.SimResult, error)
	Inspect(ctx context.Context, data []byte) (arbiter.ReplayInfo, error)
}

// Recorder is the slice of the records repository the pipeline writes
// through.
type Recorder interface {
	UpsertIfNotSlower(ctx context.Context, candidate *records.Record) (records.UpsertResult, error)
}

// Result reports what happened to a submission. RecordID, Ticks, and
// ReplayVersion are meaningful for accepted outcomes and for
// RejectedSlower, where RecordID names the standing record.
type Result struct {
	Outcome       Outcome
	RecordID      uuid.UUID
	Ticks         int32
	ReplayVersion int32
	// Diagnostic carries the oracle's message for RejectedInvalid. It
	// originates from a foreign component; log it, do not display it.
	Diagnostic string
}

// Service runs untrusted replays through the acceptance pipeline.
type Service struct {
	oracle Oracle
	repo   Recorder
	blobs  blobstore.BlobStore
	sweep  *sweep
	logger logging.Logger
}

func NewService(oracle Oracle, repo Recorder, blobs blobstore.BlobStore, logger logging.Logger) *Service {
	logger = logger.With("module", "submissions")
	return &Service{
		oracle: oracle,
		repo:   repo,
		blobs:  blobs,
		sweep:  newSweep(blobs, logger, sweepInterval),
		logger: logger,
	}
}

// RunSweep drives background recovery of blob writes that failed after
// their ledger row committed. Call it once, on its own goroutine; it
// returns when ctx ends.
func (s *Service) RunSweep(ctx context.Context) {
	s.sweep.run(ctx)
}

// Submit validates an untrusted replay and, if it proves out and beats
// the stored time, makes it the new record for its slot.
//
// When the ledger row commits but the blob write fails even after
// retries, Submit returns the accepted Result together with
// ErrorBlobPending: the record stands, and the bytes land via the sweep.
func (s *Service) Submit(ctx context.Context, userID int32, vehicleID, courseID uuid.UUID, data []byte) (Result, error) {
	if len(data) > MaxReplayBytes {
		s.logger.Info(ctx, "replay rejected", "reason", "oversized", "size", len(data), "user_id", userID)
		return Result{Outcome: RejectedOversized}, nil
	}

	sim, err := s.oracle.Simulate(ctx, data)
	if err != nil {
		var arbErr *arbiter.Error
		switch {
		case errors.As(err, &arbErr):
			s.logger.Info(ctx, "replay rejected", "reason", "simulator", "diagnostic", arbErr.Message, "user_id", userID)
			return Result{Outcome: RejectedInvalid, Diagnostic: arbErr.Message}, nil
		case errors.Is(err, context.DeadlineExceeded):
			// The simulator ran past the defensive timeout. Whatever the
			// replay encodes, it is not a legitimate run.
			s.logger.Warn(ctx, "replay rejected", "reason", "simulation timeout", "user_id", userID)
			return Result{Outcome: RejectedInvalid, Diagnostic: "simulation timed out"}, nil
		default:
			return Result{}, fmt.Errorf("%w: simulating replay: %w", common.ErrorInternal, err)
		}
	}

	if !sim.Consistent() {
		s.logger.Info(ctx, "replay rejected", "reason", "inconsistent",
			"elapsed", sim.ElapsedTicks, "expected", sim.ExpectedTicks, "user_id", userID)
		return Result{Outcome: RejectedInvalid,
			Diagnostic: fmt.Sprintf("elapsed %d does not match expected %d", sim.ElapsedTicks, sim.ExpectedTicks)}, nil
	}

	info, err := s.oracle.Inspect(ctx, data)
	if err != nil {
		// The oracle is deterministic: a diagnostic here means the
		// replay's metadata is bad, which no retry of the same bytes can
		// fix.
		var arbErr *arbiter.Error
		if errors.As(err, &arbErr) {
			s.logger.Info(ctx, "replay rejected", "reason", "metadata", "diagnostic", arbErr.Message, "user_id", userID)
			return Result{Outcome: RejectedInvalid, Diagnostic: arbErr.Message}, nil
		}
		return Result{}, fmt.Errorf("%w: inspecting replay: %w", common.ErrorInternal, err)
	}

	upsert, err := s.repo.UpsertIfNotSlower(ctx, &records.Record{
		UserID:        userID,
		VehicleID:     vehicleID,
		CourseID:      courseID,
		ReplayVersion: info.ReplayVersion,
		TotalTicks:    sim.ElapsedTicks,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: recording time: %w", common.ErrorInternal, err)
	}

	result := Result{
		RecordID:      upsert.ID,
		Ticks:         sim.ElapsedTicks,
		ReplayVersion: info.ReplayVersion,
	}

	if !upsert.Improved {
		result.Outcome = RejectedSlower
		return result, nil
	}
	if upsert.Inserted {
		result.Outcome = AcceptedNew
	} else {
		result.Outcome = AcceptedImproved
	}

	// Hold the record's write lock across the blob write and the
	// pending-map transition, so an in-flight sweep write of superseded
	// bytes cannot land after this one.
	writeMu := s.sweep.lockFor(upsert.ID)
	writeMu.Lock()

	backoff := retry.WithMaxRetries(3, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.blobs.Write(ctx, upsert.ID, data); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		// The ledger already shows the new time. Hand the bytes to the
		// sweep and disclose the partial state to the caller.
		s.sweep.enqueue(upsert.ID, data)
		writeMu.Unlock()
		s.logger.Error(ctx, "replay blob write failed, queued for sweep",
			"record_id", upsert.ID, "user_id", userID, "error", err)
		return result, fmt.Errorf("%w: record %s stored, replay blob pending", common.ErrorBlobPending, upsert.ID)
	}

	// A stale queued write for this id must not overwrite what we just
	// stored.
	s.sweep.discard(upsert.ID)
	writeMu.Unlock()

	s.logger.Info(ctx, "replay accepted", "outcome", result.Outcome.String(),
		"record_id", upsert.ID, "ticks", result.Ticks, "user_id", userID)
	return result, nil
}
