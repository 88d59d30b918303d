package submissions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/nfmw/ttserver/internal/logging"
	"github.com/nfmw/ttserver/internal/server/blobstore"
)

// pendingBlob is a replay whose ledger row committed but whose bytes did
// not reach the blob store. seq orders writes to the same record id so a
// later accepted run is never clobbered by an older pending one.
type pendingBlob struct {
	data []byte
	seq  uint64
}

// sweep retries failed blob writes in the background until they land.
//
// Blob writes for a record id are serialized through lockFor, shared with
// the foreground submission path: without it, a flush already inside
// Write could finish after a newer accepted run's write and leave stale
// bytes under a fresher ledger row.
type sweep struct {
	blobs    blobstore.BlobStore
	logger   logging.Logger
	interval time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]pendingBlob
	seq     uint64

	locks sync.Map // record id -> *sync.Mutex

	wake chan struct{}
}

func newSweep(blobs blobstore.BlobStore, logger logging.Logger, interval time.Duration) *sweep {
	return &sweep{
		blobs:    blobs,
		logger:   logger,
		interval: interval,
		pending:  make(map[uuid.UUID]pendingBlob),
		wake:     make(chan struct{}, 1),
	}
}

// lockFor returns the mutex serializing blob writes for the record.
// Both the foreground path and the flush loop must hold it around their
// Write calls and the matching pending-map transition.
func (s *sweep) lockFor(id uuid.UUID) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *sweep) enqueue(id uuid.UUID, data []byte) {
	s.mu.Lock()
	s.seq++
	s.pending[id] = pendingBlob{data: data, seq: s.seq}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// discard drops any pending entry for the id. Called after a successful
// foreground write, whose bytes are by then the ones the ledger row
// describes.
func (s *sweep) discard(id uuid.UUID) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *sweep) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// run drains the pending set until the context ends. Each pass retries
// every entry with exponential backoff; entries that still fail stay
// queued for the next tick.
func (s *sweep) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wake:
		case <-ticker.C:
		}
		s.flush(ctx)
	}
}

func (s *sweep) flush(ctx context.Context) {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID]pendingBlob, len(s.pending))
	for id, p := range s.pending {
		snapshot[id] = p
	}
	s.mu.Unlock()

	for id, p := range snapshot {
		if ctx.Err() != nil {
			return
		}

		writeMu := s.lockFor(id)
		writeMu.Lock()

		// Re-read under the write lock: a foreground write may have
		// discarded or superseded the entry since the snapshot. The
		// entry cannot change again while the lock is held, so the
		// bytes written below always match the ledger row.
		s.mu.Lock()
		current, ok := s.pending[id]
		s.mu.Unlock()
		if !ok || current.seq != p.seq {
			writeMu.Unlock()
			continue
		}

		backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := s.blobs.Write(ctx, id, current.data); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil {
			writeMu.Unlock()
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn(ctx, "replay blob still unwritable", "record_id", id, "error", err)
			continue
		}

		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()
		writeMu.Unlock()
		s.logger.Info(ctx, "pending replay blob recovered", "record_id", id)
	}
}
