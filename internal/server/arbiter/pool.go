package arbiter

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool dispatches arbiter calls to a bounded worker capacity, sized
// independently of request concurrency, so a worst-case simulation cannot
// starve unrelated requests. It also applies a defensive timeout on top of
// the simulator's own step cap.
type Pool struct {
	arb     Arbiter
	workers *semaphore.Weighted
	timeout time.Duration
}

// NewPool wraps arb with a capacity of workers concurrent invocations.
// A timeout of zero disables the defensive per-call deadline.
func NewPool(arb Arbiter, workers int64, timeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{arb: arb, workers: semaphore.NewWeighted(workers), timeout: timeout}
}

// Simulate runs a full consistency re-derivation on pool capacity.
func (p *Pool) Simulate(ctx context.Context, data []byte) (SimResult, error) {
	var res SimResult
	err := p.run(ctx, func() error {
		var err error
		res, err = p.arb.Simulate(data)
		return err
	})
	if err != nil {
		return SimResult{}, err
	}
	return res, nil
}

// Inspect runs the cheap metadata query on pool capacity.
func (p *Pool) Inspect(ctx context.Context, data []byte) (ReplayInfo, error) {
	var info ReplayInfo
	err := p.run(ctx, func() error {
		var err error
		info, err = p.arb.Inspect(data)
		return err
	})
	if err != nil {
		return ReplayInfo{}, err
	}
	return info, nil
}

// run acquires worker capacity, executes fn on its own goroutine, and waits
// for completion or context expiry. A timed-out call abandons the wait only;
// the worker slot is released when the simulator actually returns, keeping
// capacity accounting correct.
func (p *Pool) run(ctx context.Context, fn func() error) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.workers.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.workers.Release(1)
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
