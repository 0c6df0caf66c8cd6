// Package lifecycle advances session statuses on a timer. Sessions move
// SCHEDULED -> ACTIVE when their start time passes and ACTIVE ->
// COMPLETED when start time plus duration passes. The transitions
// themselves are conditional updates inside the store, so a sweep tick
// is idempotent and overlapping ticks cannot double-apply.
package lifecycle

import (
	"context"
	"log"
	"time"
)

// Store is the slice of the session store the sweeper needs.
type Store interface {
	ActivateDue(ctx context.Context, now time.Time) (int64, error)
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs the status sweep on a fixed interval. Stop prevents
// future ticks without interrupting one already in flight. Tick
// failures are logged and never stop the loop.
type Sweeper struct {
	store    Store
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New returns a sweeper ticking at the given interval (minimum one
// second, to guard against a zeroed config).
func New(store Store, interval time.Duration) *Sweeper {
	if interval < time.Second {
		interval = time.Second
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine. One immediate
// sweep runs at startup so sessions due while the server was down do
// not wait a full interval.
func (s *Sweeper) Start() {
	go func() {
		defer close(s.done)
		s.sweepOnce()
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-t.C:
				s.sweepOnce()
			}
		}
	}()
}

// Stop shuts the loop down and waits for any in-flight tick to finish.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if err := Sweep(ctx, s.store, time.Now().UTC()); err != nil {
		log.Printf("sweep: %v", err)
	}
}

// Sweep runs a single tick against the store: first activations, then
// completions. A session whose whole lifetime already passed reaches
// COMPLETED after two ticks, which keeps each transition explicit.
// Exported so tests and one-shot maintenance can drive it directly.
func Sweep(ctx context.Context, store Store, now time.Time) error {
	activated, err := store.ActivateDue(ctx, now)
	if err != nil {
		return err
	}
	completed, err := store.CompleteElapsed(ctx, now)
	if err != nil {
		return err
	}
	if activated > 0 || completed > 0 {
		log.Printf("sweep: activated=%d completed=%d", activated, completed)
	}
	return nil
}
