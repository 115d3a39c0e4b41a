package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the Sweeper checks for idle sessions.
const DefaultSweepInterval = 5 * time.Minute

// Sweeper periodically evicts idle sessions from a Store. It is owned by
// whoever constructs the store and ticks on the store's clock.
type Sweeper struct {
	store    *Store
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper returns a stopped Sweeper for s.
func NewSweeper(s *Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{store: s, interval: interval}
}

// Start launches the sweep loop. It is a no-op if already running. The loop
// stops when ctx is cancelled or Stop is called; either way the Sweeper can
// be started again.
func (w *Sweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)
}

// release forgets the loop identified by done so a later Start can run a
// new one. Stop may already have done so.
func (w *Sweeper) release(done chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != done {
		return
	}
	w.cancel()
	w.cancel, w.done = nil, nil
}

// running reports whether a sweep loop is active.
func (w *Sweeper) running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

// Stop halts the loop and waits for it to exit. Safe to call more than once.
func (w *Sweeper) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer w.release(done)
	clock := w.store.Clock()
	t := clock.NewTicker(w.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			if n := w.store.Sweep(clock.Now()); n > 0 {
				slog.Info("store: swept idle sessions", "count", n)
			}
		}
	}
}
