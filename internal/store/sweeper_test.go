package store

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type sweepRecorder struct {
	swept chan int
}

func (sweepRecorder) SessionCreated()       {}
func (r sweepRecorder) SessionsSwept(n int) { r.swept <- n }

func TestSweeper_EvictsOnTick(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	rec := sweepRecorder{swept: make(chan int, 1)}
	st := New(Options{IdleTimeout: 30 * time.Minute, Clock: fc, Observer: rec})
	sess := mustSession(t, st, "")

	w := NewSweeper(st, 5*time.Minute)
	w.Start(context.Background())
	defer w.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := fc.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("sweeper never created its ticker: %v", err)
	}

	fc.Advance(31 * time.Minute)
	select {
	case n := <-rec.swept:
		if n != 1 {
			t.Errorf("swept: got %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweep did not run after the clock advanced")
	}
	if _, ok := st.GetSession(sess.ID); ok {
		t.Error("idle session still present")
	}
}

func TestSweeper_StopIsIdempotent(t *testing.T) {
	st := New(Options{Clock: clockwork.NewFakeClockAt(base)})
	w := NewSweeper(st, 0)
	if w.interval != DefaultSweepInterval {
		t.Errorf("interval: got %v, want %v", w.interval, DefaultSweepInterval)
	}

	w.Stop() // never started
	w.Start(context.Background())
	w.Start(context.Background()) // already running
	w.Stop()
	w.Stop()
}

func TestSweeper_StopsWithContext(t *testing.T) {
	st := New(Options{Clock: clockwork.NewFakeClockAt(base)})
	w := NewSweeper(st, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	done := w.done
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not exit after context cancel")
	}
	w.Stop()
}

func TestSweeper_RestartsAfterContextCancel(t *testing.T) {
	fc := clockwork.NewFakeClockAt(base)
	rec := sweepRecorder{swept: make(chan int, 1)}
	st := New(Options{IdleTimeout: 30 * time.Minute, Clock: fc, Observer: rec})
	mustSession(t, st, "")
	w := NewSweeper(st, 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for w.running() {
		if time.Now().After(deadline) {
			t.Fatal("sweeper still marked running after context cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}

	w.Start(context.Background())
	defer w.Stop()
	if !w.running() {
		t.Fatal("Start after context cancel was a no-op")
	}

	waitCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	if err := fc.BlockUntilContext(waitCtx, 1); err != nil {
		t.Fatalf("restarted sweeper never created its ticker: %v", err)
	}
	fc.Advance(31 * time.Minute)
	select {
	case n := <-rec.swept:
		if n != 1 {
			t.Errorf("swept: got %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("restarted sweeper did not sweep")
	}
}
