package footprint

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/EsKaye/LilithOS-KernalInit/pkg/types"
)

// Runner is a long-lived background loop with a jittered sleep between
// ticks. Cancellation is cooperative: the loop checks its context at
// every wake-up and exits cleanly; Stop waits a bounded grace period
// and reports types.ErrPartialStop when the loop misses it.
type Runner struct {
	name string
	min  time.Duration
	max  time.Duration
	tick func(ctx context.Context) error
	log  *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
	done   chan struct{}
	rng    *rand.Rand
}

// NewRunner builds a runner that calls tick between jittered sleeps of
// [min, max].
func NewRunner(name string, min, max time.Duration, log *slog.Logger, tick func(ctx context.Context) error) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		name: name,
		min:  min,
		max:  max,
		tick: tick,
		log:  log,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start launches the loop. Idempotent: a running loop is left alone.
func (r *Runner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	r.cancel = cancel
	r.group = group
	r.done = done

	group.Go(func() error {
		defer close(done)
		r.loop(ctx)
		return nil
	})
}

// Running reports whether the loop is currently live.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Stop cancels the loop and waits up to grace for it to exit. A stopped
// or never-started runner returns nil immediately. On timeout the loop
// is treated as orphaned and types.ErrPartialStop is returned.
func (r *Runner) Stop(grace time.Duration) error {
	r.mu.Lock()
	cancel, group := r.cancel, r.group
	r.cancel = nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	joined := make(chan error, 1)
	go func() { joined <- group.Wait() }()
	select {
	case <-joined:
		return nil
	case <-time.After(grace):
		return types.ErrPartialStop
	}
}

// loop sleeps a jittered interval, then ticks, until cancelled.
func (r *Runner) loop(ctx context.Context) {
	r.log.Debug("loop started", "loop", r.name)
	for {
		timer := time.NewTimer(r.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Debug("loop stopped", "loop", r.name)
			return
		case <-timer.C:
		}
		if err := r.tick(ctx); err != nil {
			// Tick failures are logged and the loop keeps going.
			r.log.Warn("loop tick failed", "loop", r.name, "error", err)
		}
	}
}

// interval draws the next sleep from [min, max].
func (r *Runner) interval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.max <= r.min {
		return r.min
	}
	return r.min + time.Duration(r.rng.Int63n(int64(r.max-r.min)))
}
