// Package progress estimates upload progress while a request is outstanding.
package progress

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/jask/copiloto/internal/config"
)

// Estimator emits randomized progress increments after randomized delays.
type Estimator struct {
	FirstDelayMin time.Duration
	FirstDelayMax time.Duration
	MinDelay      time.Duration
	MaxDelay      time.Duration
	MinStep       float64
	MaxStep       float64
	// Seed makes the sequence reproducible when non-zero.
	Seed uint64
}

// FromConfig builds an Estimator from upload settings.
func FromConfig(c config.ProgressConfig) Estimator {
	return Estimator{
		FirstDelayMin: c.FirstDelayMin,
		FirstDelayMax: c.FirstDelayMax,
		MinDelay:      c.MinDelay,
		MaxDelay:      c.MaxDelay,
		MinStep:       c.MinStep,
		MaxStep:       c.MaxStep,
	}
}

// Task is a running estimator. Increments arrive on C until the task is
// cancelled, after which C is closed.
type Task struct {
	C <-chan float64

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start launches the estimator goroutine bound to ctx.
func (e Estimator) Start(ctx context.Context) *Task {
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan float64)
	t := &Task{C: ch, cancel: cancel, done: make(chan struct{})}

	rng := e.rng()
	go func() {
		defer close(t.done)
		defer close(ch)
		delay := between(rng, e.FirstDelayMin, e.FirstDelayMax)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			inc := e.MinStep + rng.Float64()*(e.MaxStep-e.MinStep)
			select {
			case <-ctx.Done():
				return
			case ch <- inc:
			}
			timer.Reset(between(rng, e.MinDelay, e.MaxDelay))
		}
	}()
	return t
}

// Cancel stops the task and waits for its goroutine to exit. It is safe to
// call more than once and on a nil Task.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		t.cancel()
		<-t.done
	})
}

// Done is closed once the goroutine has exited.
func (t *Task) Done() <-chan struct{} { return t.done }

// Advance adds inc to current without going past limit.
func Advance(current, inc, limit float64) float64 {
	next := current + inc
	if next >= limit {
		return limit
	}
	return next
}

func (e Estimator) rng() *rand.Rand {
	seed := e.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func between(rng *rand.Rand, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rng.Int64N(int64(hi-lo)))
}
