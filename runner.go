// runner.go - multi-core scheduling: one host goroutine per Core,
// collected with errgroup so the first fatal model failure on any
// core stops the whole run.
//
// License: GPLv3 or later

package espresso

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// InterruptCheck is an external collaborator: it is invoked whenever
// a Core's Interrupt flag is observed set, may block the calling
// goroutine, and is responsible for clearing the flag if it serviced
// the interrupt.
type InterruptCheck func(c *Core)

// Config configures a Runner.
type Config struct {
	// InterruptCheck is shared across every core; nil clears the
	// interrupt flag without any external action.
	InterruptCheck InterruptCheck
}

// Runner owns a fixed set of cores and advances them all in parallel,
// one host goroutine per Core: each emulated PowerPC thread is a host
// OS thread. Nothing here synchronizes access to an individual Core;
// only GuestMemory's atomic compare-and-swap is shared state between
// them.
type Runner struct {
	cores  []*Core
	config Config
}

// NewRunner returns a Runner driving cores, indexing each Core's
// CoreIndex field to its position in the slice (the field the
// bridge-call opcode uses to detect a host-initiated migration).
func NewRunner(cores []*Core, config Config) *Runner {
	for i, c := range cores {
		c.CoreIndex = i
	}
	return &Runner{cores: cores, config: config}
}

// Cores returns the Runner's cores in index order.
func (r *Runner) Cores() []*Core { return r.cores }

// Run launches every core's Resume loop concurrently and blocks until
// all of them reach CallbackAddr or one reports a fault. It returns
// the first FaultError observed, if any; ctx cancellation does not
// stop an in-flight Resume (the core model has no cooperative yield
// point besides the interrupt check), but a canceled context prevents
// Run from being called again productively.
func (r *Runner) Run(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for _, core := range r.cores {
		core := core
		g.Go(func() error {
			return core.Resume(r.config.InterruptCheck)
		})
	}
	return g.Wait()
}

// AdvanceTimeBase increments every core's 64-bit time base by delta.
// Real hardware shares one time base across all cores; this Runner
// keeps one copy per Core (see core.go) and is the sole writer, so
// tests can step it deterministically instead of reading the host
// monotonic clock.
func (r *Runner) AdvanceTimeBase(delta uint64) {
	for _, c := range r.cores {
		tb := uint64(c.TBU)<<32 | uint64(c.TBL)
		tb += delta
		c.TBU = uint32(tb >> 32)
		c.TBL = uint32(tb)
	}
}
