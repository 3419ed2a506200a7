// Package slotpool provides a bounded, concurrency-safe pool of reusable
// objects. Callers borrow an object, use it, and return it; the pool
// guarantees that at most a fixed number of objects exist at once and that
// expensive construction is amortized by reuse.
//
// Objects live in a fixed-capacity slot table. Each slot is either free
// (never populated, or drained), available (populated and idle), or checked
// out by exactly one borrower. Admission is controlled by a weighted
// semaphore sized to the capacity, so slot bookkeeping never has to reject a
// borrower: by the time it runs, a permit is already held and a free or
// available slot must exist.
//
// With is the supported entry point for ordinary use. It acquires a permit,
// borrows a slot, runs the caller's function, and returns the slot and
// permit in that order, on success, error, and panic alike.
package slotpool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/coachpo/slotpool/config"
	"github.com/coachpo/slotpool/errs"
	"github.com/coachpo/slotpool/observability"
)

// Generate produces a new pooled object. It is invoked only when a borrower
// holds a permit and no reusable object exists. Its error propagates to the
// borrower untouched; the slot it would have filled stays free.
type Generate[T any] func() (T, error)

// HealthCheck reports whether an object may remain pooled. A false result
// evicts the object.
type HealthCheck[T any] func(T) bool

// CloseFunc releases an evicted object. Failures are logged and suppressed;
// eviction completes regardless.
type CloseFunc[T any] func(T) error

type slotEntry[T any] struct {
	obj  T
	live bool
}

// Pool is a bounded pool of reusable objects of type T.
//
// The zero value is not usable; construct with New.
type Pool[T any] struct {
	name     string
	id       string
	capacity int

	generate    Generate[T]
	borrowCheck HealthCheck[T]
	returnCheck HealthCheck[T]
	closeFn     CloseFunc[T]
	waitTimeout time.Duration
	waitSet     bool

	// sem bounds the number of simultaneously checked-out slots. Weighted
	// serves waiters in FIFO order of Acquire calls.
	sem *semaphore.Weighted

	// mu guards entries, free, and avail. It is never held across generate,
	// a health check, or the borrower's function; close does run under it
	// during eviction.
	mu      sync.Mutex
	entries []slotEntry[T]
	free    []int
	avail   []int

	metrics *poolMetrics
	debug   *debugState
}

// New constructs a pool with the given name, capacity, and object factory.
// It fails fast with an invalid_config error when the name is empty, the
// capacity is not positive, generate is nil, or a configured wait timeout is
// not positive.
func New[T any](name string, capacity int, generate Generate[T], opts ...Option[T]) (*Pool[T], error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, errs.New(name, errs.CodeInvalidConfig, errs.WithMessage("name must be non-empty"))
	}
	if capacity < 1 {
		return nil, errs.New(trimmed, errs.CodeInvalidConfig,
			errs.WithMessage(fmt.Sprintf("capacity must be positive, got %d", capacity)))
	}
	if generate == nil {
		return nil, errs.New(trimmed, errs.CodeInvalidConfig, errs.WithMessage("generate must be provided"))
	}

	p := &Pool[T]{
		name:     trimmed,
		id:       uuid.NewString(),
		capacity: capacity,
		generate: generate,
		sem:      semaphore.NewWeighted(int64(capacity)),
		entries:  make([]slotEntry[T], capacity),
		free:     make([]int, 0, capacity),
		avail:    make([]int, 0, capacity),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.waitSet && p.waitTimeout <= 0 {
		return nil, errs.New(trimmed, errs.CodeInvalidConfig,
			errs.WithMessage(fmt.Sprintf("wait timeout must be positive, got %s", p.waitTimeout)))
	}
	// Seed in reverse so the first borrows fill slots 0, 1, 2, ...
	for idx := capacity - 1; idx >= 0; idx-- {
		p.free = append(p.free, idx)
	}
	p.debug = newDebugState(trimmed)
	p.metrics = newPoolMetrics(trimmed, p.id, func() (int64, int64, int64) {
		s := p.Stats()
		return int64(s.Free), int64(s.Available), int64(s.CheckedOut)
	})
	return p, nil
}

// FromSpec builds a pool from a parsed configuration entry, layering any
// additional options on top of the spec's capacity and wait timeout.
func FromSpec[T any](spec config.PoolSpec, generate Generate[T], opts ...Option[T]) (*Pool[T], error) {
	if spec.WaitTimeout != 0 {
		opts = append(opts, WithWaitTimeout[T](spec.WaitTimeout))
	}
	return New(spec.Name, spec.Capacity, generate, opts...)
}

// Name returns the pool name supplied at construction.
func (p *Pool[T]) Name() string { return p.name }

// ID returns the unique instance identifier used in logs and metrics.
func (p *Pool[T]) ID() string { return p.id }

// Capacity returns the immutable slot count.
func (p *Pool[T]) Capacity() int { return p.capacity }

// With acquires an admission permit (respecting the configured wait
// timeout), borrows an object, and invokes fn on it. The object is returned
// and the permit released before fn's error, if any, propagates — including
// when fn panics. Exhausted admission surfaces as an errs.CodeExhausted
// error carrying the configured timeout.
func (p *Pool[T]) With(ctx context.Context, fn func(T) error) error {
	if fn == nil {
		return errs.New(p.name, errs.CodeInvalidConfig, errs.WithMessage("fn must be non-nil"))
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.acquire(ctx); err != nil {
		return err
	}
	idx, obj, err := p.borrow()
	if err != nil {
		p.sem.Release(1)
		return err
	}
	defer func() {
		p.giveBack(idx)
		p.sem.Release(1)
	}()
	return fn(obj)
}

// WithResult is the result-returning form of Pool.With.
func WithResult[T, R any](ctx context.Context, p *Pool[T], fn func(T) (R, error)) (R, error) {
	var result R
	err := p.With(ctx, func(obj T) error {
		out, err := fn(obj)
		if err != nil {
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result, nil
}

// EvictAll blocks until every checked-out object has been returned, then
// closes and discards every pooled object, leaving all slots free and the
// pool ready for reuse. Close failures are logged, never returned; the only
// error is ctx expiring before outstanding borrows drain. Callers must
// ensure no permanently-held borrows exist.
func (p *Pool[T]) EvictAll(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.sem.Acquire(ctx, int64(p.capacity)); err != nil {
		return errs.New(p.name, errs.CodeUnavailable,
			errs.WithMessage("evict all: borrowers still outstanding"), errs.WithCause(err))
	}
	defer p.sem.Release(int64(p.capacity))

	// Holding every permit means no borrower can touch the table, but the
	// guard is taken anyway for consistency with the other bookkeeping paths.
	p.mu.Lock()
	defer p.mu.Unlock()
	p.avail = p.avail[:0]
	for idx := range p.entries {
		if p.entries[idx].live {
			p.evictSlotLocked(idx, evictReasonEvictAll)
		}
	}
	return nil
}

// acquire takes one admission permit, bounding the wait by the configured
// timeout when one is set.
func (p *Pool[T]) acquire(ctx context.Context) error {
	wait := ctx
	if p.waitTimeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, p.waitTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(wait, 1); err != nil {
		// Exhaustion is only the pool's own timeout firing. A deadline or
		// cancellation on the caller's context surfaces as that context's
		// error, never as exhaustion.
		if p.waitTimeout > 0 && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			p.metrics.exhausted()
			return errs.New(p.name, errs.CodeExhausted,
				errs.WithWait(p.waitTimeout),
				errs.WithMessage("admission timed out"),
				errs.WithCause(err))
		}
		return fmt.Errorf("slotpool %s: acquire: %w", p.name, err)
	}
	return nil
}

// borrow hands out a slot index and its object. The caller must already hold
// an admission permit, which is what guarantees a free or available slot.
func (p *Pool[T]) borrow() (int, T, error) {
	for {
		p.mu.Lock()
		if n := len(p.avail); n > 0 {
			idx := p.avail[n-1]
			p.avail = p.avail[:n-1]
			obj := p.entries[idx].obj
			p.mu.Unlock()

			if p.borrowCheck == nil || p.borrowCheck(obj) {
				p.debug.recordAcquire(idx)
				p.metrics.borrowed()
				return idx, obj, nil
			}
			p.mu.Lock()
			p.evictSlotLocked(idx, evictReasonBorrowCheck)
			p.mu.Unlock()
			continue
		}

		n := len(p.free)
		if n == 0 {
			// Cannot happen while the admission gate is sized to capacity.
			panic(errs.New(p.name, errs.CodeInternal,
				errs.WithMessage("no free or available slot while holding a permit")))
		}
		idx := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()

		obj, err := p.generate()
		if err != nil {
			p.mu.Lock()
			p.free = append(p.free, idx)
			p.mu.Unlock()
			var zero T
			return 0, zero, fmt.Errorf("slotpool %s: generate: %w", p.name, err)
		}
		p.mu.Lock()
		p.entries[idx] = slotEntry[T]{obj: obj, live: true}
		p.mu.Unlock()
		p.debug.recordAcquire(idx)
		p.metrics.generated()
		p.metrics.borrowed()
		return idx, obj, nil
	}
}

// giveBack returns the slot borrowed under idx, evicting it when the return
// health check rejects the object.
func (p *Pool[T]) giveBack(idx int) {
	p.mu.Lock()
	obj := p.entries[idx].obj
	p.mu.Unlock()

	healthy := p.returnCheck == nil || p.returnCheck(obj)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.debug.recordRelease(idx)
	if !healthy {
		p.evictSlotLocked(idx, evictReasonReturnCheck)
		return
	}
	p.avail = append(p.avail, idx)
	p.metrics.returned()
}

// evictSlotLocked closes and clears the slot, then files its index back under
// free. The guard must be held. The index must not be present in avail unless
// the caller is about to discard avail wholesale.
func (p *Pool[T]) evictSlotLocked(idx int, reason string) {
	entry := &p.entries[idx]
	if entry.live {
		if p.closeFn != nil {
			if err := p.closeFn(entry.obj); err != nil {
				observability.Log().Error("close callback failed",
					observability.Field{Key: "pool", Value: p.name},
					observability.Field{Key: "pool_id", Value: p.id},
					observability.Field{Key: "slot", Value: idx},
					observability.Field{Key: "error", Value: err.Error()},
				)
			}
		}
		p.debug.poison(any(entry.obj))
		var zero T
		entry.obj = zero
		entry.live = false
		p.metrics.evicted(reason)
	}
	p.removeAvailLocked(idx)
	p.free = append(p.free, idx)
}

func (p *Pool[T]) removeAvailLocked(idx int) {
	for i, candidate := range p.avail {
		if candidate == idx {
			p.avail = append(p.avail[:i], p.avail[i+1:]...)
			return
		}
	}
}

// Stats reports a point-in-time snapshot of slot states.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	free := len(p.free)
	available := len(p.avail)
	return Stats{
		Name:       p.name,
		Capacity:   p.capacity,
		Free:       free,
		Available:  available,
		CheckedOut: p.capacity - free - available,
	}
}

func (p *Pool[T]) activeStacks() []string {
	if p == nil {
		return nil
	}
	return p.debug.activeStacks()
}
