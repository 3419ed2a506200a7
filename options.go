package slotpool

import "time"

// Option configures a pool at construction time.
type Option[T any] func(*Pool[T])

// WithClose registers a destructor invoked on every evicted object. Errors
// it returns are logged and suppressed so eviction always completes.
func WithClose[T any](fn CloseFunc[T]) Option[T] {
	return func(p *Pool[T]) {
		p.closeFn = fn
	}
}

// WithBorrowCheck registers a health check applied to available objects
// before they are handed to a borrower. Rejected objects are evicted and the
// borrow retries with the next available slot.
func WithBorrowCheck[T any](fn HealthCheck[T]) Option[T] {
	return func(p *Pool[T]) {
		p.borrowCheck = fn
	}
}

// WithReturnCheck registers a health check applied when an object is
// returned. Rejected objects are evicted instead of becoming available.
func WithReturnCheck[T any](fn HealthCheck[T]) Option[T] {
	return func(p *Pool[T]) {
		p.returnCheck = fn
	}
}

// WithWaitTimeout bounds how long a borrow waits for admission before
// failing with errs.CodeExhausted. Without it, borrows wait until the
// caller's context is done. The duration must be positive; New rejects the
// configuration otherwise.
func WithWaitTimeout[T any](d time.Duration) Option[T] {
	return func(p *Pool[T]) {
		p.waitTimeout = d
		p.waitSet = true
	}
}
