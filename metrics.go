package slotpool

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "slotpool"

const (
	evictReasonBorrowCheck = "borrow_check"
	evictReasonReturnCheck = "return_check"
	evictReasonEvictAll    = "evict_all"
)

// poolMetrics publishes per-pool instruments through the global meter
// provider. When instrument creation fails the pool degrades to no
// instrumentation rather than refusing to start.
type poolMetrics struct {
	attrs     metric.MeasurementOption
	borrows   metric.Int64Counter
	returns   metric.Int64Counter
	generates metric.Int64Counter
	evictions metric.Int64Counter
	timeouts  metric.Int64Counter
	ok        bool
}

func newPoolMetrics(name, id string, snapshot func() (free, available, checkedOut int64)) *poolMetrics {
	m := &poolMetrics{
		attrs: metric.WithAttributes(
			attribute.String("pool", name),
			attribute.String("pool_id", id),
		),
	}
	meter := otel.Meter(meterName)

	var err error
	if m.borrows, err = meter.Int64Counter("slotpool_borrows_total",
		metric.WithDescription("Objects handed to borrowers"),
		metric.WithUnit("{borrow}"),
	); err != nil {
		return &poolMetrics{}
	}
	if m.returns, err = meter.Int64Counter("slotpool_returns_total",
		metric.WithDescription("Objects returned healthy and made available again"),
		metric.WithUnit("{return}"),
	); err != nil {
		return &poolMetrics{}
	}
	if m.generates, err = meter.Int64Counter("slotpool_generated_total",
		metric.WithDescription("Objects created by the generate callback"),
		metric.WithUnit("{object}"),
	); err != nil {
		return &poolMetrics{}
	}
	if m.evictions, err = meter.Int64Counter("slotpool_evictions_total",
		metric.WithDescription("Objects closed and discarded, labeled by reason"),
		metric.WithUnit("{object}"),
	); err != nil {
		return &poolMetrics{}
	}
	if m.timeouts, err = meter.Int64Counter("slotpool_exhausted_total",
		metric.WithDescription("Borrows that timed out waiting for admission"),
		metric.WithUnit("{borrow}"),
	); err != nil {
		return &poolMetrics{}
	}

	if _, err = meter.Int64ObservableGauge("slotpool_slots_free",
		metric.WithDescription("Slots never populated or drained"),
		metric.WithUnit("{slot}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			free, _, _ := snapshot()
			observer.Observe(free, m.attrs)
			return nil
		}),
	); err != nil {
		return &poolMetrics{}
	}
	if _, err = meter.Int64ObservableGauge("slotpool_slots_available",
		metric.WithDescription("Populated slots not currently checked out"),
		metric.WithUnit("{slot}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			_, available, _ := snapshot()
			observer.Observe(available, m.attrs)
			return nil
		}),
	); err != nil {
		return &poolMetrics{}
	}
	if _, err = meter.Int64ObservableGauge("slotpool_slots_in_use",
		metric.WithDescription("Slots currently checked out by borrowers"),
		metric.WithUnit("{slot}"),
		metric.WithInt64Callback(func(_ context.Context, observer metric.Int64Observer) error {
			_, _, checkedOut := snapshot()
			observer.Observe(checkedOut, m.attrs)
			return nil
		}),
	); err != nil {
		return &poolMetrics{}
	}

	m.ok = true
	return m
}

func (m *poolMetrics) borrowed() {
	if m.ok {
		m.borrows.Add(context.Background(), 1, m.attrs)
	}
}

func (m *poolMetrics) returned() {
	if m.ok {
		m.returns.Add(context.Background(), 1, m.attrs)
	}
}

func (m *poolMetrics) generated() {
	if m.ok {
		m.generates.Add(context.Background(), 1, m.attrs)
	}
}

func (m *poolMetrics) evicted(reason string) {
	if m.ok {
		m.evictions.Add(context.Background(), 1, m.attrs,
			metric.WithAttributes(attribute.String("reason", reason)))
	}
}

func (m *poolMetrics) exhausted() {
	if m.ok {
		m.timeouts.Add(context.Background(), 1, m.attrs)
	}
}
