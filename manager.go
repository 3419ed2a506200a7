package slotpool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coachpo/slotpool/errs"
	"github.com/coachpo/slotpool/observability"
)

const (
	shutdownGrace    = 5 * time.Second
	drainConcurrency = 4
)

// Stats is a point-in-time snapshot of a pool's slot states.
type Stats struct {
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	Free       int    `json:"free"`
	Available  int    `json:"available"`
	CheckedOut int    `json:"checked_out"`
}

// Drainable is the slice of the pool API the manager needs: identity, full
// eviction, and stats. *Pool[T] satisfies it for any T.
type Drainable interface {
	Name() string
	EvictAll(ctx context.Context) error
	Stats() Stats
}

// Manager coordinates named pools, providing registration, stats reporting,
// and graceful shutdown for all of them at once.
type Manager struct {
	mu           sync.RWMutex
	pools        map[string]Drainable
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewManager constructs an empty manager ready for pool registration.
func NewManager() *Manager {
	m := new(Manager)
	m.pools = make(map[string]Drainable)
	m.shutdownCh = make(chan struct{})
	return m
}

// Register adds a pool under its own name. Registration fails once Shutdown
// has begun or when the name is already taken.
func (m *Manager) Register(p Drainable) error {
	if p == nil {
		return errs.New("manager", errs.CodeInvalidConfig, errs.WithMessage("pool must be non-nil"))
	}
	name := strings.TrimSpace(p.Name())
	if name == "" {
		return errs.New("manager", errs.CodeInvalidConfig, errs.WithMessage("pool name must be non-empty"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.shutdownCh:
		return errs.New(name, errs.CodeUnavailable, errs.WithMessage("manager shutdown in progress"))
	default:
	}

	if _, exists := m.pools[name]; exists {
		return errs.New(name, errs.CodeInvalidConfig, errs.WithMessage("pool already registered"))
	}
	m.pools[name] = p
	return nil
}

// Lookup returns the registered pool with the given name.
func (m *Manager) Lookup(name string) (Drainable, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pools[name]
	return p, ok
}

// Stats snapshots every registered pool, sorted by name.
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	pools := make([]Drainable, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.RUnlock()

	stats := make([]Stats, 0, len(pools))
	for _, p := range pools {
		stats = append(stats, p.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// WriteStats encodes the stats snapshot as JSON to w without HTML escaping.
func (m *Manager) WriteStats(w io.Writer) error {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(m.Stats()); err != nil {
		return fmt.Errorf("encode pool stats: %w", err)
	}
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write pool stats: %w", err)
	}
	return nil
}

// Shutdown drains every registered pool, blocking until their outstanding
// borrows return or ctx expires (a 5 second grace is applied when ctx has no
// deadline). Pools that fail to drain are logged with any acquisition stacks
// a debug build captured; their errors are aggregated into one structured
// log entry and the returned error. Registration is refused from the first
// call onward.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, shutdownGrace)
	}
	if cancel != nil {
		defer cancel()
	}

	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
	})

	m.mu.RLock()
	pools := make([]Drainable, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.RUnlock()

	var drainMu sync.Mutex
	var drainErrs []error
	drainers := concpool.New().WithMaxGoroutines(drainConcurrency)
	for _, p := range pools {
		drainers.Go(func() {
			if err := p.EvictAll(ctx); err != nil {
				m.logOutstanding(p)
				drainMu.Lock()
				drainErrs = append(drainErrs, fmt.Errorf("drain %s: %w", p.Name(), err))
				drainMu.Unlock()
			}
		})
	}
	drainers.Wait()

	return observability.AggregateErrors("manager shutdown", drainErrs,
		observability.Field{Key: "pools", Value: len(pools)})
}

func (m *Manager) logOutstanding(p Drainable) {
	stats := p.Stats()
	observability.Log().Error("pool drain incomplete",
		observability.Field{Key: "pool", Value: stats.Name},
		observability.Field{Key: "checked_out", Value: stats.CheckedOut},
	)
	reporter, ok := p.(interface{ activeStacks() []string })
	if !ok {
		return
	}
	for _, stack := range reporter.activeStacks() {
		observability.Log().Error("leak candidate",
			observability.Field{Key: "pool", Value: stats.Name},
			observability.Field{Key: "stack", Value: stack},
		)
	}
}
