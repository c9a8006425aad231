// Package registry wraps a Prometheus registry behind a single mutual-exclusion
// lock so a background scraper and application goroutines can share it.
//
// Individual instrument updates (Counter.Inc, Gauge.Set, ...) are already atomic
// and need no lock. Use Handle.Update when several instruments must move
// together and a scrape must never observe only part of the change.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrPoisoned is returned by every locked operation once a previous holder of
// the lock panicked.
var ErrPoisoned = errors.New("registry: lock poisoned")

// Registry is what a Handle guards. *prometheus.Registry satisfies it.
type Registry interface {
	prometheus.Registerer
	prometheus.Gatherer
}

type Handle struct {
	mu       sync.Mutex
	reg      Registry
	poisoned bool

	// first collector panic seen during the current Gather
	collectPanic atomic.Pointer[error]
}

// New returns a handle around a fresh, empty prometheus.Registry.
func New() *Handle {
	return Wrap(prometheus.NewRegistry())
}

// Wrap guards a caller-supplied registry. All further access to reg must go
// through the returned handle; collectors registered on reg directly are not
// protected against panics.
func Wrap(reg Registry) *Handle {
	return &Handle{reg: reg}
}

// lock acquires the mutex and refuses to hand it out once poisoned.
func (h *Handle) lock() error {
	h.mu.Lock()
	if h.poisoned {
		h.mu.Unlock()
		return ErrPoisoned
	}
	return nil
}

func (h *Handle) guard(c prometheus.Collector) *guarded {
	return &guarded{Collector: c, panicked: &h.collectPanic}
}

// Register adds c behind a panic guard. A collector that panics while being
// collected fails that Gather and poisons the handle.
func (h *Handle) Register(c prometheus.Collector) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()

	err := h.reg.Register(h.guard(c))
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if g, ok := are.ExistingCollector.(*guarded); ok {
			are.ExistingCollector = g.Collector
		}
		are.NewCollector = c
		return are
	}
	return err
}

// MustRegister panics on the first registration error, like
// prometheus.MustRegister. A panic raised here does not poison the handle.
func (h *Handle) MustRegister(cs ...prometheus.Collector) {
	for _, c := range cs {
		if err := h.Register(c); err != nil {
			panic(err)
		}
	}
}

func (h *Handle) Unregister(c prometheus.Collector) bool {
	if err := h.lock(); err != nil {
		return false
	}
	defer h.mu.Unlock()
	// the registry matches collectors by their descriptors, so a fresh guard
	// around c identifies the one Register stored
	return h.reg.Unregister(h.guard(c))
}

// Update runs fn while holding the lock. If fn panics the handle is poisoned
// and the panic propagates to the caller.
func (h *Handle) Update(fn func()) error {
	if err := h.lock(); err != nil {
		return err
	}
	defer h.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			h.poisoned = true
			panic(r)
		}
	}()
	fn()
	return nil
}

// Gather takes a point-in-time snapshot of every registered instrument. A
// gatherer error yields no snapshot at all. A panic, in the gatherer or in a
// collector added through Register, poisons the handle and is reported as an
// error wrapping ErrPoisoned.
func (h *Handle) Gather() (snap *Snapshot, err error) {
	if err := h.lock(); err != nil {
		return nil, err
	}
	defer h.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			h.poisoned = true
			snap, err = nil, fmt.Errorf("%w: gather panicked: %v", ErrPoisoned, r)
		}
	}()

	h.collectPanic.Store(nil)
	mfs, err := h.reg.Gather()
	if p := h.collectPanic.Swap(nil); p != nil {
		h.poisoned = true
		return nil, fmt.Errorf("%w: %v", ErrPoisoned, *p)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: gather: %w", err)
	}
	return newSnapshot(mfs), nil
}

func (h *Handle) Poisoned() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.poisoned
}
