// Package metrics backs the broker engine's counters (C7 packet
// accounting: requests seen, cache hits, forwards, broadcasts, SDR
// partial-forgets, drops) with real Prometheus collectors, registered
// under a caller-supplied prometheus.Registerer.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Counter is a monotonically increasing count, backed by a
// prometheus.Counter.
type Counter interface {
	Inc()
	Add(delta float64)
}

type counter struct {
	prom prometheus.Counter
}

func newCounter(name string, reg prometheus.Registerer) (Counter, error) {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "Copernica broker counter: " + name,
	})
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return &counter{prom: c}, nil
}

func (c *counter) Inc()             { c.prom.Inc() }
func (c *counter) Add(delta float64) { c.prom.Add(delta) }

// Registry is a named collection of broker counters, each registered
// against an underlying prometheus.Registerer exactly once.
type Registry interface {
	NewCounter(name string) Counter
	GetCounter(name string) (Counter, error)
}

type registry struct {
	mu       sync.RWMutex
	prom     prometheus.Registerer
	counters map[string]Counter
}

// NewRegistry wraps reg as a Registry. A nil reg defaults to a fresh
// prometheus.NewRegistry(), so callers that don't care about scraping
// (tests, one-off tools) don't need to wire one up.
func NewRegistry(reg prometheus.Registerer) Registry {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &registry{prom: reg, counters: make(map[string]Counter)}
}

// NewCounter creates and registers a new counter under name. Panics on
// a duplicate Prometheus registration, which would indicate a
// programming error (two engines sharing one registry under the same
// counter name), not a runtime condition callers should recover from.
func (r *registry) NewCounter(name string) Counter {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := newCounter(name, r.prom)
	if err != nil {
		panic(fmt.Sprintf("metrics: registering counter %q: %v", name, err))
	}
	r.counters[name] = c
	return c
}

// GetCounter returns a previously registered counter by name.
func (r *registry) GetCounter(name string) (Counter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.counters[name]
	if !ok {
		return nil, fmt.Errorf("counter %q not found", name)
	}
	return c, nil
}
