// Package workload drives a small sample workload so a freshly deployed
// exporter has something to show.
package workload

import (
	"context"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"metricsgate/internal/logging"
	"metricsgate/registry"
)

type Tasks struct {
	completed prometheus.Counter
	inFlight  prometheus.Gauge
	duration  prometheus.Histogram
	h         *registry.Handle
}

// NewTasks registers the sample instruments on h.
func NewTasks(h *registry.Handle) (*Tasks, error) {
	t := &Tasks{
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tasks",
			Help: "Number of sample tasks completed",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tasks_in_flight",
			Help: "Sample tasks currently running",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "task_duration_seconds",
			Help:    "Duration of sample tasks",
			Buckets: prometheus.DefBuckets,
		}),
		h: h,
	}
	for i, c := range t.collectors() {
		if err := h.Register(c); err != nil {
			for _, done := range t.collectors()[:i] {
				h.Unregister(done)
			}
			return nil, err
		}
	}
	return t, nil
}

func (t *Tasks) collectors() []prometheus.Collector {
	return []prometheus.Collector{t.completed, t.inFlight, t.duration}
}

// Unregister removes the sample instruments from the handle.
func (t *Tasks) Unregister() {
	for _, c := range t.collectors() {
		t.h.Unregister(c)
	}
}

// Run completes one batch of tasks per tick until ctx is done.
func (t *Tasks) Run(ctx context.Context, every time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := t.step(); err != nil {
				logging.L().Error("workload: stopping", "err", err)
				return
			}
		}
	}
}

func (t *Tasks) step() error {
	n := 1 + rand.Intn(5)
	if err := t.h.Update(func() { t.inFlight.Add(float64(n)) }); err != nil {
		return err
	}

	took := make([]time.Duration, n)
	for i := range took {
		start := time.Now()
		work()
		took[i] = time.Since(start)
	}

	// A scrape sees either the whole batch or none of it.
	return t.h.Update(func() {
		t.completed.Add(float64(n))
		for _, d := range took {
			t.duration.Observe(d.Seconds())
		}
		t.inFlight.Sub(float64(n))
	})
}

// work stands in for one sample task.
func work() {
	time.Sleep(time.Duration(1+rand.Intn(10)) * time.Millisecond)
}
