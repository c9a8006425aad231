package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var panicDesc = prometheus.NewDesc(
	"metricsgate_collector_panic",
	"A registered collector panicked while being described or collected.",
	nil, nil,
)

// guarded recovers panics from a collector. prometheus.Registry runs Describe
// and Collect on goroutines of its own, where a panic would take the process
// down instead of reaching Handle.Gather.
type guarded struct {
	prometheus.Collector
	panicked *atomic.Pointer[error]
}

func (g *guarded) Describe(ch chan<- *prometheus.Desc) {
	defer func() {
		if r := recover(); r != nil {
			ch <- prometheus.NewInvalidDesc(fmt.Errorf("describe panicked: %v", r))
		}
	}()
	g.Collector.Describe(ch)
}

func (g *guarded) Collect(ch chan<- prometheus.Metric) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("collect panicked: %v", r)
			g.panicked.CompareAndSwap(nil, &err)
			ch <- prometheus.NewInvalidMetric(panicDesc, err)
		}
	}()
	g.Collector.Collect(ch)
}
