package registry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultOnce   sync.Once
	defaultHandle *Handle
)

// Default returns the process-wide handle. It is created on first use around
// its own prometheus.Registry (not prometheus.DefaultRegisterer, which carries
// Go runtime collectors whose values move between scrapes) and is never
// released.
func Default() *Handle {
	defaultOnce.Do(func() {
		defaultHandle = Wrap(prometheus.NewRegistry())
	})
	return defaultHandle
}
