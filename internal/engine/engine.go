package engine

import (
	"context"

	"metricsgate/internal/logging"
	"metricsgate/internal/transport"
)

// Engine owns everything Bootstrap started except the exporter, which has no
// stop and lives until the process exits.
type Engine struct {
	addr   string
	health *transport.Server
}

// MetricsAddr is the address the exporter bound.
func (e *Engine) MetricsAddr() string { return e.addr }

// Run blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if e.health == nil {
		<-ctx.Done()
		return nil
	}

	go func() {
		<-ctx.Done()
		e.health.Stop()
	}()

	logging.L().Info("health server listening", "addr", e.health.Addr())
	return e.health.Serve()
}
