package engine

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"metricsgate/exporter"
	"metricsgate/internal/config"
	"metricsgate/internal/logging"
	"metricsgate/internal/transport"
	"metricsgate/internal/workload"
	"metricsgate/registry"
)

// Bootstrap wires collectors, the health server, the sample workload and the
// exporter. On failure everything set up so far is torn down again; the
// exporter itself cannot be stopped, so it is started last.
func Bootstrap(ctx context.Context, cfg config.Config) (_ *Engine, err error) {
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	reg := registry.Default()

	var undo []func()
	defer func() {
		if err != nil {
			for i := len(undo) - 1; i >= 0; i-- {
				undo[i]()
			}
		}
	}()

	// 1. stock collectors
	register := func(c prometheus.Collector) error {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("collectors: %w", err)
		}
		undo = append(undo, func() { reg.Unregister(c) })
		return nil
	}
	if cfg.Collectors.Go {
		if err := register(collectors.NewGoCollector()); err != nil {
			return nil, err
		}
	}
	if cfg.Collectors.Process {
		if err := register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, err
		}
	}

	// 2. health server, bound before the exporter so it can report NOT_SERVING first
	var health *transport.Server
	if cfg.Health.Listen != "" {
		srv, err := transport.StartServer(cfg.Health.Listen)
		if err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
		health = srv
		undo = append(undo, srv.Stop)
	}

	// 3. sample workload instruments
	var tasks *workload.Tasks
	if cfg.Demo.Enabled {
		t, err := workload.NewTasks(reg)
		if err != nil {
			return nil, fmt.Errorf("workload: %w", err)
		}
		tasks = t
		undo = append(undo, t.Unregister)
	}

	// 4. exporter
	addr, err := exporter.Start(cfg.Listen)
	if err != nil {
		return nil, err
	}
	if health != nil {
		health.SetServing(true)
	}
	if tasks != nil {
		go tasks.Run(ctx, cfg.Demo.Interval)
	}

	return &Engine{
		addr:   addr,
		health: health,
	}, nil
}
