package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"metricsgate/internal/config"
	"metricsgate/internal/transport"
	"metricsgate/registry"
)

func scrape(t *testing.T, addr string) string {
	t.Helper()
	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestBootstrap_ServesMetricsAndHealth(t *testing.T) {
	cfg := config.Config{
		Listen:     "127.0.0.1:0",
		Collectors: config.CollectorsCfg{Go: true},
		Health:     config.HealthCfg{Listen: "127.0.0.1:0"},
		Demo:       config.DemoCfg{Enabled: true, Interval: 10 * time.Millisecond},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e, err := Bootstrap(ctx, cfg)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	checkCtx, checkCancel := context.WithTimeout(ctx, 5*time.Second)
	defer checkCancel()
	ok, err := transport.Check(checkCtx, e.health.Addr())
	if err != nil || !ok {
		t.Fatalf("health: ok=%v err=%v", ok, err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for {
		body := scrape(t, e.MetricsAddr())
		if strings.Contains(body, "\ntasks ") && strings.Contains(body, "go_goroutines") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("workload or collectors missing from:\n%s", body)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestBootstrap_ExporterBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()

	cfg := config.Config{
		Listen: taken.Addr().String(),
		Health: config.HealthCfg{Listen: "127.0.0.1:0"},
	}
	if _, err := Bootstrap(context.Background(), cfg); err == nil {
		t.Fatal("expected Bootstrap to fail on an address in use")
	}
}

func TestRun_WithoutHealthWaitsForContext(t *testing.T) {
	e := &Engine{}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := e.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestBootstrap_FailureRollsBackEarlierSteps(t *testing.T) {
	// occupy the workload's "tasks" name so step 3 fails
	taken := prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks", Help: "Number of sample tasks completed"})
	err := registry.Default().Register(taken)
	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		t.Cleanup(func() { registry.Default().Unregister(taken) })
	case !errors.As(err, &are):
		t.Fatalf("Register: %v", err)
	}

	free, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	healthAddr := free.Addr().String()
	free.Close()

	cfg := config.Config{
		Listen:     "127.0.0.1:0",
		Collectors: config.CollectorsCfg{Process: true},
		Health:     config.HealthCfg{Listen: healthAddr},
		Demo:       config.DemoCfg{Enabled: true, Interval: time.Second},
	}
	if _, err := Bootstrap(context.Background(), cfg); err == nil {
		t.Fatal("expected Bootstrap to fail on a workload registration conflict")
	}

	ln, err := net.Listen("tcp", healthAddr)
	if err != nil {
		t.Fatalf("health listener still open after failure: %v", err)
	}
	ln.Close()

	pc := collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})
	if err := registry.Default().Register(pc); err != nil {
		t.Fatalf("process collector left registered after failure: %v", err)
	}
	registry.Default().Unregister(pc)
}
