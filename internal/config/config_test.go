package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metricsgate.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9091" {
		t.Fatalf("want default listen, got %q", cfg.Listen)
	}
	if cfg.Log.Level != "info" || cfg.Demo.Interval != time.Second || cfg.SchemaVersion != SupportedSchema {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_MissingFileIsTolerated(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, `schema_version: v1
listen: 0.0.0.0:9100
log:
  level: debug
  json: true
collectors:
  go: true
health:
  listen: 127.0.0.1:7070
demo:
  enabled: true
  interval: 250ms
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9100" || cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Collectors.Go || cfg.Collectors.Process {
		t.Fatalf("unexpected collectors: %+v", cfg.Collectors)
	}
	if cfg.Health.Listen != "127.0.0.1:7070" {
		t.Fatalf("unexpected health listen %q", cfg.Health.Listen)
	}
	if !cfg.Demo.Enabled || cfg.Demo.Interval != 250*time.Millisecond {
		t.Fatalf("unexpected demo: %+v", cfg.Demo)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "listen: 127.0.0.1:9100\nlog:\n  level: info\n")
	t.Setenv("METRICSGATE_LISTEN", "127.0.0.1:9200")
	t.Setenv("METRICSGATE_LOG__LEVEL", "warn")
	t.Setenv("METRICSGATE_COLLECTORS__PROCESS", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:9200" || cfg.Log.Level != "warn" || !cfg.Collectors.Process {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoad_InvalidSchema(t *testing.T) {
	path := writeFile(t, "schema_version: v999\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid schema_version")
	}
}

func TestDump(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(string(out), "127.0.0.1:9091") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}

func TestDump_IntervalRoundTrips(t *testing.T) {
	cfg, err := Load(writeFile(t, "demo:\n  enabled: true\n  interval: 1500ms\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	out, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !strings.Contains(string(out), "interval: 1.5s") {
		t.Fatalf("interval not rendered as a duration:\n%s", out)
	}

	again, err := Load(writeFile(t, string(out)))
	if err != nil {
		t.Fatalf("Load dumped config: %v", err)
	}
	if again != cfg {
		t.Fatalf("round trip changed config:\nbefore %+v\nafter  %+v", cfg, again)
	}
}
