package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"metricsgate/internal/config"
	"metricsgate/internal/engine"
	"metricsgate/internal/transport"
)

func main() {
	cfgPath := flag.String("config", "metricsgate.yml", "path to YAML config (optional)")
	printCfg := flag.Bool("print-config", false, "print the effective config and exit")
	probe := flag.String("probe", "", "check the health server at this address and exit")
	flag.Parse()

	if *probe != "" {
		os.Exit(runProbe(*probe))
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *printCfg {
		out, err := config.Dump(cfg)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := engine.Bootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	if err := e.Run(ctx); err != nil {
		log.Fatalf("engine: %v", err)
	}
}

func runProbe(addr string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ok, err := transport.Check(ctx, addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "exporter not serving")
		return 1
	}
	return 0
}
