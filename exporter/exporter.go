// Package exporter serves a registry over HTTP for Prometheus to scrape.
//
// A started exporter runs on its own goroutine for the rest of the process.
// There is deliberately no Stop: the exporter is meant to live as long as the
// program it observes.
//
//	if _, err := exporter.Start("127.0.0.1:9091"); err != nil {
//		log.Fatal(err)
//	}
//	tasks := prometheus.NewCounter(prometheus.CounterOpts{Name: "tasks", Help: "tasks done"})
//	registry.Default().MustRegister(tasks)
package exporter

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"metricsgate/internal/logging"
	"metricsgate/registry"
)

// readHeaderTimeout keeps one stalled client from holding the only
// connection slot forever.
const readHeaderTimeout = 10 * time.Second

// Start serves the default registry on addr and returns the bound address.
func Start(addr string) (string, error) {
	return StartWithRegistry(addr, registry.Default())
}

// StartWithRegistry serves h on addr. addr is "host:port"; a host name is
// resolved and the first candidate address that binds wins. It returns once
// the socket is bound, with the address actually bound (useful with port 0).
func StartWithRegistry(addr string, h *registry.Handle) (string, error) {
	logging.L().Debug("starting metrics exporter", "addr", addr)
	if h == nil {
		return "", &StartError{Op: "spawn", Addr: addr, Err: errors.New("nil registry handle")}
	}
	ln, err := bind(addr)
	if err != nil {
		return "", err
	}
	return serve(ln, h), nil
}

// StartTCP is StartWithRegistry for an already resolved endpoint.
func StartTCP(addr *net.TCPAddr, h *registry.Handle) (string, error) {
	logging.L().Debug("starting metrics exporter", "addr", addr.String())
	if h == nil {
		return "", &StartError{Op: "spawn", Addr: addr.String(), Err: errors.New("nil registry handle")}
	}
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return "", &StartError{Op: "bind", Addr: addr.String(), Err: err}
	}
	return serve(ln, h), nil
}

// serve hands ln to a single goroutine. Only one connection is accepted at a
// time and each carries one request, so scrapes never overlap.
func serve(ln net.Listener, h *registry.Handle) string {
	actual := ln.Addr().String()
	srv := &http.Server{
		Handler:                      NewHandler(h),
		ReadHeaderTimeout:            readHeaderTimeout,
		ErrorLog:                     logging.StdLogger(slog.LevelWarn),
		DisableGeneralOptionsHandler: true, // "OPTIONS *" is routed like any other request
	}
	srv.SetKeepAlivesEnabled(false)

	go func() {
		err := srv.Serve(netutil.LimitListener(ln, 1))
		logging.L().Error("metrics exporter stopped", "addr", actual, "err", err)
	}()
	logging.L().Info("metrics exporter listening", "addr", actual, "path", MetricsPath)
	return actual
}
