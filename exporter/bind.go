package exporter

import (
	"context"
	"errors"
	"net"
)

// lookupHost is swapped out by tests that need a fixed candidate list.
var lookupHost = net.DefaultResolver.LookupHost

// bind listens on the first address host resolves to that accepts a socket.
// An empty host or an IP literal is passed straight to net.Listen.
func bind(addr string) (net.Listener, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, &StartError{Op: "bind", Addr: addr, Err: err}
	}
	if host == "" || net.ParseIP(host) != nil {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, &StartError{Op: "bind", Addr: addr, Err: err}
		}
		return ln, nil
	}

	candidates, err := lookupHost(context.Background(), host)
	if err != nil {
		return nil, &StartError{Op: "resolve", Addr: addr, Err: err}
	}
	if len(candidates) == 0 {
		return nil, &StartError{Op: "resolve", Addr: addr, Err: errors.New("no addresses")}
	}
	ln, err := bindFirst(candidates, port)
	if err != nil {
		return nil, &StartError{Op: "bind", Addr: addr, Err: err}
	}
	return ln, nil
}

// bindFirst tries each candidate IP in order and returns the first listener.
// On total failure the last error is returned.
func bindFirst(candidates []string, port string) (net.Listener, error) {
	var lastErr error
	for _, ip := range candidates {
		ln, err := net.Listen("tcp", net.JoinHostPort(ip, port))
		if err == nil {
			return ln, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
