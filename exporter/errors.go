package exporter

import "fmt"

// StartError reports why Start did not leave a server running.
// Op is "resolve", "bind" or "spawn".
type StartError struct {
	Op   string
	Addr string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("exporter: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }
