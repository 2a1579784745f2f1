package base

import (
	"fmt"
	"log"
	"os"
)

// Logger is the pluggable logging interface every component in this module
// holds a reference to, grounded on pebble's internal/base.Logger
// (internal/base/logger.go). Hosting applications supply their own
// implementation; the engine never writes to stdout/stderr directly.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// DefaultLogger logs through the stdlib log package, the same default
// pebble ships.
type DefaultLogger struct{}

func (DefaultLogger) Infof(format string, args ...interface{}) {
	_ = log.Output(2, "INFO: "+fmt.Sprintf(format, args...))
}

func (DefaultLogger) Errorf(format string, args ...interface{}) {
	_ = log.Output(2, "ERROR: "+fmt.Sprintf(format, args...))
}

func (DefaultLogger) Fatalf(format string, args ...interface{}) {
	_ = log.Output(2, "FATAL: "+fmt.Sprintf(format, args...))
	os.Exit(1)
}

// NopLogger discards everything; useful in tests that assert on returned
// errors rather than log output.
type NopLogger struct{}

func (NopLogger) Infof(string, ...interface{})  {}
func (NopLogger) Errorf(string, ...interface{}) {}
func (NopLogger) Fatalf(string, ...interface{}) {}
