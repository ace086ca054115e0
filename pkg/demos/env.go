package demos

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ray-project/ray-demos/pkg/task"
)

// Logger is the logging surface demos receive. The CLI's structured
// logger satisfies it; tests can pass NopLogger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything. Useful in tests.
var NopLogger Logger = nopLogger{}

// Env is the per-run environment a demo executes in. Options carries
// free-form key=value settings from the CLI (with config-derived
// defaults filled in); Out receives the demo's human-readable results.
type Env struct {
	Pool    *task.Pool
	Logger  Logger
	Options map[string]string
	Out     io.Writer
}

// Option returns the named option, or def when unset.
func (e *Env) Option(key, def string) string {
	if v, ok := e.Options[key]; ok {
		return v
	}
	return def
}

// IntOption returns the named option parsed as an integer, or def when
// unset.
func (e *Env) IntOption(key string, def int) (int, error) {
	v, ok := e.Options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return n, nil
}

// FloatOption returns the named option parsed as a float, or def when
// unset.
func (e *Env) FloatOption(key string, def float64) (float64, error) {
	v, ok := e.Options[key]
	if !ok {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return f, nil
}

// BoolOption returns the named option parsed as a boolean, or def when
// unset.
func (e *Env) BoolOption(key string, def bool) (bool, error) {
	v, ok := e.Options[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %s: %w", key, err)
	}
	return b, nil
}

// DurationOption returns the named option parsed with time.ParseDuration,
// or def when unset.
func (e *Env) DurationOption(key string, def time.Duration) (time.Duration, error) {
	v, ok := e.Options[key]
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %s: %w", key, err)
	}
	return d, nil
}

// Printf writes formatted demo output to Out.
func (e *Env) Printf(format string, args ...any) {
	fmt.Fprintf(e.Out, format, args...)
}
