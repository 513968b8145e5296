package scheduler

import (
	"log/slog"
	"runtime"
)

// Config holds the tunable parameters of a Scheduler. The zero value is
// usable; defaults are applied by withDefaults.
type Config struct {
	// Log is the logger used to report failing batches.
	Log *slog.Logger
	// Workers is the maximum amount of batches executed concurrently by Run.
	// It defaults to GOMAXPROCS.
	Workers int
	// Metrics, if not nil, receives counters about scheduled and executed
	// ticks.
	Metrics *Metrics
}

func (c Config) withDefaults() Config {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}
