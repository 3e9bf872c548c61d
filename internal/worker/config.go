// Package worker runs the background jobs that keep monitored UV results
// current: fix ingestion from Pub/Sub and the periodic sweep.
package worker

import "time"

// Job types carried in JobMessage.JobType.
const (
	JobLocationFix = "location_fix"
	JobSweep       = "sweep"
	JobHealthCheck = "health_check"
)

// SweepConfig holds configuration for the sweep job.
type SweepConfig struct {
	// Interval between periodic sweeps.
	// Default: 10 minutes
	Interval time.Duration

	// Concurrency is the number of concurrent fix lookups.
	// Default: 4
	Concurrency int

	// Timeout bounds each fix lookup.
	// Default: 5 seconds
	Timeout time.Duration

	// RunTimeout bounds a whole sweep.
	// Default: 1 minute
	RunTimeout time.Duration
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Interval:    10 * time.Minute,
		Concurrency: 4,
		Timeout:     5 * time.Second,
		RunTimeout:  time.Minute,
	}
}

// withDefaults fills zero fields from DefaultSweepConfig.
func (c SweepConfig) withDefaults() SweepConfig {
	def := DefaultSweepConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = def.RunTimeout
	}
	return c
}
