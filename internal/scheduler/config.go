package scheduler

import (
	"time"

	"github.com/smallbiznis/frontdesk/internal/config"
)

// Config controls job intervals and batch sizes.
type Config struct {
	RunInterval time.Duration
	JobTimeout  time.Duration
	BatchSize   int
	// NoShowGrace is how long after the arrival instant an unpromoted
	// reservation keeps its rooms.
	NoShowGrace time.Duration
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 5 * time.Minute,
		JobTimeout:  30 * time.Second,
		BatchSize:   50,
		NoShowGrace: 24 * time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: time.Duration(cfg.SchedulerIntervalSeconds) * time.Second,
		NoShowGrace: time.Duration(cfg.NoShowGraceHours) * time.Hour,
		EnabledJobs: cfg.SchedulerJobs,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.NoShowGrace <= 0 {
		c.NoShowGrace = defaults.NoShowGrace
	}
	return c
}
