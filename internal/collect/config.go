// Package collect gathers server context for every member of a resolved
// topology so reports can show what each finding was measured against.
//
// For each host it reads:
//   - server version, current database and current user
//   - superuser and pg_monitor membership
//   - whether pg_stat_statements is installed
//   - when cumulative statistics were last reset
//
// Collection is best effort. A failed probe is recorded on the host and never
// fails the run.
package collect

import (
	"errors"
	"time"
)

// Default configuration values.
const (
	// DefaultQueryTimeout bounds each individual probe.
	DefaultQueryTimeout = 5 * time.Second

	// MaxQueryTimeout is the largest accepted per-probe timeout.
	MaxQueryTimeout = time.Minute
)

// Config holds the configuration for the collector.
type Config struct {
	// QueryTimeout bounds each probe. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// Validate checks that the configuration is valid.
func (c Config) Validate() error {
	if c.QueryTimeout < 0 {
		return errors.New("query timeout must not be negative")
	}
	if c.QueryTimeout > MaxQueryTimeout {
		return errors.New("query timeout exceeds maximum of 1 minute")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.QueryTimeout == 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	return c
}
