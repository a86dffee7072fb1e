// Package stats reads cumulative statistics metadata. Runtime diagnostics are
// only as good as the statistics behind them, so the age of the last reset is
// reported alongside their results.
package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/logging"
)

const lastResetSQL = "select stats_reset from pg_stat_database where datname = current_database()"

// LastResetTimestamp returns when statistics were last reset for the current
// database. ok is false when they never were.
func LastResetTimestamp(ctx context.Context, conn connection.Connection) (resetAt time.Time, ok bool, err error) {
	var ts *time.Time
	if err := conn.QueryRow(ctx, lastResetSQL).Scan(&ts); err != nil {
		return time.Time{}, false, fmt.Errorf("read stats_reset on %s: %w", conn.Host(), err)
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return *ts, true, nil
}

// ResetAgeMessage renders the reset age in whole days as of now.
func ResetAgeMessage(resetAt time.Time, ok bool, now time.Time) string {
	if !ok {
		return "Statistics have never been reset on this host"
	}
	days := int(now.Sub(resetAt).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return fmt.Sprintf("Last statistics reset on this host was %d days ago (%s)", days, resetAt.Format(time.RFC3339))
}

// LogResetAge logs the reset age of conn. Failures are logged and swallowed.
func LogResetAge(ctx context.Context, conn connection.Connection, logger *zap.Logger, now time.Time) {
	logger = logging.OrNop(logger)
	host := zap.String("host", conn.Host().String())

	resetAt, ok, err := LastResetTimestamp(ctx, conn)
	if err != nil {
		logger.Warn("Could not read statistics reset time", host, zap.String("error", logging.SanitizeError(err)))
		return
	}
	logger.Info(ResetAgeMessage(resetAt, ok, now), host)
}
