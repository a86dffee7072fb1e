package main

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/koltyakov/pgindexhealth/internal/check"
	"github.com/koltyakov/pgindexhealth/internal/config"
	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// newBackOff builds the retry schedule. MaxAttempts counts the first try.
func newBackOff(ctx context.Context, rc config.RetryConfig) backoff.BackOffContext {
	eb := backoff.NewExponentialBackOff()
	if rc.InitialInterval > 0 {
		eb.InitialInterval = rc.InitialInterval
	}
	eb.MaxElapsedTime = 0 // bounded by attempts and ctx instead

	retries := 0
	if rc.MaxAttempts > 1 {
		retries = rc.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
}

func notifyRetry(logger *zap.Logger, what string) backoff.Notify {
	return func(err error, wait time.Duration) {
		logger.Warn("retrying after topology failure",
			zap.String("operation", what),
			zap.Duration("wait", wait),
			zap.Error(err))
	}
}

// retryTopology resolves the topology, retrying while no single primary is
// visible. Any other failure is returned at once.
func retryTopology(ctx context.Context, o *check.Orchestrator, rc config.RetryConfig, logger *zap.Logger) (connection.Topology, error) {
	var topo connection.Topology
	op := func() error {
		t, err := o.Topology(ctx)
		if err != nil {
			if herrors.IsTopologyError(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		topo = t
		return nil
	}
	err := backoff.RetryNotify(op, newBackOff(ctx, rc), notifyRetry(logger, "topology"))
	return topo, err
}

// evaluateWithRetry runs one diagnostic. A call that failed because of the
// cluster topology, such as a failover in progress, is repeated as a whole;
// diagnostic failures are final.
func evaluateWithRetry(ctx context.Context, o *check.Orchestrator, id diagnostic.ID, sc model.SchemaContext, filter exclusion.Predicate, rc config.RetryConfig, logger *zap.Logger) check.Result {
	var (
		res      check.Result
		attempts int
		elapsed  time.Duration
	)
	op := func() error {
		attempts++
		res = o.Evaluate(ctx, id, sc, filter)
		elapsed += res.Duration
		if res.Err != nil && herrors.IsTopologyError(res.Err) {
			return res.Err
		}
		return nil
	}
	_ = backoff.RetryNotify(op, newBackOff(ctx, rc), notifyRetry(logger, id.String()))

	res.Attempts = attempts
	res.Duration = elapsed
	return res
}
