package check

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/koltyakov/pgindexhealth/internal/catalog"
	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/logging"
	"github.com/koltyakov/pgindexhealth/internal/model"
	"github.com/koltyakov/pgindexhealth/internal/stats"
)

// HostSource lists the members of a cluster. *connection.Cluster implements it.
type HostSource interface {
	Connections() []connection.Connection
}

// ExecutorFactory builds the executor for a diagnostic on a host.
type ExecutorFactory func(d diagnostic.Diagnostic, conn connection.Connection) HostExecutor

type cacheKey struct {
	id   diagnostic.ID
	host connection.HostKey
}

// Orchestrator runs diagnostics against the current topology. Roles are
// resolved on every call; executors are cached per (diagnostic, host).
type Orchestrator struct {
	source      HostSource
	resolver    connection.RoleResolver
	registry    *diagnostic.Registry
	factory     ExecutorFactory
	logger      *zap.Logger
	callTimeout time.Duration
	statsReset  bool
	now         func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]HostExecutor
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// WithRoleResolver replaces the default recovery probe.
func WithRoleResolver(r connection.RoleResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithRegistry replaces the built-in catalog.
func WithRegistry(r *diagnostic.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithExecutorFactory replaces the SQL-backed executors.
func WithExecutorFactory(f ExecutorFactory) Option {
	return func(o *Orchestrator) { o.factory = f }
}

// WithCallTimeout bounds every RunDiagnostic call. Zero keeps only the
// caller's deadline.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithStatsResetLogging toggles the per-host statistics age line logged before
// runtime cluster-wide diagnostics. On by default.
func WithStatsResetLogging(enabled bool) Option {
	return func(o *Orchestrator) { o.statsReset = enabled }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator wires an orchestrator over source.
func NewOrchestrator(source HostSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:     source,
		resolver:   connection.PrimaryDeterminer{},
		registry:   diagnostic.Default(),
		logger:     zap.NewNop(),
		statsReset: true,
		now:        time.Now,
		cache:      make(map[cacheKey]HostExecutor),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = o.sqlExecutor
	}
	return o
}

func (o *Orchestrator) sqlExecutor(d diagnostic.Diagnostic, conn connection.Connection) HostExecutor {
	return NewHostCheck(d, conn, catalog.Queries{}, catalog.Mapper{}, o.logger)
}

// Registry is the catalog in use.
func (o *Orchestrator) Registry() *diagnostic.Registry { return o.registry }

// Topology resolves the current primary and replicas.
func (o *Orchestrator) Topology(ctx context.Context) (connection.Topology, error) {
	return connection.ResolveTopology(ctx, o.source.Connections(), o.resolver)
}

// RunDiagnostic runs id against the cluster as its policy dictates. Any host
// failure fails the whole call; partial results are never returned.
func (o *Orchestrator) RunDiagnostic(ctx context.Context, id diagnostic.ID, sc model.SchemaContext, filter exclusion.Predicate) ([]model.DbObject, error) {
	d, err := o.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = exclusion.AcceptAll
	}
	if o.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
	}

	log := o.logger.With(zap.String("diagnostic", string(id)), zap.Stringer("policy", d.Policy))

	o.transition(log, StateResolvingTopology)
	topo, err := o.Topology(ctx)
	if err != nil {
		return nil, err
	}

	o.transition(log, StateDispatching)
	var result []model.DbObject
	switch d.Policy {
	case diagnostic.PrimaryOnly:
		result, err = o.executor(d, topo.Primary).Run(ctx, sc, filter)
		if err != nil {
			return nil, err
		}
		o.transition(log, StateMerging)

	case diagnostic.AcrossCluster:
		perHost, err := o.dispatch(ctx, d, topo.All(), sc, filter)
		if err != nil {
			return nil, err
		}
		o.transition(log, StateMerging)
		result = d.Combiner.Combine(perHost)

	default:
		return nil, fmt.Errorf("diagnostic %s: unsupported policy %s", id, d.Policy)
	}

	o.transition(log, StateDone, zap.Int("findings", len(result)), zap.Int("hosts", topo.Size()))
	return result, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, d diagnostic.Diagnostic, conns []connection.Connection, sc model.SchemaContext, filter exclusion.Predicate) ([][]model.DbObject, error) {
	perHost := make([][]model.DbObject, len(conns))
	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range conns {
		i, conn := i, conn // per-iteration copies; go directive is 1.21
		exec := o.executor(d, conn)
		g.Go(func() error {
			if d.Runtime && o.statsReset {
				stats.LogResetAge(gctx, conn, o.logger, o.now())
			}
			res, err := exec.Run(gctx, sc, filter)
			if err != nil {
				return err
			}
			perHost[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return perHost, nil
}

func (o *Orchestrator) executor(d diagnostic.Diagnostic, conn connection.Connection) HostExecutor {
	key := cacheKey{id: d.ID, host: conn.Host().Key()}

	o.mu.Lock()
	defer o.mu.Unlock()
	if exec, ok := o.cache[key]; ok {
		return exec
	}
	exec := o.factory(d, conn)
	o.cache[key] = exec
	return exec
}

func (o *Orchestrator) transition(log *zap.Logger, s State, fields ...zap.Field) {
	log.Debug("orchestrator state", append([]zap.Field{zap.Stringer("state", s)}, fields...)...)
}

// Run is RunDiagnostic with findings asserted to T, the diagnostic's result type.
func Run[T model.DbObject](ctx context.Context, o *Orchestrator, id diagnostic.ID, sc model.SchemaContext, filter exclusion.Predicate) ([]T, error) {
	objs, err := o.RunDiagnostic(ctx, id, sc, filter)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		v, ok := obj.(T)
		if !ok {
			var want T
			return nil, fmt.Errorf("diagnostic %s: finding of type %T is not %T", id, obj, want)
		}
		out = append(out, v)
	}
	return out, nil
}
