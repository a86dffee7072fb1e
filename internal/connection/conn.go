package connection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/koltyakov/pgindexhealth/internal/logging"
)

// Connection is a live, role-agnostic handle to one cluster member.
// Implementations acquire a session per call and release it when the returned
// rows are closed.
type Connection interface {
	Host() Host
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool defaults. MinConns stays at zero so an idle tool holds no sessions.
const (
	DefaultPoolMaxConns        = 4
	DefaultPoolMinConns        = 0
	DefaultPoolMaxConnIdleTime = time.Minute
)

// PoolOptions tunes the per-host pgx pools.
type PoolOptions struct {
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
}

func (o PoolOptions) withDefaults() PoolOptions {
	if o.MaxConns <= 0 {
		o.MaxConns = DefaultPoolMaxConns
	}
	if o.MinConns < 0 {
		o.MinConns = DefaultPoolMinConns
	}
	if o.MinConns > o.MaxConns {
		o.MinConns = o.MaxConns
	}
	if o.MaxConnIdleTime <= 0 {
		o.MaxConnIdleTime = DefaultPoolMaxConnIdleTime
	}
	return o
}

// PoolConnection backs a Connection with a pgxpool.Pool.
type PoolConnection struct {
	host Host
	pool *pgxpool.Pool
}

// NewPoolConnection creates a pool for host. No session is opened until first use.
func NewPoolConnection(ctx context.Context, host Host, opts PoolOptions) (*PoolConnection, error) {
	opts = opts.withDefaults()

	cfg, err := pgxpool.ParseConfig(host.ConnString)
	if err != nil {
		return nil, invalid(host.ConnString, logging.SanitizeError(err))
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool for %s: %s", host, logging.SanitizeError(err))
	}
	return &PoolConnection{host: host, pool: pool}, nil
}

// Host returns the identity of the member behind the pool.
func (c *PoolConnection) Host() Host { return c.host }

// Query runs sql on a pooled session. The session returns to the pool when rows close.
func (c *PoolConnection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return c.pool.Query(ctx, sql, args...)
}

// QueryRow runs sql expecting at most one row.
func (c *PoolConnection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return c.pool.QueryRow(ctx, sql, args...)
}

// Close releases every pooled session.
func (c *PoolConnection) Close() {
	c.pool.Close()
}

// Cluster is the fixed set of member connections derived from one connection
// string. Roles are not stored here; see ResolveTopology.
type Cluster struct {
	conns  []Connection
	close  []func()
	logger *zap.Logger
}

// Open parses connString and creates one pool per distinct host.
func Open(ctx context.Context, connString string, opts PoolOptions, logger *zap.Logger) (*Cluster, error) {
	logger = logging.OrNop(logger)

	hosts, err := Hosts(connString)
	if err != nil {
		return nil, err
	}

	c := &Cluster{logger: logger}
	for _, h := range hosts {
		pc, err := NewPoolConnection(ctx, h, opts)
		if err != nil {
			c.Close()
			return nil, err
		}
		logger.Debug("pool created",
			zap.String("host", h.String()),
			zap.Bool("can_be_primary", h.CanBePrimary),
			zap.String("url", logging.SanitizeConnectionString(h.ConnString)),
		)
		c.conns = append(c.conns, pc)
		c.close = append(c.close, pc.Close)
	}
	return c, nil
}

// NewCluster wraps already-open connections. Duplicate hosts keep the first
// connection. The caller remains responsible for closing them.
func NewCluster(conns ...Connection) *Cluster {
	seen := make(map[HostKey]struct{}, len(conns))
	c := &Cluster{logger: zap.NewNop()}
	for _, conn := range conns {
		k := conn.Host().Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		c.conns = append(c.conns, conn)
	}
	sortConnections(c.conns)
	return c
}

// Connections returns every member, sorted by host identity.
func (c *Cluster) Connections() []Connection {
	return append([]Connection(nil), c.conns...)
}

// Close releases pools opened by Open.
func (c *Cluster) Close() {
	for _, fn := range c.close {
		fn()
	}
	c.close = nil
}

func sortConnections(conns []Connection) {
	sort.SliceStable(conns, func(i, j int) bool {
		a, b := conns[i].Host().Key(), conns[j].Host().Key()
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Port < b.Port
	})
}
