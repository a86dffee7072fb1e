package collect

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/logging"
	"github.com/koltyakov/pgindexhealth/internal/stats"
)

// Host roles as rendered in reports.
const (
	RolePrimary = "primary"
	RoleReplica = "replica"
)

const (
	connInfoSQL   = `select version(), current_database(), current_user`
	superuserSQL  = `select rolsuper from pg_roles where rolname = current_user`
	pgMonitorSQL  = `select exists(select 1 from pg_auth_members m join pg_roles r on r.oid = m.roleid where r.rolname = 'pg_monitor' and m.member = (select oid from pg_roles where rolname = current_user))`
	extensionsSQL = `select exists(select 1 from pg_extension where extname = 'pg_stat_statements')`
)

// Result is the server context of every host, primary first.
type Result struct {
	Hosts []HostInfo `json:"hosts" yaml:"hosts"`
}

// Primary returns the primary's context, if collected.
func (r Result) Primary() (HostInfo, bool) {
	for _, h := range r.Hosts {
		if h.Role == RolePrimary {
			return h, true
		}
	}
	return HostInfo{}, false
}

// HostInfo is what one member reported about itself.
type HostInfo struct {
	Host             string     `json:"host" yaml:"host"`
	Role             string     `json:"role" yaml:"role"`
	Version          string     `json:"version,omitempty" yaml:"version,omitempty"`
	CurrentDB        string     `json:"database,omitempty" yaml:"database,omitempty"`
	CurrentUser      string     `json:"user,omitempty" yaml:"user,omitempty"`
	IsSuperuser      bool       `json:"superuser" yaml:"superuser"`
	HasPgMonitor     bool       `json:"pg_monitor" yaml:"pg_monitor"`
	PgStatStatements bool       `json:"pg_stat_statements" yaml:"pg_stat_statements"`
	StatsResetAt     *time.Time `json:"stats_reset_at,omitempty" yaml:"stats_reset_at,omitempty"`
	Errors           []string   `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Set when the probe behind the field failed, so a zero value means
	// nothing about the server.
	PrivilegesUnknown bool `json:"privileges_unknown,omitempty" yaml:"privileges_unknown,omitempty"`
	StatsUnknown      bool `json:"stats_unknown,omitempty" yaml:"stats_unknown,omitempty"`
}

// Privileged reports whether the role can read every statistics view.
func (h HostInfo) Privileged() bool { return h.IsSuperuser || h.HasPgMonitor }

// Run probes every host of topo concurrently.
func Run(ctx context.Context, topo connection.Topology, cfg Config, logger *zap.Logger) Result {
	cfg = cfg.withDefaults()
	logger = logging.OrNop(logger)

	conns := topo.All()
	infos := make([]HostInfo, len(conns))

	var g errgroup.Group
	for i, conn := range conns {
		i, conn := i, conn // per-iteration copies; go directive is 1.21
		role := RoleReplica
		if i == 0 && topo.Primary != nil {
			role = RolePrimary
		}
		g.Go(func() error {
			infos[i] = collectHost(ctx, conn, role, cfg)
			for _, e := range infos[i].Errors {
				logger.Debug("server context probe failed",
					zap.String("host", infos[i].Host),
					zap.String("error", e))
			}
			return nil
		})
	}
	_ = g.Wait()

	return Result{Hosts: infos}
}

func collectHost(ctx context.Context, conn connection.Connection, role string, cfg Config) HostInfo {
	info := HostInfo{Host: conn.Host().String(), Role: role}
	record := func(err error) bool {
		if err != nil {
			info.Errors = append(info.Errors, logging.SanitizeError(err))
			return false
		}
		return true
	}

	record(queryRow(ctx, conn, cfg, connInfoSQL, &info.Version, &info.CurrentDB, &info.CurrentUser))
	superOK := record(queryRow(ctx, conn, cfg, superuserSQL, &info.IsSuperuser))
	monitorOK := record(queryRow(ctx, conn, cfg, pgMonitorSQL, &info.HasPgMonitor))
	record(queryRow(ctx, conn, cfg, extensionsSQL, &info.PgStatStatements))

	// a superuser needs no pg_monitor answer
	info.PrivilegesUnknown = !superOK || (!info.IsSuperuser && !monitorOK)

	probeCtx, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	resetAt, ok, err := stats.LastResetTimestamp(probeCtx, conn)
	info.StatsUnknown = !record(err)
	if ok {
		info.StatsResetAt = &resetAt
	}
	return info
}

func queryRow(ctx context.Context, conn connection.Connection, cfg Config, sql string, dst ...any) error {
	ctx2, cancel := context.WithTimeout(ctx, cfg.QueryTimeout)
	defer cancel()
	return conn.QueryRow(ctx2, sql).Scan(dst...)
}
