// Package check runs diagnostics against a cluster. HostCheck executes one
// diagnostic on one host; Orchestrator decides where to run it and merges
// the per-host results.
package check

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/logging"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// QueryProvider supplies the SQL of a diagnostic.
type QueryProvider interface {
	QueryText(id diagnostic.ID) (string, error)
}

// RowMapper turns the current row into a finding.
type RowMapper interface {
	MapRow(id diagnostic.ID, sc model.SchemaContext, row pgx.Row) (model.DbObject, error)
}

// HostExecutor runs one diagnostic on one host.
type HostExecutor interface {
	Host() connection.Host
	Run(ctx context.Context, sc model.SchemaContext, filter exclusion.Predicate) ([]model.DbObject, error)
}

// HostCheck is the HostExecutor backed by a SQL query.
type HostCheck struct {
	diag    diagnostic.Diagnostic
	conn    connection.Connection
	queries QueryProvider
	mapper  RowMapper
	logger  *zap.Logger
}

var _ HostExecutor = (*HostCheck)(nil)

// NewHostCheck binds d to conn.
func NewHostCheck(d diagnostic.Diagnostic, conn connection.Connection, queries QueryProvider, mapper RowMapper, logger *zap.Logger) *HostCheck {
	return &HostCheck{diag: d, conn: conn, queries: queries, mapper: mapper, logger: logging.OrNop(logger)}
}

// Host is the host this check is bound to.
func (c *HostCheck) Host() connection.Host { return c.conn.Host() }

// Diagnostic is the bound diagnostic.
func (c *HostCheck) Diagnostic() diagnostic.Diagnostic { return c.diag }

// Run executes the query with parameters derived from sc, maps every row and
// keeps those accepted by filter. The result is never nil on success.
func (c *HostCheck) Run(ctx context.Context, sc model.SchemaContext, filter exclusion.Predicate) ([]model.DbObject, error) {
	if filter == nil {
		filter = exclusion.AcceptAll
	}

	sql, err := c.queries.QueryText(c.diag.ID)
	if err != nil {
		return nil, err
	}

	rows, err := c.conn.Query(ctx, sql, c.diag.Params.Args(sc)...)
	if err != nil {
		return nil, c.wrap(err)
	}
	defer rows.Close()

	out := make([]model.DbObject, 0)
	for rows.Next() {
		obj, err := c.mapper.MapRow(c.diag.ID, sc, rows)
		if err != nil {
			return nil, c.wrap(err)
		}
		if filter(obj) {
			out = append(out, obj)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, c.wrap(err)
	}

	c.logger.Debug("diagnostic finished on host",
		zap.String("diagnostic", string(c.diag.ID)),
		zap.String("host", c.Host().String()),
		zap.Int("findings", len(out)),
	)
	return out, nil
}

func (c *HostCheck) wrap(err error) error {
	host := c.Host().String()
	if isConnectFailure(err) {
		return herrors.NewHostUnreachableError(host, "diagnostic "+string(c.diag.ID), err)
	}
	return herrors.NewDiagnosticQueryError(string(c.diag.ID), host, err)
}

func isConnectFailure(err error) bool {
	var ce *pgconn.ConnectError
	return errors.As(err, &ce) || errors.Is(err, herrors.ErrHostUnreachable)
}
