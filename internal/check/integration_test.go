//go:build integration

package check_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/koltyakov/pgindexhealth/internal/check"
	"github.com/koltyakov/pgindexhealth/internal/collect"
	"github.com/koltyakov/pgindexhealth/internal/connection"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/model"
	"github.com/koltyakov/pgindexhealth/internal/testhelpers"
)

const itSchema = "ih_it"

// seedSchema creates a schema with one example of several anti-patterns.
func seedSchema(t *testing.T, db *testhelpers.TestDB) {
	t.Helper()
	db.Exec(t,
		"drop schema if exists "+itSchema+" cascade",
		"create schema "+itSchema,
		"create table "+itSchema+".customers (id bigint primary key, email text)",
		"create table "+itSchema+".orders (id bigint primary key, customer_id bigint references "+itSchema+".customers (id), status text)",
		"create index i_orders_status on "+itSchema+".orders (status)",
		"create index i_orders_status_dup on "+itSchema+".orders (status)",
		"create table "+itSchema+".audit_log (happened_at timestamptz, payload jsonb)",
		"comment on table "+itSchema+".customers is 'Registered customers'",
	)
	t.Cleanup(func() {
		_, _ = db.Pool.Exec(context.Background(), "drop schema if exists "+itSchema+" cascade")
	})
}

func openOrchestrator(t *testing.T, db *testhelpers.TestDB) (*check.Orchestrator, *connection.Cluster) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cluster, err := connection.Open(ctx, db.ConnStr, connection.PoolOptions{MaxConns: 2}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(cluster.Close)

	return check.NewOrchestrator(cluster, check.WithLogger(zaptest.NewLogger(t))), cluster
}

func names(objs []model.DbObject) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ObjectName()
	}
	return out
}

func TestIntegrationTopologySingleHost(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	o, _ := openOrchestrator(t, db)

	topo, err := o.Topology(context.Background())
	require.NoError(t, err)
	require.NotNil(t, topo.Primary)
	assert.Empty(t, topo.Replicas)
	assert.Equal(t, 1, topo.Size())
}

func TestIntegrationEveryDiagnosticRuns(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	seedSchema(t, db)
	o, _ := openOrchestrator(t, db)

	sc, err := model.ForSchema(itSchema)
	require.NoError(t, err)

	for _, id := range diagnostic.AllIDs() {
		t.Run(id.String(), func(t *testing.T) {
			_, err := o.RunDiagnostic(context.Background(), id, sc, exclusion.AcceptAll)
			require.NoError(t, err)
		})
	}
}

func TestIntegrationFindsSeededProblems(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	seedSchema(t, db)
	o, _ := openOrchestrator(t, db)

	sc, err := model.ForSchema(itSchema)
	require.NoError(t, err)
	ctx := context.Background()

	noPK, err := o.RunDiagnostic(ctx, diagnostic.TablesWithoutPrimaryKey, sc, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{itSchema + ".audit_log"}, names(noPK))

	dups, err := o.RunDiagnostic(ctx, diagnostic.DuplicatedIndexes, sc, nil)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Contains(t, dups[0].ObjectName(), "i_orders_status")
	assert.Contains(t, dups[0].ObjectName(), "i_orders_status_dup")

	fks, err := o.RunDiagnostic(ctx, diagnostic.ForeignKeysWithoutIndex, sc, nil)
	require.NoError(t, err)
	require.Len(t, fks, 1)
	assert.True(t, strings.HasPrefix(fks[0].ObjectName(), "orders_customer_id"), fks[0].ObjectName())

	undocumented, err := o.RunDiagnostic(ctx, diagnostic.TablesWithoutDescription, sc, nil)
	require.NoError(t, err)
	assert.NotContains(t, names(undocumented), itSchema+".customers")
	assert.Contains(t, names(undocumented), itSchema+".orders")
}

func TestIntegrationBloatedIndexNamesAreQualified(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	seedSchema(t, db)
	db.Exec(t,
		"insert into "+itSchema+".orders (id, status) select g, 'status-' || g from generate_series(1, 20000) g",
		"delete from "+itSchema+".orders where id % 10 <> 0",
		"analyze "+itSchema+".orders",
	)
	o, _ := openOrchestrator(t, db)

	sc, err := model.NewSchemaContext(itSchema, 0, model.DefaultRemainingPercentageThreshold)
	require.NoError(t, err)

	bloated, err := o.RunDiagnostic(context.Background(), diagnostic.BloatedIndexes, sc, nil)
	require.NoError(t, err)
	for _, obj := range bloated {
		assert.True(t, strings.HasPrefix(obj.ObjectName(), itSchema+"."), obj.ObjectName())
	}

	filter := exclusion.Build(exclusion.Config{Indexes: []string{"i_orders_status", "i_orders_status_dup", "orders_pkey", "customers_pkey"}}, sc)
	res := o.Evaluate(context.Background(), diagnostic.BloatedIndexes, sc, filter)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Objects)

	tables := o.Evaluate(context.Background(), diagnostic.BloatedTables, sc, nil)
	require.NoError(t, tables.Err)
}

func TestIntegrationExclusions(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	seedSchema(t, db)
	o, _ := openOrchestrator(t, db)

	sc, err := model.ForSchema(itSchema)
	require.NoError(t, err)

	filter := exclusion.Build(exclusion.Config{Tables: []string{"audit_log"}}, sc)
	res := o.Evaluate(context.Background(), diagnostic.TablesWithoutPrimaryKey, sc, filter)
	require.NoError(t, res.Err)
	assert.Empty(t, res.Objects)
}

func TestIntegrationCollect(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	o, _ := openOrchestrator(t, db)

	topo, err := o.Topology(context.Background())
	require.NoError(t, err)

	res := collect.Run(context.Background(), topo, collect.Config{}, zaptest.NewLogger(t))
	require.Len(t, res.Hosts, 1)

	h := res.Hosts[0]
	assert.Equal(t, collect.RolePrimary, h.Role)
	assert.Contains(t, h.Version, "PostgreSQL 17")
	assert.Equal(t, "indexhealth", h.CurrentDB)
	assert.True(t, h.IsSuperuser)
	assert.Empty(t, h.Errors)
}
