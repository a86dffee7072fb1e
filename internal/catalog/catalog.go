// Package catalog holds the SQL text of every diagnostic and the mapping of
// its result rows onto model types.
package catalog

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

//go:embed queries/*.sql
var queryFiles embed.FS

// Queries serves the embedded query of a diagnostic.
type Queries struct{}

// QueryText returns the SQL for id. Placeholders follow the diagnostic's ParamKind.
func (Queries) QueryText(id diagnostic.ID) (string, error) {
	b, err := queryFiles.ReadFile("queries/" + string(id) + ".sql")
	if err != nil {
		return "", fmt.Errorf("%w: no query for %q", herrors.ErrUnknownDiagnostic, string(id))
	}
	return string(b), nil
}

// Mapper converts one result row of a diagnostic query into a finding.
type Mapper struct{}

// MapRow scans the current row. Only Scan is used, so both pgx.Rows and
// pgx.Row are accepted.
func (Mapper) MapRow(id diagnostic.ID, sc model.SchemaContext, row pgx.Row) (model.DbObject, error) {
	switch id {
	case diagnostic.BloatedIndexes:
		var o model.IndexWithBloat
		err := row.Scan(&o.Table, &o.Name, &o.SizeBytes, &o.BloatBytes, &o.BloatPct)
		return o, err

	case diagnostic.BloatedTables:
		var o model.TableWithBloat
		err := row.Scan(&o.Name, &o.SizeBytes, &o.BloatBytes, &o.BloatPct)
		return o, err

	case diagnostic.DuplicatedIndexes, diagnostic.IntersectedIndexes:
		var (
			table string
			names []string
			sizes []int64
		)
		if err := row.Scan(&table, &names, &sizes); err != nil {
			return nil, err
		}
		if len(names) != len(sizes) {
			return nil, fmt.Errorf("%s: %d index names but %d sizes", id, len(names), len(sizes))
		}
		indexes := make([]model.IndexWithSize, len(names))
		for i := range names {
			indexes[i] = model.IndexWithSize{Index: model.Index{Table: table, Name: names[i]}, SizeBytes: sizes[i]}
		}
		return model.NewDuplicatedIndexes(table, indexes), nil

	case diagnostic.ForeignKeysWithoutIndex:
		var (
			o       model.ForeignKey
			cols    []string
			notNull []bool
		)
		if err := row.Scan(&o.Table, &o.Name, &cols, &notNull); err != nil {
			return nil, err
		}
		if len(cols) != len(notNull) {
			return nil, fmt.Errorf("%s: %d columns but %d nullability flags", id, len(cols), len(notNull))
		}
		o.Columns = make([]model.Column, len(cols))
		for i := range cols {
			o.Columns[i] = model.Column{Table: o.Table, Name: cols[i], NotNull: notNull[i]}
		}
		return o, nil

	case diagnostic.IndexesWithNullValues:
		var o model.IndexWithNulls
		err := row.Scan(&o.Table, &o.Name, &o.SizeBytes, &o.NullableColumn)
		return o, err

	case diagnostic.InvalidIndexes:
		var o model.Index
		err := row.Scan(&o.Table, &o.Name)
		return o, err

	case diagnostic.TablesWithMissingIndexes:
		var o model.TableWithMissingIndex
		err := row.Scan(&o.Name, &o.SizeBytes, &o.SeqScans, &o.IndexScans)
		return o, err

	case diagnostic.TablesWithoutPrimaryKey, diagnostic.TablesWithoutDescription:
		var o model.Table
		err := row.Scan(&o.Name, &o.SizeBytes)
		return o, err

	case diagnostic.UnusedIndexes:
		var o model.UnusedIndex
		err := row.Scan(&o.Table, &o.Name, &o.SizeBytes, &o.Scans)
		return o, err

	case diagnostic.ColumnsWithoutDescription:
		var o model.Column
		err := row.Scan(&o.Table, &o.Name, &o.NotNull)
		return o, err

	case diagnostic.SequenceOverflow:
		var o model.SequenceState
		if err := row.Scan(&o.Name, &o.DataType, &o.RemainingPercentage); err != nil {
			return nil, err
		}
		o.Name = sc.EnrichWithSchema(o.Name)
		return o, nil

	default:
		return nil, fmt.Errorf("%w: no row mapper for %q", herrors.ErrUnknownDiagnostic, string(id))
	}
}
