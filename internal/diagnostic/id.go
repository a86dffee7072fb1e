// Package diagnostic defines the closed catalog of health checks: what each
// one returns, where it runs, and how results from several hosts merge.
package diagnostic

import (
	"fmt"
	"strings"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

// ID names a diagnostic. The set is closed; see AllIDs.
type ID string

const (
	BloatedIndexes            ID = "bloated_indexes"
	BloatedTables             ID = "bloated_tables"
	DuplicatedIndexes         ID = "duplicated_indexes"
	ForeignKeysWithoutIndex   ID = "foreign_keys_without_index"
	IndexesWithNullValues     ID = "indexes_with_null_values"
	IntersectedIndexes        ID = "intersected_indexes"
	InvalidIndexes            ID = "invalid_indexes"
	TablesWithMissingIndexes  ID = "tables_with_missing_indexes"
	TablesWithoutPrimaryKey   ID = "tables_without_primary_key"
	UnusedIndexes             ID = "unused_indexes"
	TablesWithoutDescription  ID = "tables_without_description"
	ColumnsWithoutDescription ID = "columns_without_description"
	SequenceOverflow          ID = "sequence_overflow"
)

var allIDs = []ID{
	BloatedIndexes,
	BloatedTables,
	DuplicatedIndexes,
	ForeignKeysWithoutIndex,
	IndexesWithNullValues,
	IntersectedIndexes,
	InvalidIndexes,
	TablesWithMissingIndexes,
	TablesWithoutPrimaryKey,
	UnusedIndexes,
	TablesWithoutDescription,
	ColumnsWithoutDescription,
	SequenceOverflow,
}

// AllIDs returns every known diagnostic in catalog order.
func AllIDs() []ID {
	return append([]ID(nil), allIDs...)
}

// ParseID accepts an ID in any case, with '-' in place of '_'.
func ParseID(s string) (ID, error) {
	norm := ID(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, id := range allIDs {
		if id == norm {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", herrors.ErrUnknownDiagnostic, s)
}

func (id ID) String() string { return string(id) }
