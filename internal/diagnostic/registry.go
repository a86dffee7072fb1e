package diagnostic

import (
	"fmt"
	"reflect"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Registry is an immutable lookup of diagnostics by ID.
type Registry struct {
	byID  map[ID]Diagnostic
	order []ID
}

// NewRegistry validates every definition and rejects duplicate IDs.
func NewRegistry(defs ...Diagnostic) (*Registry, error) {
	r := &Registry{byID: make(map[ID]Diagnostic, len(defs))}
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[d.ID]; dup {
			return nil, herrors.NewRegistryConfigurationError(string(d.ID), "registered twice")
		}
		r.byID[d.ID] = d
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// Get returns the diagnostic for id.
func (r *Registry) Get(id ID) (Diagnostic, error) {
	d, ok := r.byID[id]
	if !ok {
		return Diagnostic{}, fmt.Errorf("%w: %q", herrors.ErrUnknownDiagnostic, string(id))
	}
	return d, nil
}

// All returns every diagnostic in registration order.
func (r *Registry) All() []Diagnostic {
	out := make([]Diagnostic, len(r.order))
	for i, id := range r.order {
		out[i] = r.byID[id]
	}
	return out
}

// AcrossCluster returns the diagnostics that run on every host.
func (r *Registry) AcrossCluster() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.All() {
		if d.Policy == AcrossCluster {
			out = append(out, d)
		}
	}
	return out
}

// Len is the number of registered diagnostics.
func (r *Registry) Len() int { return len(r.order) }

var defaultRegistry = mustDefault()

// Default is the built-in catalog.
func Default() *Registry { return defaultRegistry }

func mustDefault() *Registry {
	defs := make([]Diagnostic, 0, len(allIDs))
	for _, id := range allIDs {
		defs = append(defs, definitionOf(id))
	}
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

func typeOf[T model.DbObject]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func definitionOf(id ID) Diagnostic {
	switch id {
	case BloatedIndexes:
		return Diagnostic{ID: id, Description: "Indexes with estimated bloat above the threshold",
			ResultType: typeOf[model.IndexWithBloat](), Policy: PrimaryOnly, Params: ParamsSchemaAndBloat, Runtime: true}
	case BloatedTables:
		return Diagnostic{ID: id, Description: "Tables with estimated bloat above the threshold",
			ResultType: typeOf[model.TableWithBloat](), Policy: PrimaryOnly, Params: ParamsSchemaAndBloat, Runtime: true}
	case DuplicatedIndexes:
		return Diagnostic{ID: id, Description: "Indexes with identical definitions",
			ResultType: typeOf[model.DuplicatedIndexes](), Policy: PrimaryOnly, Static: true}
	case ForeignKeysWithoutIndex:
		return Diagnostic{ID: id, Description: "Foreign keys not covered by an index",
			ResultType: typeOf[model.ForeignKey](), Policy: PrimaryOnly, Static: true}
	case IndexesWithNullValues:
		return Diagnostic{ID: id, Description: "Indexes over nullable columns that store nulls",
			ResultType: typeOf[model.IndexWithNulls](), Policy: PrimaryOnly, Static: true}
	case IntersectedIndexes:
		return Diagnostic{ID: id, Description: "Indexes whose leading columns overlap",
			ResultType: typeOf[model.DuplicatedIndexes](), Policy: PrimaryOnly, Static: true}
	case InvalidIndexes:
		return Diagnostic{ID: id, Description: "Indexes left invalid by a failed concurrent build",
			ResultType: typeOf[model.Index](), Policy: PrimaryOnly, Static: true, Runtime: true}
	case TablesWithMissingIndexes:
		return Diagnostic{ID: id, Description: "Tables read mostly by sequential scans",
			ResultType: typeOf[model.TableWithMissingIndex](), Policy: AcrossCluster, Combiner: UnionDistinctSorted, Runtime: true}
	case TablesWithoutPrimaryKey:
		return Diagnostic{ID: id, Description: "Tables without a primary key",
			ResultType: typeOf[model.Table](), Policy: PrimaryOnly, Static: true}
	case UnusedIndexes:
		return Diagnostic{ID: id, Description: "Indexes not scanned on any host",
			ResultType: typeOf[model.UnusedIndex](), Policy: AcrossCluster, Combiner: Intersection, Runtime: true}
	case TablesWithoutDescription:
		return Diagnostic{ID: id, Description: "Tables without a comment",
			ResultType: typeOf[model.Table](), Policy: PrimaryOnly, Static: true}
	case ColumnsWithoutDescription:
		return Diagnostic{ID: id, Description: "Columns without a comment",
			ResultType: typeOf[model.Column](), Policy: PrimaryOnly, Static: true}
	case SequenceOverflow:
		return Diagnostic{ID: id, Description: "Sequences close to their maximum value",
			ResultType: typeOf[model.SequenceState](), Policy: PrimaryOnly, Params: ParamsSchemaAndRemaining, Runtime: true}
	default:
		panic(fmt.Sprintf("diagnostic: no definition for %q", string(id)))
	}
}
