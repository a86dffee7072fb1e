package diagnostic

import (
	"reflect"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Policy says which hosts a diagnostic runs on.
type Policy int

const (
	// PrimaryOnly runs on the current primary; the result is returned as is.
	PrimaryOnly Policy = iota
	// AcrossCluster runs on every host and merges with the diagnostic's Combiner.
	AcrossCluster
)

func (p Policy) String() string {
	switch p {
	case PrimaryOnly:
		return "PRIMARY_ONLY"
	case AcrossCluster:
		return "ACROSS_CLUSTER"
	default:
		return "UNKNOWN"
	}
}

// ParamKind selects the bind parameters passed to a diagnostic's query.
type ParamKind int

const (
	// ParamsSchema binds $1 = schema.
	ParamsSchema ParamKind = iota
	// ParamsSchemaAndBloat binds $1 = schema, $2 = bloat percentage threshold.
	ParamsSchemaAndBloat
	// ParamsSchemaAndRemaining binds $1 = schema, $2 = remaining percentage threshold.
	ParamsSchemaAndRemaining
)

// Args builds the query arguments for sc.
func (k ParamKind) Args(sc model.SchemaContext) []any {
	switch k {
	case ParamsSchemaAndBloat:
		return []any{sc.Schema, sc.BloatPercentageThreshold}
	case ParamsSchemaAndRemaining:
		return []any{sc.Schema, sc.RemainingPercentageThreshold}
	default:
		return []any{sc.Schema}
	}
}

// Diagnostic describes one health check. Values are immutable once registered.
type Diagnostic struct {
	ID          ID
	Description string
	// ResultType is the concrete model type of each finding.
	ResultType reflect.Type
	Policy     Policy
	// Combiner is set iff Policy is AcrossCluster.
	Combiner Combiner
	Params   ParamKind
	// Static diagnostics are meaningful on an empty database; Runtime ones
	// need accumulated statistics. Some are both.
	Static  bool
	Runtime bool
}

// New validates d.
func New(d Diagnostic) (Diagnostic, error) {
	if err := d.Validate(); err != nil {
		return Diagnostic{}, err
	}
	return d, nil
}

// Validate checks the combiner rule and the required fields.
func (d Diagnostic) Validate() error {
	name := string(d.ID)
	switch {
	case d.ID == "":
		return herrors.NewRegistryConfigurationError(name, "id must not be empty")
	case d.ResultType == nil:
		return herrors.NewRegistryConfigurationError(name, "result type must be set")
	case d.Policy != PrimaryOnly && d.Policy != AcrossCluster:
		return herrors.NewRegistryConfigurationError(name, "unknown execution policy")
	case d.Policy == AcrossCluster && d.Combiner == nil:
		return herrors.NewRegistryConfigurationError(name, "ACROSS_CLUSTER requires a combiner")
	case d.Policy == PrimaryOnly && d.Combiner != nil:
		return herrors.NewRegistryConfigurationError(name, "PRIMARY_ONLY must not have a combiner")
	case !d.Static && !d.Runtime:
		return herrors.NewRegistryConfigurationError(name, "must be static, runtime or both")
	}
	return nil
}

// ResultTypeName is a short name for ResultType, e.g. "UnusedIndex".
func (d Diagnostic) ResultTypeName() string {
	if d.ResultType == nil {
		return ""
	}
	return d.ResultType.Name()
}

// CombinerName is the combiner's name or "" for PrimaryOnly.
func (d Diagnostic) CombinerName() string {
	if d.Combiner == nil {
		return ""
	}
	return d.Combiner.Name()
}
