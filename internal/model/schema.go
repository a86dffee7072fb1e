package model

import (
	"fmt"
	"strconv"
	"strings"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
)

// Schema context defaults.
const (
	DefaultSchema                       = "public"
	DefaultBloatPercentageThreshold     = 10
	DefaultRemainingPercentageThreshold = 10.0
)

// SchemaContext scopes a diagnostic run to one schema and carries the
// thresholds some queries take as parameters.
type SchemaContext struct {
	Schema                       string
	BloatPercentageThreshold     int
	RemainingPercentageThreshold float64
}

// NewSchemaContext validates and lower-cases the schema name.
func NewSchemaContext(schema string, bloatPct int, remainingPct float64) (SchemaContext, error) {
	schema = strings.ToLower(strings.TrimSpace(schema))
	if schema == "" {
		return SchemaContext{}, herrors.NewValidationError("schema", "", "must not be blank")
	}
	if bloatPct < 0 {
		return SchemaContext{}, herrors.NewValidationError("bloat_percentage_threshold",
			strconv.Itoa(bloatPct), "must not be negative")
	}
	if remainingPct < 0 || remainingPct > 100 {
		return SchemaContext{}, herrors.NewValidationError("remaining_percentage_threshold",
			strconv.FormatFloat(remainingPct, 'f', -1, 64), "must be between 0 and 100")
	}
	return SchemaContext{
		Schema:                       schema,
		BloatPercentageThreshold:     bloatPct,
		RemainingPercentageThreshold: remainingPct,
	}, nil
}

// DefaultSchemaContext targets "public" with default thresholds.
func DefaultSchemaContext() SchemaContext {
	return SchemaContext{
		Schema:                       DefaultSchema,
		BloatPercentageThreshold:     DefaultBloatPercentageThreshold,
		RemainingPercentageThreshold: DefaultRemainingPercentageThreshold,
	}
}

// ForSchema is DefaultSchemaContext with another schema name.
func ForSchema(schema string) (SchemaContext, error) {
	return NewSchemaContext(schema, DefaultBloatPercentageThreshold, DefaultRemainingPercentageThreshold)
}

// IsDefaultSchema reports whether the context targets "public".
func (c SchemaContext) IsDefaultSchema() bool {
	return strings.EqualFold(c.Schema, DefaultSchema)
}

// EnrichWithSchema qualifies an object name with the context schema.
// Names in the default schema and names already qualified are returned as is.
func (c SchemaContext) EnrichWithSchema(name string) string {
	if c.IsDefaultSchema() || name == "" {
		return name
	}
	prefix := c.Schema + "."
	if strings.HasPrefix(strings.ToLower(name), prefix) {
		return name
	}
	return prefix + name
}

func (c SchemaContext) String() string {
	return fmt.Sprintf("SchemaContext{schema=%s, bloat=%d%%, remaining=%g%%}",
		c.Schema, c.BloatPercentageThreshold, c.RemainingPercentageThreshold)
}
