package exclusion

import (
	"strconv"

	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Config lists what to leave out of every diagnostic.
type Config struct {
	Names                    []string `yaml:"names" env:"PGIH_EXCLUDE_NAMES" env-separator:","`
	Tables                   []string `yaml:"tables" env:"PGIH_EXCLUDE_TABLES" env-separator:","`
	Indexes                  []string `yaml:"indexes" env:"PGIH_EXCLUDE_INDEXES" env-separator:","`
	TableSizeThreshold       int64    `yaml:"table_size_threshold" env:"PGIH_TABLE_SIZE_THRESHOLD"`
	IndexSizeThreshold       int64    `yaml:"index_size_threshold" env:"PGIH_INDEX_SIZE_THRESHOLD"`
	BloatSizeThreshold       int64    `yaml:"bloat_size_threshold" env:"PGIH_BLOAT_SIZE_THRESHOLD"`
	BloatPercentageThreshold float64  `yaml:"bloat_percentage_threshold" env:"PGIH_BLOAT_PERCENTAGE_THRESHOLD"`
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs herrors.MultiError
	if c.TableSizeThreshold < 0 {
		errs.Add(herrors.NewValidationError("exclusions.table_size_threshold",
			strconv.FormatInt(c.TableSizeThreshold, 10), "must not be negative"))
	}
	if c.IndexSizeThreshold < 0 {
		errs.Add(herrors.NewValidationError("exclusions.index_size_threshold",
			strconv.FormatInt(c.IndexSizeThreshold, 10), "must not be negative"))
	}
	if c.BloatSizeThreshold < 0 {
		errs.Add(herrors.NewValidationError("exclusions.bloat_size_threshold",
			strconv.FormatInt(c.BloatSizeThreshold, 10), "must not be negative"))
	}
	if c.BloatPercentageThreshold < 0 || c.BloatPercentageThreshold > 100 {
		errs.Add(herrors.NewValidationError("exclusions.bloat_percentage_threshold",
			strconv.FormatFloat(c.BloatPercentageThreshold, 'f', -1, 64), "must be between 0 and 100"))
	}
	return errs.ErrorOrNil()
}

// Build combines every configured exclusion with And. Table and index names
// are qualified with the schema of sc, matching how findings name them.
func Build(c Config, sc model.SchemaContext) Predicate {
	return And(
		SkipByName(enrich(sc, c.Names)...),
		SkipTablesByName(enrich(sc, c.Tables)...),
		SkipIndexesByName(enrich(sc, c.Indexes)...),
		SkipSmallTables(c.TableSizeThreshold),
		SkipSmallIndexes(c.IndexSizeThreshold),
		SkipBloatUnderThreshold(c.BloatSizeThreshold, c.BloatPercentageThreshold),
	)
}

func enrich(sc model.SchemaContext, names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = sc.EnrichWithSchema(n)
	}
	return out
}
