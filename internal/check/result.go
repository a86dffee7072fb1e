package check

import (
	"context"
	"time"

	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	"github.com/koltyakov/pgindexhealth/internal/exclusion"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Result is the outcome of one diagnostic for reporting.
type Result struct {
	Diagnostic diagnostic.Diagnostic
	Objects    []model.DbObject
	Duration   time.Duration
	Attempts   int
	Err        error
}

// Failed reports whether the diagnostic did not complete.
func (r Result) Failed() bool { return r.Err != nil }

// Evaluate runs id once and records the outcome instead of returning an error.
func (o *Orchestrator) Evaluate(ctx context.Context, id diagnostic.ID, sc model.SchemaContext, filter exclusion.Predicate) Result {
	start := o.now()
	objs, err := o.RunDiagnostic(ctx, id, sc, filter)
	d, _ := o.registry.Get(id)
	if d.ID == "" {
		d.ID = id
	}
	return Result{
		Diagnostic: d,
		Objects:    objs,
		Duration:   o.now().Sub(start),
		Attempts:   1,
		Err:        err,
	}
}
