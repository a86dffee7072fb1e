package analyze

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/koltyakov/pgindexhealth/internal/check"
	"github.com/koltyakov/pgindexhealth/internal/collect"
	"github.com/koltyakov/pgindexhealth/internal/diagnostic"
	"github.com/koltyakov/pgindexhealth/internal/model"
	"github.com/koltyakov/pgindexhealth/internal/stats"
)

// Severity levels. Each maps to one Analysis list.
const (
	SeverityInfo = "info"
	SeverityWarn = "warn"
	SeverityRec  = "rec"
)

// maxExamples caps how many object names a description lists.
const maxExamples = 10

// recentResetWindow is how fresh statistics may be before runtime findings
// are flagged as unreliable.
const recentResetWindow = 7 * 24 * time.Hour

type Analysis struct {
	Recommendations []Finding `json:"recommendations" yaml:"recommendations"`
	Warnings        []Finding `json:"warnings" yaml:"warnings"`
	Infos           []Finding `json:"infos" yaml:"infos"`
}

// Total is the number of findings across all lists.
func (a Analysis) Total() int {
	return len(a.Recommendations) + len(a.Warnings) + len(a.Infos)
}

type Finding struct {
	Code        string   `json:"code" yaml:"code"`
	Title       string   `json:"title" yaml:"title"`
	Severity    string   `json:"severity" yaml:"severity"` // info, warn, rec
	Description string   `json:"description" yaml:"description"`
	Action      string   `json:"action,omitempty" yaml:"action,omitempty"`
	Diagnostic  string   `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	Objects     []string `json:"objects,omitempty" yaml:"objects,omitempty"`
}

type rule struct {
	code     string
	title    string
	severity string
	noun     string
	action   string
}

var rules = map[diagnostic.ID]rule{
	diagnostic.InvalidIndexes: {
		code: "invalid-indexes", title: "Invalid indexes", severity: SeverityWarn, noun: "indexes",
		action: "Drop and recreate the index, or run REINDEX INDEX CONCURRENTLY after fixing the cause of the failed build.",
	},
	diagnostic.DuplicatedIndexes: {
		code: "duplicated-indexes", title: "Duplicated indexes", severity: SeverityRec, noun: "index groups",
		action: "Keep one index per group and drop the rest to reduce write and maintenance overhead.",
	},
	diagnostic.IntersectedIndexes: {
		code: "intersected-indexes", title: "Intersected indexes", severity: SeverityRec, noun: "index groups",
		action: "Check whether one index of each group covers the others and drop the redundant ones.",
	},
	diagnostic.UnusedIndexes: {
		code: "unused-indexes", title: "Unused indexes", severity: SeverityRec, noun: "indexes",
		action: "Validate with workload owners and drop truly unused indexes. The list already excludes indexes used on any replica.",
	},
	diagnostic.ForeignKeysWithoutIndex: {
		code: "fk-without-index", title: "Foreign keys without index", severity: SeverityRec, noun: "foreign keys",
		action: "Create an index on the referencing columns to speed up joins and cascading deletes.",
	},
	diagnostic.TablesWithoutPrimaryKey: {
		code: "tables-without-pk", title: "Tables without primary key", severity: SeverityWarn, noun: "tables",
		action: "Add a primary key; logical replication and many tools require one.",
	},
	diagnostic.IndexesWithNullValues: {
		code: "indexes-with-nulls", title: "Indexes on nullable columns", severity: SeverityRec, noun: "indexes",
		action: "Consider a partial index with WHERE column IS NOT NULL to shrink the index.",
	},
	diagnostic.BloatedIndexes: {
		code: "bloated-indexes", title: "Bloated indexes", severity: SeverityWarn, noun: "indexes",
		action: "Run REINDEX CONCURRENTLY on the largest offenders and review autovacuum settings.",
	},
	diagnostic.BloatedTables: {
		code: "bloated-tables", title: "Bloated tables", severity: SeverityWarn, noun: "tables",
		action: "Investigate autovacuum, consider VACUUM (FULL) or pg_repack on large bloated relations.",
	},
	diagnostic.TablesWithMissingIndexes: {
		code: "missing-indexes", title: "Possible missing indexes", severity: SeverityRec, noun: "tables",
		action: "EXPLAIN problematic queries; create indexes on selective predicates and joins as appropriate.",
	},
	diagnostic.TablesWithoutDescription: {
		code: "tables-without-description", title: "Tables without description", severity: SeverityInfo, noun: "tables",
		action: "Document tables with COMMENT ON TABLE.",
	},
	diagnostic.ColumnsWithoutDescription: {
		code: "columns-without-description", title: "Columns without description", severity: SeverityInfo, noun: "columns",
		action: "Document columns with COMMENT ON COLUMN.",
	},
	diagnostic.SequenceOverflow: {
		code: "sequence-overflow", title: "Sequences close to overflow", severity: SeverityWarn, noun: "sequences",
		action: "Widen the column type to bigint or reset the sequence before it runs out of values.",
	},
}

// Run turns diagnostic results and the collected server context into findings.
// now is the reference time for statistics age.
func Run(results []check.Result, server collect.Result, now time.Time) Analysis {
	a := Analysis{}

	runtimeFindings := false
	for _, r := range results {
		if r.Failed() {
			a.Warnings = append(a.Warnings, Finding{
				Code:        "diagnostic-failed",
				Title:       "Diagnostic failed: " + r.Diagnostic.ID.String(),
				Severity:    SeverityWarn,
				Description: r.Err.Error(),
				Action:      "Check connectivity and privileges of the reported host, then rerun with --only " + r.Diagnostic.ID.String() + ".",
				Diagnostic:  r.Diagnostic.ID.String(),
			})
			continue
		}
		if len(r.Objects) == 0 {
			continue
		}
		ru, ok := rules[r.Diagnostic.ID]
		if !ok {
			continue
		}
		if r.Diagnostic.Runtime && !r.Diagnostic.Static {
			runtimeFindings = true
		}
		f := Finding{
			Code:        ru.code,
			Title:       ru.title,
			Severity:    ru.severity,
			Description: describe(ru.noun, r.Objects),
			Action:      ru.action,
			Diagnostic:  r.Diagnostic.ID.String(),
			Objects:     names(r.Objects),
		}
		a.add(f)
	}

	// Privileges
	for _, h := range server.Hosts {
		if h.PrivilegesUnknown || (len(h.Errors) > 0 && h.Version == "") {
			continue
		}
		if !h.Privileged() {
			a.Infos = append(a.Infos, Finding{
				Code:        "limited-privileges",
				Title:       "Limited privileges",
				Severity:    SeverityInfo,
				Description: fmt.Sprintf("Role %q on %s lacks superuser and pg_monitor; some statistics may be unavailable.", h.CurrentUser, h.Host),
				Action:      "Ask a DBA to grant membership in pg_monitor for richer visibility.",
			})
		}
	}

	// Statistics window per host
	for _, h := range server.Hosts {
		if h.StatsUnknown {
			a.Infos = append(a.Infos, Finding{
				Code:        "stats-window",
				Title:       "Statistics window on " + h.Host,
				Severity:    SeverityInfo,
				Description: "Statistics reset time on this host is unknown; the probe failed.",
			})
			continue
		}
		resetAt, ok := time.Time{}, h.StatsResetAt != nil
		if ok {
			resetAt = *h.StatsResetAt
		}
		a.Infos = append(a.Infos, Finding{
			Code:        "stats-window",
			Title:       "Statistics window on " + h.Host,
			Severity:    SeverityInfo,
			Description: stats.ResetAgeMessage(resetAt, ok, now),
		})
		if runtimeFindings && ok && now.Sub(resetAt) < recentResetWindow {
			a.Warnings = append(a.Warnings, Finding{
				Code:        "stats-recently-reset",
				Title:       "Statistics recently reset",
				Severity:    SeverityWarn,
				Description: fmt.Sprintf("Statistics on %s were reset %s ago; usage based findings may be incomplete.", h.Host, now.Sub(resetAt).Truncate(time.Hour)),
				Action:      "Let statistics accumulate over a full business cycle before dropping indexes.",
			})
		}
	}

	return a
}

func (a *Analysis) add(f Finding) {
	switch f.Severity {
	case SeverityWarn:
		a.Warnings = append(a.Warnings, f)
	case SeverityRec:
		a.Recommendations = append(a.Recommendations, f)
	default:
		a.Infos = append(a.Infos, f)
	}
}

// Filter drops findings whose code is in suppressed, from every list.
func Filter(a Analysis, suppressed map[string]struct{}) Analysis {
	if len(suppressed) == 0 {
		return a
	}
	keep := func(in []Finding) []Finding {
		out := make([]Finding, 0, len(in))
		for _, f := range in {
			if _, skip := suppressed[f.Code]; !skip {
				out = append(out, f)
			}
		}
		return out
	}
	a.Recommendations = keep(a.Recommendations)
	a.Warnings = keep(a.Warnings)
	a.Infos = keep(a.Infos)
	return a
}

// Codes returns every code a finding may carry, sorted.
func Codes() []string {
	set := map[string]struct{}{
		"diagnostic-failed":    {},
		"limited-privileges":   {},
		"stats-window":         {},
		"stats-recently-reset": {},
	}
	for _, r := range rules {
		set[r.code] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func describe(noun string, objs []model.DbObject) string {
	list := names(objs)
	if len(list) > maxExamples {
		list = list[:maxExamples]
	}
	return fmt.Sprintf("%d %s found; first examples: %s", len(objs), noun, strings.Join(list, ", "))
}

func names(objs []model.DbObject) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.ObjectName()
	}
	return out
}
