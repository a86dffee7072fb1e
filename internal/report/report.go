// Package report renders diagnostic results in the supported output formats.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/koltyakov/pgindexhealth/internal/analyze"
	"github.com/koltyakov/pgindexhealth/internal/check"
	"github.com/koltyakov/pgindexhealth/internal/collect"
	herrors "github.com/koltyakov/pgindexhealth/internal/errors"
	"github.com/koltyakov/pgindexhealth/internal/model"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatHTML    = "html"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
)

// Stdout is the output path meaning standard output.
const Stdout = "-"

// Meta contains metadata about the run.
type Meta struct {
	RunID     string        `json:"run_id" yaml:"run_id"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
	Version   string        `json:"version" yaml:"version"`
	Schema    string        `json:"schema" yaml:"schema"`
}

// NewMeta stamps a run with a fresh identifier.
func NewMeta(version, schema string, startedAt time.Time) Meta {
	return Meta{
		RunID:     uuid.NewString(),
		StartedAt: startedAt,
		Version:   version,
		Schema:    schema,
	}
}

// Report is everything a writer renders.
type Report struct {
	Meta        Meta             `json:"meta" yaml:"meta"`
	Server      collect.Result   `json:"server" yaml:"server"`
	Diagnostics []DiagnosticView `json:"diagnostics" yaml:"diagnostics"`
	Analysis    analyze.Analysis `json:"analysis" yaml:"analysis"`
}

// DiagnosticView is one diagnostic outcome flattened for output.
type DiagnosticView struct {
	ID          string        `json:"id" yaml:"id"`
	Description string        `json:"description" yaml:"description"`
	Policy      string        `json:"policy" yaml:"policy"`
	Combiner    string        `json:"combiner,omitempty" yaml:"combiner,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Attempts    int           `json:"attempts" yaml:"attempts"`
	Error       string        `json:"error,omitempty" yaml:"error,omitempty"`
	Objects     []ObjectView  `json:"objects" yaml:"objects"`
}

// Failed reports whether the diagnostic did not complete.
func (d DiagnosticView) Failed() bool { return d.Error != "" }

// ObjectView is a database object with the measurements it is aware of.
type ObjectView struct {
	Type       string  `json:"type" yaml:"type"`
	Name       string  `json:"name" yaml:"name"`
	Table      string  `json:"table,omitempty" yaml:"table,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty" yaml:"size_bytes,omitempty"`
	BloatBytes int64   `json:"bloat_bytes,omitempty" yaml:"bloat_bytes,omitempty"`
	BloatPct   float64 `json:"bloat_pct,omitempty" yaml:"bloat_pct,omitempty"`
	Detail     string  `json:"detail" yaml:"detail"`
}

// Build assembles a report. meta.Duration is set from the clock when zero.
func Build(meta Meta, server collect.Result, results []check.Result, a analyze.Analysis) Report {
	if meta.Duration == 0 && !meta.StartedAt.IsZero() {
		meta.Duration = time.Since(meta.StartedAt)
	}
	views := make([]DiagnosticView, 0, len(results))
	for _, r := range results {
		v := DiagnosticView{
			ID:          r.Diagnostic.ID.String(),
			Description: r.Diagnostic.Description,
			Policy:      r.Diagnostic.Policy.String(),
			Combiner:    r.Diagnostic.CombinerName(),
			Duration:    r.Duration,
			Attempts:    r.Attempts,
			Objects:     make([]ObjectView, 0, len(r.Objects)),
		}
		if r.Err != nil {
			v.Error = r.Err.Error()
		}
		for _, o := range r.Objects {
			v.Objects = append(v.Objects, objectView(o))
		}
		views = append(views, v)
	}
	return Report{Meta: meta, Server: server, Diagnostics: views, Analysis: a}
}

func objectView(o model.DbObject) ObjectView {
	v := ObjectView{
		Type:   string(o.ObjectType()),
		Name:   o.ObjectName(),
		Detail: fmt.Sprint(o),
	}
	if t, ok := o.(model.TableAware); ok {
		v.Table = t.TableName()
	}
	switch s := o.(type) {
	case model.IndexSizeAware:
		v.SizeBytes = s.IndexSizeInBytes()
	case model.TableSizeAware:
		v.SizeBytes = s.TableSizeInBytes()
	}
	if b, ok := o.(model.BloatAware); ok {
		v.BloatBytes = b.BloatSizeInBytes()
		v.BloatPct = b.BloatPercentage()
	}
	return v
}

// Write renders r in format to path, or to stdout when path is Stdout.
// HTML defaults to a file because browsers open files, not streams.
func Write(stdout io.Writer, format, path string, r Report) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatConsole
	}
	render, ok := writers[format]
	if !ok {
		return "", herrors.NewReportError("format", path, fmt.Errorf("unknown format %q", format))
	}

	if path == "" || path == Stdout {
		if format == FormatHTML && path == "" {
			path = "report.html"
		} else {
			if stdout == nil {
				stdout = os.Stdout
			}
			if err := render(stdout, r); err != nil {
				return "", herrors.NewReportError("render", Stdout, err)
			}
			return Stdout, nil
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", herrors.NewReportError("write", path, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return "", herrors.NewReportError("write", path, err)
	}
	if err := renderFile(f, path, render, r); err != nil {
		return "", err
	}
	return path, nil
}

// file is the part of *os.File a report is written through.
type file interface {
	io.Writer
	Close() error
}

// renderFile renders into f and closes it, reporting a failed close.
func renderFile(f file, path string, render func(io.Writer, Report) error, r Report) error {
	if err := render(f, r); err != nil {
		_ = f.Close()
		return herrors.NewReportError("render", path, err)
	}
	if err := f.Close(); err != nil {
		return herrors.NewReportError("close", path, err)
	}
	return nil
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatConsole, FormatHTML, FormatJSON, FormatYAML}
}

// IsFormat reports whether format, in any case, has a writer.
func IsFormat(format string) bool {
	_, ok := writers[strings.ToLower(strings.TrimSpace(format))]
	return ok
}

var writers = map[string]func(io.Writer, Report) error{
	FormatConsole: WriteConsole,
	FormatHTML:    WriteHTML,
	FormatJSON:    WriteJSON,
	FormatYAML:    WriteYAML,
}
