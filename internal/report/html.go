package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// WriteHTML renders r with the embedded template.
func WriteHTML(w io.Writer, r Report) error {
	tmpl, err := template.New("report").Funcs(funcMap).Parse(reportHTML)
	if err != nil {
		return fmt.Errorf("parse template: %w", err)
	}

	// Sort numerical metrics descending so greater numbers show on top
	diags := make([]DiagnosticView, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		objs := append([]ObjectView(nil), d.Objects...)
		sort.SliceStable(objs, func(i, j int) bool {
			if objs[i].SizeBytes != objs[j].SizeBytes {
				return objs[i].SizeBytes > objs[j].SizeBytes
			}
			return objs[i].Name < objs[j].Name
		})
		d.Objects = objs
		diags[i] = d
	}

	// Aggregate estimated reclaimable space across bloat findings
	reclaimTotal := int64(0)
	showSize, showBloat := map[string]bool{}, map[string]bool{}
	failed, withFindings := 0, 0
	for _, d := range diags {
		if d.Failed() {
			failed++
		} else if len(d.Objects) > 0 {
			withFindings++
		}
		for _, o := range d.Objects {
			reclaimTotal += o.BloatBytes
			if o.SizeBytes > 0 {
				showSize[d.ID] = true
			}
			if o.BloatBytes > 0 || o.BloatPct > 0 {
				showBloat[d.ID] = true
			}
		}
	}

	summary := func() string {
		switch {
		case len(diags) == 0:
			return "No diagnostics were run."
		case failed == 0 && withFindings == 0:
			return fmt.Sprintf("Healthy: all %d diagnostics came back clean.", len(diags))
		case failed > 0:
			return fmt.Sprintf("Attention: %d of %d diagnostics failed; results are incomplete.", failed, len(diags))
		default:
			return fmt.Sprintf("%d of %d diagnostics reported findings.", withFindings, len(diags))
		}
	}()

	data := struct {
		R            Report
		Diagnostics  []DiagnosticView
		ShowSize     map[string]bool
		ShowBloat    map[string]bool
		ReclaimTotal int64
		Summary      string
		Failed       int
		WithFindings int
	}{
		R: r, Diagnostics: diags, ShowSize: showSize, ShowBloat: showBloat,
		ReclaimTotal: reclaimTotal, Summary: summary, Failed: failed, WithFindings: withFindings,
	}
	return tmpl.Execute(w, data)
}

var funcMap = template.FuncMap{
	"bytes":    fmtBytesStr,
	"duration": humanizeDuration,
	"pct":      func(f float64) string { return fmtFloatPrecSep(f, 1) + "%" },
	"num":      func(n int) string { return addThousands(strconv.Itoa(n)) },
	"ts":       func(t time.Time) string { return t.Format(time.RFC3339) },
	"tsPtr": func(t *time.Time) string {
		if t == nil {
			return "never"
		}
		return t.Format(time.RFC3339)
	},
	"anchor": func(s string) string { return "diag-" + strings.ReplaceAll(s, "_", "-") },
}

// fmtFloatPrecSep formats a float with fixed precision and thousands separators in the integer part
func fmtFloatPrecSep(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	intPart, frac, found := strings.Cut(s, ".")
	if !found {
		return addThousands(s)
	}
	return addThousands(intPart) + "." + frac
}

// addThousands inserts commas as thousands separators into a numeric string (handles leading '-')
func addThousands(s string) string {
	if s == "" {
		return s
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i := 0; i < n; i++ {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// humanizeDuration renders a duration like "4d 1h 25m" or "1h 25m 42s"
func humanizeDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	// For very short durations, prefer milliseconds
	if d < time.Second {
		if d <= 0 {
			return "0ms"
		}
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	d = d.Round(time.Second)
	if d < time.Minute {
		return d.String()
	}

	total := int64(d.Seconds())
	days := total / 86400
	total %= 86400
	hours := total / 3600
	total %= 3600
	mins := total / 60
	secs := total % 60

	parts := make([]string, 0, 4)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	// seconds only while fewer than three larger units are shown
	if secs > 0 && len(parts) < 3 {
		parts = append(parts, fmt.Sprintf("%ds", secs))
	}
	return strings.Join(parts, " ")
}

// fmtBytesStr converts bytes into a human readable string with units (B, KB, MB, GB, TB)
func fmtBytesStr(b int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB"}
	f := float64(b)
	i := 0
	for f >= 1024 && i < len(units)-1 {
		f /= 1024
		i++
	}
	return fmtFloatPrecSep(f, 2) + " " + units[i]
}

//go:embed template.html
var reportHTML string
