package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/koltyakov/pgindexhealth/internal/analyze"
)

// maxConsoleObjects caps the objects printed per diagnostic.
const maxConsoleObjects = 20

// WriteConsole renders r as colored plain text. Colors follow
// color.NoColor, so redirected output stays plain.
func WriteConsole(w io.Writer, r Report) error {
	bold := color.New(color.Bold)

	fmt.Fprintf(w, "%s %s (schema %s, run %s)\n", bold.Sprint("pgindexhealth"), r.Meta.Version, r.Meta.Schema, r.Meta.RunID)
	for _, h := range r.Server.Hosts {
		fmt.Fprintf(w, "  %s %-8s %s\n", h.Host, h.Role, h.Version)
	}
	fmt.Fprintln(w)

	failed, clean := 0, 0
	for _, d := range r.Diagnostics {
		switch {
		case d.Failed():
			failed++
			fmt.Fprintf(w, "%s %s: %s\n", color.RedString("✘"), d.ID, d.Error)
		case len(d.Objects) == 0:
			clean++
			fmt.Fprintf(w, "%s %s\n", color.GreenString("✔"), d.ID)
		default:
			fmt.Fprintf(w, "%s %s: %d found\n", color.YellowString("●"), d.ID, len(d.Objects))
			for i, o := range d.Objects {
				if i == maxConsoleObjects {
					fmt.Fprintf(w, "\t... and %d more\n", len(d.Objects)-maxConsoleObjects)
					break
				}
				fmt.Fprintf(w, "\t%s\n", color.CyanString(o.Detail))
			}
		}
	}
	fmt.Fprintln(w)

	writeFindings(w, "Warnings", r.Analysis.Warnings)
	writeFindings(w, "Recommendations", r.Analysis.Recommendations)
	writeFindings(w, "Info", r.Analysis.Infos)

	// Summary
	if failed == 0 && clean == len(r.Diagnostics) {
		fmt.Fprintln(w, color.GreenString("✔ No index health issues found! Great job."))
		return nil
	}
	fmt.Fprintf(w, "%d diagnostics: %d clean, %d with findings, %d failed.\n",
		len(r.Diagnostics), clean, len(r.Diagnostics)-clean-failed, failed)
	return nil
}

func writeFindings(w io.Writer, title string, list []analyze.Finding) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintln(w, color.New(color.Bold, color.Underline).Sprint(title))
	for _, f := range list {
		fmt.Fprintf(w, "[%s] %s (%s)\n", severityColor(f.Severity).Sprint(f.Severity), f.Title, f.Code)
		fmt.Fprintf(w, "\t%s\n", f.Description)
		if f.Action != "" {
			fmt.Fprintf(w, "\tSuggestion: %s\n", f.Action)
		}
	}
	fmt.Fprintln(w)
}

func severityColor(severity string) *color.Color {
	switch severity {
	case analyze.SeverityWarn:
		return color.New(color.FgYellow, color.Bold)
	case analyze.SeverityRec:
		return color.New(color.FgBlue, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}
