package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// promptData is a minimal schema we export for LLM consumption.
type promptData struct {
	Schema      string             `json:"schema"`
	Hosts       []promptHost       `json:"hosts"`
	Diagnostics []promptDiagnostic `json:"diagnostics"`
}

type promptHost struct {
	Host    string `json:"host"`
	Role    string `json:"role"`
	Version string `json:"version,omitempty"`
}

type promptDiagnostic struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Policy      string         `json:"policy"`
	Objects     []promptObject `json:"objects"`
	Truncated   int            `json:"truncated,omitempty"`
}

type promptObject struct {
	Name       string  `json:"name"`
	Table      string  `json:"table,omitempty"`
	SizeBytes  int64   `json:"size_bytes,omitempty"`
	BloatBytes int64   `json:"bloat_bytes,omitempty"`
	BloatPct   float64 `json:"bloat_pct,omitempty"`
	Detail     string  `json:"detail"`
}

// maxPromptObjects keeps the prompt manageable on large schemas.
const maxPromptObjects = 50

// PromptPath is the sidecar path for a report written to outPath, or "" for stdout.
func PromptPath(outPath string) string {
	if outPath == Stdout || strings.TrimSpace(outPath) == "" {
		return ""
	}
	return strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".prompt.txt"
}

// WritePrompt writes a sidecar .prompt.txt next to the report with the actual findings for LLM analysis.
func WritePrompt(outPath string, r Report) (string, error) {
	promptPath := PromptPath(outPath)
	if promptPath == "" {
		return "", nil // nothing to do for stdout
	}

	pd := promptData{Schema: r.Meta.Schema}
	for _, h := range r.Server.Hosts {
		pd.Hosts = append(pd.Hosts, promptHost{Host: h.Host, Role: h.Role, Version: h.Version})
	}
	// Only diagnostics with findings are worth the model's attention
	for _, d := range r.Diagnostics {
		if d.Failed() || len(d.Objects) == 0 {
			continue
		}
		pdg := promptDiagnostic{ID: d.ID, Description: d.Description, Policy: d.Policy}
		for i, o := range d.Objects {
			if i == maxPromptObjects {
				pdg.Truncated = len(d.Objects) - maxPromptObjects
				break
			}
			pdg.Objects = append(pdg.Objects, promptObject{
				Name: o.Name, Table: o.Table, SizeBytes: o.SizeBytes,
				BloatBytes: o.BloatBytes, BloatPct: o.BloatPct, Detail: o.Detail,
			})
		}
		pd.Diagnostics = append(pd.Diagnostics, pdg)
	}

	payload, err := json.MarshalIndent(pd, "", "  ")
	if err != nil {
		return "", err
	}

	// Compose final prompt with instructions and payload
	var b strings.Builder
	b.WriteString("PostgreSQL index health assistant, environment-specific prompt\n\n")
	b.WriteString("Role\nYou are a senior PostgreSQL engineer. Using the provided findings from a pgindexhealth run across a primary and its replicas, produce concrete, safe, and prioritized remediation steps. Prefer specific DDL over general advice. Call out risks and validation steps.\n\n")
	b.WriteString("Output sections: Summary; Indexes to drop; Indexes to create; Table and sequence fixes; Maintenance plan; Appendix (assumptions).\n\n")
	b.WriteString("Constraints: Unused index findings already exclude indexes used on any replica. Never drop PK/UNIQUE/constraint-backed indexes. Use CONCURRENTLY for index DDL on live systems.\n\n")
	b.WriteString("INPUT START\n")
	b.Write(payload)
	b.WriteString("\nINPUT END\n")

	if err := os.WriteFile(promptPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}
	return promptPath, nil
}
