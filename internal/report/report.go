// Package report renders a run summary into the reviewer-facing text
// report. Rendering is pure: the same summary and run info produce
// byte-identical output, so reports are diffable across runs.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spinelab/vertqc/internal/engine"
	"github.com/spinelab/vertqc/internal/runner"
)

// RunInfo carries the report header fields the summary itself does not
// own. The timestamp is injected by the caller so rendering stays
// deterministic.
type RunInfo struct {
	Timestamp time.Time
	DataPath  string
}

// Render produces the full text report.
func Render(s *runner.Summary, info RunInfo) string {
	var b strings.Builder

	b.WriteString("QC Report Summary\n")
	b.WriteString("=================\n")
	fmt.Fprintf(&b, "Generated:  %s\n", info.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run ID:     %s\n", s.RunID)
	fmt.Fprintf(&b, "Tool:       %s\n", s.Tool)
	fmt.Fprintf(&b, "View:       %s\n", s.View)
	fmt.Fprintf(&b, "Structure:  %s\n", s.StructureID)
	fmt.Fprintf(&b, "Data path:  %s\n", info.DataPath)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Total cases: %d\n", s.Total)
	fmt.Fprintf(&b, "Passed:      %d\n", s.Passed)
	fmt.Fprintf(&b, "Warnings:    %d\n", s.Warnings)
	fmt.Fprintf(&b, "Failed:      %d\n", s.Failed)

	for _, c := range reviewOrder(s.Cases) {
		b.WriteString("\n")
		fmt.Fprintf(&b, "--- CASE: %s (%s) ---\n", c.CaseID, c.Status)
		for _, f := range c.Findings {
			fmt.Fprintf(&b, "  %s\n", f)
		}
	}

	if s.Total > 0 && s.Passed == s.Total {
		b.WriteString("\nCongratulations! All cases passed QC.\n")
	}
	return b.String()
}

// reviewOrder returns the cases a reviewer must look at: failures
// first, then warnings, each block sorted by case id. Passing cases
// are counted in the totals but not listed.
func reviewOrder(cases []runner.CaseResult) []runner.CaseResult {
	var out []runner.CaseResult
	for _, c := range cases {
		if c.Status != engine.StatusPass {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Status == engine.StatusFail) != (out[j].Status == engine.StatusFail) {
			return out[i].Status == engine.StatusFail
		}
		return out[i].CaseID < out[j].CaseID
	})
	return out
}

// FileName derives the report file name from the dataset base name.
func FileName(dataset string) string {
	return fmt.Sprintf("qc_report_summary_%s.txt", dataset)
}

// Write renders the report into dir and returns the written path.
func Write(dir string, s *runner.Summary, info RunInfo) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(s.Dataset))
	if err := os.WriteFile(path, []byte(Render(s, info)), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}
