// Package runner discovers annotation cases on disk and drives them
// through the adapter and the rule engine, aggregating per-case results
// into a run summary. Discovery order never affects results: cases are
// evaluated in sorted case-id order and each case is independent.
package runner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/spinelab/vertqc/internal/adapter"
	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/engine"
	"github.com/spinelab/vertqc/internal/rules"
)

// Dataset layout kinds (data_structure.file_type).
const (
	FileTypeSingle    = "single_file"
	FileTypeDirectory = "directory"
)

// CodeCaseError marks a case that could not be parsed at all. The
// runner synthesizes it so an unreadable case surfaces as a FAIL in
// the same report as rule findings instead of aborting the run.
const CodeCaseError engine.FindingCode = "CASE_ERROR"

// CaseResult is the outcome of one case.
type CaseResult struct {
	CaseID   string            `json:"case_id"`
	Tool     string            `json:"tool"`
	View     annot.View        `json:"view"`
	Status   engine.CaseStatus `json:"status"`
	Findings []engine.Finding  `json:"findings,omitempty"`
}

// Summary aggregates one full run.
type Summary struct {
	RunID       string       `json:"run_id"`
	Dataset     string       `json:"dataset"`
	Tool        string       `json:"tool"`
	View        annot.View   `json:"view"`
	StructureID string       `json:"structure_id"`
	Total       int          `json:"total"`
	Passed      int          `json:"passed"`
	Warnings    int          `json:"warnings"`
	Failed      int          `json:"failed"`
	Cases       []CaseResult `json:"cases"`
}

// Runner executes QC runs for one configuration.
type Runner struct {
	cfg      *rules.Config
	parser   *adapter.Parser
	eng      *engine.Engine
	tmpl     *Template
	fileType string
	log      *slog.Logger
}

// New wires a runner from a loaded configuration. The structure id and
// tool template were already cross-checked at load time.
func New(cfg *rules.Config, log *slog.Logger) (*Runner, error) {
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := CompileTemplate(cfg.PathTemplates[cfg.RunContext.StructureID])
	if err != nil {
		return nil, err
	}
	parser, err := adapter.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:      cfg,
		parser:   parser,
		eng:      engine.New(cfg),
		tmpl:     tmpl,
		fileType: cfg.DataStructure[cfg.RunContext.AnnotatorTool].FileType,
		log:      log,
	}, nil
}

type discovered struct {
	caseID string
	rel    string
}

// Run discovers every case under base and evaluates them all. A case
// that cannot be parsed is recorded as a FAIL and the run continues;
// only discovery-level failures abort.
func (r *Runner) Run(ctx context.Context, base string) (*Summary, error) {
	matches, err := r.discover(base)
	if err != nil {
		return nil, err
	}
	r.log.Info("discovered cases",
		slog.String("base", base),
		slog.String("template", r.tmpl.String()),
		slog.Int("count", len(matches)))

	summary := &Summary{
		RunID:       uuid.NewString(),
		Dataset:     filepath.Base(filepath.Clean(base)),
		Tool:        r.cfg.RunContext.AnnotatorTool,
		View:        r.cfg.RunContext.DataView,
		StructureID: r.cfg.RunContext.StructureID,
	}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := r.evaluateCase(base, m)
		summary.Cases = append(summary.Cases, result)
		summary.Total++
		switch result.Status {
		case engine.StatusPass:
			summary.Passed++
		case engine.StatusWarning:
			summary.Warnings++
		case engine.StatusFail:
			summary.Failed++
		}
	}
	return summary, nil
}

// discover matches the path template over the dataset tree and returns
// the cases sorted by case id.
func (r *Runner) discover(base string) ([]discovered, error) {
	var matches []discovered
	err := doublestar.GlobWalk(os.DirFS(base), r.tmpl.Glob(), func(path string, d fs.DirEntry) error {
		if d.IsDir() != (r.fileType == FileTypeDirectory) {
			return nil
		}
		caseID, ok := r.tmpl.Match(path)
		if !ok {
			return nil
		}
		matches = append(matches, discovered{caseID: caseID, rel: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discovering cases under %s: %w", base, err)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].caseID != matches[j].caseID {
			return matches[i].caseID < matches[j].caseID
		}
		return matches[i].rel < matches[j].rel
	})
	return matches, nil
}

func (r *Runner) evaluateCase(base string, m discovered) CaseResult {
	result := CaseResult{
		CaseID: m.caseID,
		Tool:   r.cfg.RunContext.AnnotatorTool,
		View:   r.cfg.RunContext.DataView,
	}

	a, err := r.parser.Parse(filepath.Join(base, filepath.FromSlash(m.rel)), m.caseID)
	if err != nil {
		r.log.Error("case parse failed",
			slog.String("case", m.caseID),
			slog.String("path", m.rel),
			slog.Any("error", err))
		result.Findings = []engine.Finding{{
			RuleID:   engine.RuleIDCaseAudit,
			Code:     CodeCaseError,
			Severity: rules.SeverityFail,
			Message:  err.Error(),
			CaseID:   m.caseID,
		}}
		result.Status = engine.StatusFail
		return result
	}

	result.Findings = r.eng.Evaluate(a)
	result.Status = engine.Status(result.Findings)
	r.log.Debug("case evaluated",
		slog.String("case", m.caseID),
		slog.String("status", string(result.Status)),
		slog.Int("findings", len(result.Findings)))
	return result
}
