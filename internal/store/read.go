package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/engine"
	"github.com/spinelab/vertqc/internal/rules"
)

// RunRecord is one stored run header.
type RunRecord struct {
	RunID       string
	CreatedAt   time.Time
	Dataset     string
	Tool        string
	View        annot.View
	StructureID string
	Total       int
	Passed      int
	Warnings    int
	Failed      int
}

// ListRuns returns stored runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_at, dataset, tool, view, structure_id, total, passed, warnings, failed
		FROM runs ORDER BY created_at DESC, run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var createdAt, view string
		if err := rows.Scan(&r.RunID, &createdAt, &r.Dataset, &r.Tool, &view,
			&r.StructureID, &r.Total, &r.Passed, &r.Warnings, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.View = annot.View(view)
		if r.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FindingsForCase returns the stored findings of one case in one run,
// in insertion order.
func (s *Store) FindingsForCase(ctx context.Context, runID, caseID string) ([]engine.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.rule_id, f.code, f.severity, f.labels, f.message
		FROM findings f
		JOIN case_results c ON c.id = f.case_ref
		WHERE c.run_id = ? AND c.case_id = ?
		ORDER BY f.id`,
		runID, caseID)
	if err != nil {
		return nil, fmt.Errorf("query findings: %w", err)
	}
	defer rows.Close()

	var findings []engine.Finding
	for rows.Next() {
		var f engine.Finding
		var code, severity, labels string
		if err := rows.Scan(&f.RuleID, &code, &severity, &labels, &f.Message); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		f.Code = engine.FindingCode(code)
		f.Severity = rules.Severity(severity)
		f.CaseID = caseID
		if err := json.Unmarshal([]byte(labels), &f.Labels); err != nil {
			return nil, fmt.Errorf("decode labels: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// CaseStatuses returns case_id -> status for one run.
func (s *Store) CaseStatuses(ctx context.Context, runID string) (map[string]engine.CaseStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT case_id, status FROM case_results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	statuses := make(map[string]engine.CaseStatus)
	for rows.Next() {
		var caseID, status string
		if err := rows.Scan(&caseID, &status); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		statuses[caseID] = engine.CaseStatus(status)
	}
	return statuses, rows.Err()
}
