package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spinelab/vertqc/internal/runner"
)

// WriteRun persists one run summary in a single transaction. Either
// the whole run lands in the audit trail or none of it does.
func (s *Store) WriteRun(ctx context.Context, summary *runner.Summary, createdAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, dataset, tool, view, structure_id, total, passed, warnings, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID, createdAt.UTC().Format(time.RFC3339), summary.Dataset,
		summary.Tool, string(summary.View), summary.StructureID,
		summary.Total, summary.Passed, summary.Warnings, summary.Failed)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", summary.RunID, err)
	}

	for _, c := range summary.Cases {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO case_results (run_id, case_id, status)
			VALUES (?, ?, ?)`,
			summary.RunID, c.CaseID, string(c.Status))
		if err != nil {
			return fmt.Errorf("insert case %s: %w", c.CaseID, err)
		}
		caseRef, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("case row id for %s: %w", c.CaseID, err)
		}

		for _, f := range c.Findings {
			labels, err := json.Marshal(f.Labels)
			if err != nil {
				return fmt.Errorf("marshal labels for %s: %w", c.CaseID, err)
			}
			_, err = tx.ExecContext(ctx, `
				INSERT INTO findings (case_ref, rule_id, code, severity, labels, message)
				VALUES (?, ?, ?, ?, ?, ?)`,
				caseRef, f.RuleID, string(f.Code), string(f.Severity), string(labels), f.Message)
			if err != nil {
				return fmt.Errorf("insert finding for %s: %w", c.CaseID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", summary.RunID, err)
	}
	return nil
}
