package engine

import (
	"fmt"
	"strings"

	"github.com/spinelab/vertqc/internal/rules"
)

// FindingCode categorizes a deviation. Codes are stable identifiers
// intended for machine consumption (reports, the findings store).
type FindingCode string

const (
	// CodeUnmappedLabel: a raw label had no mapping entry for the view.
	CodeUnmappedLabel FindingCode = "UNMAPPED_LABEL"

	// CodeMissingRequiredGroup: an entire required label group is absent
	// (or fewer members than the configured minimum are present).
	CodeMissingRequiredGroup FindingCode = "MISSING_REQUIRED_GROUP"

	// CodeMissingRequiredLabel: part of a required group is missing
	// while the rest is present. Partial omission is a lesser defect
	// than total omission, by policy.
	CodeMissingRequiredLabel FindingCode = "MISSING_REQUIRED_LABEL"

	// CodeLateralityViolation: a side-bound landmark sits on the wrong
	// half of the image. Indicates a left/right transposition.
	CodeLateralityViolation FindingCode = "LATERALITY_VIOLATION"

	// CodeRelativePosition: a landmark violates a configured positional
	// relation against a reference landmark.
	CodeRelativePosition FindingCode = "RELATIVE_POSITION"

	// CodeMissingReference: the reference landmark of a relative check
	// is absent and cannot be simulated.
	CodeMissingReference FindingCode = "MISSING_REFERENCE"

	// CodeTypeMismatch: a shape's kind differs from what the rule
	// expects (e.g. a polygon where a point was required).
	CodeTypeMismatch FindingCode = "TYPE_MISMATCH"

	// CodeTopologyInversion: vertebral centroids violate the canonical
	// top-to-bottom ordering. The most severe class of error.
	CodeTopologyInversion FindingCode = "TOPOLOGY_INVERSION"

	// CodeOptionalVertebra: an anatomical-variant label is present.
	// Recorded for audit visibility, never a defect.
	CodeOptionalVertebra FindingCode = "OPTIONAL_VERTEBRA"

	// CodeUnexpectedLabel: a shape's label is not covered by any
	// enabled rule.
	CodeUnexpectedLabel FindingCode = "UNEXPECTED_LABEL"

	// CodeUnknownRuleKind: a rule carried an unrecognized check_type.
	// Unreachable for configurations that passed load-time validation.
	CodeUnknownRuleKind FindingCode = "UNKNOWN_RULE_KIND"
)

// RuleIDCaseAudit is the pseudo rule id for case-level findings that no
// single configured rule owns (unmapped and unexpected labels).
const RuleIDCaseAudit = "case_audit"

// Finding is one reported deviation. Pure data, created once, never
// mutated; the reporter only aggregates and renders findings.
type Finding struct {
	RuleID   string         `json:"rule_id"`
	Code     FindingCode    `json:"code"`
	Severity rules.Severity `json:"severity"`
	Labels   []string       `json:"labels,omitempty"`
	Message  string         `json:"message"`
	CaseID   string         `json:"case_id"`
}

func (f Finding) String() string {
	if len(f.Labels) > 0 {
		return fmt.Sprintf("[%s] %s/%s (%s): %s", f.Severity, f.RuleID, f.Code, strings.Join(f.Labels, ","), f.Message)
	}
	return fmt.Sprintf("[%s] %s/%s: %s", f.Severity, f.RuleID, f.Code, f.Message)
}

// CaseStatus is the rollup of one case's findings.
type CaseStatus string

const (
	StatusPass    CaseStatus = "PASS"
	StatusWarning CaseStatus = "WARNING"
	StatusFail    CaseStatus = "FAIL"
)

// Status reduces a finding list to the case's overall status:
// FAIL if any FAIL finding exists, else WARNING if any finding exists,
// else PASS. A pure reduction; no rule overrides another.
func Status(findings []Finding) CaseStatus {
	status := StatusPass
	for _, f := range findings {
		if f.Severity == rules.SeverityFail {
			return StatusFail
		}
		status = StatusWarning
	}
	return status
}
