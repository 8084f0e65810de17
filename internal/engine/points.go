package engine

import (
	"fmt"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/rules"
)

// checkPointPosition evaluates one POINT_POSITION_CHECK rule: existence
// of required targets, shape kind expectations, laterality and relative
// position constraints.
func (e *Engine) checkPointPosition(r rules.Rule, a annot.Annotation) []Finding {
	var findings []Finding

	// Existence. Total omission of the required set is FAIL; partial
	// omission is WARNING (deliberate policy asymmetry).
	var required, missing []string
	for _, t := range r.Point.Targets {
		if !t.Required {
			continue
		}
		required = append(required, t.Label)
		if !a.Has(t.Label) {
			missing = append(missing, t.Label)
		}
	}
	switch {
	case len(required) > 0 && len(missing) == len(required):
		findings = append(findings, Finding{
			RuleID:   r.ID,
			Code:     CodeMissingRequiredGroup,
			Severity: rules.SeverityFail,
			Labels:   missing,
			Message:  fmt.Sprintf("all %d required landmarks are missing", len(missing)),
		})
	case len(missing) > 0:
		findings = append(findings, Finding{
			RuleID:   r.ID,
			Code:     CodeMissingRequiredLabel,
			Severity: rules.SeverityWarning,
			Labels:   missing,
			Message:  fmt.Sprintf("%d of %d required landmarks are missing", len(missing), len(required)),
		})
	}

	// Kind expectations. A wrong primitive signals wrong tool usage;
	// its positional checks are skipped because the geometry cannot be
	// trusted.
	mismatched := make(map[string]bool)
	for _, t := range r.Point.Targets {
		s, ok := a.Shape(t.Label)
		if !ok {
			continue
		}
		if s.Kind != t.Kind {
			mismatched[t.Label] = true
			findings = append(findings, Finding{
				RuleID:   r.ID,
				Code:     CodeTypeMismatch,
				Severity: rules.SeverityFail,
				Labels:   []string{t.Label},
				Message:  fmt.Sprintf("shape kind is %s, rule expects %s", s.Kind, t.Kind),
			})
		}
	}

	for _, p := range r.Point.Positions {
		if mismatched[p.Target] {
			continue
		}
		s, ok := a.Shape(p.Target)
		if !ok {
			continue // absence already handled by the existence check
		}
		c, ok := s.Centroid()
		if !ok {
			continue
		}

		switch p.Check {
		case rules.CheckAbsoluteX:
			if f, bad := e.checkLaterality(r.ID, p, c); bad {
				findings = append(findings, f)
			}
		case rules.CheckRelativeX, rules.CheckRelativeY:
			if f, bad := e.checkRelative(r.ID, p, c, a); bad {
				findings = append(findings, f)
			}
		}
	}

	return findings
}

// checkLaterality verifies the target's x-coordinate lies on the
// configured half of the image. A violation indicates a left/right
// transposition, always FAIL.
func (e *Engine) checkLaterality(ruleID string, p rules.PositionRule, c annot.Point) (Finding, bool) {
	tol := e.tol(p)
	var violated bool
	switch p.Operator {
	case "<":
		violated = c.X >= p.Threshold+tol
	case ">":
		violated = c.X <= p.Threshold-tol
	}
	if !violated {
		return Finding{}, false
	}
	return Finding{
		RuleID:   ruleID,
		Code:     CodeLateralityViolation,
		Severity: rules.SeverityFail,
		Labels:   []string{p.Target},
		Message: fmt.Sprintf("%s: X=%.1f, expected X %s %.1f", describeRule(p),
			c.X, p.Operator, p.Threshold),
	}, true
}

// checkRelative compares the target coordinate against a reference
// landmark with graduated severity: inside tolerance passes, inside
// the secondary margin is WARNING, beyond is the configured severity.
func (e *Engine) checkRelative(ruleID string, p rules.PositionRule, c annot.Point, a annot.Annotation) (Finding, bool) {
	ref, ok := e.referenceCenter(a, p.RelativeTo)
	if !ok {
		return Finding{
			RuleID:   ruleID,
			Code:     CodeMissingReference,
			Severity: rules.SeverityWarning,
			Labels:   []string{p.Target, p.RelativeTo},
			Message:  fmt.Sprintf("reference landmark '%s' is missing, relative check skipped", p.RelativeTo),
		}, true
	}

	value, refValue := c.Y, ref.Y
	axis := "Y"
	if p.Check == rules.CheckRelativeX {
		value, refValue = c.X, ref.X
		axis = "X"
	}

	// Deviation beyond the satisfied direction; <=0 satisfies the rule.
	var deviation float64
	switch p.Operator {
	case "<":
		deviation = value - refValue
	case ">":
		deviation = refValue - value
	}

	tol := e.tol(p)
	if deviation <= tol {
		return Finding{}, false
	}

	severity := rules.SeverityWarning
	if deviation > tol+p.Margin {
		severity = p.Severity
	}
	return Finding{
		RuleID:   ruleID,
		Code:     CodeRelativePosition,
		Severity: severity,
		Labels:   []string{p.Target, p.RelativeTo},
		Message: fmt.Sprintf("%s: %s=%.1f violates %s %s %s=%.1f by %.1f", describeRule(p),
			axis, value, p.Operator, p.RelativeTo, axis, refValue, deviation),
	}, true
}

// referenceCenter resolves a reference landmark's center. When the
// landmark is absent but belongs to the spinal sequence, a simulated
// center on the midline is used so relative checks against vertebrae
// still work on keypoint-only annotations.
func (e *Engine) referenceCenter(a annot.Annotation, label string) (annot.Point, bool) {
	if s, ok := a.Shape(label); ok {
		if c, ok := s.Centroid(); ok {
			return c, true
		}
	}
	idx, ok := e.order[label]
	if !ok {
		return annot.Point{}, false
	}
	// Linear ramp over the sequence: C0 near y=50, the last lumbar
	// level near y=800. Mirrors the source convention for simulated
	// vertebral centers.
	y := 50 + float64(idx)*(750/float64(len(e.cfg.Settings.SpinalSequence)))
	return annot.Point{X: 500, Y: y}, true
}

// tol returns the position rule's tolerance, falling back to the
// run-wide default.
func (e *Engine) tol(p rules.PositionRule) float64 {
	if p.Tolerance != nil {
		return *p.Tolerance
	}
	return e.tolerance
}

// describeRule prefers the configured human message over a generated one.
func describeRule(p rules.PositionRule) string {
	if p.Message != "" {
		return p.Message
	}
	return fmt.Sprintf("'%s' %s check", p.Target, p.Check)
}
