package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/rules"
)

// checkSegmentation evaluates one SEGMENTATION_COMPLETENESS rule:
// completeness of the required anatomical range, audit of optional
// variant labels, and the topological ordering of present segments.
func (e *Engine) checkSegmentation(r rules.Rule, a annot.Annotation) []Finding {
	p := r.Segmentation
	group := e.cfg.RangeGroups[p.RequiredGroup]
	groupSet := make(map[string]bool, len(group))
	for _, l := range group {
		groupSet[l] = true
	}
	optionalSet := make(map[string]bool, len(p.OptionalLabels))
	for _, l := range p.OptionalLabels {
		optionalSet[l] = true
	}

	// First centroid per label among shapes of the expected kind.
	centers := make(map[string]annot.Point)
	for _, s := range a.Shapes {
		if s.Kind != p.LabelKind {
			continue
		}
		if _, seen := centers[s.Label]; seen {
			continue
		}
		if c, ok := s.Centroid(); ok {
			centers[s.Label] = c
		}
	}

	var findings []Finding

	// Completeness. Fewer present members than the minimum is FAIL;
	// any other missing subset is a single WARNING.
	var missing []string
	presentRequired := 0
	for _, l := range group {
		if _, ok := centers[l]; ok {
			presentRequired++
		} else {
			missing = append(missing, l)
		}
	}
	switch {
	case len(group) > 0 && presentRequired < p.RequiredMinCount:
		findings = append(findings, Finding{
			RuleID:   r.ID,
			Code:     CodeMissingRequiredGroup,
			Severity: rules.SeverityFail,
			Labels:   missing,
			Message: fmt.Sprintf("required range '%s': %d of %d segments present, minimum is %d",
				p.RequiredGroup, presentRequired, len(group), p.RequiredMinCount),
		})
	case len(missing) > 0:
		findings = append(findings, Finding{
			RuleID:   r.ID,
			Code:     CodeMissingRequiredLabel,
			Severity: rules.SeverityWarning,
			Labels:   missing,
			Message: fmt.Sprintf("required range '%s' is missing %d segment(s): %s",
				p.RequiredGroup, len(missing), strings.Join(missing, ", ")),
		})
	}

	// Optional anatomical variants are audit-only, never defects.
	var presentOptional []string
	for l := range centers {
		if optionalSet[l] {
			presentOptional = append(presentOptional, l)
		}
	}
	sort.Strings(presentOptional)
	if len(presentOptional) > 0 {
		findings = append(findings, Finding{
			RuleID:   r.ID,
			Code:     CodeOptionalVertebra,
			Severity: rules.SeverityWarning,
			Labels:   presentOptional,
			Message:  "optional vertebra detected: " + strings.Join(presentOptional, ", "),
		})
	}

	if p.SequenceCheck {
		if f, bad := e.checkSequence(r.ID, centers, groupSet, optionalSet); bad {
			findings = append(findings, f)
		}
	}

	return findings
}

// checkSequence asserts that present segment centroids are Y-ascending
// when sorted by canonical anatomical order. Ties within tolerance are
// non-violations. At most one finding is produced, listing every
// inverted adjacent pair.
func (e *Engine) checkSequence(ruleID string, centers map[string]annot.Point, groupSet, optionalSet map[string]bool) (Finding, bool) {
	type segment struct {
		label string
		y     float64
	}
	var ordered []segment
	for _, label := range e.cfg.Settings.SpinalSequence {
		if !groupSet[label] && !optionalSet[label] {
			continue
		}
		if c, ok := centers[label]; ok {
			ordered = append(ordered, segment{label: label, y: c.Y})
		}
	}
	if len(ordered) < 2 {
		return Finding{}, false
	}

	prev := segment{y: math.Inf(-1)}
	var pairs []string
	var labels []string
	for _, seg := range ordered {
		if seg.y < prev.y-e.tolerance {
			pairs = append(pairs, fmt.Sprintf("'%s'(Y=%.1f) should be above '%s'(Y=%.1f)",
				prev.label, prev.y, seg.label, seg.y))
			labels = append(labels, prev.label, seg.label)
		}
		prev = seg
	}
	if len(pairs) == 0 {
		return Finding{}, false
	}
	return Finding{
		RuleID:   ruleID,
		Code:     CodeTopologyInversion,
		Severity: rules.SeverityFail,
		Labels:   labels,
		Message:  "vertebral ordering inverted: " + strings.Join(pairs, "; "),
	}, true
}
