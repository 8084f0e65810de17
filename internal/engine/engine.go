package engine

import (
	"sort"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/rules"
)

// Engine evaluates the configured rule set against one canonical
// annotation at a time. Immutable after New; safe for concurrent use.
type Engine struct {
	cfg       *rules.Config
	tolerance float64

	// order maps a spinal label to its index in the canonical
	// top-to-bottom sequence (C0 first).
	order map[string]int

	// universe lists, per view, every standardized label some enabled
	// rule covers. Shapes outside it are unexpected annotations.
	universe map[annot.View]map[string]bool
}

// New builds an engine from a loaded configuration. The configuration
// must already be normalized and validated (rules.Load guarantees both).
func New(cfg *rules.Config) *Engine {
	e := &Engine{
		cfg:       cfg,
		tolerance: cfg.Settings.PositionTolerance,
		order:     make(map[string]int, len(cfg.Settings.SpinalSequence)),
		universe:  make(map[annot.View]map[string]bool, 2),
	}
	for i, label := range cfg.Settings.SpinalSequence {
		e.order[label] = i
	}
	for _, view := range []annot.View{annot.ViewAP, annot.ViewLAT} {
		e.universe[view] = make(map[string]bool)
	}
	for _, r := range cfg.Rules {
		if !r.IsEnabled() {
			continue
		}
		u := e.universe[r.View]
		if r.Point != nil {
			for _, t := range r.Point.Targets {
				u[t.Label] = true
			}
			for _, p := range r.Point.Positions {
				u[p.Target] = true
				if p.RelativeTo != "" {
					u[p.RelativeTo] = true
				}
			}
		}
		if r.Segmentation != nil {
			for _, l := range cfg.RangeGroups[r.Segmentation.RequiredGroup] {
				u[l] = true
			}
			for _, l := range r.Segmentation.OptionalLabels {
				u[l] = true
			}
		}
	}
	return e
}

// Evaluate runs every enabled rule for the annotation's view and
// returns the ordered finding list. It never short-circuits: all rules
// run against all applicable shapes.
func (e *Engine) Evaluate(a annot.Annotation) []Finding {
	var findings []Finding

	for _, r := range e.cfg.Rules {
		if !r.IsEnabled() || r.View != a.View {
			continue
		}
		switch r.Kind {
		case rules.KindPointPosition:
			findings = append(findings, e.checkPointPosition(r, a)...)
		case rules.KindSegmentation:
			findings = append(findings, e.checkSegmentation(r, a)...)
		default:
			findings = append(findings, Finding{
				RuleID:   r.ID,
				Code:     CodeUnknownRuleKind,
				Severity: rules.SeverityWarning,
				Message:  "unknown check type " + r.Kind,
			})
		}
	}

	findings = append(findings, e.checkDroppedLabels(a)...)
	findings = append(findings, e.checkUnexpectedLabels(a)...)

	for i := range findings {
		findings[i].CaseID = a.CaseID
	}
	return findings
}

// checkDroppedLabels surfaces raw labels the adapter dropped because no
// mapping entry exists. One WARNING per raw label; a novel label never
// blocks review of an otherwise valid case.
func (e *Engine) checkDroppedLabels(a annot.Annotation) []Finding {
	var findings []Finding
	for _, d := range a.Dropped {
		findings = append(findings, Finding{
			RuleID:   RuleIDCaseAudit,
			Code:     CodeUnmappedLabel,
			Severity: rules.SeverityWarning,
			Labels:   []string{d.Raw},
			Message:  "raw label " + quoted(d.Raw) + " has no mapping entry for view " + string(a.View),
		})
	}
	return findings
}

// checkUnexpectedLabels reports shapes whose standardized label is not
// declared by any enabled rule for the view. One WARNING per distinct
// label, in sorted order for determinism.
func (e *Engine) checkUnexpectedLabels(a annot.Annotation) []Finding {
	covered := e.universe[a.View]
	seen := make(map[string]bool)
	var unexpected []string
	for _, s := range a.Shapes {
		if covered[s.Label] || seen[s.Label] {
			continue
		}
		seen[s.Label] = true
		unexpected = append(unexpected, s.Label)
	}
	sort.Strings(unexpected)

	var findings []Finding
	for _, label := range unexpected {
		findings = append(findings, Finding{
			RuleID:   RuleIDCaseAudit,
			Code:     CodeUnexpectedLabel,
			Severity: rules.SeverityWarning,
			Labels:   []string{label},
			Message:  "unexpected annotation present: " + quoted(label) + " is not covered by any enabled rule",
		})
	}
	return findings
}

func quoted(s string) string {
	return "'" + s + "'"
}
