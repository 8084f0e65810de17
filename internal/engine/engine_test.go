package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/rules"
)

// fullSequence is the canonical C0..L6 ordering used across tests.
var fullSequence = []string{
	"C0", "C1", "C2", "C3", "C4", "C5", "C6", "C7",
	"T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "T10", "T11", "T12", "T13",
	"L1", "L2", "L3", "L4", "L5", "L6",
}

// makeConfig normalizes a config around the given rules.
func makeConfig(groups map[string][]string, rs ...rules.Rule) *rules.Config {
	cfg := &rules.Config{
		Settings:    rules.Settings{SpinalSequence: fullSequence},
		RangeGroups: groups,
		Rules:       rs,
	}
	cfg.Normalize()
	return cfg
}

// pointShape builds a single keypoint shape.
func pointShape(label string, x, y float64) annot.Shape {
	return annot.Shape{Label: label, Kind: annot.KindPoint, Points: []annot.Point{{X: x, Y: y}}}
}

// polyShape builds a small triangular ring whose centroid is (500, y).
func polyShape(label string, y float64) annot.Shape {
	return annot.Shape{
		Label: label,
		Kind:  annot.KindPolygon,
		Points: []annot.Point{
			{X: 490, Y: y - 5},
			{X: 510, Y: y - 5},
			{X: 500, Y: y + 10},
		},
	}
}

func TestEvaluate_DisabledRulesContributeNothing(t *testing.T) {
	disabled := false
	cfg := makeConfig(nil, rules.Rule{
		ID:      "landmarks",
		Kind:    rules.KindPointPosition,
		View:    annot.ViewAP,
		Enabled: &disabled,
		Point: &rules.PointParams{
			Targets: []rules.TargetLabel{{Label: "C0", Required: true}},
		},
	})
	e := New(cfg)

	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP})
	assert.Empty(t, findings)
}

func TestEvaluate_ViewMismatchSkipsRule(t *testing.T) {
	cfg := makeConfig(nil, rules.Rule{
		ID:   "landmarks",
		Kind: rules.KindPointPosition,
		View: annot.ViewLAT,
		Point: &rules.PointParams{
			Targets: []rules.TargetLabel{{Label: "C0", Required: true}},
		},
	})
	e := New(cfg)

	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP})
	assert.Empty(t, findings, "LAT rule must not fire on an AP case")
}

func TestEvaluate_DroppedLabelsBecomeWarnings(t *testing.T) {
	cfg := makeConfig(nil)
	e := New(cfg)

	a := annot.Annotation{
		CaseID:  "c1",
		View:    annot.ViewAP,
		Dropped: []annot.DroppedLabel{{Raw: "mystery1"}, {Raw: "mystery2"}},
	}
	findings := e.Evaluate(a)

	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, CodeUnmappedLabel, f.Code)
		assert.Equal(t, rules.SeverityWarning, f.Severity)
		assert.Equal(t, RuleIDCaseAudit, f.RuleID)
		assert.Equal(t, "c1", f.CaseID)
	}
}

func TestEvaluate_UnexpectedLabelWarning(t *testing.T) {
	cfg := makeConfig(nil, rules.Rule{
		ID:   "landmarks",
		Kind: rules.KindPointPosition,
		View: annot.ViewAP,
		Point: &rules.PointParams{
			Targets: []rules.TargetLabel{{Label: "C7", Required: true}},
		},
	})
	e := New(cfg)

	a := annot.Annotation{
		CaseID: "c1",
		View:   annot.ViewAP,
		Shapes: []annot.Shape{
			pointShape("C7", 500, 100),
			pointShape("Zebra", 100, 100),
			pointShape("Zebra", 120, 100), // duplicates reported once
		},
	}
	findings := e.Evaluate(a)

	require.Len(t, findings, 1)
	assert.Equal(t, CodeUnexpectedLabel, findings[0].Code)
	assert.Equal(t, rules.SeverityWarning, findings[0].Severity)
	assert.Equal(t, []string{"Zebra"}, findings[0].Labels)
}

func TestEvaluate_Idempotent(t *testing.T) {
	cfg := makeConfig(
		map[string][]string{"cervical": {"C0", "C1", "C2", "C3", "C4", "C5", "C6", "C7"}},
		rules.Rule{
			ID:   "landmarks",
			Kind: rules.KindPointPosition,
			View: annot.ViewAP,
			Point: &rules.PointParams{
				Targets: []rules.TargetLabel{
					{Label: "Left_Clavicle", Required: true},
					{Label: "Right_Clavicle", Required: true},
				},
				Positions: []rules.PositionRule{
					{Target: "Left_Clavicle", Check: rules.CheckAbsoluteX, Operator: "<", Threshold: 500},
				},
			},
		},
		rules.Rule{
			ID:   "cervical_seg",
			Kind: rules.KindSegmentation,
			View: annot.ViewAP,
			Segmentation: &rules.SegParams{
				RequiredGroup: "cervical",
				SequenceCheck: true,
			},
		},
	)
	cfg.Normalize()
	e := New(cfg)

	a := annot.Annotation{
		CaseID: "c1",
		View:   annot.ViewAP,
		Shapes: []annot.Shape{
			pointShape("Left_Clavicle", 700, 150), // wrong side
			polyShape("C0", 100),
			polyShape("C2", 80), // inverted against C0
			pointShape("Rogue", 10, 10),
		},
		Dropped: []annot.DroppedLabel{{Raw: "scribble"}},
	}

	first := e.Evaluate(a)
	second := e.Evaluate(a)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second, "same annotation and rules must yield an identical, order-stable finding list")
}

func TestStatus_Rollup(t *testing.T) {
	warn := Finding{Severity: rules.SeverityWarning}
	fail := Finding{Severity: rules.SeverityFail}

	assert.Equal(t, StatusPass, Status(nil))
	assert.Equal(t, StatusWarning, Status([]Finding{warn}))
	assert.Equal(t, StatusFail, Status([]Finding{warn, fail, warn}))
}

func TestEvaluate_CleanCaseIsPass(t *testing.T) {
	cfg := makeConfig(
		map[string][]string{"cervical": {"C0", "C1", "C2", "C3", "C4", "C5", "C6", "C7"}},
		rules.Rule{
			ID:   "cervical_seg",
			Kind: rules.KindSegmentation,
			View: annot.ViewAP,
			Segmentation: &rules.SegParams{
				RequiredGroup: "cervical",
				SequenceCheck: true,
			},
		},
	)
	e := New(cfg)

	shapes := make([]annot.Shape, 0, 8)
	for i, label := range []string{"C0", "C1", "C2", "C3", "C4", "C5", "C6", "C7"} {
		shapes = append(shapes, polyShape(label, 100+float64(i)*50))
	}
	findings := e.Evaluate(annot.Annotation{CaseID: "clean", View: annot.ViewAP, Shapes: shapes})

	assert.Empty(t, findings)
	assert.Equal(t, StatusPass, Status(findings))
}
