package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/rules"
)

var cervicalGroup = map[string][]string{
	"cervical": {"C0", "C1", "C2", "C3", "C4", "C5", "C6", "C7"},
}

func cervicalRule(p rules.SegParams) rules.Rule {
	p.RequiredGroup = "cervical"
	return rules.Rule{
		ID:           "ap_cervical_seg",
		Kind:         rules.KindSegmentation,
		View:         annot.ViewAP,
		Segmentation: &p,
	}
}

// cervicalShapes renders C0..C7 as polygons in descending anatomical
// order, one centroid every 50 units starting at Y=100.
func cervicalShapes(skip ...string) []annot.Shape {
	skipped := make(map[string]bool, len(skip))
	for _, l := range skip {
		skipped[l] = true
	}
	var shapes []annot.Shape
	for i, label := range cervicalGroup["cervical"] {
		if skipped[label] {
			continue
		}
		shapes = append(shapes, polyShape(label, 100+float64(i)*50))
	}
	return shapes
}

func TestCompleteness_OneMissingIsSingleWarning(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{}))
	e := New(cfg)

	a := annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: cervicalShapes("C1")}
	findings := e.Evaluate(a)

	require.Len(t, findings, 1)
	assert.Equal(t, CodeMissingRequiredLabel, findings[0].Code)
	assert.Equal(t, rules.SeverityWarning, findings[0].Severity)
	assert.Equal(t, []string{"C1"}, findings[0].Labels)
	assert.Equal(t, StatusWarning, Status(findings))
}

func TestCompleteness_NonePresentIsSingleFail(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{}))
	e := New(cfg)

	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP})

	require.Len(t, findings, 1)
	assert.Equal(t, CodeMissingRequiredGroup, findings[0].Code)
	assert.Equal(t, rules.SeverityFail, findings[0].Severity)
	assert.Len(t, findings[0].Labels, 8)
}

func TestCompleteness_MinCountThreshold(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{RequiredMinCount: 5}))
	e := New(cfg)

	// Four of eight present: below the minimum, single FAIL.
	a := annot.Annotation{
		CaseID: "c1",
		View:   annot.ViewAP,
		Shapes: cervicalShapes("C4", "C5", "C6", "C7"),
	}
	findings := e.Evaluate(a)

	require.Len(t, findings, 1)
	assert.Equal(t, CodeMissingRequiredGroup, findings[0].Code)
	assert.Equal(t, rules.SeverityFail, findings[0].Severity)

	// Five present clears the minimum; the remaining gap is a WARNING.
	a.Shapes = cervicalShapes("C5", "C6", "C7")
	findings = e.Evaluate(a)

	require.Len(t, findings, 1)
	assert.Equal(t, CodeMissingRequiredLabel, findings[0].Code)
	assert.Equal(t, rules.SeverityWarning, findings[0].Severity)
	assert.Equal(t, []string{"C5", "C6", "C7"}, findings[0].Labels)
}

func TestSequence_InvertedPairIsSingleFail(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{SequenceCheck: true}))
	e := New(cfg)

	shapes := cervicalShapes()
	// Swap the centroids of C2 and C3.
	shapes[2], shapes[3] = polyShape("C2", 250), polyShape("C3", 200)
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, CodeTopologyInversion, f.Code)
	assert.Equal(t, rules.SeverityFail, f.Severity)
	assert.Equal(t, []string{"C2", "C3"}, f.Labels)
	assert.Contains(t, f.Message, "'C2'(Y=250.0) should be above 'C3'(Y=200.0)")
}

func TestSequence_TieWithinToleranceIsNotViolation(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{SequenceCheck: true}))
	e := New(cfg)

	shapes := cervicalShapes()
	// C3 three units above C2: inside the default tolerance of five.
	shapes[2], shapes[3] = polyShape("C2", 200), polyShape("C3", 197)
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	assert.Empty(t, findings)
}

func TestSequence_MultipleInversionsListedOnce(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{SequenceCheck: true}))
	e := New(cfg)

	shapes := []annot.Shape{
		polyShape("C0", 100),
		polyShape("C1", 50),  // above C0
		polyShape("C2", 200),
		polyShape("C3", 120), // above C2
	}
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	inversions := findingsWithCode(findings, CodeTopologyInversion)
	require.Len(t, inversions, 1, "all inverted pairs collapse into one finding")
	assert.Equal(t, []string{"C0", "C1", "C2", "C3"}, inversions[0].Labels)
}

func TestSequence_SingleSegmentNoFinding(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{SequenceCheck: true, RequiredMinCount: 1}))
	e := New(cfg)

	a := annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: []annot.Shape{polyShape("C0", 100)}}
	findings := e.Evaluate(a)

	assert.Empty(t, findingsWithCode(findings, CodeTopologyInversion))
}

func TestOptionalVertebra_NeverFails(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{
		SequenceCheck:  true,
		OptionalLabels: []string{"T13", "L6"},
	}))
	e := New(cfg)

	shapes := append(cervicalShapes(), polyShape("T13", 900))
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, CodeOptionalVertebra, f.Code)
	assert.Equal(t, rules.SeverityWarning, f.Severity)
	assert.Equal(t, []string{"T13"}, f.Labels)
	assert.Equal(t, StatusWarning, Status(findings))
}

func TestOptionalVertebra_ParticipatesInSequence(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{
		SequenceCheck:  true,
		OptionalLabels: []string{"T13"},
	}))
	e := New(cfg)

	// T13 centroid above every cervical segment: inverted against C7.
	shapes := append(cervicalShapes(), polyShape("T13", 60))
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	inversions := findingsWithCode(findings, CodeTopologyInversion)
	require.Len(t, inversions, 1)
	assert.Equal(t, []string{"C7", "T13"}, inversions[0].Labels)
}

func TestSegmentation_WrongKindShapesIgnored(t *testing.T) {
	cfg := makeConfig(cervicalGroup, cervicalRule(rules.SegParams{}))
	e := New(cfg)

	// All cervical labels present but drawn as keypoints: the
	// completeness check only counts polygon shapes, so the whole
	// group is reported absent.
	var shapes []annot.Shape
	for i, label := range cervicalGroup["cervical"] {
		shapes = append(shapes, pointShape(label, 500, 100+float64(i)*50))
	}
	findings := e.Evaluate(annot.Annotation{CaseID: "c1", View: annot.ViewAP, Shapes: shapes})

	groups := findingsWithCode(findings, CodeMissingRequiredGroup)
	require.Len(t, groups, 1)
	assert.Equal(t, rules.SeverityFail, groups[0].Severity)
}
