package rules

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spinelab/vertqc/internal/annot"
)

func TestLoad_ValidConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "qc_config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000.0, cfg.Settings.NormalizationScale)
	assert.Equal(t, OnUnmappedDrop, cfg.Settings.OnUnmapped)
	assert.Equal(t, annot.ViewAP, cfg.RunContext.DataView)
	assert.Equal(t, "labelme", cfg.RunContext.AnnotatorTool)
	require.Len(t, cfg.Rules, 2)

	point := cfg.Rules[0]
	assert.Equal(t, KindPointPosition, point.Kind)
	assert.True(t, point.IsEnabled())
	require.NotNil(t, point.Point)
	assert.Equal(t, annot.KindPoint, point.Point.Targets[0].Kind, "target kind defaults to point")
	assert.Equal(t, SeverityWarning, point.Point.Positions[0].Severity, "severity defaults to WARNING")

	seg := cfg.Rules[1]
	assert.Equal(t, KindSegmentation, seg.Kind)
	require.NotNil(t, seg.Segmentation)
	assert.Equal(t, annot.KindPolygon, seg.Segmentation.LabelKind)
	assert.Equal(t, 1, seg.Segmentation.RequiredMinCount)
	assert.Equal(t, []string{"T13", "L6"}, seg.Segmentation.OptionalLabels)
}

func TestLoad_SchemaViolations(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bad_schema.yaml"))
	require.Error(t, err)

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, ErrCodeSchema, cerr.Code)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "no_such_file.yaml"))
	assert.Error(t, err)
}

func TestCheck_SemanticViolations(t *testing.T) {
	cfg, errs, err := Check(filepath.Join("testdata", "bad_semantic.yaml"))
	require.NoError(t, err, "semantic problems are reported, not returned as a pipeline error")
	require.NotNil(t, cfg)

	codes := make(map[string]int)
	for _, e := range errs {
		codes[e.Code]++
	}
	assert.Equal(t, 1, codes[ErrCodeDuplicateRuleID])
	assert.Equal(t, 1, codes[ErrCodeUnknownTarget], "position target not declared in target_labels")
	assert.Equal(t, 1, codes[ErrCodeUnknownReference])
	assert.Equal(t, 1, codes[ErrCodeUnknownGroup])
	assert.Equal(t, 1, codes[ErrCodeOptionalLabel])
	assert.Equal(t, 1, codes[ErrCodeUnknownTemplate])
}

func TestLoad_SemanticViolationsAreFatal(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "bad_semantic.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeUnknownGroup)
}

func TestNormalize_Defaults(t *testing.T) {
	enabled := false
	cfg := &Config{
		Rules: []Rule{
			{
				ID:   "p",
				Kind: KindPointPosition,
				Point: &PointParams{
					Targets:   []TargetLabel{{Label: "C0"}},
					Positions: []PositionRule{{Target: "C0", Check: CheckRelativeY, Operator: "<", RelativeTo: "C1"}},
				},
			},
			{
				ID:           "s",
				Kind:         KindSegmentation,
				Enabled:      &enabled,
				Segmentation: &SegParams{RequiredGroup: "g"},
			},
		},
	}
	cfg.Normalize()

	assert.Equal(t, 1000.0, cfg.Settings.NormalizationScale)
	assert.Equal(t, 5.0, cfg.Settings.PositionTolerance)
	assert.Equal(t, OnUnmappedDrop, cfg.Settings.OnUnmapped)
	assert.Equal(t, annot.KindPoint, cfg.Rules[0].Point.Targets[0].Kind)
	assert.Equal(t, SeverityWarning, cfg.Rules[0].Point.Positions[0].Severity)
	assert.Equal(t, annot.KindPolygon, cfg.Rules[1].Segmentation.LabelKind)
	assert.Equal(t, 1, cfg.Rules[1].Segmentation.RequiredMinCount)
	assert.False(t, cfg.Rules[1].IsEnabled())
}
