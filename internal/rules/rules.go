// Package rules defines the QC rule configuration: the rule records the
// engine evaluates, the label mapping scopes, and the run context.
//
// The whole configuration is loaded once per run from a single YAML
// document, validated against an embedded CUE schema and then checked
// semantically. Any violation is fatal at load time: a malformed rule
// silently producing no findings would be worse than a visible startup
// failure. After Load the configuration is immutable and may be shared
// across concurrent case evaluations without locking.
package rules

import (
	"fmt"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/labelmap"
)

// Severity classifies a finding.
type Severity string

const (
	SeverityFail    Severity = "FAIL"
	SeverityWarning Severity = "WARNING"
)

// Rule kinds (the check_type discriminator).
const (
	KindPointPosition = "POINT_POSITION_CHECK"
	KindSegmentation  = "SEGMENTATION_COMPLETENESS"
)

// Position check variants.
const (
	CheckAbsoluteX = "ABSOLUTE_X"
	CheckRelativeX = "RELATIVE_X"
	CheckRelativeY = "RELATIVE_Y"
)

// TargetLabel declares one standardized label a point rule covers.
type TargetLabel struct {
	Label    string     `yaml:"label"`
	Required bool       `yaml:"required"`
	Kind     annot.Kind `yaml:"kind"` // defaults to point
}

// PositionRule is one positional constraint on a target label.
//
// ABSOLUTE_X compares the target's x against Threshold (laterality);
// RELATIVE_X/RELATIVE_Y compare the target's coordinate against the
// centroid of the RelativeTo landmark. Operator is the direction the
// value must satisfy ("<" or ">").
type PositionRule struct {
	Target     string   `yaml:"target"`
	Check      string   `yaml:"check"`
	Operator   string   `yaml:"operator"`
	Threshold  float64  `yaml:"threshold"`
	RelativeTo string   `yaml:"relative_to"`
	Severity   Severity `yaml:"severity"`  // relative checks only; defaults to WARNING
	Tolerance  *float64 `yaml:"tolerance"` // defaults to settings.position_tolerance
	Margin     float64  `yaml:"margin"`    // secondary band: beyond tolerance but within margin is WARNING
	Message    string   `yaml:"message"`
}

// PointParams is the payload of a POINT_POSITION_CHECK rule.
type PointParams struct {
	Targets   []TargetLabel  `yaml:"target_labels"`
	Positions []PositionRule `yaml:"position_rules"`
}

// SegParams is the payload of a SEGMENTATION_COMPLETENESS rule.
type SegParams struct {
	RequiredGroup    string     `yaml:"required_labels_group"`
	LabelKind        annot.Kind `yaml:"label_kind"` // defaults to polygon
	SequenceCheck    bool       `yaml:"sequence_check"`
	OptionalLabels   []string   `yaml:"optional_labels"`
	RequiredMinCount int        `yaml:"required_min_count"` // defaults to 1
}

// Rule is one configured check: a tagged variant carrying exactly one
// kind-specific payload. Rules are immutable after load and keyed by a
// stable id.
type Rule struct {
	ID           string       `yaml:"id"`
	Name         string       `yaml:"name"`
	Kind         string       `yaml:"check_type"`
	View         annot.View   `yaml:"view"`
	Enabled      *bool        `yaml:"enabled"` // defaults to true
	Point        *PointParams `yaml:"point"`
	Segmentation *SegParams   `yaml:"segmentation"`
}

// IsEnabled reports whether the rule contributes findings.
func (r Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// Unmapped-label policies.
const (
	OnUnmappedDrop = "drop" // drop the shape, record the raw label for a WARNING finding
	OnUnmappedKeep = "keep" // pass the raw label through verbatim
)

// Settings holds run-wide constants.
type Settings struct {
	NormalizationScale float64  `yaml:"normalization_scale"` // defaults to annot.Scale
	MirrorXAxis        bool     `yaml:"mirror_x_axis"`
	PositionTolerance  float64  `yaml:"position_tolerance"` // defaults to 5
	OnUnmapped         string   `yaml:"on_unmapped"`        // defaults to drop
	SpinalSequence     []string `yaml:"standard_spinal_sequence"`
}

// LabelMapping holds the raw->standard scopes. View scopes extend
// COMMON; the merge happens in labelmap.New.
type LabelMapping struct {
	Common map[string]string                `yaml:"common"`
	Views  map[annot.View]map[string]string `yaml:"views"`
}

// RunContext selects the adapter, view and dataset for this run. It is
// consumed by the executor and the adapters, never by the engine.
type RunContext struct {
	AnnotatorTool string     `yaml:"annotator_tool"`
	DataView      annot.View `yaml:"data_view"`
	StructureID   string     `yaml:"structure_id"`
	BaseDataPath  string     `yaml:"base_data_path"`
}

// ToolTemplate describes how a tool lays out its cases on disk.
type ToolTemplate struct {
	FileType string `yaml:"file_type"` // single_file | directory
}

// Config is the complete, immutable run configuration.
type Config struct {
	Settings      Settings                `yaml:"settings"`
	LabelMapping  LabelMapping            `yaml:"label_mapping"`
	RangeGroups   map[string][]string     `yaml:"vertebra_range_groups"`
	RunContext    RunContext              `yaml:"run_context"`
	PathTemplates map[string]string       `yaml:"path_templates"`
	DataStructure map[string]ToolTemplate `yaml:"data_structure"`
	Rules         []Rule                  `yaml:"rules"`
}

// Resolver builds the label mapping resolver for this configuration.
func (c *Config) Resolver() *labelmap.Resolver {
	return labelmap.New(c.LabelMapping.Common, c.LabelMapping.Views)
}

// Normalize applies defaults in place. Load calls it after decoding;
// tests constructing configs programmatically call it directly.
func (c *Config) Normalize() {
	if c.Settings.NormalizationScale == 0 {
		c.Settings.NormalizationScale = annot.Scale
	}
	if c.Settings.PositionTolerance == 0 {
		c.Settings.PositionTolerance = 5
	}
	if c.Settings.OnUnmapped == "" {
		c.Settings.OnUnmapped = OnUnmappedDrop
	}
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Point != nil {
			for j := range r.Point.Targets {
				if r.Point.Targets[j].Kind == "" {
					r.Point.Targets[j].Kind = annot.KindPoint
				}
			}
			for j := range r.Point.Positions {
				if r.Point.Positions[j].Severity == "" {
					r.Point.Positions[j].Severity = SeverityWarning
				}
			}
		}
		if r.Segmentation != nil {
			if r.Segmentation.LabelKind == "" {
				r.Segmentation.LabelKind = annot.KindPolygon
			}
			if r.Segmentation.RequiredMinCount == 0 {
				r.Segmentation.RequiredMinCount = 1
			}
		}
	}
}

// ConfigError codes. All of these are fatal at load time.
const (
	ErrCodeSchema             = "SCHEMA_INVALID"
	ErrCodeDuplicateRuleID    = "DUPLICATE_RULE_ID"
	ErrCodeMissingPayload     = "RULE_MISSING_PAYLOAD"
	ErrCodeUnknownGroup       = "RULE_UNKNOWN_GROUP"
	ErrCodeUnknownTarget      = "RULE_UNKNOWN_TARGET"
	ErrCodeUnknownReference   = "RULE_UNKNOWN_REFERENCE"
	ErrCodeGroupNotInSequence = "GROUP_NOT_IN_SEQUENCE"
	ErrCodeOptionalLabel      = "OPTIONAL_NOT_IN_SEQUENCE"
	ErrCodeUnknownTemplate    = "UNKNOWN_PATH_TEMPLATE"
	ErrCodeUnknownTool        = "UNKNOWN_TOOL_TEMPLATE"
	ErrCodeEmptySequence      = "EMPTY_SPINAL_SEQUENCE"
)

// ConfigError is one load-time configuration violation.
type ConfigError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
