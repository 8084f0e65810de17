// Package adapter converts tool-native annotation exports into the
// canonical model. Each supported annotation tool gets one adapter;
// everything downstream of this package sees only normalized shapes in
// the shared coordinate space.
package adapter

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spinelab/vertqc/internal/annot"
	"github.com/spinelab/vertqc/internal/labelmap"
	"github.com/spinelab/vertqc/internal/rules"
)

// Supported annotation tools.
const (
	ToolLabelMe = "labelme"
	ToolSlicer  = "slicer"
)

// Parser turns one case's on-disk export into a canonical Annotation.
// Immutable after New; safe for concurrent use.
type Parser struct {
	cfg      *rules.Config
	resolver *labelmap.Resolver
	labelme  *jsonschema.Schema
}

// New builds a parser for the configuration's annotator tool. The
// LabelMe document schema is compiled once here, not per case.
func New(cfg *rules.Config) (*Parser, error) {
	schema, err := compileLabelMeSchema()
	if err != nil {
		return nil, fmt.Errorf("compiling labelme schema: %w", err)
	}
	return &Parser{
		cfg:      cfg,
		resolver: cfg.Resolver(),
		labelme:  schema,
	}, nil
}

// Parse reads the case at path and returns its canonical annotation.
// For labelme, path is a single JSON file; for slicer, path is the
// case directory.
func (p *Parser) Parse(path, caseID string) (annot.Annotation, error) {
	switch p.cfg.RunContext.AnnotatorTool {
	case ToolLabelMe:
		return p.parseLabelMe(path, caseID)
	case ToolSlicer:
		return p.parseSlicer(path, caseID)
	default:
		return annot.Annotation{}, fmt.Errorf("unsupported annotator tool %q", p.cfg.RunContext.AnnotatorTool)
	}
}

// mapLabel resolves a raw label per the unmapped-label policy. The
// second return is the standardized label when keep is true; when keep
// is false the shape is dropped and the raw label recorded.
func (p *Parser) mapLabel(raw string) (string, bool) {
	std, err := p.resolver.Resolve(raw, p.cfg.RunContext.DataView)
	if err == nil {
		return std, true
	}
	if p.cfg.Settings.OnUnmapped == rules.OnUnmappedKeep {
		return raw, true
	}
	return "", false
}
