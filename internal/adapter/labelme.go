package adapter

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spinelab/vertqc/internal/annot"
)

//go:embed labelme_schema.json
var labelmeSchemaJSON string

func compileLabelMeSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("labelme_schema.json", strings.NewReader(labelmeSchemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile("labelme_schema.json")
}

type labelmeShape struct {
	Label     string      `json:"label"`
	ShapeType string      `json:"shape_type"`
	Points    [][]float64 `json:"points"`
}

type labelmeDoc struct {
	ImageWidth  float64        `json:"imageWidth"`
	ImageHeight float64        `json:"imageHeight"`
	Shapes      []labelmeShape `json:"shapes"`
}

// parseLabelMe reads one LabelMe JSON export. The document is validated
// against the embedded schema before decoding so a truncated or
// hand-edited file fails loudly instead of producing silent geometry.
func (p *Parser) parseLabelMe(path, caseID string) (annot.Annotation, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return annot.Annotation{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return annot.Annotation{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	if err := p.labelme.Validate(generic); err != nil {
		return annot.Annotation{}, fmt.Errorf("validating %s: %w", path, err)
	}

	var doc labelmeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return annot.Annotation{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	a := annot.Annotation{CaseID: caseID, View: p.cfg.RunContext.DataView}
	scale := p.cfg.Settings.NormalizationScale
	for _, s := range doc.Shapes {
		std, keep := p.mapLabel(s.Label)
		if !keep {
			a.Dropped = append(a.Dropped, annot.DroppedLabel{Raw: s.Label})
			continue
		}
		shape := annot.Shape{Label: std, Kind: labelmeKind(s.ShapeType)}
		for _, pt := range s.Points {
			x, y := pt[0], pt[1]
			nx := x / doc.ImageWidth * scale
			if p.cfg.Settings.MirrorXAxis {
				nx = (doc.ImageWidth - x) / doc.ImageWidth * scale
			}
			shape.Points = append(shape.Points, annot.Point{
				X: nx,
				Y: y / doc.ImageHeight * scale,
			})
		}
		a.Shapes = append(a.Shapes, shape)
	}
	return a, nil
}

// labelmeKind maps a LabelMe shape_type onto a canonical kind. LabelMe
// also emits rectangle/circle/mask types; those reduce to polygon for
// QC purposes.
func labelmeKind(shapeType string) annot.Kind {
	switch shapeType {
	case "point":
		return annot.KindPoint
	case "line", "linestrip":
		return annot.KindLine
	default:
		return annot.KindPolygon
	}
}
