package adapter

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spinelab/vertqc/internal/annot"
)

const (
	markupSuffix  = ".mrk.json"
	segmentSuffix = ".seg.nrrd"
)

type slicerControlPoint struct {
	Position []float64 `json:"position"`
}

type slicerMarkup struct {
	ControlPoints []slicerControlPoint `json:"controlPoints"`
}

type slicerDoc struct {
	Markups []slicerMarkup `json:"markups"`
}

// rawMarkup is a markup file's label and physical-space control points
// before normalization.
type rawMarkup struct {
	label  string
	points []annot.Point
}

// parseSlicer reads one 3D Slicer case directory: point markups from
// *.mrk.json files (label taken from the file name) and segment
// presence from *.seg.nrrd headers. The whole case tree is walked;
// Slicer exports routinely nest markups and segmentations in
// subfolders.
func (p *Parser) parseSlicer(dir, caseID string) (annot.Annotation, error) {
	a := annot.Annotation{CaseID: caseID, View: p.cfg.RunContext.DataView}

	var markups []rawMarkup
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasSuffix(name, markupSuffix):
			points, err := readMarkupPoints(path)
			if err != nil {
				return err
			}
			markups = append(markups, rawMarkup{
				label:  strings.TrimSuffix(name, markupSuffix),
				points: points,
			})
		case strings.HasSuffix(name, segmentSuffix):
			names, err := readNRRDSegmentNames(path)
			if err != nil {
				return err
			}
			for _, segName := range names {
				std, keep := p.mapLabel(segName)
				if !keep {
					a.Dropped = append(a.Dropped, annot.DroppedLabel{Raw: segName})
					continue
				}
				a.Shapes = append(a.Shapes, placeholderPolygon(std, p.cfg.Settings.NormalizationScale))
			}
		}
		return nil
	})
	if err != nil {
		return annot.Annotation{}, fmt.Errorf("walking case directory %s: %w", dir, err)
	}

	// Markup coordinates are physical (RAS), not pixel space, so the
	// normalization extent comes from the data itself.
	shift, extent := markupExtent(markups)
	scale := p.cfg.Settings.NormalizationScale
	for _, m := range markups {
		std, keep := p.mapLabel(m.label)
		if !keep {
			a.Dropped = append(a.Dropped, annot.DroppedLabel{Raw: m.label})
			continue
		}
		// One point shape per control point: a multi-point markup is a
		// set of landmarks sharing a label, not a polyline.
		for _, pt := range m.points {
			nx := (pt.X - shift.X) / extent.X * scale
			if p.cfg.Settings.MirrorXAxis {
				nx = scale - nx
			}
			a.Shapes = append(a.Shapes, annot.Shape{
				Label: std,
				Kind:  annot.KindPoint,
				Points: []annot.Point{{
					X: nx,
					Y: (pt.Y - shift.Y) / extent.Y * scale,
				}},
			})
		}
	}
	return a, nil
}

func readMarkupPoints(path string) ([]annot.Point, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc slicerDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	var points []annot.Point
	for _, m := range doc.Markups {
		for _, cp := range m.ControlPoints {
			if len(cp.Position) < 2 {
				return nil, fmt.Errorf("%s: control point with %d coordinates", path, len(cp.Position))
			}
			points = append(points, annot.Point{X: cp.Position[0], Y: cp.Position[1]})
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%s: no control points", path)
	}
	return points, nil
}

// markupExtent computes the per-axis minimum and span over every
// control point in the case. The span is floored to avoid dividing by
// zero on degenerate single-point cases.
func markupExtent(markups []rawMarkup) (shift, extent annot.Point) {
	const minExtent = 1e-6
	first := true
	var maxX, maxY float64
	for _, m := range markups {
		for _, pt := range m.points {
			if first {
				shift, maxX, maxY = pt, pt.X, pt.Y
				first = false
				continue
			}
			shift.X = min(shift.X, pt.X)
			shift.Y = min(shift.Y, pt.Y)
			maxX = max(maxX, pt.X)
			maxY = max(maxY, pt.Y)
		}
	}
	extent = annot.Point{
		X: max(maxX-shift.X, minExtent),
		Y: max(maxY-shift.Y, minExtent),
	}
	return shift, extent
}

// placeholderPolygon stands in for a segment whose geometry lives in
// the NRRD voxel data. Presence is all the completeness rules need, so
// a small ring at the image center is enough.
func placeholderPolygon(label string, scale float64) annot.Shape {
	c := scale / 2
	return annot.Shape{
		Label: label,
		Kind:  annot.KindPolygon,
		Points: []annot.Point{
			{X: c, Y: c - 5},
			{X: c - 5, Y: c + 5},
			{X: c + 5, Y: c + 5},
		},
	}
}
