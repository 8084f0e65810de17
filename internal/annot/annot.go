package annot

import "fmt"

// Scale is the upper bound of the normalized coordinate space.
// Every adapter maps source pixels into [0, Scale] on both axes.
const Scale = 1000.0

// View identifies the radiographic projection of a case.
type View string

const (
	ViewAP  View = "AP"
	ViewLAT View = "LAT"
)

// ParseView validates a raw view string.
func ParseView(s string) (View, error) {
	switch View(s) {
	case ViewAP, ViewLAT:
		return View(s), nil
	default:
		return "", fmt.Errorf("unknown view %q (want AP or LAT)", s)
	}
}

// Kind identifies the geometric primitive of a shape.
type Kind string

const (
	KindPoint   Kind = "point"
	KindLine    Kind = "line"
	KindPolygon Kind = "polygon"
)

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPoint, KindLine, KindPolygon:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown shape kind %q", s)
	}
}

// Point is a coordinate pair in the normalized 0-1000 space.
type Point struct {
	X float64
	Y float64
}

// Shape is one labeled geometric primitive. Label is the standardized
// medical label unless the adapter was configured to pass unmapped raw
// labels through verbatim.
type Shape struct {
	Label  string
	Kind   Kind
	Points []Point
}

// Centroid returns the arithmetic mean of the shape's points.
// ok is false when the shape has no points.
func (s Shape) Centroid() (Point, bool) {
	if len(s.Points) == 0 {
		return Point{}, false
	}
	var sumX, sumY float64
	for _, p := range s.Points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(s.Points))
	return Point{X: sumX / n, Y: sumY / n}, true
}

// Validate checks that the point count matches the shape kind:
// one pair for a point, two for a line, at least three for a polygon.
func (s Shape) Validate() error {
	switch s.Kind {
	case KindPoint:
		if len(s.Points) != 1 {
			return fmt.Errorf("shape %q: point requires exactly 1 coordinate pair, got %d", s.Label, len(s.Points))
		}
	case KindLine:
		if len(s.Points) != 2 {
			return fmt.Errorf("shape %q: line requires exactly 2 coordinate pairs, got %d", s.Label, len(s.Points))
		}
	case KindPolygon:
		if len(s.Points) < 3 {
			return fmt.Errorf("shape %q: polygon requires a ring of >=3 coordinate pairs, got %d", s.Label, len(s.Points))
		}
	default:
		return fmt.Errorf("shape %q: unknown kind %q", s.Label, s.Kind)
	}
	return nil
}

// DroppedLabel records a raw label the adapter could not resolve and
// was configured to drop. The engine surfaces these as findings.
type DroppedLabel struct {
	Raw string
}

// Annotation is the canonical representation of one annotated case.
type Annotation struct {
	CaseID  string
	View    View
	Shapes  []Shape
	Dropped []DroppedLabel
}

// Shape returns the first shape carrying the given label.
func (a Annotation) Shape(label string) (Shape, bool) {
	for _, s := range a.Shapes {
		if s.Label == label {
			return s, true
		}
	}
	return Shape{}, false
}

// Has reports whether any shape carries the given label.
func (a Annotation) Has(label string) bool {
	_, ok := a.Shape(label)
	return ok
}
