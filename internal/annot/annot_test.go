package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentroid_Point(t *testing.T) {
	s := Shape{Label: "C7", Kind: KindPoint, Points: []Point{{X: 400, Y: 120}}}

	c, ok := s.Centroid()
	require.True(t, ok)
	assert.Equal(t, Point{X: 400, Y: 120}, c)
}

func TestCentroid_PolygonRing(t *testing.T) {
	s := Shape{
		Label: "L3",
		Kind:  KindPolygon,
		Points: []Point{
			{X: 400, Y: 600},
			{X: 600, Y: 600},
			{X: 600, Y: 700},
			{X: 400, Y: 700},
		},
	}

	c, ok := s.Centroid()
	require.True(t, ok)
	assert.InDelta(t, 500, c.X, 1e-9)
	assert.InDelta(t, 650, c.Y, 1e-9)
}

func TestCentroid_Empty(t *testing.T) {
	s := Shape{Label: "C1", Kind: KindPoint}

	_, ok := s.Centroid()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		shape   Shape
		wantErr bool
	}{
		{"valid point", Shape{Label: "a", Kind: KindPoint, Points: make([]Point, 1)}, false},
		{"point with two pairs", Shape{Label: "a", Kind: KindPoint, Points: make([]Point, 2)}, true},
		{"valid line", Shape{Label: "a", Kind: KindLine, Points: make([]Point, 2)}, false},
		{"line with one pair", Shape{Label: "a", Kind: KindLine, Points: make([]Point, 1)}, true},
		{"valid polygon", Shape{Label: "a", Kind: KindPolygon, Points: make([]Point, 3)}, false},
		{"degenerate polygon", Shape{Label: "a", Kind: KindPolygon, Points: make([]Point, 2)}, true},
		{"unknown kind", Shape{Label: "a", Kind: Kind("blob"), Points: make([]Point, 1)}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.shape.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseView(t *testing.T) {
	v, err := ParseView("AP")
	require.NoError(t, err)
	assert.Equal(t, ViewAP, v)

	_, err = ParseView("OBLIQUE")
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("polygon")
	require.NoError(t, err)
	assert.Equal(t, KindPolygon, k)

	_, err = ParseKind("circle")
	assert.Error(t, err)
}

func TestAnnotationShape(t *testing.T) {
	a := Annotation{
		CaseID: "case_001",
		View:   ViewAP,
		Shapes: []Shape{
			{Label: "C7", Kind: KindPoint, Points: []Point{{X: 1, Y: 2}}},
			{Label: "C7", Kind: KindPoint, Points: []Point{{X: 9, Y: 9}}},
		},
	}

	s, ok := a.Shape("C7")
	require.True(t, ok)
	assert.Equal(t, Point{X: 1, Y: 2}, s.Points[0], "first matching shape wins")

	assert.False(t, a.Has("T1"))
}
