// Package geodata loads projected polygon geometry from GeoJSON.
//
// Coordinates are taken as already projected world units (for example
// spherical mercator metres); no reprojection is done.
package geodata

import (
	"errors"
	"fmt"
	"io"
	"math"

	geojson "github.com/paulmach/go.geojson"

	"github.com/gogpu/ggmap"
)

var (
	// ErrNoPolygons is returned when a document has no polygon geometry.
	ErrNoPolygons = errors.New("geodata: no polygons")

	// ErrInvalidCoordinate is returned for positions with fewer than two
	// components or non-finite values.
	ErrInvalidCoordinate = errors.New("geodata: invalid coordinate")
)

// Ring is a closed sequence of positions without the repeated end point.
type Ring [][2]float64

// Polygon is an outer ring followed by optional holes.
type Polygon []Ring

// Feature is a named polygonal feature.
type Feature struct {
	ID       string
	Name     string
	Polygons []Polygon
}

// LoadGeoJSON parses a FeatureCollection and returns its Polygon and
// MultiPolygon features. Other geometry types are skipped. nameProperty
// selects the property used as the feature name.
func LoadGeoJSON(data []byte, nameProperty string) ([]Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("geodata: %w", err)
	}

	var out []Feature
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		feat := Feature{
			ID:   featureID(f),
			Name: f.PropertyMustString(nameProperty, ""),
		}
		switch {
		case f.Geometry.IsPolygon():
			p, err := polygon(f.Geometry.Polygon)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", i, err)
			}
			feat.Polygons = append(feat.Polygons, p)
		case f.Geometry.IsMultiPolygon():
			for j, mp := range f.Geometry.MultiPolygon {
				p, err := polygon(mp)
				if err != nil {
					return nil, fmt.Errorf("feature %d polygon %d: %w", i, j, err)
				}
				feat.Polygons = append(feat.Polygons, p)
			}
		default:
			continue
		}
		out = append(out, feat)
	}
	if len(out) == 0 {
		return nil, ErrNoPolygons
	}
	return out, nil
}

// ReadGeoJSON reads and parses a FeatureCollection from r.
func ReadGeoJSON(r io.Reader, nameProperty string) ([]Feature, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("geodata: %w", err)
	}
	return LoadGeoJSON(data, nameProperty)
}

func featureID(f *geojson.Feature) string {
	switch id := f.ID.(type) {
	case nil:
		return ""
	case string:
		return id
	default:
		return fmt.Sprint(id)
	}
}

func polygon(rings [][][]float64) (Polygon, error) {
	p := make(Polygon, 0, len(rings))
	for k, r := range rings {
		ring, err := toRing(r)
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", k, err)
		}
		p = append(p, ring)
	}
	return p, nil
}

func toRing(coords [][]float64) (Ring, error) {
	ring := make(Ring, 0, len(coords))
	for i, c := range coords {
		if len(c) < 2 || !finite(c[0]) || !finite(c[1]) {
			return nil, fmt.Errorf("%w: position %d %v", ErrInvalidCoordinate, i, c)
		}
		ring = append(ring, [2]float64{c[0], c[1]})
	}
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	return ring, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Outer returns the outer ring of every polygon.
func (f *Feature) Outer() []Ring {
	out := make([]Ring, 0, len(f.Polygons))
	for _, p := range f.Polygons {
		if len(p) > 0 {
			out = append(out, p[0])
		}
	}
	return out
}

// Bounds returns the bounding box of all outer rings.
func (f *Feature) Bounds() (lo, hi [2]float64) {
	lo = [2]float64{math.Inf(1), math.Inf(1)}
	hi = [2]float64{math.Inf(-1), math.Inf(-1)}
	for _, r := range f.Outer() {
		for _, p := range r {
			lo[0], lo[1] = min(lo[0], p[0]), min(lo[1], p[1])
			hi[0], hi[1] = max(hi[0], p[0]), max(hi[1], p[1])
		}
	}
	return lo, hi
}

// Batches builds one batch per outer ring. Rings are fanned from their
// first vertex, so they must be convex; holes are ignored.
func (f *Feature) Batches(style ggmap.Style, opts ...ggmap.BatchOption) ([]*ggmap.DrawBatch, error) {
	var out []*ggmap.DrawBatch
	for i, r := range f.Outer() {
		b, err := ggmap.NewBatch(r, style, opts...)
		if err != nil {
			return nil, fmt.Errorf("geodata: feature %q ring %d: %w", f.ID, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

// StrokeBatches builds one outline batch per outer ring using style.Stroke.
func (f *Feature) StrokeBatches(style ggmap.Style, opts ...ggmap.BatchOption) ([]*ggmap.DrawBatch, error) {
	var out []*ggmap.DrawBatch
	for i, r := range f.Outer() {
		b, err := ggmap.NewStrokeBatch(r, style, opts...)
		if err != nil {
			return nil, fmt.Errorf("geodata: feature %q ring %d: %w", f.ID, i, err)
		}
		out = append(out, b)
	}
	return out, nil
}
