package geodata

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/ggmap"
)

const squares = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "a",
      "properties": {"name": "Block A"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[1113193, 6446273], [1113197, 6446273], [1113197, 6446277], [1113193, 6446277], [1113193, 6446273]]]
      }
    },
    {
      "type": "Feature",
      "id": 7,
      "properties": {"name": "Pair"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[0, 0], [1, 0], [1, 1], [0, 0]]],
          [[[5, 5], [6, 5], [6, 6], [5, 6]], [[5.2, 5.2], [5.4, 5.2], [5.4, 5.4]]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {},
      "geometry": {"type": "Point", "coordinates": [1, 2]}
    }
  ]
}`

func TestLoadGeoJSON(t *testing.T) {
	features, err := LoadGeoJSON([]byte(squares), "name")
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Fatalf("got %d features, want 2", len(features))
	}

	a := features[0]
	if a.ID != "a" || a.Name != "Block A" {
		t.Errorf("feature 0 = %q %q", a.ID, a.Name)
	}
	outer := a.Outer()
	if len(outer) != 1 || len(outer[0]) != 4 {
		t.Fatalf("outer rings = %v, want one ring of 4 (closing point dropped)", outer)
	}
	lo, hi := a.Bounds()
	if lo != [2]float64{1113193, 6446273} || hi != [2]float64{1113197, 6446277} {
		t.Errorf("Bounds() = %v, %v", lo, hi)
	}

	pair := features[1]
	if pair.ID != "7" {
		t.Errorf("numeric id = %q, want \"7\"", pair.ID)
	}
	if len(pair.Polygons) != 2 || len(pair.Polygons[1]) != 2 {
		t.Fatalf("multipolygon = %v", pair.Polygons)
	}
	// an unclosed ring is kept as is
	if len(pair.Polygons[1][0]) != 4 {
		t.Errorf("unclosed ring length = %d, want 4", len(pair.Polygons[1][0]))
	}
	if len(pair.Outer()) != 2 {
		t.Errorf("Outer() ignores holes, got %d rings", len(pair.Outer()))
	}
}

func TestLoadGeoJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"no polygons", `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]}}]}`, ErrNoPolygons},
		{"empty", `{"type":"FeatureCollection","features":[]}`, ErrNoPolygons},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadGeoJSON([]byte(tt.doc), "name"); !errors.Is(err, tt.want) {
				t.Errorf("LoadGeoJSON() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := toRing([][]float64{{0}, {1, 0}, {1, 1}}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("short position = %v", err)
	}
	if _, err := toRing([][]float64{{0, math.Inf(1)}}); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("infinite position = %v", err)
	}
	if _, err := LoadGeoJSON([]byte("{not json"), "name"); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestReadGeoJSON(t *testing.T) {
	features, err := ReadGeoJSON(strings.NewReader(squares), "name")
	if err != nil {
		t.Fatal(err)
	}
	if len(features) != 2 {
		t.Errorf("got %d features", len(features))
	}
}

func TestFeatureBatches(t *testing.T) {
	features, err := LoadGeoJSON([]byte(squares), "name")
	if err != nil {
		t.Fatal(err)
	}
	batches, err := features[1].Batches(ggmap.DefaultStyle())
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	// triangle ring (closing point dropped) and a quad
	if n := len(batches[0].Indices()); n != 3 {
		t.Errorf("triangle indices = %d", n)
	}
	if n := len(batches[1].Indices()); n != 6 {
		t.Errorf("quad indices = %d", n)
	}
	if o := batches[1].Origin(); o != [2]float32{5.5, 5.5} {
		t.Errorf("origin = %v", o)
	}
}

func TestFeatureStrokeBatches(t *testing.T) {
	features, err := LoadGeoJSON([]byte(squares), "name")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := features[0].StrokeBatches(ggmap.DefaultStyle()); !errors.Is(err, ggmap.ErrNoStroke) {
		t.Errorf("style without stroke = %v, want ErrNoStroke", err)
	}

	style := ggmap.DefaultStyle()
	style.Stroke = &ggmap.Stroke{Color: [4]float32{0, 0, 0, 1}, Width: 2}
	batches, err := features[1].StrokeBatches(style)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	// a closed triangle has 3 edges, a closed quad 4
	for i, edges := range []int{3, 4} {
		if !batches[i].IsStroke() {
			t.Errorf("batch %d is not a stroke", i)
		}
		if n := len(batches[i].Indices()); n != edges*6 {
			t.Errorf("batch %d: %d indices, want %d", i, n, edges*6)
		}
	}
}
