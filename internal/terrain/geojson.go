package terrain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                     `json:"type"`
	Geometry   *geojson.Geometry          `json:"geometry"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// ParseFeatureCollection builds an index from a GeoJSON FeatureCollection.
// Only Polygon features with a numeric properties.z0 are registered, using
// their outer ring; every other feature is skipped. The number of skipped
// features is returned alongside the index.
func ParseFeatureCollection(data []byte) (*Index, int, error) {
	ix := NewIndex()
	skipped, err := ix.AddFeatureCollection(data)
	if err != nil {
		return nil, 0, err
	}
	return ix, skipped, nil
}

// AddFeatureCollection registers the polygons of a GeoJSON FeatureCollection
// in document order.
func (ix *Index) AddFeatureCollection(data []byte) (int, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return 0, fmt.Errorf("decode terrain geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return 0, fmt.Errorf("decode terrain geojson: expected FeatureCollection, got %q", fc.Type)
	}

	skipped := 0
	for _, f := range fc.Features {
		if f.Geometry == nil || f.Geometry.Type != "Polygon" {
			skipped++
			continue
		}
		var z0 float64
		raw, ok := f.Properties["z0"]
		if !ok || json.Unmarshal(raw, &z0) != nil {
			skipped++
			continue
		}
		g, err := geojson.FromGeoJSON(f.Geometry)
		if err != nil {
			skipped++
			continue
		}
		poly, ok := g.(geom.Polygon)
		if !ok || len(poly) == 0 {
			skipped++
			continue
		}
		ix.addPolygon(geom.Polygon{poly[0]}, z0)
	}
	return skipped, nil
}

// LoadFile reads a GeoJSON FeatureCollection from path.
func LoadFile(path string) (*Index, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read terrain file: %w", err)
	}
	return ParseFeatureCollection(data)
}
