// Package terrain maps geographic points to surface roughness lengths using
// polygonal terrain regions.
package terrain

import (
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
)

const (
	// DefaultRoughness is returned when no region has been registered.
	DefaultRoughness = 0.03
	// FallbackRoughness is returned when regions exist but none contains
	// the point.
	FallbackRoughness = 0.01
)

// region is a registered polygon. It embeds geom.Polygon so it can be stored
// in the R-tree directly.
type region struct {
	geom.Polygon
	z0    float64
	order int
}

// Index is an ordered set of terrain regions. Lookups are safe for concurrent
// use once registration is complete.
type Index struct {
	regions []*region
	tree    *rtree.Rtree
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{tree: rtree.NewTree(25, 50)}
}

// Add registers a polygon given as an outer ring of [lon, lat] pairs.
// Malformed rings are accepted as-is; they simply never match.
func (ix *Index) Add(ring [][2]float64, z0 float64) {
	pts := make([]geom.Point, len(ring))
	for i, c := range ring {
		pts[i] = geom.Point{X: c[0], Y: c[1]}
	}
	ix.addPolygon(geom.Polygon{pts}, z0)
}

func (ix *Index) addPolygon(p geom.Polygon, z0 float64) {
	r := &region{Polygon: p, z0: z0, order: len(ix.regions)}
	ix.regions = append(ix.regions, r)
	if len(p) > 0 && len(p[0]) > 0 {
		ix.tree.Insert(r)
	}
}

// Len returns the number of registered regions.
func (ix *Index) Len() int { return len(ix.regions) }

// RoughnessAt returns the z0 of the last registered region strictly
// containing (lat, lon). Points on a region edge do not match.
func (ix *Index) RoughnessAt(lat, lon float64) float64 {
	if len(ix.regions) == 0 {
		return DefaultRoughness
	}
	pt := geom.Point{X: lon, Y: lat}
	best := -1
	z0 := FallbackRoughness
	for _, g := range ix.tree.SearchIntersect(pt.Bounds()) {
		r := g.(*region)
		if r.order <= best {
			continue
		}
		if pt.Within(r.Polygon) != geom.Inside {
			continue
		}
		best = r.order
		z0 = r.z0
	}
	return z0
}
