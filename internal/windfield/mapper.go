package windfield

import (
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/geo"
)

// peakTable is a worker-private running maximum per station and height.
type peakTable struct {
	heights int
	peaks   []float64
	inside  []bool
}

func newPeakTable(stations, heights int) *peakTable {
	return &peakTable{
		heights: heights,
		peaks:   make([]float64, stations*heights),
		inside:  make([]bool, stations),
	}
}

func (t *peakTable) station(i int) []float64 {
	return t.peaks[i*t.heights : (i+1)*t.heights]
}

// mapStations samples field at every station's mesh cell relative to center
// and folds the speeds into table. Stations past the outer ring or outside a
// partial azimuth span are sampled at the clamped cell but not marked inside.
func mapStations(field *Field, center geo.Point, mesh *domain.PolarMesh, stations []*domain.Station, table *peakTable) {
	radii := mesh.Radii()
	outer := radii[len(radii)-1]

	for i, st := range stations {
		dist := geo.Distance(center, st.Location)
		angle := geo.NormalizeDegrees(90 - geo.InitialBearing(center, st.Location))
		j := mesh.AzimuthBin(angle)
		k := mesh.RadiusBin(dist)
		if dist <= outer && mesh.CoversAzimuth(angle) {
			table.inside[i] = true
		}

		node := field.Node(j, k)
		peaks := table.station(i)
		for h, v := range node {
			peaks[h] = domain.MaxPeak(peaks[h], v)
		}
	}
}

// merge folds the table into the stations' shared accumulators.
func (t *peakTable) merge(stations []*domain.Station) {
	for i, st := range stations {
		for h, v := range t.station(i) {
			st.Peaks().Raise(h, v)
		}
	}
}
