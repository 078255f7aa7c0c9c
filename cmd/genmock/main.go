// Command genmock generates scenario fixtures and the station records the
// simulator produces for them. It uses the real windfield package so the
// expected output matches pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -scenario-out internal/pipeline/testdata/generated_scenario.json \
//	  -records-out internal/pipeline/testdata/generated_records.json \
//	  -stations 9 -realizations 2
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/geo"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
	"github.com/jonboulle/clockwork"
)

// landfall is the synthetic storm's landfall point (south Florida).
var landfall = geo.Point{Lat: 25.5, Lon: -80.3}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	scenarioOut := flag.String("scenario-out", "", "output path for the scenario fixture")
	recordsOut := flag.String("records-out", "", "output path for the expected station records (optional)")
	stations := flag.Int("stations", 9, "number of stations on a square grid around landfall")
	realizations := flag.Int("realizations", 1, "number of perturbed realizations")
	heading := flag.Float64("heading", 315, "landfall heading in compass degrees")
	flag.Parse()

	if *scenarioOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -scenario-out")
	}
	if *stations < 1 || *realizations < 1 {
		return fmt.Errorf("-stations and -realizations must be at least 1")
	}

	// Set a fixed clock for reproducible simulated_at timestamps.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.September, 26, 18, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	sc := buildScenario(*stations, *realizations, *heading)
	if err := writeJSON(*scenarioOut, sc); err != nil {
		return fmt.Errorf("writing scenario fixture: %w", err)
	}
	log.Printf("wrote scenario fixture: %s (%d stations, %d realizations)",
		*scenarioOut, *stations, *realizations)

	if *recordsOut == "" {
		return nil
	}
	b := &windfield.Builder{Physics: windfield.DefaultPhysics(), Strict: true, EnsembleWorkers: 2}
	res, err := b.Run(context.Background(), sc)
	if err != nil {
		return fmt.Errorf("simulating fixture: %w", err)
	}
	if err := writeJSON(*recordsOut, res.Records); err != nil {
		return fmt.Errorf("writing records fixture: %w", err)
	}
	log.Printf("wrote records fixture: %s", *recordsOut)

	printStats(res.Records)
	return nil
}

// buildScenario lays out a straight track through landfall along heading and
// a square station grid spaced 25 km apart.
func buildScenario(nStations, nRealizations int, heading float64) domain.Scenario {
	const (
		trackPoints  = 9
		trackSpacing = 50e3
		gridSpacing  = 25e3
	)

	lat := make([]float64, trackPoints)
	lon := make([]float64, trackPoints)
	back := geo.NormalizeDegrees(heading + 180)
	for i := range trackPoints {
		offset := float64(i-trackPoints/2) * trackSpacing
		var p geo.Point
		if offset < 0 {
			p = geo.Destination(landfall, back, -offset)
		} else {
			p = geo.Destination(landfall, heading, offset)
		}
		lat[i], lon[i] = round(p.Lat), round(p.Lon)
	}

	side := int(math.Ceil(math.Sqrt(float64(nStations))))
	list := domain.StationList{}
	for i := range nStations {
		row, col := i/side, i%side
		north := float64(row-side/2) * gridSpacing
		east := float64(col-side/2) * gridSpacing
		p := geo.Destination(geo.Destination(landfall, 0, north), 90, east)
		list.ID = append(list.ID, fmt.Sprintf("stn-%02d", i))
		list.Latitude = append(list.Latitude, round(p.Lat))
		list.Longitude = append(list.Longitude, round(p.Lon))
	}

	sc := domain.Scenario{
		ID: "genmock",
		Cyclone: domain.CycloneInput{
			LandfallLat:         landfall.Lat,
			LandfallLon:         landfall.Lon,
			LandfallAngle:       heading,
			PressureDeficitHPa:  50,
			TranslationSpeedKmh: 20,
			RMWKm:               40,
		},
		Track: domain.TrackInput{Latitude: lat, Longitude: lon},
		CycloneMesh: domain.MeshSpec{
			RadiusStart: 2000, RadiusStep: 2000, RadiusEnd: 150000,
			AzimuthStart: 0, AzimuthStep: 10, AzimuthEnd: 360,
		},
		Heights:  domain.RangeSpec{Start: 10, Step: 20, End: 50},
		Stations: list,
	}
	for i := range nRealizations {
		d := float64(i)
		sc.Realizations = append(sc.Realizations, domain.RealizationInput{
			DeltaPath: []float64{0.05 * d, -0.05 * d, 2 * d},
			DeltaFeat: []float64{50 + 5*d, 20, 40 - 2*d},
		})
	}
	return sc
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printStats(records []domain.StationRecord) {
	var finite int
	peak := 0.0
	for _, r := range records {
		if r.Finite {
			finite++
		}
		for _, v := range r.PeakSpeeds {
			peak = domain.MaxPeak(peak, v)
		}
	}
	log.Printf("records: %d (%d finite), max peak %.2f m/s", len(records), finite, peak)
}
