package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// RawScenario represents an unprocessed message from the source topic.
type RawScenario struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// TrackInput is the best-track polyline as parallel coordinate slices.
type TrackInput struct {
	Latitude  []float64 `json:"latitude"`
	Longitude []float64 `json:"longitude"`
}

// RealizationInput overrides the scenario-level perturbations for one run.
type RealizationInput struct {
	DeltaPath []float64 `json:"delta_path,omitempty"`
	DeltaFeat []float64 `json:"delta_feat,omitempty"`
}

// Scenario is a complete simulation request.
type Scenario struct {
	ID             string             `json:"id"`
	Cyclone        CycloneInput       `json:"cyclone"`
	Track          TrackInput         `json:"track"`
	TrackMesh      *RangeSpec         `json:"track_mesh,omitempty"`
	TrackLatitudes []float64          `json:"track_latitudes,omitempty"`
	CycloneMesh    MeshSpec           `json:"cyclone_mesh"`
	Heights        RangeSpec          `json:"heights"`
	Stations       StationList        `json:"stations"`
	Terrain        json.RawMessage    `json:"terrain,omitempty"`
	DeltaPath      []float64          `json:"delta_path,omitempty"`
	DeltaFeat      []float64          `json:"delta_feat,omitempty"`
	Realizations   []RealizationInput `json:"realizations,omitempty"`
}

// Realization is one perturbed run of a scenario. Feature is nil when the
// cyclone's own intensity features are used unchanged.
type Realization struct {
	Index   int
	Path    PathPerturbation
	Feature *FeaturePerturbation
	// Warnings holds perturbations skipped by ExpandPermissive.
	Warnings []Warning
}

// ParseScenario deserializes a RawScenario's value into a Scenario. Scenarios
// without an ID get a deterministic one derived from the payload, so replaying
// a message produces the same record keys.
func ParseScenario(raw RawScenario) (Scenario, error) {
	var s Scenario
	if err := json.Unmarshal(raw.Value, &s); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario: %w", err)
	}
	if s.ID == "" {
		s.ID = scenarioID(raw.Value)
	}
	return s, nil
}

func scenarioID(payload []byte) string {
	hash := sha256.Sum256(payload)
	return "scn-" + hex.EncodeToString(hash[:8])
}

// Expand lists the realizations to simulate. A scenario without explicit
// realizations yields a single one built from its top-level perturbations.
// A malformed perturbation fails the expansion.
func (s Scenario) Expand() ([]Realization, error) {
	return s.expand(true)
}

// ExpandPermissive is Expand for permissive runs: a malformed perturbation
// falls back to none for that realization and is recorded as a
// config_skipped warning on it.
func (s Scenario) ExpandPermissive() []Realization {
	out, _ := s.expand(false)
	return out
}

func (s Scenario) expand(strict bool) ([]Realization, error) {
	if len(s.Realizations) == 0 {
		r, err := buildRealization(0, s.DeltaPath, s.DeltaFeat, strict)
		if err != nil {
			return nil, err
		}
		return []Realization{r}, nil
	}

	out := make([]Realization, 0, len(s.Realizations))
	for i, in := range s.Realizations {
		path, feat := in.DeltaPath, in.DeltaFeat
		if path == nil {
			path = s.DeltaPath
		}
		if feat == nil {
			feat = s.DeltaFeat
		}
		r, err := buildRealization(i, path, feat, strict)
		if err != nil {
			return nil, fmt.Errorf("realization %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func buildRealization(index int, deltaPath, deltaFeat []float64, strict bool) (Realization, error) {
	r := Realization{Index: index}
	var diag Diagnostics
	if deltaPath != nil {
		p, err := PathPerturbationFromSlice(deltaPath)
		switch {
		case err == nil:
			r.Path = p
		case strict:
			return Realization{}, err
		default:
			diag.Warn(WarnConfigSkipped, "%v", err)
		}
	}
	if deltaFeat != nil {
		f, err := FeaturePerturbationFromSlice(deltaFeat)
		switch {
		case err == nil:
			r.Feature = &f
		case strict:
			return Realization{}, err
		default:
			diag.Warn(WarnConfigSkipped, "%v", err)
		}
	}
	r.Warnings = diag.Warnings
	return r, nil
}
