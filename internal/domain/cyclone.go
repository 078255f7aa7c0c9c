package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/couchcryptid/storm-windfield/internal/geo"
)

// CycloneInput describes a cyclone in the units used by storm advisories:
// hPa for the pressure deficit, km/h for the translation speed and km for the
// radius of maximum winds.
type CycloneInput struct {
	LandfallLat         float64 `json:"landfall_lat"`
	LandfallLon         float64 `json:"landfall_lon"`
	LandfallAngle       float64 `json:"landfall_angle_deg"`
	PressureDeficitHPa  float64 `json:"pressure_deficit_hpa"`
	TranslationSpeedKmh float64 `json:"translation_speed_kmh"`
	RMWKm               float64 `json:"rmw_km"`
}

// CycloneParameters holds the physical storm description in SI units
// together with the derived Holland B shape parameter.
type CycloneParameters struct {
	Landfall         geo.Point
	LandfallAngle    float64 // degrees
	PressureDeficit  float64 // Pa
	TranslationSpeed float64 // m/s
	RMW              float64 // m
	HollandB         float64
}

// NewCycloneParameters converts advisory units to SI and derives Holland B.
func NewCycloneParameters(in CycloneInput) (CycloneParameters, error) {
	for name, v := range map[string]float64{
		"landfall_lat":          in.LandfallLat,
		"landfall_lon":          in.LandfallLon,
		"landfall_angle_deg":    in.LandfallAngle,
		"pressure_deficit_hpa":  in.PressureDeficitHPa,
		"translation_speed_kmh": in.TranslationSpeedKmh,
		"rmw_km":                in.RMWKm,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return CycloneParameters{}, NewConfigError("cyclone", fmt.Errorf("%s is not finite", name))
		}
	}
	p := CycloneParameters{
		Landfall:      geo.Point{Lat: in.LandfallLat, Lon: in.LandfallLon},
		LandfallAngle: in.LandfallAngle,
	}
	feat := FeaturePerturbation{
		PressureDeficitHPa:  in.PressureDeficitHPa,
		TranslationSpeedKmh: in.TranslationSpeedKmh,
		RMWKm:               in.RMWKm,
	}
	if err := feat.validate(); err != nil {
		return CycloneParameters{}, NewConfigError("cyclone", err)
	}
	return p.Perturb(feat), nil
}

// FeaturePerturbation replaces the intensity features of a cyclone. Values
// are in advisory units like CycloneInput.
type FeaturePerturbation struct {
	PressureDeficitHPa  float64 `json:"pressure_deficit_hpa"`
	TranslationSpeedKmh float64 `json:"translation_speed_kmh"`
	RMWKm               float64 `json:"rmw_km"`
}

// FeaturePerturbationFromSlice reads a [Δp hPa, speed km/h, Rmax km] triple.
func FeaturePerturbationFromSlice(v []float64) (FeaturePerturbation, error) {
	if len(v) != 3 {
		return FeaturePerturbation{}, NewConfigError("delta_feat", fmt.Errorf("expected 3 values, got %d", len(v)))
	}
	p := FeaturePerturbation{PressureDeficitHPa: v[0], TranslationSpeedKmh: v[1], RMWKm: v[2]}
	if err := p.validate(); err != nil {
		return FeaturePerturbation{}, NewConfigError("delta_feat", err)
	}
	return p, nil
}

func (p FeaturePerturbation) validate() error {
	if p.PressureDeficitHPa < 0 || p.TranslationSpeedKmh < 0 || p.RMWKm < 0 {
		return errors.New("pressure deficit, translation speed and radius of maximum winds must be non-negative")
	}
	return nil
}

// Perturb returns a copy of c with the pressure deficit, translation speed and
// radius of maximum winds replaced by p, and Holland B recomputed.
func (c CycloneParameters) Perturb(p FeaturePerturbation) CycloneParameters {
	c.PressureDeficit = p.PressureDeficitHPa * 100.0
	c.TranslationSpeed = p.TranslationSpeedKmh * 1000.0 / 3600.0
	c.RMW = p.RMWKm * 1000.0
	c.HollandB = HollandB(p.PressureDeficitHPa, p.RMWKm)
	return c
}

// HollandB is the Vickery et al. (2000) regression of the shape parameter on a
// pressure deficit in hPa and a radius of maximum winds in km.
func HollandB(pressureDeficitHPa, rmwKm float64) float64 {
	return 1.38 + 0.00184*pressureDeficitHPa - 0.00309*rmwKm
}

// PathPerturbation shifts the storm center and rotates its heading.
// DLon is scaled by 0.3 when applied to the center longitude.
type PathPerturbation struct {
	DLat     float64 `json:"dlat"`
	DLon     float64 `json:"dlon"`
	DHeading float64 `json:"dheading_deg"`
}

// PathPerturbationFromSlice reads a [Δlat, Δlon, Δheading] triple.
func PathPerturbationFromSlice(v []float64) (PathPerturbation, error) {
	if len(v) != 3 {
		return PathPerturbation{}, NewConfigError("delta_path", fmt.Errorf("expected 3 values, got %d", len(v)))
	}
	return PathPerturbation{DLat: v[0], DLon: v[1], DHeading: v[2]}, nil
}

// Apply offsets a track point by the positional part of the perturbation.
func (p PathPerturbation) Apply(pt geo.Point) geo.Point {
	return geo.Point{Lat: pt.Lat + p.DLat, Lon: pt.Lon + 0.3*p.DLon}
}
