package domain

import "fmt"

// WarningKind classifies a non-fatal configuration diagnostic.
type WarningKind string

const (
	WarnTrackTruncated     WarningKind = "track_truncated"
	WarnTrackMeshClamped   WarningKind = "track_mesh_clamped"
	WarnDuplicateLatitude  WarningKind = "track_duplicate_latitude"
	WarnConfigSkipped      WarningKind = "config_skipped"
	WarnStationOutsideMesh WarningKind = "station_outside_mesh"
)

// Warning is a diagnostic that did not stop the simulation.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return string(w.Kind) + ": " + w.Message
}

// Diagnostics accumulates warnings raised while configuring a simulation.
// The zero value is ready to use.
type Diagnostics struct {
	Warnings []Warning
}

// Warn records a warning of the given kind.
func (d *Diagnostics) Warn(kind WarningKind, format string, args ...any) {
	d.Warnings = append(d.Warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Add appends already-built warnings.
func (d *Diagnostics) Add(ws ...Warning) {
	d.Warnings = append(d.Warnings, ws...)
}

// Has reports whether a warning of the given kind was recorded.
func (d *Diagnostics) Has(kind WarningKind) bool {
	for _, w := range d.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// ConfigError reports a malformed or inconsistent configuration step.
type ConfigError struct {
	Step string
	Err  error
}

// NewConfigError wraps err as a failure of the named configuration step.
func NewConfigError(step string, err error) *ConfigError {
	return &ConfigError{Step: step, Err: err}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configure %s: %v", e.Step, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
