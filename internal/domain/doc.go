// Package domain models tropical cyclone wind-field scenarios.
//
// # Units
//
// Scenario documents use advisory units: the central pressure deficit in hPa,
// the translation speed in km/h and the radius of maximum winds in km.
// [NewCycloneParameters] converts these to Pa, m/s and m. Mesh radii and
// heights are metres; angles are degrees.
//
// # Angle conventions
//
// Storm headings are compass bearings, clockwise from north, so a storm
// moving due east has heading 90. Mesh azimuths are mathematical angles,
// counter-clockwise from east. A mesh angle a and a compass bearing b relate
// by a = 90 - b (mod 360).
//
// Longitudes are signed degrees, east positive.
//
// # Roughness
//
// Surface roughness length z0 (m) comes from the terrain index. A station
// given z0 = 0 resolves its value from terrain when it is added; the value
// is never recomputed afterwards.
//
// # Peaks
//
// Each station carries a [PeakAccumulator], a per-height running maximum that
// starts at zero and only rises. A NaN observation is sticky: once a cell is
// NaN it stays NaN, and the resulting [StationRecord] reports finite=false.
package domain
