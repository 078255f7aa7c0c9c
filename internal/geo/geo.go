// Package geo provides spherical-earth great-circle helpers shared by the
// track resolver, the field solver and the station mapper. Angles are in
// degrees, distances in metres, longitudes signed (east positive).
package geo

import "math"

// EarthRadius is the mean spherical earth radius in metres.
const EarthRadius = 6371.0e3

// lonEpsilon keeps atan2 away from (0, 0) when two points share a longitude.
var lonEpsilon = math.Nextafter(1, 2) - 1

// Point is a WGS-84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 { return deg * math.Pi / 180.0 }

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 { return rad * 180.0 / math.Pi }

// NormalizeDegrees folds an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	if deg >= 360.0 {
		return 0
	}
	return deg
}

// Distance returns the haversine great-circle distance between a and b.
func Distance(a, b Point) float64 {
	phi1 := Radians(a.Lat)
	phi2 := Radians(b.Lat)
	dphi := Radians(b.Lat - a.Lat)
	dlambda := Radians(b.Lon - a.Lon)
	h := math.Sin(dphi/2)*math.Sin(dphi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dlambda/2)*math.Sin(dlambda/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// InitialBearing returns the compass bearing in [0, 360) of the great circle
// leaving a towards b.
func InitialBearing(a, b Point) float64 {
	phi1 := Radians(a.Lat)
	phi2 := Radians(b.Lat)
	dlambda := Radians(b.Lon - a.Lon + lonEpsilon*lonEpsilon)
	y := math.Sin(dlambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dlambda)
	return NormalizeDegrees(Degrees(math.Atan2(y, x)))
}

// Destination returns the point reached by travelling distance metres from
// origin along the great circle with the given initial compass bearing.
func Destination(origin Point, bearing, distance float64) Point {
	phi1 := Radians(origin.Lat)
	theta := Radians(bearing)
	delta := distance / EarthRadius
	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	dlambda := math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)
	return Point{Lat: Degrees(phi2), Lon: origin.Lon + Degrees(dlambda)}
}

// DestinationsAlong fills dst with the destinations from origin along one
// bearing at each of the given distances. dst must be at least as long as
// distances.
func DestinationsAlong(dst []Point, origin Point, bearing float64, distances []float64) {
	phi1 := Radians(origin.Lat)
	sinPhi1, cosPhi1 := math.Sincos(phi1)
	sinTheta, cosTheta := math.Sincos(Radians(bearing))
	for i, d := range distances {
		sinDelta, cosDelta := math.Sincos(d / EarthRadius)
		sinPhi2 := sinPhi1*cosDelta + cosPhi1*sinDelta*cosTheta
		dlambda := math.Atan2(sinTheta*sinDelta*cosPhi1, cosDelta-sinPhi1*sinPhi2)
		dst[i] = Point{Lat: Degrees(math.Asin(sinPhi2)), Lon: origin.Lon + Degrees(dlambda)}
	}
}
