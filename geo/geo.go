// geo/geo.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package geo provides the small set of geodesy helpers the motion engine
// needs to turn body-relative velocities into latitude/longitude deltas
// and to keep reported positions inside their legal ranges.
package geo

import (
	"math"

	"golang.org/x/exp/constraints"
)

// MetersPerDegreeLat is the (locally constant) number of meters per degree
// of latitude; it is accurate enough for the extrapolation windows (single
// frames to a couple of seconds) that the motion engine operates over.
const MetersPerDegreeLat = 111320.0

// MetersToDegreesLat converts a north/south distance in meters to a
// latitude delta in degrees.
func MetersToDegreesLat(meters float64) float64 {
	return meters / MetersPerDegreeLat
}

// MetersToDegreesLon converts an east/west distance in meters to a
// longitude delta in degrees at the given latitude, accounting for the
// narrowing of a degree of longitude away from the equator.
func MetersToDegreesLon(meters, latDeg float64) float64 {
	cos := math.Cos(Radians(latDeg))
	if math.Abs(cos) < 1e-9 {
		// At the poles a degree of longitude spans no distance at all;
		// avoid dividing by (near) zero.
		cos = math.Copysign(1e-9, cos)
	}
	return meters / (MetersPerDegreeLat * cos)
}

// FeetPerMeter converts meters to feet.
const FeetPerMeter = 3.28084

// WrapLatitude clamps/wraps a latitude into [-90, 90]. Unlike longitude,
// latitude does not wrap around the way a compass heading does; pushing
// past a pole folds back rather than continuing past it.
func WrapLatitude(lat float64) float64 {
	for lat > 90 {
		lat = 180 - lat
	}
	for lat < -90 {
		lat = -180 - lat
	}
	return lat
}

// WrapLongitude wraps a longitude into (-180, 180].
func WrapLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon <= 0 {
		lon += 360
	}
	return lon - 180
}

// WrapHeading wraps a true heading into [0, 360).
func WrapHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func Degrees(r float64) float64 { return r * 180 / math.Pi }
func Radians(d float64) float64 { return d * math.Pi / 180 }

// SafeAsin clamps its argument to [-1, 1] before calling math.Asin,
// guarding against the NaN that a tiny floating-point overshoot at the
// north/south pole would otherwise produce during Euler reconstruction.
func SafeAsin(a float64) float64 {
	if a < -1 {
		a = -1
	} else if a > 1 {
		a = 1
	}
	return math.Asin(a)
}

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp linearly interpolates between a and b by t (not clamped).
func Lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}
