// aircraft/motion/quat.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package motion

import (
	"math"

	"gonum.org/v1/gonum/quat"

	"xpilotfsd/geo"
)

// identityQuat is the no-rotation orientation.
var identityQuat = quat.Number{Real: 1}

// eulerToQuat builds the orientation quaternion for (pitch, bank,
// heading), all in degrees, using the body-axis convention x=bank,
// y=pitch, z=heading that quatToEuler decomposes back out of.
func eulerToQuat(pitchDeg, bankDeg, headingDeg float64) quat.Number {
	hp := geo.Radians(pitchDeg) / 2
	hb := geo.Radians(bankDeg) / 2
	hh := geo.Radians(headingDeg) / 2

	sp, cp := math.Sin(hp), math.Cos(hp)
	sr, cr := math.Sin(hb), math.Cos(hb)
	sh, ch := math.Sin(hh), math.Cos(hh)

	return quat.Number{
		Real: cr*cp*ch + sr*sp*sh,
		Imag: sr*cp*ch - cr*sp*sh,
		Jmag: cr*sp*ch + sr*cp*sh,
		Kmag: cr*cp*sh - sr*sp*ch,
	}
}

// quatToEuler decomposes an orientation quaternion back into (pitch, bank,
// heading) degrees, guarding the pitch asin against the gimbal-lock
// singularity at the north/south pole (spec.md §4.F step 2).
func quatToEuler(q quat.Number) (pitchDeg, bankDeg, headingDeg float64) {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag

	sinBank := 2 * (w*x + y*z)
	cosBank := 1 - 2*(x*x+y*y)
	bankDeg = geo.Degrees(math.Atan2(sinBank, cosBank))

	sinPitch := 2 * (w*y - z*x)
	pitchDeg = geo.Degrees(geo.SafeAsin(sinPitch))

	sinHeading := 2 * (w*z + x*y)
	cosHeading := 1 - 2*(y*y+z*z)
	headingDeg = geo.WrapHeading(geo.Degrees(math.Atan2(sinHeading, cosHeading)))

	return pitchDeg, bankDeg, headingDeg
}

// axisAngleQuat builds the quaternion rotating by angle (radians) about
// axis (not required to be pre-normalized; the zero vector yields the
// identity rotation regardless of angle).
func axisAngleQuat(axis [3]float64, angle float64) quat.Number {
	norm := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	if norm < 1e-12 {
		return identityQuat
	}
	ax, ay, az := axis[0]/norm, axis[1]/norm, axis[2]/norm

	half := angle / 2
	s := math.Sin(half)
	return normalizeQuat(quat.Number{Real: math.Cos(half), Imag: ax * s, Jmag: ay * s, Kmag: az * s})
}

func normalizeQuat(q quat.Number) quat.Number {
	norm := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if norm < 1e-12 {
		return identityQuat
	}
	return quat.Number{Real: q.Real / norm, Imag: q.Imag / norm, Jmag: q.Jmag / norm, Kmag: q.Kmag / norm}
}

// slerpQuat spherically interpolates from a to b by t in [0, 1].
func slerpQuat(a, b quat.Number, t float64) quat.Number {
	a, b = normalizeQuat(a), normalizeQuat(b)

	dot := a.Real*b.Real + a.Imag*b.Imag + a.Jmag*b.Jmag + a.Kmag*b.Kmag
	if dot < 0 {
		b = quat.Number{Real: -b.Real, Imag: -b.Imag, Jmag: -b.Jmag, Kmag: -b.Kmag}
		dot = -dot
	}

	const closeEnough = 0.9995
	if dot > closeEnough {
		return normalizeQuat(quat.Number{
			Real: geo.Lerp(t, a.Real, b.Real),
			Imag: geo.Lerp(t, a.Imag, b.Imag),
			Jmag: geo.Lerp(t, a.Jmag, b.Jmag),
			Kmag: geo.Lerp(t, a.Kmag, b.Kmag),
		})
	}

	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta0 := math.Sin(theta0)
	sinTheta := math.Sin(theta)

	s0 := math.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return normalizeQuat(quat.Number{
		Real: s0*a.Real + s1*b.Real,
		Imag: s0*a.Imag + s1*b.Imag,
		Jmag: s0*a.Jmag + s1*b.Jmag,
		Kmag: s0*a.Kmag + s1*b.Kmag,
	})
}

// integrateOrientation advances orientation by the rotation described by
// angular velocity (rad/s, body axes bank/pitch/heading) over dt seconds,
// per spec.md §4.F step 2: "composing the current orientation quaternion
// with a slerp from identity to the quaternion encoding the full
// per-second angular velocity, by fraction dt (clamped so dt ≥ 1 behaves
// as full rotation applied)". delta itself encodes the rotation for one
// full second; the dt-fraction is applied only once, by the slerp.
func integrateOrientation(orientation quat.Number, angVel [3]float64, dt float64) quat.Number {
	mag := math.Sqrt(angVel[0]*angVel[0] + angVel[1]*angVel[1] + angVel[2]*angVel[2])
	if mag < 1e-12 {
		return orientation
	}
	delta := axisAngleQuat(angVel, mag)
	blended := slerpQuat(identityQuat, delta, geo.Clamp(dt, 0.0, 1.0))
	return normalizeQuat(quat.Mul(orientation, blended))
}
