// aircraft/motion/quat_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package motion

import (
	"math"
	"testing"
)

func TestEulerQuatRoundTrip(t *testing.T) {
	for pitch := -80.0; pitch <= 80.0; pitch += 10 {
		for bank := -170.0; bank <= 170.0; bank += 20 {
			for heading := 0.0; heading < 360; heading += 30 {
				q := eulerToQuat(pitch, bank, heading)
				gotP, gotB, gotH := quatToEuler(q)

				if angleDiff(gotP, pitch) > 0.01 {
					t.Errorf("pitch %v -> %v", pitch, gotP)
				}
				if angleDiff(gotB, bank) > 0.01 {
					t.Errorf("bank %v -> %v", bank, gotB)
				}
				if angleDiff(gotH, heading) > 0.01 {
					t.Errorf("heading %v -> %v", heading, gotH)
				}
			}
		}
	}
}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b+540, 360) - 180
	return math.Abs(d)
}

func TestIntegrateOrientationNoVelocityIsIdentity(t *testing.T) {
	q := eulerToQuat(10, 20, 30)
	got := integrateOrientation(q, [3]float64{}, 0.05)
	if got != q {
		t.Errorf("zero angular velocity should not change orientation: got %+v, want %+v", got, q)
	}
}

func TestIntegrateOrientationFullDtAppliesFullRotation(t *testing.T) {
	q := identityQuat
	// 90 deg/s heading rate for 1s should yield a 90 degree turn.
	got := integrateOrientation(q, [3]float64{0, 0, math.Pi / 2}, 1.0)
	_, _, heading := quatToEuler(got)
	if angleDiff(heading, 90) > 0.5 {
		t.Errorf("got heading %v, want ~90", heading)
	}
}

func TestIntegrateOrientationAccumulatesOverSmallFrames(t *testing.T) {
	q := identityQuat
	const dt = 1.0 / FrameRateHz // 0.05s, the engine's own per-frame step
	angVel := [3]float64{0, 0, math.Pi / 2}
	for i := 0; i < int(FrameRateHz); i++ {
		q = integrateOrientation(q, angVel, dt)
	}
	_, _, heading := quatToEuler(q)
	if angleDiff(heading, 90) > 0.5 {
		t.Errorf("20 frames of 90deg/s at dt=0.05 got heading %v, want ~90", heading)
	}
}
