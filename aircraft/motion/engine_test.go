// aircraft/motion/engine_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package motion

import (
	"math"
	"testing"
	"time"

	"xpilotfsd/aircraft/registry"
	"xpilotfsd/geo"
	"xpilotfsd/xpilotlog"
)

// flatProbe reports a fixed elevation everywhere, for terrain-independent
// extrapolation tests.
type flatProbe struct{ elevationFt float64 }

func (p flatProbe) Probe(lat, lon float64) (float64, bool) { return p.elevationFt, true }

// TestExtrapolationScenario reproduces spec.md §8 scenario 3: ten frames
// at dt=0.05 (0.5s total) of a pure 50 m/s northward velocity.
func TestExtrapolationScenario(t *testing.T) {
	r := registry.New()
	r.Add("PILOT", registry.Identity{Callsign: "PILOT"}, registry.Pose{
		Lat: 37.6189, Lon: -122.3750, TrueAltFt: 10000,
	})
	rec, _ := r.Get("PILOT")
	rec.LinearVelocity = registry.VelocityTriple{Lat: 50}
	rec.LastVelocityUpdate = time.Now()
	rec.FirstRenderPending = false

	now := time.Now()
	for i := 0; i < 10; i++ {
		extrapolatePose(rec, now, 0.05)
	}

	wantLat := 37.6189 + geo.MetersToDegreesLat(25)
	if math.Abs(rec.Predicted.Lat-wantLat) > 1e-7 {
		t.Errorf("got lat %v, want %v", rec.Predicted.Lat, wantLat)
	}
	if math.Abs(rec.Predicted.Lon-(-122.3750)) > 1e-7 {
		t.Errorf("got lon %v, want unchanged", rec.Predicted.Lon)
	}
	if math.Abs(rec.Predicted.TrueAltFt-10000) > 1e-6 {
		t.Errorf("got alt %v, want 10000", rec.Predicted.TrueAltFt)
	}
}

// TestAngularVelocityDecay reproduces spec.md §8's named property: a
// non-zero angular velocity applied at t=0 with no further updates must
// have decayed to ground truth by t=600ms.
func TestAngularVelocityDecay(t *testing.T) {
	rec := &registry.Record{
		GroundTruth: registry.Pose{HeadingDeg: 45},
		Predicted:   registry.Pose{HeadingDeg: 45},
	}
	rec.AngularVelocity = registry.AngularVelocityTriple{HeadingRate: 1}
	t0 := time.Now()
	rec.LastVelocityUpdate = t0

	gateAngularVelocity(rec, t0.Add(600*time.Millisecond))

	if rec.AngularVelocity != (registry.AngularVelocityTriple{}) {
		t.Errorf("expected angular velocity cleared at t=600ms, got %+v", rec.AngularVelocity)
	}
	if rec.Predicted.HeadingDeg != rec.GroundTruth.HeadingDeg {
		t.Errorf("expected predicted attitude snapped to ground truth")
	}
}

// TestErrorBlendConverges reproduces spec.md §8 "Error blend": two seconds
// of frames at dt=0.05 should drive the predicted pose within 1m of a new
// ground truth that was 50m away when the residual was captured.
func TestErrorBlendConverges(t *testing.T) {
	rec := &registry.Record{
		Predicted:   registry.Pose{Lat: 37.6189, Lon: -122.375, TrueAltFt: 10000},
		GroundTruth: registry.Pose{Lat: 37.6189, Lon: -122.375, TrueAltFt: 10000},
	}
	predictedBefore := rec.Predicted

	newGroundTruth := rec.GroundTruth
	newGroundTruth.Lat += geo.MetersToDegreesLat(50)
	rec.GroundTruth = newGroundTruth

	now := time.Now()
	refreshErrorVectors(rec, predictedBefore, newGroundTruth)
	rec.ApplyErrorUntil = now.Add(registry.ErrorBlendWindow)
	rec.LinearVelocity = registry.VelocityTriple{}

	clock := now
	for elapsed := 0.0; elapsed < 2.0; elapsed += 0.05 {
		extrapolatePose(rec, clock, 0.05)
		clock = clock.Add(50 * time.Millisecond)
	}

	gotLat := rec.Predicted.Lat
	wantLat := newGroundTruth.Lat
	diffM := (gotLat - wantLat) * geo.MetersPerDegreeLat
	if math.Abs(diffM) > 1 {
		t.Errorf("predicted lat %v off by %.2fm after blend window, want <1m", gotLat, diffM)
	}
}

// TestGroundClampFloor reproduces spec.md §8 "Ground clamp floor": a
// predicted altitude 50ft below local elevation must be raised to exactly
// local elevation.
func TestGroundClampFloor(t *testing.T) {
	rec := &registry.Record{
		HasUsableTerrain:     true,
		LocalElevationFt:     1000,
		TargetGroundOffsetFt: 0,
		Predicted:            registry.Pose{TrueAltFt: 950},
	}
	clampToGround(rec, FrameRateHz, registry.ErrorBlendWindow.Seconds())

	if rec.Predicted.TrueAltFt != 1000 {
		t.Errorf("got altitude %v, want exactly 1000", rec.Predicted.TrueAltFt)
	}
}

func TestEngineStepAdvancesFirstRenderPendingOnce(t *testing.T) {
	r := registry.New()
	r.Add("PILOT", registry.Identity{Callsign: "PILOT", ICAOType: "B738"}, registry.Pose{Lat: 10, Lon: 10, TrueAltFt: 5000})

	e := NewEngine(flatProbe{elevationFt: 0}, xpilotlog.NewDiscard())
	e.Step(r, time.Now(), 0.05)

	rec, _ := r.Get("PILOT")
	if rec.FirstRenderPending {
		t.Error("FirstRenderPending should be cleared after one Step")
	}
}
