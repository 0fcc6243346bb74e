// aircraft/motion/engine.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package motion implements the remote-aircraft motion and surface
// animation engine: pose extrapolation, error-vector blending, terrain
// ground-clamping, and visual surface/wheel/engine animation (spec.md
// §4.F). It is the largest and most stateful component of the core.
package motion

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"xpilotfsd/aircraft/registry"
	"xpilotfsd/geo"
	"xpilotfsd/xpilotlog"
)

// FrameRateHz is the assumed simulator frame rate used when converting a
// target-offset magnitude into a per-frame ground-clamp step (spec.md
// §4.F step 4). A host running at a materially different rate should
// scale dt accordingly; this core has no way to observe frame rate
// directly.
const FrameRateHz = 20.0

// Engine runs the per-frame motion and surface-animation pass over every
// record in a registry. It owns no aircraft data of its own (spec.md §3
// Ownership) — only the terrain probe handle and a small classification
// cache.
type Engine struct {
	probe TerrainProbe
	lg    *xpilotlog.Logger

	// categoryCache avoids re-running ClassifyICAO's string lookups every
	// frame for every aircraft; it holds no aircraft state, only a
	// derived, re-derivable fact about an ICAO type string, so bounding
	// it with an LRU cannot violate the registry's exclusive ownership of
	// aircraft records (grounded on the teacher's wx/manifest.go
	// expirable-LRU idiom).
	categoryCache *lru.LRU[string, Category]
}

// NewEngine builds a motion engine that queries probe for local terrain
// elevation.
func NewEngine(probe TerrainProbe, lg *xpilotlog.Logger) *Engine {
	return &Engine{
		probe:         probe,
		lg:            lg,
		categoryCache: lru.NewLRU[string, Category](256, nil, time.Hour),
	}
}

func (e *Engine) categoryFor(icaoType string) Category {
	if cat, ok := e.categoryCache.Get(icaoType); ok {
		return cat
	}
	cat := ClassifyICAO(icaoType)
	e.categoryCache.Add(icaoType, cat)
	return cat
}

// ApplyFastPosition stores a newly received fast-position report and
// refreshes the record's error-blend vectors against whatever pose was
// predicted for this instant before the update arrived (spec.md §4.F
// step 3). It must run on the simulator-frame goroutine, the registry's
// sole mutator (spec.md §5).
func (e *Engine) ApplyFastPosition(r *registry.Registry, callsign string, pose registry.Pose, linear registry.VelocityTriple, angular registry.AngularVelocityTriple) {
	prevRec, existed := r.Get(callsign)
	var prevPredicted registry.Pose
	if existed {
		prevPredicted = prevRec.Predicted
	}

	rec := r.ApplyFastPosition(callsign, pose, linear, angular)
	if !existed {
		return
	}
	refreshErrorVectors(rec, prevPredicted, pose)
}

// refreshErrorVectors computes the residual between the pose that had
// been predicted for this instant and the newly arrived ground truth, and
// stores it as an error velocity that glides the predicted pose onto
// ground truth over ErrorBlendWindow rather than teleporting (spec.md
// §4.F step 3).
func refreshErrorVectors(rec *registry.Record, predicted, groundTruth registry.Pose) {
	windowSec := registry.ErrorBlendWindow.Seconds()

	dLatM := (groundTruth.Lat - predicted.Lat) * geo.MetersPerDegreeLat
	dLonM := (groundTruth.Lon - predicted.Lon) * geo.MetersPerDegreeLat * math.Cos(geo.Radians(groundTruth.Lat))
	dAltM := (groundTruth.TrueAltFt - predicted.TrueAltFt) / geo.FeetPerMeter

	rec.ErrorLinearVelocity = registry.VelocityTriple{
		Lon:  dLonM / windowSec,
		Vert: dAltM / windowSec,
		Lat:  dLatM / windowSec,
	}

	rec.ErrorAngularVelocity = registry.AngularVelocityTriple{
		PitchRate:   geo.Radians(angleDelta(groundTruth.PitchDeg, predicted.PitchDeg)) / windowSec,
		HeadingRate: geo.Radians(angleDelta(groundTruth.HeadingDeg, predicted.HeadingDeg)) / windowSec,
		BankRate:    geo.Radians(angleDelta(groundTruth.BankDeg, predicted.BankDeg)) / windowSec,
	}
}

func angleDelta(to, from float64) float64 {
	d := math.Mod(to-from+540, 360) - 180
	return d
}

// gateAngularVelocity implements step 1: if the record has gone more than
// registry.VelocityGapResets without a velocity update, clear angular
// velocity (ground truth and error) and snap predicted attitude to the
// last known ground-truth attitude, preventing a runaway spin (spec.md
// §4.F step 1, §8 "Angular-velocity decay").
func gateAngularVelocity(rec *registry.Record, now time.Time) {
	if rec.LastVelocityUpdate.IsZero() {
		return
	}
	if now.Sub(rec.LastVelocityUpdate) <= registry.VelocityGapResets {
		return
	}
	rec.AngularVelocity = registry.AngularVelocityTriple{}
	rec.ErrorAngularVelocity = registry.AngularVelocityTriple{}
	rec.Predicted.PitchDeg = rec.GroundTruth.PitchDeg
	rec.Predicted.BankDeg = rec.GroundTruth.BankDeg
	rec.Predicted.HeadingDeg = rec.GroundTruth.HeadingDeg
}

// extrapolatePose implements step 2: advances the predicted pose by the
// (possibly error-blended) linear velocity and integrates attitude by the
// (possibly error-blended) angular velocity (spec.md §4.F step 2).
func extrapolatePose(rec *registry.Record, now time.Time, dt float64) {
	lin := rec.LinearVelocity
	ang := rec.AngularVelocity
	if now.Before(rec.ApplyErrorUntil) {
		lin.Lon += rec.ErrorLinearVelocity.Lon
		lin.Vert += rec.ErrorLinearVelocity.Vert
		lin.Lat += rec.ErrorLinearVelocity.Lat
		ang.PitchRate += rec.ErrorAngularVelocity.PitchRate
		ang.HeadingRate += rec.ErrorAngularVelocity.HeadingRate
		ang.BankRate += rec.ErrorAngularVelocity.BankRate
	}

	p := &rec.Predicted
	p.Lat = geo.WrapLatitude(p.Lat + geo.MetersToDegreesLat(lin.Lat*dt))
	p.Lon = geo.WrapLongitude(p.Lon + geo.MetersToDegreesLon(lin.Lon*dt, p.Lat))
	p.TrueAltFt += lin.Vert * dt * geo.FeetPerMeter

	orientation := eulerToQuat(p.PitchDeg, p.BankDeg, p.HeadingDeg)
	orientation = integrateOrientation(orientation, [3]float64{ang.BankRate, ang.PitchRate, ang.HeadingRate}, dt)
	p.PitchDeg, p.BankDeg, p.HeadingDeg = quatToEuler(orientation)
}

// Step runs the full per-frame pass (steps 1-7 of spec.md §4.F) over every
// record in r.
func (e *Engine) Step(r *registry.Registry, now time.Time, dt float64) {
	r.Iter(func(callsign string, rec *registry.Record) {
		gateAngularVelocity(rec, now)
		extrapolatePose(rec, now, dt)
		sampleTerrain(rec, e.probe, now)
		clampToGround(rec, FrameRateHz, registry.ErrorBlendWindow.Seconds())

		cat := e.categoryFor(rec.Identity.ICAOType)
		animateSurfaces(rec, cat, dt)
		stepWheelsAndEngines(rec, dt)

		rec.FirstRenderPending = false
	})
}
