// aircraft/motion/terrain.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package motion

import (
	"math"
	"time"

	"xpilotfsd/aircraft/registry"
)

// TerrainProbe is the host collaborator consulted once per aircraft per
// frame, at any altitude (spec.md §4.x). A probe that can't resolve the
// point (ocean tile not loaded, aircraft too high) reports ok=false.
type TerrainProbe interface {
	Probe(lat, lon float64) (elevationFt float64, ok bool)
}

// UsableHistoryAge bounds how long a terrain sample is kept for slope
// classification, "roughly the error-blend window" (spec.md §4.F step 4).
const UsableHistoryAge = registry.ErrorBlendWindow

// climbWindowMultiplier widens the ground-offset smoothing window once an
// aircraft has climbed out past the low-altitude corner case, so the
// offset decays gently rather than snapping (spec.md §4.F step 4).
const climbWindowMultiplier = 2.0
const climbOutAglFt = 50.0

// maxUsableSlopeFtPerNM is the steepest first-to-last sample slope still
// considered "flat enough" to trust for ground clamping.
const maxUsableSlopeFtPerNM = 50.0
const nmPerDegreeLat = 60.0

// sampleTerrain queries probe at the record's predicted position, appends
// the reading to the rolling history, and prunes samples older than
// UsableHistoryAge (spec.md §4.F step 4).
func sampleTerrain(rec *registry.Record, probe TerrainProbe, now time.Time) {
	elev, ok := probe.Probe(rec.Predicted.Lat, rec.Predicted.Lon)
	if !ok {
		return
	}
	rec.LocalElevationFt = elev

	rec.TerrainHistory = append(rec.TerrainHistory, registry.TerrainSample{
		Timestamp:   now,
		Lat:         rec.Predicted.Lat,
		Lon:         rec.Predicted.Lon,
		ElevationFt: elev,
	})

	cutoff := now.Add(-UsableHistoryAge)
	pruned := rec.TerrainHistory[:0]
	for _, s := range rec.TerrainHistory {
		if s.Timestamp.After(cutoff) {
			pruned = append(pruned, s)
		}
	}
	rec.TerrainHistory = pruned

	rec.HasUsableTerrain = classifyTerrainHistory(rec.TerrainHistory)
}

// classifyTerrainHistory reports whether history is usable for ground
// clamping: at least two samples spanning at least half of
// UsableHistoryAge (pruning keeps every sample younger than
// UsableHistoryAge, so the span never reaches the full age), and a first-
// to-last slope shallow enough to trust (spec.md §4.F step 4).
func classifyTerrainHistory(history []registry.TerrainSample) bool {
	if len(history) < 2 {
		return false
	}
	first, last := history[0], history[len(history)-1]
	if last.Timestamp.Sub(first.Timestamp) < UsableHistoryAge/2 {
		return false
	}

	distNM := greatCircleNM(first.Lat, first.Lon, last.Lat, last.Lon)
	if distNM < 1e-6 {
		return true
	}
	slope := math.Abs(last.ElevationFt-first.ElevationFt) / distNM
	return slope <= maxUsableSlopeFtPerNM
}

func greatCircleNM(lat1, lon1, lat2, lon2 float64) float64 {
	dLatNM := (lat2 - lat1) * nmPerDegreeLat
	dLonNM := (lon2 - lon1) * nmPerDegreeLat
	return math.Hypot(dLatNM, dLonNM)
}

// clampToGround advances the record's ground-offset toward its target and
// applies it to the predicted altitude, with a hard floor at local
// elevation (spec.md §4.F step 4, §8 "Ground clamp floor").
func clampToGround(rec *registry.Record, frameRate, windowSeconds float64) {
	if !rec.HasUsableTerrain {
		return
	}

	target := rec.LocalElevationFt - (rec.GroundTruth.TrueAltFt - rec.GroundTruth.AglAltFt)

	switch {
	case rec.FirstRenderPending:
		rec.TargetGroundOffsetFt = target
		rec.CurrentGroundOffsetFt = target
		rec.GroundOffsetMagnitudeFt = 0
		rec.GroundOffsetStepFt = 0

	case rec.Flags.OnGround:
		// Force flush with local elevation: no lag while rolling on the
		// ramp/taxiway/runway.
		rec.TargetGroundOffsetFt = target
		rec.CurrentGroundOffsetFt = target

	default:
		if target != rec.TargetGroundOffsetFt {
			window := windowSeconds
			if rec.GroundTruth.AglAltFt > climbOutAglFt {
				window *= climbWindowMultiplier
			}
			rec.TargetGroundOffsetFt = target
			rec.GroundOffsetMagnitudeFt = math.Abs(target - rec.CurrentGroundOffsetFt)
			rec.GroundOffsetStepFt = rec.GroundOffsetMagnitudeFt / (frameRate * window)
		}

		switch {
		case rec.CurrentGroundOffsetFt < rec.TargetGroundOffsetFt:
			rec.CurrentGroundOffsetFt = math.Min(rec.CurrentGroundOffsetFt+rec.GroundOffsetStepFt, rec.TargetGroundOffsetFt)
		case rec.CurrentGroundOffsetFt > rec.TargetGroundOffsetFt:
			rec.CurrentGroundOffsetFt = math.Max(rec.CurrentGroundOffsetFt-rec.GroundOffsetStepFt, rec.TargetGroundOffsetFt)
		}
	}

	rec.Predicted.TrueAltFt += rec.CurrentGroundOffsetFt
	if rec.Predicted.TrueAltFt < rec.LocalElevationFt {
		rec.Predicted.TrueAltFt = rec.LocalElevationFt
	}
}
