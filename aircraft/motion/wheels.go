// aircraft/motion/wheels.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package motion

import (
	"math"

	"xpilotfsd/aircraft/registry"
)

// tireRadiusMeters is the representative tire radius used for wheel rpm
// (spec.md §4.F step 6: "r ≈ 3.2 m").
const tireRadiusMeters = 3.2

// runningEngineRPM is a fixed plausible value used for the visual-only
// engine/prop animation while engines are running (spec.md §4.F step 6:
// "a fixed plausible value (e.g. 1200)").
const runningEngineRPM = 1200.0

// stepWheelsAndEngines advances the visual-only wheel and engine/prop
// kinematics (spec.md §4.F step 6). It has no bearing on the aircraft's
// emitted pose.
func stepWheelsAndEngines(rec *registry.Record, dt float64) {
	v := &rec.Visual

	if rec.Flags.OnGround {
		v.WheelRPM = (60 / (2 * math.Pi * tireRadiusMeters)) * math.Abs(rec.LinearVelocity.Lon)
	} else {
		v.WheelRPM = 0
	}
	v.WheelAngleDeg = math.Mod(v.WheelAngleDeg+v.WheelRPM/60*360*dt, 360)

	if rec.Flags.EnginesRunning {
		v.EngineRPM = runningEngineRPM
		v.ThrustRatio = 1
	} else {
		v.EngineRPM = 0
		v.ThrustRatio = 0
	}
	v.EngineAngleDeg = math.Mod(v.EngineAngleDeg+v.EngineRPM/60*360*dt, 360)
	v.PropAngleDeg = v.EngineAngleDeg
}
