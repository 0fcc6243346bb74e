// aircraft/registry/types.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package registry holds the remote-aircraft record store: the single
// choke-point between the network worker and the simulator frame callback
// (spec.md §3 "Ownership", §4.E). Field shapes follow
// original_source/plugin/include/NetworkAircraft.h.
package registry

import "time"

// Identity is who a record is: its callsign plus the ICAO type, airline,
// and livery, which Registry.ApplyIdentity may fill in after creation.
type Identity struct {
	Callsign string
	ICAOType string
	Airline  string
	Livery   string
}

// Pose is a position fix plus attitude plus nose-wheel steering angle
// (spec.md §3 "Attitude").
type Pose struct {
	Lat, Lon          float64
	TrueAltFt         float64
	AglAltFt          float64
	PitchDeg          float64
	BankDeg           float64
	HeadingDeg        float64
	NoseWheelAngleDeg float64
	OnGround          bool
}

// VelocityTriple is the body-relative linear velocity in m/s: longitudinal
// (east/west), vertical (up/down), lateral (north/south) — the FSD wire
// convention fixed by fsd/pdu.FastPilotPosition's field order.
type VelocityTriple struct {
	Lon, Vert, Lat float64
}

// AngularVelocityTriple is pitch-rate, heading-rate, bank-rate in rad/s.
// Pitch-rate and bank-rate are negated relative to the wire value on
// ingest (spec.md §3: "part of the contract").
type AngularVelocityTriple struct {
	PitchRate, HeadingRate, BankRate float64
}

// ConfigFlags are the per-aircraft configuration bits carried by
// fsd/pdu.AircraftConfig deltas (spec.md §3 "Configuration flags").
type ConfigFlags struct {
	OnGround          bool
	GearDown          bool
	SpoilersDeployed  bool
	Strobes           bool
	LandingLights     bool
	TaxiLights        bool
	Beacon            bool
	Nav               bool
	EnginesRunning    bool
	EnginesReversing  bool
	FlapsRatio        float64
}

// SurfaceState is one animated surface's current position and the target
// it is easing toward (spec.md §4.F step 5).
type SurfaceState struct {
	Current float64
	Target  float64
}

// Surfaces bundles the four animated surfaces tracked per aircraft.
type Surfaces struct {
	Gear      SurfaceState
	Spoilers  SurfaceState
	Reversers SurfaceState
	Flaps     SurfaceState
}

// WheelsAndEngines is the visual-only kinematic state of §4.F step 6.
type WheelsAndEngines struct {
	WheelRPM      float64
	WheelAngleDeg float64
	EngineRPM     float64
	EngineAngleDeg float64
	PropAngleDeg  float64
	ThrustRatio   float64
}

// TerrainSample is one probe reading taken at a point in time, retained in
// a rolling history for slope classification (spec.md §4.F step 4).
type TerrainSample struct {
	Timestamp    time.Time
	Lat, Lon     float64
	ElevationFt  float64
}

// Record is one remote aircraft's complete state: ground truth, predicted
// pose, velocities, terrain cache, and timestamps (spec.md §3 "Remote
// aircraft record"). The registry is its sole mutator from the simulator
// frame goroutine; other components borrow it by callsign for one call.
type Record struct {
	Identity Identity

	GroundTruth Pose
	Predicted   Pose

	LinearVelocity  VelocityTriple
	AngularVelocity AngularVelocityTriple

	ErrorLinearVelocity  VelocityTriple
	ErrorAngularVelocity AngularVelocityTriple

	Flags    ConfigFlags
	Surfaces Surfaces
	Visual   WheelsAndEngines

	LocalElevationFt        float64
	TargetGroundOffsetFt    float64
	CurrentGroundOffsetFt   float64
	GroundOffsetMagnitudeFt float64
	GroundOffsetStepFt      float64
	HasUsableTerrain        bool
	TerrainHistory          []TerrainSample

	LastUpdated        time.Time
	LastVelocityUpdate time.Time
	ApplyErrorUntil    time.Time
	PrevSurfaceUpdate  time.Time

	FirstRenderPending bool
}
