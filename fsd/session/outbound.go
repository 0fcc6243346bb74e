// fsd/session/outbound.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package session

import (
	"xpilotfsd/aircraft/registry"
	"xpilotfsd/fsd/pdu"
)

// OutboundEvent is what HandlePDU returns: either a PDU the caller must
// transmit, or a semantic instruction for the aircraft registry (spec.md
// §4.C "HandlePDU ... returns state transitions/events for the registry
// and any PDUs to send back"). The caller (fsdnet) type-switches on these
// rather than session reaching into the registry itself, keeping the
// session's only state the socket and the auth state (spec.md §3
// Ownership).
type OutboundEvent interface {
	isOutboundEvent()
}

// SendPDU asks the caller to encode and transmit p.
type SendPDU struct {
	PDU pdu.PDU
}

func (SendPDU) isOutboundEvent() {}

// AircraftAdded asks the registry to create or re-introduce callsign
// (spec.md §4.E add).
type AircraftAdded struct {
	Callsign string
	Identity registry.Identity
	Pose     registry.Pose
}

func (AircraftAdded) isOutboundEvent() {}

// AircraftRemoved asks the registry to delete callsign (spec.md §4.E
// remove).
type AircraftRemoved struct {
	Callsign string
}

func (AircraftRemoved) isOutboundEvent() {}

// AircraftSlowPosition carries a ~5s ground-truth position report (spec.md
// §4.E apply_slow_position).
type AircraftSlowPosition struct {
	Callsign string
	Pose     registry.Pose
	OnGround bool
}

func (AircraftSlowPosition) isOutboundEvent() {}

// AircraftFastPosition carries a velocity-bearing report (spec.md §4.E
// apply_fast_position).
type AircraftFastPosition struct {
	Callsign string
	Pose     registry.Pose
	Linear   registry.VelocityTriple
	Angular  registry.AngularVelocityTriple
}

func (AircraftFastPosition) isOutboundEvent() {}

// AircraftConfigDelta carries a parsed configuration-flag delta (spec.md
// §4.E apply_config).
type AircraftConfigDelta struct {
	Callsign string
	Delta    registry.ConfigDelta
}

func (AircraftConfigDelta) isOutboundEvent() {}

// AircraftIdentity carries the ICAO type/airline/livery triple learned
// from a plane-info response, the CSL-selector input spec.md §4.x and
// §4.F step 5's surface-animation category lookup both key on.
type AircraftIdentity struct {
	Callsign string
	ICAOType string
	Airline  string
	Livery   string
}

func (AircraftIdentity) isOutboundEvent() {}
