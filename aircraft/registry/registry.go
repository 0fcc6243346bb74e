// aircraft/registry/registry.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package registry

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/brunoga/deep"
	"github.com/davecgh/go-spew/spew"
	"github.com/vmihailenco/msgpack/v5"
)

// StaleAfter is the age past which a record with no update at all is
// evicted by SweepStale (spec.md §3 invariant, §8 "Stale eviction").
const StaleAfter = 30 * time.Second

// VelocityGapResets is the gap past which a missing velocity update
// forces angular velocity to zero (spec.md §4.E apply_fast_position,
// §4.F step 1).
const VelocityGapResets = 500 * time.Millisecond

// ErrorBlendWindow is how long a freshly refreshed error vector is
// applied before decaying to zero (spec.md §4.F step 3).
const ErrorBlendWindow = 2 * time.Second

// Registry maps callsign to remote-aircraft record. It is the single
// choke-point between the network worker's decoded events and the
// simulator frame callback; the network worker only enqueues, and every
// write (ground truth and predicted state alike) is applied on the
// simulator-frame goroutine. Access is serialized behind one mutex
// (spec.md §5).
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{records: make(map[string]*Record)}
}

// Add creates a record for callsign if absent; if present, it is replaced
// wholesale (spec.md §4.E: "a duplicate add is interpreted as a
// re-introduction", §8 "Registry idempotence").
func (r *Registry) Add(callsign string, identity Identity, initial Pose) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	rec := &Record{
		Identity:           identity,
		GroundTruth:        initial,
		Predicted:          initial,
		LastUpdated:        now,
		FirstRenderPending: true,
	}
	r.records[callsign] = rec
	return rec
}

// Remove deletes callsign's record. Idempotent.
func (r *Registry) Remove(callsign string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, callsign)
}

// ApplySlowPosition updates ground-truth pose and the on-ground flag from
// a ~5s position report, creating the record if absent (spec.md §4.E).
func (r *Registry) ApplySlowPosition(callsign string, pose Pose, onGround bool) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callsign]
	if !ok {
		rec = &Record{Identity: Identity{Callsign: callsign}, FirstRenderPending: true}
		r.records[callsign] = rec
	}
	rec.GroundTruth = pose
	rec.Flags.OnGround = onGround
	rec.LastUpdated = time.Now()
	return rec
}

// ApplyFastPosition updates ground truth, velocities, and the error-blend
// window; the error vectors themselves are refreshed by the caller
// (aircraft/motion's Engine.ApplyFastPosition, via refreshErrorVectors)
// once it has the predicted pose in hand. If the gap
// since the last velocity update exceeds VelocityGapResets, angular
// velocity is zeroed first (spec.md §4.E, §4.F step 1).
func (r *Registry) ApplyFastPosition(callsign string, pose Pose, linear VelocityTriple, angular AngularVelocityTriple) *Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callsign]
	if !ok {
		rec = &Record{Identity: Identity{Callsign: callsign}, FirstRenderPending: true}
		r.records[callsign] = rec
	}

	now := time.Now()
	if !rec.LastVelocityUpdate.IsZero() && now.Sub(rec.LastVelocityUpdate) > VelocityGapResets {
		rec.AngularVelocity = AngularVelocityTriple{}
		rec.ErrorAngularVelocity = AngularVelocityTriple{}
		rec.Predicted.PitchDeg = rec.GroundTruth.PitchDeg
		rec.Predicted.BankDeg = rec.GroundTruth.BankDeg
		rec.Predicted.HeadingDeg = rec.GroundTruth.HeadingDeg
	}

	rec.GroundTruth = pose
	rec.LinearVelocity = linear
	rec.AngularVelocity = angular
	rec.LastVelocityUpdate = now
	rec.LastUpdated = now
	rec.ApplyErrorUntil = now.Add(ErrorBlendWindow)
	return rec
}

// ConfigDelta is the wire shape of an aircraft-configuration delta: every
// field is a pointer so an absent key in the JSON payload leaves the
// corresponding flag untouched (spec.md §4.E apply_config).
type ConfigDelta struct {
	OnGround         *bool    `json:"on_ground,omitempty"`
	GearDown         *bool    `json:"gear_down,omitempty"`
	SpoilersDeployed *bool    `json:"spoilers_deployed,omitempty"`
	Strobes          *bool    `json:"strobes,omitempty"`
	LandingLights    *bool    `json:"landing_lights,omitempty"`
	TaxiLights       *bool    `json:"taxi_lights,omitempty"`
	Beacon           *bool    `json:"beacon,omitempty"`
	Nav              *bool    `json:"nav,omitempty"`
	EnginesRunning   *bool    `json:"engines_running,omitempty"`
	EnginesReversing *bool    `json:"engines_reversing,omitempty"`
	FlapsRatio       *float64 `json:"flaps_ratio,omitempty"`
}

// DecodeConfigDelta parses the JSON payload carried by an
// fsd/pdu.AircraftConfig PDU. Unknown keys are tolerated.
func DecodeConfigDelta(payloadJSON string) (ConfigDelta, error) {
	var d ConfigDelta
	err := json.Unmarshal([]byte(payloadJSON), &d)
	return d, err
}

// ApplyConfig merges delta into callsign's flags; absent fields in delta
// retain their previous value (spec.md §4.E).
func (r *Registry) ApplyConfig(callsign string, delta ConfigDelta) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callsign]
	if !ok {
		return
	}
	f := &rec.Flags
	setBool(&f.OnGround, delta.OnGround)
	setBool(&f.GearDown, delta.GearDown)
	setBool(&f.SpoilersDeployed, delta.SpoilersDeployed)
	setBool(&f.Strobes, delta.Strobes)
	setBool(&f.LandingLights, delta.LandingLights)
	setBool(&f.TaxiLights, delta.TaxiLights)
	setBool(&f.Beacon, delta.Beacon)
	setBool(&f.Nav, delta.Nav)
	setBool(&f.EnginesRunning, delta.EnginesRunning)
	setBool(&f.EnginesReversing, delta.EnginesReversing)
	if delta.FlapsRatio != nil {
		f.FlapsRatio = *delta.FlapsRatio
	}
	rec.LastUpdated = time.Now()
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

// ApplyIdentity fills in callsign's ICAO type, airline, and livery once
// they are learned from a plane-info response — the CSL-selector triple
// spec.md §4.x keys surface-animation category and model selection on. A
// blank field in the response leaves the corresponding Identity field
// unchanged rather than clobbering it with empty string.
func (r *Registry) ApplyIdentity(callsign, icaoType, airline, livery string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[callsign]
	if !ok {
		return
	}
	if icaoType != "" {
		rec.Identity.ICAOType = icaoType
	}
	if airline != "" {
		rec.Identity.Airline = airline
	}
	if livery != "" {
		rec.Identity.Livery = livery
	}
}

// SweepStale evicts every record whose LastUpdated is older than
// StaleAfter as of now (spec.md §8 "Stale eviction").
func (r *Registry) SweepStale(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for callsign, rec := range r.records {
		if now.Sub(rec.LastUpdated) > StaleAfter {
			delete(r.records, callsign)
		}
	}
}

// Iter borrows all records for one render pass under the registry lock.
// fn must not call back into the registry.
func (r *Registry) Iter(fn func(callsign string, rec *Record)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for callsign, rec := range r.records {
		fn(callsign, rec)
	}
}

// Get borrows one record by callsign, or reports ok=false.
func (r *Registry) Get(callsign string) (*Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callsign]
	return rec, ok
}

// Len reports the number of tracked aircraft.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Clone deep-copies rec so a caller (e.g. a UI collaborator) can hold a
// snapshot without racing the simulator-frame mutator.
func Clone(rec *Record) *Record {
	return deep.MustCopy(rec)
}

// Snapshot serializes every tracked record to msgpack, for crash-recovery
// persistence or cross-process handoff (grounded on the teacher's
// util.CacheStoreObject msgpack-caching idiom).
func (r *Registry) Snapshot() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return msgpack.Marshal(r.records)
}

// LoadSnapshot replaces the registry's contents with the records encoded
// by a prior Snapshot call.
func (r *Registry) LoadSnapshot(data []byte) error {
	var records map[string]*Record
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = records
	return nil
}

// Dump renders callsign's record as a multi-line debug string, for
// interactive troubleshooting (go-spew, matching the teacher's debug-dump
// conventions).
func (r *Registry) Dump(callsign string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[callsign]
	if !ok {
		return "(no record for " + callsign + ")"
	}
	return spew.Sdump(rec)
}
