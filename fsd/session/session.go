// fsd/session/session.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package session drives the connection-lifecycle state machine, the
// periodic auth-challenge loop, and outbound PDU scheduling (spec.md
// §4.C). It owns the socket and the auth state exclusively (spec.md §3
// Ownership) and is otherwise a pure translator between decoded PDUs and
// the events/PDUs described by OutboundEvent.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"xpilotfsd/aircraft/registry"
	"xpilotfsd/config"
	"xpilotfsd/fsd/auth"
	"xpilotfsd/fsd/pdu"
	"xpilotfsd/fsd/transport"
	"xpilotfsd/xpilotlog"
)

const (
	slowPositionPeriod     = 5 * time.Second
	fastPositionPeriod     = 200 * time.Millisecond
	heartbeatPeriod        = 30 * time.Second
	serverChallengePeriod  = 60 * time.Second
	challengeReplyDeadline = 30 * time.Second

	// movingDeadbandMS is the minimum linear speed (m/s, any axis) below
	// which fast-position transmission is suspended (spec.md §4.C
	// "outbound scheduling ... while any velocity component exceeds a
	// small deadband").
	movingDeadbandMS = 0.05
)

// Session is the connection-lifecycle state machine described in spec.md
// §3 "Session state" and §4.C.
type Session struct {
	cfg config.Config
	lg  *xpilotlog.Logger
	id  uuid.UUID

	tokenFunc auth.TokenFunc
	authKey   []byte

	connMu sync.Mutex
	conn   net.Conn
	wire   *transport.Transport

	state State

	authState auth.State

	pendingOwnChallengeDeadline time.Time
	lastOwnChallengeAt          time.Time

	lastHeartbeatAt    time.Time
	lastSlowPositionAt time.Time
	lastFastPositionAt time.Time
	configDumped       bool

	haveOwnPose bool
	ownPose     registry.Pose
	ownLinear   registry.VelocityTriple
	ownAngular  registry.AngularVelocityTriple
	ownConfig   registry.ConfigFlags
	configDirty bool

	events chan SessionEvent
}

// New builds a Session for cfg, ready to Connect. tokenFunc answers the
// auth-challenge loop (spec.md §4.D); a typical caller passes
// auth.ReferenceFunction.
func New(cfg config.Config, lg *xpilotlog.Logger, tokenFunc auth.TokenFunc) *Session {
	return &Session{
		cfg:       cfg,
		lg:        lg,
		id:        uuid.New(),
		tokenFunc: tokenFunc,
		authKey:   []byte(cfg.VatsimPassword),
		state:     Disconnected,
		events:    make(chan SessionEvent, 16),
	}
}

// Events returns the channel SessionEvent values are posted on. The
// caller must drain it; posts are non-blocking and drop the oldest event
// rather than stall the simulator-frame goroutine (spec.md §5: the
// simulator thread must never block on an external consumer).
func (s *Session) Events() <-chan SessionEvent { return s.events }

func (s *Session) post(e SessionEvent) {
	select {
	case s.events <- e:
	default:
		select {
		case <-s.events:
		default:
		}
		select {
		case s.events <- e:
		default:
		}
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// ID is the correlation id stamped on this connection attempt's log lines
// (spec.md §6 "stamps each connection attempt with a UUID").
func (s *Session) ID() uuid.UUID { return s.id }

// SetOwnState updates the pose, velocities, and configuration flags the
// host simulator reports for the user's own aircraft; Tick uses the most
// recent values when it is time to transmit. The session has no other
// way to learn this — it is not a remote-aircraft record and is never
// stored in the registry (spec.md §3 Ownership: the registry owns only
// remote aircraft).
func (s *Session) SetOwnState(pose registry.Pose, linear registry.VelocityTriple, angular registry.AngularVelocityTriple, cfg registry.ConfigFlags) {
	s.haveOwnPose = true
	s.ownPose = pose
	s.ownLinear = linear
	s.ownAngular = angular
	if cfg != s.ownConfig {
		s.ownConfig = cfg
		s.configDirty = true
	}
}

// Connect dials the server via dial, wraps the connection in an FSD line
// transport, and transitions Disconnected -> SocketOpen (spec.md §4.C).
// Whenever ctx is canceled, in any state, the connection is closed;
// Connect itself neither changes state nor posts an event for that, so
// the Disconnected transition comes from the read loop calling Disconnect.
func (s *Session) Connect(ctx context.Context, dial func() (net.Conn, error)) error {
	conn, err := dial()
	if err != nil {
		return fmt.Errorf("session: dial: %w", err)
	}

	s.connMu.Lock()
	s.conn = conn
	s.wire = transport.New(conn)
	s.connMu.Unlock()

	s.state = SocketOpen
	s.lg.Info("session connecting", "id", s.id, "server", s.cfg.ServerAddress)

	go func() {
		<-ctx.Done()
		s.connMu.Lock()
		c := s.conn
		s.connMu.Unlock()
		if c != nil {
			c.Close()
		}
	}()

	return nil
}

// Conn returns the raw connection for the caller's network-thread read
// loop (spec.md §5: one goroutine blocks in recv). Returns nil before
// Connect or after Disconnect.
func (s *Session) Conn() net.Conn {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn
}

// Transport returns the FSD line transport wrapping Conn, for the
// caller's read loop to frame bytes into lines (fsd/transport.ReadLines).
func (s *Session) Transport() *transport.Transport {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.wire
}

// Disconnect tears down the socket, transitions to Disconnected, and
// posts a Disconnected event with reason. Idempotent.
func (s *Session) Disconnect(reason string) {
	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.wire = nil
	s.connMu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if s.state == Disconnected {
		return
	}
	s.state = Disconnected
	s.lg.Info("session disconnected", "id", s.id, "reason", reason)
	s.post(Disconnected{Reason: reason})
}

// send wraps p as a SendPDU outbound event. It does not encode p; the
// caller that transmits it (fsdnet) encodes and logs any encode failure.
func (s *Session) send(p pdu.PDU) OutboundEvent {
	return SendPDU{PDU: p}
}

// HandlePDU dispatches one decoded inbound PDU, advancing the state
// machine and/or returning events for the caller to apply to the aircraft
// registry (spec.md §4.C "HandlePDU").
func (s *Session) HandlePDU(p pdu.PDU) []OutboundEvent {
	switch v := p.(type) {
	case *pdu.ServerIdentification:
		return s.handleServerIdentification(v)
	case *pdu.Kill:
		s.Disconnect("killed by server: " + v.Reason)
		return nil
	case *pdu.ProtocolError:
		s.Disconnect(fmt.Sprintf("protocol error %s: %s", v.Code, v.Message))
		return nil
	case *pdu.AuthChallenge:
		return s.handleAuthChallenge(v)
	case *pdu.AuthResponse:
		s.pendingOwnChallengeDeadline = time.Time{}
		return nil
	case *pdu.Heartbeat:
		return nil
	case *pdu.AddPilot:
		return []OutboundEvent{AircraftAdded{
			Callsign: v.Callsign,
			Identity: registry.Identity{Callsign: v.Callsign},
			Pose:     registry.Pose{},
		}}
	case *pdu.DeletePilot:
		return []OutboundEvent{AircraftRemoved{Callsign: v.Callsign}}
	case *pdu.AddATC:
		return []OutboundEvent{AircraftAdded{
			Callsign: v.Callsign,
			Identity: registry.Identity{Callsign: v.Callsign},
		}}
	case *pdu.DeleteATC:
		return []OutboundEvent{AircraftRemoved{Callsign: v.Callsign}}
	case *pdu.PilotPositionSlow:
		pitch, bank, heading, onGround := pdu.DecodeAttitude(v.PBH)
		return []OutboundEvent{AircraftSlowPosition{
			Callsign: v.Callsign,
			Pose: registry.Pose{
				Lat: v.Lat, Lon: v.Lon, TrueAltFt: v.TrueAltFt,
				PitchDeg: pitch, BankDeg: bank, HeadingDeg: heading,
				OnGround: onGround,
			},
			OnGround: onGround,
		}}
	case *pdu.FastPilotPosition:
		pitch, bank, heading, onGround := pdu.DecodeAttitude(v.PBH)
		return []OutboundEvent{AircraftFastPosition{
			Callsign: v.Callsign,
			Pose: registry.Pose{
				Lat: v.Lat, Lon: v.Lon, TrueAltFt: v.TrueAltFt, AglAltFt: v.AglAltFt,
				PitchDeg: pitch, BankDeg: bank, HeadingDeg: heading,
				NoseWheelAngleDeg: v.NoseWheelAngleDeg,
				OnGround:          onGround,
			},
			Linear: registry.VelocityTriple{Lon: v.VLon, Vert: v.VVert, Lat: v.VLat},
			// Roll is about the longitudinal axis, yaw about the vertical
			// axis, pitch about the lateral axis; pitch-rate and bank-rate
			// are negated on ingest (spec.md §3 Velocity triple).
			Angular: registry.AngularVelocityTriple{
				PitchRate:   -v.AngVLat,
				HeadingRate: v.AngVVert,
				BankRate:    -v.AngVLon,
			},
		}}
	case *pdu.AircraftConfig:
		delta, err := registry.DecodeConfigDelta(v.PayloadJSON)
		if err != nil {
			s.lg.Warn("malformed aircraft config payload", "callsign", v.Callsign, "err", err)
			return nil
		}
		return []OutboundEvent{AircraftConfigDelta{Callsign: v.Callsign, Delta: delta}}
	case *pdu.TextMessage:
		freqs, radio := v.IsRadio()
		s.post(TextReceived{From: v.From, To: v.To, Body: v.Body, Radio: radio, FrequenciesKHz: freqs})
		return nil
	case *pdu.ClientQuery:
		return nil
	case *pdu.ClientQueryResponse:
		return nil
	case *pdu.PlaneInfoRequest:
		return []OutboundEvent{s.send(&pdu.PlaneInfoResponse{
			From: s.cfg.Callsign, To: v.From,
			ICAOType: s.cfg.AircraftType,
		})}
	case *pdu.PlaneInfoResponse:
		return []OutboundEvent{AircraftIdentity{
			Callsign: v.From,
			ICAOType: v.ICAOType,
			Airline:  v.Airline,
			Livery:   v.Livery,
		}}
	case *pdu.ATCPosition:
		return nil
	default:
		return nil
	}
}

func (s *Session) handleServerIdentification(v *pdu.ServerIdentification) []OutboundEvent {
	if s.state != SocketOpen {
		return nil
	}
	s.authState = auth.State{}

	initialResponse, next := s.tokenFunc(v.ChallengeKey, s.cfg.VatsimID, s.authKey, s.authState)
	s.authState = next

	s.state = ServerIdentified

	clientID := &pdu.ClientIdentification{
		From: s.cfg.Callsign, To: v.From,
		ClientIDHex: "0", ClientName: "xpilotfsd",
		MajorVersion: 1, MinorVersion: 0,
		UserID:                   s.cfg.VatsimID,
		InitialChallengeResponse: initialResponse,
	}

	addPilot := &pdu.AddPilot{
		Callsign: s.cfg.Callsign, To: v.From,
		UserID: s.cfg.VatsimID, Password: s.cfg.VatsimPassword,
		Rating: 1, ProtocolRevision: 9, SimType: 1,
	}
	s.state = Authenticated

	return []OutboundEvent{s.send(clientID), s.send(addPilot)}
}

func (s *Session) handleAuthChallenge(v *pdu.AuthChallenge) []OutboundEvent {
	response, next := s.tokenFunc(v.Challenge, s.cfg.VatsimID, s.authKey, s.authState)
	s.authState = next
	return []OutboundEvent{s.send(&pdu.AuthResponse{
		From: s.cfg.Callsign, To: v.From, Response: response,
	})}
}

// Tick runs once per simulator frame, emitting any PDUs scheduled to go
// out at now (spec.md §4.C "Outbound scheduling"), advancing
// Authenticated -> Active on the first slow position, and treating a
// stale outstanding self-issued challenge as fatal.
func (s *Session) Tick(now time.Time) []pdu.PDU {
	var out []pdu.PDU

	if s.state == Authenticated && s.haveOwnPose {
		out = append(out, s.buildSlowPosition())
		s.lastSlowPositionAt = now
		s.state = Active
		s.post(Connected{})
	}

	if s.state != Active {
		return out
	}

	if !s.pendingOwnChallengeDeadline.IsZero() && now.After(s.pendingOwnChallengeDeadline) {
		s.Disconnect("self-issued auth challenge timed out")
		return out
	}

	if s.cfg.ChallengeServer && now.Sub(s.lastOwnChallengeAt) >= serverChallengePeriod {
		challenge, next := s.tokenFunc(s.id.String(), s.cfg.VatsimID, s.authKey, s.authState)
		s.authState = next
		out = append(out, &pdu.AuthChallenge{From: s.cfg.Callsign, To: "SERVER", Challenge: challenge})
		s.lastOwnChallengeAt = now
		s.pendingOwnChallengeDeadline = now.Add(challengeReplyDeadline)
	}

	if now.Sub(s.lastHeartbeatAt) >= heartbeatPeriod {
		out = append(out, &pdu.Heartbeat{Callsign: s.cfg.Callsign})
		s.lastHeartbeatAt = now
	}

	if s.haveOwnPose && now.Sub(s.lastSlowPositionAt) >= slowPositionPeriod {
		out = append(out, s.buildSlowPosition())
		s.lastSlowPositionAt = now
	}

	if s.haveOwnPose && s.moving() && now.Sub(s.lastFastPositionAt) >= fastPositionPeriod {
		out = append(out, s.buildFastPosition())
		s.lastFastPositionAt = now
	}

	if s.haveOwnPose && (!s.configDumped || s.configDirty) {
		out = append(out, s.buildConfigDump())
		s.configDumped = true
		s.configDirty = false
	}

	return out
}

func (s *Session) moving() bool {
	v := s.ownLinear
	abs := func(f float64) float64 {
		if f < 0 {
			return -f
		}
		return f
	}
	return abs(v.Lon) > movingDeadbandMS || abs(v.Vert) > movingDeadbandMS || abs(v.Lat) > movingDeadbandMS
}

func (s *Session) buildSlowPosition() *pdu.PilotPositionSlow {
	pbh := pdu.EncodeAttitude(s.ownPose.PitchDeg, s.ownPose.BankDeg, s.ownPose.HeadingDeg, s.ownPose.OnGround)
	mode := "N"
	if s.ownPose.OnGround {
		mode = "S"
	}
	return &pdu.PilotPositionSlow{
		SquawkMode: mode, Callsign: s.cfg.Callsign, SquawkCode: "1200", Rating: 1,
		Lat: s.ownPose.Lat, Lon: s.ownPose.Lon, TrueAltFt: s.ownPose.TrueAltFt,
		PBH: pbh,
	}
}

func (s *Session) buildFastPosition() *pdu.FastPilotPosition {
	pbh := pdu.EncodeAttitude(s.ownPose.PitchDeg, s.ownPose.BankDeg, s.ownPose.HeadingDeg, s.ownPose.OnGround)
	return &pdu.FastPilotPosition{
		Callsign: s.cfg.Callsign,
		Lat:      s.ownPose.Lat, Lon: s.ownPose.Lon,
		TrueAltFt: s.ownPose.TrueAltFt, AglAltFt: s.ownPose.AglAltFt,
		PBH: pbh,
		VLon: s.ownLinear.Lon, VVert: s.ownLinear.Vert, VLat: s.ownLinear.Lat,
		AngVLon: -s.ownAngular.BankRate, AngVVert: s.ownAngular.HeadingRate, AngVLat: -s.ownAngular.PitchRate,
		NoseWheelAngleDeg: s.ownPose.NoseWheelAngleDeg,
	}
}

func (s *Session) buildConfigDump() *pdu.AircraftConfig {
	payload, err := configJSON(s.ownConfig)
	if err != nil {
		s.lg.Warn("failed to marshal own config dump", "err", err)
		payload = "{}"
	}
	return &pdu.AircraftConfig{Callsign: s.cfg.Callsign, To: "*", PayloadJSON: payload}
}

// configJSON renders flags as a full-state AircraftConfig payload: every
// field present, matching registry.ConfigDelta's wire shape (spec.md §4.B
// "Aircraft configuration ... JSON payload of configuration flags").
func configJSON(flags registry.ConfigFlags) (string, error) {
	b := func(v bool) *bool { return &v }
	f := func(v float64) *float64 { return &v }
	delta := registry.ConfigDelta{
		OnGround: b(flags.OnGround), GearDown: b(flags.GearDown),
		SpoilersDeployed: b(flags.SpoilersDeployed), Strobes: b(flags.Strobes),
		LandingLights: b(flags.LandingLights), TaxiLights: b(flags.TaxiLights),
		Beacon: b(flags.Beacon), Nav: b(flags.Nav),
		EnginesRunning: b(flags.EnginesRunning), EnginesReversing: b(flags.EnginesReversing),
		FlapsRatio: f(flags.FlapsRatio),
	}
	out, err := json.Marshal(delta)
	return string(out), err
}
