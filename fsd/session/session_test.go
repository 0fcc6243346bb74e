// fsd/session/session_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package session

import (
	"context"
	"net"
	"testing"
	"time"

	"xpilotfsd/aircraft/registry"
	"xpilotfsd/config"
	"xpilotfsd/fsd/auth"
	"xpilotfsd/fsd/pdu"
	"xpilotfsd/xpilotlog"
)

func testConfig() config.Config {
	return config.Config{
		ServerAddress: "127.0.0.1", ServerPort: 6809,
		VatsimID: "1000000", VatsimPassword: "secret",
		Callsign: "PILOT", AircraftType: "B738",
	}
}

func newTestSession() *Session {
	return New(testConfig(), xpilotlog.NewDiscard(), auth.ReferenceFunction)
}

func pipeDial() (func() (net.Conn, error), net.Conn) {
	client, server := net.Pipe()
	return func() (net.Conn, error) { return client, nil }, server
}

func TestConnectTransitionsToSocketOpen(t *testing.T) {
	s := newTestSession()
	dial, server := pipeDial()
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Connect(ctx, dial); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.State() != SocketOpen {
		t.Errorf("got state %v, want SocketOpen", s.State())
	}
}

func TestServerIdentificationAdvancesToAuthenticated(t *testing.T) {
	s := newTestSession()
	dial, server := pipeDial()
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Connect(ctx, dial)

	events := s.HandlePDU(&pdu.ServerIdentification{
		From: "SERVER", To: "PILOT", Version: "9", ChallengeKey: "abc123",
	})

	if s.State() != Authenticated {
		t.Fatalf("got state %v, want Authenticated", s.State())
	}
	if len(events) != 2 {
		t.Fatalf("got %d outbound events, want 2 (client id + add pilot)", len(events))
	}
	if _, ok := events[0].(SendPDU).PDU.(*pdu.ClientIdentification); !ok {
		t.Errorf("first event is not a ClientIdentification send")
	}
	if _, ok := events[1].(SendPDU).PDU.(*pdu.AddPilot); !ok {
		t.Errorf("second event is not an AddPilot send")
	}
}

func TestTickAdvancesAuthenticatedToActiveOnFirstSlowPosition(t *testing.T) {
	s := newTestSession()
	dial, server := pipeDial()
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Connect(ctx, dial)
	s.HandlePDU(&pdu.ServerIdentification{From: "SERVER", To: "PILOT", Version: "9", ChallengeKey: "key"})

	s.SetOwnState(registry.Pose{Lat: 10, Lon: 10, TrueAltFt: 1000}, registry.VelocityTriple{}, registry.AngularVelocityTriple{}, registry.ConfigFlags{})

	out := s.Tick(time.Now())
	if s.State() != Active {
		t.Fatalf("got state %v, want Active", s.State())
	}
	foundSlow := false
	for _, p := range out {
		if _, ok := p.(*pdu.PilotPositionSlow); ok {
			foundSlow = true
		}
	}
	if !foundSlow {
		t.Error("expected a PilotPositionSlow in the first active tick")
	}

	select {
	case ev := <-s.Events():
		if _, ok := ev.(Connected); !ok {
			t.Errorf("got event %+v, want Connected", ev)
		}
	default:
		t.Error("expected a Connected event posted")
	}
}

func TestAuthChallengeProducesResponse(t *testing.T) {
	s := newTestSession()
	s.state = Active

	out := s.HandlePDU(&pdu.AuthChallenge{From: "SERVER", To: "PILOT", Challenge: "deadbeef"})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1", len(out))
	}
	send, ok := out[0].(SendPDU)
	if !ok {
		t.Fatalf("event is not a SendPDU")
	}
	resp, ok := send.PDU.(*pdu.AuthResponse)
	if !ok {
		t.Fatalf("PDU is not an AuthResponse")
	}
	if resp.Response == "" {
		t.Error("expected a non-empty auth response")
	}
	if resp.To != "SERVER" {
		t.Errorf("got To %q, want SERVER", resp.To)
	}
}

func TestKillDisconnects(t *testing.T) {
	s := newTestSession()
	dial, server := pipeDial()
	defer server.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_ = s.Connect(ctx, dial)
	s.state = Active

	s.HandlePDU(&pdu.Kill{Reason: "server shutting down"})

	if s.State() != Disconnected {
		t.Fatalf("got state %v, want Disconnected", s.State())
	}
	select {
	case ev := <-s.Events():
		d, ok := ev.(Disconnected)
		if !ok {
			t.Fatalf("got event %+v, want Disconnected", ev)
		}
		if d.Reason == "" {
			t.Error("expected a non-empty disconnect reason")
		}
	default:
		t.Error("expected a Disconnected event posted")
	}
}

func TestFastPositionDispatchesToRegistryEvent(t *testing.T) {
	s := newTestSession()
	s.state = Active

	pbh := pdu.EncodeAttitude(5, -3, 270, false)
	out := s.HandlePDU(&pdu.FastPilotPosition{
		Callsign: "N1", Lat: 37.6, Lon: -122.3, TrueAltFt: 5000, AglAltFt: 5000,
		PBH: pbh, VLon: 1, VVert: 2, VLat: 3,
	})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1", len(out))
	}
	fp, ok := out[0].(AircraftFastPosition)
	if !ok {
		t.Fatalf("event is not an AircraftFastPosition")
	}
	if fp.Callsign != "N1" {
		t.Errorf("got callsign %q, want N1", fp.Callsign)
	}
	if fp.Linear != (registry.VelocityTriple{Lon: 1, Vert: 2, Lat: 3}) {
		t.Errorf("got linear velocity %+v, unexpected", fp.Linear)
	}
}

func TestPlaneInfoResponseProducesIdentityEvent(t *testing.T) {
	s := newTestSession()
	s.state = Active

	out := s.HandlePDU(&pdu.PlaneInfoResponse{
		From: "N1", To: "PILOT", ICAOType: "A320", Airline: "DLH", Livery: "Star Alliance",
	})
	if len(out) != 1 {
		t.Fatalf("got %d events, want 1", len(out))
	}
	id, ok := out[0].(AircraftIdentity)
	if !ok {
		t.Fatalf("event is not an AircraftIdentity")
	}
	if id.Callsign != "N1" || id.ICAOType != "A320" || id.Airline != "DLH" || id.Livery != "Star Alliance" {
		t.Errorf("got %+v, unexpected", id)
	}
}

func TestTextMessagePostsEvent(t *testing.T) {
	s := newTestSession()
	s.state = Active

	out := s.HandlePDU(&pdu.TextMessage{From: "N1", To: "PILOT", Body: "hello"})
	if out != nil {
		t.Errorf("got %v outbound events, want none", out)
	}
	select {
	case ev := <-s.Events():
		tr, ok := ev.(TextReceived)
		if !ok || tr.Body != "hello" {
			t.Errorf("got event %+v, want TextReceived{Body: hello}", ev)
		}
	default:
		t.Error("expected a TextReceived event posted")
	}
}
