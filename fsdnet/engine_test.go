// fsdnet/engine_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package fsdnet

import (
	"context"
	"net"
	"testing"
	"time"

	"xpilotfsd/aircraft/motion"
	"xpilotfsd/aircraft/registry"
	"xpilotfsd/config"
	"xpilotfsd/fsd/auth"
	"xpilotfsd/fsd/pdu"
	"xpilotfsd/fsd/session"
	"xpilotfsd/xpilotlog"
)

// flatTerrain is a TerrainProbe stub that reports sea level everywhere,
// since these tests exercise dispatch wiring rather than ground clamping.
type flatTerrain struct{}

func (flatTerrain) Probe(lat, lon float64) (float64, bool) { return 0, true }

func newTestEngine(t *testing.T) (*Engine, *session.Session, net.Conn) {
	t.Helper()
	cfg := config.Config{
		ServerAddress: "127.0.0.1", ServerPort: 6809,
		VatsimID: "1000000", VatsimPassword: "secret",
		Callsign: "PILOT", AircraftType: "B738",
	}
	lg := xpilotlog.NewDiscard()
	sess := session.New(cfg, lg, auth.ReferenceFunction)

	client, server := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := sess.Connect(ctx, func() (net.Conn, error) { return client, nil }); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	reg := registry.New()
	mot := motion.NewEngine(flatTerrain{}, lg)
	eng := New(sess, reg, mot, lg, 16)
	return eng, sess, server
}

// writeLine writes a PDU across the server side of the pipe the way the
// FSD server would, so recvLoop exercises the real framing+decode path.
func writeLine(t *testing.T, server net.Conn, p pdu.PDU) {
	t.Helper()
	line, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := server.Write([]byte(line + "\r\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
}

func TestEngineDispatchesAddPilotIntoRegistry(t *testing.T) {
	eng, _, server := newTestEngine(t)
	defer server.Close()

	go eng.Run(context.Background())
	defer eng.Stop("test complete")

	writeLine(t, server, &pdu.AddPilot{
		Callsign: "N1", To: "PILOT", UserID: "1000001", Password: "x",
		Rating: 1, ProtocolRevision: 9, SimType: 1, RealName: "Test Pilot",
	})

	deadline := time.After(2 * time.Second)
	for {
		eng.Frame(time.Now())
		if _, ok := eng.reg.Get("N1"); ok {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for AddPilot to reach the registry")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEngineFastPositionAppliesThroughMotion(t *testing.T) {
	eng, _, server := newTestEngine(t)
	defer server.Close()

	go eng.Run(context.Background())
	defer eng.Stop("test complete")

	writeLine(t, server, &pdu.AddPilot{
		Callsign: "N2", To: "PILOT", UserID: "1000002", Password: "x",
		Rating: 1, ProtocolRevision: 9, SimType: 1, RealName: "Test Pilot",
	})
	for i := 0; i < 20; i++ {
		eng.Frame(time.Now())
		if _, ok := eng.reg.Get("N2"); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := eng.reg.Get("N2"); !ok {
		t.Fatal("N2 never reached the registry")
	}

	pbh := pdu.EncodeAttitude(2, 1, 90, false)
	writeLine(t, server, &pdu.FastPilotPosition{
		Callsign: "N2", Lat: 1, Lon: 2, TrueAltFt: 3000, AglAltFt: 3000,
		PBH: pbh, VLon: 10, VVert: 0, VLat: 0,
	})

	deadline := time.After(2 * time.Second)
	for {
		eng.Frame(time.Now())
		if rec, ok := eng.reg.Get("N2"); ok && rec.GroundTruth.HeadingDeg != 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for fast position to apply")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestEngineStopJoinsNetworkGoroutine(t *testing.T) {
	eng, _, server := newTestEngine(t)
	defer server.Close()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(context.Background()) }()

	if err := eng.Stop("shutting down"); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-runErr:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}
