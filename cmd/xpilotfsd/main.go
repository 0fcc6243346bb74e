// main.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// xpilotfsd is a minimal reference host for the core: it dials an FSD
// server, drives the session and network wiring, and runs a synthetic
// frame-loop ticker in place of a real simulator's flight-loop callback.
// It supplies a stub terrain probe and writes rendered remote-aircraft
// poses to its debug-level log rather than handing them to a renderer — no GL/mesh
// stack, CSL model loader, or X-Plane plugin shell is in scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"xpilotfsd/aircraft/motion"
	"xpilotfsd/aircraft/registry"
	"xpilotfsd/config"
	"xpilotfsd/fsd/auth"
	"xpilotfsd/fsd/session"
	"xpilotfsd/fsdnet"
	"xpilotfsd/xpilotlog"
)

var (
	serverAddress  = flag.String("server", "", "FSD server hostname or IP")
	serverPort     = flag.Int("port", 6809, "FSD server port")
	vatsimID       = flag.String("id", "", "VATSIM network ID")
	vatsimPassword = flag.String("password", "", "VATSIM network password")
	callsign       = flag.String("callsign", "", "pilot client callsign")
	aircraftType   = flag.String("actype", "", "ICAO aircraft type")
	configFile     = flag.String("config", "", "JSON config file (overrides the flags above if given)")
	challengeFlag  = flag.Bool("challenge-server", false, "also challenge the server for its own auth response")
	logLevel       = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir         = flag.String("logdir", "", "log file directory")
)

func loadConfig() (config.Config, error) {
	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("reading %s: %w", *configFile, err)
		}
		return config.Unmarshal(data)
	}
	return config.Config{
		ServerAddress:   *serverAddress,
		ServerPort:      *serverPort,
		VatsimID:        *vatsimID,
		VatsimPassword:  *vatsimPassword,
		Callsign:        *callsign,
		AircraftType:    *aircraftType,
		ChallengeServer: *challengeFlag,
	}, nil
}

// flatTerrain is the stub TerrainProbe: it reports sea level everywhere,
// standing in for the real elevation mesh a host simulator would own.
type flatTerrain struct{}

func (flatTerrain) Probe(lat, lon float64) (elevationFt float64, ok bool) { return 0, true }

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "xpilotfsd: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "xpilotfsd: invalid configuration: %v\n", err)
		flag.PrintDefaults()
		os.Exit(1)
	}

	lg := xpilotlog.New(*logLevel, *logDir)

	sess := session.New(cfg, lg, auth.ReferenceFunction)
	reg := registry.New()
	mot := motion.NewEngine(flatTerrain{}, lg)
	eng := fsdnet.New(sess, reg, mot, lg, 512)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := net.JoinHostPort(cfg.ServerAddress, strconv.Itoa(cfg.ServerPort))
	dial := func() (net.Conn, error) {
		return net.DialTimeout("tcp", addr, 10*time.Second)
	}
	if err := sess.Connect(ctx, dial); err != nil {
		lg.Error("failed to connect", "server", addr, "err", err)
		os.Exit(1)
	}
	lg.Info("connected", "server", addr, "callsign", cfg.Callsign)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		lg.Info("caught signal, disconnecting")
		_ = eng.Stop("client shutdown")
		cancel()
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- eng.Run(ctx) }()

	ownPose := registry.Pose{Lat: 0, Lon: 0, TrueAltFt: 0, OnGround: true}
	sess.SetOwnState(ownPose, registry.VelocityTriple{}, registry.AngularVelocityTriple{}, registry.ConfigFlags{OnGround: true, Beacon: true, Nav: true})

	ticker := time.NewTicker(time.Second / time.Duration(motion.FrameRateHz))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			eng.Frame(time.Now())
			logRenderedPoses(lg, reg)
			if sess.State() == session.Disconnected {
				return
			}
		case err := <-runErr:
			if err != nil {
				lg.Error("network loop exited", "err", err)
			}
			return
		case ev := <-sess.Events():
			logSessionEvent(lg, ev)
		}
	}
}

func logRenderedPoses(lg *xpilotlog.Logger, reg *registry.Registry) {
	reg.Iter(func(callsign string, rec *registry.Record) {
		lg.Debug("rendered pose", "callsign", callsign,
			"lat", rec.Predicted.Lat, "lon", rec.Predicted.Lon,
			"alt_ft", rec.Predicted.TrueAltFt, "hdg_deg", rec.Predicted.HeadingDeg)
	})
}

func logSessionEvent(lg *xpilotlog.Logger, ev session.SessionEvent) {
	switch v := ev.(type) {
	case session.Connected:
		lg.Info("session active")
	case session.Disconnected:
		lg.Info("session disconnected", "reason", v.Reason)
	case session.TextReceived:
		lg.Info("text received", "from", v.From, "radio", v.Radio, "body", v.Body)
	}
}
