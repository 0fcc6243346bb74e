// fsdnet/engine.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package fsdnet wires fsd/transport, fsd/pdu, and fsd/session together on
// a network goroutine, and aircraft/registry plus aircraft/motion on the
// host's simulator-frame callback, exactly as spec.md §5 describes: one
// network goroutine blocks in recv and enqueues decoded PDUs onto a single
// bounded channel; the simulator-frame goroutine drains it at the top of
// each frame, before running the motion engine, and is the sole writer of
// outbound PDUs.
package fsdnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	"xpilotfsd/aircraft/motion"
	"xpilotfsd/aircraft/registry"
	"xpilotfsd/fsd/pdu"
	"xpilotfsd/fsd/session"
	"xpilotfsd/xpilotlog"
)

// disconnectJoinTimeout bounds how long Stop waits for the network
// goroutine to exit after the socket is closed (spec.md §5 "joins the
// network thread with a bounded wait (≤ 15 s)").
const disconnectJoinTimeout = 15 * time.Second

// staleSweepPeriod throttles aircraft/registry.SweepStale so a frame never
// pays for a full map walk (spec.md §4.E sweep_stale is a 30s-scale
// concern, not a per-frame one).
const staleSweepPeriod = 1 * time.Second

// readChunkSize is the buffer fsdnet reads raw socket bytes into before
// handing them to the transport's line framer.
const readChunkSize = 4096

// queuedPDU is one entry on the bounded inbound channel: either a
// successfully decoded PDU, or a decode failure to log and skip (spec.md
// §8 "Protocol: malformed line, unknown PDU type ... logged and skipped —
// never fatal").
type queuedPDU struct {
	pdu pdu.PDU
	err error
}

// Engine binds one Session's network goroutine to one Registry/motion
// Engine pair driven by the host's simulator-frame callback.
type Engine struct {
	sess   *session.Session
	reg    *registry.Registry
	motion *motion.Engine
	lg     *xpilotlog.Logger

	inbound chan queuedPDU

	lastFrameAt    time.Time
	lastStaleSweep time.Time

	done chan error
}

// New binds sess to reg and motion for one connection's lifetime. queueLen
// bounds the inbound channel (spec.md §5 "a single bounded mutex-protected
// queue").
func New(sess *session.Session, reg *registry.Registry, mot *motion.Engine, lg *xpilotlog.Logger, queueLen int) *Engine {
	if queueLen <= 0 {
		queueLen = 256
	}
	return &Engine{
		sess:    sess,
		reg:     reg,
		motion:  mot,
		lg:      lg,
		inbound: make(chan queuedPDU, queueLen),
	}
}

// Run starts the network goroutine and blocks until it exits, either
// because the socket closed, ctx was canceled, or Stop was called. The
// caller drives the simulator-frame side by calling Frame once per
// rendered frame concurrently with Run.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	done := make(chan error, 1)
	e.done = done

	g.Go(func() error {
		err := e.recvLoop(ctx)
		done <- err
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// recvLoop is the single network goroutine: it blocks in Read, frames
// complete lines, decodes each as a PDU, and enqueues the result (spec.md
// §5 "Network thread").
func (e *Engine) recvLoop(ctx context.Context) error {
	conn := e.sess.Conn()
	if conn == nil {
		return fmt.Errorf("fsdnet: session has no open connection")
	}
	wire := e.sess.Transport()

	buf := make([]byte, readChunkSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			lines, lerr := wire.ReadLines(buf[:n])
			if lerr != nil {
				e.lg.Warn("transport framing error", "err", lerr)
			}
			for _, line := range lines {
				p, derr := pdu.Decode(line)
				select {
				case e.inbound <- queuedPDU{pdu: p, err: derr}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				e.sess.Disconnect("connection closed by peer")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
				// The socket was closed on this side (Stop or ctx cancel).
				e.sess.Disconnect("connection closed")
				return nil
			}
			e.sess.Disconnect(err.Error())
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// Stop closes the session's socket, unblocking recv, and waits up to
// disconnectJoinTimeout for the network goroutine to exit (spec.md §5
// "Cancellation and timeouts").
func (e *Engine) Stop(reason string) error {
	e.sess.Disconnect(reason)
	if e.done == nil {
		return nil
	}
	select {
	case err := <-e.done:
		return err
	case <-time.After(disconnectJoinTimeout):
		return fmt.Errorf("fsdnet: network goroutine did not exit within %s", disconnectJoinTimeout)
	}
}

// Frame runs one simulator-frame pass: drain whatever PDUs arrived since
// the last frame, dispatch each through the session into the registry,
// step the motion engine, let the session schedule its own outbound
// traffic, and transmit everything queued (spec.md §5 "drains it at the
// top of each frame before running the motion engine"; §4.C outbound
// scheduling). It must be called from a single goroutine — the host's
// simulator-frame callback — and never from more than one at a time.
func (e *Engine) Frame(now time.Time) {
	var toSend []pdu.PDU

	e.drainInbound(&toSend)

	dt := 0.0
	if !e.lastFrameAt.IsZero() {
		dt = now.Sub(e.lastFrameAt).Seconds()
	}
	e.lastFrameAt = now

	if e.motion != nil {
		e.motion.Step(e.reg, now, dt)
	}

	if now.Sub(e.lastStaleSweep) >= staleSweepPeriod {
		before := e.reg.Len()
		e.reg.SweepStale(now)
		if n := before - e.reg.Len(); n > 0 {
			e.lg.Info("evicted stale aircraft", "count", n)
		}
		e.lastStaleSweep = now
	}

	toSend = append(toSend, e.sess.Tick(now)...)

	e.transmit(toSend)
}

func (e *Engine) drainInbound(toSend *[]pdu.PDU) {
	for {
		select {
		case q := <-e.inbound:
			if q.err != nil {
				e.lg.Warn("malformed inbound PDU", "err", q.err)
				continue
			}
			for _, ev := range e.sess.HandlePDU(q.pdu) {
				e.applyOutboundEvent(ev, toSend)
			}
		default:
			return
		}
	}
}

func (e *Engine) applyOutboundEvent(ev session.OutboundEvent, toSend *[]pdu.PDU) {
	switch v := ev.(type) {
	case session.SendPDU:
		*toSend = append(*toSend, v.PDU)
	case session.AircraftAdded:
		e.reg.Add(v.Callsign, v.Identity, v.Pose)
	case session.AircraftRemoved:
		e.reg.Remove(v.Callsign)
	case session.AircraftSlowPosition:
		e.reg.ApplySlowPosition(v.Callsign, v.Pose, v.OnGround)
	case session.AircraftFastPosition:
		if e.motion != nil {
			e.motion.ApplyFastPosition(e.reg, v.Callsign, v.Pose, v.Linear, v.Angular)
		} else {
			e.reg.ApplyFastPosition(v.Callsign, v.Pose, v.Linear, v.Angular)
		}
	case session.AircraftConfigDelta:
		e.reg.ApplyConfig(v.Callsign, v.Delta)
	case session.AircraftIdentity:
		e.reg.ApplyIdentity(v.Callsign, v.ICAOType, v.Airline, v.Livery)
	}
}

func (e *Engine) transmit(pdus []pdu.PDU) {
	if len(pdus) == 0 {
		return
	}
	wire := e.sess.Transport()
	if wire == nil {
		return
	}
	for _, p := range pdus {
		line, err := p.Encode()
		if err != nil {
			e.lg.Warn("failed to encode outbound PDU", "err", err)
			continue
		}
		if err := wire.WriteLine(line); err != nil {
			e.lg.Warn("failed to write outbound PDU", "err", err)
			return
		}
	}
}
