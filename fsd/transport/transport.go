// fsd/transport/transport.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package transport frames a byte stream as complete FSD protocol lines:
// ISO-8859-1 text terminated by CR LF. It never interprets field content;
// that is fsd/pdu's job. See spec.md §4.A.
package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

// ErrClosed is returned by WriteLine after Close.
var ErrClosed = errors.New("transport: closed")

// Transport frames a connection into complete FSD lines. It holds a
// partial-line buffer across calls to ReadLines and serializes writes
// under a single send mutex so that one PDU is never interleaved with
// another on the wire (§4.A: "outbound writes ... must be atomic per
// PDU").
type Transport struct {
	conn io.ReadWriteCloser

	partial []byte

	sendMu sync.Mutex
	closed bool
}

// New wraps conn as an FSD line transport.
func New(conn io.ReadWriteCloser) *Transport {
	return &Transport{conn: conn}
}

// ReadLines feeds raw bytes read off the socket (by the caller) into the
// transport's partial-line buffer and returns every complete line found.
// The partial tail, if any, is retained for the next call regardless of
// where chunk boundaries fall (§8 "Line framing").
func (t *Transport) ReadLines(chunk []byte) ([]string, error) {
	if len(chunk) == 0 {
		return nil, nil
	}

	buf := append(t.partial, chunk...)
	t.partial = nil

	// Legacy FSD servers sometimes terminate a chunk with a stray NUL
	// byte; strip it before splitting (§4.A).
	if n := len(buf); n > 0 && buf[n-1] == 0 {
		buf = buf[:n-1]
	}

	var lines []string
	for {
		idx := bytes.Index(buf, crlf)
		if idx < 0 {
			break
		}
		lines = append(lines, decodeLatin1(buf[:idx]))
		buf = buf[idx+len(crlf):]
	}
	if len(buf) > 0 {
		t.partial = append([]byte(nil), buf...)
	}
	return lines, nil
}

var crlf = []byte{'\r', '\n'}

// WriteLine encodes s as ISO-8859-1, appends CR LF exactly once, and
// writes it to the connection in a single call while holding the send
// mutex so concurrent writers never interleave a PDU mid-line.
func (t *Transport) WriteLine(s string) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if t.closed {
		return ErrClosed
	}

	enc, err := encodeLatin1(s)
	if err != nil {
		return err
	}
	enc = append(enc, '\r', '\n')

	_, err = t.conn.Write(enc)
	return err
}

// Close closes the underlying connection. Any subsequent WriteLine call
// fails with ErrClosed.
func (t *Transport) Close() error {
	t.sendMu.Lock()
	t.closed = true
	t.sendMu.Unlock()
	return t.conn.Close()
}

var latin1 = charmap.ISO8859_1

func decodeLatin1(b []byte) string {
	out, err := latin1.NewDecoder().Bytes(b)
	if err != nil {
		// Every byte value maps to a rune in ISO-8859-1, so this should
		// never happen; fall back to a best-effort raw conversion rather
		// than dropping the line.
		return string(b)
	}
	return string(out)
}

func encodeLatin1(s string) ([]byte, error) {
	out, err := latin1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, err
	}
	return out, nil
}
