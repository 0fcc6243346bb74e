// fsd/pdu/errors.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pdu

import (
	"errors"
	"strconv"
)

// Protocol errors are always returned, never panicked, and are meant to
// be logged-and-skipped by the session per spec.md §7 ("Protocol: ...
// Logged and skipped — never fatal").
var (
	// ErrEmptyLine is returned for a zero-length line.
	ErrEmptyLine = errors.New("pdu: empty line")

	// ErrUnknownPDU is returned when the marker (and, for $/#, the
	// following two-character type code) does not match any known
	// variant.
	ErrUnknownPDU = errors.New("pdu: unknown PDU marker/type")

	// ErrFieldCount is returned when a line has fewer than the required
	// number of fields for its PDU type. Missing optional trailing
	// fields are tolerated; this is only for required fields.
	ErrFieldCount = errors.New("pdu: wrong number of fields")

	// ErrFieldType is returned when a field fails to parse as its
	// expected type (integer, double, hex-uint).
	ErrFieldType = errors.New("pdu: field failed to parse")

	// ErrIllegalColon is returned by TextMessage.Encode when the message
	// body contains a literal ':' (no other field is checked), which the wire format
	// cannot carry (spec.md §6: "a literal ':' inside a text body is
	// prohibited and must be filtered on send").
	ErrIllegalColon = errors.New("pdu: text field contains a literal ':'")
)

// MalformedMessageError carries additional context about which field of
// which PDU failed to parse.
type MalformedMessageError struct {
	PDU     string
	Field   int
	Wrapped error
}

func (e *MalformedMessageError) Error() string {
	return "pdu: " + e.PDU + ": field " + strconv.Itoa(e.Field) + ": " + e.Wrapped.Error()
}

func (e *MalformedMessageError) Unwrap() error { return e.Wrapped }
