// fsd/pdu/pdu.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package pdu classifies FSD protocol lines by their leading marker,
// splits them into typed fields, and (de)serializes the PDU variants
// listed in spec.md §4.B. See the vatsimfsdparser-derived handlers in
// vice's vatsim-fsd.go for the field-splitting idiom this follows, and
// fsd-doc.norrisng.ca for the on-wire field order.
package pdu

import (
	"strconv"
	"strings"
)

// PDU is implemented by every protocol message type. Encode renders the
// full line content (marker and type included, CR LF excluded); the
// transport is responsible for line termination.
type PDU interface {
	Encode() (string, error)
}

// decodeFunc parses the portion of a line after its marker (and, for the
// lettered family, its two-character type code). It is handed the raw
// remainder rather than a pre-split slice because a handful of variants
// (chat text, JSON config payloads) carry a free-text tail that must be
// split with a bounded count rather than exploded on every ':' — a literal
// colon is otherwise illegal inside a text body (spec.md §6).
type decodeFunc func(rest string) (PDU, error)

// Decode classifies line by its leading marker (and, for the two
// multi-letter families, its following two-character type code) and
// dispatches to the matching variant's parser. Unknown markers/types
// return ErrUnknownPDU; too few required fields return ErrFieldCount.
// Neither case is fatal to the session (spec.md §7).
func Decode(line string) (PDU, error) {
	if line == "" {
		return nil, ErrEmptyLine
	}

	marker := line[0]
	switch marker {
	case '$', '#':
		if len(line) < 3 {
			return nil, ErrFieldCount
		}
		typ := line[1:3]
		dec, ok := lettered[string(marker)+typ]
		if !ok {
			return nil, ErrUnknownPDU
		}
		return dec(line[3:])

	case '@', '^', '%', '\\':
		dec, ok := single[marker]
		if !ok {
			return nil, ErrUnknownPDU
		}
		return dec(line[1:])

	default:
		return nil, ErrUnknownPDU
	}
}

// splitFields splits rest on ':' with no bound, for fixed-shape variants.
func splitFields(rest string) []string {
	return strings.Split(rest, ":")
}

// splitFieldsTail splits rest into exactly n fields, the last of which
// retains any embedded ':' verbatim (it is the free-text/JSON body).
func splitFieldsTail(rest string, n int) []string {
	return strings.SplitN(rest, ":", n)
}

// Encode renders p as a complete line (marker and type included).
func Encode(p PDU) (string, error) {
	return p.Encode()
}

// field access helpers; every variant's Parse function uses these so that
// a missing optional trailing field is tolerated (returns the zero value)
// while a missing required field is reported with the field's index.

func requireField(typ string, fields []string, i int) (string, error) {
	if i >= len(fields) {
		return "", &MalformedMessageError{PDU: typ, Field: i, Wrapped: ErrFieldCount}
	}
	return fields[i], nil
}

func optionalField(fields []string, i int) string {
	if i >= len(fields) {
		return ""
	}
	return fields[i]
}

func requireInt(typ string, fields []string, i int) (int, error) {
	s, err := requireField(typ, fields, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &MalformedMessageError{PDU: typ, Field: i, Wrapped: ErrFieldType}
	}
	return v, nil
}

func optionalInt(fields []string, i int) int {
	s := optionalField(fields, i)
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

func requireFloat(typ string, fields []string, i int) (float64, error) {
	s, err := requireField(typ, fields, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &MalformedMessageError{PDU: typ, Field: i, Wrapped: ErrFieldType}
	}
	return v, nil
}

func requireUint32(typ string, fields []string, i int) (uint32, error) {
	s, err := requireField(typ, fields, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, &MalformedMessageError{PDU: typ, Field: i, Wrapped: ErrFieldType}
	}
	return uint32(v), nil
}

func optionalFloat(fields []string, i int) float64 {
	s := optionalField(fields, i)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func requireHexUint32(typ string, fields []string, i int) (uint32, error) {
	s, err := requireField(typ, fields, i)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(s), 16, 32)
	if err != nil {
		return 0, &MalformedMessageError{PDU: typ, Field: i, Wrapped: ErrFieldType}
	}
	return uint32(v), nil
}

// formatFloat renders f with exactly decimals digits after the decimal
// point (trailing zeros kept), using '.' unconditionally
// as the decimal separator (spec.md §4.B serialization rules).
func formatFloat(f float64, decimals int) string {
	return strconv.FormatFloat(f, 'f', decimals, 64)
}

// checkNoColon rejects a text-body field containing a literal ':' per
// spec.md §6.
func checkNoColon(s string) error {
	if strings.ContainsRune(s, ':') {
		return ErrIllegalColon
	}
	return nil
}

func join(fields ...string) string {
	return strings.Join(fields, ":")
}
