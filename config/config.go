// config/config.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package config holds the startup configuration struct the core accepts,
// per the §6 option table in spec.md. The core defines no file format of
// its own; persisting and loading this struct is a host concern.
package config

import "encoding/json"

// Config is the startup configuration struct the core core accepts. It is
// an ordinary value passed in by the host (no process-wide singleton, see
// the Design Notes' rejection of global mutable configuration state).
type Config struct {
	ServerAddress string `json:"server_address"`
	ServerPort    int    `json:"server_port"`

	VatsimID       string `json:"vatsim_id"`
	VatsimPassword string `json:"vatsim_password"`

	Callsign string `json:"callsign"`

	AircraftType   string `json:"aircraft_type"`
	DefaultACICAO  string `json:"default_ac_icao"`
	DefaultColor   uint32 `json:"default_label_color"`
	MaxLabelNM     int    `json:"max_label_distance_nm"`
	ChallengeServer bool  `json:"challenge_server"`
}

// Marshal renders the configuration as JSON.
func (c Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// Unmarshal populates c from JSON produced by Marshal (or hand-written
// JSON following the same shape). Unknown keys are tolerated.
func Unmarshal(data []byte) (Config, error) {
	var c Config
	err := json.Unmarshal(data, &c)
	return c, err
}

// Validate reports the first problem found with the configuration, or nil
// if it is usable to attempt a connection.
func (c Config) Validate() error {
	switch {
	case c.ServerAddress == "":
		return errMissing("server_address")
	case c.ServerPort <= 0 || c.ServerPort > 65535:
		return errInvalid("server_port")
	case c.Callsign == "":
		return errMissing("callsign")
	case c.VatsimID == "":
		return errMissing("vatsim_id")
	}
	return nil
}

type fieldError struct {
	field  string
	reason string
}

func (e fieldError) Error() string { return e.field + ": " + e.reason }

func errMissing(field string) error { return fieldError{field, "required"} }
func errInvalid(field string) error { return fieldError{field, "invalid value"} }
