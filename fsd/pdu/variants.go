// fsd/pdu/variants.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package pdu

import "strings"

// lettered dispatches on marker+type for the "$xx"/"#xx" family.
var lettered = map[string]decodeFunc{
	"$DI": decodeServerIdentification,
	"$ID": decodeClientIdentification,
	"#AP": decodeAddPilot,
	"#AA": decodeAddATC,
	"#DP": decodeDeletePilot,
	"#DA": decodeDeleteATC,
	"#HB": decodeHeartbeat,
	"#TM": decodeTextMessage,
	"#SB": decodeAircraftConfig,
	"$PI": decodePlaneInfoRequest,
	"$PO": decodePlaneInfoResponse,
	"$ZC": decodeAuthChallenge,
	"$ZR": decodeAuthResponse,
	"$CQ": decodeClientQuery,
	"$CR": decodeClientQueryResponse,
	"$!!": decodeKill,
	"$ER": decodeProtocolError,
}

// single dispatches on the bare single-character markers.
var single = map[byte]decodeFunc{
	'@': decodePilotPositionSlow,
	'^': decodeFastPilotPosition,
	'%': decodeATCPosition,
}

// ServerIdentification is sent by the server immediately on connect,
// carrying its version and the first auth challenge key (spec.md §4.C).
type ServerIdentification struct {
	From, To     string
	Version      string
	ChallengeKey string
}

func decodeServerIdentification(rest string) (PDU, error) {
	f := splitFields(rest)
	from, err := requireField("$DI", f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField("$DI", f, 1)
	if err != nil {
		return nil, err
	}
	version, err := requireField("$DI", f, 2)
	if err != nil {
		return nil, err
	}
	challenge, err := requireField("$DI", f, 3)
	if err != nil {
		return nil, err
	}
	return &ServerIdentification{From: from, To: to, Version: version, ChallengeKey: challenge}, nil
}

func (p *ServerIdentification) Encode() (string, error) {
	return "$DI" + join(p.From, p.To, p.Version, p.ChallengeKey), nil
}

// ClientIdentification is the client's reply to ServerIdentification: its
// identity, version, and the response to the initial challenge.
type ClientIdentification struct {
	From, To                 string
	ClientIDHex              string
	ClientName               string
	MajorVersion, MinorVersion int
	UserID                    string
	SystemUID                 string
	InitialChallengeResponse  string
}

func decodeClientIdentification(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "$ID"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	clientID, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	name, err := requireField(typ, f, 3)
	if err != nil {
		return nil, err
	}
	major, err := requireInt(typ, f, 4)
	if err != nil {
		return nil, err
	}
	minor, err := requireInt(typ, f, 5)
	if err != nil {
		return nil, err
	}
	userID, err := requireField(typ, f, 6)
	if err != nil {
		return nil, err
	}
	sysUID := optionalField(f, 7)
	response, err := requireField(typ, f, 8)
	if err != nil {
		return nil, err
	}
	return &ClientIdentification{
		From: from, To: to, ClientIDHex: clientID, ClientName: name,
		MajorVersion: major, MinorVersion: minor, UserID: userID,
		SystemUID: sysUID, InitialChallengeResponse: response,
	}, nil
}

func (p *ClientIdentification) Encode() (string, error) {
	return "$ID" + join(p.From, p.To, p.ClientIDHex, p.ClientName,
		formatFloat(float64(p.MajorVersion), 0), formatFloat(float64(p.MinorVersion), 0),
		p.UserID, p.SystemUID, p.InitialChallengeResponse), nil
}

// AddPilot registers a pilot client with the server.
type AddPilot struct {
	Callsign, To     string
	UserID, Password string
	Rating           int
	ProtocolRevision int
	SimType          int
	RealName         string
}

func decodeAddPilot(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 8)
	const typ = "#AP"
	callsign, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	userID, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	password, err := requireField(typ, f, 3)
	if err != nil {
		return nil, err
	}
	rating, err := requireInt(typ, f, 4)
	if err != nil {
		return nil, err
	}
	protoRev, err := requireInt(typ, f, 5)
	if err != nil {
		return nil, err
	}
	simType, err := requireInt(typ, f, 6)
	if err != nil {
		return nil, err
	}
	realName := optionalField(f, 7)
	return &AddPilot{
		Callsign: callsign, To: to, UserID: userID, Password: password,
		Rating: rating, ProtocolRevision: protoRev, SimType: simType, RealName: realName,
	}, nil
}

func (p *AddPilot) Encode() (string, error) {
	return "#AP" + join(p.Callsign, p.To, p.UserID, p.Password,
		formatFloat(float64(p.Rating), 0), formatFloat(float64(p.ProtocolRevision), 0),
		formatFloat(float64(p.SimType), 0), p.RealName), nil
}

// AddATC registers a controller client with the server.
type AddATC struct {
	Callsign, To     string
	RealName         string
	UserID, Password string
	Rating           int
	ProtocolRevision int
}

func decodeAddATC(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "#AA"
	callsign, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	realName, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	userID, err := requireField(typ, f, 3)
	if err != nil {
		return nil, err
	}
	password, err := requireField(typ, f, 4)
	if err != nil {
		return nil, err
	}
	rating, err := requireInt(typ, f, 5)
	if err != nil {
		return nil, err
	}
	protoRev, err := requireInt(typ, f, 6)
	if err != nil {
		return nil, err
	}
	return &AddATC{
		Callsign: callsign, To: to, RealName: realName, UserID: userID,
		Password: password, Rating: rating, ProtocolRevision: protoRev,
	}, nil
}

func (p *AddATC) Encode() (string, error) {
	return "#AA" + join(p.Callsign, p.To, p.RealName, p.UserID, p.Password,
		formatFloat(float64(p.Rating), 0), formatFloat(float64(p.ProtocolRevision), 0)), nil
}

// DeletePilot and DeleteATC carry only a callsign (and an optional user id
// echoed back by some servers).
type DeletePilot struct {
	Callsign, UserID string
}

func decodeDeletePilot(rest string) (PDU, error) {
	f := splitFields(rest)
	callsign, err := requireField("#DP", f, 0)
	if err != nil {
		return nil, err
	}
	return &DeletePilot{Callsign: callsign, UserID: optionalField(f, 1)}, nil
}

func (p *DeletePilot) Encode() (string, error) {
	return "#DP" + join(p.Callsign, p.UserID), nil
}

type DeleteATC struct {
	Callsign, UserID string
}

func decodeDeleteATC(rest string) (PDU, error) {
	f := splitFields(rest)
	callsign, err := requireField("#DA", f, 0)
	if err != nil {
		return nil, err
	}
	return &DeleteATC{Callsign: callsign, UserID: optionalField(f, 1)}, nil
}

func (p *DeleteATC) Encode() (string, error) {
	return "#DA" + join(p.Callsign, p.UserID), nil
}

// PilotPositionSlow is the ~5 s ground-truth position report (spec.md
// §4.C "slow position"). SquawkMode is the single-character transponder
// mode (e.g. "N" normal, "S" standby, "Y" ident).
type PilotPositionSlow struct {
	SquawkMode     string
	Callsign       string
	SquawkCode     string
	Rating         int
	Lat, Lon       float64
	TrueAltFt      float64
	GroundSpeedKts float64
	PBH            uint32
	PressureDelta  float64
}

func decodePilotPositionSlow(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "@"
	mode, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	callsign, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	squawk, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	rating, err := requireInt(typ, f, 3)
	if err != nil {
		return nil, err
	}
	lat, err := requireFloat(typ, f, 4)
	if err != nil {
		return nil, err
	}
	lon, err := requireFloat(typ, f, 5)
	if err != nil {
		return nil, err
	}
	alt, err := requireFloat(typ, f, 6)
	if err != nil {
		return nil, err
	}
	gs, err := requireFloat(typ, f, 7)
	if err != nil {
		return nil, err
	}
	pbh, err := requireUint32(typ, f, 8)
	if err != nil {
		return nil, err
	}
	return &PilotPositionSlow{
		SquawkMode: mode, Callsign: callsign, SquawkCode: squawk, Rating: rating,
		Lat: lat, Lon: lon, TrueAltFt: alt, GroundSpeedKts: gs, PBH: pbh,
		PressureDelta: optionalFloat(f, 9),
	}, nil
}

func (p *PilotPositionSlow) Encode() (string, error) {
	return "@" + join(p.SquawkMode, p.Callsign, p.SquawkCode,
		formatFloat(float64(p.Rating), 0), formatFloat(p.Lat, 7), formatFloat(p.Lon, 7),
		formatFloat(p.TrueAltFt, 2), formatFloat(p.GroundSpeedKts, 0),
		formatFloat(float64(p.PBH), 0), formatFloat(p.PressureDelta, 2)), nil
}

// FastPilotPosition is the up-to-5 Hz velocity-bearing report consumed
// directly by the motion engine (spec.md §4.F). Velocity axes: VLon is
// east/west, VVert is up/down, VLat is north/south (the wire order fixed
// by the worked example in spec.md §8 scenario 2, "linear_v.z = 50 m/s
// northward").
type FastPilotPosition struct {
	Callsign  string
	Lat, Lon  float64
	TrueAltFt float64
	AglAltFt  float64
	PBH       uint32

	VLon, VVert, VLat    float64
	AngVLon, AngVVert, AngVLat float64

	NoseWheelAngleDeg float64
}

func decodeFastPilotPosition(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "^"
	callsign, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	lat, err := requireFloat(typ, f, 1)
	if err != nil {
		return nil, err
	}
	lon, err := requireFloat(typ, f, 2)
	if err != nil {
		return nil, err
	}
	trueAlt, err := requireFloat(typ, f, 3)
	if err != nil {
		return nil, err
	}
	aglAlt, err := requireFloat(typ, f, 4)
	if err != nil {
		return nil, err
	}
	pbh, err := requireUint32(typ, f, 5)
	if err != nil {
		return nil, err
	}
	vLon, err := requireFloat(typ, f, 6)
	if err != nil {
		return nil, err
	}
	vVert, err := requireFloat(typ, f, 7)
	if err != nil {
		return nil, err
	}
	vLat, err := requireFloat(typ, f, 8)
	if err != nil {
		return nil, err
	}
	return &FastPilotPosition{
		Callsign: callsign, Lat: lat, Lon: lon, TrueAltFt: trueAlt, AglAltFt: aglAlt, PBH: pbh,
		VLon: vLon, VVert: vVert, VLat: vLat,
		AngVLon: optionalFloat(f, 9), AngVVert: optionalFloat(f, 10), AngVLat: optionalFloat(f, 11),
		NoseWheelAngleDeg: optionalFloat(f, 12),
	}, nil
}

func (p *FastPilotPosition) Encode() (string, error) {
	return "^" + join(p.Callsign, formatFloat(p.Lat, 7), formatFloat(p.Lon, 7),
		formatFloat(p.TrueAltFt, 2), formatFloat(p.AglAltFt, 2), formatFloat(float64(p.PBH), 0),
		formatFloat(p.VLon, 4), formatFloat(p.VVert, 4), formatFloat(p.VLat, 4),
		formatFloat(p.AngVLon, 4), formatFloat(p.AngVVert, 4), formatFloat(p.AngVLat, 4),
		formatFloat(p.NoseWheelAngleDeg, 2)), nil
}

// Heartbeat is an idle keepalive carrying only the sender's callsign.
type Heartbeat struct {
	Callsign string
}

func decodeHeartbeat(rest string) (PDU, error) {
	f := splitFields(rest)
	callsign, err := requireField("#HB", f, 0)
	if err != nil {
		return nil, err
	}
	return &Heartbeat{Callsign: callsign}, nil
}

func (p *Heartbeat) Encode() (string, error) { return "#HB" + p.Callsign, nil }

// ATCPosition reports a controller's station (spec.md §4.B "ATC position").
type ATCPosition struct {
	Callsign      string
	FrequencyKHz  int
	FacilityType  int
	VisualRangeNM int
	Rating        int
	Lat, Lon      float64
	ElevationFt   float64
}

func decodeATCPosition(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "%"
	callsign, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	freq, err := requireInt(typ, f, 1)
	if err != nil {
		return nil, err
	}
	facility, err := requireInt(typ, f, 2)
	if err != nil {
		return nil, err
	}
	vrange, err := requireInt(typ, f, 3)
	if err != nil {
		return nil, err
	}
	rating, err := requireInt(typ, f, 4)
	if err != nil {
		return nil, err
	}
	lat, err := requireFloat(typ, f, 5)
	if err != nil {
		return nil, err
	}
	lon, err := requireFloat(typ, f, 6)
	if err != nil {
		return nil, err
	}
	elev, err := requireFloat(typ, f, 7)
	if err != nil {
		return nil, err
	}
	return &ATCPosition{
		Callsign: callsign, FrequencyKHz: freq, FacilityType: facility,
		VisualRangeNM: vrange, Rating: rating, Lat: lat, Lon: lon, ElevationFt: elev,
	}, nil
}

func (p *ATCPosition) Encode() (string, error) {
	return "%" + join(p.Callsign, formatFloat(float64(p.FrequencyKHz), 0),
		formatFloat(float64(p.FacilityType), 0), formatFloat(float64(p.VisualRangeNM), 0),
		formatFloat(float64(p.Rating), 0), formatFloat(p.Lat, 7), formatFloat(p.Lon, 7),
		formatFloat(p.ElevationFt, 0)), nil
}

// TextMessage carries both direct chat and radio broadcasts: a To value
// of the form "@freq1&freq2&..." marks a radio broadcast rather than a
// directed message, matching how real FSD servers overload this PDU
// rather than defining a second one.
type TextMessage struct {
	From, To string
	Body     string
}

func decodeTextMessage(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 3)
	const typ = "#TM"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	body, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &TextMessage{From: from, To: to, Body: body}, nil
}

func (p *TextMessage) Encode() (string, error) {
	if err := checkNoColon(p.Body); err != nil {
		return "", err
	}
	return "#TM" + join(p.From, p.To, p.Body), nil
}

// IsRadio reports whether this message is a radio broadcast and, if so,
// the list of frequencies (in kHz, as on the wire) it targets.
func (p *TextMessage) IsRadio() ([]string, bool) {
	if !strings.HasPrefix(p.To, "@") {
		return nil, false
	}
	return strings.Split(strings.TrimPrefix(p.To, "@"), "&"), true
}

// NewRadioMessage builds a TextMessage whose To field addresses the given
// frequencies (kHz) as a broadcast rather than a single recipient.
func NewRadioMessage(from string, frequenciesKHz []string, body string) *TextMessage {
	return &TextMessage{From: from, To: "@" + strings.Join(frequenciesKHz, "&"), Body: body}
}

// AircraftConfig carries a JSON payload of configuration-flag deltas
// (spec.md §4.E apply_config); the payload is free text and may contain
// literal colons, so it is parsed as the tail field.
type AircraftConfig struct {
	Callsign, To string
	PayloadJSON  string
}

func decodeAircraftConfig(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 3)
	const typ = "#SB"
	callsign, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	payload, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &AircraftConfig{Callsign: callsign, To: to, PayloadJSON: payload}, nil
}

func (p *AircraftConfig) Encode() (string, error) {
	return "#SB" + join(p.Callsign, p.To, p.PayloadJSON), nil
}

// PlaneInfoRequest asks a peer to identify its model.
type PlaneInfoRequest struct {
	From, To string
}

func decodePlaneInfoRequest(rest string) (PDU, error) {
	f := splitFields(rest)
	from, err := requireField("$PI", f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField("$PI", f, 1)
	if err != nil {
		return nil, err
	}
	return &PlaneInfoRequest{From: from, To: to}, nil
}

func (p *PlaneInfoRequest) Encode() (string, error) {
	return "$PI" + join(p.From, p.To), nil
}

// PlaneInfoResponse answers a PlaneInfoRequest with CSL-selection input
// (spec.md §4.x "CSL selector").
type PlaneInfoResponse struct {
	From, To            string
	ICAOType            string
	Airline, Livery     string
}

func decodePlaneInfoResponse(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "$PO"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	icao, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &PlaneInfoResponse{
		From: from, To: to, ICAOType: icao,
		Airline: optionalField(f, 3), Livery: optionalField(f, 4),
	}, nil
}

func (p *PlaneInfoResponse) Encode() (string, error) {
	return "$PO" + join(p.From, p.To, p.ICAOType, p.Airline, p.Livery), nil
}

// AuthChallenge and AuthResponse carry the periodic challenge-response
// loop described in spec.md §4.C/§4.D. Challenge/Response are opaque
// hex tokens produced by the token function; the codec never interprets
// them.
type AuthChallenge struct {
	From, To, Challenge string
}

func decodeAuthChallenge(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "$ZC"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	challenge, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &AuthChallenge{From: from, To: to, Challenge: challenge}, nil
}

func (p *AuthChallenge) Encode() (string, error) {
	return "$ZC" + join(p.From, p.To, p.Challenge), nil
}

type AuthResponse struct {
	From, To, Response string
}

func decodeAuthResponse(rest string) (PDU, error) {
	f := splitFields(rest)
	const typ = "$ZR"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	response, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{From: from, To: to, Response: response}, nil
}

func (p *AuthResponse) Encode() (string, error) {
	return "$ZR" + join(p.From, p.To, p.Response), nil
}

// ClientQuery and ClientQueryResponse are the generic request/reply pair
// for everything that doesn't warrant its own PDU (e.g. "what's your real
// name", "who has this callsign"). Payload is free text.
type ClientQuery struct {
	From, To, Kind, Payload string
}

func decodeClientQuery(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 4)
	const typ = "$CQ"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	kind, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &ClientQuery{From: from, To: to, Kind: kind, Payload: optionalField(f, 3)}, nil
}

func (p *ClientQuery) Encode() (string, error) {
	return "$CQ" + join(p.From, p.To, p.Kind, p.Payload), nil
}

type ClientQueryResponse struct {
	From, To, Kind, Payload string
}

func decodeClientQueryResponse(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 4)
	const typ = "$CR"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	kind, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &ClientQueryResponse{From: from, To: to, Kind: kind, Payload: optionalField(f, 3)}, nil
}

func (p *ClientQueryResponse) Encode() (string, error) {
	return "$CR" + join(p.From, p.To, p.Kind, p.Payload), nil
}

// Kill is sent by the server to force a disconnect, carrying a
// human-readable reason and nothing else (spec.md §8 scenario 6).
type Kill struct {
	Reason string
}

func decodeKill(rest string) (PDU, error) {
	return &Kill{Reason: strings.TrimPrefix(rest, ":")}, nil
}

func (p *Kill) Encode() (string, error) { return "$!!" + p.Reason, nil }

// ProtocolError reports a server-detected protocol violation.
type ProtocolError struct {
	From, To string
	Code     string
	Param    string
	Message  string
}

func decodeProtocolError(rest string) (PDU, error) {
	f := splitFieldsTail(rest, 5)
	const typ = "$ER"
	from, err := requireField(typ, f, 0)
	if err != nil {
		return nil, err
	}
	to, err := requireField(typ, f, 1)
	if err != nil {
		return nil, err
	}
	code, err := requireField(typ, f, 2)
	if err != nil {
		return nil, err
	}
	return &ProtocolError{
		From: from, To: to, Code: code,
		Param: optionalField(f, 3), Message: optionalField(f, 4),
	}, nil
}

func (p *ProtocolError) Encode() (string, error) {
	return "$ER" + join(p.From, p.To, p.Code, p.Param, p.Message), nil
}
