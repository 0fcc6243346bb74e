// fsd/session/events.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package session

// SessionEvent is posted on the session's event channel for anything a UI
// collaborator needs to notice without polling state (spec.md §2 "surface
// connect/disconnect events"; grounded on the teacher's EventStream
// pub/sub shape in eventstream.go, here specialized to a single bounded
// channel rather than a general multi-subscriber stream — see §5's single
// bounded queue between the network and simulator threads).
type SessionEvent interface {
	isSessionEvent()
}

// Connected is posted once the session reaches Active.
type Connected struct{}

func (Connected) isSessionEvent() {}

// Disconnected is posted whenever the session leaves any other state for
// Disconnected, whether by request or by a fatal network/protocol error
// (spec.md §4.C "Failure semantics").
type Disconnected struct {
	Reason string
}

func (Disconnected) isSessionEvent() {}

// TextReceived surfaces an inbound chat or radio message for display
// (spec.md §4.B "Text message"/"Radio message").
type TextReceived struct {
	From          string
	To            string
	Body          string
	Radio         bool
	FrequenciesKHz []string
}

func (TextReceived) isSessionEvent() {}
