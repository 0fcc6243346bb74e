// fsd/auth/auth.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package auth defines the token-function contract the session uses to
// answer (and, if configured, issue) the periodic auth challenge (spec.md
// §4.D). The core treats the algorithm as a black box; this package
// supplies the contract plus one reference implementation suitable for
// interoperating with a private test server, not a real VATSIM network
// (the real algorithm is proprietary and out of scope for this module).
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// State carries whatever the token function needs remembered between
// challenges (spec.md §4.D: "prev_state carries forward ... so that the
// N-th response depends on the sequence of prior challenges"). The core
// never inspects it.
type State struct {
	seq  uint64
	prev []byte
}

// TokenFunc computes a response to challenge given clientID and the
// caller's private key, folding in prevState, and returns the response
// plus the state to pass on the next call. Implementations must be
// deterministic in (challenge, clientID, key, prevState).
type TokenFunc func(challenge, clientID string, key []byte, prevState State) (response string, nextState State)

// ReferenceFunction is a reference TokenFunc. It is NOT the real VATSIM auth
// algorithm — that algorithm is a proprietary secret held by the network
// operator and is explicitly out of scope (spec.md §4.D: "the algorithm
// is external to this specification"). ReferenceFunction exists so the session
// state machine, outbound scheduling, and §8 end-to-end scenarios have a
// deterministic, swappable stand-in to run against a private test server.
//
// Response is the lowercase hex HMAC-SHA256, keyed on key, of
// (clientID || prevState.prev || challenge); prevState.prev is updated to the raw digest
// so each response depends on the full chain of prior challenges.
func ReferenceFunction(challenge, clientID string, key []byte, prevState State) (string, State) {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(clientID))
	mac.Write(prevState.prev)
	mac.Write([]byte(challenge))
	digest := mac.Sum(nil)

	return hex.EncodeToString(digest), State{
		seq:  prevState.seq + 1,
		prev: digest,
	}
}

// Sequence reports how many challenges have been folded into s, for
// logging/diagnostics only.
func (s State) Sequence() uint64 { return s.seq }
