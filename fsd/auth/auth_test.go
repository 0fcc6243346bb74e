// fsd/auth/auth_test.go
// Copyright(c) 2024-2026 xpilotfsd contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auth

import (
	"reflect"
	"testing"
)

func TestReferenceFunctionDeterministic(t *testing.T) {
	key := []byte("private-key")
	r1, s1 := ReferenceFunction("challenge1", "d8f2", key, State{})
	r2, s2 := ReferenceFunction("challenge1", "d8f2", key, State{})
	if r1 != r2 {
		t.Errorf("not deterministic: %q != %q", r1, r2)
	}
	if !reflect.DeepEqual(s1, s2) {
		t.Errorf("state not deterministic")
	}
}

func TestReferenceFunctionResponseFormat(t *testing.T) {
	r, _ := ReferenceFunction("challenge1", "d8f2", []byte("key"), State{})
	if len(r) != 64 {
		t.Errorf("got length %d, want 64 (hex SHA-256)", len(r))
	}
	for _, c := range r {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("response %q contains non-lowercase-hex character %q", r, c)
			break
		}
	}
}

func TestReferenceFunctionDependsOnPriorState(t *testing.T) {
	key := []byte("private-key")
	_, s1 := ReferenceFunction("challenge1", "d8f2", key, State{})
	rA, _ := ReferenceFunction("challenge2", "d8f2", key, s1)
	rB, _ := ReferenceFunction("challenge2", "d8f2", key, State{})
	if rA == rB {
		t.Error("response to the same challenge did not depend on prior chain state")
	}
	if s1.Sequence() != 1 {
		t.Errorf("got sequence %d, want 1", s1.Sequence())
	}
}
