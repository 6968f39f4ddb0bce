// Copyright 2025 Certen Protocol

package zkproof

import "testing"

func TestLifecycle_ValidTransitions(t *testing.T) {
	l := NewLifecycle()
	l.Register("p1")

	if err := l.Transition("p1", StateVerified); err != nil {
		t.Fatalf("unexpected error transitioning to Verified: %v", err)
	}
	state, ok := l.State("p1")
	if !ok || state != StateVerified {
		t.Fatalf("expected state Verified, got %v (ok=%v)", state, ok)
	}
}

func TestLifecycle_RejectsInvalidTransition(t *testing.T) {
	l := NewLifecycle()
	l.Register("p1")
	_ = l.Transition("p1", StateVerified)

	if err := l.Transition("p1", StateRejected); err == nil {
		t.Fatalf("expected error transitioning out of terminal state Verified")
	}
}

func TestLifecycle_UnknownProofID(t *testing.T) {
	l := NewLifecycle()
	if err := l.Transition("missing", StateVerified); err == nil {
		t.Fatalf("expected error for unknown proof id")
	}
}
