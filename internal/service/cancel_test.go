package service

import "testing"

func TestCancelRegistryPreArm(t *testing.T) {
	r := NewCancelRegistry()

	// Request lands before anyone asked for the token.
	r.Request(1)

	if !r.Token(1).Requested() {
		t.Error("pre-armed cancel lost: token not marked requested")
	}
}

func TestCancelRegistryRequestIdempotent(t *testing.T) {
	r := NewCancelRegistry()

	r.Request(1)
	r.Request(1)
	r.Request(1)

	if !r.Token(1).Requested() {
		t.Error("token not marked requested")
	}
	if r.Len() != 1 {
		t.Errorf("registry len = %d, want 1", r.Len())
	}
}

func TestCancelRegistryTokensAreIndependent(t *testing.T) {
	r := NewCancelRegistry()

	r.Request(1)

	if r.Token(2).Requested() {
		t.Error("cancel for run 1 leaked into run 2")
	}
}

func TestCancelRegistryClear(t *testing.T) {
	r := NewCancelRegistry()

	r.Request(1)
	r.Clear(1)

	if r.Len() != 0 {
		t.Errorf("registry len after clear = %d, want 0", r.Len())
	}
	// A fresh token for the same id starts unarmed.
	if r.Token(1).Requested() {
		t.Error("cleared token retained its requested flag")
	}
}
