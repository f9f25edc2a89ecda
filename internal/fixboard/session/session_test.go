package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoginAndAuthenticated(t *testing.T) {
	gate := NewGate(t.TempDir(), "cbl2026")

	if gate.Authenticated(time.Now()) {
		t.Fatalf("expected a fresh gate to be unauthenticated")
	}

	if err := gate.Login("wrong"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("expected ErrBadPassword, got %v", err)
	}
	if gate.Authenticated(time.Now()) {
		t.Errorf("a failed login must not create a session")
	}

	if err := gate.Login("cbl2026"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gate.Authenticated(time.Now()) {
		t.Errorf("expected a session right after login")
	}
}

func TestSessionExpiresAfterValidityWindow(t *testing.T) {
	gate := NewGate(t.TempDir(), "secret")
	if err := gate.Login("secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	now := time.Now()
	if !gate.Authenticated(now.Add(Validity - time.Minute)) {
		t.Errorf("expected the session to hold just inside the window")
	}
	if gate.Authenticated(now.Add(Validity + time.Minute)) {
		t.Errorf("expected the session to expire after 24 hours")
	}
}

func TestLogout(t *testing.T) {
	gate := NewGate(t.TempDir(), "secret")
	if err := gate.Login("secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := gate.Logout(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.Authenticated(time.Now()) {
		t.Errorf("expected logout to discard the session")
	}

	// Logging out twice is fine.
	if err := gate.Logout(); err != nil {
		t.Errorf("expected a second logout to succeed, got %v", err)
	}
}

func TestEmptyPasswordRefusesLogin(t *testing.T) {
	gate := NewGate(t.TempDir(), "")
	if err := gate.Login(""); err == nil {
		t.Errorf("expected an unconfigured password to refuse login")
	}
}

func TestCorruptTokenMeansLoggedOut(t *testing.T) {
	dir := t.TempDir()
	gate := NewGate(dir, "secret")

	if err := os.WriteFile(filepath.Join(dir, "session.yaml"), []byte("{not yaml"), 0600); err != nil {
		t.Fatalf("cannot write corrupt token: %v", err)
	}
	if gate.Authenticated(time.Now()) {
		t.Errorf("a corrupt token must read as logged out")
	}

	// An unauthenticated-but-parsable token is also logged out.
	data, err := yaml.Marshal(token{Authenticated: false, Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("cannot marshal token: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.yaml"), data, 0600); err != nil {
		t.Fatalf("cannot write token: %v", err)
	}
	if gate.Authenticated(time.Now()) {
		t.Errorf("an unauthenticated token must read as logged out")
	}
}
