// Package session implements the shared-password gate in front of the
// dashboard. This is an access barrier for a single shared team board,
// not an authorization model: one passphrase, one 24-hour token on disk.
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	tokenFileName = "session.yaml"

	// Validity is the lifetime of a login before the gate asks again.
	Validity = 24 * time.Hour
)

// ErrBadPassword reports a failed login attempt.
var ErrBadPassword = fmt.Errorf("password is not correct")

// token is the on-disk session state.
type token struct {
	Authenticated bool      `yaml:"authenticated"`
	Timestamp     time.Time `yaml:"timestamp"`
}

// Gate checks and stores the session token under the given data dir.
type Gate struct {
	dataDir  string
	password string
}

// NewGate creates a gate for the configured shared password.
func NewGate(dataDir, password string) *Gate {
	return &Gate{dataDir: dataDir, password: password}
}

func (g *Gate) tokenPath() string {
	return filepath.Join(g.dataDir, tokenFileName)
}

// Login verifies the entered password and, on success, stores a fresh
// session token.
func (g *Gate) Login(entered string) error {
	if g.password == "" {
		return fmt.Errorf("no password configured")
	}
	if entered != g.password {
		return ErrBadPassword
	}

	if err := os.MkdirAll(g.dataDir, 0755); err != nil {
		return fmt.Errorf("cannot create data directory: %w", err)
	}

	data, err := yaml.Marshal(token{Authenticated: true, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("cannot marshal session token: %w", err)
	}
	if err := os.WriteFile(g.tokenPath(), data, 0600); err != nil {
		return fmt.Errorf("cannot write session token: %w", err)
	}
	return nil
}

// Logout discards the stored session token.
func (g *Gate) Logout() error {
	if err := os.Remove(g.tokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cannot remove session token: %w", err)
	}
	return nil
}

// Authenticated reports whether a stored session is still within its
// validity window. A missing or unreadable token simply means "not
// logged in".
func (g *Gate) Authenticated(now time.Time) bool {
	data, err := os.ReadFile(g.tokenPath())
	if err != nil {
		return false
	}

	var t token
	if err := yaml.Unmarshal(data, &t); err != nil {
		return false
	}
	if !t.Authenticated || t.Timestamp.IsZero() {
		return false
	}
	return now.Sub(t.Timestamp) < Validity
}
