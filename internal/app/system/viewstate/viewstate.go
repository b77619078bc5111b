// Package viewstate keeps per-viewer transient page state: the last roster
// snapshot, the pending registration draft and the attendance request
// generation counter.
//
// The state is a projection of the last successful backend response and is
// never authoritative. Entries expire after the configured TTL.
package viewstate

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL applies when a store is built with a zero TTL.
const DefaultTTL = 30 * time.Minute

// ErrClosed is returned by a store that has been shut down.
var ErrClosed = errors.New("viewstate: store closed")

// Store is implemented by the in-memory and Redis backends.
type Store interface {
	// Next increments and returns the generation counter for key.
	Next(ctx context.Context, key string) (int64, error)
	// Current returns the generation counter for key (0 if unset).
	Current(ctx context.Context, key string) (int64, error)

	// Save stores v (JSON-encoded) under key.
	Save(ctx context.Context, key string, v any) error
	// Load decodes the value under key into v; found is false when absent
	// or expired.
	Load(ctx context.Context, key string, v any) (found bool, err error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

// Keys for a viewer, identified by provider UID.

func RosterKey(uid string) string       { return "roster:" + uid }
func RegistrationKey(uid string) string { return "registration:" + uid }
func AttendanceKey(uid string) string   { return "attendance:" + uid }

// OAuthStateKey holds a pending Google sign-in; state is the random value
// round-tripped through the consent screen.
func OAuthStateKey(state string) string { return "oauth:" + state }
