/*
Package presence contains the core state of the presence system.

This file defines the Binder, the bidirectional mapping between transport-level
connection ids and logical user ids. Both directions are always mutated under
one lock so no reader can observe a half-updated binding.
*/
package presence

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/mdmisri/mapfrens-backend/internal/pkg/logx"
)

// Binder maintains the 1:1 relation between a live connection and a logical
// user id. A user id may be re-bound to a new connection on reconnect; the old
// binding is silently replaced.
type Binder struct {
	// connToUser maps a connection id to the user id it carries.
	connToUser map[string]string

	// userToConn maps a user id back to its live connection id.
	userToConn map[string]string

	// mu protects both maps; they are only ever mutated together.
	mu sync.RWMutex

	// structured logger with Binder context.
	logger zerolog.Logger
}

// NewBinder constructs an empty Binder.
func NewBinder() *Binder {
	return &Binder{
		connToUser: make(map[string]string),
		userToConn: make(map[string]string),
		logger:     logx.Logger().With().Str("component", "Binder").Logger(),
	}
}

// Bind establishes both directions of the connID-userID mapping. A stale
// reverse entry from a previous identity of connID is cleared, and the user id
// is stolen from any other connection that held it, so routing never reaches a
// dead identity.
func (b *Binder) Bind(connID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if prevUser, ok := b.connToUser[connID]; ok && prevUser != userID {
		if b.userToConn[prevUser] == connID {
			delete(b.userToConn, prevUser)
		}
	}

	if prevConn, ok := b.userToConn[userID]; ok && prevConn != connID {
		b.logger.Info().
			Str("user_id", userID).
			Str("old_conn_id", prevConn).
			Str("new_conn_id", connID).
			Msg("User rebound to new connection.")

		if b.connToUser[prevConn] == userID {
			delete(b.connToUser, prevConn)
		}
	}

	b.connToUser[connID] = userID
	b.userToConn[userID] = connID
}

// ResolveUser returns the user id bound to the given connection.
// A miss means the connection is not currently routable.
func (b *Binder) ResolveUser(connID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	userID, ok := b.connToUser[connID]
	return userID, ok
}

// ResolveConn returns the connection id bound to the given user.
// A miss means the user is not currently routable.
func (b *Binder) ResolveConn(userID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	connID, ok := b.userToConn[userID]
	return connID, ok
}

// Unbind removes both directions of the connection's binding atomically.
// It returns the user id that was bound, if any. The reverse entry is only
// dropped when it still points at this connection, so a reconnect that already
// rebound the user is left intact.
func (b *Binder) Unbind(connID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	userID, ok := b.connToUser[connID]
	if !ok {
		return "", false
	}

	delete(b.connToUser, connID)
	if b.userToConn[userID] == connID {
		delete(b.userToConn, userID)
	}

	return userID, true
}
