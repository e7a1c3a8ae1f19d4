/*
Package presence contains the core state of the presence system: the registry of
connected users and their last reported locations, and the binder that maps live
connections to logical user ids.

This file defines the Registry, the authoritative in-memory collection of user
presence records. Records are created on connect, mutated by location updates,
and fully removed on disconnect.
*/
package presence

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mdmisri/mapfrens-backend/internal/app/geo"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/logx"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/randx"
)

// Record represents one user's current presence. Latitude and Longitude stay
// nil until the first location fix; a record without coordinates is never
// included in any broadcast.
type Record struct {
	ID         string    `json:"id"`
	ShortID    string    `json:"shortId"`
	Name       string    `json:"name"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	LastUpdate time.Time `json:"lastUpdate"`
}

// HasLocation reports whether the record has received at least one location fix.
func (rec *Record) HasLocation() bool {
	return rec.Latitude != nil && rec.Longitude != nil
}

// Point returns the record's coordinates. Only valid when HasLocation is true.
func (rec *Record) Point() geo.Point {
	return geo.Point{Latitude: *rec.Latitude, Longitude: *rec.Longitude}
}

// clone returns a value copy of the record with its own coordinate pointers,
// so callers can never mutate registry state through a snapshot.
func (rec *Record) clone() Record {
	out := *rec
	if rec.Latitude != nil {
		lat := *rec.Latitude
		out.Latitude = &lat
	}
	if rec.Longitude != nil {
		lng := *rec.Longitude
		out.Longitude = &lng
	}
	return out
}

// Registry holds the authoritative mapping of logical user ids to presence
// records. Insertion order is retained so snapshots are deterministic within
// one run.
type Registry struct {
	// records maps a user id to its presence record.
	records map[string]*Record

	// order lists user ids in insertion order.
	order []string

	// mu protects records and order.
	mu sync.RWMutex

	// structured logger with Registry context.
	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*Record),
		logger:  logx.Logger().With().Str("component", "Registry").Logger(),
	}
}

// Ensure creates a presence record for the given user id if none exists yet,
// deriving a display name from the id. It returns a copy of the current record.
func (r *Registry) Ensure(userID string) Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		rec = &Record{
			ID:         userID,
			ShortID:    randx.ShortID(userID),
			Name:       randx.DisplayName(userID),
			LastUpdate: time.Now(),
		}
		r.records[userID] = rec
		r.order = append(r.order, userID)

		r.logger.Info().Str("user_id", userID).Msg("Presence record created.")
	}

	return rec.clone()
}

// UpsertLocation records a new location fix for the given user. Non-finite
// values and unknown users are rejected: the update is logged and dropped,
// and false is returned. This is a deliberate ignore-malformed-input policy,
// not a hard error.
func (r *Registry) UpsertLocation(userID string, lat, lng float64) bool {
	if !geo.Finite(lat) || !geo.Finite(lng) {
		r.logger.Warn().
			Str("user_id", userID).
			Float64("latitude", lat).
			Float64("longitude", lng).
			Msg("Dropping location update with non-finite coordinates.")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		r.logger.Warn().Str("user_id", userID).Msg("Location update for unknown user dropped.")
		return false
	}

	if rec.Latitude == nil {
		rec.Latitude = new(float64)
		rec.Longitude = new(float64)
	}
	*rec.Latitude = lat
	*rec.Longitude = lng
	rec.LastUpdate = time.Now()

	return true
}

// Rename moves a presence record from oldID to newID, preserving coordinates
// and the record's position in insertion order. When a record for newID
// already exists (a reconnect under a known identity), the oldID record is
// discarded in favor of the existing one.
func (r *Registry) Rename(oldID, newID string) {
	if oldID == newID {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[oldID]
	if !ok {
		return
	}

	if _, exists := r.records[newID]; exists {
		delete(r.records, oldID)
		r.dropFromOrder(oldID)
		return
	}

	delete(r.records, oldID)
	rec.ID = newID
	rec.ShortID = randx.ShortID(newID)
	rec.Name = randx.DisplayName(newID)
	r.records[newID] = rec

	for i, id := range r.order {
		if id == oldID {
			r.order[i] = newID
			break
		}
	}

	r.logger.Info().Str("old_id", oldID).Str("new_id", newID).Msg("Presence record renamed.")
}

// Remove deletes the user's presence record entirely.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[userID]; !ok {
		return
	}

	delete(r.records, userID)
	r.dropFromOrder(userID)

	r.logger.Info().Str("user_id", userID).Msg("Presence record removed.")
}

// dropFromOrder removes userID from the insertion-order slice. Caller holds mu.
func (r *Registry) dropFromOrder(userID string) {
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns a copy of the user's record and whether it exists.
func (r *Registry) Get(userID string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// SnapshotWithLocation returns copies of all records that currently have
// coordinates, in registry insertion order. Records awaiting a first fix are
// excluded.
func (r *Registry) SnapshotWithLocation() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.order))
	for _, id := range r.order {
		rec := r.records[id]
		if rec.HasLocation() {
			out = append(out, rec.clone())
		}
	}

	return out
}

// Count returns the number of presence records, located or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.records)
}
