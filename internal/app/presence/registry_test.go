package presence

import (
	"math"
	"testing"
)

func TestEnsureDerivesDisplayName(t *testing.T) {
	r := NewRegistry()

	rec := r.Ensure("1234567890abcdef")

	if rec.ID != "1234567890abcdef" {
		t.Fatalf("unexpected id %q", rec.ID)
	}
	if rec.ShortID != "12345678" {
		t.Fatalf("unexpected short id %q", rec.ShortID)
	}
	if rec.Name != "User 12345678" {
		t.Fatalf("unexpected name %q", rec.Name)
	}
	if rec.HasLocation() {
		t.Fatal("fresh record should not have a location")
	}
}

func TestEnsureIsIdempotent(t *testing.T) {
	r := NewRegistry()

	r.Ensure("alice")
	if ok := r.UpsertLocation("alice", 10, 20); !ok {
		t.Fatal("expected location update to be accepted")
	}

	rec := r.Ensure("alice")
	if !rec.HasLocation() {
		t.Fatal("second Ensure must not reset the existing record")
	}
}

func TestUpsertLocationThenSnapshot(t *testing.T) {
	r := NewRegistry()
	r.Ensure("alice")
	r.Ensure("bob")

	if ok := r.UpsertLocation("alice", 51.5, -0.12); !ok {
		t.Fatal("expected location update to be accepted")
	}

	snap := r.SnapshotWithLocation()
	if len(snap) != 1 {
		t.Fatalf("snapshot has %d records, want 1 (bob has no fix)", len(snap))
	}
	if snap[0].ID != "alice" || *snap[0].Latitude != 51.5 || *snap[0].Longitude != -0.12 {
		t.Fatalf("unexpected snapshot record %+v", snap[0])
	}
}

func TestUpsertLocationRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"NaN latitude", math.NaN(), 10},
		{"NaN longitude", 10, math.NaN()},
		{"infinite latitude", math.Inf(1), 10},
		{"infinite longitude", 10, math.Inf(-1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Ensure("alice")

			if ok := r.UpsertLocation("alice", tt.lat, tt.lng); ok {
				t.Fatal("malformed coordinates must be rejected")
			}
			if snap := r.SnapshotWithLocation(); len(snap) != 0 {
				t.Fatalf("rejected update must not locate the record, snapshot: %+v", snap)
			}
		})
	}
}

func TestUpsertLocationUnknownUser(t *testing.T) {
	r := NewRegistry()

	if ok := r.UpsertLocation("ghost", 1, 2); ok {
		t.Fatal("update for unknown user must be dropped")
	}
}

func TestSnapshotInsertionOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"carol", "alice", "bob"} {
		r.Ensure(id)
		r.UpsertLocation(id, 1, 2)
	}

	snap := r.SnapshotWithLocation()
	got := []string{snap[0].ID, snap[1].ID, snap[2].ID}
	want := []string{"carol", "alice", "bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("snapshot order %v, want %v", got, want)
		}
	}
}

func TestRemovePurgesRecord(t *testing.T) {
	r := NewRegistry()
	r.Ensure("alice")
	r.UpsertLocation("alice", 1, 2)

	r.Remove("alice")

	if _, ok := r.Get("alice"); ok {
		t.Fatal("record must be gone after Remove")
	}
	if snap := r.SnapshotWithLocation(); len(snap) != 0 {
		t.Fatalf("snapshot must be empty after Remove, got %+v", snap)
	}
	if r.Count() != 0 {
		t.Fatalf("count = %d, want 0", r.Count())
	}

	// removing again is a no-op
	r.Remove("alice")
}

func TestRenamePreservesCoordinates(t *testing.T) {
	r := NewRegistry()
	r.Ensure("conn-1")
	r.UpsertLocation("conn-1", 48.85, 2.29)

	r.Rename("conn-1", "alice")

	if _, ok := r.Get("conn-1"); ok {
		t.Fatal("old id must no longer resolve")
	}

	rec, ok := r.Get("alice")
	if !ok {
		t.Fatal("renamed record missing")
	}
	if !rec.HasLocation() || *rec.Latitude != 48.85 {
		t.Fatalf("coordinates lost on rename: %+v", rec)
	}
	if rec.Name != "User alice" {
		t.Fatalf("display name not re-derived: %q", rec.Name)
	}
}

func TestRenameOntoExistingIdentity(t *testing.T) {
	r := NewRegistry()
	r.Ensure("alice")
	r.UpsertLocation("alice", 10, 20)
	r.Ensure("conn-2")

	r.Rename("conn-2", "alice")

	rec, ok := r.Get("alice")
	if !ok {
		t.Fatal("existing record missing after rename collision")
	}
	if !rec.HasLocation() || *rec.Latitude != 10 {
		t.Fatalf("existing record must win the collision: %+v", rec)
	}
	if _, ok := r.Get("conn-2"); ok {
		t.Fatal("colliding record must be discarded")
	}
	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}
}

func TestSnapshotCopiesDoNotAliasRegistryState(t *testing.T) {
	r := NewRegistry()
	r.Ensure("alice")
	r.UpsertLocation("alice", 1, 1)

	snap := r.SnapshotWithLocation()
	*snap[0].Latitude = 99

	rec, _ := r.Get("alice")
	if *rec.Latitude != 1 {
		t.Fatalf("snapshot mutation leaked into registry: %v", *rec.Latitude)
	}
}
