package presence

import "testing"

func TestBindResolvesBothDirections(t *testing.T) {
	b := NewBinder()

	b.Bind("conn-1", "alice")

	if userID, ok := b.ResolveUser("conn-1"); !ok || userID != "alice" {
		t.Fatalf("ResolveUser = %q, %v; want alice, true", userID, ok)
	}
	if connID, ok := b.ResolveConn("alice"); !ok || connID != "conn-1" {
		t.Fatalf("ResolveConn = %q, %v; want conn-1, true", connID, ok)
	}
}

func TestResolveMissIsNotRoutable(t *testing.T) {
	b := NewBinder()

	if _, ok := b.ResolveUser("nope"); ok {
		t.Fatal("unknown connection must not resolve")
	}
	if _, ok := b.ResolveConn("nobody"); ok {
		t.Fatal("unknown user must not resolve")
	}
}

func TestRebindStealsIdentityFromOldConnection(t *testing.T) {
	b := NewBinder()
	b.Bind("conn-1", "alice")

	b.Bind("conn-2", "alice")

	if connID, _ := b.ResolveConn("alice"); connID != "conn-2" {
		t.Fatalf("alice resolves to %q, want conn-2", connID)
	}
	if _, ok := b.ResolveUser("conn-1"); ok {
		t.Fatal("old connection must be fully unbound after rebind")
	}

	// the stale connection's later unbind must not disturb the new binding
	if _, ok := b.Unbind("conn-1"); ok {
		t.Fatal("unbind of stolen connection should report no binding")
	}
	if connID, ok := b.ResolveConn("alice"); !ok || connID != "conn-2" {
		t.Fatalf("new binding lost: %q, %v", connID, ok)
	}
}

func TestBindClearsStaleReverseEntry(t *testing.T) {
	b := NewBinder()
	b.Bind("conn-1", "conn-1") // connection-id-as-identity on connect

	b.Bind("conn-1", "alice") // explicit id arrives later

	if _, ok := b.ResolveConn("conn-1"); ok {
		t.Fatal("previous identity of the connection must not resolve")
	}
	if userID, _ := b.ResolveUser("conn-1"); userID != "alice" {
		t.Fatalf("connection resolves to %q, want alice", userID)
	}
}

func TestUnbindRemovesBothDirections(t *testing.T) {
	b := NewBinder()
	b.Bind("conn-1", "alice")

	userID, ok := b.Unbind("conn-1")
	if !ok || userID != "alice" {
		t.Fatalf("Unbind = %q, %v; want alice, true", userID, ok)
	}

	if _, ok := b.ResolveUser("conn-1"); ok {
		t.Fatal("connection direction must be gone")
	}
	if _, ok := b.ResolveConn("alice"); ok {
		t.Fatal("user direction must be gone")
	}

	if _, ok := b.Unbind("conn-1"); ok {
		t.Fatal("second unbind must be a no-op")
	}
}
