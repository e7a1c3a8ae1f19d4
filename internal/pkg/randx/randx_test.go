package randx

import "testing"

func TestShortID(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"long id truncated", "1234567890abcdef", "12345678"},
		{"exact length kept", "12345678", "12345678"},
		{"short id kept", "abc", "abc"},
		{"empty id", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortID(tt.id); got != tt.want {
				t.Fatalf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestDisplayNameIsDeterministic(t *testing.T) {
	if got := DisplayName("1234567890abcdef"); got != "User 12345678" {
		t.Fatalf("DisplayName = %q", got)
	}
	if DisplayName("alice") != DisplayName("alice") {
		t.Fatal("display name must be deterministic")
	}
}

func TestConnectionIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := ConnectionID()
		if len(id) != 36 {
			t.Fatalf("unexpected connection id %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate connection id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestWaveLabelFromFixedSet(t *testing.T) {
	allowed := make(map[string]struct{}, len(waveLabels))
	for _, label := range waveLabels {
		allowed[label] = struct{}{}
	}

	for i := 0; i < 50; i++ {
		label := WaveLabel()
		if _, ok := allowed[label]; !ok {
			t.Fatalf("WaveLabel returned %q, not in the fixed set", label)
		}
	}
}
