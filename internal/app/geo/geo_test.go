package geo

import (
	"math"
	"testing"
)

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64 // meters
	}{
		{
			name: "one degree of longitude on the equator",
			a:    Point{Latitude: 0, Longitude: 0},
			b:    Point{Latitude: 0, Longitude: 1},
			want: 111195,
		},
		{
			name: "london to new york (mirrored longitude sign)",
			a:    Point{Latitude: 51.5007, Longitude: 0.1246},
			b:    Point{Latitude: 40.6892, Longitude: 74.0445},
			want: 5574000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)

			tolerance := tt.want * 0.01
			if math.Abs(got-tt.want) > tolerance {
				t.Fatalf("Distance(%v, %v) = %v, want %v (±1%%)", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{Latitude: 51.5007, Longitude: -0.1246}
	b := Point{Latitude: 40.6892, Longitude: -74.0445}

	if d1, d2 := Distance(a, b), Distance(b, a); d1 != d2 {
		t.Fatalf("distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestDistanceZeroForSamePoint(t *testing.T) {
	p := Point{Latitude: 48.8584, Longitude: 2.2945}

	if d := Distance(p, p); d != 0 {
		t.Fatalf("Distance(p, p) = %v, want 0", d)
	}
}

func TestFinite(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"ordinary value", 12.34, true},
		{"zero", 0, true},
		{"NaN", math.NaN(), false},
		{"positive infinity", math.Inf(1), false},
		{"negative infinity", math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Finite(tt.v); got != tt.want {
				t.Fatalf("Finite(%v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
