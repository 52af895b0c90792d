package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestHaversineIdentity verifies that the distance from a point to itself is zero.
func TestHaversineIdentity(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 45.815, Lng: 15.9819}, // Zagreb
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 90, Lng: 0},
	}

	for _, p := range points {
		assert.Equal(t, 0.0, DistanceKm(p, p))
	}
}

// TestHaversineSymmetry verifies distance(a,b) == distance(b,a).
func TestHaversineSymmetry(t *testing.T) {
	a := Point{Lat: 45.815, Lng: 15.9819}
	b := Point{Lat: 43.5081, Lng: 16.4402}

	assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
}

// TestHaversineKnownDistance checks against a known city pair.
func TestHaversineKnownDistance(t *testing.T) {
	// Zagreb to Split, roughly 260 km great-circle
	d := HaversineKm(45.815, 15.9819, 43.5081, 16.4402)
	assert.InDelta(t, 260, d, 10)
}

func TestInCircle(t *testing.T) {
	center := Point{Lat: 45.815, Lng: 15.9819}

	tests := []struct {
		name    string
		p       Point
		radiusM float64
		want    bool
	}{
		{"center itself", center, 1, true},
		{"within 5km", Point{Lat: 45.83, Lng: 15.99}, 5000, true},
		{"outside 1km", Point{Lat: 45.9, Lng: 16.1}, 1000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InCircle(tt.p, center, tt.radiusM))
		})
	}
}

func TestInPolygon(t *testing.T) {
	square := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 10},
		{Lat: 10, Lng: 10},
		{Lat: 10, Lng: 0},
	}

	tests := []struct {
		name string
		p    Point
		poly []Point
		want bool
	}{
		{"inside square", Point{Lat: 5, Lng: 5}, square, true},
		{"outside square", Point{Lat: 15, Lng: 5}, square, false},
		{"near edge inside", Point{Lat: 0.001, Lng: 5}, square, true},
		{"degenerate polygon", Point{Lat: 5, Lng: 5}, square[:2], false},
		{"empty polygon", Point{Lat: 5, Lng: 5}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InPolygon(tt.p, tt.poly))
		})
	}
}
