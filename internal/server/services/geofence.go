package services

import (
	"fmt"
	"os"
	"strconv"
)

// Bounds is the rectangular lat/lng box plants must fall inside. One box per
// deployment; a soft usage policy, not a security boundary, so a rectangle is
// enough and no polygon or geodesic check is done.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Default service area: Panipat, Haryana.
var defaultBounds = Bounds{
	MinLat: 29.2,
	MaxLat: 29.6,
	MinLng: 76.7,
	MaxLng: 77.2,
}

// Contains reports whether the point lies inside the bounds, inclusive on all
// edges.
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%.2f, %.2f] x [%.2f, %.2f]", b.MinLat, b.MaxLat, b.MinLng, b.MaxLng)
}

// BoundsFromEnv reads GEOFENCE_MIN_LAT / GEOFENCE_MAX_LAT / GEOFENCE_MIN_LNG /
// GEOFENCE_MAX_LNG, falling back to the default service area for any value
// that is unset or malformed.
func BoundsFromEnv() Bounds {
	b := defaultBounds
	b.MinLat = envFloat("GEOFENCE_MIN_LAT", b.MinLat)
	b.MaxLat = envFloat("GEOFENCE_MAX_LAT", b.MaxLat)
	b.MinLng = envFloat("GEOFENCE_MIN_LNG", b.MinLng)
	b.MaxLng = envFloat("GEOFENCE_MAX_LNG", b.MaxLng)
	return b
}

func envFloat(key string, fallback float64) float64 {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	}
	return fallback
}
