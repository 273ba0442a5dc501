package geo

import (
	"math"
	"testing"
)

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	t.Parallel()
	if d := DistanceKm(51.5074, -0.1278, 51.5074, -0.1278); d != 0 {
		t.Errorf("distance between identical points: got %v, want 0", d)
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	t.Parallel()
	ab := DistanceKm(40.7128, -74.0060, 34.0522, -118.2437)
	ba := DistanceKm(34.0522, -118.2437, 40.7128, -74.0060)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: d(A,B)=%v d(B,A)=%v", ab, ba)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	t.Parallel()
	// 0.01 degrees of longitude at the equator is ~1.11 km.
	d := DistanceKm(0, 0, 0, 0.01)
	if d < 1.0 || d > 1.2 {
		t.Errorf("d((0,0),(0,0.01)): got %v km, want ~1.11", d)
	}

	// New York to Los Angeles is ~3936 km great-circle.
	d = DistanceKm(40.7128, -74.0060, 34.0522, -118.2437)
	if d < 3900 || d > 3970 {
		t.Errorf("NYC-LA: got %v km, want ~3936", d)
	}
}

func TestDistanceAgainstDispatchThresholds(t *testing.T) {
	t.Parallel()
	// A driver 0.01 degrees away sits well inside the 5 km search radius.
	if d := DistanceKm(0, 0, 0, 0.01); d > 5 {
		t.Errorf("nearby driver outside search radius: %v km", d)
	}
	// One degree of latitude (~111 km) is far outside the 7 km geofence.
	if d := DistanceKm(0, 0, 1, 0); d <= 7 {
		t.Errorf("distant driver inside geofence: %v km", d)
	}
}
