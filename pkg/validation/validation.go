package validation

import "strings"

// ValidCoordinates reports whether lat/lng form a real-world coordinate.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// ValidID reports whether an entity id is usable as a document key.
func ValidID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && len(id) <= 128
}

// ValidReason reports whether a denial reason is present and bounded.
func ValidReason(reason string) bool {
	reason = strings.TrimSpace(reason)
	return reason != "" && len(reason) <= 500
}
