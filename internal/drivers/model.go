package drivers

// Driver availability states. A driver is unavailable while holding an
// active booking and returns to available on cancellation or completion.
const (
	StatusAvailable   = "available"
	StatusUnavailable = "unavailable"
)

// Location is a driver's last reported position.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Driver is the dispatch-relevant state of one driver, stored as a
// document in the drivers collection.
type Driver struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	Status          string   `json:"status"`
	Location        Location `json:"location"`
	DeviceToken     string   `json:"deviceToken,omitempty"`
	VehicleType     string   `json:"vehicleType,omitempty"`
	LicensePlate    string   `json:"licensePlate,omitempty"`
	TotalRatings    float64  `json:"totalRatings"`
	NumberOfReviews int      `json:"numberOfReviews"`
	AverageRating   float64  `json:"averageRating"`
}

// LocationUpdate is the body for PATCH /drivers/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StatusUpdate is the body for PATCH /drivers/status.
type StatusUpdate struct {
	Status string `json:"status"`
}
