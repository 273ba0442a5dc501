package events

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BookingStatusEvent is published to booking.status on every lifecycle
// transition.
type BookingStatusEvent struct {
	BookingID   string `json:"booking_id"`
	PassengerID string `json:"passenger_id"`
	DriverID    string `json:"driver_id,omitempty"`
	Status      string `json:"status"`
	At          string `json:"at"`
}

// PaymentCompletedEvent is published to booking.status once the cash
// settlement for a booking is recorded.
type PaymentCompletedEvent struct {
	BookingID string  `json:"booking_id"`
	PaymentID string  `json:"payment_id"`
	Amount    float64 `json:"amount"`
	At        string  `json:"at"`
}
