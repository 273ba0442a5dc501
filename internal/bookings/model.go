package bookings

import "time"

// Booking lifecycle states. Transitions are monotonic
// (pending -> confirmed -> ongoing -> completed) except cancellation,
// which is reachable from pending or confirmed.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusOngoing   = "ongoing"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Payment states on a booking.
const (
	PaymentNone      = "none"
	PaymentCompleted = "completed"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Booking represents one ride request and its lifecycle state, stored as a
// document in the bookings collection. DriverID is set iff the booking has
// reached confirmed; terminal bookings are retained as history, never deleted.
type Booking struct {
	ID                     string      `json:"id"`
	PassengerID            string      `json:"passengerId"`
	Pickup                 Coordinate  `json:"pickup"`
	DropOff                Coordinate  `json:"dropOff"`
	ThirdStop              *Coordinate `json:"thirdStop,omitempty"`
	Price                  float64     `json:"price"`
	Status                 string      `json:"status"`
	DriverID               string      `json:"driverId,omitempty"`
	DriverArrivedAtPickup  bool        `json:"driverArrivedAtPickup"`
	DriverArrivedAtDropoff bool        `json:"driverArrivedAtDropoff"`
	PaymentStatus          string      `json:"paymentStatus"`
	CreatedAt              time.Time   `json:"createdAt"`
}

// Payment is a completed cash-settlement record. Created exactly once per
// booking, immutable thereafter.
type Payment struct {
	ID        string    `json:"id"`
	BookingID string    `json:"bookingId"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest is the body for POST /bookings. The required coordinates
// are pointers so an absent field is distinguishable from a legal 0 value.
type CreateRequest struct {
	PickupLat    *float64 `json:"pickupLat"`
	PickupLng    *float64 `json:"pickupLng"`
	DropOffLat   *float64 `json:"dropOffLat"`
	DropOffLng   *float64 `json:"dropOffLng"`
	Price        float64  `json:"price"`
	HasThirdStop bool     `json:"hasThirdStop,omitempty"`
	ThirdStopLat *float64 `json:"thirdStopLat,omitempty"`
	ThirdStopLng *float64 `json:"thirdStopLng,omitempty"`
}

// AssignRequest is the body for PATCH /bookings/{id}/assign.
type AssignRequest struct {
	DriverID string `json:"driverId"`
}

// ConfirmPaymentRequest is the body for POST /bookings/{id}/payment.
type ConfirmPaymentRequest struct {
	Amount float64 `json:"amount"`
}
