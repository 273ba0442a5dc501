package passengers

// Passenger is the booking-relevant view of a rider account. Account
// creation and profile editing belong to the external auth service; this
// service only reads passenger documents.
type Passenger struct {
	ID          string  `json:"id"`
	Name        string  `json:"name,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	DeviceToken string  `json:"deviceToken,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}
