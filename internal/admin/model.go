package admin

// Application verification states.
const (
	StatusApproved = "approved"
	StatusDenied   = "denied"
)

// DriverApplication is a driver's verification application. Its status is
// mirrored onto the driver document on approval or denial.
type DriverApplication struct {
	ID                 string   `json:"id"`
	DriverID           string   `json:"driverId"`
	VerificationStatus string   `json:"driverVerificationStatus"`
	Reason             string   `json:"reason,omitempty"`
	BookingClass       []string `json:"bookingClass,omitempty"`
	DeliveryClass      []string `json:"deliveryClass,omitempty"`
}

// ChildPickupApplication is a driver's application for the child-pickup
// service class.
type ChildPickupApplication struct {
	ID           string `json:"id"`
	DriverID     string `json:"driverId"`
	Status       string `json:"childPickUpStatus"`
	DenialReason string `json:"childPickUpDenialReason,omitempty"`
}

// ApproveDriverRequest is the body for POST /admin/driver-applications/approve.
type ApproveDriverRequest struct {
	ApplicationID string   `json:"applicationId"`
	DriverID      string   `json:"driverId"`
	BookingClass  []string `json:"bookingClass,omitempty"`
	DeliveryClass []string `json:"deliveryClass,omitempty"`
}

// DenyRequest is the body for the deny endpoints.
type DenyRequest struct {
	ApplicationID string `json:"applicationId"`
	DriverID      string `json:"driverId"`
	Reason        string `json:"reason"`
}

// ApproveChildPickupRequest is the body for POST /admin/child-pickup-applications/approve.
type ApproveChildPickupRequest struct {
	ApplicationID string `json:"applicationId"`
	DriverID      string `json:"driverId"`
}
