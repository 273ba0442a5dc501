package admin

import (
	"context"
	"time"

	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
	"booking-service/pkg/validation"
)

// Service handles administrative approval and denial of applications.
// Every decision touches the application and the driver record together,
// so the mirrored status fields can never disagree.
type Service struct {
	store docstore.Store
}

// NewService creates an admin service.
func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// GetDriverApplication fetches one driver application.
func (s *Service) GetDriverApplication(ctx context.Context, id string) (*DriverApplication, error) {
	doc, err := s.store.Get(ctx, docstore.DriverApps, id)
	if err != nil {
		return nil, err
	}
	var app DriverApplication
	if err := doc.Decode(&app); err != nil {
		return nil, err
	}
	app.ID = doc.ID
	return &app, nil
}

// ListDriverApplications returns every driver application, for the review
// queue.
func (s *Service) ListDriverApplications(ctx context.Context) ([]DriverApplication, error) {
	docs, err := s.store.List(ctx, docstore.DriverApps)
	if err != nil {
		return nil, err
	}
	apps := make([]DriverApplication, 0, len(docs))
	for _, doc := range docs {
		var app DriverApplication
		if err := doc.Decode(&app); err != nil {
			return nil, err
		}
		app.ID = doc.ID
		apps = append(apps, app)
	}
	return apps, nil
}

// ListChildPickupApplications returns every child-pickup application.
func (s *Service) ListChildPickupApplications(ctx context.Context) ([]ChildPickupApplication, error) {
	docs, err := s.store.List(ctx, docstore.ChildPickupApps)
	if err != nil {
		return nil, err
	}
	apps := make([]ChildPickupApplication, 0, len(docs))
	for _, doc := range docs {
		var app ChildPickupApplication
		if err := doc.Decode(&app); err != nil {
			return nil, err
		}
		app.ID = doc.ID
		apps = append(apps, app)
	}
	return apps, nil
}

// GetChildPickupApplication fetches one child-pickup application.
func (s *Service) GetChildPickupApplication(ctx context.Context, id string) (*ChildPickupApplication, error) {
	doc, err := s.store.Get(ctx, docstore.ChildPickupApps, id)
	if err != nil {
		return nil, err
	}
	var app ChildPickupApplication
	if err := doc.Decode(&app); err != nil {
		return nil, err
	}
	app.ID = doc.ID
	return &app, nil
}

// ApproveDriverApplication marks the application approved and grants the
// driver the listed booking/delivery classes, atomically.
func (s *Service) ApproveDriverApplication(ctx context.Context, applicationID, driverID string, bookingClass, deliveryClass []string) error {
	if !validation.ValidID(applicationID) || !validation.ValidID(driverID) {
		return errs.E(errs.Validation, "driver id and application id are required")
	}
	if bookingClass == nil {
		bookingClass = []string{}
	}
	if deliveryClass == nil {
		deliveryClass = []string{}
	}
	return docstore.UpdatePair(ctx, s.store,
		docstore.DocRef{Collection: docstore.DriverApps, ID: applicationID},
		map[string]any{"driverVerificationStatus": StatusApproved},
		docstore.DocRef{Collection: docstore.Drivers, ID: driverID},
		map[string]any{
			"driverVerificationStatus": StatusApproved,
			"reason":                   "",
			"bookingClass":             bookingClass,
			"deliveryClass":            deliveryClass,
		},
		nil)
}

// DenyDriverApplication marks the application denied with a reason,
// mirrored onto the driver record.
func (s *Service) DenyDriverApplication(ctx context.Context, applicationID, driverID, reason string) error {
	if !validation.ValidID(applicationID) || !validation.ValidID(driverID) || !validation.ValidReason(reason) {
		return errs.E(errs.Validation, "driver id, application id and reason are required")
	}
	fields := map[string]any{"driverVerificationStatus": StatusDenied, "reason": reason}
	return docstore.UpdatePair(ctx, s.store,
		docstore.DocRef{Collection: docstore.DriverApps, ID: applicationID}, fields,
		docstore.DocRef{Collection: docstore.Drivers, ID: driverID}, fields,
		nil)
}

// ApproveChildPickupApplication grants the child-pickup class.
func (s *Service) ApproveChildPickupApplication(ctx context.Context, applicationID, driverID string) error {
	if !validation.ValidID(applicationID) || !validation.ValidID(driverID) {
		return errs.E(errs.Validation, "application id and driver id are required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return docstore.UpdatePair(ctx, s.store,
		docstore.DocRef{Collection: docstore.ChildPickupApps, ID: applicationID},
		map[string]any{"childPickUpStatus": StatusApproved, "childPickUpDenialReason": "", "updatedAt": now},
		docstore.DocRef{Collection: docstore.Drivers, ID: driverID},
		map[string]any{"childPickUpStatus": StatusApproved, "childPickUpDenialReason": ""},
		nil)
}

// DenyChildPickupApplication denies the child-pickup class with a reason.
func (s *Service) DenyChildPickupApplication(ctx context.Context, applicationID, driverID, reason string) error {
	if !validation.ValidID(applicationID) || !validation.ValidID(driverID) || !validation.ValidReason(reason) {
		return errs.E(errs.Validation, "application id, driver id and reason are required")
	}
	now := time.Now().UTC().Format(time.RFC3339)
	return docstore.UpdatePair(ctx, s.store,
		docstore.DocRef{Collection: docstore.ChildPickupApps, ID: applicationID},
		map[string]any{"childPickUpStatus": StatusDenied, "childPickUpDenialReason": reason, "updatedAt": now},
		docstore.DocRef{Collection: docstore.Drivers, ID: driverID},
		map[string]any{"childPickUpStatus": StatusDenied, "childPickUpDenialReason": reason},
		nil)
}
