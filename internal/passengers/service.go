package passengers

import (
	"context"

	"booking-service/pkg/docstore"
)

// Service reads passenger documents.
type Service struct {
	store docstore.Store
}

// NewService creates a passenger service.
func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// GetByID fetches a passenger document.
func (s *Service) GetByID(ctx context.Context, id string) (*Passenger, error) {
	doc, err := s.store.Get(ctx, docstore.Passengers, id)
	if err != nil {
		return nil, err
	}
	var p Passenger
	if err := doc.Decode(&p); err != nil {
		return nil, err
	}
	p.ID = doc.ID
	return &p, nil
}

// DeviceToken returns the passenger's notification address ("" if unset).
func (s *Service) DeviceToken(ctx context.Context, id string) (string, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return p.DeviceToken, nil
}
