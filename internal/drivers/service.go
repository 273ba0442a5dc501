package drivers

import (
	"context"
	"log"

	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
	"booking-service/pkg/validation"
)

// GeoCache mirrors driver positions for radius queries. The Redis client
// satisfies it; tests pass nil to skip the mirror.
type GeoCache interface {
	SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	GetNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error)
	RemoveDriverLocation(ctx context.Context, driverID string) error
}

// Tracker pushes live driver positions to websocket clients watching a
// booking.
type Tracker interface {
	BroadcastLocation(bookingID string, lat, lng float64)
}

// Service contains driver dispatch-state logic.
type Service struct {
	store   docstore.Store
	geo     GeoCache
	tracker Tracker
}

// NewService creates a driver service. geo and tracker may be nil.
func NewService(store docstore.Store, geo GeoCache, tracker Tracker) *Service {
	return &Service{store: store, geo: geo, tracker: tracker}
}

// GetByID fetches a driver document.
func (s *Service) GetByID(ctx context.Context, id string) (*Driver, error) {
	doc, err := s.store.Get(ctx, docstore.Drivers, id)
	if err != nil {
		return nil, err
	}
	var d Driver
	if err := doc.Decode(&d); err != nil {
		return nil, err
	}
	d.ID = doc.ID
	return &d, nil
}

// UpdateLocation records the driver's current position on the document,
// mirrors it into the geo cache, and pushes it to websocket clients
// watching the driver's active booking. Cache and push are best-effort.
func (s *Service) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if !validation.ValidCoordinates(lat, lng) {
		return errs.E(errs.Validation, "invalid coordinates")
	}
	err := s.store.Update(ctx, docstore.Drivers, driverID, map[string]any{
		"location": map[string]any{"lat": lat, "lng": lng},
	})
	if err != nil {
		return err
	}
	if s.geo != nil {
		if err := s.geo.SetDriverLocation(ctx, driverID, lat, lng); err != nil {
			log.Printf("[drivers] geo mirror failed for %s: %v", driverID, err)
		}
	}
	if s.tracker != nil {
		if bookingID := s.activeBooking(ctx, driverID); bookingID != "" {
			s.tracker.BroadcastLocation(bookingID, lat, lng)
		}
	}
	return nil
}

// activeBooking returns the booking the driver is currently serving
// (confirmed or ongoing), or "" if none.
func (s *Service) activeBooking(ctx context.Context, driverID string) string {
	docs, err := s.store.Query(ctx, docstore.Bookings, "driverId", driverID)
	if err != nil {
		log.Printf("[drivers] active booking lookup failed for %s: %v", driverID, err)
		return ""
	}
	for _, doc := range docs {
		var b struct {
			Status string `json:"status"`
		}
		if err := doc.Decode(&b); err != nil {
			continue
		}
		if b.Status == "confirmed" || b.Status == "ongoing" {
			return doc.ID
		}
	}
	return ""
}

// SetAvailability flips a driver between available and unavailable. An
// unavailable driver is evicted from the geo cache so nearby queries stop
// returning them; going available they reappear with their next location
// report.
func (s *Service) SetAvailability(ctx context.Context, driverID, status string) error {
	if status != StatusAvailable && status != StatusUnavailable {
		return errs.Errorf(errs.Validation, "unknown availability %q", status)
	}
	if err := s.store.Update(ctx, docstore.Drivers, driverID, map[string]any{"status": status}); err != nil {
		return err
	}
	if status == StatusUnavailable {
		s.EvictLocation(ctx, driverID)
	}
	return nil
}

// EvictLocation drops the driver from the geo cache. Best-effort: a failed
// eviction only means a stale nearby result until the entry is overwritten.
func (s *Service) EvictLocation(ctx context.Context, driverID string) {
	if s.geo == nil {
		return
	}
	if err := s.geo.RemoveDriverLocation(ctx, driverID); err != nil {
		log.Printf("[drivers] geo evict failed for %s: %v", driverID, err)
	}
}

// Nearby returns driver IDs within radiusKm of the given point, nearest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	if s.geo == nil {
		return nil, errs.E(errs.Store, "geo cache not configured")
	}
	if !validation.ValidCoordinates(lat, lng) {
		return nil, errs.E(errs.Validation, "invalid coordinates")
	}
	return s.geo.GetNearbyDrivers(ctx, lat, lng, radiusKm, 10)
}

// Statistics aggregates a driver's ride history.
type Statistics struct {
	TotalBookings int     `json:"totalBookings"`
	Completed     int     `json:"completed"`
	Cancelled     int     `json:"cancelled"`
	TotalEarnings float64 `json:"totalEarnings"`
	AverageRating float64 `json:"averageRating"`
}

// Earnings sums the driver's completed cash settlements.
func (s *Service) Earnings(ctx context.Context, driverID string) (float64, error) {
	stats, err := s.Stats(ctx, driverID)
	if err != nil {
		return 0, err
	}
	return stats.TotalEarnings, nil
}

// Stats computes booking counts and earnings across the driver's history.
// Payments are looked up per booking; the rating average comes straight off
// the driver document.
func (s *Service) Stats(ctx context.Context, driverID string) (*Statistics, error) {
	d, err := s.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.Query(ctx, docstore.Bookings, "driverId", driverID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{AverageRating: d.AverageRating}
	for _, doc := range docs {
		var b struct {
			Status string `json:"status"`
		}
		if err := doc.Decode(&b); err != nil {
			continue
		}
		stats.TotalBookings++
		switch b.Status {
		case "completed":
			stats.Completed++
		case "cancelled":
			stats.Cancelled++
		}
		if b.Status != "completed" {
			continue
		}
		pays, err := s.store.Query(ctx, docstore.Payments, "bookingId", doc.ID)
		if err != nil {
			return nil, err
		}
		for _, pd := range pays {
			var p struct {
				Amount float64 `json:"amount"`
				Status string  `json:"status"`
			}
			if err := pd.Decode(&p); err != nil {
				continue
			}
			if p.Status == "completed" {
				stats.TotalEarnings += p.Amount
			}
		}
	}
	return stats, nil
}

// DeviceToken returns the driver's notification address ("" if unset).
func (s *Service) DeviceToken(ctx context.Context, driverID string) (string, error) {
	d, err := s.GetByID(ctx, driverID)
	if err != nil {
		return "", err
	}
	return d.DeviceToken, nil
}
