// Package matching runs the live driver search: a standing query over
// available drivers raced against a deadline, resolving to the first
// driver set within range of the booking's pickup point.
package matching

import (
	"context"
	"log"
	"time"

	"booking-service/internal/drivers"
	"booking-service/internal/passengers"
	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
	"booking-service/pkg/geo"
	"booking-service/pkg/notify"
)

// Defaults for the search radius and deadline.
const (
	DefaultRadiusKm = 5.0
	DefaultDeadline = 60 * time.Second
)

// Engine finds a driver for a pending booking. Availability is discovered
// incrementally: drivers going available (or moving) while the search runs
// are observed through the subscription, not just the initial snapshot.
type Engine struct {
	store      docstore.Store
	notifier   notify.Notifier
	passengers *passengers.Service

	// RadiusKm and Deadline default to DefaultRadiusKm / DefaultDeadline.
	RadiusKm float64
	Deadline time.Duration
}

// NewEngine creates a matching engine with default radius and deadline.
func NewEngine(store docstore.Store, notifier notify.Notifier, p *passengers.Service) *Engine {
	return &Engine{
		store:      store,
		notifier:   notifier,
		passengers: p,
		RadiusKm:   DefaultRadiusKm,
		Deadline:   DefaultDeadline,
	}
}

// Search resolves to the set of currently-available drivers as soon as any
// one of them is observed within RadiusKm of the booking's pickup point, or
// fails with NoDriversFound once the deadline passes. Both terminal paths
// run on this goroutine's select loop, so at most one of the two outcomes
// can fire, and the subscription is closed on every path.
func (e *Engine) Search(ctx context.Context, bookingID string) ([]drivers.Driver, error) {
	doc, err := e.store.Get(ctx, docstore.Bookings, bookingID)
	if err != nil {
		return nil, err
	}
	// Only the pickup point and passenger matter here; the booking's own
	// lifecycle stays with the bookings service.
	var booking struct {
		PassengerID string `json:"passengerId"`
		Pickup      struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"pickup"`
	}
	if err := doc.Decode(&booking); err != nil {
		return nil, err
	}

	sub, err := e.store.Subscribe(ctx, docstore.Drivers, "status", drivers.StatusAvailable)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	timer := time.NewTimer(e.Deadline)
	defer timer.Stop()

	// The event stream and the deadline race inside this one select loop;
	// whichever case wins returns, so the loser can never also fire.
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil, errs.E(errs.Store, "driver subscription ended unexpectedly")
			}
			if ev.Type == docstore.Removed {
				continue
			}
			var d drivers.Driver
			if err := ev.Doc.Decode(&d); err != nil {
				log.Printf("[matching] bad driver document %s: %v", ev.Doc.ID, err)
				continue
			}
			dist := geo.DistanceKm(booking.Pickup.Lat, booking.Pickup.Lng, d.Location.Lat, d.Location.Lng)
			if dist > e.RadiusKm {
				continue
			}
			found, err := e.snapshotAvailable(ctx)
			sub.Close()
			if err != nil {
				return nil, err
			}
			e.notifyPassenger(ctx, booking.PassengerID, "Drivers Found",
				"Available drivers found near your location.", bookingID)
			log.Printf("[matching] booking %s: driver %s inside %.1f km (%.2f km), %d available",
				bookingID, ev.Doc.ID, e.RadiusKm, dist, len(found))
			return found, nil

		case <-timer.C:
			sub.Close()
			e.notifyPassenger(ctx, booking.PassengerID, "No Drivers Found",
				"No drivers found within the time limit.", bookingID)
			return nil, errs.E(errs.NoDriversFound, "no drivers found within the time limit")

		case <-ctx.Done():
			return nil, errs.Wrap(errs.Store, "search aborted", ctx.Err())
		}
	}
}

// snapshotAvailable returns the full current available-driver set, which is
// what the passenger is shown once any driver qualifies.
func (e *Engine) snapshotAvailable(ctx context.Context) ([]drivers.Driver, error) {
	docs, err := e.store.Query(ctx, docstore.Drivers, "status", drivers.StatusAvailable)
	if err != nil {
		return nil, err
	}
	out := make([]drivers.Driver, 0, len(docs))
	for _, doc := range docs {
		var d drivers.Driver
		if err := doc.Decode(&d); err != nil {
			log.Printf("[matching] bad driver document %s: %v", doc.ID, err)
			continue
		}
		d.ID = doc.ID
		out = append(out, d)
	}
	return out, nil
}

func (e *Engine) notifyPassenger(ctx context.Context, passengerID, title, body, bookingID string) {
	token, err := e.passengers.DeviceToken(ctx, passengerID)
	if err != nil {
		log.Printf("[matching] no device token for passenger %s: %v", passengerID, err)
		return
	}
	e.notifier.Notify(ctx, token, title, body, map[string]string{"bookingId": bookingID})
}
