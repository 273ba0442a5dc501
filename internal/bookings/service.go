package bookings

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"booking-service/internal/drivers"
	"booking-service/internal/events"
	"booking-service/internal/passengers"
	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
	"booking-service/pkg/geo"
	"booking-service/pkg/kafka"
	"booking-service/pkg/notify"
	"booking-service/pkg/validation"
)

// paymentGeofenceKm is how close the driver must be to the drop-off point
// for cash-payment confirmation to go through.
const paymentGeofenceKm = 7.0

// Tracker pushes booking status changes to connected websocket clients.
type Tracker interface {
	BroadcastStatus(bookingID, status string)
}

// Service owns the booking state machine: it validates transitions, applies
// the coupled booking/driver updates, and fires the per-transition
// notifications. Notification and event publishing are best-effort; a
// dispatch failure never rolls a transition back.
type Service struct {
	store      docstore.Store
	notifier   notify.Notifier
	passengers *passengers.Service
	drivers    *drivers.Service
	kafka      *kafka.Client // nil disables lifecycle events
	tracker    Tracker       // nil disables websocket pushes
}

// NewService creates a booking service. kafka and tracker may be nil.
func NewService(store docstore.Store, notifier notify.Notifier, p *passengers.Service, d *drivers.Service, k *kafka.Client, t Tracker) *Service {
	return &Service{store: store, notifier: notifier, passengers: p, drivers: d, kafka: k, tracker: t}
}

// Create persists a new booking in pending status for the given passenger.
func (s *Service) Create(ctx context.Context, passengerID string, req CreateRequest) (*Booking, error) {
	if !validation.ValidID(passengerID) {
		return nil, errs.E(errs.Validation, "passenger id is required")
	}
	if req.PickupLat == nil || req.PickupLng == nil || req.DropOffLat == nil || req.DropOffLng == nil {
		return nil, errs.E(errs.Validation, "pick-up and drop-off locations are required")
	}
	if !validation.ValidCoordinates(*req.PickupLat, *req.PickupLng) ||
		!validation.ValidCoordinates(*req.DropOffLat, *req.DropOffLng) {
		return nil, errs.E(errs.Validation, "pick-up and drop-off locations are out of range")
	}

	b := &Booking{
		ID:            uuid.New().String(),
		PassengerID:   passengerID,
		Pickup:        Coordinate{Lat: *req.PickupLat, Lng: *req.PickupLng},
		DropOff:       Coordinate{Lat: *req.DropOffLat, Lng: *req.DropOffLng},
		Price:         req.Price,
		Status:        StatusPending,
		PaymentStatus: PaymentNone,
		CreatedAt:     time.Now().UTC(),
	}
	if req.HasThirdStop && req.ThirdStopLat != nil && req.ThirdStopLng != nil {
		b.ThirdStop = &Coordinate{Lat: *req.ThirdStopLat, Lng: *req.ThirdStopLng}
	}

	fields, err := docstore.Fields(b)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, docstore.Bookings, b.ID, fields); err != nil {
		return nil, err
	}

	s.notifyPassenger(ctx, b.PassengerID, "Booking Request",
		"Your booking request has been received successfully!", bookingData(b.ID))
	s.publishStatus(b)
	return b, nil
}

// GetByID fetches a booking.
func (s *Service) GetByID(ctx context.Context, id string) (*Booking, error) {
	doc, err := s.store.Get(ctx, docstore.Bookings, id)
	if err != nil {
		return nil, err
	}
	var b Booking
	if err := doc.Decode(&b); err != nil {
		return nil, err
	}
	b.ID = doc.ID
	return &b, nil
}

// Assign confirms the booking against the chosen driver. The booking's
// transition to confirmed and the driver's flip to unavailable commit
// atomically, and the driver's availability is re-checked inside the
// transaction so two concurrent assignments cannot both take the same
// driver.
func (s *Service) Assign(ctx context.Context, bookingID, driverID string) (*Booking, error) {
	if !validation.ValidID(bookingID) || !validation.ValidID(driverID) {
		return nil, errs.E(errs.Validation, "booking id and driver id are required")
	}

	err := docstore.UpdatePair(ctx, s.store,
		docstore.DocRef{Collection: docstore.Bookings, ID: bookingID},
		map[string]any{"status": StatusConfirmed, "driverId": driverID},
		docstore.DocRef{Collection: docstore.Drivers, ID: driverID},
		map[string]any{"status": drivers.StatusUnavailable},
		func(bDoc, dDoc docstore.Document) error {
			var b Booking
			if err := bDoc.Decode(&b); err != nil {
				return err
			}
			if b.Status != StatusPending || b.DriverID != "" {
				return errs.Errorf(errs.InvalidState, "booking is %s, not awaiting assignment", b.Status)
			}
			var d drivers.Driver
			if err := dDoc.Decode(&d); err != nil {
				return err
			}
			if d.Status != drivers.StatusAvailable {
				return errs.E(errs.InvalidState, "driver is no longer available")
			}
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.drivers.EvictLocation(ctx, driverID)

	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	s.notifyPassenger(ctx, b.PassengerID, "Driver Assigned",
		"A driver has been assigned to your booking.", bookingData(bookingID))
	s.notifyDriver(ctx, driverID, "New Booking",
		"You have been assigned a new booking.", bookingData(bookingID))
	s.publishStatus(b)
	return b, nil
}

// Cancel moves the booking to cancelled and, if a driver was assigned,
// returns that driver to available in the same commit. The status read and
// both writes share one transaction, so a concurrent assignment either lands
// before the cancel (and its driver is released here) or loses its
// pending-status check afterwards. Cancelling an already-terminal booking is
// a silent no-op, matching the behavior the mobile clients rely on.
func (s *Service) Cancel(ctx context.Context, bookingID string) (*Booking, error) {
	var b Booking
	err := s.store.RunTransaction(ctx, func(tx docstore.Txn) error {
		doc, err := tx.Get(docstore.Bookings, bookingID)
		if err != nil {
			return err
		}
		if err := doc.Decode(&b); err != nil {
			return err
		}
		b.ID = doc.ID
		if b.Status == StatusCompleted || b.Status == StatusCancelled {
			return nil
		}
		tx.Update(docstore.Bookings, bookingID, map[string]any{"status": StatusCancelled})
		if b.DriverID != "" {
			tx.Update(docstore.Drivers, b.DriverID, map[string]any{"status": drivers.StatusAvailable})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCompleted || b.Status == StatusCancelled {
		return &b, nil
	}

	if b.DriverID != "" {
		s.notifyDriver(ctx, b.DriverID, "Booking Cancelled",
			"The booking has been cancelled by the user.", bookingData(bookingID))
	}
	b.Status = StatusCancelled
	s.notifyPassenger(ctx, b.PassengerID, "Booking Cancelled",
		"Your booking has been cancelled successfully.", bookingData(bookingID))
	s.publishStatus(&b)
	return &b, nil
}

// MarkDriverAtPickup records that the driver reached the pickup point.
// Only legal while the booking is confirmed.
func (s *Service) MarkDriverAtPickup(ctx context.Context, bookingID string) error {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusConfirmed {
		return errs.Errorf(errs.InvalidState, "booking is %s, not confirmed", b.Status)
	}
	if err := s.store.Update(ctx, docstore.Bookings, bookingID, map[string]any{"driverArrivedAtPickup": true}); err != nil {
		return err
	}
	s.notifyPassenger(ctx, b.PassengerID, "Driver Arrived",
		"Your driver has arrived at the pickup location.", bookingData(bookingID))
	return nil
}

// StartRide moves the booking to ongoing. Requires a confirmed booking
// whose driver has arrived at the pickup point; anything else (including a
// booking cancelled after the driver arrived) is rejected.
func (s *Service) StartRide(ctx context.Context, bookingID string) error {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusConfirmed {
		return errs.Errorf(errs.InvalidState, "booking is %s, not confirmed", b.Status)
	}
	if !b.DriverArrivedAtPickup {
		return errs.E(errs.InvalidState, "driver must arrive at the pickup location before starting the ride")
	}
	if err := s.store.Update(ctx, docstore.Bookings, bookingID, map[string]any{"status": StatusOngoing}); err != nil {
		return err
	}
	b.Status = StatusOngoing
	s.notifyPassenger(ctx, b.PassengerID, "Ride Started", "Your ride has started.", bookingData(bookingID))
	s.publishStatus(b)
	return nil
}

// EndRide completes the booking and releases the driver back to available
// in the same commit. Only legal while the ride is ongoing.
func (s *Service) EndRide(ctx context.Context, bookingID string) error {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != StatusOngoing {
		return errs.E(errs.InvalidState, "the ride is not ongoing")
	}

	fields := map[string]any{"driverArrivedAtDropoff": true, "status": StatusCompleted}
	if b.DriverID != "" {
		err = docstore.UpdatePair(ctx, s.store,
			docstore.DocRef{Collection: docstore.Bookings, ID: bookingID}, fields,
			docstore.DocRef{Collection: docstore.Drivers, ID: b.DriverID},
			map[string]any{"status": drivers.StatusAvailable},
			nil)
	} else {
		err = s.store.Update(ctx, docstore.Bookings, bookingID, fields)
	}
	if err != nil {
		return err
	}

	b.Status = StatusCompleted
	s.notifyPassenger(ctx, b.PassengerID, "Ride Completed",
		"Your ride has been completed successfully.", bookingData(bookingID))
	s.publishStatus(b)
	return nil
}

// ConfirmPayment records the cash settlement for a completed ride. The
// driver must be within the geofence of the drop-off point; the payment
// record and the booking's paymentStatus flip commit together, so a partial
// failure cannot leave an orphaned payment behind.
func (s *Service) ConfirmPayment(ctx context.Context, bookingID string, amount float64) (*Payment, error) {
	b, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !b.DriverArrivedAtDropoff {
		return nil, errs.E(errs.InvalidState, "driver has not arrived at the dropoff location")
	}
	if b.PaymentStatus == PaymentCompleted {
		return nil, errs.E(errs.InvalidState, "payment already completed for this booking")
	}

	d, err := s.drivers.GetByID(ctx, b.DriverID)
	if err != nil {
		return nil, err
	}
	if geo.DistanceKm(d.Location.Lat, d.Location.Lng, b.DropOff.Lat, b.DropOff.Lng) > paymentGeofenceKm {
		return nil, errs.E(errs.GeofenceViolation, "driver is not close enough to the dropoff location to confirm payment")
	}

	p := &Payment{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		Amount:    amount,
		Status:    PaymentCompleted,
		Type:      "cash",
		CreatedAt: time.Now().UTC(),
	}
	pFields, err := docstore.Fields(p)
	if err != nil {
		return nil, err
	}

	err = s.store.RunTransaction(ctx, func(tx docstore.Txn) error {
		doc, err := tx.Get(docstore.Bookings, bookingID)
		if err != nil {
			return err
		}
		var cur Booking
		if err := doc.Decode(&cur); err != nil {
			return err
		}
		if cur.PaymentStatus == PaymentCompleted {
			return errs.E(errs.InvalidState, "payment already completed for this booking")
		}
		tx.Set(docstore.Payments, p.ID, pFields)
		tx.Update(docstore.Bookings, bookingID, map[string]any{"paymentStatus": PaymentCompleted})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyPassenger(ctx, b.PassengerID, "Payment Confirmed",
		"Payment confirmed and ride marked as successful.", bookingData(bookingID))
	s.publishPayment(p)
	return p, nil
}

// ---- side effects ----

func (s *Service) notifyPassenger(ctx context.Context, passengerID, title, body string, data map[string]string) {
	token, err := s.passengers.DeviceToken(ctx, passengerID)
	if err != nil {
		log.Printf("[bookings] no device token for passenger %s: %v", passengerID, err)
		return
	}
	s.notifier.Notify(ctx, token, title, body, data)
}

func (s *Service) notifyDriver(ctx context.Context, driverID, title, body string, data map[string]string) {
	token, err := s.drivers.DeviceToken(ctx, driverID)
	if err != nil {
		log.Printf("[bookings] no device token for driver %s: %v", driverID, err)
		return
	}
	s.notifier.Notify(ctx, token, title, body, data)
}

func (s *Service) publishStatus(b *Booking) {
	if s.tracker != nil {
		s.tracker.BroadcastStatus(b.ID, b.Status)
	}
	if s.kafka == nil {
		return
	}
	ev := events.BookingStatusEvent{
		BookingID:   b.ID,
		PassengerID: b.PassengerID,
		DriverID:    b.DriverID,
		Status:      b.Status,
		At:          time.Now().UTC().Format(time.RFC3339),
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicBookingStatus, b.ID, ev); err != nil {
			log.Printf("[bookings] failed to publish status %s for %s: %v", b.Status, b.ID, err)
		}
	}()
}

func (s *Service) publishPayment(p *Payment) {
	if s.kafka == nil {
		return
	}
	ev := events.PaymentCompletedEvent{
		BookingID: p.BookingID,
		PaymentID: p.ID,
		Amount:    p.Amount,
		At:        p.CreatedAt.Format(time.RFC3339),
	}
	go func() {
		if err := s.kafka.Publish(context.Background(), kafka.TopicBookingStatus, p.BookingID, ev); err != nil {
			log.Printf("[bookings] failed to publish payment for %s: %v", p.BookingID, err)
		}
	}()
}

func bookingData(bookingID string) map[string]string {
	return map[string]string{"bookingId": bookingID}
}
