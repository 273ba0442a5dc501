package matching

import (
	"context"
	"sync"
	"testing"
	"time"

	"booking-service/internal/passengers"
	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
)

type recorder struct {
	mu     sync.Mutex
	titles []string
}

func (r *recorder) Notify(_ context.Context, _, title, _ string, _ map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.titles = append(r.titles, title)
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.titles) == 0 {
		return ""
	}
	return r.titles[len(r.titles)-1]
}

func newTestEngine(t *testing.T) (*Engine, *docstore.MemStore, *recorder) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemStore()
	store.Set(ctx, docstore.Passengers, "p1", map[string]any{"deviceToken": "tok-p1"})
	store.Set(ctx, docstore.Bookings, "b1", map[string]any{
		"passengerId": "p1",
		"pickup":      map[string]any{"lat": 0.0, "lng": 0.0},
		"status":      "pending",
	})

	rec := &recorder{}
	eng := NewEngine(store, rec, passengers.NewService(store))
	eng.Deadline = 2 * time.Second
	return eng, store, rec
}

func driverDoc(lat, lng float64) map[string]any {
	return map[string]any{
		"status":   "available",
		"location": map[string]any{"lat": lat, "lng": lng},
	}
}

func TestSearchFindsDriverFromSnapshot(t *testing.T) {
	t.Parallel()
	eng, store, rec := newTestEngine(t)
	ctx := context.Background()

	// ~1.1 km away, well inside the default radius.
	store.Set(ctx, docstore.Drivers, "d1", driverDoc(0, 0.01))

	found, err := eng.Search(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].ID != "d1" {
		t.Errorf("found: %+v", found)
	}
	if rec.last() != "Drivers Found" {
		t.Errorf("notification: got %q, want Drivers Found", rec.last())
	}
}

func TestSearchResolvesWhenDriverAppears(t *testing.T) {
	t.Parallel()
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()

	go func() {
		time.Sleep(50 * time.Millisecond)
		store.Set(ctx, docstore.Drivers, "d1", driverDoc(0, 0.02))
	}()

	start := time.Now()
	found, err := eng.Search(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Errorf("found %d drivers, want 1", len(found))
	}
	if elapsed := time.Since(start); elapsed >= eng.Deadline {
		t.Errorf("search waited out the deadline (%v) instead of resolving early", elapsed)
	}
}

func TestSearchIgnoresDriversOutOfRange(t *testing.T) {
	t.Parallel()
	eng, store, rec := newTestEngine(t)
	ctx := context.Background()
	eng.Deadline = 200 * time.Millisecond

	// A degree of latitude is ~111 km.
	store.Set(ctx, docstore.Drivers, "far", driverDoc(1.0, 0))

	_, err := eng.Search(ctx, "b1")
	if !errs.Is(err, errs.NoDriversFound) {
		t.Fatalf("got %v, want NoDriversFound", err)
	}
	if rec.last() != "No Drivers Found" {
		t.Errorf("notification: got %q, want No Drivers Found", rec.last())
	}
}

func TestSearchDeadline(t *testing.T) {
	t.Parallel()
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()
	eng.Deadline = 150 * time.Millisecond

	_, err := eng.Search(ctx, "b1")
	if !errs.Is(err, errs.NoDriversFound) {
		t.Fatalf("got %v, want NoDriversFound", err)
	}

	// The driver subscription must not outlive the search.
	if n := store.ActiveSubscriptions(); n != 0 {
		t.Errorf("active subscriptions after search: got %d, want 0", n)
	}
}

func TestSearchSnapshotIncludesAllAvailable(t *testing.T) {
	t.Parallel()
	eng, store, _ := newTestEngine(t)
	ctx := context.Background()

	// One qualifying driver resolves the search; the result still carries
	// every driver that is available at that moment, in range or not.
	store.Set(ctx, docstore.Drivers, "near", driverDoc(0, 0.01))
	store.Set(ctx, docstore.Drivers, "far", driverDoc(1.0, 0))
	store.Set(ctx, docstore.Drivers, "busy", map[string]any{
		"status":   "unavailable",
		"location": map[string]any{"lat": 0.0, "lng": 0.0},
	})

	found, err := eng.Search(ctx, "b1")
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool, len(found))
	for _, d := range found {
		ids[d.ID] = true
	}
	if !ids["near"] || !ids["far"] || ids["busy"] {
		t.Errorf("snapshot: %v", ids)
	}
}

func TestSearchUnknownBooking(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)

	_, err := eng.Search(context.Background(), "ghost")
	if !errs.Is(err, errs.NotFound) {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	t.Parallel()
	eng, _, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Search(ctx, "b1")
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
