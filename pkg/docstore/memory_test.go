package docstore

import (
	"context"
	"testing"
	"time"

	"booking-service/pkg/errs"
)

func TestMemStoreGetSetUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()

	if _, err := s.Get(ctx, "drivers", "d1"); !errs.Is(err, errs.NotFound) {
		t.Fatalf("Get missing: got %v, want NotFound", err)
	}

	if err := s.Set(ctx, "drivers", "d1", map[string]any{"status": "available", "name": "Asel"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, "drivers", "d1", map[string]any{"status": "unavailable"}); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Get(ctx, "drivers", "d1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Data["status"] != "unavailable" {
		t.Errorf("status: got %v, want unavailable", doc.Data["status"])
	}
	if doc.Data["name"] != "Asel" {
		t.Errorf("update clobbered unrelated field: name=%v", doc.Data["name"])
	}

	if err := s.Update(ctx, "drivers", "missing", map[string]any{"x": 1}); !errs.Is(err, errs.NotFound) {
		t.Errorf("Update missing: got %v, want NotFound", err)
	}
}

func TestMemStoreQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "drivers", "d1", map[string]any{"status": "available"})
	s.Set(ctx, "drivers", "d2", map[string]any{"status": "unavailable"})
	s.Set(ctx, "drivers", "d3", map[string]any{"status": "available"})

	docs, err := s.Query(ctx, "drivers", "status", "available")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("Query: got %d docs, want 2", len(docs))
	}
}

func TestMemStoreList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "drivers", "d2", map[string]any{"status": "unavailable"})
	s.Set(ctx, "drivers", "d1", map[string]any{"status": "available"})
	s.Set(ctx, "bookings", "b1", map[string]any{"status": "pending"})

	docs, err := s.List(ctx, "drivers")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("List: got %d docs, want 2", len(docs))
	}
	if docs[0].ID != "d1" || docs[1].ID != "d2" {
		t.Errorf("order: got %q, %q, want d1, d2", docs[0].ID, docs[1].ID)
	}

	empty, err := s.List(ctx, "payments")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("empty collection: got %d docs", len(empty))
	}
}

func TestMemStoreSubscribeSnapshotThenIncremental(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "drivers", "d1", map[string]any{"status": "available"})

	sub, err := s.Subscribe(ctx, "drivers", "status", "available")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	// Existing match arrives first as Added.
	ev := recvEvent(t, sub)
	if ev.Type != Added || ev.Doc.ID != "d1" {
		t.Fatalf("snapshot event: got %v %q, want added d1", ev.Type, ev.Doc.ID)
	}

	// New match.
	s.Set(ctx, "drivers", "d2", map[string]any{"status": "available"})
	ev = recvEvent(t, sub)
	if ev.Type != Added || ev.Doc.ID != "d2" {
		t.Fatalf("add event: got %v %q, want added d2", ev.Type, ev.Doc.ID)
	}

	// Modification of an existing match.
	s.Update(ctx, "drivers", "d2", map[string]any{"rating": 4.5})
	ev = recvEvent(t, sub)
	if ev.Type != Modified || ev.Doc.ID != "d2" {
		t.Fatalf("modify event: got %v %q, want modified d2", ev.Type, ev.Doc.ID)
	}

	// Leaving the result set.
	s.Update(ctx, "drivers", "d1", map[string]any{"status": "unavailable"})
	ev = recvEvent(t, sub)
	if ev.Type != Removed || ev.Doc.ID != "d1" {
		t.Fatalf("remove event: got %v %q, want removed d1", ev.Type, ev.Doc.ID)
	}
}

func TestMemStoreSubscribeCloseIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	sub, err := s.Subscribe(ctx, "drivers", "status", "available")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.ActiveSubscriptions(); got != 1 {
		t.Fatalf("ActiveSubscriptions: got %d, want 1", got)
	}
	sub.Close()
	sub.Close()
	if got := s.ActiveSubscriptions(); got != 0 {
		t.Fatalf("ActiveSubscriptions after Close: got %d, want 0", got)
	}
	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after Close")
	}
}

func TestRunTransactionAbortsOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "bookings", "b1", map[string]any{"status": "pending"})

	err := s.RunTransaction(ctx, func(tx Txn) error {
		tx.Update("bookings", "b1", map[string]any{"status": "confirmed"})
		return errs.E(errs.InvalidState, "veto")
	})
	if !errs.Is(err, errs.InvalidState) {
		t.Fatalf("got %v, want InvalidState", err)
	}

	doc, _ := s.Get(ctx, "bookings", "b1")
	if doc.Data["status"] != "pending" {
		t.Errorf("aborted transaction leaked a write: status=%v", doc.Data["status"])
	}
}

func TestUpdatePairCommitsBothOrNeither(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "bookings", "b1", map[string]any{"status": "pending"})
	s.Set(ctx, "drivers", "d1", map[string]any{"status": "available"})

	err := UpdatePair(ctx, s,
		DocRef{"bookings", "b1"}, map[string]any{"status": "confirmed", "driverId": "d1"},
		DocRef{"drivers", "d1"}, map[string]any{"status": "unavailable"},
		nil)
	if err != nil {
		t.Fatal(err)
	}

	b, _ := s.Get(ctx, "bookings", "b1")
	d, _ := s.Get(ctx, "drivers", "d1")
	if b.Data["status"] != "confirmed" || d.Data["status"] != "unavailable" {
		t.Errorf("pair update incomplete: booking=%v driver=%v", b.Data["status"], d.Data["status"])
	}
}

func TestUpdatePairNamesMissingDocument(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "bookings", "b1", map[string]any{"status": "pending"})

	err := UpdatePair(ctx, s,
		DocRef{"bookings", "b1"}, map[string]any{"status": "confirmed"},
		DocRef{"drivers", "ghost"}, map[string]any{"status": "unavailable"},
		nil)
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}
	if want := "drivers/ghost not found"; err.Error() != want {
		t.Errorf("error message: got %q, want %q", err.Error(), want)
	}

	// The present side must be untouched.
	b, _ := s.Get(ctx, "bookings", "b1")
	if b.Data["status"] != "pending" {
		t.Errorf("booking mutated despite missing driver: %v", b.Data["status"])
	}
}

func TestUpdatePairCheckCanVeto(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewMemStore()
	s.Set(ctx, "bookings", "b1", map[string]any{"status": "pending"})
	s.Set(ctx, "drivers", "d1", map[string]any{"status": "unavailable"})

	err := UpdatePair(ctx, s,
		DocRef{"bookings", "b1"}, map[string]any{"status": "confirmed"},
		DocRef{"drivers", "d1"}, map[string]any{"status": "unavailable"},
		func(_, d Document) error {
			if d.Data["status"] != "available" {
				return errs.E(errs.InvalidState, "driver is no longer available")
			}
			return nil
		})
	if !errs.Is(err, errs.InvalidState) {
		t.Fatalf("got %v, want InvalidState", err)
	}
	b, _ := s.Get(ctx, "bookings", "b1")
	if b.Data["status"] != "pending" {
		t.Errorf("vetoed pair update leaked a write: %v", b.Data["status"])
	}
}

func TestDocumentDecodeAndFields(t *testing.T) {
	t.Parallel()
	type point struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	fields, err := Fields(point{Lat: 1.5, Lng: -2.5})
	if err != nil {
		t.Fatal(err)
	}
	var back point
	if err := (Document{ID: "x", Data: fields}).Decode(&back); err != nil {
		t.Fatal(err)
	}
	if back.Lat != 1.5 || back.Lng != -2.5 {
		t.Errorf("round trip: got %+v", back)
	}
}

func recvEvent(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatal("events channel closed")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
