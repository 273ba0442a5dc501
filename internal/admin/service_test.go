package admin

import (
	"context"
	"testing"

	"booking-service/pkg/docstore"
	"booking-service/pkg/errs"
)

func newTestService(t *testing.T) (*Service, *docstore.MemStore) {
	t.Helper()
	ctx := context.Background()
	store := docstore.NewMemStore()
	store.Set(ctx, docstore.Drivers, "d1", map[string]any{
		"name":                     "Nurlan",
		"driverVerificationStatus": "pending",
	})
	store.Set(ctx, docstore.DriverApps, "app1", map[string]any{
		"driverId":                 "d1",
		"driverVerificationStatus": "pending",
	})
	store.Set(ctx, docstore.ChildPickupApps, "cp1", map[string]any{
		"driverId":          "d1",
		"childPickUpStatus": "pending",
	})
	return NewService(store), store
}

func TestApproveDriverApplication(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	err := svc.ApproveDriverApplication(ctx, "app1", "d1", []string{"economy"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	app, _ := store.Get(ctx, docstore.DriverApps, "app1")
	if app.Data["driverVerificationStatus"] != StatusApproved {
		t.Errorf("application status: got %v, want approved", app.Data["driverVerificationStatus"])
	}

	d, _ := store.Get(ctx, docstore.Drivers, "d1")
	if d.Data["driverVerificationStatus"] != StatusApproved {
		t.Errorf("driver status: got %v, want approved", d.Data["driverVerificationStatus"])
	}
	classes, ok := d.Data["bookingClass"].([]string)
	if !ok || len(classes) != 1 || classes[0] != "economy" {
		t.Errorf("bookingClass: got %v", d.Data["bookingClass"])
	}
	// nil deliveryClass is stored as an empty list, not dropped.
	if _, ok := d.Data["deliveryClass"]; !ok {
		t.Error("deliveryClass missing from driver record")
	}
}

func TestDenyDriverApplication(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := svc.DenyDriverApplication(ctx, "app1", "d1", ""); !errs.Is(err, errs.Validation) {
		t.Errorf("empty reason: got %v, want Validation", err)
	}

	if err := svc.DenyDriverApplication(ctx, "app1", "d1", "documents expired"); err != nil {
		t.Fatal(err)
	}
	for _, ref := range []struct{ coll, id string }{
		{docstore.DriverApps, "app1"},
		{docstore.Drivers, "d1"},
	} {
		doc, _ := store.Get(ctx, ref.coll, ref.id)
		if doc.Data["driverVerificationStatus"] != StatusDenied {
			t.Errorf("%s/%s status: got %v, want denied", ref.coll, ref.id, doc.Data["driverVerificationStatus"])
		}
		if doc.Data["reason"] != "documents expired" {
			t.Errorf("%s/%s reason: got %v", ref.coll, ref.id, doc.Data["reason"])
		}
	}
}

func TestApproveDriverApplicationMissingDriver(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	err := svc.ApproveDriverApplication(ctx, "app1", "ghost", nil, nil)
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("got %v, want NotFound", err)
	}

	// Neither side may change when the pair update fails.
	app, _ := store.Get(ctx, docstore.DriverApps, "app1")
	if app.Data["driverVerificationStatus"] != "pending" {
		t.Errorf("application mutated despite failed approval: %v", app.Data["driverVerificationStatus"])
	}
}

func TestChildPickupDecisions(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()

	if err := svc.ApproveChildPickupApplication(ctx, "cp1", "d1"); err != nil {
		t.Fatal(err)
	}
	app, _ := store.Get(ctx, docstore.ChildPickupApps, "cp1")
	if app.Data["childPickUpStatus"] != StatusApproved {
		t.Errorf("application: got %v, want approved", app.Data["childPickUpStatus"])
	}
	if app.Data["updatedAt"] == nil {
		t.Error("approval did not stamp updatedAt")
	}
	d, _ := store.Get(ctx, docstore.Drivers, "d1")
	if d.Data["childPickUpStatus"] != StatusApproved {
		t.Errorf("driver: got %v, want approved", d.Data["childPickUpStatus"])
	}

	if err := svc.DenyChildPickupApplication(ctx, "cp1", "d1", "background check failed"); err != nil {
		t.Fatal(err)
	}
	d, _ = store.Get(ctx, docstore.Drivers, "d1")
	if d.Data["childPickUpStatus"] != StatusDenied || d.Data["childPickUpDenialReason"] != "background check failed" {
		t.Errorf("driver after denial: status=%v reason=%v",
			d.Data["childPickUpStatus"], d.Data["childPickUpDenialReason"])
	}
}

func TestListApplications(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)
	ctx := context.Background()
	store.Set(ctx, docstore.DriverApps, "app2", map[string]any{
		"driverId":                 "d2",
		"driverVerificationStatus": "pending",
	})

	apps, err := svc.ListDriverApplications(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(apps) != 2 {
		t.Fatalf("driver applications: got %d, want 2", len(apps))
	}
	if apps[0].ID != "app1" || apps[1].ID != "app2" {
		t.Errorf("order: got %q, %q", apps[0].ID, apps[1].ID)
	}

	cps, err := svc.ListChildPickupApplications(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cps) != 1 || cps[0].ID != "cp1" {
		t.Errorf("child-pickup applications: %+v", cps)
	}
}

func TestGetApplications(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	app, err := svc.GetDriverApplication(ctx, "app1")
	if err != nil {
		t.Fatal(err)
	}
	if app.ID != "app1" || app.DriverID != "d1" {
		t.Errorf("application: %+v", app)
	}

	if _, err := svc.GetDriverApplication(ctx, "ghost"); !errs.Is(err, errs.NotFound) {
		t.Errorf("missing application: got %v, want NotFound", err)
	}

	cp, err := svc.GetChildPickupApplication(ctx, "cp1")
	if err != nil {
		t.Fatal(err)
	}
	if cp.ID != "cp1" {
		t.Errorf("child-pickup application: %+v", cp)
	}
}
