// Package docstore is the persistence collaborator for the booking system:
// a transactional key-document store with equality queries and live
// change subscriptions. Bookings, drivers, passengers, payments and
// applications are all documents in named collections.
package docstore

import (
	"context"
	"encoding/json"

	"booking-service/pkg/errs"
)

// Collection names used across the service.
const (
	Bookings        = "bookings"
	Drivers         = "drivers"
	Passengers      = "passengers"
	Payments        = "payments"
	DriverApps      = "driver-applications"
	ChildPickupApps = "child-pickup-applications"
)

// Document is one stored record. Data holds the JSON-compatible field set;
// numbers come back as float64.
type Document struct {
	ID   string
	Data map[string]any
}

// Decode unmarshals the document's fields into a typed struct.
func (d Document) Decode(v any) error {
	raw, err := json.Marshal(d.Data)
	if err != nil {
		return errs.Wrap(errs.Store, "encode document", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.Wrap(errs.Store, "decode document", err)
	}
	return nil
}

// Fields converts a typed struct into the field map a document stores.
func Fields(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errs.Wrap(errs.Store, "encode fields", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errs.Wrap(errs.Store, "encode fields", err)
	}
	return m, nil
}

// EventType classifies a change delivered by a live subscription.
type EventType string

const (
	Added    EventType = "added"
	Modified EventType = "modified"
	Removed  EventType = "removed"
)

// Event is one incremental change to the result set of a live query.
type Event struct {
	Type EventType
	Doc  Document
}

// Subscription is a standing query. Events delivers incremental changes
// until Close is called; Close is idempotent and must be called on every
// exit path or the live query keeps consuming changes indefinitely.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Txn is the handle passed to a RunTransaction callback. Reads go through
// the transaction; writes are buffered and applied atomically at commit.
type Txn interface {
	Get(collection, id string) (Document, error)
	Set(collection, id string, fields map[string]any)
	Update(collection, id string, fields map[string]any)
}

// Store is the document-store contract the rest of the service depends on.
type Store interface {
	// Get returns a document, or a NotFound error naming collection/id.
	Get(ctx context.Context, collection, id string) (Document, error)
	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	// Update merges the given fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Query returns all documents whose field equals value.
	Query(ctx context.Context, collection, field, value string) ([]Document, error)
	// List returns every document in a collection, ordered by id.
	List(ctx context.Context, collection string) ([]Document, error)
	// Subscribe opens a live query over field == value. The current matches
	// are delivered first as Added events, then incremental changes follow.
	Subscribe(ctx context.Context, collection, field, value string) (Subscription, error)
	// RunTransaction executes fn atomically: either every buffered write
	// commits or none do. fn returning an error aborts the transaction.
	RunTransaction(ctx context.Context, fn func(tx Txn) error) error
}

func notFound(collection, id string) error {
	return errs.Errorf(errs.NotFound, "%s/%s not found", collection, id)
}
