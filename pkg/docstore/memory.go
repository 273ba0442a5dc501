package docstore

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory Store with the same semantics as the Postgres
// implementation. It backs tests and local runs without a database.
type MemStore struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]any // collection -> id -> fields
	subs map[*memSub]struct{}
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		data: make(map[string]map[string]map[string]any),
		subs: make(map[*memSub]struct{}),
	}
}

func (m *MemStore) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fields, ok := m.data[collection][id]
	if !ok {
		return Document{}, notFound(collection, id)
	}
	return Document{ID: id, Data: cloneFields(fields)}, nil
}

func (m *MemStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(collection, id, cloneFields(fields))
	return nil
}

func (m *MemStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.data[collection][id]
	if !ok {
		return notFound(collection, id)
	}
	merged := cloneFields(existing)
	for k, v := range fields {
		merged[k] = v
	}
	m.put(collection, id, merged)
	return nil
}

func (m *MemStore) Query(ctx context.Context, collection, field, value string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []Document
	for id, fields := range m.data[collection] {
		if fieldEquals(fields, field, value) {
			docs = append(docs, Document{ID: id, Data: cloneFields(fields)})
		}
	}
	return docs, nil
}

func (m *MemStore) List(ctx context.Context, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var docs []Document
	for id, fields := range m.data[collection] {
		docs = append(docs, Document{ID: id, Data: cloneFields(fields)})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MemStore) Subscribe(ctx context.Context, collection, field, value string) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &memSub{
		store:      m,
		collection: collection,
		field:      field,
		value:      value,
		ch:         make(chan Event, 256),
		known:      make(map[string]bool),
	}

	// Current matches are delivered first, as Added events.
	for id, fields := range m.data[collection] {
		if fieldEquals(fields, field, value) {
			sub.known[id] = true
			sub.send(Event{Type: Added, Doc: Document{ID: id, Data: cloneFields(fields)}})
		}
	}

	m.subs[sub] = struct{}{}
	return sub, nil
}

func (m *MemStore) RunTransaction(ctx context.Context, fn func(tx Txn) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTxn{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	for _, w := range tx.writes {
		m.put(w.collection, w.id, w.fields)
	}
	return nil
}

// ActiveSubscriptions reports how many live queries are currently open.
func (m *MemStore) ActiveSubscriptions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// put stores the fields and fans matching changes out to subscribers.
// Caller holds the store mutex.
func (m *MemStore) put(collection, id string, fields map[string]any) {
	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = fields

	for sub := range m.subs {
		if sub.collection != collection {
			continue
		}
		matches := fieldEquals(fields, sub.field, sub.value)
		switch {
		case matches && !sub.known[id]:
			sub.known[id] = true
			sub.send(Event{Type: Added, Doc: Document{ID: id, Data: cloneFields(fields)}})
		case matches:
			sub.send(Event{Type: Modified, Doc: Document{ID: id, Data: cloneFields(fields)}})
		case sub.known[id]:
			delete(sub.known, id)
			sub.send(Event{Type: Removed, Doc: Document{ID: id}})
		}
	}
}

type memSub struct {
	store      *MemStore
	collection string
	field      string
	value      string
	ch         chan Event
	known      map[string]bool

	closeOnce sync.Once
	closed    bool
}

func (s *memSub) Events() <-chan Event { return s.ch }

func (s *memSub) Close() {
	s.closeOnce.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s)
		s.closed = true
		s.store.mu.Unlock()
		close(s.ch)
	})
}

// send delivers without blocking; a consumer that has fallen 256 events
// behind loses the oldest-pending guarantee rather than wedging writers.
func (s *memSub) send(ev Event) {
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
	default:
	}
}

type memTxn struct {
	store  *MemStore
	writes []memWrite
}

type memWrite struct {
	collection string
	id         string
	fields     map[string]any
}

func (t *memTxn) Get(collection, id string) (Document, error) {
	fields, ok := t.store.data[collection][id]
	if !ok {
		return Document{}, notFound(collection, id)
	}
	return Document{ID: id, Data: cloneFields(fields)}, nil
}

func (t *memTxn) Set(collection, id string, fields map[string]any) {
	t.writes = append(t.writes, memWrite{collection, id, cloneFields(fields)})
}

func (t *memTxn) Update(collection, id string, fields map[string]any) {
	merged := make(map[string]any)
	if existing, ok := t.store.data[collection][id]; ok {
		merged = cloneFields(existing)
	}
	// Re-apply earlier buffered writes to the same document.
	for _, w := range t.writes {
		if w.collection == collection && w.id == id {
			for k, v := range w.fields {
				merged[k] = v
			}
		}
	}
	for k, v := range fields {
		merged[k] = v
	}
	t.writes = append(t.writes, memWrite{collection, id, merged})
}

func fieldEquals(fields map[string]any, field, value string) bool {
	v, ok := fields[field].(string)
	return ok && v == value
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if nested, ok := v.(map[string]any); ok {
			out[k] = cloneFields(nested)
			continue
		}
		out[k] = v
	}
	return out
}
