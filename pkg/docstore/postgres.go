package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"booking-service/pkg/errs"
)

// changeChannel is the LISTEN/NOTIFY channel the documents trigger fires on.
const changeChannel = "document_changes"

// PGStore implements Store on PostgreSQL: one documents table with JSONB
// field sets, serializable transactions, and a trigger feeding pg_notify
// for live subscriptions.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore wraps an existing connection pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2`,
		collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, notFound(collection, id)
	}
	if err != nil {
		return Document{}, storeErr("get document", err)
	}
	return decodeDoc(id, raw)
}

func (s *PGStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return storeErr("encode document", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1,$2,$3)
		 ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`,
		collection, id, raw)
	if err != nil {
		return storeErr("set document", err)
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return storeErr("encode document", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET data = data || $3::jsonb, updated_at=NOW()
		 WHERE collection=$1 AND id=$2`,
		collection, id, raw)
	if err != nil {
		return storeErr("update document", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(collection, id)
	}
	return nil
}

func (s *PGStore) Query(ctx context.Context, collection, field, value string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 AND data->>$2 = $3`,
		collection, field, value)
	if err != nil {
		return nil, storeErr("query documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, storeErr("scan document", err)
		}
		doc, err := decodeDoc(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("query documents", err)
	}
	return docs, nil
}

func (s *PGStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, data FROM documents WHERE collection=$1 ORDER BY id`,
		collection)
	if err != nil {
		return nil, storeErr("list documents", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, storeErr("scan document", err)
		}
		doc, err := decodeDoc(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list documents", err)
	}
	return docs, nil
}

func (s *PGStore) RunTransaction(ctx context.Context, fn func(tx Txn) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return storeErr("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	pt := &pgTxn{ctx: ctx, tx: tx}
	if err := fn(pt); err != nil {
		return err
	}
	if err := pt.flush(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit transaction", err)
	}
	return nil
}

type pgTxn struct {
	ctx    context.Context
	tx     pgx.Tx
	writes []pgWrite
}

type pgWrite struct {
	collection string
	id         string
	fields     map[string]any
	replace    bool
}

// Get reads within the transaction and locks the row, so concurrent
// transactions touching the same document serialize instead of both
// committing against the version they read.
func (t *pgTxn) Get(collection, id string) (Document, error) {
	var raw []byte
	err := t.tx.QueryRow(t.ctx,
		`SELECT data FROM documents WHERE collection=$1 AND id=$2 FOR UPDATE`,
		collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, notFound(collection, id)
	}
	if err != nil {
		return Document{}, storeErr("get document", err)
	}
	return decodeDoc(id, raw)
}

func (t *pgTxn) Set(collection, id string, fields map[string]any) {
	t.writes = append(t.writes, pgWrite{collection, id, fields, true})
}

func (t *pgTxn) Update(collection, id string, fields map[string]any) {
	t.writes = append(t.writes, pgWrite{collection, id, fields, false})
}

func (t *pgTxn) flush() error {
	for _, w := range t.writes {
		raw, err := json.Marshal(w.fields)
		if err != nil {
			return storeErr("encode document", err)
		}
		if w.replace {
			_, err = t.tx.Exec(t.ctx,
				`INSERT INTO documents (collection, id, data) VALUES ($1,$2,$3)
				 ON CONFLICT (collection, id) DO UPDATE SET data=EXCLUDED.data, updated_at=NOW()`,
				w.collection, w.id, raw)
		} else {
			_, err = t.tx.Exec(t.ctx,
				`UPDATE documents SET data = data || $3::jsonb, updated_at=NOW()
				 WHERE collection=$1 AND id=$2`,
				w.collection, w.id, raw)
		}
		if err != nil {
			return storeErr("write document", err)
		}
	}
	return nil
}

// changePayload is what the documents trigger sends through pg_notify.
type changePayload struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         string `json:"op"`
}

func (s *PGStore) Subscribe(ctx context.Context, collection, field, value string) (Subscription, error) {
	poolConn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, storeErr("acquire listen connection", err)
	}
	// The connection leaves the pool for the subscription's lifetime;
	// LISTEN state must not leak back into pooled connections.
	conn := poolConn.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		conn.Close(context.Background())
		return nil, storeErr("listen", err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &pgSub{
		store:      s,
		conn:       conn,
		collection: collection,
		field:      field,
		value:      value,
		ch:         make(chan Event, 64),
		known:      make(map[string]bool),
		ctx:        subCtx,
		cancel:     cancel,
	}
	go sub.run()
	return sub, nil
}

type pgSub struct {
	store      *PGStore
	conn       *pgx.Conn
	collection string
	field      string
	value      string
	ch         chan Event
	known      map[string]bool
	ctx        context.Context
	cancel     context.CancelFunc
}

func (s *pgSub) Events() <-chan Event { return s.ch }

// Close tears the live query down. Idempotent; the event channel closes
// once the listen loop has exited.
func (s *pgSub) Close() { s.cancel() }

func (s *pgSub) run() {
	defer close(s.ch)
	defer s.conn.Close(context.Background())

	// Current matches first, as Added events.
	docs, err := s.store.Query(s.ctx, s.collection, s.field, s.value)
	if err != nil {
		log.Printf("[docstore] subscription snapshot failed: %v", err)
		return
	}
	for _, doc := range docs {
		s.known[doc.ID] = true
		if !s.emit(Event{Type: Added, Doc: doc}) {
			return
		}
	}

	for {
		n, err := s.conn.WaitForNotification(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil {
				log.Printf("[docstore] listen loop ended: %v", err)
			}
			return
		}
		var change changePayload
		if err := json.Unmarshal([]byte(n.Payload), &change); err != nil {
			log.Printf("[docstore] bad change payload %q: %v", n.Payload, err)
			continue
		}
		if change.Collection != s.collection {
			continue
		}
		if !s.handleChange(change.ID) {
			return
		}
	}
}

// handleChange re-reads the changed document and reconciles it against the
// subscription's known result set. Returns false once the subscription is done.
func (s *pgSub) handleChange(id string) bool {
	doc, err := s.store.Get(s.ctx, s.collection, id)
	if err != nil {
		if s.known[id] {
			delete(s.known, id)
			return s.emit(Event{Type: Removed, Doc: Document{ID: id}})
		}
		return s.ctx.Err() == nil
	}

	matches := fieldEquals(doc.Data, s.field, s.value)
	switch {
	case matches && !s.known[id]:
		s.known[id] = true
		return s.emit(Event{Type: Added, Doc: doc})
	case matches:
		return s.emit(Event{Type: Modified, Doc: doc})
	case s.known[id]:
		delete(s.known, id)
		return s.emit(Event{Type: Removed, Doc: Document{ID: id}})
	}
	return true
}

func (s *pgSub) emit(ev Event) bool {
	select {
	case s.ch <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func storeErr(msg string, err error) error {
	return errs.Wrap(errs.Store, msg, err)
}

func decodeDoc(id string, raw []byte) (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return Document{}, storeErr("decode document", err)
	}
	return Document{ID: id, Data: data}, nil
}
