// Package pgstore implements the document store on PostgreSQL: one
// documents table with JSONB payloads, change push via LISTEN/NOTIFY.
package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/brasaviva/api/internal/store"
)

const notifyChannel = "document_changes"

// Store implements store.Store on a pgx connection pool. A dedicated
// listener connection fans NOTIFY payloads (collection names) out to
// registered watchers.
type Store struct {
	pool *pgxpool.Pool
	log  *logrus.Entry

	mu       sync.Mutex
	watchers map[string]map[int]chan struct{}
	nextID   int

	cancelListen context.CancelFunc
	listenDone   chan struct{}
}

// Open connects to the database, runs pending migrations and starts
// the notification listener.
func Open(ctx context.Context, databaseURL string, log *logrus.Logger) (*Store, error) {
	if err := Migrate(databaseURL); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping")
	}

	s := &Store{
		pool:       pool,
		log:        log.WithField("component", "pgstore"),
		watchers:   make(map[string]map[int]chan struct{}),
		listenDone: make(chan struct{}),
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	s.cancelListen = cancel
	go s.listen(listenCtx, databaseURL)

	return s, nil
}

// Close stops the listener and releases the pool.
func (s *Store) Close() {
	s.cancelListen()
	<-s.listenDone
	s.pool.Close()
}

func (s *Store) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var data json.RawMessage
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get document")
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data json.RawMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, payload)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		collection, id, data,
	)
	if err != nil {
		return errors.Wrap(err, "set document")
	}
	return s.publish(ctx, collection)
}

func (s *Store) Add(ctx context.Context, collection string, data json.RawMessage) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, payload) VALUES ($1, $2, $3)`,
		collection, id, data,
	)
	if err != nil {
		return "", errors.Wrap(err, "add document")
	}
	return id, s.publish(ctx, collection)
}

func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return errors.Wrap(err, "encode patch")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET payload = payload || $3::jsonb, updated_at = now()
		 WHERE collection = $1 AND id = $2`,
		collection, id, patch,
	)
	if err != nil {
		return errors.Wrap(err, "patch document")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return s.publish(ctx, collection)
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id,
	)
	if err != nil {
		return errors.Wrap(err, "delete document")
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return s.publish(ctx, collection)
}

func (s *Store) List(ctx context.Context, collection string, q store.Query) ([]store.Document, error) {
	sql := `SELECT id, payload FROM documents WHERE collection = $1 ORDER BY id`
	if q.OrderBy != "" {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		// OrderBy is always a compile-time constant field name, never
		// caller input, so string assembly is safe here.
		sql = fmt.Sprintf(
			`SELECT id, payload FROM documents WHERE collection = $1
			 ORDER BY payload->>'%s' %s, id ASC`, q.OrderBy, dir)
	}

	rows, err := s.pool.Query(ctx, sql, collection)
	if err != nil {
		return nil, errors.Wrap(err, "list documents")
	}
	defer rows.Close()

	var result []store.Document
	for rows.Next() {
		var d store.Document
		if err := rows.Scan(&d.ID, &d.Data); err != nil {
			return nil, errors.Wrap(err, "scan document")
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (s *Store) Watch(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]chan struct{})
	}
	id := s.nextID
	s.nextID++

	ch := make(chan struct{}, 1)
	s.watchers[collection][id] = ch

	release := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.watchers[collection][id]; ok {
			delete(s.watchers[collection], id)
			close(ch)
		}
	}
	return ch, release, nil
}

func (s *Store) publish(ctx context.Context, collection string) error {
	_, err := s.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, collection)
	return errors.Wrap(err, "notify")
}

func (s *Store) fanOut(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// listen holds a dedicated connection in LISTEN mode and dispatches
// notifications to watchers. Reconnects on connection loss.
func (s *Store) listen(ctx context.Context, databaseURL string) {
	defer close(s.listenDone)

	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.listenOnce(ctx, databaseURL); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("listener disconnected, retrying")
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Store) listenOnce(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return err
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		s.fanOut(n.Payload)
	}
}
