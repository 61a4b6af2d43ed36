// Package pgstore provides a Postgres-backed remote store. Push delivery
// rides LISTEN/NOTIFY, so subscribers in any process sharing the database
// see upserts from every other process.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/remote"
)

// notifyChannel carries one notice per committed upsert. The payload names
// pairing and revision only; listeners fetch the body themselves because
// NOTIFY payloads are capped at 8000 bytes.
const notifyChannel = "duoplan_documents"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    pairing_id TEXT PRIMARY KEY,
    body       JSONB NOT NULL,
    rev        BIGINT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`

// notice is the NOTIFY payload.
type notice struct {
	PairingID string `json:"pairing_id"`
	Rev       int64  `json:"rev"`
}

// Store implements remote.Store on Postgres.
type Store struct {
	db       *sql.DB
	listener *pq.Listener
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[string]map[int]remote.OnChange
	nextID int
	closed chan struct{}
}

// Open connects to Postgres, ensures the schema, and starts the
// notification dispatcher.
func Open(dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, func(_ pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("listener event", "err", err)
		}
	})
	if err := listener.Listen(notifyChannel); err != nil {
		listener.Close()
		db.Close()
		return nil, fmt.Errorf("listen %s: %w", notifyChannel, err)
	}

	s := &Store{
		db:       db,
		listener: listener,
		logger:   logger,
		subs:     make(map[string]map[int]remote.OnChange),
		closed:   make(chan struct{}),
	}
	go s.dispatch()
	return s, nil
}

// Close stops the dispatcher and closes the connection pool.
func (s *Store) Close() error {
	close(s.closed)
	err := s.listener.Close()
	if cerr := s.db.Close(); err == nil {
		err = cerr
	}
	return err
}

// Fetch implements remote.Store.
func (s *Store) Fetch(ctx context.Context, pairingID string) (*plan.Envelope, error) {
	var body []byte
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT body, rev FROM documents WHERE pairing_id = $1`, pairingID,
	).Scan(&body, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapErr(fmt.Errorf("fetch document: %w", err))
	}

	var doc plan.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("fetch document: decode body: %w", err)
	}
	return &plan.Envelope{Doc: doc, Rev: rev}, nil
}

// Upsert implements remote.Store. The revision bump and the NOTIFY happen
// in the same transaction, so a notice is only ever sent for a committed
// row.
func (s *Store) Upsert(ctx context.Context, pairingID string, doc plan.Document) (int64, error) {
	body, err := plan.CanonicalDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("upsert document: encode body: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapErr(fmt.Errorf("upsert document: %w", err))
	}
	defer tx.Rollback()

	var rev int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (pairing_id, body, rev, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (pairing_id) DO UPDATE SET
			body = EXCLUDED.body,
			rev = documents.rev + 1,
			updated_at = EXCLUDED.updated_at
		RETURNING rev
	`, pairingID, string(body)).Scan(&rev)
	if err != nil {
		return 0, mapErr(fmt.Errorf("upsert document: %w", err))
	}

	payload, err := json.Marshal(notice{PairingID: pairingID, Rev: rev})
	if err != nil {
		return 0, fmt.Errorf("upsert document: encode notice: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, notifyChannel, string(payload)); err != nil {
		return 0, mapErr(fmt.Errorf("upsert document: notify: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, mapErr(fmt.Errorf("upsert document: %w", err))
	}
	return rev, nil
}

// Subscribe implements remote.Store.
func (s *Store) Subscribe(pairingID string, fn remote.OnChange) (remote.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[pairingID] == nil {
		s.subs[pairingID] = make(map[int]remote.OnChange)
	}
	id := s.nextID
	s.nextID++
	s.subs[pairingID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[pairingID], id)
	}, nil
}

// dispatch fans notifications out to subscribers. The notice carries only
// pairing and revision; the body is fetched fresh, so a burst of notices
// may deliver the newest snapshot more than once. The engine's revision
// guard makes redundant delivery harmless.
func (s *Store) dispatch() {
	for {
		select {
		case <-s.closed:
			return
		case n := <-s.listener.Notify:
			if n == nil {
				// Connection re-established; pq delivers nil after a gap.
				// Subscribers may have missed notices, so nothing to do
				// here; the engine reconciles on its next write or on
				// Reconnect.
				continue
			}
			s.deliver(n.Extra)
		case <-time.After(90 * time.Second):
			if err := s.listener.Ping(); err != nil {
				s.logger.Warn("listener ping", "err", err)
			}
		}
	}
}

func (s *Store) deliver(payload string) {
	nt, err := decodeNotice(payload)
	if err != nil {
		s.logger.Warn("drop malformed notice", "err", err)
		return
	}

	fns := s.snapshotSubscribers(nt.PairingID)
	if len(fns) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	env, err := s.Fetch(ctx, nt.PairingID)
	if err != nil || env == nil {
		s.logger.Warn("fetch after notice", "pairing", nt.PairingID, "err", err)
		return
	}

	for _, fn := range fns {
		copied := *env
		copied.Doc = env.Doc.Clone()
		fn(copied)
	}
}

func (s *Store) snapshotSubscribers(pairingID string) []remote.OnChange {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.subs[pairingID]))
	for id := range s.subs[pairingID] {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]remote.OnChange, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[pairingID][id])
	}
	return fns
}

func decodeNotice(payload string) (notice, error) {
	var nt notice
	if err := json.Unmarshal([]byte(payload), &nt); err != nil {
		return notice{}, fmt.Errorf("decode notice: %w", err)
	}
	if nt.PairingID == "" {
		return notice{}, errors.New("decode notice: missing pairing_id")
	}
	return nt, nil
}

// mapErr translates driver errors into the engine's taxonomy. Postgres
// class 28 is invalid authorization and 42501 is insufficient privilege;
// everything else from the driver is treated as transient.
func mapErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "28" || pqErr.Code == "42501" {
			return fmt.Errorf("%w: %s", remote.ErrUnauthorized, pqErr.Message)
		}
	}
	return remote.Transient("postgres", err)
}
