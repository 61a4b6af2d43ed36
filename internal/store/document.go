package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
)

// Fetch implements remote.Store. Returns nil when no document exists for
// the pairing.
func (s *Store) Fetch(ctx context.Context, pairingID string) (*plan.Envelope, error) {
	var body string
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT body, rev FROM documents WHERE pairing_id = ?`, pairingID,
	).Scan(&body, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch document: %w", err)
	}

	var doc plan.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("fetch document: decode body: %w", err)
	}
	return &plan.Envelope{Doc: doc, Rev: rev}, nil
}

// Upsert implements remote.Store. The document replaces the stored row
// atomically; the revision bump and body write happen in one statement so
// concurrent upserts can never observe a torn row. Subscribers are notified
// after the transaction commits.
func (s *Store) Upsert(ctx context.Context, pairingID string, doc plan.Document) (int64, error) {
	body, err := plan.CanonicalDocument(doc)
	if err != nil {
		return 0, fmt.Errorf("upsert document: encode body: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}
	defer tx.Rollback()

	var rev int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO documents (pairing_id, body, rev, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(pairing_id) DO UPDATE SET
			body = excluded.body,
			rev = documents.rev + 1,
			updated_at = excluded.updated_at
		RETURNING rev
	`, pairingID, string(body), time.Now().UTC().Format(time.RFC3339)).Scan(&rev)
	if err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert document: %w", err)
	}

	env := plan.Envelope{Doc: doc.Clone(), Rev: rev}
	for _, fn := range s.snapshotSubscribers(pairingID) {
		copied := env
		copied.Doc = env.Doc.Clone()
		fn(copied)
	}
	return rev, nil
}

// Rev returns the current revision for a pairing, or 0 when no document
// exists. Test and CLI hook.
func (s *Store) Rev(ctx context.Context, pairingID string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx,
		`SELECT rev FROM documents WHERE pairing_id = ?`, pairingID,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read rev: %w", err)
	}
	return rev, nil
}
