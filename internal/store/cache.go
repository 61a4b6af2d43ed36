package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
)

// Save writes the local fallback snapshot for a pairing. Satisfies the sync
// engine's cache interface.
func (s *Store) Save(pairingID string, doc plan.Document) error {
	body, err := plan.CanonicalDocument(doc)
	if err != nil {
		return fmt.Errorf("save snapshot: encode body: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO snapshots (pairing_id, body, saved_at)
		VALUES (?, ?, ?)
		ON CONFLICT(pairing_id) DO UPDATE SET
			body = excluded.body,
			saved_at = excluded.saved_at
	`, pairingID, string(body), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load reads the local fallback snapshot for a pairing, or nil when none
// has been saved.
func (s *Store) Load(pairingID string) (*plan.Document, error) {
	var body string
	err := s.db.QueryRow(
		`SELECT body FROM snapshots WHERE pairing_id = ?`, pairingID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var doc plan.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("load snapshot: decode body: %w", err)
	}
	return &doc, nil
}
