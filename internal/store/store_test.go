package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
	"github.com/duoplan/duoplan/internal/remote"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "duoplan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDoc() plan.Document {
	return reducer.NewDocument(
		plan.Member{Slot: plan.Slot1, Name: "Ana"},
		plan.Member{Slot: plan.Slot2, Name: "Bruno"},
	)
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "duoplan.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Upsert(context.Background(), "pair-1", testDoc())
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	// Reopening preserves the data and reapplies schema without error.
	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	env, err := s2.Fetch(context.Background(), "pair-1")
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, int64(1), env.Rev)
}

func TestFetch_MissingPairingReturnsNil(t *testing.T) {
	s := openTestStore(t)

	env, err := s.Fetch(context.Background(), "pair-absent")
	require.NoError(t, err)
	assert.Nil(t, env)
}

func TestUpsert_RevisionIsMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc := testDoc()

	for want := int64(1); want <= 3; want++ {
		rev, err := s.Upsert(ctx, "pair-1", doc)
		require.NoError(t, err)
		assert.Equal(t, want, rev)
	}

	// Revisions are per pairing, never global.
	rev, err := s.Upsert(ctx, "pair-2", doc)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}

func TestUpsert_RoundTripsDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := testDoc()
	doc.Events = append(doc.Events, plan.CalendarEvent{
		ID: "ev-1", Title: "Dinner", Date: "2025-03-14",
		EstimatedCost: 40, Scope: plan.ScopeShared, Recurrence: plan.RecurNone,
	})

	_, err := s.Upsert(ctx, "pair-1", doc)
	require.NoError(t, err)

	env, err := s.Fetch(ctx, "pair-1")
	require.NoError(t, err)
	require.NotNil(t, env)

	wantSig, err := plan.Signature(doc)
	require.NoError(t, err)
	gotSig, err := plan.Signature(env.Doc)
	require.NoError(t, err)
	assert.Equal(t, wantSig, gotSig, "stored body must decode to an identical document")
}

func TestUpsert_StoresCanonicalBody(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := testDoc()
	doc.Activities = append(doc.Activities, plan.Activity{
		ID: "act-1", Name: "Cinema", CostCategory: "Leisure",
		EstimatedCost: 30, Scope: plan.ScopeShared,
	})

	_, err := s.Upsert(ctx, "pair-1", doc)
	require.NoError(t, err)

	want, err := plan.CanonicalDocument(doc)
	require.NoError(t, err)

	var body []byte
	err = s.DB().QueryRowContext(ctx,
		`SELECT body FROM documents WHERE pairing_id = ?`, "pair-1").Scan(&body)
	require.NoError(t, err)
	assert.Equal(t, string(want), string(body), "persisted body must be the canonical encoding")
}

func TestUpsert_NotifiesSubscribers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var got []plan.Envelope
	unsub, err := s.Subscribe("pair-1", func(env plan.Envelope) {
		got = append(got, env)
	})
	require.NoError(t, err)

	_, err = s.Upsert(ctx, "pair-1", testDoc())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].Rev)

	// Other pairings do not leak into this subscription.
	_, err = s.Upsert(ctx, "pair-2", testDoc())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	unsub()
	_, err = s.Upsert(ctx, "pair-1", testDoc())
	require.NoError(t, err)
	assert.Len(t, got, 1, "no delivery after unsubscribe")
}

func TestStore_ImplementsRemoteStore(t *testing.T) {
	var _ remote.Store = (*Store)(nil)
}

func TestCache_RoundTrip(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.Load("pair-1")
	require.NoError(t, err)
	assert.Nil(t, loaded, "no snapshot saved yet")

	doc := testDoc()
	doc.Budget.MonthlyLimit = 800
	require.NoError(t, s.Save("pair-1", doc))

	loaded, err = s.Load("pair-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 800.0, loaded.Budget.MonthlyLimit)

	// Save overwrites in place.
	doc.Budget.MonthlyLimit = 900
	require.NoError(t, s.Save("pair-1", doc))
	loaded, err = s.Load("pair-1")
	require.NoError(t, err)
	assert.Equal(t, 900.0, loaded.Budget.MonthlyLimit)
}

func TestRev_ZeroWhenMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rev, err := s.Rev(ctx, "pair-1")
	require.NoError(t, err)
	assert.Zero(t, rev)

	_, err = s.Upsert(ctx, "pair-1", testDoc())
	require.NoError(t, err)
	rev, err = s.Rev(ctx, "pair-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)
}
