// Package harness runs two sync-engine clients against one shared store for
// end-to-end scenario tests.
//
// Every interaction is synchronous and single-threaded (manual clocks, the
// in-memory store's synchronous fanout), so a scenario produces exactly one
// trace for a given sequence of steps. Traces are pinned with golden files.
package harness

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/engine"
	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
	"github.com/duoplan/duoplan/internal/remote"
	"github.com/duoplan/duoplan/internal/schema"
	"github.com/duoplan/duoplan/internal/testutil"
)

// PairingID is the fixed pairing used by all scenarios.
const PairingID = "pair-harness"

// FixedTime stamps every scenario action so traces stay byte-stable.
var FixedTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// TraceEvent is one observable step in a scenario execution.
type TraceEvent struct {
	Type   string `json:"type"`             // "dispatch" | "write" | "adopt" | "error"
	Client string `json:"client"`           // "A" | "B"
	Detail string `json:"detail,omitempty"` // action type or error code
	Rev    int64  `json:"rev,omitempty"`
}

// Client is one synchronized participant: an engine plus its manual clock.
type Client struct {
	Name   string
	Engine *engine.Engine
	Clock  *testutil.ManualClock
}

// Harness owns the shared store and both clients.
type Harness struct {
	Store *remote.MemoryStore
	A     *Client
	B     *Client

	mu    sync.Mutex
	trace []TraceEvent
}

// New builds a harness with both clients started against an empty store.
// Client A runs first and therefore seeds the document.
func New(t *testing.T) *Harness {
	t.Helper()

	h := &Harness{Store: remote.NewMemoryStore()}
	h.A = h.newClient(t, "A", plan.Slot1, "Ana", plan.Slot2, "Bruno")
	h.B = h.newClient(t, "B", plan.Slot2, "Bruno", plan.Slot1, "Ana")

	seed := reducer.NewDocument(
		plan.Member{Slot: plan.Slot1, Name: "Ana"},
		plan.Member{Slot: plan.Slot2, Name: "Bruno"},
	)
	require.NoError(t, h.A.Engine.Start(context.Background(), PairingID, seed))
	require.NoError(t, h.B.Engine.Start(context.Background(), PairingID, seed))
	return h
}

func (h *Harness) newClient(t *testing.T, name string, mySlot plan.Slot, myName string, otherSlot plan.Slot, otherName string) *Client {
	t.Helper()

	validator, err := schema.NewValidator()
	require.NoError(t, err)

	c := &Client{Name: name, Clock: testutil.NewManualClock()}
	c.Engine = engine.New(
		&recordingStore{inner: h.Store, harness: h, client: name},
		engine.WithClock(c.Clock),
		engine.WithValidator(validator),
		engine.OnRemoteApply(func(plan.Document) {
			h.record(TraceEvent{Type: "adopt", Client: name, Rev: c.Engine.Rev()})
		}),
		engine.OnError(func(se *engine.SyncError) {
			h.record(TraceEvent{Type: "error", Client: name, Detail: string(se.Code)})
		}),
	)
	t.Cleanup(c.Engine.Close)
	return c
}

// Dispatch applies an action on a client and records it.
func (h *Harness) Dispatch(t *testing.T, c *Client, action reducer.Action) {
	t.Helper()
	h.record(TraceEvent{Type: "dispatch", Client: c.Name, Detail: fmt.Sprintf("%T", action)})
	require.NoError(t, c.Engine.Dispatch(action))
}

// Flush advances a client's clock through a full debounce window.
func (h *Harness) Flush(c *Client) {
	c.Clock.Advance(engine.DefaultDebounce)
}

// Trace returns a copy of the recorded events.
func (h *Harness) Trace() []TraceEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]TraceEvent(nil), h.trace...)
}

func (h *Harness) record(ev TraceEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.trace = append(h.trace, ev)
}

// recordingStore attributes store writes to the client performing them.
type recordingStore struct {
	inner   *remote.MemoryStore
	harness *Harness
	client  string
}

func (r *recordingStore) Fetch(ctx context.Context, pairingID string) (*plan.Envelope, error) {
	return r.inner.Fetch(ctx, pairingID)
}

func (r *recordingStore) Upsert(ctx context.Context, pairingID string, doc plan.Document) (int64, error) {
	rev, err := r.inner.Upsert(ctx, pairingID, doc)
	if err == nil {
		r.harness.record(TraceEvent{Type: "write", Client: r.client, Rev: rev})
	}
	return rev, err
}

func (r *recordingStore) Subscribe(pairingID string, fn remote.OnChange) (remote.Unsubscribe, error) {
	return r.inner.Subscribe(pairingID, fn)
}
