package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/duoplan/duoplan/internal/plan"
	"github.com/duoplan/duoplan/internal/reducer"
	"github.com/duoplan/duoplan/internal/remote"
	"github.com/duoplan/duoplan/internal/schema"
)

// DefaultDebounce is the quiet period after the last local mutation before
// a write is issued. Every new mutation restarts it; only the most recent
// pending state is ever flushed.
const DefaultDebounce = 250 * time.Millisecond

// Cache is the optional local fallback blob: the full document serialized
// under the pairing key, written on every local change and read only for
// offline bootstrap. It is a cache, never the source of truth once a
// pairing exists.
type Cache interface {
	Load(pairingID string) (*plan.Document, error)
	Save(pairingID string, doc plan.Document) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock injects a timer source. Tests use a manual clock to drive the
// debounce window deterministically.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.debounce = d }
}

// WithValidator enables shape validation of incoming snapshots.
func WithValidator(v *schema.Validator) Option {
	return func(e *Engine) { e.validator = v }
}

// WithCache enables the local fallback blob.
func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// OnError registers the synchronous error callback. All asynchronous
// failures (debounced saves, push handling) surface here; nothing is thrown
// across the engine's goroutine boundaries.
func OnError(fn func(*SyncError)) Option {
	return func(e *Engine) { e.onError = fn }
}

// OnRemoteApply registers a callback invoked after a remote snapshot is
// adopted as local state. UI layers re-render from it.
func OnRemoteApply(fn func(plan.Document)) Option {
	return func(e *Engine) { e.onApply = fn }
}

// Engine synchronizes one pairing's document with the remote store.
//
// All exported methods are safe for concurrent use. Mutations flow strictly
// in call order; cross-client ordering is last-write-wins at document
// granularity.
type Engine struct {
	store     remote.Store
	validator *schema.Validator
	cache     Cache
	clock     Clock
	debounce  time.Duration
	logger    *slog.Logger
	onError   func(*SyncError)
	onApply   func(plan.Document)

	mu             sync.Mutex
	ctx            context.Context
	pairingID      string
	state          State
	doc            plan.Document
	lastSyncedSig  string // fingerprint of the last snapshot known to be in the store
	inflightSig    string // fingerprint of a snapshot currently being upserted
	lastAppliedRev int64  // revision guard: pushes at or below this are stale
	applyingRemote bool   // set while committing a remote-origin snapshot
	writesDisabled bool   // set on authorization failure, cleared by hydration
	pending        Timer
	unsub          remote.Unsubscribe
}

// New creates an engine bound to a store. Call Start to activate a pairing.
func New(store remote.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		clock:    NewClock(),
		debounce: DefaultDebounce,
		logger:   slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start activates a pairing: tears down any previous pairing's timer and
// subscription, fetches the current remote document (seeding one from seed
// if none exists), records its fingerprint and revision, and subscribes to
// pushes. On success the engine is Synced.
//
// When the fetch fails transiently the engine falls back to the local cache
// (or the seed), surfaces the error, and is left Disconnected but usable;
// Reconnect retries hydration.
func (e *Engine) Start(ctx context.Context, pairingID string, seed plan.Document) error {
	e.mu.Lock()
	e.teardownLocked()
	e.ctx = ctx
	e.pairingID = pairingID
	e.state = StateHydrating
	e.writesDisabled = false
	e.mu.Unlock()

	return e.hydrate(ctx, seed)
}

// Reconnect re-runs hydration for the active pairing: re-fetches the latest
// snapshot to reconcile pushes missed while disconnected, and replaces the
// push subscription. Push delivery is not durable across disconnection
// windows, so this is the only correct recovery.
func (e *Engine) Reconnect(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateUninitialized {
		e.mu.Unlock()
		return &SyncError{Code: ErrCodeNotReady, Op: "reconnect", PairingID: ""}
	}
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.ctx = ctx
	e.state = StateHydrating
	e.writesDisabled = false
	seed := e.doc.Clone()
	e.mu.Unlock()

	return e.hydrate(ctx, seed)
}

// Close cancels any pending debounce timer and closes the push subscription
// before transitioning back to Uninitialized. A write already started is
// not aborted, but no new writes are issued after Close returns.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardownLocked()
	e.state = StateUninitialized
	e.pairingID = ""
}

// Dispatch applies one local action. The in-memory document updates
// immediately; persistence happens asynchronously through the debounce
// cycle. An action whose resulting fingerprint equals the last synchronized
// one schedules nothing (replaying identical state is not a change).
func (e *Engine) Dispatch(action reducer.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateUninitialized || e.state == StateHydrating {
		return &SyncError{Code: ErrCodeNotReady, Op: "dispatch", PairingID: e.pairingID}
	}

	next, _ := reducer.Apply(e.doc, action)
	e.commitLocked(next)
	return nil
}

// Document returns a deep copy of the current in-memory document.
func (e *Engine) Document() plan.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Rev returns the revision of the last applied remote snapshot.
func (e *Engine) Rev() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAppliedRev
}

// hydrate performs the Hydrating fetch-or-seed and (re)subscribes.
func (e *Engine) hydrate(ctx context.Context, seed plan.Document) error {
	e.mu.Lock()
	pairingID := e.pairingID
	e.mu.Unlock()

	env, err := e.store.Fetch(ctx, pairingID)
	if err != nil {
		return e.hydrateFailed("hydrate", pairingID, err, seed)
	}

	if env == nil {
		rev, err := e.store.Upsert(ctx, pairingID, seed)
		if err != nil {
			return e.hydrateFailed("hydrate", pairingID, err, seed)
		}
		env = &plan.Envelope{Doc: seed, Rev: rev}
	}

	if err := e.validateDoc(env.Doc); err != nil {
		se := &SyncError{Code: ErrCodeMalformedRemote, Op: "hydrate", PairingID: pairingID, Err: err}
		e.mu.Lock()
		e.state = StateDisconnected
		e.mu.Unlock()
		e.report(se)
		return se
	}

	sig, err := plan.Signature(env.Doc)
	if err != nil {
		se := &SyncError{Code: ErrCodeMalformedRemote, Op: "hydrate", PairingID: pairingID, Err: err}
		e.report(se)
		return se
	}

	unsub, err := e.store.Subscribe(pairingID, e.handlePush)
	if err != nil {
		return e.hydrateFailed("subscribe", pairingID, err, seed)
	}

	e.mu.Lock()
	if e.state == StateUninitialized {
		// Closed while hydrating; do not leak the new subscription.
		e.mu.Unlock()
		unsub()
		return nil
	}
	if e.unsub != nil {
		// A racing hydrate installed one first; keep exactly one.
		e.unsub()
	}
	e.unsub = unsub
	if env.Rev > e.lastAppliedRev {
		e.doc = env.Doc.Clone()
		e.lastAppliedRev = env.Rev
		e.lastSyncedSig = sig
	}
	e.state = StateSynced
	doc := e.doc.Clone()
	e.mu.Unlock()

	e.saveCache(pairingID, doc)
	e.logger.Info("hydrated", "pairing", pairingID, "rev", env.Rev)
	return nil
}

// hydrateFailed maps a hydration failure, falls back to the local cache for
// offline bootstrap when no document is loaded yet, and leaves the engine
// Disconnected.
func (e *Engine) hydrateFailed(op, pairingID string, err error, seed plan.Document) error {
	se := e.classify(op, pairingID, err)

	e.mu.Lock()
	if e.lastAppliedRev == 0 {
		// Nothing adopted yet: bootstrap from cache, else the seed, so the
		// caller has a usable offline document.
		if cached := e.loadCache(pairingID); cached != nil {
			e.doc = cached.Clone()
		} else {
			e.doc = seed.Clone()
		}
	}
	e.state = StateDisconnected
	e.mu.Unlock()

	e.report(se)
	return se
}

// handlePush is the push-channel callback. Runs on the store's delivery
// goroutine; must never block on the engine's own save path.
func (e *Engine) handlePush(env plan.Envelope) {
	e.mu.Lock()
	if e.state == StateUninitialized {
		e.mu.Unlock()
		return
	}
	if env.Rev <= e.lastAppliedRev {
		e.mu.Unlock()
		return
	}
	pairingID := e.pairingID
	e.mu.Unlock()

	// Validate and fingerprint outside the lock; both walk the whole
	// document.
	if err := e.validateDoc(env.Doc); err != nil {
		e.report(&SyncError{Code: ErrCodeMalformedRemote, Op: "push", PairingID: pairingID, Err: err})
		return
	}
	sig, err := plan.Signature(env.Doc)
	if err != nil {
		e.report(&SyncError{Code: ErrCodeMalformedRemote, Op: "push", PairingID: pairingID, Err: err})
		return
	}

	e.mu.Lock()
	if env.Rev <= e.lastAppliedRev {
		e.mu.Unlock()
		return
	}
	e.lastAppliedRev = env.Rev

	if sig == e.lastSyncedSig || sig == e.inflightSig {
		// Our own just-written state echoed back; only the revision moved.
		e.mu.Unlock()
		return
	}

	e.applyingRemote = true
	e.commitLocked(env.Doc.Clone())
	e.lastSyncedSig = sig
	e.applyingRemote = false

	cb := e.onApply
	doc := e.doc.Clone()
	e.mu.Unlock()

	e.logger.Debug("adopted remote snapshot", "pairing", pairingID, "rev", env.Rev)
	if cb != nil {
		cb(doc)
	}
}

// commitLocked installs a successor document and decides whether a save is
// warranted. Remote-origin commits never schedule a save: that data was
// never locally mutated, and re-saving it is exactly the feedback loop the
// engine exists to prevent.
func (e *Engine) commitLocked(next plan.Document) {
	sig, err := plan.Signature(next)
	if err != nil {
		// A document our own reducer produced that cannot be fingerprinted
		// is a programming error; keep the state but skip persistence.
		e.logger.Error("unfingerprintable document", "err", err)
		e.doc = next
		return
	}

	e.doc = next
	e.saveCache(e.pairingID, next)

	if e.applyingRemote {
		return
	}
	if sig == e.lastSyncedSig {
		return // redundant write guard
	}
	if e.writesDisabled {
		return
	}
	e.scheduleLocked()
}

// scheduleLocked starts or restarts the debounce timer.
func (e *Engine) scheduleLocked() {
	if e.pending != nil {
		e.pending.Stop()
	}
	e.pending = e.clock.AfterFunc(e.debounce, e.flush)
}

// flush runs when the debounce timer fires: one atomic upsert of the whole
// current document. No automatic retry on failure; the next mutation's
// debounce cycle (or Reconnect) determines the next attempt.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.state == StateUninitialized || e.writesDisabled {
		e.mu.Unlock()
		return
	}
	e.pending = nil
	snapshot := e.doc.Clone()
	sig, err := plan.Signature(snapshot)
	if err != nil {
		e.mu.Unlock()
		e.report(&SyncError{Code: ErrCodeTransient, Op: "save", PairingID: e.pairingID, Err: err})
		return
	}
	if sig == e.lastSyncedSig {
		// A remote adopt landed after this timer was armed and replaced
		// the local edit wholesale; the store already has this content.
		e.mu.Unlock()
		return
	}
	e.inflightSig = sig
	e.state = StateSaving
	pairingID := e.pairingID
	ctx := e.ctx
	e.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}
	rev, err := e.store.Upsert(ctx, pairingID, snapshot)

	e.mu.Lock()
	e.inflightSig = ""
	if err != nil {
		se := e.classify("save", pairingID, err)
		if se.Code == ErrCodeUnauthorized {
			e.writesDisabled = true
			if e.state == StateSaving {
				e.state = StateSynced
			}
		} else {
			e.state = StateDisconnected
		}
		e.mu.Unlock()
		e.report(se)
		return
	}

	e.lastSyncedSig = sig
	if rev > e.lastAppliedRev {
		e.lastAppliedRev = rev
	}
	if e.state == StateSaving {
		e.state = StateSynced
	}
	e.mu.Unlock()

	e.logger.Debug("saved", "pairing", pairingID, "rev", rev)
}

// teardownLocked cancels the pending timer and subscription.
func (e *Engine) teardownLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
}

func (e *Engine) classify(op, pairingID string, err error) *SyncError {
	code := ErrCodeTransient
	if errors.Is(err, remote.ErrUnauthorized) {
		code = ErrCodeUnauthorized
	}
	return &SyncError{Code: code, Op: op, PairingID: pairingID, Err: err}
}

func (e *Engine) report(se *SyncError) {
	e.logger.Warn("sync error", "code", se.Code, "op", se.Op, "err", se.Err)
	if e.onError != nil {
		e.onError(se)
	}
}

func (e *Engine) validateDoc(doc plan.Document) error {
	if e.validator == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return e.validator.ValidateJSON(raw)
}

func (e *Engine) saveCache(pairingID string, doc plan.Document) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Save(pairingID, doc); err != nil {
		e.logger.Warn("cache save failed", "pairing", pairingID, "err", err)
	}
}

func (e *Engine) loadCache(pairingID string) *plan.Document {
	if e.cache == nil {
		return nil
	}
	doc, err := e.cache.Load(pairingID)
	if err != nil {
		e.logger.Warn("cache load failed", "pairing", pairingID, "err", err)
		return nil
	}
	return doc
}
