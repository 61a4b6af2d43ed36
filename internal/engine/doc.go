// Package engine keeps one planner document synchronized between two
// clients and an authoritative remote store.
//
// Each Engine instance owns the full synchronization state for one active
// pairing: the current document, the fingerprint of the last synchronized
// snapshot, the revision of the last applied push, the pending debounce
// timer, and the single push subscription. Nothing is ambient or global;
// tearing an engine down (Close) leaves no timers or subscriptions behind.
//
// The write path is deliberately simple: local mutations update the
// in-memory document immediately and start (or restart) a debounce timer;
// when the timer fires, the whole document is upserted once. There is no
// retry loop - a failed write is surfaced and the next mutation's debounce
// cycle carries the latest state anyway.
//
// The read path is a push subscription. Incoming snapshots pass three
// guards before adoption: the revision must be strictly newer than the last
// applied one, the content signature must differ from the last synchronized
// state (this absorbs the client's own writes echoed back), and the shape
// must validate. Adoption is flagged remote-origin so it never schedules a
// save of data that was never locally mutated.
package engine
