// Package plan defines the shared planner document model and its canonical
// serialization.
//
// The Document is the unit of synchronization: one JSON-like value owned by
// exactly two members (slots 1 and 2) and exchanged whole with the remote
// store. Everything that needs a deterministic identity for a snapshot goes
// through MarshalCanonical and Signature; everything that needs the wire or
// storage form goes through encoding/json on the struct tags.
//
// The two serializations are deliberately different: struct-tag JSON is for
// humans and stores, canonical JSON is for fingerprints only.
package plan
