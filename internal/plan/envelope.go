package plan

// Envelope pairs a document snapshot with the store's revision counter.
//
// Rev is assigned by the store on every successful upsert and is strictly
// monotonic per pairing. Clients ignore incoming snapshots whose Rev is not
// greater than the last one they applied; this is a stronger loop guard than
// content signatures alone, which cannot distinguish two distinct writes
// that happen to serialize identically.
type Envelope struct {
	Doc Document `json:"doc"`
	Rev int64    `json:"rev"`
}

// Version constants for the stored document schema.
const (
	// SchemaVersion is the planner document schema version.
	SchemaVersion = "1"

	// EngineVersion is the duoplan engine version.
	EngineVersion = "0.1.0"
)
