package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// TraceSnapshot is the golden-file form of a scenario execution.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// AssertGolden compares the recorded trace against
// testdata/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Note on ordering: push delivery is synchronous inside the committing
// upsert, so a partner's "adopt" appears in the trace before the writer's
// own "write" event for the same revision.
func (h *Harness) AssertGolden(t *testing.T, name string) {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: name, Trace: h.Trace()}
	data, err := json.MarshalIndent(snapshot, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, name, append(data, '\n'))
}
