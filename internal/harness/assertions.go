package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/duoplan/duoplan/internal/plan"
)

// RequireConverged asserts both clients hold structurally equal documents
// and have observed the same store revision.
func (h *Harness) RequireConverged(t *testing.T) {
	t.Helper()

	sigA := plan.MustSignature(h.A.Engine.Document())
	sigB := plan.MustSignature(h.B.Engine.Document())
	assert.Equal(t, sigA, sigB, "clients diverged")
	assert.Equal(t, h.A.Engine.Rev(), h.B.Engine.Rev(), "clients observed different revisions")
}

// RequireQuiescent asserts neither client has a pending debounce timer:
// nothing further would be written if time passed.
func (h *Harness) RequireQuiescent(t *testing.T) {
	t.Helper()
	assert.Zero(t, h.A.Clock.Pending(), "client A still has a pending write")
	assert.Zero(t, h.B.Clock.Pending(), "client B still has a pending write")
}

// CountTrace returns how many trace events match the given type and client
// ("" matches any client).
func (h *Harness) CountTrace(eventType, client string) int {
	n := 0
	for _, ev := range h.Trace() {
		if ev.Type == eventType && (client == "" || ev.Client == client) {
			n++
		}
	}
	return n
}
