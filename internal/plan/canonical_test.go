package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_KeyOrdering(t *testing.T) {
	obj := map[string]any{
		"b": "2",
		"a": "1",
		"c": "3",
	}

	out, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2","c":"3"}`, string(out))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalCanonical(map[string]any{"note": "coffee & cake <3"})
	require.NoError(t, err)
	assert.Equal(t, `{"note":"coffee & cake <3"}`, string(out))
}

func TestMarshalCanonical_NullForbidden(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"x": nil})
	assert.Error(t, err)
}

func TestMarshalCanonical_Numbers(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"integral", 100, "100"},
		{"negative integral", -42, "-42"},
		{"zero", 0, "0"},
		{"fraction", 12.5, "12.5"},
		{"round2 money", 33.33, "33.33"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	// "é" as combining sequence (U+0065 U+0301) vs precomposed (U+00E9)
	// must serialize identically.
	combining, err := MarshalCanonical("café")
	require.NoError(t, err)
	precomposed, err := MarshalCanonical("café")
	require.NoError(t, err)
	assert.Equal(t, precomposed, combining)
}

func TestMarshalCanonical_LineSeparatorsLiteral(t *testing.T) {
	out, err := MarshalCanonical("a b c")
	require.NoError(t, err)
	assert.Equal(t, "\"a b c\"", string(out))

	// A literal backslash followed by "u2028" text must stay escaped.
	out, err = MarshalCanonical("a\\u2028b")
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028b"`, string(out))
}

func TestMarshalCanonical_Arrays(t *testing.T) {
	out, err := MarshalCanonical([]any{"a", float64(1), true})
	require.NoError(t, err)
	assert.Equal(t, `["a",1,true]`, string(out))
}

func TestCanonicalDocument_OmitsEmptyOptionals(t *testing.T) {
	doc := NewTestDocument()
	out, err := CanonicalDocument(doc)
	require.NoError(t, err)

	// Optional fields with zero values must be absent, not null.
	assert.NotContains(t, string(out), "null")
	assert.NotContains(t, string(out), `"notes"`)
}

// NewTestDocument returns a minimal well-formed document for tests.
func NewTestDocument() Document {
	return Document{
		CurrentUser:     Member{Slot: Slot1, Name: "Ana"},
		Partner:         Member{Slot: Slot2, Name: "Bruno"},
		Activities:      []Activity{},
		Events:          []CalendarEvent{},
		SharedGoals:     []Goal{},
		IndividualGoals: []Goal{},
		Budget:          BudgetConfig{MonthlyLimit: 500},
		Logs:            []LogEntry{},
	}
}
