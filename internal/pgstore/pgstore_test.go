package pgstore

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/remote"
)

func TestDecodeNotice(t *testing.T) {
	nt, err := decodeNotice(`{"pairing_id":"pair-1","rev":7}`)
	require.NoError(t, err)
	assert.Equal(t, "pair-1", nt.PairingID)
	assert.Equal(t, int64(7), nt.Rev)
}

func TestDecodeNotice_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", "not json"},
		{"empty", ""},
		{"missing pairing", `{"rev":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeNotice(tt.payload)
			assert.Error(t, err)
		})
	}
}

func TestMapErr(t *testing.T) {
	authErr := &pq.Error{Code: "28P01", Message: "password authentication failed"}
	assert.ErrorIs(t, mapErr(authErr), remote.ErrUnauthorized)

	privErr := &pq.Error{Code: "42501", Message: "permission denied"}
	assert.ErrorIs(t, mapErr(privErr), remote.ErrUnauthorized)

	connErr := errors.New("connection refused")
	mapped := mapErr(connErr)
	assert.True(t, remote.IsTransient(mapped))
	assert.NotErrorIs(t, mapped, remote.ErrUnauthorized)

	// Constraint violations are not auth failures.
	dupErr := &pq.Error{Code: "23505", Message: "duplicate key"}
	assert.True(t, remote.IsTransient(mapErr(dupErr)))
}

func TestStore_ImplementsRemoteStore(t *testing.T) {
	var _ remote.Store = (*Store)(nil)
}
