package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "duoplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
pairing_id: pair-1
member:
  slot: 2
  name: Bruno
partner:
  name: Ana
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pair-1", cfg.PairingID)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, DefaultSQLitePath, cfg.SQLite)
	assert.Equal(t, plan.Slot2, cfg.MemberSlot())
	assert.Equal(t, plan.Slot1, cfg.PartnerSlot(), "partner slot derived from member slot")
	assert.Equal(t, DefaultDebounce, cfg.Debounce())
}

func TestLoad_MissingFileIsEnvOnly(t *testing.T) {
	t.Setenv("DUOPLAN_PAIRING_ID", "pair-env")
	t.Setenv("DUOPLAN_BACKEND", BackendMemory)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "pair-env", cfg.PairingID)
	assert.Equal(t, BackendMemory, cfg.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
backend: sqlite
sqlite_path: from-file.db
debounce_ms: 100
`)
	t.Setenv("DUOPLAN_SQLITE_PATH", "from-env.db")
	t.Setenv("DUOPLAN_DEBOUNCE_MS", "400")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.SQLite)
	assert.Equal(t, 400*time.Millisecond, cfg.Debounce())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown backend", "backend: redis"},
		{"postgres without dsn", "backend: postgres"},
		{"http without url", "backend: http"},
		{"bad slot", "member:\n  slot: 3"},
		{"slot collision", "member:\n  slot: 1\npartner:\n  slot: 1"},
		{"negative debounce", "debounce_ms: -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
