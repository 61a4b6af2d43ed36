package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duoplan/duoplan/internal/plan"
)

// setupEnv points the CLI at a fresh SQLite store via env-only config.
func setupEnv(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DUOPLAN_BACKEND", "sqlite")
	t.Setenv("DUOPLAN_SQLITE_PATH", filepath.Join(dir, "duoplan.db"))
	t.Setenv("DUOPLAN_PAIRING_ID", "pair-cli")
	t.Setenv("DUOPLAN_MEMBER_NAME", "Ana")
	t.Setenv("DUOPLAN_MEMBER_SLOT", "1")
	t.Setenv("DUOPLAN_PARTNER_NAME", "Bruno")
}

// runCLI executes one command invocation with a fresh root.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

// decodeData unmarshals the data payload of a JSON-format response.
func decodeData(t *testing.T, raw string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	require.Equal(t, "ok", resp.Status)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func TestInit_SeedsPairingOnce(t *testing.T) {
	setupEnv(t)

	out, err := runCLI(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "initialized pairing pair-cli at rev 1")

	_, err = runCLI(t, "init")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "already initialized")
}

func TestCommandsRequireInit(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "budget", "set", "800")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'duoplan init' first")
}

func TestCommandsRequirePairing(t *testing.T) {
	setupEnv(t)
	t.Setenv("DUOPLAN_PAIRING_ID", "")

	_, err := runCLI(t, "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestActivity_AddAndList(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	out, err := runCLI(t, "activity", "add", "--name", "Hiking", "--category", "Outdoors", "--cost", "15")
	require.NoError(t, err)
	assert.Contains(t, out, "added activity Hiking")

	out, err = runCLI(t, "--format", "json", "activity", "list")
	require.NoError(t, err)
	var activities []plan.Activity
	decodeData(t, out, &activities)
	require.Len(t, activities, 1)
	assert.Equal(t, "Hiking", activities[0].Name)
	assert.Equal(t, "Outdoors", activities[0].CostCategory)
	assert.Equal(t, plan.ScopeShared, activities[0].Scope)
	assert.NotEmpty(t, activities[0].ID, "id assigned at the dispatch boundary")
}

func TestEvent_AddRemoveAndLog(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "event", "add", "--title", "Dinner", "--date", "2025-03-14", "--cost", "40")
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "event", "list")
	require.NoError(t, err)
	var events []plan.CalendarEvent
	decodeData(t, out, &events)
	require.Len(t, events, 1)

	out, err = runCLI(t, "log")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "Dinner")

	_, err = runCLI(t, "event", "rm", events[0].ID)
	require.NoError(t, err)

	out, err = runCLI(t, "--format", "json", "event", "list")
	require.NoError(t, err)
	events = nil
	decodeData(t, out, &events)
	assert.Empty(t, events)
}

func TestEvent_ListExpandsRecurrence(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "event", "add", "--title", "Yoga", "--date", "2025-03-03", "--repeat", "Weekly")
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "event", "list", "--from", "2025-03-01", "--to", "2025-03-31")
	require.NoError(t, err)
	var events []plan.CalendarEvent
	decodeData(t, out, &events)
	// March 2025 Mondays from the anchor: 3, 10, 17, 24, 31.
	assert.Len(t, events, 5)
}

func TestEvent_RejectsUnknownRepeat(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "event", "add", "--title", "X", "--date", "2025-03-01", "--repeat", "Fortnightly")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoal_ContributionDrivesProgress(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "goal", "add", "Trip fund", "--target", "1000", "--category", "Travel")
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "goal", "list")
	require.NoError(t, err)
	var goals map[string][]plan.Goal
	decodeData(t, out, &goals)
	require.Len(t, goals["shared"], 1)
	goalID := goals["shared"][0].ID

	out, err = runCLI(t, "goal", "contribute", goalID, "250")
	require.NoError(t, err)
	assert.Contains(t, out, "now 25%")
	assert.Contains(t, out, "In Progress")
}

func TestGoal_TaskLifecycle(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "goal", "add", "Declutter")
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "goal", "list")
	require.NoError(t, err)
	var goals map[string][]plan.Goal
	decodeData(t, out, &goals)
	goalID := goals["shared"][0].ID

	_, err = runCLI(t, "goal", "task", "add", goalID, "Garage")
	require.NoError(t, err)

	out, err = runCLI(t, "--format", "json", "goal", "list")
	require.NoError(t, err)
	goals = nil
	decodeData(t, out, &goals)
	require.Len(t, goals["shared"][0].Tasks, 1)
	taskID := goals["shared"][0].Tasks[0].ID

	out, err = runCLI(t, "goal", "task", "toggle", goalID, taskID)
	require.NoError(t, err)
	assert.Contains(t, out, "now 100%")
	assert.Contains(t, out, "Completed")
}

func TestBudget_SetAndShow(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "budget", "set", "800")
	require.NoError(t, err)

	out, err := runCLI(t, "budget", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "monthly limit: 800.00")
}

func TestMonth_Report(t *testing.T) {
	setupEnv(t)
	_, err := runCLI(t, "init")
	require.NoError(t, err)

	_, err = runCLI(t, "budget", "set", "500")
	require.NoError(t, err)
	_, err = runCLI(t, "event", "add", "--title", "Dinner", "--date", "2025-03-14", "--cost", "40", "--actual", "55.5", "--category", "Food")
	require.NoError(t, err)

	out, err := runCLI(t, "--format", "json", "month", "--year", "2025", "--month", "3")
	require.NoError(t, err)
	var report struct {
		TotalActual  float64 `json:"totalActual"`
		Remaining    float64 `json:"remaining"`
		MonthlyLimit float64 `json:"monthlyLimit"`
		ByCategory   []struct {
			Category string  `json:"category"`
			Actual   float64 `json:"actual"`
		} `json:"byCategory"`
		EventCount int `json:"eventCount"`
	}
	decodeData(t, out, &report)
	assert.Equal(t, 55.5, report.TotalActual)
	assert.Equal(t, 500.0, report.MonthlyLimit)
	assert.Equal(t, 444.5, report.Remaining)
	assert.Equal(t, 1, report.EventCount)
	require.Len(t, report.ByCategory, 1)
	assert.Equal(t, "Food", report.ByCategory[0].Category)

	// Text mode stays plain ASCII.
	out, err = runCLI(t, "month", "--year", "2025", "--month", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "March 2025: 1 events")
	for _, r := range out {
		assert.Less(t, r, rune(128), "month output must be ASCII")
	}
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	setupEnv(t)

	_, err := runCLI(t, "--format", "xml", "log")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
