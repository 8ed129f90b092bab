package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveLogPath(t *testing.T) {
	state := t.TempDir()
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Setenv("XDG_STATE_HOME", state)
	path, err := resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(state, "recite", "log.jsonl"), path)

	t.Setenv("XDG_STATE_HOME", "  ")
	path, err = resolveLogPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".local", "state", "recite", "log.jsonl"), path)
}

func readRecords(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestNewTagsRecordsWithInvocation(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	rt, err := New(Options{Level: slog.LevelDebug, Command: "practice"})
	require.NoError(t, err)
	rt.Logger.Debug("transition", "from", "idle", "to", "recording_story")
	require.NoError(t, rt.Close())

	info, err := os.Stat(rt.Path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	records := readRecords(t, rt.Path)
	require.Len(t, records, 1)
	require.Equal(t, "transition", records[0]["msg"])
	require.Equal(t, "practice", records[0]["command"])
	require.Equal(t, rt.Invocation, records[0]["invocation"])
	require.Equal(t, float64(os.Getpid()), records[0]["pid"])
}

func TestNewAppendsAcrossInvocations(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	first, err := New(Options{})
	require.NoError(t, err)
	first.Logger.Debug("dropped at info")
	first.Logger.Info("first")
	require.NoError(t, first.Close())

	second, err := New(Options{Command: "status"})
	require.NoError(t, err)
	second.Logger.Warn("second")
	require.NoError(t, second.Close())

	require.NotEqual(t, first.Invocation, second.Invocation)
	records := readRecords(t, second.Path)
	require.Len(t, records, 2)
	require.Equal(t, "first", records[0]["msg"])
	require.NotContains(t, records[0], "command")
	require.Equal(t, "status", records[1]["command"])
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	require.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestCloseWithoutFile(t *testing.T) {
	require.NoError(t, Runtime{}.Close())
}
