// Package logging opens the JSONL log shared by every recite invocation.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const logFile = "log.jsonl"

// Options configure one invocation's logger.
type Options struct {
	Level slog.Leveler
	// Command tags every record, so interleaved invocations can be told apart.
	Command string
}

// Runtime is an open logger and the file behind it.
type Runtime struct {
	Logger *slog.Logger
	Path   string
	// Invocation is a random id attached to every record as "invocation".
	Invocation string
	closer     io.Closer
}

func (r Runtime) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// New appends to the state-dir log, creating it 0600.
func New(opts Options) (Runtime, error) {
	path, err := resolveLogPath()
	if err != nil {
		return Runtime{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return Runtime{}, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return Runtime{}, err
	}

	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	id := uuid.NewString()
	attrs := []any{"pid", os.Getpid(), "invocation", id}
	if opts.Command != "" {
		attrs = append(attrs, "command", opts.Command)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})).With(attrs...)
	return Runtime{Logger: logger, Path: path, Invocation: id, closer: f}, nil
}

// ParseLevel maps a flag value to a slog level. Unknown values are info.
func ParseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo
	}
	return level
}

func resolveLogPath() (string, error) {
	base := strings.TrimSpace(os.Getenv("XDG_STATE_HOME"))
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "recite", logFile), nil
}
