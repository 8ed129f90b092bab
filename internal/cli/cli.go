// Package cli defines the cobra command tree for the recite binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rbright/recite/internal/version"
)

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	LogLevel   string
}

// Handlers run the commands. Implementations write their own output.
type Handlers interface {
	Practice(ctx context.Context, opts Options) error
	Forward(ctx context.Context, opts Options, command string) error
	Status(ctx context.Context, opts Options) error
	Doctor(ctx context.Context, opts Options) error
	Devices(ctx context.Context, opts Options) error
}

// UsageError marks a malformed invocation.
type UsageError struct {
	Err error
}

func (e UsageError) Error() string { return e.Err.Error() }
func (e UsageError) Unwrap() error { return e.Err }

// ExitError carries a nonzero exit code for a command that already reported
// its outcome.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// ExitCode maps a command error onto a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	var usage UsageError
	if errors.As(err, &usage) {
		return 2
	}
	return 1
}

// forwarded lists the remote-control commands a practice owner accepts.
var forwarded = []struct {
	name  string
	short string
}{
	{"story", "Start reading the story, or stop when already recording"},
	{"answer", "Start answering the current question, or stop when already recording"},
	{"stop", "Stop whichever recording is active"},
	{"reset", "Abandon the session and return to the start"},
	{"copy", "Copy the session summary to the clipboard"},
	{"share", "Share the session summary"},
}

// NewRootCommand builds the recite command tree around h.
func NewRootCommand(h Handlers, stdout, stderr io.Writer) *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "recite",
		Short: "Reading comprehension practice by voice",
		Long: `recite records a story read aloud, asks comprehension questions about it,
records spoken answers, and produces a summary to copy or share.

Run "recite practice" to own a session. The other session commands forward
to that owner, so they can be bound to compositor keys.`,
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("{{.Version}}\n")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return UsageError{Err: err}
	})

	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path (default: $XDG_CONFIG_HOME/recite/config.jsonc)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(&cobra.Command{
		Use:   "practice",
		Short: "Own a practice session and show it in the terminal",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return h.Practice(cmd.Context(), *opts)
		},
	})

	for _, fwd := range forwarded {
		name := fwd.name
		root.AddCommand(&cobra.Command{
			Use:   name,
			Short: fwd.short,
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Forward(cmd.Context(), *opts, name)
			},
		})
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of the running session",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Status(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:   "doctor",
			Short: "Run configuration and environment checks",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Doctor(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:   "devices",
			Short: "List available input devices",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return h.Devices(cmd.Context(), *opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
				return err
			},
		},
	)

	return root
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	if !cmd.HasParent() {
		return UsageError{Err: fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
	}
	return UsageError{Err: fmt.Errorf("%q accepts no arguments, got %q", cmd.CommandPath(), args[0])}
}
