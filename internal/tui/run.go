package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/session"
)

// Controller is the slice of session.Controller the UI drives.
type Controller interface {
	Dispatcher
	Subscribe() (<-chan session.Snapshot, func())
}

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run renders ctrl until the user quits, ctx ends, or the controller stops.
// Without a TTY it prints one line per snapshot to out instead.
func Run(ctx context.Context, ctrl Controller, out io.Writer) error {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	if !IsTTY() {
		return RunHeadless(ctx, updates, out)
	}

	p := tea.NewProgram(New(ctx, ctrl, updates), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// RunHeadless prints each distinct snapshot to out until updates closes or
// ctx ends.
func RunHeadless(ctx context.Context, updates <-chan session.Snapshot, out io.Writer) error {
	last, reported := "", false
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			line := StatusLine(snap)
			if line == last {
				continue
			}
			last = line
			if _, err := fmt.Fprintln(out, line); err != nil {
				return err
			}

			_, summary := snap.State.(fsm.Summary)
			if summary && !reported {
				if _, err := fmt.Fprintln(out, snap.Report()); err != nil {
					return err
				}
			}
			reported = summary
		}
	}
}

// StatusLine renders a snapshot as a single plain-text line.
func StatusLine(snap session.Snapshot) string {
	line := snap.State.Name()
	switch st := snap.State.(type) {
	case fsm.Failed:
		line += ": " + st.Message
	case fsm.Summary:
		line += fmt.Sprintf(": %d questions answered", len(snap.Session.QnA))
	default:
		if text, index, total, ok := snap.Question(); ok {
			line += fmt.Sprintf(" [%d/%d]: %s", index+1, total, text)
		}
	}
	if snap.Copied {
		line += " (copied)"
	}
	if snap.Notice != "" {
		line += " (" + snap.Notice + ")"
	}
	return line
}
