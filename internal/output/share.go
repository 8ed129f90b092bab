package output

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"slices"
	"time"

	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/session"
)

// shareTimeout bounds how long a share picker may stay open.
const shareTimeout = 2 * time.Minute

// Sharer pipes text into share_cmd. Exit codes listed as cancel codes map to
// session.ErrShareCancelled; an unset command reports session.ErrShareUnavailable
// so the controller falls back to the clipboard.
type Sharer struct {
	argv        []string
	cancelCodes []int
	logger      *slog.Logger
}

func NewSharer(cfg config.ShareConfig, logger *slog.Logger) *Sharer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Sharer{
		argv:        append([]string(nil), cfg.Command.Argv...),
		cancelCodes: append([]int(nil), cfg.CancelExitCodes...),
		logger:      logger,
	}
}

func (s *Sharer) Share(ctx context.Context, text string) error {
	if len(s.argv) == 0 {
		return session.ErrShareUnavailable
	}

	runCtx, cancel := context.WithTimeout(ctx, shareTimeout)
	defer cancel()

	err := runCommandWithInput(runCtx, s.argv, text)
	if err == nil {
		s.logger.Debug("share completed", "command", s.argv[0])
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && slices.Contains(s.cancelCodes, exitErr.ExitCode()) {
		return session.ErrShareCancelled
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", session.ErrShareUnavailable, err)
	}
	return fmt.Errorf("share: %w", err)
}
