package output

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/recite/internal/config"
)

const clipboardTimeout = 2 * time.Second

// Clipboard copies text through the configured command, or through the
// platform clipboard when no command is set.
type Clipboard struct {
	argv     []string
	logger   *slog.Logger
	writeAll func(string) error
}

// NewClipboard builds a clipboard writer from clipboard_cmd.
func NewClipboard(cmd config.CommandConfig, logger *slog.Logger) *Clipboard {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Clipboard{
		argv:     append([]string(nil), cmd.Argv...),
		logger:   logger,
		writeAll: clipboard.WriteAll,
	}
}

func (c *Clipboard) Copy(ctx context.Context, text string) error {
	if len(c.argv) == 0 {
		if clipboard.Unsupported {
			return fmt.Errorf("set clipboard: no clipboard_cmd configured and no system clipboard utility found")
		}
		if err := c.writeAll(text); err != nil {
			return fmt.Errorf("set clipboard: %w", err)
		}
		return nil
	}

	runCtx, cancel := context.WithTimeout(ctx, clipboardTimeout)
	defer cancel()
	if err := runCommandWithInput(runCtx, c.argv, text); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}
	c.logger.Debug("clipboard updated", "bytes", len(text), "command", c.argv[0])
	return nil
}
