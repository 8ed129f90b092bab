// Package hypr wraps the hyprctl calls used for on-screen indicators.
package hypr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const binary = "hyprctl"

// DefaultColor is the notification accent used when none is given.
const DefaultColor = "rgb(89b4fa)"

// Notification is one `hyprctl dispatch notify` payload.
type Notification struct {
	Icon    int
	Timeout time.Duration
	Color   string
	Text    string
}

func (n Notification) args() []string {
	color := strings.TrimSpace(n.Color)
	if color == "" {
		color = DefaultColor
	}
	return []string{
		"--quiet", "dispatch", "notify",
		strconv.Itoa(n.Icon),
		strconv.FormatInt(n.Timeout.Milliseconds(), 10),
		color,
		n.Text,
	}
}

// Notify shows n on the focused monitor.
func Notify(ctx context.Context, n Notification) error {
	_, err := hyprctl(ctx, n.args()...)
	return err
}

// DismissNotify clears every visible notification.
func DismissNotify(ctx context.Context) error {
	_, err := hyprctl(ctx, "--quiet", "dispatch", "dismissnotify")
	return err
}

// QueryFocusedMonitor returns the focused monitor's name, or the first
// monitor when none reports focus.
func QueryFocusedMonitor(ctx context.Context) (string, error) {
	out, err := hyprctl(ctx, "-j", "monitors")
	if err != nil {
		return "", err
	}

	var monitors []struct {
		Name    string `json:"name"`
		Focused bool   `json:"focused"`
	}
	if err := json.Unmarshal(out, &monitors); err != nil {
		return "", fmt.Errorf("decode hyprctl monitors: %w", err)
	}
	if len(monitors) == 0 {
		return "", errors.New("hyprctl monitors returned no outputs")
	}

	pick := monitors[0].Name
	for _, m := range monitors {
		if m.Focused {
			pick = m.Name
			break
		}
	}
	return strings.TrimSpace(pick), nil
}

// Available reports whether hyprctl is on PATH.
func Available() bool {
	_, err := exec.LookPath(binary)
	return err == nil
}

func hyprctl(ctx context.Context, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, binary, args...).CombinedOutput()
	if err == nil {
		return out, nil
	}
	if detail := strings.TrimSpace(string(out)); detail != "" {
		return nil, fmt.Errorf("%s %s: %w (%s)", binary, strings.Join(args, " "), err, detail)
	}
	return nil, fmt.Errorf("%s %s: %w", binary, strings.Join(args, " "), err)
}
