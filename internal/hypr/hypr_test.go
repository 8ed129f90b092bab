package hypr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryFocusedMonitor(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    string
		wantErr string
	}{
		{
			name:   "focused wins",
			output: `[{"name":"HDMI-A-1","focused":false},{"name":" DP-2 ","focused":true}]`,
			want:   "DP-2",
		},
		{name: "first when unfocused", output: `[{"name":"eDP-1","focused":false},{"name":"DP-2"}]`, want: "eDP-1"},
		{name: "empty list", output: `[]`, wantErr: "no outputs"},
		{name: "bad json", output: `not json`, wantErr: "decode hyprctl monitors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubHyprctl(t, `
[[ "$1" == "-j" && "$2" == "monitors" ]] || exit 1
echo '`+tt.output+`'
`)
			got, err := QueryFocusedMonitor(context.Background())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNotifyAndDismissArgs(t *testing.T) {
	log := filepath.Join(t.TempDir(), "args.log")
	t.Setenv("HYPR_ARGS_LOG", log)
	stubHyprctl(t, `printf '%s\n' "$*" >> "$HYPR_ARGS_LOG"`)

	ctx := context.Background()
	require.NoError(t, Notify(ctx, Notification{Icon: 1, Timeout: 300 * time.Second, Text: "Listening to your story"}))
	require.NoError(t, Notify(ctx, Notification{Icon: 3, Timeout: 2500 * time.Millisecond, Color: "rgb(f38ba8)", Text: "Try again"}))
	require.NoError(t, DismissNotify(ctx))

	data, err := os.ReadFile(log)
	require.NoError(t, err)
	require.Equal(t, []string{
		"--quiet dispatch notify 1 300000 " + DefaultColor + " Listening to your story",
		"--quiet dispatch notify 3 2500 rgb(f38ba8) Try again",
		"--quiet dispatch dismissnotify",
	}, strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func TestHyprctlFailureIncludesOutput(t *testing.T) {
	stubHyprctl(t, `
echo 'no instance running' >&2
exit 3
`)
	err := DismissNotify(context.Background())
	require.ErrorContains(t, err, "hyprctl --quiet dispatch dismissnotify")
	require.ErrorContains(t, err, "no instance running")
}

func TestAvailable(t *testing.T) {
	stubHyprctl(t, `exit 0`)
	require.True(t, Available())

	t.Setenv("PATH", t.TempDir())
	require.False(t, Available())
}

func stubHyprctl(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	script := "#!/usr/bin/env bash\nset -eu\n" + body + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, binary), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}
