// Package doctor runs readiness diagnostics for config, tools, audio, and the model backends.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/hypr"
	"github.com/rbright/recite/internal/ipc"
	"github.com/rbright/recite/internal/ollama"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var (
	selectDevice   = audio.SelectDevice
	focusedMonitor = hypr.QueryFocusedMonitor
	socketPath     = ipc.RuntimeSocketPath
	pingOllama     = func(ctx context.Context, cfg config.OllamaConfig) (string, error) {
		client, err := ollama.New(ollama.Config{Host: cfg.Host, Model: cfg.Model})
		if err != nil {
			return "", err
		}
		return client.Ping(ctx)
	}
	clipboardUnsupported = func() bool { return clipboard.Unsupported }
)

const probeTimeout = 2 * time.Second

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{checkConfig(loaded)}

	checks = append(checks, checkCredentials(cfg))
	checks = append(checks, checkClipboard(cfg.Clipboard))
	checks = append(checks, checkShare(cfg.Share))
	checks = append(checks, checkIndicator(ctx, cfg.Indicator)...)
	checks = append(checks, checkAudioSelection(ctx, cfg))
	if cfg.Questions.Backend == config.BackendOllama {
		checks = append(checks, checkOllama(ctx, cfg.Ollama))
	}
	checks = append(checks, checkOwner(ctx))

	return Report{Checks: checks}
}

func checkConfig(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found, using defaults", loaded.Path)}
	}
	message := fmt.Sprintf("loaded %q", loaded.Path)
	if n := len(loaded.Warnings); n > 0 {
		message += fmt.Sprintf(" (%d warnings)", n)
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func checkCredentials(cfg config.Config) Check {
	backends := fmt.Sprintf("transcription=%s questions=%s", cfg.Transcription.Backend, cfg.Questions.Backend)
	if missing := config.MissingCredentials(cfg); len(missing) > 0 {
		return Check{Name: "credentials", Pass: false, Message: fmt.Sprintf("%s: missing %s", backends, strings.Join(missing, ", "))}
	}
	return Check{Name: "credentials", Pass: true, Message: backends}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkClipboard(cmd config.CommandConfig) Check {
	if len(cmd.Argv) > 0 {
		return checkCommand(cmd.Argv, "clipboard_cmd")
	}
	if clipboardUnsupported() {
		return Check{Name: "clipboard", Pass: false, Message: "no clipboard_cmd and no system clipboard utility found"}
	}
	return Check{Name: "clipboard", Pass: true, Message: "using system clipboard"}
}

// checkShare passes without a command; share then reports itself unavailable.
func checkShare(cfg config.ShareConfig) Check {
	if len(cfg.Command.Argv) == 0 {
		return Check{Name: "share_cmd", Pass: true, Message: "not configured, share is disabled"}
	}
	return checkCommand(cfg.Command.Argv, "share_cmd")
}

func checkIndicator(ctx context.Context, cfg config.IndicatorConfig) []Check {
	if !cfg.Enable {
		return []Check{{Name: "indicator", Pass: true, Message: "disabled"}}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		return []Check{checkBinary("busctl", "desktop notifications use busctl")}
	default:
		checks := []Check{checkEnv("HYPRLAND_INSTANCE_SIGNATURE", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "Hyprland session detected", "HYPRLAND_INSTANCE_SIGNATURE is empty")}
		if !hypr.Available() {
			return append(checks, Check{Name: "hyprctl", Pass: false, Message: "binary not found in PATH: hyprctl"})
		}
		monitor, err := focusedMonitor(ctx)
		if err != nil {
			return append(checks, Check{Name: "hyprctl", Pass: false, Message: err.Error()})
		}
		return append(checks, Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("focused monitor %q", monitor)})
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := selectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

func checkOllama(ctx context.Context, cfg config.OllamaConfig) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	version, err := pingOllama(ctx, cfg)
	if err != nil {
		return Check{Name: "ollama", Pass: false, Message: fmt.Sprintf("%s: %v", cfg.Host, err)}
	}
	return Check{Name: "ollama", Pass: true, Message: fmt.Sprintf("version %s at %s (model %s)", version, cfg.Host, cfg.Model)}
}

// checkOwner reports whether a practice session already owns the socket.
func checkOwner(ctx context.Context) Check {
	path, err := socketPath()
	if err != nil {
		return Check{Name: "socket", Pass: false, Message: err.Error()}
	}
	alive, err := ipc.Probe(ctx, path, probeTimeout)
	if err != nil {
		return Check{Name: "socket", Pass: false, Message: err.Error()}
	}
	if alive {
		return Check{Name: "socket", Pass: true, Message: fmt.Sprintf("active session at %s", path)}
	}
	return Check{Name: "socket", Pass: true, Message: fmt.Sprintf("no active session (%s)", path)}
}
