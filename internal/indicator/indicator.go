// Package indicator renders session state on screen and plays audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/recite/internal/config"
)

const (
	colorRecording  = "rgb(89b4fa)"
	colorProcessing = "rgb(cba6f7)"
	colorError      = "rgb(f38ba8)"

	// persistentTimeoutMS keeps recording/processing banners up until Hide.
	persistentTimeoutMS = 300000
	defaultErrorMS      = 1200
	dispatchTimeout     = 400 * time.Millisecond
)

// surface is one on-screen notification backend.
type surface interface {
	show(ctx context.Context, icon int, timeoutMS int, color string, text string) error
	dismiss(ctx context.Context) error
}

// Notifier drives the configured notification surface and cue player.
// It satisfies session.Indicator.
type Notifier struct {
	cfg     config.IndicatorConfig
	logger  *slog.Logger
	texts   messages
	surface surface
	cues    cuePlayer

	soundMu sync.Mutex
	wg      sync.WaitGroup
}

// New builds a notifier for cfg. A nil logger discards dispatch failures.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	n := &Notifier{
		cfg:    cfg,
		logger: logger,
		texts:  resolveMessages(cfg, localeFromEnv()),
		cues:   pulseCuePlayer{cfg: cfg},
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Backend), "desktop") {
		n.surface = &desktopSurface{appName: desktopAppName(cfg)}
	} else {
		n.surface = hyprSurface{}
	}
	return n
}

func (n *Notifier) ShowRecording(ctx context.Context) {
	n.playCue(cueStart)
	n.show(ctx, 1, persistentTimeoutMS, colorRecording, n.texts.recording)
}

func (n *Notifier) ShowProcessing(ctx context.Context) {
	n.show(ctx, 1, persistentTimeoutMS, colorProcessing, n.texts.processing)
}

// ShowError flashes text, or the configured error text when text is empty.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		text = n.texts.errorText
	}
	timeout := n.cfg.ErrorTimeoutMS
	if timeout <= 0 {
		timeout = defaultErrorMS
	}
	n.show(ctx, 3, timeout, colorError, text)
}

func (n *Notifier) CueStop(context.Context)     { n.playCue(cueStop) }
func (n *Notifier) CueComplete(context.Context) { n.playCue(cueComplete) }
func (n *Notifier) CueCancel(context.Context)   { n.playCue(cueCancel) }

func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.dispatch(ctx, "dismiss", n.surface.dismiss)
}

// Wait blocks until queued cues have finished playing.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string) {
	if !n.cfg.Enable {
		return
	}
	n.dispatch(ctx, "show", func(ctx context.Context) error {
		return n.surface.show(ctx, icon, timeoutMS, color, text)
	})
}

func (n *Notifier) dispatch(ctx context.Context, op string, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.logger.Debug("indicator dispatch failed", "op", op, "backend", n.cfg.Backend, "error", err.Error())
	}
}

// playCue serializes playback so overlapping cues never interleave.
func (n *Notifier) playCue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cues.play(kind); err != nil {
			n.logger.Debug("indicator audio cue failed", "cue", kind.String(), "error", err.Error())
		}
	}()
}

func desktopAppName(cfg config.IndicatorConfig) string {
	if name := strings.TrimSpace(cfg.DesktopAppName); name != "" {
		return name
	}
	return "recite-indicator"
}
