// Package pipeline adapts audio capture and speech/question backends to the
// session controller's collaborator interfaces.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/session"
)

const (
	// maxClipDuration bounds retained audio for one recording.
	maxClipDuration = 5 * time.Minute
	watchInterval   = 200 * time.Millisecond
)

// capture is the subset of *audio.Capture the recorder drives.
type capture interface {
	Stop() error
	Clip() audio.Clip
	Err() error
	Truncated() bool
}

type (
	selectDeviceFunc func(ctx context.Context, input string, fallback string) (audio.Selection, error)
	startCaptureFunc func(ctx context.Context, device audio.Device, opts audio.CaptureOptions) (capture, error)
)

// Recorder implements session.Recorder and session.FailureSource on top of
// Pulse capture.
type Recorder struct {
	cfg    config.Config
	logger *slog.Logger

	selectDevice  selectDeviceFunc
	startCapture  startCaptureFunc
	watchInterval time.Duration

	mu      sync.Mutex
	active  capture
	owner   context.Context
	device  audio.Device
	stopped chan struct{}

	failures chan error
}

func NewRecorder(cfg config.Config, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{
		cfg:          cfg,
		logger:       logger,
		selectDevice: audio.SelectDevice,
		startCapture: func(ctx context.Context, device audio.Device, opts audio.CaptureOptions) (capture, error) {
			return audio.StartCapture(ctx, device, opts)
		},
		watchInterval: watchInterval,
		failures:      make(chan error, 1),
	}
}

// Start selects the configured source and begins capture. Access refusals
// wrap session.ErrPermission; everything else wraps session.ErrDevice.
//
// The capture belongs to ctx: it is released when ctx ends, and a later Start
// replaces it rather than reporting busy.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil {
		if r.owner.Err() == nil {
			return fmt.Errorf("%w: already recording", session.ErrBusy)
		}
		r.logger.Debug("replacing capture of an ended session", "device", describeDevice(r.device))
		r.releaseLocked()
	}

	selection, err := r.selectDevice(ctx, r.cfg.Audio.Input, r.cfg.Audio.Fallback)
	if err != nil {
		return classifyCaptureError(err)
	}
	if selection.Warning != "" {
		r.logger.Warn(selection.Warning)
	}

	c, err := r.startCapture(ctx, selection.Device, audio.CaptureOptions{MaxDuration: maxClipDuration})
	if err != nil {
		return classifyCaptureError(err)
	}

	if err := ctx.Err(); err != nil {
		_ = c.Stop()
		return fmt.Errorf("%w: capture abandoned: %v", session.ErrDevice, err)
	}

	r.active = c
	r.owner = ctx
	r.device = selection.Device
	r.stopped = make(chan struct{})
	go r.watch(ctx, c, r.stopped)

	r.logger.Debug("capture started", "device", describeDevice(selection.Device))
	return nil
}

// Stop ends the active capture and returns its clip.
func (r *Recorder) Stop(context.Context) (audio.Clip, bool) {
	r.mu.Lock()
	c := r.active
	device := r.device
	stopped := r.stopped
	r.active = nil
	r.owner = nil
	r.stopped = nil
	r.mu.Unlock()

	if c == nil {
		return audio.Clip{}, false
	}
	close(stopped)
	_ = c.Stop()

	clip := c.Clip()
	r.logger.Debug("capture stopped",
		"device", describeDevice(device),
		"duration_ms", clip.Duration().Milliseconds(),
		"truncated", c.Truncated(),
	)
	if r.cfg.Debug.EnableAudioDump {
		if path, err := dumpClip(clip); err != nil {
			r.logger.Warn("unable to write debug audio dump", "error", err.Error())
		} else if path != "" {
			r.logger.Debug("debug audio dump written", "path", path)
		}
	}
	return clip, true
}

func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

func (r *Recorder) Failures() <-chan error {
	return r.failures
}

// releaseLocked drops the active capture without keeping its clip.
func (r *Recorder) releaseLocked() {
	close(r.stopped)
	_ = r.active.Stop()
	r.active = nil
	r.owner = nil
	r.stopped = nil
}

// watch reports the first stream failure of c until stopped closes, and
// releases c once its owner's ctx ends.
func (r *Recorder) watch(ctx context.Context, c capture, stopped <-chan struct{}) {
	ticker := time.NewTicker(r.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stopped:
			return
		case <-ctx.Done():
			r.mu.Lock()
			if r.active == c {
				r.releaseLocked()
				r.logger.Debug("capture released after session ended", "device", describeDevice(r.device))
			}
			r.mu.Unlock()
			return
		case <-ticker.C:
			err := c.Err()
			if err == nil {
				continue
			}
			r.mu.Lock()
			owned := r.active == c
			if owned {
				r.active = nil
				r.owner = nil
				r.stopped = nil
			}
			r.mu.Unlock()
			if !owned {
				return
			}
			_ = c.Stop()

			select {
			case r.failures <- classifyCaptureError(err):
			default:
			}
			return
		}
	}
}

func classifyCaptureError(err error) error {
	if errors.Is(err, audio.ErrPermissionDenied) {
		return fmt.Errorf("%w: %v", session.ErrPermission, err)
	}
	return fmt.Errorf("%w: %v", session.ErrDevice, err)
}

func describeDevice(device audio.Device) string {
	description := strings.TrimSpace(device.Description)
	id := strings.TrimSpace(device.ID)
	if description == "" {
		return id
	}
	if id == "" {
		return description
	}
	return fmt.Sprintf("%s (%s)", description, id)
}
