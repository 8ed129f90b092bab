package session

import (
	"context"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/fsm"
)

// Recorder abstracts microphone capture.
type Recorder interface {
	// Start requests microphone access and begins capture.
	Start(context.Context) error
	// Stop ends capture. ok is false when nothing was recording.
	Stop(context.Context) (clip audio.Clip, ok bool)
	Recording() bool
}

// FailureSource is implemented by recorders that detect mid-capture failures.
type FailureSource interface {
	Failures() <-chan error
}

// Transcriber turns a clip into text.
type Transcriber interface {
	Transcribe(context.Context, audio.Clip) (string, error)
}

// QuestionGenerator produces ordered comprehension questions for a story.
type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, story string) ([]string, error)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// Sharer hands text to a platform share target.
type Sharer interface {
	Share(ctx context.Context, text string) error
}

// Indicator is the session-facing subset of indicator behavior.
type Indicator interface {
	ShowRecording(context.Context)
	ShowProcessing(context.Context)
	ShowError(context.Context, string)
	CueStop(context.Context)
	CueComplete(context.Context)
	CueCancel(context.Context)
	Hide(context.Context)
}

// Observer receives accepted transitions that move to a differently named
// state. Self-loops such as storing the story while still processing are not
// reported.
type Observer interface {
	ObserveTransition(from, to fsm.State)
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks.
type Clock interface {
	AfterFunc(time.Duration, func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// noopIndicator preserves session flow when no indicator is wired.
type noopIndicator struct{}

func (noopIndicator) ShowRecording(context.Context)     {}
func (noopIndicator) ShowProcessing(context.Context)    {}
func (noopIndicator) ShowError(context.Context, string) {}
func (noopIndicator) CueStop(context.Context)           {}
func (noopIndicator) CueComplete(context.Context)       {}
func (noopIndicator) CueCancel(context.Context)         {}
func (noopIndicator) Hide(context.Context)              {}

type noopObserver struct{}

func (noopObserver) ObserveTransition(fsm.State, fsm.State) {}

// PlaceholderTranscriber is a stand-in used when no backend is configured.
type PlaceholderTranscriber struct{}

func (PlaceholderTranscriber) Transcribe(context.Context, audio.Clip) (string, error) {
	return "", ErrPipelineUnavailable
}

// PlaceholderQuestions is a stand-in used when no backend is configured.
type PlaceholderQuestions struct{}

func (PlaceholderQuestions) GenerateQuestions(context.Context, string) ([]string, error) {
	return nil, ErrPipelineUnavailable
}

// placeholderRecorder fails every start.
type placeholderRecorder struct{}

func (placeholderRecorder) Start(context.Context) error { return ErrPipelineUnavailable }

func (placeholderRecorder) Stop(context.Context) (audio.Clip, bool) { return audio.Clip{}, false }

func (placeholderRecorder) Recording() bool { return false }

type unavailableSharer struct{}

func (unavailableSharer) Share(context.Context, string) error { return ErrShareUnavailable }

type unavailableClipboard struct{}

func (unavailableClipboard) Copy(context.Context, string) error { return ErrPipelineUnavailable }
