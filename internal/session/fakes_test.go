package session

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/fsm"
	"github.com/stretchr/testify/require"
)

type fakeRecorder struct {
	mu        sync.Mutex
	startErr  error
	lost      bool
	recording bool
	starts    int
	stops     int
	failures  chan error

	// gates[i], when set, holds the i-th Start until it is closed.
	gates []chan struct{}
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{failures: make(chan error, 1)}
}

func (r *fakeRecorder) Start(context.Context) error {
	r.mu.Lock()
	var gate chan struct{}
	if r.starts < len(r.gates) {
		gate = r.gates[r.starts]
	}
	r.starts++
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.startErr != nil {
		return r.startErr
	}
	r.recording = true
	return nil
}

func (r *fakeRecorder) Stop(context.Context) (audio.Clip, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
	wasRecording := r.recording
	r.recording = false
	if !wasRecording || r.lost {
		return audio.Clip{}, false
	}
	return audio.Clip{PCM: make([]byte, 3200), SampleRate: audio.SampleRate, Channels: audio.Channels}, true
}

func (r *fakeRecorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

func (r *fakeRecorder) Failures() <-chan error { return r.failures }

func (r *fakeRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.stops
}

func (r *fakeRecorder) setLost(lost bool) {
	r.mu.Lock()
	r.lost = lost
	r.mu.Unlock()
}

type fakeTranscriber struct {
	mu       sync.Mutex
	texts    []string
	err      error
	gate     chan struct{}
	calls    int
	returned int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.returned++
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if len(f.texts) == 0 {
		return "", errors.New("no scripted transcript")
	}
	text := f.texts[0]
	f.texts = f.texts[1:]
	return text, nil
}

func (f *fakeTranscriber) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeTranscriber) returnedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.returned
}

type fakeQuestions struct {
	mu        sync.Mutex
	questions []string
	err       error
	calls     int
	stories   []string
}

func (f *fakeQuestions) GenerateQuestions(_ context.Context, story string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.stories = append(f.stories, story)
	if f.err != nil {
		return nil, f.err
	}
	return append([]string(nil), f.questions...), nil
}

func (f *fakeQuestions) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeClipboard) Copy(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeClipboard) copied() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeSharer struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (f *fakeSharer) Share(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeSharer) shared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeIndicator struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeIndicator) record(event string) {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
}

func (f *fakeIndicator) ShowRecording(context.Context)     { f.record("recording") }
func (f *fakeIndicator) ShowProcessing(context.Context)    { f.record("processing") }
func (f *fakeIndicator) ShowError(context.Context, string) { f.record("error") }
func (f *fakeIndicator) CueStop(context.Context)           { f.record("cue_stop") }
func (f *fakeIndicator) CueComplete(context.Context)       { f.record("cue_complete") }
func (f *fakeIndicator) CueCancel(context.Context)         { f.record("cue_cancel") }
func (f *fakeIndicator) Hide(context.Context)              { f.record("hide") }

func (f *fakeIndicator) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

type fakeObserver struct {
	mu    sync.Mutex
	names []string
}

func (f *fakeObserver) ObserveTransition(_ fsm.State, to fsm.State) {
	f.mu.Lock()
	f.names = append(f.names, to.Name())
	f.mu.Unlock()
}

func (f *fakeObserver) transitions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.names...)
}

// fakeClock fires callbacks only when the test advances it.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []func()
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t.f)
		}
	}
	c.mu.Unlock()
	for _, f := range due {
		f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type harness struct {
	ctrl        *Controller
	recorder    *fakeRecorder
	transcriber *fakeTranscriber
	questions   *fakeQuestions
	clipboard   *fakeClipboard
	sharer      *fakeSharer
	indicator   *fakeIndicator
	observer    *fakeObserver
	clock       *fakeClock
	logger      *slog.Logger

	cancel context.CancelFunc
	done   chan Result
}

func newHarness(t *testing.T, configure ...func(*harness)) *harness {
	t.Helper()

	h := &harness{
		recorder:    newFakeRecorder(),
		transcriber: &fakeTranscriber{},
		questions:   &fakeQuestions{},
		clipboard:   &fakeClipboard{},
		sharer:      &fakeSharer{},
		indicator:   &fakeIndicator{},
		observer:    &fakeObserver{},
		clock:       &fakeClock{},
		done:        make(chan Result, 1),
	}
	for _, fn := range configure {
		fn(h)
	}

	h.ctrl = NewController(h.logger, Deps{
		Recorder:    h.recorder,
		Transcriber: h.transcriber,
		Questions:   h.questions,
		Clipboard:   h.clipboard,
		Sharer:      h.sharer,
		Indicator:   h.indicator,
		Observer:    h.observer,
		Clock:       h.clock,
	}, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.ctrl.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("controller did not stop")
		}
	})
	return h
}

func (h *harness) stop(t *testing.T) Result {
	t.Helper()
	h.ctrl.Close()
	select {
	case res := <-h.done:
		h.done <- res
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
		return Result{}
	}
}

func (h *harness) waitFor(t *testing.T, want fsm.State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.ctrl.State() == want
	}, 2*time.Second, 5*time.Millisecond, "want %s, last %s", fsm.Describe(want), fsm.Describe(h.ctrl.State()))
}

func (h *harness) recordStory(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartStory(ctx))
	h.waitFor(t, fsm.RecordingStory{})
	require.NoError(t, h.ctrl.StopStory(ctx))
}

func (h *harness) answer(t *testing.T, index int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.ctrl.StartAnswer(ctx))
	h.waitFor(t, fsm.RecordingAnswer{Index: index})
	require.NoError(t, h.ctrl.StopAnswer(ctx))
}

// driveToSummary runs a one-question session to completion.
func driveToSummary(t *testing.T, h *harness) {
	t.Helper()
	h.recordStory(t)
	h.waitFor(t, fsm.PresentingQuestion{Index: 0})
	h.answer(t, 0)
	h.waitFor(t, fsm.Summary{})
}

func oneQuestion(h *harness) {
	h.transcriber.texts = []string{"The cat sat on the mat all day.", "On the mat."}
	h.questions.questions = []string{"Where did the cat sit?"}
}

// logBuffer is a bytes.Buffer safe for a logger writing from the controller
// goroutine.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
