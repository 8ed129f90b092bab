// Package session runs the reading-practice controller: it owns the state
// machine, mediates collaborator calls, and publishes snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/report"
)

// ErrClosed is returned by intents once the controller has stopped.
var ErrClosed = errors.New("session controller stopped")

// Deps are the controller's collaborators. Nil fields fall back to stand-ins.
type Deps struct {
	Recorder    Recorder
	Transcriber Transcriber
	Questions   QuestionGenerator
	Clipboard   Clipboard
	Sharer      Sharer
	Indicator   Indicator
	Observer    Observer
	Clock       Clock
}

type timerKind int

const (
	timerStory timerKind = iota + 1
	timerCopied
	timerNotice
)

type message interface{}

type intentMsg struct {
	intent Intent
	reply  chan error
}

type captureStartedMsg struct {
	epoch string
	err   error
}

type resultMsg struct {
	epoch string
	event fsm.Event
	err   *Failure
}

type timerMsg struct {
	kind timerKind
	gen  uint64
}

type outputMsg struct {
	epoch    string
	intent   Intent
	err      error
	fallback bool
}

type failureMsg struct {
	err error
}

// Controller orchestrates session state transitions and side effects.
// All mutable session state is owned by the Run goroutine.
type Controller struct {
	logger *slog.Logger
	deps   Deps
	opts   Options
	rules  fsm.Rules

	inbox     chan message
	closeCh   chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// owned by Run
	runCtx     context.Context
	workCtx    context.Context
	cancelWork context.CancelFunc
	state      fsm.State
	session    fsm.Session
	epoch      string
	clip       audio.Clip
	timers     map[timerKind]Timer
	timerGens  map[timerKind]uint64
	copied     bool
	notice     string
	outputBusy bool
	version    uint64
	result     Result

	mu   sync.RWMutex
	snap Snapshot

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// NewController constructs a session controller with safe default fallbacks.
func NewController(logger *slog.Logger, deps Deps, opts Options) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if deps.Recorder == nil {
		deps.Recorder = placeholderRecorder{}
	}
	if deps.Transcriber == nil {
		deps.Transcriber = PlaceholderTranscriber{}
	}
	if deps.Questions == nil {
		deps.Questions = PlaceholderQuestions{}
	}
	if deps.Clipboard == nil {
		deps.Clipboard = unavailableClipboard{}
	}
	if deps.Sharer == nil {
		deps.Sharer = unavailableSharer{}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.Observer == nil {
		deps.Observer = noopObserver{}
	}
	if deps.Clock == nil {
		deps.Clock = realClock{}
	}
	opts = opts.withDefaults()

	c := &Controller{
		logger:    logger,
		deps:      deps,
		opts:      opts,
		rules:     fsm.Rules{MinStoryChars: opts.MinStoryChars},
		inbox:     make(chan message),
		closeCh:   make(chan struct{}),
		done:      make(chan struct{}),
		state:     fsm.Idle{},
		epoch:     uuid.NewString(),
		timers:    make(map[timerKind]Timer),
		timerGens: make(map[timerKind]uint64),
		subs:      make(map[int]chan Snapshot),
	}
	c.snap = c.buildSnapshot()
	return c
}

// Snapshot returns the latest published view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// State returns the current state.
func (c *Controller) State() fsm.State {
	return c.Snapshot().State
}

// Subscribe returns a channel carrying the latest snapshot after every change.
// Slow readers only see the newest value. The channel closes when Run exits
// or cancel is called.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	ch <- c.Snapshot()

	c.subMu.Lock()
	select {
	case <-c.done:
		c.subMu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.subMu.Unlock()

	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Close stops a running controller. It is safe to call more than once.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.closeCh) })
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Dispatch delivers an intent and waits for it to be accepted or rejected.
func (c *Controller) Dispatch(ctx context.Context, intent Intent) error {
	reply := make(chan error, 1)
	select {
	case c.inbox <- intentMsg{intent: intent, reply: reply}:
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) StartStory(ctx context.Context) error { return c.Dispatch(ctx, IntentStartStory) }
func (c *Controller) StopStory(ctx context.Context) error  { return c.Dispatch(ctx, IntentStopStory) }
func (c *Controller) StartAnswer(ctx context.Context) error {
	return c.Dispatch(ctx, IntentStartAnswer)
}
func (c *Controller) StopAnswer(ctx context.Context) error { return c.Dispatch(ctx, IntentStopAnswer) }
func (c *Controller) Reset(ctx context.Context) error      { return c.Dispatch(ctx, IntentReset) }
func (c *Controller) Copy(ctx context.Context) error       { return c.Dispatch(ctx, IntentCopy) }
func (c *Controller) Share(ctx context.Context) error      { return c.Dispatch(ctx, IntentShare) }

// Run processes intents and collaborator results until ctx is cancelled or
// Close is called. It must be called at most once.
func (c *Controller) Run(ctx context.Context) Result {
	c.runCtx = ctx
	c.workCtx, c.cancelWork = context.WithCancel(ctx)
	c.result.StartedAt = time.Now()

	var failures <-chan error
	if source, ok := c.deps.Recorder.(FailureSource); ok {
		failures = source.Failures()
	}

	for {
		select {
		case <-ctx.Done():
			c.result.Err = ctx.Err()
			return c.teardown()
		case <-c.closeCh:
			return c.teardown()
		case err, ok := <-failures:
			if !ok {
				failures = nil
				continue
			}
			c.process(failureMsg{err: err})
		case m := <-c.inbox:
			c.process(m)
		}
	}
}

// post delivers a message from a worker goroutine. It drops the message
// once Run has returned.
func (c *Controller) post(m message) {
	select {
	case c.inbox <- m:
	case <-c.done:
	}
}

func (c *Controller) process(m message) {
	switch msg := m.(type) {
	case intentMsg:
		msg.reply <- c.handleIntent(msg.intent)
	case captureStartedMsg:
		c.onCaptureStarted(msg)
	case resultMsg:
		if msg.epoch != c.epoch {
			c.logger.Debug("stale result dropped", "epoch", msg.epoch, "active_epoch", c.epoch)
			return
		}
		if msg.err != nil {
			c.fail(msg.err)
			return
		}
		_ = c.apply(msg.event)
	case timerMsg:
		c.onTimer(msg)
	case outputMsg:
		c.onOutput(msg)
	case failureMsg:
		if fsm.IsRecording(c.state) {
			c.fail(classify("recording", KindDevice, msg.err))
		}
	}
}

func (c *Controller) handleIntent(intent Intent) error {
	switch intent {
	case IntentStartStory:
		return c.applyIntent(intent, fsm.StartStory{})
	case IntentStartAnswer:
		return c.applyIntent(intent, fsm.StartAnswer{})
	case IntentStopStory:
		if _, ok := c.state.(fsm.RecordingStory); ok {
			c.stopRecording("manual")
		}
		return nil
	case IntentStopAnswer:
		if _, ok := c.state.(fsm.RecordingAnswer); ok {
			c.stopRecording("manual")
		}
		return nil
	case IntentReset:
		c.result.Resets++
		return c.apply(fsm.Reset{})
	case IntentCopy, IntentShare:
		return c.startOutput(intent)
	default:
		return fmt.Errorf("unknown intent %q", intent)
	}
}

func (c *Controller) applyIntent(intent Intent, event fsm.Event) error {
	if err := c.apply(event); err != nil {
		if errors.Is(err, fsm.ErrIgnored) {
			return fmt.Errorf("cannot %s from state %s: %w", intent, c.state.Name(), err)
		}
		return err
	}
	return nil
}

// apply runs one transition, performs its effects, and publishes the result.
func (c *Controller) apply(event fsm.Event) error {
	prev := c.state
	out, err := fsm.Transition(c.state, c.session, event, c.rules)
	if err != nil {
		c.logger.Debug("event ignored", "state", fsm.Describe(prev), "event", event.Name())
		return err
	}

	c.state = out.State
	c.session = out.Session
	c.logger.Debug("session transition",
		"from", fsm.Describe(prev),
		"to", fsm.Describe(out.State),
		"event", event.Name(),
		"epoch", c.epoch,
	)
	if prev.Name() != out.State.Name() {
		c.deps.Observer.ObserveTransition(prev, out.State)
	}

	for _, effect := range out.Effects {
		c.perform(effect)
	}
	c.signal(prev)
	c.publish()
	return nil
}

func (c *Controller) perform(effect fsm.Effect) {
	switch effect {
	case fsm.EffectNewEpoch:
		c.epoch = uuid.NewString()
		c.cancelWork()
		c.workCtx, c.cancelWork = context.WithCancel(c.runCtx)
		c.clip = audio.Clip{}
		c.copied = false
		c.notice = ""
		c.disarm(timerCopied)
		c.disarm(timerNotice)
	case fsm.EffectStartCapture:
		epoch, ctx, recorder := c.epoch, c.workCtx, c.deps.Recorder
		go func() {
			c.post(captureStartedMsg{epoch: epoch, err: recorder.Start(ctx)})
		}()
	case fsm.EffectAbortCapture:
		_, _ = c.deps.Recorder.Stop(c.runCtx)
	case fsm.EffectArmStoryTimer:
		c.arm(timerStory, c.opts.StoryTimeout)
	case fsm.EffectDisarmStoryTimer:
		c.disarm(timerStory)
	case fsm.EffectTranscribeStory:
		c.spawnTranscription(func(text string) fsm.Event { return fsm.StoryTranscribed{Text: text} })
	case fsm.EffectTranscribeAnswer:
		c.spawnTranscription(func(text string) fsm.Event { return fsm.AnswerTranscribed{Text: text} })
	case fsm.EffectGenerateQuestions:
		epoch, ctx, questions, story := c.epoch, c.workCtx, c.deps.Questions, c.session.StoryText
		go func() {
			list, err := questions.GenerateQuestions(ctx, story)
			if err != nil {
				c.post(resultMsg{epoch: epoch, err: classify("question generation", KindService, err)})
				return
			}
			c.post(resultMsg{epoch: epoch, event: fsm.QuestionsReady{Questions: list}})
		}()
	}
}

func (c *Controller) spawnTranscription(done func(string) fsm.Event) {
	epoch, ctx, transcriber, clip := c.epoch, c.workCtx, c.deps.Transcriber, c.clip
	c.clip = audio.Clip{}
	go func() {
		text, err := transcriber.Transcribe(ctx, clip)
		if err != nil {
			c.post(resultMsg{epoch: epoch, err: classify("transcription", KindService, err)})
			return
		}
		c.post(resultMsg{epoch: epoch, event: done(text)})
	}()
}

// stopRecording ends the live capture and feeds the result to the machine.
func (c *Controller) stopRecording(reason string) {
	clip, ok := c.deps.Recorder.Stop(c.runCtx)
	if !ok {
		c.logger.Warn("discarding session", "reason", reason, "state", c.state.Name(), "error", ErrNoCapture.Error())
		_ = c.apply(fsm.CaptureLost{})
		return
	}
	c.logger.Debug("recording stopped", "reason", reason, "duration_ms", clip.Duration().Milliseconds(), "bytes", len(clip.PCM))
	c.clip = clip
	_ = c.apply(fsm.Stop{})
}

func (c *Controller) onCaptureStarted(msg captureStartedMsg) {
	if msg.epoch != c.epoch {
		c.logger.Debug("stale capture start dropped", "epoch", msg.epoch, "active_epoch", c.epoch)
		if msg.err == nil && !capturing(c.state) {
			_, _ = c.deps.Recorder.Stop(c.runCtx)
		}
		return
	}
	if msg.err != nil {
		c.fail(classify("recording", KindDevice, msg.err))
		return
	}
	_ = c.apply(fsm.Granted{})
}

// capturing reports whether s owns a capture that is live or being started.
func capturing(s fsm.State) bool {
	if _, ok := s.(fsm.RequestingPermission); ok {
		return true
	}
	return fsm.IsRecording(s)
}

func (c *Controller) onTimer(msg timerMsg) {
	if c.timerGens[msg.kind] != msg.gen {
		return
	}
	delete(c.timers, msg.kind)

	switch msg.kind {
	case timerStory:
		if _, ok := c.state.(fsm.RecordingStory); ok {
			c.logger.Info("story recording reached time limit", "timeout", c.opts.StoryTimeout.String())
			c.stopRecording("timeout")
		}
	case timerCopied:
		c.copied = false
		c.publish()
	case timerNotice:
		c.notice = ""
		c.publish()
	}
}

// arm replaces any pending timer of kind. Stale firings are rejected by generation.
func (c *Controller) arm(kind timerKind, d time.Duration) {
	c.disarm(kind)
	gen := c.timerGens[kind]
	c.timers[kind] = c.deps.Clock.AfterFunc(d, func() {
		c.post(timerMsg{kind: kind, gen: gen})
	})
}

func (c *Controller) disarm(kind timerKind) {
	if timer, ok := c.timers[kind]; ok {
		timer.Stop()
		delete(c.timers, kind)
	}
	c.timerGens[kind]++
}

func (c *Controller) startOutput(intent Intent) error {
	if _, ok := c.state.(fsm.Summary); !ok {
		return ErrNothingToCopy
	}
	if c.outputBusy {
		return ErrBusy
	}
	c.outputBusy = true

	epoch, ctx, text := c.epoch, c.workCtx, report.FromSession(c.session)
	clipboard, sharer := c.deps.Clipboard, c.deps.Sharer
	go func() {
		var (
			err      error
			fallback bool
		)
		switch intent {
		case IntentCopy:
			err = clipboard.Copy(ctx, text)
		case IntentShare:
			err = sharer.Share(ctx, text)
			if errors.Is(err, ErrShareUnavailable) {
				fallback = true
				err = clipboard.Copy(ctx, text)
			}
		}
		c.post(outputMsg{epoch: epoch, intent: intent, err: err, fallback: fallback})
	}()
	return nil
}

func (c *Controller) onOutput(msg outputMsg) {
	c.outputBusy = false
	if msg.epoch != c.epoch {
		return
	}

	switch {
	case msg.err == nil && (msg.intent == IntentCopy || msg.fallback):
		c.copied = true
		c.arm(timerCopied, c.opts.CopiedFlash)
	case msg.err == nil:
	case errors.Is(msg.err, ErrShareCancelled):
		c.showNotice("Share cancelled")
	default:
		verb := "Copy"
		if msg.intent == IntentShare && !msg.fallback {
			verb = "Share"
		}
		c.logger.Error("session output failed", "intent", string(msg.intent), "error", msg.err.Error())
		c.showNotice(verb + " failed: " + msg.err.Error())
	}
	c.publish()
}

func (c *Controller) showNotice(text string) {
	c.notice = text
	c.arm(timerNotice, c.opts.NoticeDuration)
}

func (c *Controller) fail(f *Failure) {
	c.result.Failures++
	c.logger.Error("session failed",
		"stage", f.Stage,
		"kind", f.Kind.String(),
		"state", fsm.Describe(c.state),
		"error", f.Error(),
	)
	_ = c.apply(fsm.Fail{Message: Message(f)})
}

// signal drives the indicator for the state just entered.
func (c *Controller) signal(prev fsm.State) {
	ctx := c.runCtx
	ind := c.deps.Indicator
	switch st := c.state.(type) {
	case fsm.RecordingStory, fsm.RecordingAnswer:
		ind.ShowRecording(ctx)
	case fsm.ProcessingStory:
		if fsm.IsRecording(prev) {
			ind.CueStop(ctx)
			ind.ShowProcessing(ctx)
		}
	case fsm.ProcessingAnswer:
		ind.CueStop(ctx)
		ind.ShowProcessing(ctx)
	case fsm.PresentingQuestion:
		ind.CueComplete(ctx)
		ind.Hide(ctx)
	case fsm.Summary:
		c.result.Completed++
		c.logger.Info("session complete",
			"epoch", c.epoch,
			"story_length", len(c.session.StoryText),
			"question_count", len(c.session.QnA),
		)
		ind.CueComplete(ctx)
		ind.Hide(ctx)
	case fsm.Failed:
		ind.ShowError(ctx, st.Message)
	case fsm.Idle:
		if fsm.IsRecording(prev) {
			ind.CueCancel(ctx)
		}
		if _, wasIdle := prev.(fsm.Idle); !wasIdle {
			ind.Hide(ctx)
		}
	}
}

func (c *Controller) buildSnapshot() Snapshot {
	return Snapshot{
		State:   c.state,
		Session: c.session.Clone(),
		Epoch:   c.epoch,
		Copied:  c.copied,
		Notice:  c.notice,
		Version: c.version,
	}
}

func (c *Controller) publish() {
	c.version++
	snap := c.buildSnapshot()

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// teardown disarms timers, releases the microphone, and closes subscribers.
func (c *Controller) teardown() Result {
	for _, kind := range []timerKind{timerStory, timerCopied, timerNotice} {
		c.disarm(kind)
	}
	if fsm.IsRecording(c.state) || c.deps.Recorder.Recording() {
		_, _ = c.deps.Recorder.Stop(context.Background())
	}
	c.cancelWork()

	hideCtx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	c.deps.Indicator.Hide(hideCtx)
	cancel()

	c.subMu.Lock()
	close(c.done)
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
	c.subMu.Unlock()

	c.result.Final = c.Snapshot()
	c.result.FinishedAt = time.Now()
	return c.result
}
