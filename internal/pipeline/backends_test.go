package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/session"
	"github.com/rbright/recite/internal/transcript"
	"github.com/stretchr/testify/require"
)

type callRecord struct {
	stage, backend string
	err            error
}

type fakeObserver struct {
	mu    sync.Mutex
	calls []callRecord
}

func (f *fakeObserver) ObserveCall(stage, backend string, _ time.Duration, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, callRecord{stage: stage, backend: backend, err: err})
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(context.Context, audio.Clip) (string, error) {
	return s.text, s.err
}

type stubQuestions struct {
	questions []string
	err       error
}

func (s stubQuestions) GenerateQuestions(context.Context, string) ([]string, error) {
	return s.questions, s.err
}

func TestNewTranscriberRequiresCredentials(t *testing.T) {
	for _, backend := range []string{config.BackendGemini, config.BackendOpenAI, config.BackendDeepgram} {
		cfg := config.Default()
		cfg.Transcription.Backend = backend
		_, err := NewTranscriber(context.Background(), cfg, nil, nil)
		require.Error(t, err, backend)
		require.ErrorContains(t, err, "API_KEY", backend)
	}
}

func TestNewTranscriberBuildsEachBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "g"
	cfg.OpenAI.APIKey = "o"
	cfg.Deepgram.APIKey = "d"

	for _, backend := range []string{config.BackendGemini, config.BackendOpenAI, config.BackendDeepgram} {
		cfg.Transcription.Backend = backend
		tr, err := NewTranscriber(context.Background(), cfg, nil, nil)
		require.NoError(t, err, backend)
		require.IsType(t, &instrumentedTranscriber{}, tr)
	}

	cfg.Transcription.Backend = "vosk"
	_, err := NewTranscriber(context.Background(), cfg, nil, nil)
	require.ErrorContains(t, err, "unsupported transcription backend")
}

func TestNewQuestionGeneratorBuildsEachBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Gemini.APIKey = "g"
	cfg.OpenAI.APIKey = "o"

	for _, backend := range []string{config.BackendGemini, config.BackendOpenAI, config.BackendOllama} {
		cfg.Questions.Backend = backend
		q, err := NewQuestionGenerator(context.Background(), cfg, nil, nil)
		require.NoError(t, err, backend)
		require.IsType(t, &instrumentedQuestions{}, q)
	}

	cfg.Questions.Backend = config.BackendDeepgram
	_, err := NewQuestionGenerator(context.Background(), cfg, nil, nil)
	require.ErrorContains(t, err, "unsupported questions backend")
}

func TestInstrumentedTranscriberNormalizesAndObserves(t *testing.T) {
	observer := &fakeObserver{}
	tr := &instrumentedTranscriber{
		backend:  "deepgram",
		inner:    stubTranscriber{text: "  the cat sat.   i saw it  "},
		opts:     transcript.Options{CapitalizeSentences: true},
		observer: observer,
		logger:   loggerOrDiscard(nil),
	}

	text, err := tr.Transcribe(context.Background(), audio.Clip{})
	require.NoError(t, err)
	require.Equal(t, "The cat sat.   I saw it", text)
	require.Equal(t, []callRecord{{stage: "transcription", backend: "deepgram"}}, observer.calls)
}

func TestInstrumentedTranscriberKeepsStoryAboveLengthGuard(t *testing.T) {
	tr := &instrumentedTranscriber{
		backend:  "gemini",
		inner:    stubTranscriber{text: "hi    there"},
		opts:     transcript.Options{CapitalizeSentences: true},
		observer: &fakeObserver{},
		logger:   loggerOrDiscard(nil),
	}

	text, err := tr.Transcribe(context.Background(), audio.Clip{})
	require.NoError(t, err)

	out, err := fsm.Transition(fsm.ProcessingStory{}, fsm.Session{}, fsm.StoryTranscribed{Text: text}, fsm.DefaultRules())
	require.NoError(t, err)
	require.Equal(t, fsm.ProcessingStory{}, out.State)
	require.Equal(t, []fsm.Effect{fsm.EffectGenerateQuestions}, out.Effects)
	require.Equal(t, "Hi    there", out.Session.StoryText)
}

func TestInstrumentedTranscriberPassesErrors(t *testing.T) {
	observer := &fakeObserver{}
	boom := errors.New("boom")
	tr := &instrumentedTranscriber{backend: "gemini", inner: stubTranscriber{err: boom}, observer: observer, logger: loggerOrDiscard(nil)}

	_, err := tr.Transcribe(context.Background(), audio.Clip{})
	require.ErrorIs(t, err, boom)
	require.Len(t, observer.calls, 1)
	require.ErrorIs(t, observer.calls[0].err, boom)
}

func TestInstrumentedQuestionsObserves(t *testing.T) {
	observer := &fakeObserver{}
	q := &instrumentedQuestions{
		backend:  "ollama",
		inner:    stubQuestions{questions: []string{"Who?"}},
		observer: observer,
		logger:   loggerOrDiscard(nil),
	}

	got, err := q.GenerateQuestions(context.Background(), "story")
	require.NoError(t, err)
	require.Equal(t, []string{"Who?"}, got)
	require.Equal(t, []callRecord{{stage: "questions", backend: "ollama"}}, observer.calls)
}

func TestUnavailableReportsCause(t *testing.T) {
	u := Unavailable{Err: errors.New("GEMINI_API_KEY is not set")}

	_, err := u.Transcribe(context.Background(), audio.Clip{})
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
	require.ErrorContains(t, err, "GEMINI_API_KEY")

	_, err = u.GenerateQuestions(context.Background(), "story")
	require.ErrorIs(t, err, session.ErrPipelineUnavailable)
}
