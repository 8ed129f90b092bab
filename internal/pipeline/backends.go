package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/config"
	"github.com/rbright/recite/internal/deepgram"
	"github.com/rbright/recite/internal/gemini"
	"github.com/rbright/recite/internal/ollama"
	"github.com/rbright/recite/internal/openai"
	"github.com/rbright/recite/internal/session"
	"github.com/rbright/recite/internal/transcript"
)

// CallObserver is notified after every backend call.
type CallObserver interface {
	ObserveCall(stage, backend string, elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveCall(string, string, time.Duration, error) {}

// NewTranscriber builds the configured speech-to-text backend. Transcripts are
// whitespace-normalized and sentence-cased before they reach the session.
func NewTranscriber(ctx context.Context, cfg config.Config, observer CallObserver, logger *slog.Logger) (session.Transcriber, error) {
	backend := cfg.Transcription.Backend
	var inner session.Transcriber
	switch backend {
	case config.BackendGemini:
		client, err := gemini.New(ctx, geminiConfig(cfg))
		if err != nil {
			return nil, err
		}
		inner = client
	case config.BackendOpenAI:
		client, err := openai.New(openaiConfig(cfg))
		if err != nil {
			return nil, err
		}
		inner = client
	case config.BackendDeepgram:
		client, err := deepgram.New(deepgram.Config{
			APIKey:   cfg.Deepgram.APIKey,
			URL:      cfg.Deepgram.URL,
			Model:    cfg.Deepgram.Model,
			Language: cfg.Transcription.Language,
		})
		if err != nil {
			return nil, err
		}
		inner = client
	default:
		return nil, fmt.Errorf("unsupported transcription backend %q", backend)
	}

	return &instrumentedTranscriber{
		backend:  backend,
		inner:    inner,
		opts:     transcript.Options{CapitalizeSentences: cfg.Transcript.CapitalizeSentences},
		observer: observerOrNoop(observer),
		logger:   loggerOrDiscard(logger),
	}, nil
}

// NewQuestionGenerator builds the configured question backend.
func NewQuestionGenerator(ctx context.Context, cfg config.Config, observer CallObserver, logger *slog.Logger) (session.QuestionGenerator, error) {
	backend := cfg.Questions.Backend
	var inner session.QuestionGenerator
	switch backend {
	case config.BackendGemini:
		client, err := gemini.New(ctx, geminiConfig(cfg))
		if err != nil {
			return nil, err
		}
		inner = client
	case config.BackendOpenAI:
		client, err := openai.New(openaiConfig(cfg))
		if err != nil {
			return nil, err
		}
		inner = client
	case config.BackendOllama:
		client, err := ollama.New(ollama.Config{
			Host:         cfg.Ollama.Host,
			Model:        cfg.Ollama.Model,
			MaxQuestions: cfg.Questions.Max,
		})
		if err != nil {
			return nil, err
		}
		inner = client
	default:
		return nil, fmt.Errorf("unsupported questions backend %q", backend)
	}

	return &instrumentedQuestions{
		backend:  backend,
		inner:    inner,
		observer: observerOrNoop(observer),
		logger:   loggerOrDiscard(logger),
	}, nil
}

func geminiConfig(cfg config.Config) gemini.Config {
	return gemini.Config{
		APIKey:             cfg.Gemini.APIKey,
		TranscriptionModel: cfg.Gemini.TranscriptionModel,
		QuestionsModel:     cfg.Gemini.QuestionsModel,
		Language:           cfg.Transcription.Language,
		MaxQuestions:       cfg.Questions.Max,
	}
}

func openaiConfig(cfg config.Config) openai.Config {
	return openai.Config{
		APIKey:             cfg.OpenAI.APIKey,
		BaseURL:            cfg.OpenAI.BaseURL,
		TranscriptionModel: cfg.OpenAI.TranscriptionModel,
		QuestionsModel:     cfg.OpenAI.QuestionsModel,
		Language:           cfg.Transcription.Language,
		MaxQuestions:       cfg.Questions.Max,
	}
}

type instrumentedTranscriber struct {
	backend  string
	inner    session.Transcriber
	opts     transcript.Options
	observer CallObserver
	logger   *slog.Logger
}

func (t *instrumentedTranscriber) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	started := time.Now()
	text, err := t.inner.Transcribe(ctx, clip)
	elapsed := time.Since(started)
	t.observer.ObserveCall("transcription", t.backend, elapsed, err)
	if err != nil {
		return "", err
	}

	normalized := transcript.Normalize(text, t.opts)
	t.logger.Debug("transcription complete",
		"backend", t.backend,
		"latency_ms", elapsed.Milliseconds(),
		"audio_ms", clip.Duration().Milliseconds(),
		"chars", len(normalized),
	)
	return normalized, nil
}

type instrumentedQuestions struct {
	backend  string
	inner    session.QuestionGenerator
	observer CallObserver
	logger   *slog.Logger
}

func (q *instrumentedQuestions) GenerateQuestions(ctx context.Context, story string) ([]string, error) {
	started := time.Now()
	questions, err := q.inner.GenerateQuestions(ctx, story)
	elapsed := time.Since(started)
	q.observer.ObserveCall("questions", q.backend, elapsed, err)
	if err != nil {
		return nil, err
	}
	q.logger.Debug("questions generated", "backend", q.backend, "latency_ms", elapsed.Milliseconds(), "count", len(questions))
	return questions, nil
}

// Unavailable stands in for a backend that could not be constructed; every
// call reports err so the session shows why.
type Unavailable struct {
	Err error
}

func (u Unavailable) Transcribe(context.Context, audio.Clip) (string, error) {
	return "", fmt.Errorf("%w: %v", session.ErrPipelineUnavailable, u.Err)
}

func (u Unavailable) GenerateQuestions(context.Context, string) ([]string, error) {
	return nil, fmt.Errorf("%w: %v", session.ErrPipelineUnavailable, u.Err)
}

func observerOrNoop(observer CallObserver) CallObserver {
	if observer == nil {
		return noopObserver{}
	}
	return observer
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
