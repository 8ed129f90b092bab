// Package openai transcribes clips with Whisper and writes questions with a
// chat completion model.
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaigo "github.com/sashabaranov/go-openai"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/quiz"
)

type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	QuestionsModel     string
	Language           string
	MaxQuestions       int
	HTTPClient         *http.Client
}

type Client struct {
	cfg    Config
	client *openaigo.Client
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai: OPENAI_API_KEY is not set")
	}
	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return &Client{cfg: cfg, client: openaigo.NewClientWithConfig(clientCfg)}, nil
}

// Transcribe uploads the clip as a WAV file.
func (c *Client) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Empty() {
		return "", nil
	}
	resp, err := c.client.CreateTranscription(ctx, openaigo.AudioRequest{
		Model:    c.cfg.TranscriptionModel,
		FilePath: "recording.wav",
		Reader:   bytes.NewReader(clip.WAV()),
		Language: strings.TrimSpace(c.cfg.Language),
		Format:   openaigo.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// GenerateQuestions requests a JSON object reply of the form
// {"questions": [...]}.
func (c *Client) GenerateQuestions(ctx context.Context, story string) ([]string, error) {
	prompt := quiz.Prompt(story, c.cfg.MaxQuestions) +
		"\n\nWrap the array in a JSON object under the key \"questions\"."

	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.cfg.QuestionsModel,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: quiz.SystemInstruction},
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.4,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai questions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai questions: empty response")
	}

	questions, err := quiz.ParseQuestions(resp.Choices[0].Message.Content, c.cfg.MaxQuestions)
	if err != nil {
		return nil, fmt.Errorf("openai questions: %w", err)
	}
	return questions, nil
}
