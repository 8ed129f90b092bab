// Package ollama writes comprehension questions with a local Ollama model.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/rbright/recite/internal/quiz"
)

type Config struct {
	Host         string
	Model        string
	MaxQuestions int
	HTTPClient   *http.Client
}

type Client struct {
	cfg    Config
	client *api.Client
}

// New builds a client for Host, which may carry a trailing /v1 from an
// OpenAI-compatible setup.
func New(cfg Config) (*Client, error) {
	host := strings.TrimSuffix(strings.TrimSpace(cfg.Host), "/")
	host = strings.TrimSuffix(host, "/v1")
	base, err := url.Parse(host)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama: invalid host %q", cfg.Host)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{cfg: cfg, client: api.NewClient(base, httpClient)}, nil
}

func (c *Client) GenerateQuestions(ctx context.Context, story string) ([]string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.cfg.Model,
		Messages: []api.Message{
			{Role: "system", Content: quiz.SystemInstruction},
			{Role: "user", Content: quiz.Prompt(story, c.cfg.MaxQuestions)},
		},
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
		Options: map[string]any{
			"temperature": 0.4,
		},
	}

	var reply strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama questions: %w", err)
	}

	questions, err := quiz.ParseQuestions(reply.String(), c.cfg.MaxQuestions)
	if err != nil {
		return nil, fmt.Errorf("ollama questions: %w", err)
	}
	return questions, nil
}

// Ping checks that the server answers and reports its version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	v, err := c.client.Version(ctx)
	if err != nil {
		return "", fmt.Errorf("ollama version: %w", err)
	}
	return v, nil
}
