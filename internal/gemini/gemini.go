// Package gemini transcribes clips and writes comprehension questions with
// the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/rbright/recite/internal/audio"
	"github.com/rbright/recite/internal/quiz"
	"github.com/rbright/recite/internal/version"
)

// Config selects models and bounds question output.
type Config struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	QuestionsModel     string
	Language           string
	MaxQuestions       int
	HTTPClient         *http.Client
}

// Client serves both the transcription and question roles.
type Client struct {
	cfg    Config
	models *genai.Models
}

// New connects a Gemini API client. It performs no network I/O.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is not set")
	}
	headers := http.Header{}
	headers.Set("User-Agent", version.UserAgent())

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
			Headers: headers,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Client{cfg: cfg, models: client.Models}, nil
}

// Transcribe sends the clip as inline WAV and returns the verbatim transcript.
func (c *Client) Transcribe(ctx context.Context, clip audio.Clip) (string, error) {
	if clip.Empty() {
		return "", nil
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(transcriptionPrompt(c.cfg.Language)),
			genai.NewPartFromBytes(clip.WAV(), "audio/wav"),
		}, genai.RoleUser),
	}
	resp, err := c.models.GenerateContent(ctx, c.cfg.TranscriptionModel, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// GenerateQuestions asks for a JSON array of questions about story.
func (c *Client) GenerateQuestions(ctx context.Context, story string) ([]string, error) {
	contents := genai.Text(quiz.Prompt(story, c.cfg.MaxQuestions))
	resp, err := c.models.GenerateContent(ctx, c.cfg.QuestionsModel, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(quiz.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini questions: %w", err)
	}
	questions, err := quiz.ParseQuestions(resp.Text(), c.cfg.MaxQuestions)
	if err != nil {
		return nil, fmt.Errorf("gemini questions: %w", err)
	}
	return questions, nil
}

func transcriptionPrompt(language string) string {
	prompt := "Transcribe this recording of a child reading aloud. " +
		"Return only the words spoken, with normal punctuation. " +
		"Do not describe the audio and do not add commentary."
	if lang := strings.TrimSpace(language); lang != "" {
		prompt += " The speech is in language code " + lang + "."
	}
	return prompt
}
