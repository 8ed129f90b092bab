package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rbright/recite/internal/audio"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Config{
		APIKey:             "sk-test",
		BaseURL:            server.URL + "/v1/",
		TranscriptionModel: "whisper-1",
		QuestionsModel:     "gpt-4o-mini",
		Language:           "en",
		MaxQuestions:       3,
		HTTPClient:         server.Client(),
	})
	require.NoError(t, err)
	return client
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestTranscribeUploadsWAV(t *testing.T) {
	var gotModel, gotLanguage, gotFilename string
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotModel = r.FormValue("model")
		gotLanguage = r.FormValue("language")
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		gotFilename = header.Filename

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":" The cat sat on the mat. "}`))
	})

	clip := audio.Clip{PCM: make([]byte, 3200), SampleRate: audio.SampleRate, Channels: audio.Channels}
	text, err := client.Transcribe(context.Background(), clip)
	require.NoError(t, err)
	require.Equal(t, "The cat sat on the mat.", text)
	require.Equal(t, "whisper-1", gotModel)
	require.Equal(t, "en", gotLanguage)
	require.Equal(t, "recording.wav", gotFilename)
}

func TestGenerateQuestionsUsesJSONObjectMode(t *testing.T) {
	var request map[string]any
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&request))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"choices": []any{map[string]any{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": `{"questions": ["Where did the cat sit?", "How long did it sit?"]}`,
				},
				"finish_reason": "stop",
			}},
		})
	})

	questions, err := client.GenerateQuestions(context.Background(), "The cat sat on the mat all day.")
	require.NoError(t, err)
	require.Equal(t, []string{"Where did the cat sit?", "How long did it sit?"}, questions)

	require.Equal(t, "gpt-4o-mini", request["model"])
	format, ok := request["response_format"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "json_object", format["type"])
}

func TestGenerateQuestionsAPIError(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	})

	_, err := client.GenerateQuestions(context.Background(), "story")
	require.ErrorContains(t, err, "openai questions")
	require.ErrorContains(t, err, "rate limited")
}

func TestGenerateQuestionsNoChoices(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.GenerateQuestions(context.Background(), "story")
	require.ErrorContains(t, err, "empty response")
}
