package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Env is the environment-sourced portion of the configuration.
type Env struct {
	GeminiAPIKey   string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL  string `envconfig:"OPENAI_BASE_URL"`
	DeepgramAPIKey string `envconfig:"DEEPGRAM_API_KEY"`
	OllamaHost     string `envconfig:"OLLAMA_HOST"`

	TranscriptionBackend string `envconfig:"RECITE_TRANSCRIPTION_BACKEND"`
	QuestionsBackend     string `envconfig:"RECITE_QUESTIONS_BACKEND"`
	MetricsTextfile      string `envconfig:"RECITE_METRICS_TEXTFILE"`
	AudioDump            *bool  `envconfig:"RECITE_AUDIO_DUMP"`
}

// LoadDotenv loads KEY=value pairs from the given files (default ".env")
// without overriding variables that are already set. Missing files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ReadEnv decodes the recognized environment variables.
func ReadEnv() (Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	return env, nil
}

// ApplyEnv overlays env onto cfg. Credentials only ever come from here.
func ApplyEnv(cfg *Config, env Env) {
	cfg.Gemini.APIKey = strings.TrimSpace(env.GeminiAPIKey)
	cfg.OpenAI.APIKey = strings.TrimSpace(env.OpenAIAPIKey)
	cfg.Deepgram.APIKey = strings.TrimSpace(env.DeepgramAPIKey)

	if v := strings.TrimSpace(env.OpenAIBaseURL); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := strings.TrimSpace(env.OllamaHost); v != "" {
		cfg.Ollama.Host = normalizeOllamaHost(v)
	}
	if v := strings.TrimSpace(env.TranscriptionBackend); v != "" {
		cfg.Transcription.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env.QuestionsBackend); v != "" {
		cfg.Questions.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(env.MetricsTextfile); v != "" {
		cfg.Metrics.Textfile = v
	}
	if env.AudioDump != nil {
		cfg.Debug.EnableAudioDump = *env.AudioDump
	}
}

// normalizeOllamaHost accepts the bare host:port form ollama itself allows.
func normalizeOllamaHost(host string) string {
	if strings.Contains(host, "://") {
		return host
	}
	return "http://" + host
}
