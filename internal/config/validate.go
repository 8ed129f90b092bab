package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const maxQuestions = 20

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Transcription.Backend {
	case BackendGemini, BackendOpenAI, BackendDeepgram:
	default:
		return nil, fmt.Errorf("transcription.backend must be one of: gemini, openai, deepgram")
	}
	switch cfg.Questions.Backend {
	case BackendGemini, BackendOpenAI, BackendOllama:
	default:
		return nil, fmt.Errorf("questions.backend must be one of: gemini, openai, ollama")
	}
	if cfg.Questions.Max < 1 || cfg.Questions.Max > maxQuestions {
		return nil, fmt.Errorf("questions.max must be between 1 and %d", maxQuestions)
	}

	if err := positiveDuration("session.story_timeout", cfg.Session.StoryTimeout); err != nil {
		return nil, err
	}
	if err := positiveDuration("session.copied_flash", cfg.Session.CopiedFlash); err != nil {
		return nil, err
	}
	if err := positiveDuration("session.notice_duration", cfg.Session.NoticeDuration); err != nil {
		return nil, err
	}
	if cfg.Session.MinStoryChars < 1 {
		return nil, fmt.Errorf("session.min_story_chars must be > 0")
	}

	for _, endpoint := range []struct {
		key   string
		value string
		used  bool
	}{
		{"openai.base_url", cfg.OpenAI.BaseURL, usesBackend(cfg, BackendOpenAI)},
		{"deepgram.url", cfg.Deepgram.URL, cfg.Transcription.Backend == BackendDeepgram},
		{"ollama.host", cfg.Ollama.Host, cfg.Questions.Backend == BackendOllama},
	} {
		if !endpoint.used {
			continue
		}
		if err := validateURL(endpoint.key, endpoint.value); err != nil {
			return nil, err
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend == "" {
		return nil, fmt.Errorf("indicator.backend must not be empty")
	}
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}

	if cfg.Share.Command.Raw != "" && len(cfg.Share.Command.Argv) == 0 {
		return nil, fmt.Errorf("share_cmd is configured but empty")
	}
	for _, code := range cfg.Share.CancelExitCodes {
		if code < 1 || code > 255 {
			return nil, fmt.Errorf("share.cancel_exit_codes entries must be between 1 and 255, got %d", code)
		}
	}

	if len(cfg.Clipboard.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "clipboard_cmd is empty; using the built-in clipboard"})
	}
	for _, missing := range MissingCredentials(cfg) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("%s is not set; %s requests will fail", missing, backendForCredential(missing))})
	}

	return warnings, nil
}

// MissingCredentials lists the environment keys the selected backends need but lack.
func MissingCredentials(cfg Config) []string {
	var missing []string
	if usesBackend(cfg, BackendGemini) && strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if usesBackend(cfg, BackendOpenAI) && strings.TrimSpace(cfg.OpenAI.APIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if cfg.Transcription.Backend == BackendDeepgram && strings.TrimSpace(cfg.Deepgram.APIKey) == "" {
		missing = append(missing, "DEEPGRAM_API_KEY")
	}
	return missing
}

func usesBackend(cfg Config, backend string) bool {
	return cfg.Transcription.Backend == backend || cfg.Questions.Backend == backend
}

func backendForCredential(key string) string {
	switch key {
	case "GEMINI_API_KEY":
		return BackendGemini
	case "OPENAI_API_KEY":
		return BackendOpenAI
	default:
		return BackendDeepgram
	}
}

func positiveDuration(key string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be > 0", key)
	}
	return nil
}

func validateURL(key string, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%s must not be empty", key)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}
