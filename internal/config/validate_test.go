package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsWarnAboutCredentials(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "GEMINI_API_KEY")
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"transcription backend", func(c *Config) { c.Transcription.Backend = "ollama" }, "transcription.backend"},
		{"questions backend", func(c *Config) { c.Questions.Backend = "deepgram" }, "questions.backend"},
		{"questions max", func(c *Config) { c.Questions.Max = 0 }, "questions.max"},
		{"questions max high", func(c *Config) { c.Questions.Max = 21 }, "questions.max"},
		{"story timeout", func(c *Config) { c.Session.StoryTimeout = 0 }, "session.story_timeout"},
		{"copied flash", func(c *Config) { c.Session.CopiedFlash = -1 }, "session.copied_flash"},
		{"notice", func(c *Config) { c.Session.NoticeDuration = 0 }, "session.notice_duration"},
		{"min chars", func(c *Config) { c.Session.MinStoryChars = 0 }, "session.min_story_chars"},
		{"indicator backend", func(c *Config) { c.Indicator.Backend = "waybar" }, "indicator.backend"},
		{"desktop app name", func(c *Config) {
			c.Indicator.Backend = "desktop"
			c.Indicator.DesktopAppName = " "
		}, "desktop_app_name"},
		{"error timeout", func(c *Config) { c.Indicator.ErrorTimeoutMS = -1 }, "error_timeout_ms"},
		{"ollama host", func(c *Config) {
			c.Questions.Backend = BackendOllama
			c.Ollama.Host = "localhost"
		}, "ollama.host"},
		{"openai url", func(c *Config) {
			c.Transcription.Backend = BackendOpenAI
			c.OpenAI.BaseURL = ""
		}, "openai.base_url"},
		{"share cmd", func(c *Config) { c.Share.Command = CommandConfig{Raw: "# disabled"} }, "share_cmd"},
		{"cancel codes", func(c *Config) { c.Share.CancelExitCodes = []int{0} }, "cancel_exit_codes"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateIgnoresUnusedBackendEndpoints(t *testing.T) {
	cfg := Default()
	cfg.Ollama.Host = ""
	cfg.Deepgram.URL = ""
	cfg.Gemini.APIKey = "key"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateWarnsOnEmptyClipboardCommand(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "key"
	cfg.Clipboard = CommandConfig{}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "built-in clipboard")
}

func TestMissingCredentials(t *testing.T) {
	cfg := Default()
	cfg.Transcription.Backend = BackendDeepgram
	cfg.Questions.Backend = BackendOpenAI
	require.Equal(t, []string{"OPENAI_API_KEY", "DEEPGRAM_API_KEY"}, MissingCredentials(cfg))

	cfg.OpenAI.APIKey = "sk"
	cfg.Deepgram.APIKey = "dg"
	require.Empty(t, MissingCredentials(cfg))
}
