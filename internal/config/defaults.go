package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	clipboard := "wl-copy --trim-newline"

	return Config{
		Transcription: TranscriptionConfig{Backend: BackendGemini, Language: "en"},
		Questions:     QuestionsConfig{Backend: BackendGemini, Max: 5},
		Gemini: GeminiConfig{
			TranscriptionModel: "gemini-2.5-flash",
			QuestionsModel:     "gemini-2.5-flash",
		},
		OpenAI: OpenAIConfig{
			BaseURL:            "https://api.openai.com/v1",
			TranscriptionModel: "whisper-1",
			QuestionsModel:     "gpt-4o-mini",
		},
		Deepgram: DeepgramConfig{
			URL:   "wss://api.deepgram.com/v1/listen",
			Model: "nova-3",
		},
		Ollama: OllamaConfig{
			Host:  "http://127.0.0.1:11434",
			Model: "llama3.2",
		},
		Session: SessionConfig{
			StoryTimeout:   60 * time.Second,
			MinStoryChars:  10,
			CopiedFlash:    2500 * time.Millisecond,
			NoticeDuration: 3 * time.Second,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Transcript: TranscriptConfig{CapitalizeSentences: true},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "recite-indicator",
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Clipboard: mustParseCommand(clipboard),
		Share:     ShareConfig{CancelExitCodes: []int{130}},
		Debug:     DebugConfig{},
	}
}
