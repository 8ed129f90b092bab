// Package config resolves, parses, validates, and defaults recite configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by recite.
type Config struct {
	Transcription TranscriptionConfig
	Questions     QuestionsConfig
	Gemini        GeminiConfig
	OpenAI        OpenAIConfig
	Deepgram      DeepgramConfig
	Ollama        OllamaConfig
	Session       SessionConfig
	Audio         AudioConfig
	Transcript    TranscriptConfig
	Indicator     IndicatorConfig
	Clipboard     CommandConfig
	Share         ShareConfig
	Metrics       MetricsConfig
	Debug         DebugConfig
}

// Backend names accepted by transcription.backend and questions.backend.
const (
	BackendGemini   = "gemini"
	BackendOpenAI   = "openai"
	BackendDeepgram = "deepgram"
	BackendOllama   = "ollama"
)

// TranscriptionConfig selects the speech-to-text backend.
type TranscriptionConfig struct {
	Backend  string
	Language string
}

// QuestionsConfig selects the question backend and bounds its output.
type QuestionsConfig struct {
	Backend string
	Max     int
}

type GeminiConfig struct {
	APIKey             string
	TranscriptionModel string
	QuestionsModel     string
}

type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	TranscriptionModel string
	QuestionsModel     string
}

type DeepgramConfig struct {
	APIKey string
	URL    string
	Model  string
}

type OllamaConfig struct {
	Host  string
	Model string
}

// SessionConfig holds controller timings and the story length guard.
type SessionConfig struct {
	StoryTimeout   time.Duration
	MinStoryChars  int
	CopiedFlash    time.Duration
	NoticeDuration time.Duration
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// TranscriptConfig controls transcript normalization.
type TranscriptConfig struct {
	CapitalizeSentences bool
}

// IndicatorConfig controls visual indicator and audio cue behavior.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	SoundEnable       bool
	SoundStartFile    string
	SoundStopFile     string
	SoundCompleteFile string
	SoundCancelFile   string
	TextRecording     string
	TextProcessing    string
	TextError         string
	ErrorTimeoutMS    int
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// ShareConfig configures the external share command. Exit codes listed in
// CancelExitCodes mean the user dismissed the share target.
type ShareConfig struct {
	Command         CommandConfig
	CancelExitCodes []int
}

type MetricsConfig struct {
	Textfile string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
