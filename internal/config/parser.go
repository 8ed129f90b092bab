package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Parse reads configuration content as JSONC or YAML and overlays it onto base.
//
// JSONC is selected when the first non-whitespace character is `{`.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	var (
		payload fileConfig
		err     error
	)
	if strings.HasPrefix(trimmed, "{") {
		payload, err = decodeJSONC(content)
	} else {
		payload, err = decodeYAML(content)
	}
	if err != nil {
		return Config{}, nil, err
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

// fileConfig is the on-disk shape shared by the JSONC and YAML formats.
// Nil fields leave the base value untouched.
type fileConfig struct {
	Transcription *fileTranscription `json:"transcription" yaml:"transcription"`
	Questions     *fileQuestions     `json:"questions" yaml:"questions"`
	Gemini        *fileGemini        `json:"gemini" yaml:"gemini"`
	OpenAI        *fileOpenAI        `json:"openai" yaml:"openai"`
	Deepgram      *fileDeepgram      `json:"deepgram" yaml:"deepgram"`
	Ollama        *fileOllama        `json:"ollama" yaml:"ollama"`
	Session       *fileSession       `json:"session" yaml:"session"`
	Audio         *fileAudio         `json:"audio" yaml:"audio"`
	Transcript    *fileTranscript    `json:"transcript" yaml:"transcript"`
	Indicator     *fileIndicator     `json:"indicator" yaml:"indicator"`
	Share         *fileShare         `json:"share" yaml:"share"`
	Metrics       *fileMetrics       `json:"metrics" yaml:"metrics"`
	Debug         *fileDebug         `json:"debug" yaml:"debug"`

	ClipboardCmd *string `json:"clipboard_cmd" yaml:"clipboard_cmd"`
	ShareCmd     *string `json:"share_cmd" yaml:"share_cmd"`
}

type fileTranscription struct {
	Backend  *string `json:"backend" yaml:"backend"`
	Language *string `json:"language" yaml:"language"`
}

type fileQuestions struct {
	Backend *string `json:"backend" yaml:"backend"`
	Max     *int    `json:"max" yaml:"max"`
}

type fileGemini struct {
	TranscriptionModel *string `json:"transcription_model" yaml:"transcription_model"`
	QuestionsModel     *string `json:"questions_model" yaml:"questions_model"`
}

type fileOpenAI struct {
	BaseURL            *string `json:"base_url" yaml:"base_url"`
	TranscriptionModel *string `json:"transcription_model" yaml:"transcription_model"`
	QuestionsModel     *string `json:"questions_model" yaml:"questions_model"`
}

type fileDeepgram struct {
	URL   *string `json:"url" yaml:"url"`
	Model *string `json:"model" yaml:"model"`
}

type fileOllama struct {
	Host  *string `json:"host" yaml:"host"`
	Model *string `json:"model" yaml:"model"`
}

type fileSession struct {
	StoryTimeout   *durationValue `json:"story_timeout" yaml:"story_timeout"`
	MinStoryChars  *int           `json:"min_story_chars" yaml:"min_story_chars"`
	CopiedFlash    *durationValue `json:"copied_flash" yaml:"copied_flash"`
	NoticeDuration *durationValue `json:"notice_duration" yaml:"notice_duration"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileTranscript struct {
	CapitalizeSentences *bool `json:"capitalize_sentences" yaml:"capitalize_sentences"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable"`
	Backend           *string `json:"backend" yaml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable"`
	SoundStartFile    *string `json:"sound_start_file" yaml:"sound_start_file"`
	SoundStopFile     *string `json:"sound_stop_file" yaml:"sound_stop_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file"`
	SoundCancelFile   *string `json:"sound_cancel_file" yaml:"sound_cancel_file"`
	TextRecording     *string `json:"text_recording" yaml:"text_recording"`
	TextProcessing    *string `json:"text_processing" yaml:"text_processing"`
	TextError         *string `json:"text_error" yaml:"text_error"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileShare struct {
	CancelExitCodes []int `json:"cancel_exit_codes" yaml:"cancel_exit_codes"`
}

type fileMetrics struct {
	Textfile *string `json:"textfile" yaml:"textfile"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if p := payload.Transcription; p != nil {
		setLower(&cfg.Transcription.Backend, p.Backend)
		setTrimmed(&cfg.Transcription.Language, p.Language)
	}
	if p := payload.Questions; p != nil {
		setLower(&cfg.Questions.Backend, p.Backend)
		set(&cfg.Questions.Max, p.Max)
	}
	if p := payload.Gemini; p != nil {
		setTrimmed(&cfg.Gemini.TranscriptionModel, p.TranscriptionModel)
		setTrimmed(&cfg.Gemini.QuestionsModel, p.QuestionsModel)
	}
	if p := payload.OpenAI; p != nil {
		setTrimmed(&cfg.OpenAI.BaseURL, p.BaseURL)
		setTrimmed(&cfg.OpenAI.TranscriptionModel, p.TranscriptionModel)
		setTrimmed(&cfg.OpenAI.QuestionsModel, p.QuestionsModel)
	}
	if p := payload.Deepgram; p != nil {
		setTrimmed(&cfg.Deepgram.URL, p.URL)
		setTrimmed(&cfg.Deepgram.Model, p.Model)
	}
	if p := payload.Ollama; p != nil {
		setTrimmed(&cfg.Ollama.Host, p.Host)
		setTrimmed(&cfg.Ollama.Model, p.Model)
	}
	if p := payload.Session; p != nil {
		setDuration(&cfg.Session.StoryTimeout, p.StoryTimeout)
		set(&cfg.Session.MinStoryChars, p.MinStoryChars)
		setDuration(&cfg.Session.CopiedFlash, p.CopiedFlash)
		setDuration(&cfg.Session.NoticeDuration, p.NoticeDuration)
	}
	if p := payload.Audio; p != nil {
		set(&cfg.Audio.Input, p.Input)
		set(&cfg.Audio.Fallback, p.Fallback)
	}
	if p := payload.Transcript; p != nil {
		set(&cfg.Transcript.CapitalizeSentences, p.CapitalizeSentences)
	}
	if p := payload.Indicator; p != nil {
		set(&cfg.Indicator.Enable, p.Enable)
		setTrimmed(&cfg.Indicator.Backend, p.Backend)
		setTrimmed(&cfg.Indicator.DesktopAppName, p.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, p.SoundEnable)
		setTrimmed(&cfg.Indicator.SoundStartFile, p.SoundStartFile)
		setTrimmed(&cfg.Indicator.SoundStopFile, p.SoundStopFile)
		setTrimmed(&cfg.Indicator.SoundCompleteFile, p.SoundCompleteFile)
		setTrimmed(&cfg.Indicator.SoundCancelFile, p.SoundCancelFile)
		set(&cfg.Indicator.TextRecording, p.TextRecording)
		set(&cfg.Indicator.TextProcessing, p.TextProcessing)
		set(&cfg.Indicator.TextError, p.TextError)
		set(&cfg.Indicator.ErrorTimeoutMS, p.ErrorTimeoutMS)
	}
	if p := payload.Share; p != nil && p.CancelExitCodes != nil {
		cfg.Share.CancelExitCodes = append([]int(nil), p.CancelExitCodes...)
	}
	if p := payload.Metrics; p != nil {
		setTrimmed(&cfg.Metrics.Textfile, p.Textfile)
	}
	if p := payload.Debug; p != nil {
		set(&cfg.Debug.EnableAudioDump, p.AudioDump)
	}

	if payload.ClipboardCmd != nil {
		command, err := parseCommand(*payload.ClipboardCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid clipboard_cmd: %w", err)
		}
		cfg.Clipboard = command
	}
	if payload.ShareCmd != nil {
		command, err := parseCommand(*payload.ShareCmd)
		if err != nil {
			return nil, fmt.Errorf("invalid share_cmd: %w", err)
		}
		cfg.Share.Command = command
	}

	return warnings, nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setLower(dst *string, src *string) {
	if src != nil {
		*dst = strings.ToLower(strings.TrimSpace(*src))
	}
}

func setDuration(dst *time.Duration, src *durationValue) {
	if src != nil {
		*dst = time.Duration(*src)
	}
}

// durationValue accepts Go duration strings ("2.5s") or integer milliseconds.
type durationValue time.Duration

func (d *durationValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return d.parse(text)
	}
	var ms float64
	if err := json.Unmarshal(data, &ms); err == nil {
		*d = durationValue(time.Duration(ms * float64(time.Millisecond)))
		return nil
	}
	return fmt.Errorf("expected duration string or milliseconds")
}

func (d *durationValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected duration string or milliseconds", node.Line)
	}
	switch node.ShortTag() {
	case "!!int", "!!float":
		var ms float64
		if err := node.Decode(&ms); err != nil {
			return err
		}
		*d = durationValue(time.Duration(ms * float64(time.Millisecond)))
		return nil
	default:
		if err := d.parse(node.Value); err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		return nil
	}
}

func (d *durationValue) parse(text string) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = durationValue(parsed)
	return nil
}
