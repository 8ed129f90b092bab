package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONC(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]any
	}{
		{
			name: "comments and trailing commas",
			input: `{
  // which model writes the questions
  "questions": {"max": 3, /* keep it short */},
  "tags": ["story", "quiz",],
}`,
			want: map[string]any{
				"questions": map[string]any{"max": float64(3)},
				"tags":      []any{"story", "quiz"},
			},
		},
		{
			name:  "comment markers inside strings",
			input: `{"url":"http://localhost:11434/*x*/", "note":"a, ]",}`,
			want:  map[string]any{"url": "http://localhost:11434/*x*/", "note": "a, ]"},
		},
		{
			name:  "escaped quote",
			input: `{"say":"\"hi\" // still text"}`,
			want:  map[string]any{"say": `"hi" // still text`},
		},
		{
			name:  "comment at end of input",
			input: "{\"a\":1} // done",
			want:  map[string]any{"a": float64(1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plain, err := normalizeJSONC(tt.input)
			require.NoError(t, err)
			require.Len(t, plain, len(tt.input))
			require.Equal(t, strings.Count(tt.input, "\n"), strings.Count(plain, "\n"))

			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(plain), &got))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeJSONCUnterminatedBlockComment(t *testing.T) {
	_, err := normalizeJSONC(`{"a": 1 /* never closed`)
	require.ErrorIs(t, err, errBlockComment)
}

func TestEnsureSingleJSONValue(t *testing.T) {
	dec := json.NewDecoder(strings.NewReader(`{"a":1} [2]`))
	var first map[string]any
	require.NoError(t, dec.Decode(&first))
	require.ErrorContains(t, ensureSingleJSONValue(dec), "multiple JSON values")

	dec = json.NewDecoder(strings.NewReader("{\"a\":1}\n\n"))
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, ensureSingleJSONValue(dec))
}

func TestOffsetToLineCol(t *testing.T) {
	content := "{\n  \"a\": x\n}"
	cases := []struct {
		offset    int64
		line, col int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{5, 2, 3},
		{11, 2, 9},
		{999, 3, 1},
	}
	for _, c := range cases {
		line, col := offsetToLineCol(content, c.offset)
		require.Equal(t, [2]int{c.line, c.col}, [2]int{line, col}, c.offset)
	}
}

func TestParseJSONCOverlaysDefaults(t *testing.T) {
	cfg, _, err := Parse(`{
  // switch question generation to a local model
  "questions": {"backend": " Ollama ", "max": 3},
  "ollama": {"model": "qwen2.5"},
  "session": {
    "story_timeout": "45s",
    "copied_flash": 1500,
  },
  "share_cmd": "share-text --title 'Reading practice'",
}`, Default())
	require.NoError(t, err)
	require.Equal(t, BackendOllama, cfg.Questions.Backend)
	require.Equal(t, 3, cfg.Questions.Max)
	require.Equal(t, "qwen2.5", cfg.Ollama.Model)
	require.Equal(t, 45*time.Second, cfg.Session.StoryTimeout)
	require.Equal(t, 1500*time.Millisecond, cfg.Session.CopiedFlash)
	require.Equal(t, 3*time.Second, cfg.Session.NoticeDuration)
	require.Equal(t, []string{"share-text", "--title", "Reading practice"}, cfg.Share.Command.Argv)
	require.Equal(t, BackendGemini, cfg.Transcription.Backend)
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := Parse(`{"clipboard_cmd":"unterminated ' quote"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid clipboard_cmd")

	_, _, err = Parse(`{"share_cmd":"unterminated ' quote"}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid share_cmd")
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := Parse(`{"vosk": {"model": "small-en"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsBadDuration(t *testing.T) {
	_, _, err := Parse(`{"session": {"story_timeout": "a minute"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid duration")
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := Parse(`{
  "questions": {"max": "five"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
	require.Contains(t, err.Error(), "column")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := Parse(`{"debug":{"audio_dump":false}}{"debug":{"audio_dump":true}}`, Default())
	require.Error(t, err)
}
