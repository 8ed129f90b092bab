package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape sequence")
)

// parseCommand splits raw into argv with shell-like quoting. A blank line or
// one starting with # yields an empty command.
func parseCommand(raw string) (CommandConfig, error) {
	argv, err := splitWords(raw)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("%w in command: %q", err, raw)
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := parseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

// wordSplitter accumulates words one rune at a time. It understands single
// and double quotes and backslash escapes; there is no variable expansion.
// An empty quoted pair is kept as an empty word.
type wordSplitter struct {
	words   []string
	word    strings.Builder
	inWord  bool
	quote   rune
	escaped bool
}

func (s *wordSplitter) feed(r rune) {
	switch {
	case s.escaped:
		s.escaped = false
		s.keep(r)
	case r == '\\':
		s.escaped = true
	case s.quote == r:
		s.quote = 0
	case s.quote != 0:
		s.keep(r)
	case r == '"' || r == '\'':
		s.quote = r
		s.inWord = true
	case unicode.IsSpace(r):
		s.endWord()
	default:
		s.keep(r)
	}
}

func (s *wordSplitter) keep(r rune) {
	s.word.WriteRune(r)
	s.inWord = true
}

func (s *wordSplitter) endWord() {
	if s.inWord {
		s.words = append(s.words, s.word.String())
	}
	s.word.Reset()
	s.inWord = false
}

func splitWords(raw string) ([]string, error) {
	line := strings.TrimSpace(raw)
	if line == "" || line[0] == '#' {
		return nil, nil
	}

	var s wordSplitter
	for _, r := range line {
		s.feed(r)
	}
	switch {
	case s.escaped:
		return nil, errOpenEscape
	case s.quote != 0:
		return nil, errOpenQuote
	}
	s.endWord()
	return s.words, nil
}
