package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errBlockComment = errors.New("unterminated block comment in JSONC")

// decodeJSONC strictly decodes one JSONC document. Unknown keys and trailing
// documents are errors.
func decodeJSONC(content string) (fileConfig, error) {
	plain, err := normalizeJSONC(content)
	if err != nil {
		return fileConfig{}, err
	}

	dec := json.NewDecoder(strings.NewReader(plain))
	dec.DisallowUnknownFields()

	var payload fileConfig
	if err := dec.Decode(&payload); err != nil {
		return fileConfig{}, locate(plain, err)
	}
	if err := ensureSingleJSONValue(dec); err != nil {
		return fileConfig{}, locate(plain, err)
	}
	return payload, nil
}

// jsoncStripper rewrites comments and trailing commas to spaces. Output has
// the same length as input, so decoder offsets stay valid.
type jsoncStripper struct {
	src []byte
	pos int
	// comma is the offset of the last comma not yet followed by a value.
	comma int
}

func normalizeJSONC(content string) (string, error) {
	s := jsoncStripper{src: []byte(content), comma: -1}
	for s.pos < len(s.src) {
		if err := s.step(); err != nil {
			return "", err
		}
	}
	return string(s.src), nil
}

func (s *jsoncStripper) step() error {
	ch := s.src[s.pos]
	switch {
	case ch == '"':
		s.comma = -1
		s.skipString()
		return nil
	case s.lookingAt("//"):
		s.blankUntil(s.lineEnd())
		return nil
	case s.lookingAt("/*"):
		end := bytes.Index(s.src[s.pos+2:], []byte("*/"))
		if end < 0 {
			return errBlockComment
		}
		s.blankUntil(s.pos + 2 + end + 2)
		return nil
	case ch == ',':
		s.comma = s.pos
	case ch == '}' || ch == ']':
		if s.comma >= 0 {
			s.src[s.comma] = ' '
		}
		s.comma = -1
	case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
	default:
		s.comma = -1
	}
	s.pos++
	return nil
}

func (s *jsoncStripper) lookingAt(prefix string) bool {
	return bytes.HasPrefix(s.src[s.pos:], []byte(prefix))
}

func (s *jsoncStripper) lineEnd() int {
	for i := s.pos; i < len(s.src); i++ {
		if s.src[i] == '\n' || s.src[i] == '\r' {
			return i
		}
	}
	return len(s.src)
}

// blankUntil spaces out src[pos:end] but keeps line breaks and tabs so line
// numbers survive.
func (s *jsoncStripper) blankUntil(end int) {
	for ; s.pos < end; s.pos++ {
		switch s.src[s.pos] {
		case '\n', '\r', '\t':
		default:
			s.src[s.pos] = ' '
		}
	}
}

// skipString advances past a string literal starting at pos.
func (s *jsoncStripper) skipString() {
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '"':
			s.pos++
			return
		}
		s.pos++
	}
}

func ensureSingleJSONValue(dec *json.Decoder) error {
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return err
	default:
		return errors.New("multiple JSON values are not allowed")
	}
}

// locate prefixes decoder errors with a line and column.
func locate(content string, err error) error {
	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}
	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol maps a decoder offset, which points just past the
// offending byte, to a 1-based line and column.
func offsetToLineCol(content string, offset int64) (int, int) {
	at := int(max(min(offset, int64(len(content)))-1, 0))
	before := content[:at]
	line := strings.Count(before, "\n") + 1
	col := at - strings.LastIndexByte(before, '\n')
	return line, col
}
