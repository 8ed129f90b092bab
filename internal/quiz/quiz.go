// Package quiz builds comprehension-question prompts and parses model replies.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultMax is the question count used when a caller passes max <= 0.
const DefaultMax = 5

// ErrUnparseable marks a reply that held no recognizable question list.
var ErrUnparseable = errors.New("unrecognized question list")

// SystemInstruction frames the model as a reading tutor.
const SystemInstruction = "You are a friendly reading tutor for young children. " +
	"You write short, simple comprehension questions about stories children read aloud."

// Prompt asks for at most max questions about story, answered as a JSON array.
func Prompt(story string, max int) string {
	if max <= 0 {
		max = DefaultMax
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Write up to %d comprehension questions about the story below.\n", max)
	b.WriteString("Each question must be answerable from the story alone and use simple words.\n")
	b.WriteString("Order the questions as the events happen in the story.\n")
	b.WriteString("If the story is too short or unclear to ask about, return an empty array.\n")
	b.WriteString(`Reply with only a JSON array of strings, for example ["Who went to the park?"].`)
	b.WriteString("\n\nStory:\n")
	b.WriteString(strings.TrimSpace(story))
	return b.String()
}

var (
	fencePattern    = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	listItemPattern = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•]|Q\d+[:.)])\s*(.+)$`)
)

type questionEnvelope struct {
	Questions []json.RawMessage `json:"questions"`
}

// ParseQuestions extracts an ordered question list from a model reply.
// It accepts a JSON array, a {"questions": [...]} object, or a numbered or
// bulleted plain-text list. Blank entries are dropped and the result is
// capped at max. An empty list is a valid result.
func ParseQuestions(raw string, max int) ([]string, error) {
	if max <= 0 {
		max = DefaultMax
	}
	text := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}
	if text == "" {
		return []string{}, nil
	}

	var questions []string
	switch text[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		questions = fromRaw(items)
	case '{':
		var envelope questionEnvelope
		if err := json.Unmarshal([]byte(text), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
		}
		questions = fromRaw(envelope.Questions)
	default:
		questions = fromLines(text)
		if len(questions) == 0 {
			return nil, ErrUnparseable
		}
	}

	if len(questions) > max {
		questions = questions[:max]
	}
	return questions, nil
}

// fromRaw accepts plain strings and {"question": "..."} objects.
func fromRaw(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			var obj struct {
				Question string `json:"question"`
			}
			if err := json.Unmarshal(item, &obj); err != nil {
				continue
			}
			text = obj.Question
		}
		if text = clean(text); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func fromLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := listItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if q := clean(m[1]); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func clean(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	return strings.Trim(text, `"`)
}
