// Package report renders a finished practice session as shareable text.
package report

import (
	"fmt"
	"strings"

	"github.com/rbright/recite/internal/fsm"
)

const (
	header         = "Reading Practice Session!"
	storyHeader    = "--- STORY ---"
	qnaHeader      = "--- QUESTIONS & ANSWERS ---"
	noAnswerMarker = "No answer recorded."
)

// Format renders the story and question/answer pairs in the copy/share layout.
func Format(story string, pairs []fsm.Pair) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(storyHeader)
	b.WriteString("\n")
	b.WriteString(story)
	b.WriteString("\n\n")
	b.WriteString(qnaHeader)
	b.WriteString("\n\n")

	for i, pair := range pairs {
		answer := strings.TrimSpace(pair.Answer)
		if answer == "" {
			answer = noAnswerMarker
		}
		fmt.Fprintf(&b, "Question %d: %s\nAnswer: %s\n\n", i+1, pair.Question, answer)
	}

	return b.String()
}

// FromSession is Format applied to a session value.
func FromSession(s fsm.Session) string {
	return Format(s.StoryText, s.QnA)
}
