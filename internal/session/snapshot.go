package session

import (
	"time"

	"github.com/rbright/recite/internal/fsm"
	"github.com/rbright/recite/internal/report"
)

// Intent is a user action delivered to the controller.
type Intent string

const (
	IntentStartStory  Intent = "start_story"
	IntentStopStory   Intent = "stop_story"
	IntentStartAnswer Intent = "start_answer"
	IntentStopAnswer  Intent = "stop_answer"
	IntentReset       Intent = "reset"
	IntentCopy        Intent = "copy"
	IntentShare       Intent = "share"
)

// Snapshot is the read-only view handed to presentation layers.
type Snapshot struct {
	State   fsm.State
	Session fsm.Session
	Epoch   string
	Copied  bool
	Notice  string
	Version uint64
}

// Question returns the current question, its index, and the total count.
// ok is false outside question-bearing states.
func (s Snapshot) Question() (text string, index int, total int, ok bool) {
	var i int
	switch st := s.State.(type) {
	case fsm.PresentingQuestion:
		i = st.Index
	case fsm.RecordingAnswer:
		i = st.Index
	case fsm.ProcessingAnswer:
		i = st.Index
	case fsm.RequestingPermission:
		if st.For != fsm.PurposeAnswer {
			return "", 0, 0, false
		}
		i = st.Index
	default:
		return "", 0, 0, false
	}
	if i < 0 || i >= len(s.Session.QnA) {
		return "", 0, 0, false
	}
	return s.Session.QnA[i].Question, i, len(s.Session.QnA), true
}

// ErrorMessage returns the failure text in the error state.
func (s Snapshot) ErrorMessage() string {
	if failed, ok := s.State.(fsm.Failed); ok {
		return failed.Message
	}
	return ""
}

// Report renders the shareable session text.
func (s Snapshot) Report() string {
	return report.FromSession(s.Session)
}

// Options holds session timing and guard values.
type Options struct {
	StoryTimeout   time.Duration
	CopiedFlash    time.Duration
	NoticeDuration time.Duration
	MinStoryChars  int
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		StoryTimeout:   60 * time.Second,
		CopiedFlash:    2500 * time.Millisecond,
		NoticeDuration: 3 * time.Second,
		MinStoryChars:  fsm.DefaultMinStoryChars,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.StoryTimeout <= 0 {
		o.StoryTimeout = d.StoryTimeout
	}
	if o.CopiedFlash <= 0 {
		o.CopiedFlash = d.CopiedFlash
	}
	if o.NoticeDuration <= 0 {
		o.NoticeDuration = d.NoticeDuration
	}
	if o.MinStoryChars <= 0 {
		o.MinStoryChars = d.MinStoryChars
	}
	return o
}

// Result summarizes one Run invocation.
type Result struct {
	Final      Snapshot
	Completed  int
	Failures   int
	Resets     int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}
