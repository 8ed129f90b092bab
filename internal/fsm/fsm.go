// Package fsm defines the reading-practice session states and the pure
// transition function that moves between them.
package fsm

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MessageTooShort is the failure text for a story transcript below the minimum length.
	MessageTooShort = "recording too short/unclear"
	// MessageNoQuestions is the failure text for an empty question list.
	MessageNoQuestions = "no questions generated"
)

// DefaultMinStoryChars is the minimum trimmed story transcript length.
const DefaultMinStoryChars = 10

// ErrIgnored marks events that do not apply to the current state.
var ErrIgnored = errors.New("event ignored")

// Purpose records what a pending microphone request is for.
type Purpose int

const (
	PurposeStory Purpose = iota + 1
	PurposeAnswer
)

func (p Purpose) String() string {
	switch p {
	case PurposeStory:
		return "story"
	case PurposeAnswer:
		return "answer"
	default:
		return fmt.Sprintf("purpose(%d)", int(p))
	}
}

// State is one of the concrete session states below.
type State interface {
	Name() string
	isState()
}

type (
	Idle                 struct{}
	RequestingPermission struct {
		For   Purpose
		Index int
	}
	RecordingStory     struct{}
	ProcessingStory    struct{}
	PresentingQuestion struct{ Index int }
	RecordingAnswer    struct{ Index int }
	ProcessingAnswer   struct{ Index int }
	Summary            struct{}
	Failed             struct{ Message string }
)

func (Idle) Name() string                 { return "idle" }
func (RequestingPermission) Name() string { return "requesting_permission" }
func (RecordingStory) Name() string       { return "recording_story" }
func (ProcessingStory) Name() string      { return "processing_story" }
func (PresentingQuestion) Name() string   { return "presenting_question" }
func (RecordingAnswer) Name() string      { return "recording_answer" }
func (ProcessingAnswer) Name() string     { return "processing_answer" }
func (Summary) Name() string              { return "summary" }
func (Failed) Name() string               { return "error" }

func (Idle) isState()                 {}
func (RequestingPermission) isState() {}
func (RecordingStory) isState()       {}
func (ProcessingStory) isState()      {}
func (PresentingQuestion) isState()   {}
func (RecordingAnswer) isState()      {}
func (ProcessingAnswer) isState()     {}
func (Summary) isState()              {}
func (Failed) isState()               {}

// Describe renders a state with its payload for logs and status output.
func Describe(s State) string {
	switch st := s.(type) {
	case nil:
		return "<nil>"
	case RequestingPermission:
		if st.For == PurposeAnswer {
			return fmt.Sprintf("%s(answer %d)", st.Name(), st.Index)
		}
		return fmt.Sprintf("%s(story)", st.Name())
	case PresentingQuestion:
		return fmt.Sprintf("%s(%d)", st.Name(), st.Index)
	case RecordingAnswer:
		return fmt.Sprintf("%s(%d)", st.Name(), st.Index)
	case ProcessingAnswer:
		return fmt.Sprintf("%s(%d)", st.Name(), st.Index)
	case Failed:
		return fmt.Sprintf("%s(%s)", st.Name(), st.Message)
	default:
		return s.Name()
	}
}

// IsRecording reports whether a capture is live in s.
func IsRecording(s State) bool {
	switch s.(type) {
	case RecordingStory, RecordingAnswer:
		return true
	default:
		return false
	}
}

// IsBusy reports whether s is waiting on a collaborator.
func IsBusy(s State) bool {
	switch s.(type) {
	case RequestingPermission, ProcessingStory, ProcessingAnswer:
		return true
	default:
		return false
	}
}

// Pair is one generated question and its recorded answer.
type Pair struct {
	Question string
	Answer   string
	Answered bool
}

// Session is the data carried alongside the state.
type Session struct {
	StoryText string
	QnA       []Pair
	Index     int
	Error     string
}

// Clone returns a deep copy safe to hand to readers.
func (s Session) Clone() Session {
	out := s
	if s.QnA != nil {
		out.QnA = make([]Pair, len(s.QnA))
		copy(out.QnA, s.QnA)
	}
	return out
}

// Validate checks that session data agrees with state.
func (s Session) Validate(state State) error {
	switch st := state.(type) {
	case PresentingQuestion:
		return s.checkIndex(st.Index)
	case RecordingAnswer:
		return s.checkIndex(st.Index)
	case ProcessingAnswer:
		return s.checkIndex(st.Index)
	case RequestingPermission:
		if st.For == PurposeAnswer {
			return s.checkIndex(st.Index)
		}
	}
	return nil
}

func (s Session) checkIndex(i int) error {
	if i < 0 || i >= len(s.QnA) {
		return fmt.Errorf("question index %d out of range [0,%d)", i, len(s.QnA))
	}
	if i != s.Index {
		return fmt.Errorf("state index %d does not match session index %d", i, s.Index)
	}
	return nil
}

// Event is an input to Transition.
type Event interface {
	Name() string
	isEvent()
}

type (
	StartStory        struct{}
	StartAnswer       struct{}
	Granted           struct{}
	Stop              struct{}
	CaptureLost       struct{}
	StoryTranscribed  struct{ Text string }
	QuestionsReady    struct{ Questions []string }
	AnswerTranscribed struct{ Text string }
	Fail              struct{ Message string }
	Reset             struct{}
)

func (StartStory) Name() string        { return "start_story" }
func (StartAnswer) Name() string       { return "start_answer" }
func (Granted) Name() string           { return "granted" }
func (Stop) Name() string              { return "stop" }
func (CaptureLost) Name() string       { return "capture_lost" }
func (StoryTranscribed) Name() string  { return "story_transcribed" }
func (QuestionsReady) Name() string    { return "questions_ready" }
func (AnswerTranscribed) Name() string { return "answer_transcribed" }
func (Fail) Name() string              { return "fail" }
func (Reset) Name() string             { return "reset" }

func (StartStory) isEvent()        {}
func (StartAnswer) isEvent()       {}
func (Granted) isEvent()           {}
func (Stop) isEvent()              {}
func (CaptureLost) isEvent()       {}
func (StoryTranscribed) isEvent()  {}
func (QuestionsReady) isEvent()    {}
func (AnswerTranscribed) isEvent() {}
func (Fail) isEvent()              {}
func (Reset) isEvent()             {}

// Effect is a side effect the caller must perform after a transition.
type Effect int

const (
	EffectStartCapture Effect = iota + 1
	EffectAbortCapture
	EffectArmStoryTimer
	EffectDisarmStoryTimer
	EffectTranscribeStory
	EffectGenerateQuestions
	EffectTranscribeAnswer
	EffectNewEpoch
)

func (e Effect) String() string {
	switch e {
	case EffectStartCapture:
		return "start_capture"
	case EffectAbortCapture:
		return "abort_capture"
	case EffectArmStoryTimer:
		return "arm_story_timer"
	case EffectDisarmStoryTimer:
		return "disarm_story_timer"
	case EffectTranscribeStory:
		return "transcribe_story"
	case EffectGenerateQuestions:
		return "generate_questions"
	case EffectTranscribeAnswer:
		return "transcribe_answer"
	case EffectNewEpoch:
		return "new_epoch"
	default:
		return fmt.Sprintf("effect(%d)", int(e))
	}
}

// Rules holds the tunable guards used by Transition.
type Rules struct {
	MinStoryChars int
}

// DefaultRules returns the standard guard values.
func DefaultRules() Rules {
	return Rules{MinStoryChars: DefaultMinStoryChars}
}

// Outcome is the result of one accepted transition.
type Outcome struct {
	State   State
	Session Session
	Effects []Effect
}

// Transition applies event to (state, session). On error the returned
// outcome carries the unchanged inputs and no effects.
func Transition(state State, session Session, event Event, rules Rules) (Outcome, error) {
	unchanged := Outcome{State: state, Session: session}
	if state == nil {
		return unchanged, errors.New("nil state")
	}

	if _, ok := event.(Reset); ok {
		effects := []Effect{EffectNewEpoch}
		if IsRecording(state) {
			effects = append(effects, EffectAbortCapture)
		}
		if _, ok := state.(RecordingStory); ok {
			effects = append(effects, EffectDisarmStoryTimer)
		}
		return Outcome{State: Idle{}, Session: Session{}, Effects: effects}, nil
	}

	if fail, ok := event.(Fail); ok {
		return failFrom(state, session, fail.Message)
	}

	switch st := state.(type) {
	case Idle:
		if _, ok := event.(StartStory); ok {
			next := session
			next.Error = ""
			return Outcome{
				State:   RequestingPermission{For: PurposeStory},
				Session: next,
				Effects: []Effect{EffectStartCapture},
			}, nil
		}
	case RequestingPermission:
		if _, ok := event.(Granted); ok {
			if st.For == PurposeAnswer {
				return Outcome{State: RecordingAnswer{Index: st.Index}, Session: session}, nil
			}
			return Outcome{
				State:   RecordingStory{},
				Session: session,
				Effects: []Effect{EffectArmStoryTimer},
			}, nil
		}
	case RecordingStory:
		switch event.(type) {
		case Stop:
			return Outcome{
				State:   ProcessingStory{},
				Session: session,
				Effects: []Effect{EffectDisarmStoryTimer, EffectTranscribeStory},
			}, nil
		case CaptureLost:
			return Outcome{
				State:   Idle{},
				Session: Session{},
				Effects: []Effect{EffectDisarmStoryTimer, EffectNewEpoch},
			}, nil
		}
	case ProcessingStory:
		switch ev := event.(type) {
		case StoryTranscribed:
			if session.StoryText != "" {
				break
			}
			text := strings.TrimSpace(ev.Text)
			if utf8.RuneCountInString(text) < rules.minStoryChars() {
				next := session
				next.Error = MessageTooShort
				return Outcome{State: Failed{Message: MessageTooShort}, Session: next}, nil
			}
			next := session
			next.StoryText = text
			return Outcome{
				State:   ProcessingStory{},
				Session: next,
				Effects: []Effect{EffectGenerateQuestions},
			}, nil
		case QuestionsReady:
			if session.StoryText == "" {
				break
			}
			if len(ev.Questions) == 0 {
				next := session
				next.Error = MessageNoQuestions
				return Outcome{State: Failed{Message: MessageNoQuestions}, Session: next}, nil
			}
			next := session
			next.QnA = make([]Pair, len(ev.Questions))
			for i, q := range ev.Questions {
				next.QnA[i] = Pair{Question: q}
			}
			next.Index = 0
			return Outcome{State: PresentingQuestion{Index: 0}, Session: next}, nil
		}
	case PresentingQuestion:
		if _, ok := event.(StartAnswer); ok {
			if session.checkIndex(st.Index) != nil {
				break
			}
			next := session
			next.Error = ""
			return Outcome{
				State:   RequestingPermission{For: PurposeAnswer, Index: st.Index},
				Session: next,
				Effects: []Effect{EffectStartCapture},
			}, nil
		}
	case RecordingAnswer:
		switch event.(type) {
		case Stop:
			return Outcome{
				State:   ProcessingAnswer{Index: st.Index},
				Session: session,
				Effects: []Effect{EffectTranscribeAnswer},
			}, nil
		case CaptureLost:
			return Outcome{State: Idle{}, Session: Session{}, Effects: []Effect{EffectNewEpoch}}, nil
		}
	case ProcessingAnswer:
		if ev, ok := event.(AnswerTranscribed); ok {
			if session.checkIndex(st.Index) != nil || session.QnA[st.Index].Answered {
				break
			}
			next := session.Clone()
			next.QnA[st.Index].Answer = strings.TrimSpace(ev.Text)
			next.QnA[st.Index].Answered = true
			if st.Index < len(next.QnA)-1 {
				next.Index = st.Index + 1
				return Outcome{State: PresentingQuestion{Index: next.Index}, Session: next}, nil
			}
			return Outcome{State: Summary{}, Session: next}, nil
		}
	case Summary, Failed:
	default:
		return unchanged, fmt.Errorf("unknown state %T", state)
	}

	return unchanged, invalidTransition(state, event)
}

// failFrom moves an in-flight state to Failed with message.
func failFrom(state State, session Session, message string) (Outcome, error) {
	var effects []Effect
	switch state.(type) {
	case RecordingStory:
		effects = []Effect{EffectDisarmStoryTimer, EffectAbortCapture}
	case RecordingAnswer:
		effects = []Effect{EffectAbortCapture}
	case RequestingPermission, ProcessingStory, ProcessingAnswer:
	default:
		return Outcome{State: state, Session: session}, invalidTransition(state, Fail{Message: message})
	}

	if strings.TrimSpace(message) == "" {
		message = "unexpected error"
	}
	next := session
	next.Error = message
	return Outcome{State: Failed{Message: message}, Session: next, Effects: effects}, nil
}

func (r Rules) minStoryChars() int {
	if r.MinStoryChars <= 0 {
		return DefaultMinStoryChars
	}
	return r.MinStoryChars
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?: %w", Describe(state), event.Name(), ErrIgnored)
}
