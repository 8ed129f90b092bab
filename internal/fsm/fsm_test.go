package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func step(t *testing.T, state State, session Session, event Event) Outcome {
	t.Helper()
	out, err := Transition(state, session, event, DefaultRules())
	require.NoError(t, err, "%s --(%s)-->", Describe(state), event.Name())
	require.NoError(t, out.Session.Validate(out.State))
	return out
}

func TestTransitionHappyPath(t *testing.T) {
	out := step(t, Idle{}, Session{}, StartStory{})
	require.Equal(t, RequestingPermission{For: PurposeStory}, out.State)
	require.Equal(t, []Effect{EffectStartCapture}, out.Effects)

	out = step(t, out.State, out.Session, Granted{})
	require.Equal(t, RecordingStory{}, out.State)
	require.Equal(t, []Effect{EffectArmStoryTimer}, out.Effects)

	out = step(t, out.State, out.Session, Stop{})
	require.Equal(t, ProcessingStory{}, out.State)
	require.Equal(t, []Effect{EffectDisarmStoryTimer, EffectTranscribeStory}, out.Effects)

	out = step(t, out.State, out.Session, StoryTranscribed{Text: "  The cat sat on the mat.  "})
	require.Equal(t, ProcessingStory{}, out.State)
	require.Equal(t, "The cat sat on the mat.", out.Session.StoryText)
	require.Equal(t, []Effect{EffectGenerateQuestions}, out.Effects)

	out = step(t, out.State, out.Session, QuestionsReady{Questions: []string{"Who sat?", "Where?"}})
	require.Equal(t, PresentingQuestion{Index: 0}, out.State)
	require.Len(t, out.Session.QnA, 2)

	out = step(t, out.State, out.Session, StartAnswer{})
	require.Equal(t, RequestingPermission{For: PurposeAnswer, Index: 0}, out.State)

	out = step(t, out.State, out.Session, Granted{})
	require.Equal(t, RecordingAnswer{Index: 0}, out.State)
	require.Empty(t, out.Effects)

	out = step(t, out.State, out.Session, Stop{})
	require.Equal(t, ProcessingAnswer{Index: 0}, out.State)
	require.Equal(t, []Effect{EffectTranscribeAnswer}, out.Effects)

	out = step(t, out.State, out.Session, AnswerTranscribed{Text: "The cat"})
	require.Equal(t, PresentingQuestion{Index: 1}, out.State)
	require.Equal(t, 1, out.Session.Index)
	require.Equal(t, "The cat", out.Session.QnA[0].Answer)

	out = step(t, out.State, out.Session, StartAnswer{})
	out = step(t, out.State, out.Session, Granted{})
	out = step(t, out.State, out.Session, Stop{})
	out = step(t, out.State, out.Session, AnswerTranscribed{Text: "On the mat"})
	require.Equal(t, Summary{}, out.State)
	require.Equal(t, "On the mat", out.Session.QnA[1].Answer)
	require.True(t, out.Session.QnA[1].Answered)
}

func TestTransitionShortTranscriptFails(t *testing.T) {
	out := step(t, ProcessingStory{}, Session{}, StoryTranscribed{Text: "  ok  "})
	require.Equal(t, Failed{Message: MessageTooShort}, out.State)
	require.Equal(t, MessageTooShort, out.Session.Error)
	require.Empty(t, out.Session.StoryText)
	require.Empty(t, out.Effects)
}

func TestTransitionMinimumLengthBoundary(t *testing.T) {
	out := step(t, ProcessingStory{}, Session{}, StoryTranscribed{Text: "123456789"})
	require.Equal(t, Failed{Message: MessageTooShort}, out.State)

	out = step(t, ProcessingStory{}, Session{}, StoryTranscribed{Text: " 1234567890 "})
	require.Equal(t, ProcessingStory{}, out.State)
	require.Equal(t, "1234567890", out.Session.StoryText)

	out, err := Transition(ProcessingStory{}, Session{}, StoryTranscribed{Text: "abcd"}, Rules{MinStoryChars: 4})
	require.NoError(t, err)
	require.Equal(t, ProcessingStory{}, out.State)
}

func TestTransitionZeroQuestionsFails(t *testing.T) {
	session := Session{StoryText: "A long enough story."}
	out := step(t, ProcessingStory{}, session, QuestionsReady{})
	require.Equal(t, Failed{Message: MessageNoQuestions}, out.State)
	require.Equal(t, MessageNoQuestions, out.Session.Error)
	require.Empty(t, out.Session.QnA)
}

func TestTransitionQuestionsBeforeStoryIgnored(t *testing.T) {
	_, err := Transition(ProcessingStory{}, Session{}, QuestionsReady{Questions: []string{"q"}}, DefaultRules())
	require.ErrorIs(t, err, ErrIgnored)
}

func TestTransitionSecondStoryTranscriptIgnored(t *testing.T) {
	session := Session{StoryText: "first transcript here"}
	out, err := Transition(ProcessingStory{}, session, StoryTranscribed{Text: "second transcript here"}, DefaultRules())
	require.ErrorIs(t, err, ErrIgnored)
	require.Equal(t, "first transcript here", out.Session.StoryText)
}

func TestTransitionAnswerWrittenOnce(t *testing.T) {
	session := Session{QnA: []Pair{{Question: "q", Answer: "first", Answered: true}}}
	out, err := Transition(ProcessingAnswer{Index: 0}, session, AnswerTranscribed{Text: "second"}, DefaultRules())
	require.ErrorIs(t, err, ErrIgnored)
	require.Equal(t, "first", out.Session.QnA[0].Answer)
}

func TestTransitionAnswerDoesNotAliasInput(t *testing.T) {
	session := Session{QnA: []Pair{{Question: "q1"}, {Question: "q2"}}}
	out := step(t, ProcessingAnswer{Index: 0}, session, AnswerTranscribed{Text: "a"})
	require.Equal(t, "a", out.Session.QnA[0].Answer)
	require.Empty(t, session.QnA[0].Answer)
}

func TestTransitionEmptyAnswerAdvances(t *testing.T) {
	session := Session{QnA: []Pair{{Question: "q1"}}}
	out := step(t, ProcessingAnswer{Index: 0}, session, AnswerTranscribed{Text: "   "})
	require.Equal(t, Summary{}, out.State)
	require.Empty(t, out.Session.QnA[0].Answer)
	require.True(t, out.Session.QnA[0].Answered)
}

func TestTransitionIndexNeverDecreases(t *testing.T) {
	session := Session{QnA: []Pair{{Question: "a"}, {Question: "b"}, {Question: "c"}}}
	state := State(PresentingQuestion{Index: 0})
	last := 0
	for state.Name() != (Summary{}).Name() {
		for _, ev := range []Event{StartAnswer{}, Granted{}, Stop{}, AnswerTranscribed{Text: "x"}} {
			out := step(t, state, session, ev)
			state, session = out.State, out.Session
			require.GreaterOrEqual(t, session.Index, last)
			last = session.Index
		}
	}
	require.Equal(t, 2, session.Index)
}

func TestTransitionFailFromInFlightStates(t *testing.T) {
	qna := Session{QnA: []Pair{{Question: "q"}}}
	tests := []struct {
		name    string
		state   State
		session Session
		effects []Effect
	}{
		{name: "requesting story", state: RequestingPermission{For: PurposeStory}},
		{name: "requesting answer", state: RequestingPermission{For: PurposeAnswer}, session: qna},
		{name: "recording story", state: RecordingStory{}, effects: []Effect{EffectDisarmStoryTimer, EffectAbortCapture}},
		{name: "processing story", state: ProcessingStory{}},
		{name: "recording answer", state: RecordingAnswer{}, session: qna, effects: []Effect{EffectAbortCapture}},
		{name: "processing answer", state: ProcessingAnswer{}, session: qna},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.state, tc.session, Fail{Message: "microphone permission denied"}, DefaultRules())
			require.NoError(t, err)
			require.Equal(t, Failed{Message: "microphone permission denied"}, out.State)
			require.Equal(t, "microphone permission denied", out.Session.Error)
			require.Equal(t, tc.effects, out.Effects)
		})
	}
}

func TestTransitionFailWithEmptyMessageUsesFallback(t *testing.T) {
	out := step(t, ProcessingStory{}, Session{}, Fail{})
	require.Equal(t, Failed{Message: "unexpected error"}, out.State)
}

func TestTransitionResetFromAnyState(t *testing.T) {
	full := Session{StoryText: "story", QnA: []Pair{{Question: "q", Answer: "a", Answered: true}}, Index: 0, Error: "boom"}
	tests := []struct {
		state   State
		effects []Effect
	}{
		{state: Idle{}, effects: []Effect{EffectNewEpoch}},
		{state: Summary{}, effects: []Effect{EffectNewEpoch}},
		{state: Failed{Message: "boom"}, effects: []Effect{EffectNewEpoch}},
		{state: RecordingStory{}, effects: []Effect{EffectNewEpoch, EffectAbortCapture, EffectDisarmStoryTimer}},
		{state: RecordingAnswer{Index: 0}, effects: []Effect{EffectNewEpoch, EffectAbortCapture}},
		{state: ProcessingAnswer{Index: 0}, effects: []Effect{EffectNewEpoch}},
	}

	for _, tc := range tests {
		t.Run(tc.state.Name(), func(t *testing.T) {
			out := step(t, tc.state, full, Reset{})
			require.Equal(t, Idle{}, out.State)
			require.Equal(t, Session{}, out.Session)
			require.Equal(t, tc.effects, out.Effects)
		})
	}
}

func TestTransitionCaptureLostDiscardsSession(t *testing.T) {
	out := step(t, RecordingStory{}, Session{Error: "old"}, CaptureLost{})
	require.Equal(t, Idle{}, out.State)
	require.Equal(t, Session{}, out.Session)
	require.Equal(t, []Effect{EffectDisarmStoryTimer, EffectNewEpoch}, out.Effects)

	qna := Session{QnA: []Pair{{Question: "q"}}}
	out = step(t, RecordingAnswer{Index: 0}, qna, CaptureLost{})
	require.Equal(t, Idle{}, out.State)
	require.Equal(t, []Effect{EffectNewEpoch}, out.Effects)
}

func TestTransitionStartClearsPreviousError(t *testing.T) {
	out := step(t, Idle{}, Session{Error: "stale"}, StartStory{})
	require.Empty(t, out.Session.Error)
}

func TestTransitionMatrixIgnoredEvents(t *testing.T) {
	qna := Session{QnA: []Pair{{Question: "q"}}}
	tests := []struct {
		name    string
		state   State
		session Session
		event   Event
	}{
		{name: "idle stop", state: Idle{}, event: Stop{}},
		{name: "idle start answer", state: Idle{}, event: StartAnswer{}},
		{name: "idle fail", state: Idle{}, event: Fail{Message: "x"}},
		{name: "requesting stop", state: RequestingPermission{For: PurposeStory}, event: Stop{}},
		{name: "recording start", state: RecordingStory{}, event: StartStory{}},
		{name: "processing stop", state: ProcessingStory{}, event: Stop{}},
		{name: "presenting stop", state: PresentingQuestion{}, session: qna, event: Stop{}},
		{name: "presenting start story", state: PresentingQuestion{}, session: qna, event: StartStory{}},
		{name: "summary start", state: Summary{}, event: StartStory{}},
		{name: "summary fail", state: Summary{}, event: Fail{Message: "x"}},
		{name: "error start", state: Failed{Message: "x"}, event: StartStory{}},
		{name: "error stop", state: Failed{Message: "x"}, event: Stop{}},
		{name: "presenting out of range", state: PresentingQuestion{Index: 3}, session: qna, event: StartAnswer{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.state, tc.session, tc.event, DefaultRules())
			require.Error(t, err)
			require.ErrorIs(t, err, ErrIgnored)
			require.Contains(t, err.Error(), "invalid transition")
			require.Equal(t, tc.state, out.State)
			require.Empty(t, out.Effects)
		})
	}
}

func TestTransitionNilState(t *testing.T) {
	_, err := Transition(nil, Session{}, StartStory{}, DefaultRules())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrIgnored)
}

func TestDescribe(t *testing.T) {
	require.Equal(t, "idle", Describe(Idle{}))
	require.Equal(t, "requesting_permission(story)", Describe(RequestingPermission{For: PurposeStory}))
	require.Equal(t, "requesting_permission(answer 2)", Describe(RequestingPermission{For: PurposeAnswer, Index: 2}))
	require.Equal(t, "presenting_question(1)", Describe(PresentingQuestion{Index: 1}))
	require.Equal(t, "error(boom)", Describe(Failed{Message: "boom"}))
}

func TestSessionValidate(t *testing.T) {
	session := Session{QnA: []Pair{{Question: "q"}}}
	require.NoError(t, session.Validate(PresentingQuestion{Index: 0}))
	require.Error(t, session.Validate(PresentingQuestion{Index: 1}))
	require.Error(t, Session{}.Validate(RecordingAnswer{Index: 0}))
	require.NoError(t, Session{}.Validate(Summary{}))
}
