package transcript

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTrimsAndSentenceCases(t *testing.T) {
	t.Parallel()

	got := Normalize("  the cat sat\n on the mat.   it was happy! ", Options{CapitalizeSentences: true})
	require.Equal(t, "The cat sat\n on the mat.   It was happy!", got)
}

func TestNormalizeWithoutCapitalization(t *testing.T) {
	t.Parallel()

	got := Normalize(" the cat\tsat ", Options{})
	require.Equal(t, "the cat\tsat", got)
}

func TestNormalizeKeepsRuneCount(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"hi    there", "i\t\ti.  é  ok", "  \u201cwhy?\u201d  i asked "} {
		want := utf8.RuneCountInString(strings.TrimSpace(raw))
		got := Normalize(raw, Options{CapitalizeSentences: true})
		require.Equal(t, want, utf8.RuneCountInString(got), raw)
	}
}

func TestNormalizeWhitespaceOnly(t *testing.T) {
	t.Parallel()

	require.Empty(t, Normalize(" \n\t ", Options{CapitalizeSentences: true}))
}

func TestJoinSkipsBlankSegments(t *testing.T) {
	t.Parallel()

	require.Equal(t, "once upon a time. the end", Join([]string{" once upon", "", "a time.", "\nthe end  "}))
	require.Empty(t, Join(nil))
	require.Empty(t, Join([]string{" ", "\t"}))
}

func TestNormalizeCapitalizesPronounI(t *testing.T) {
	t.Parallel()

	got := Normalize("when i read i'm faster. i think i will keep practicing.", Options{
		CapitalizeSentences: true,
	})
	require.Equal(t, "When I read I'm faster. I think I will keep practicing.", got)
}

func TestNormalizeKeepsAbbreviationsMidSentence(t *testing.T) {
	t.Parallel()

	got := Normalize("mr. fox ran to st. paul. he cost 2.50 dollars.", Options{CapitalizeSentences: true})
	require.Equal(t, "Mr. fox ran to st. paul. He cost 2.50 dollars.", got)
}

func TestNormalizeLowercaseAbbreviationAtStart(t *testing.T) {
	t.Parallel()

	got := Normalize("it rained. e.g. puddles everywhere.", Options{CapitalizeSentences: true})
	require.Equal(t, "It rained. e.g. puddles everywhere.", got)
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	first := Normalize("hello world. this is a story", Options{CapitalizeSentences: true})
	second := Normalize(first, Options{CapitalizeSentences: true})
	require.Equal(t, first, second)
}

func TestNormalizeQuotedSentenceStart(t *testing.T) {
	t.Parallel()

	got := Normalize(`the fox stopped. "where is the den?" it asked.`, Options{CapitalizeSentences: true})
	require.Equal(t, `The fox stopped. "Where is the den?" It asked.`, got)
}

func TestNormalizeDigitStartsSentenceWithoutCasing(t *testing.T) {
	t.Parallel()

	got := Normalize("the end. 3 bears went home", Options{CapitalizeSentences: true})
	require.Equal(t, "The end. 3 bears went home", got)
}

func TestNormalizeLeavesIeLowercase(t *testing.T) {
	t.Parallel()

	got := Normalize("the big one, i.e. the oak, fell and i’ll miss it", Options{CapitalizeSentences: true})
	require.Equal(t, "The big one, i.e. the oak, fell and I’ll miss it", got)
}
