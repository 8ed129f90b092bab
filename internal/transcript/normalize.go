// Package transcript cleans up recognized speech before it is shown or sent
// to a question generator.
package transcript

import "strings"

// Options controls transcript normalization.
type Options struct {
	CapitalizeSentences bool
}

// Normalize trims surrounding whitespace and, when enabled, sentence-cases the
// text. Inner spacing and rune count are preserved, so length checks see the
// same text the recognizer produced. Normalizing twice gives the same result.
func Normalize(text string, opts Options) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return ""
	}
	if opts.CapitalizeSentences {
		out = capitalizeSentences(out)
	}
	return out
}

// Join concatenates recognizer segments with single spaces, dropping blank
// ones. It does not change case.
func Join(segments []string) string {
	var b strings.Builder
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(seg)
	}
	return b.String()
}
