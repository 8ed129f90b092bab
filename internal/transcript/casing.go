package transcript

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// lowercaseOpeners stay lowercase even at sentence starts.
	lowercaseOpeners = map[string]struct{}{
		"e.g": {},
		"etc": {},
		"i.e": {},
		"vs":  {},
	}

	// nonTerminalAbbreviations end with a period that does not close a sentence.
	nonTerminalAbbreviations = map[string]struct{}{
		"dr":   {},
		"mr":   {},
		"mrs":  {},
		"ms":   {},
		"prof": {},
		"sr":   {},
		"jr":   {},
		"st":   {},
		"mt":   {},
		"e.g":  {},
		"i.e":  {},
		"vs":   {},
	}

	pronounIContractions = map[string]struct{}{
		"m": {}, "d": {}, "ll": {}, "ve": {}, "re": {}, "s": {},
	}
)

// capitalizeSentences upper-cases sentence openers and the pronoun I. Words
// are rewritten in place; the whitespace between them is copied unchanged.
func capitalizeSentences(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	atStart := true
	for text != "" {
		if gap := strings.IndexFunc(text, isWordRune); gap != 0 {
			if gap < 0 {
				gap = len(text)
			}
			b.WriteString(text[:gap])
			text = text[gap:]
			continue
		}
		end := strings.IndexFunc(text, unicode.IsSpace)
		if end < 0 {
			end = len(text)
		}
		word := text[:end]
		text = text[end:]

		lead := strings.IndexFunc(word, func(r rune) bool { return !isOpeningMark(r) })
		if lead < 0 {
			b.WriteString(word)
			continue
		}
		first, _ := utf8.DecodeRuneInString(word[lead:])

		switch {
		case atStart && unicode.IsLetter(first):
			if _, keep := lowercaseOpeners[bareToken(word[lead:])]; !keep {
				word = upperAt(word, lead)
			}
			atStart = false
		case atStart && unicode.IsDigit(first):
			atStart = false
		}

		if isPronounI(word[lead:]) {
			word = upperAt(word, lead)
		}
		b.WriteString(word)

		if endsSentence(word) {
			atStart = true
		}
	}
	return b.String()
}

func isWordRune(r rune) bool { return !unicode.IsSpace(r) }

// bareToken lower-cases word and drops trailing punctuation and dots.
func bareToken(word string) string {
	return strings.ToLower(strings.TrimRightFunc(word, func(r rune) bool {
		return r == '.' || (!unicode.IsLetter(r) && !unicode.IsDigit(r))
	}))
}

func isPronounI(word string) bool {
	core := strings.TrimRightFunc(word, func(r rune) bool {
		return r == ',' || r == ';' || r == ':' || r == '!' || r == '?' || r == '.' || isClosingMark(r)
	})
	if core == "i" || core == "I" {
		// "i.e." trims to "i.e", so only a bare i reaches here.
		return true
	}
	if len(core) < 3 || (core[0] != 'i' && core[0] != 'I') {
		return false
	}
	rest := core[1:]
	switch {
	case strings.HasPrefix(rest, "'"):
		rest = rest[1:]
	case strings.HasPrefix(rest, "’"):
		rest = rest[len("’"):]
	default:
		return false
	}
	_, ok := pronounIContractions[strings.ToLower(rest)]
	return ok
}

func endsSentence(word string) bool {
	trimmed := strings.TrimRightFunc(word, isClosingMark)
	switch {
	case trimmed == "":
		return false
	case strings.HasSuffix(trimmed, "!"), strings.HasSuffix(trimmed, "?"):
		return true
	case strings.HasSuffix(trimmed, "."):
		token := strings.ToLower(strings.Trim(strings.TrimLeftFunc(trimmed, isOpeningMark), "."))
		_, abbreviation := nonTerminalAbbreviations[token]
		return !abbreviation
	default:
		return false
	}
}

func upperAt(word string, idx int) string {
	r, size := utf8.DecodeRuneInString(word[idx:])
	return word[:idx] + string(unicode.ToUpper(r)) + word[idx+size:]
}

func isOpeningMark(r rune) bool {
	switch r {
	case '(', '[', '{', '\'', '"', '‘', '“':
		return true
	default:
		return false
	}
}

func isClosingMark(r rune) bool {
	switch r {
	case ')', ']', '}', '\'', '"', '’', '”':
		return true
	default:
		return false
	}
}
