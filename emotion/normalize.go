package emotion

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	hangulFirst = '가'
	hangulLast  = '힣'

	jamoFirst = '\u1100'
	jamoLast  = '\u11ff'
)

// Normalize keeps Hangul syllables, ASCII letters, digits and the space character.
// Every other code point is deleted. Runs of conjoining Hangul jamo are composed
// into syllables first; no other rune is touched before filtering.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if keepRune(r) {
			return r
		}
		return -1
	}, composeJamo(text))
}

func isJamo(r rune) bool {
	return r >= jamoFirst && r <= jamoLast
}

// composeJamo applies NFC to each maximal run of conjoining jamo only.
func composeJamo(text string) string {
	if !strings.ContainsFunc(text, isJamo) {
		return text
	}
	var b strings.Builder
	b.Grow(len(text))
	runes := []rune(text)
	for i := 0; i < len(runes); {
		if !isJamo(runes[i]) {
			b.WriteRune(runes[i])
			i++
			continue
		}
		j := i
		for j < len(runes) && isJamo(runes[j]) {
			j++
		}
		b.WriteString(norm.NFC.String(string(runes[i:j])))
		i = j
	}
	return b.String()
}

// NormalizeValue coerces non-string input to the empty string before normalizing.
func NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}

// NormalizeAll normalizes a slice of strings into a new slice.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Normalize(t)
	}
	return out
}

func keepRune(r rune) bool {
	switch {
	case r == ' ':
		return true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r >= hangulFirst && r <= hangulLast:
		return true
	}
	return false
}
