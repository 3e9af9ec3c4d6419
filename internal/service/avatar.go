package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DeriveFallback returns the avatar initials for a display name: the first
// letter of a single word, or the first letters of the first and last words.
func DeriveFallback(name string) string {
	words := strings.Fields(name)
	switch len(words) {
	case 0:
		return ""
	case 1:
		return initial(words[0])
	default:
		return initial(words[0]) + initial(words[len(words)-1])
	}
}

func initial(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	return string(unicode.ToUpper(r))
}
