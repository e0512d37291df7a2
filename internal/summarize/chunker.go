package summarize

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize is the character budget used when none is configured.
const DefaultChunkSize = 500

// Chunks splits text into whitespace-delimited word groups. Words are appended
// greedily; once the running length (each word counted as its length plus one)
// reaches budget the group is emitted and a new one starts. The trailing
// partial group is always emitted.
func Chunks(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var (
		out     []string
		current []string
		length  int
	)
	for _, word := range words {
		current = append(current, word)
		length += utf8.RuneCountInString(word) + 1
		if length >= budget {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}
