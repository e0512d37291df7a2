package documents

import (
	"fmt"
	"strings"
)

// Search returns the documents whose title, summary or content contains
// keyword, ignoring case. Order of docs is preserved.
func Search(docs []Document, keyword string) ([]Document, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword cannot be empty", ErrValidation)
	}
	needle := strings.ToLower(keyword)

	out := []Document{}
	for _, d := range docs {
		if matches(d, needle) {
			out = append(out, d)
		}
	}
	return out, nil
}

func matches(d Document, needle string) bool {
	if strings.Contains(strings.ToLower(d.Title), needle) {
		return true
	}
	if d.Summary != nil && strings.Contains(strings.ToLower(*d.Summary), needle) {
		return true
	}
	return d.Content != "" && strings.Contains(strings.ToLower(d.Content), needle)
}
