package summarize

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

var (
	sentencePattern = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
	tokenPattern    = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// FrequencyModel is a local extractive model that ranks sentences by
// normalized token frequency with stopwords filtered out.
type FrequencyModel struct {
	stopwords map[string]struct{}
}

// NewFrequencyModel constructs a FrequencyModel with the default English stopword list.
func NewFrequencyModel() *FrequencyModel {
	return &FrequencyModel{stopwords: defaultStopwords()}
}

// Summarize picks the best-ranked sentences until at least minLength words are
// covered, emits them in their original order and caps the result at
// max(maxLength, minLength) words.
func (m *FrequencyModel) Summarize(ctx context.Context, chunk string, minLength, maxLength int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sentences := splitSentences(chunk)
	if len(sentences) == 0 {
		return "", nil
	}

	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range tokens(sent) {
			if _, ok := m.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type ranked struct {
		idx   int
		score float64
	}
	scores := make([]ranked, len(sentences))
	for i, sent := range sentences {
		toks := tokens(sent)
		score := 0.0
		for _, tok := range toks {
			score += freq[tok]
		}
		if l := float64(len(toks)); l > 0 {
			score /= math.Sqrt(l)
		}
		scores[i] = ranked{idx: i, score: score}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	var selected []int
	words := 0
	for _, r := range scores {
		selected = append(selected, r.idx)
		words += len(strings.Fields(sentences[r.idx]))
		if words >= minLength {
			break
		}
	}
	sort.Ints(selected)

	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}

	limit := max(maxLength, minLength)
	fields := strings.Fields(strings.Join(out, " "))
	if limit > 0 && len(fields) > limit {
		fields = fields[:limit]
	}
	return strings.Join(fields, " "), nil
}

// splitSentences returns terminated sentences plus any unterminated tail.
func splitSentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentencePattern.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(text[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func tokens(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those",
		"from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about",
		"between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too",
		"very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
