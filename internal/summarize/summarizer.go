package summarize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"ocrdocs-backend/internal/shared/metrics"
	"ocrdocs-backend/internal/shared/telemetry"
)

const (
	// MaxInputBytes bounds the text accepted for summarization (25 MiB).
	MaxInputBytes = 25 << 20
	// DefaultSummaryLength is the character budget used when the caller passes none.
	DefaultSummaryLength = 200
	// MinChunkWords is the floor passed to the model for every chunk. It is not
	// clamped to the per-chunk ceiling, so short inputs may get a floor above
	// the ceiling; models treat the floor as binding in that case.
	MinChunkWords = 30
	maxChunkWords = 150
	fallbackRunes = 100
)

// ErrInputTooLarge is returned when the text exceeds MaxInputBytes.
var ErrInputTooLarge = errors.New("text exceeds maximum size")

// Model produces a summary of a single chunk. Lengths are in words.
type Model interface {
	Summarize(ctx context.Context, chunk string, minLength, maxLength int) (string, error)
}

// Summarizer drives a Model over a chunked text.
type Summarizer struct {
	Model     Model
	ChunkSize int
}

// New constructs a Summarizer; a nil model falls back to the local frequency model.
func New(model Model, chunkSize int) *Summarizer {
	if model == nil {
		model = NewFrequencyModel()
	}
	return &Summarizer{Model: model, ChunkSize: chunkSize}
}

// Summarize returns a summary of at most maxLength characters (plus a trailing
// ellipsis when truncated). Model failures never surface: the caller gets the
// fallback excerpt instead. Only oversize input is reported as an error.
func (s *Summarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if len(text) > MaxInputBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrInputTooLarge, len(text))
	}
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}
	if text == "" {
		return "", nil
	}

	start := time.Now()
	chunks := Chunks(text, s.ChunkSize)
	if len(chunks) == 0 {
		return s.fallback(text, errors.New("no words in text")), nil
	}
	if s.Model == nil {
		return s.fallback(text, errors.New("summarizer model not configured")), nil
	}

	adjusted := adjustedMax(maxLength, len(chunks), len(strings.Fields(text)))
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return s.fallback(text, err), nil
		}
		part, err := s.Model.Summarize(ctx, chunk, MinChunkWords, adjusted)
		if err != nil {
			return s.fallback(text, err), nil
		}
		parts = append(parts, part)
	}

	summary := truncate(strings.Join(parts, " "), maxLength)
	metrics.IncSummaries()
	metrics.ObserveSummarizeDurationMs(metrics.SinceMillis(start))
	return summary, nil
}

func adjustedMax(maxLength, chunkCount, wordCount int) int {
	ceiling := wordCount / 2
	if ceiling == 0 {
		ceiling = MinChunkWords
	}
	return min(maxLength/chunkCount+50, maxChunkWords, ceiling)
}

// truncate cuts s to maxLength runes, backs up to the last whitespace and
// appends "...". Strings within the limit are returned unchanged.
func truncate(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	cut := string([]rune(s)[:maxLength])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx >= 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func (s *Summarizer) fallback(text string, cause error) string {
	metrics.IncSummaryFallbacks()
	telemetry.Warn("summarize.fallback", map[string]any{
		"error":      cause,
		"text_bytes": len(text),
	})
	return Fallback(text)
}

// Fallback is the excerpt used when no model summary is available: the first
// 100 characters followed by "...", or the whole text when it is shorter.
func Fallback(text string) string {
	if utf8.RuneCountInString(text) <= fallbackRunes {
		return text
	}
	return string([]rune(text)[:fallbackRunes]) + "..."
}
