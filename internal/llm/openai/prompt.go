package openai

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const systemPromptSummary = "You summarize OCR-extracted document text. Reply with the summary only: plain prose, no markdown, no preamble. Keep names, dates and amounts exactly as written."

// BuildSummaryPrompt creates the chat messages for summarizing one chunk.
// Lengths are in words; a maximum below the minimum is raised to it.
func BuildSummaryPrompt(chunk string, minLength, maxLength int) []Message {
	maxLength = max(maxLength, minLength)
	user := fmt.Sprintf("Summarize the following text in %d to %d words.\n\nText:\n%s", minLength, maxLength, strings.TrimSpace(chunk))
	return []Message{
		{Role: "system", Content: systemPromptSummary},
		{Role: "user", Content: user},
	}
}

// promptHash identifies a prompt in logs without logging document text.
func promptHash(messages []Message) string {
	h := sha256.New()
	for _, m := range messages {
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
