// Package tokens estimates token counts when the completion service does
// not report usage. Counting uses the cl100k_base encoding; callers mark
// versions built from these counts as estimated.
package tokens

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tejjnayak/rewind/internal/proto"
)

// messageOverhead approximates the per-message wrapper tokens the chat
// format adds around each message's content.
const messageOverhead = 4

// Counter converts text into an approximate token count. Implementations
// must be deterministic: the same input always yields the same count.
type Counter interface {
	Count(text string) int64
}

// bpeCounter encodes with cl100k_base, which tracks the tokenizers of the
// models this tool targets. The encoding loads once on first use; if the
// load fails, every call falls back to the heuristic.
type bpeCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewCounter returns the default counter.
func NewCounter() Counter {
	return &bpeCounter{}
}

func (b *bpeCounter) Count(text string) int64 {
	if text == "" {
		return 0
	}
	b.once.Do(func() {
		b.enc, b.err = tiktoken.GetEncoding("cl100k_base")
	})
	if b.err != nil || b.enc == nil {
		return heuristic{}.Count(text)
	}
	return int64(len(b.enc.Encode(text, nil, nil)))
}

// heuristic blends a characters-per-token and a words-per-token estimate.
// It exists so counting still works when the encoding cannot load.
type heuristic struct{}

func (heuristic) Count(text string) int64 {
	if text == "" {
		return 0
	}
	byChars := int64((utf8.RuneCountInString(text) + 3) / 4)
	byWords := int64(len(strings.Fields(text))) * 4 / 3
	return max(max(byChars, byWords), 1)
}

// CountMessages estimates the prompt size of a full message history,
// including per-message overhead.
func CountMessages(c Counter, messages []proto.Message) int64 {
	var total int64
	for _, msg := range messages {
		total += c.Count(msg.Content) + messageOverhead
	}
	return total
}
