// Package engine turns user utterances into new conversation versions by
// way of the external completion service.
package engine

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/tejjnayak/rewind/internal/llm/provider"
	"github.com/tejjnayak/rewind/internal/llm/tokens"
	"github.com/tejjnayak/rewind/internal/proto"
	"github.com/tejjnayak/rewind/internal/session"
)

// Engine composes requests from the active version's history and appends
// the result as a new version. Submit is all-or-nothing: a failed
// completion call leaves the session untouched.
type Engine struct {
	sessions session.Service
	provider provider.Provider
	counter  tokens.Counter

	// Submit is a read-modify-append sequence; interleaved submits would
	// race on parent linkage and double-count tokens.
	mu sync.Mutex
}

func New(sessions session.Service, p provider.Provider, counter tokens.Counter) *Engine {
	return &Engine{
		sessions: sessions,
		provider: p,
		counter:  counter,
	}
}

// Submit sends the active history plus the user's text to the completion
// service and commits the exchange as a new version. The returned version
// is the new active one. On error nothing is committed and the active
// pointer is unchanged.
func (e *Engine) Submit(ctx context.Context, text string) (proto.Version, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.sessions.Active()

	userMessage := proto.Message{
		Role:       proto.User,
		Content:    text,
		TokenCount: e.counter.Count(text),
		CreatedAt:  time.Now().UnixMilli(),
	}
	working := append(slices.Clone(active.Messages), userMessage)

	response, err := e.provider.SendMessages(ctx, working)
	if err != nil {
		return proto.Version{}, err
	}

	usage := response.Usage
	estimated := usage.IsZero()
	if estimated {
		usage = proto.TokenUsage{
			PromptTokens:     tokens.CountMessages(e.counter, working),
			CompletionTokens: e.counter.Count(response.Content),
		}
		slog.Warn("completion service reported no token usage, using estimated counts",
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
		)
	}

	assistantMessage := proto.Message{
		Role:       proto.Assistant,
		Content:    response.Content,
		TokenCount: usage.CompletionTokens,
		CreatedAt:  time.Now().UnixMilli(),
	}

	id, err := e.sessions.Append(session.AppendVersionParams{
		ParentID:         active.ID,
		Messages:         append(working, assistantMessage),
		Usage:            usage,
		CumulativeTokens: active.CumulativeTokens + usage.Total(),
		Cost:             active.Cost + e.exchangeCost(usage),
		Estimated:        estimated,
	})
	if err != nil {
		return proto.Version{}, err
	}

	version, err := e.sessions.Get(id)
	if err != nil {
		return proto.Version{}, err
	}

	slog.Debug("exchange committed",
		"version", version.ID,
		"parent", active.ID,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"cumulative_tokens", version.CumulativeTokens,
		"estimated", estimated,
	)
	return version, nil
}

// exchangeCost prices one exchange using the model's per-million rates.
func (e *Engine) exchangeCost(usage proto.TokenUsage) float64 {
	model := e.provider.Model()
	return float64(usage.PromptTokens)*model.CostPer1MIn/1e6 +
		float64(usage.CompletionTokens)*model.CostPer1MOut/1e6
}
