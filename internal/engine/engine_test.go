package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/stretchr/testify/require"

	"github.com/tejjnayak/rewind/internal/llm/provider"
	"github.com/tejjnayak/rewind/internal/llm/tokens"
	"github.com/tejjnayak/rewind/internal/proto"
	"github.com/tejjnayak/rewind/internal/session"
)

const testSystemPrompt = "You are an AI assistant. Provide clear, concise, and helpful responses."

// fakeProvider returns canned responses and records what it was sent.
type fakeProvider struct {
	mu       sync.Mutex
	response *provider.Response
	err      error
	sent     [][]proto.Message
}

func (f *fakeProvider) SendMessages(ctx context.Context, messages []proto.Message) (*provider.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, messages)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Model() catwalk.Model {
	return catwalk.Model{
		ID:           "test-model",
		CostPer1MIn:  1_000_000, // one dollar per token keeps the math obvious
		CostPer1MOut: 2_000_000,
	}
}

func newTestEngine(t *testing.T, p provider.Provider) (*Engine, session.Service) {
	t.Helper()
	sessions := session.New(testSystemPrompt)
	t.Cleanup(sessions.Shutdown)
	return New(sessions, p, tokens.NewCounter()), sessions
}

func TestEngine_SubmitHappyPath(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: &provider.Response{
		Content:      "Hello!",
		Usage:        proto.TokenUsage{PromptTokens: 5, CompletionTokens: 3},
		FinishReason: proto.FinishReasonEndTurn,
	}}
	engine, sessions := newTestEngine(t, fake)

	version, err := engine.Submit(context.Background(), "Hi")
	require.NoError(t, err)

	require.Equal(t, int64(1), version.ID)
	parent, ok := version.Parent()
	require.True(t, ok)
	require.Equal(t, int64(0), parent)

	require.Len(t, version.Messages, 3)
	require.Equal(t, proto.System, version.Messages[0].Role)
	require.Equal(t, proto.User, version.Messages[1].Role)
	require.Equal(t, "Hi", version.Messages[1].Content)
	require.Equal(t, proto.Assistant, version.Messages[2].Role)
	require.Equal(t, "Hello!", version.Messages[2].Content)

	require.Equal(t, int64(8), version.CumulativeTokens)
	require.False(t, version.Estimated)
	require.InDelta(t, 5*1.0+3*2.0, version.Cost, 1e-9)

	require.Equal(t, version.ID, sessions.Active().ID)

	// The service saw the full working history: system + user.
	require.Len(t, fake.sent, 1)
	require.Len(t, fake.sent[0], 2)
}

func TestEngine_SubmitAccumulatesAcrossExchanges(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: &provider.Response{
		Content: "ok",
		Usage:   proto.TokenUsage{PromptTokens: 10, CompletionTokens: 5},
	}}
	engine, sessions := newTestEngine(t, fake)

	_, err := engine.Submit(context.Background(), "first")
	require.NoError(t, err)
	version, err := engine.Submit(context.Background(), "second")
	require.NoError(t, err)

	require.Equal(t, int64(30), version.CumulativeTokens)
	require.Equal(t, 3, sessions.Len())

	// The second request carried the first exchange in its history.
	require.Len(t, fake.sent[1], 4)
}

func TestEngine_SubmitFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{err: &provider.ServiceUnavailableError{Err: errors.New("connection refused")}}
	engine, sessions := newTestEngine(t, fake)

	before := sessions.Active()
	beforeLen := sessions.Len()

	_, err := engine.Submit(context.Background(), "Hi")

	var unavailable *provider.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, beforeLen, sessions.Len())
	require.Equal(t, before, sessions.Active())
}

func TestEngine_SubmitSurfacesTypedErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{err: &provider.RateLimitError{Message: "slow down"}}
	engine, _ := newTestEngine(t, fake)

	_, err := engine.Submit(context.Background(), "Hi")

	var rateErr *provider.RateLimitError
	require.ErrorAs(t, err, &rateErr)

	// Exactly one call: the engine never retries on its own.
	require.Len(t, fake.sent, 1)
}

func TestEngine_SubmitEstimatesWhenUsageAbsent(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: &provider.Response{Content: "a perfectly reasonable answer"}}
	engine, _ := newTestEngine(t, fake)

	version, err := engine.Submit(context.Background(), "Hi")
	require.NoError(t, err)

	require.True(t, version.Estimated)
	require.Positive(t, version.Usage.PromptTokens)
	require.Positive(t, version.Usage.CompletionTokens)
	require.Equal(t, version.Usage.Total(), version.CumulativeTokens)

	// The estimate is deterministic: a second identical exchange on a
	// fresh session produces the same counts.
	engine2, _ := newTestEngine(t, &fakeProvider{response: &provider.Response{Content: "a perfectly reasonable answer"}})
	version2, err := engine2.Submit(context.Background(), "Hi")
	require.NoError(t, err)
	require.Equal(t, version.Usage, version2.Usage)
}

func TestEngine_SubmitAfterRestoreLinksToRestoredVersion(t *testing.T) {
	t.Parallel()

	fake := &fakeProvider{response: &provider.Response{
		Content: "ok",
		Usage:   proto.TokenUsage{PromptTokens: 2, CompletionTokens: 2},
	}}
	engine, sessions := newTestEngine(t, fake)

	_, err := engine.Submit(context.Background(), "first")
	require.NoError(t, err)
	restored, err := sessions.Restore(0)
	require.NoError(t, err)

	version, err := engine.Submit(context.Background(), "fresh start")
	require.NoError(t, err)

	parent, ok := version.Parent()
	require.True(t, ok)
	require.Equal(t, restored.ID, parent)
	// History after restore: system + new user + new assistant.
	require.Len(t, version.Messages, 3)
}
