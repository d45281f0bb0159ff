package provider

import (
	"context"
	"fmt"

	"github.com/charmbracelet/catwalk/pkg/catwalk"

	"github.com/tejjnayak/rewind/internal/proto"
)

// Response is the validated result of a single completion call: assistant
// text plus the usage counters the service reported. Usage may be zero when
// the service does not report it; callers fall back to estimation.
type Response struct {
	Content      string
	Usage        proto.TokenUsage
	FinishReason proto.FinishReason
}

// Provider is a text-completion service. SendMessages blocks until the
// service answers or ctx expires; it performs no retries.
type Provider interface {
	SendMessages(ctx context.Context, messages []proto.Message) (*Response, error)

	Model() catwalk.Model
}

type clientOptions struct {
	apiKey       string
	baseURL      string
	model        catwalk.Model
	maxTokens    int64
	temperature  *float64
	extraHeaders map[string]string
}

type Option func(*clientOptions)

func WithModel(model catwalk.Model) Option {
	return func(options *clientOptions) {
		options.model = model
	}
}

func WithBaseURL(baseURL string) Option {
	return func(options *clientOptions) {
		options.baseURL = baseURL
	}
}

func WithMaxTokens(maxTokens int64) Option {
	return func(options *clientOptions) {
		options.maxTokens = maxTokens
	}
}

func WithTemperature(temperature float64) Option {
	return func(options *clientOptions) {
		options.temperature = &temperature
	}
}

func WithExtraHeaders(headers map[string]string) Option {
	return func(options *clientOptions) {
		options.extraHeaders = headers
	}
}

func New(providerType catwalk.Type, apiKey string, opts ...Option) (Provider, error) {
	options := clientOptions{apiKey: apiKey}
	for _, o := range opts {
		o(&options)
	}

	switch providerType {
	case catwalk.TypeOpenAI:
		return newOpenAIClient(options), nil
	case catwalk.TypeAnthropic:
		return newAnthropicClient(options), nil
	}
	return nil, fmt.Errorf("provider not supported: %s", providerType)
}

func (o clientOptions) resolvedMaxTokens() int64 {
	if o.maxTokens > 0 {
		return o.maxTokens
	}
	if o.model.DefaultMaxTokens > 0 {
		return o.model.DefaultMaxTokens
	}
	return 4096
}
