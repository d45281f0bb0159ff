package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/charmbracelet/catwalk/pkg/catwalk"

	"github.com/tejjnayak/rewind/internal/proto"
)

type anthropicClient struct {
	options clientOptions
	client  anthropic.Client
}

func newAnthropicClient(options clientOptions) *anthropicClient {
	anthropicClientOptions := []option.RequestOption{}
	if options.apiKey != "" {
		anthropicClientOptions = append(anthropicClientOptions, option.WithAPIKey(options.apiKey))
	}
	if options.baseURL != "" {
		anthropicClientOptions = append(anthropicClientOptions, option.WithBaseURL(options.baseURL))
	}
	for key, value := range options.extraHeaders {
		anthropicClientOptions = append(anthropicClientOptions, option.WithHeader(key, value))
	}
	return &anthropicClient{
		options: options,
		client:  anthropic.NewClient(anthropicClientOptions...),
	}
}

// convertMessages splits the history into the system blocks and the
// user/assistant turns the Anthropic API expects.
func (a *anthropicClient) convertMessages(messages []proto.Message) (system []anthropic.TextBlockParam, converted []anthropic.MessageParam) {
	for _, msg := range messages {
		switch msg.Role {
		case proto.System:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case proto.User:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case proto.Assistant:
			if msg.Content == "" {
				continue
			}
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return system, converted
}

func (a *anthropicClient) finishReason(reason string) proto.FinishReason {
	switch reason {
	case "end_turn":
		return proto.FinishReasonEndTurn
	case "max_tokens":
		return proto.FinishReasonMaxTokens
	default:
		return proto.FinishReasonUnknown
	}
}

func (a *anthropicClient) SendMessages(ctx context.Context, messages []proto.Message) (*Response, error) {
	system, converted := a.convertMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.options.model.ID),
		MaxTokens: a.options.resolvedMaxTokens(),
		Messages:  converted,
		System:    system,
	}
	if a.options.temperature != nil {
		params.Temperature = anthropic.Float(*a.options.temperature)
	}

	response, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyAnthropic(err)
	}

	var content strings.Builder
	for _, block := range response.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return &Response{
		Content: content.String(),
		Usage: proto.TokenUsage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
		},
		FinishReason: a.finishReason(string(response.StopReason)),
	}, nil
}

func (a *anthropicClient) Model() catwalk.Model {
	return a.options.model
}

func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(apiErr.StatusCode, "", header, err)
	}
	return classifyTransport(err)
}
