package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/catwalk/pkg/catwalk"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tejjnayak/rewind/internal/proto"
)

type openaiClient struct {
	options clientOptions
	client  openai.Client
}

func newOpenAIClient(options clientOptions) *openaiClient {
	openaiClientOptions := []option.RequestOption{}
	if options.apiKey != "" {
		openaiClientOptions = append(openaiClientOptions, option.WithAPIKey(options.apiKey))
	}
	if options.baseURL != "" {
		openaiClientOptions = append(openaiClientOptions, option.WithBaseURL(options.baseURL))
	}
	for key, value := range options.extraHeaders {
		openaiClientOptions = append(openaiClientOptions, option.WithHeader(key, value))
	}
	return &openaiClient{
		options: options,
		client:  openai.NewClient(openaiClientOptions...),
	}
}

func (o *openaiClient) convertMessages(messages []proto.Message) (openaiMessages []openai.ChatCompletionMessageParamUnion) {
	for _, msg := range messages {
		switch msg.Role {
		case proto.System:
			openaiMessages = append(openaiMessages, openai.SystemMessage(msg.Content))
		case proto.User:
			openaiMessages = append(openaiMessages, openai.UserMessage(msg.Content))
		case proto.Assistant:
			// Skip empty assistant messages
			if msg.Content == "" {
				continue
			}
			openaiMessages = append(openaiMessages, openai.AssistantMessage(msg.Content))
		}
	}
	return openaiMessages
}

func (o *openaiClient) finishReason(reason string) proto.FinishReason {
	switch reason {
	case "stop":
		return proto.FinishReasonEndTurn
	case "length":
		return proto.FinishReasonMaxTokens
	default:
		return proto.FinishReasonUnknown
	}
}

func (o *openaiClient) SendMessages(ctx context.Context, messages []proto.Message) (*Response, error) {
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(o.options.model.ID),
		Messages:  o.convertMessages(messages),
		MaxTokens: openai.Int(o.options.resolvedMaxTokens()),
	}
	if o.options.temperature != nil {
		params.Temperature = openai.Float(*o.options.temperature)
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyOpenAI(err)
	}

	if len(completion.Choices) == 0 {
		return nil, &ServiceUnavailableError{
			Err: fmt.Errorf("received empty response from OpenAI API - check endpoint configuration"),
		}
	}

	return &Response{
		Content: completion.Choices[0].Message.Content,
		Usage: proto.TokenUsage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
		},
		FinishReason: o.finishReason(string(completion.Choices[0].FinishReason)),
	}, nil
}

func (o *openaiClient) Model() catwalk.Model {
	return o.options.model
}

func classifyOpenAI(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		var header http.Header
		if apiErr.Response != nil {
			header = apiErr.Response.Header
		}
		return classifyStatus(apiErr.StatusCode, apiErr.Message, header, err)
	}
	return classifyTransport(err)
}
