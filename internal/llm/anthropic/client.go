// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API. It translates orchestrator requests into
// anthropic.Message calls using github.com/anthropics/anthropic-sdk-go and
// maps responses (text, usage, stop reason) back onto the generic model
// types the runtime speaks.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

// MessagesClient captures the subset of the Anthropic SDK client the adapter
// depends on, so tests can pass a stub in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// Options configures optional Anthropic adapter behavior.
type Options struct {
	// DefaultModel is used when model.Request.Model is empty.
	DefaultModel string
	// MaxTokens is the completion cap used when a request does not specify
	// Request.MaxTokens.
	MaxTokens int
	// Temperature is used when a request does not specify Temperature.
	Temperature float64
}

// Client implements model.Client on top of the Anthropic Messages API.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed model client from msg and opts.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model identifier is required")
	}
	return &Client{
		msg:          msg,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the SDK's default HTTP transport,
// authenticating with apiKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	sc := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&sc.Messages, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Messages.New request and translates the
// response into a model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return nil, translateError(err)
	}
	return translateResponse(msg)
}

// Stream invokes Messages.NewStreaming and adapts incremental events into
// model.Chunks.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, *params)
	if err := stream.Err(); err != nil {
		return nil, translateError(err)
	}
	return newStreamer(ctx, stream), nil
}

func (c *Client) prepareRequest(req *model.Request) (*sdk.MessageNewParams, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages are required", model.ErrMalformed)
	}
	modelID := req.Model
	if modelID == "" {
		modelID = c.defaultModel
	}
	if modelID == "" {
		return nil, fmt.Errorf("%w: model identifier is required", model.ErrMalformed)
	}
	msgs, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max_tokens must be positive", model.ErrMalformed)
	}
	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	temp := float64(req.Temperature)
	if temp <= 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}
	return &params, nil
}

// encodeMessages splits the conversation into a system prompt (concatenated
// from every RoleSystem message) and the ordered user/assistant turns. The
// orchestrator's tool-call protocol rides inside plain text, so RoleTool
// feedback is folded back in as a user turn rather than a native tool_result
// block.
func encodeMessages(msgs []model.Message) ([]sdk.MessageParam, string, error) {
	conversation := make([]sdk.MessageParam, 0, len(msgs))
	var system string

	for _, m := range msgs {
		text := m.Content.AsText()
		switch m.Role {
		case model.RoleSystem:
			if text == "" {
				continue
			}
			if system != "" {
				system += "\n\n"
			}
			system += text
		case model.RoleUser, model.RoleTool:
			if text == "" {
				continue
			}
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(text)))
		case model.RoleAssistant:
			if text == "" {
				continue
			}
			conversation = append(conversation, sdk.NewAssistantMessage(sdk.NewTextBlock(text)))
		default:
			return nil, "", fmt.Errorf("%w: unsupported message role %q", model.ErrMalformed, m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, "", fmt.Errorf("%w: at least one user/assistant message is required", model.ErrMalformed)
	}
	return conversation, system, nil
}

func translateResponse(msg *sdk.Message) (*model.Response, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil response message", model.ErrMalformed)
	}
	var content model.Content
	for _, block := range msg.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		content = model.MergeContent(content, model.Content{String: block.Text})
	}
	usage := model.TokenUsage{
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
		TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return &model.Response{
		Message:    model.Message{Role: model.RoleAssistant, Content: content},
		Usage:      usage,
		StopReason: string(msg.StopReason),
	}, nil
}

// translateError classifies an SDK error into one of the transport error
// kinds, wrapping the original error for %w chains.
func translateError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 429:
			return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		case 0:
			return fmt.Errorf("%w: %w", model.ErrConnect, err)
		default:
			return fmt.Errorf("%w: %w", model.ErrHTTPStatus, err)
		}
	}
	return fmt.Errorf("anthropic: messages.new: %w", err)
}
