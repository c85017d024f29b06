// Package openai provides a model.Client implementation backed by the OpenAI
// Chat Completions API. It translates orchestrator requests into
// ChatCompletion calls using github.com/openai/openai-go and maps plain-text
// responses back onto the generic model types the runtime speaks.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

// ChatCompletionsClient captures the subset of the OpenAI SDK client the
// adapter depends on, so tests can pass a stub in place of the real service.
type ChatCompletionsClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures optional OpenAI adapter behavior.
type Options struct {
	// DefaultModel is used when model.Request.Model is empty.
	DefaultModel string
	// MaxTokens is the completion cap used when a request does not specify
	// Request.MaxTokens.
	MaxTokens int
	// Temperature is used when a request does not specify Temperature.
	Temperature float64
}

// Client implements model.Client on top of the OpenAI Chat Completions API.
type Client struct {
	chat         ChatCompletionsClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an OpenAI-backed model client from chat and opts.
func New(chat ChatCompletionsClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat completions client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("openai: default model identifier is required")
	}
	return &Client{
		chat:         chat,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromAPIKey constructs a client using the SDK's default HTTP transport,
// authenticating with apiKey.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: api key is required")
	}
	oc := openai.NewClient(option.WithAPIKey(apiKey))
	return New(oc.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Chat Completions request and translates
// the response into a model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, *params)
	if err != nil {
		return nil, translateError(err)
	}
	return translateResponse(resp)
}

// Stream is not implemented: the Chat Completions SDK used here exposes
// streaming via a separate server-sent-events decoder that this adapter does
// not wire up, since nothing in this module currently drives incremental
// completions against OpenAI (the orchestrator, step executor, and replanner
// all call Complete). Wire up openai.Client.Chat.Completions.NewStreaming
// here if a caller needs it.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	return nil, errors.New("openai: streaming completions are not supported by this adapter")
}

func (c *Client) prepareRequest(req *model.Request) (*openai.ChatCompletionNewParams, error) {
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
	msgs, err := encodeMessages(req.Messages)
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
	params := openai.ChatCompletionNewParams{
		Model:               modelID,
		Messages:            msgs,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	temp := float64(req.Temperature)
	if temp <= 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}
	return &params, nil
}

// encodeMessages maps model.Messages onto OpenAI's role-tagged message
// union. RoleTool feedback rides back in as a plain user turn, mirroring the
// Anthropic adapter: this module's tool-call protocol lives in assistant
// text, not native function-calling turns.
func encodeMessages(msgs []model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		text := m.Content.AsText()
		if text == "" {
			continue
		}
		switch m.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(text))
		case model.RoleUser, model.RoleTool:
			out = append(out, openai.UserMessage(text))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(text))
		default:
			return nil, fmt.Errorf("%w: unsupported message role %q", model.ErrMalformed, m.Role)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: at least one user/assistant message is required", model.ErrMalformed)
	}
	return out, nil
}

func translateResponse(resp *openai.ChatCompletion) (*model.Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", model.ErrMalformed)
	}
	choice := resp.Choices[0]
	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	return &model.Response{
		Message:    model.NewTextMessage(model.RoleAssistant, choice.Message.Content),
		Usage:      usage,
		StopReason: string(choice.FinishReason),
	}, nil
}

// translateError classifies an SDK error into one of the transport error
// kinds, wrapping the original error for %w chains.
func translateError(err error) error {
	var apiErr *openai.Error
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
	return fmt.Errorf("openai: chat.completions.new: %w", err)
}
