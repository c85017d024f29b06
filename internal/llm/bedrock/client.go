// Package bedrock provides a model.Client implementation backed by the AWS
// Bedrock Converse API. It translates orchestrator requests into
// bedrockruntime.Converse calls and maps the resulting text content, usage,
// and stop reason back onto the generic model types the runtime speaks.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	smithy "github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

// RuntimeClient captures the subset of the AWS Bedrock runtime client the
// adapter depends on, so tests can pass a stub in place of
// *bedrockruntime.Client.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures optional Bedrock adapter behavior.
type Options struct {
	// DefaultModel is used when model.Request.Model is empty (a Bedrock
	// inference profile ARN or model ID, e.g. "anthropic.claude-3-5-sonnet").
	DefaultModel string
	// MaxTokens is the completion cap used when a request does not specify
	// Request.MaxTokens.
	MaxTokens int
	// Temperature is used when a request does not specify Temperature.
	Temperature float32
}

// Client implements model.Client on top of the AWS Bedrock Converse API.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int
	temperature  float32
}

// New builds a Bedrock-backed model client from runtime and opts.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model identifier is required")
	}
	return &Client{
		runtime:      runtime,
		defaultModel: opts.DefaultModel,
		maxTokens:    opts.MaxTokens,
		temperature:  opts.Temperature,
	}, nil
}

// NewFromRegion constructs a client using the AWS SDK's default credential
// chain (environment, shared config, or IAM role) resolved for region.
func NewFromRegion(ctx context.Context, region, defaultModel string) (*Client, error) {
	if region == "" {
		return nil, errors.New("bedrock: region is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return New(bedrockruntime.NewFromConfig(awsCfg), Options{DefaultModel: defaultModel})
}

// Complete issues a non-streaming Converse request and translates the
// response into a model.Response.
func (c *Client) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.Converse(ctx, params)
	if err != nil {
		return nil, translateError(err)
	}
	return translateResponse(out)
}

// Stream is not implemented: this adapter only wires the Converse API, since
// nothing in this module currently drives incremental completions against
// Bedrock (the orchestrator's direct-answer and planning stages, the step
// executor, and the replanner all call Complete). Wire up bedrockruntime.Client.ConverseStream here if a
// caller needs it.
func (c *Client) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	return nil, errors.New("bedrock: streaming completions are not supported by this adapter")
}

func (c *Client) prepareRequest(req *model.Request) (*bedrockruntime.ConverseInput, error) {
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
	conversation, system, err := encodeMessages(req.Messages)
	if err != nil {
		return nil, err
	}
	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: conversation,
	}
	if len(system) > 0 {
		input.System = system
	}
	if cfg := c.inferenceConfig(req.MaxTokens, req.Temperature); cfg != nil {
		input.InferenceConfig = cfg
	}
	return input, nil
}

func (c *Client) inferenceConfig(maxTokens int, temp float32) *brtypes.InferenceConfiguration {
	var cfg brtypes.InferenceConfiguration
	tokens := maxTokens
	if tokens <= 0 {
		tokens = c.maxTokens
	}
	if tokens > 0 {
		cfg.MaxTokens = aws.Int32(int32(tokens)) //nolint:gosec // bounded by config, not user input
	}
	t := temp
	if t <= 0 {
		t = c.temperature
	}
	if t > 0 {
		cfg.Temperature = aws.Float32(t)
	}
	if cfg.MaxTokens == nil && cfg.Temperature == nil {
		return nil
	}
	return &cfg
}

// encodeMessages splits the conversation into Bedrock system content blocks
// (concatenated from every RoleSystem message) and the ordered user/assistant
// turns. The orchestrator's tool-call protocol rides inside plain text, so
// RoleTool feedback is folded back in as a user turn rather than a native
// tool_result block, mirroring the Anthropic and OpenAI adapters.
func encodeMessages(msgs []model.Message) ([]brtypes.Message, []brtypes.SystemContentBlock, error) {
	conversation := make([]brtypes.Message, 0, len(msgs))
	var system []brtypes.SystemContentBlock

	for _, m := range msgs {
		text := m.Content.AsText()
		if text == "" {
			continue
		}
		switch m.Role {
		case model.RoleSystem:
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: text})
		case model.RoleUser, model.RoleTool:
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		case model.RoleAssistant:
			conversation = append(conversation, brtypes.Message{
				Role:    brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
			})
		default:
			return nil, nil, fmt.Errorf("%w: unsupported message role %q", model.ErrMalformed, m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one user/assistant message is required", model.ErrMalformed)
	}
	return conversation, system, nil
}

func translateResponse(out *bedrockruntime.ConverseOutput) (*model.Response, error) {
	if out == nil {
		return nil, fmt.Errorf("%w: nil response", model.ErrMalformed)
	}
	var content model.Content
	if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if tb, ok := block.(*brtypes.ContentBlockMemberText); ok && tb.Value != "" {
				content = model.MergeContent(content, model.Content{String: tb.Value})
			}
		}
	}
	usage := model.TokenUsage{}
	if out.Usage != nil {
		usage = model.TokenUsage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
			TotalTokens:  int(aws.ToInt32(out.Usage.TotalTokens)),
		}
	}
	return &model.Response{
		Message:    model.Message{Role: model.RoleAssistant, Content: content},
		Usage:      usage,
		StopReason: string(out.StopReason),
	}, nil
}

// translateError classifies an SDK error into one of the transport error
// kinds, wrapping the original error for %w chains.
func translateError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException":
			return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		if respErr.HTTPStatusCode() == 429 {
			return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
		}
		return fmt.Errorf("%w: %w", model.ErrHTTPStatus, err)
	}
	return fmt.Errorf("bedrock: converse: %w", err)
}
