package model

import (
	"context"
	"errors"
)

type (
	// ToolDefinition describes a tool exposed to the model for the current turn.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema any
	}

	// TokenUsage tracks token counts for a single model call.
	TokenUsage struct {
		InputTokens  int
		OutputTokens int
		TotalTokens  int
	}

	// Request captures the inputs for one model invocation.
	Request struct {
		Model       string
		Messages    []Message
		Temperature float32
		MaxTokens   int
		Tools       []ToolDefinition
		Timeout     int // seconds; 0 means use the client default.
	}

	// Response is the result of a non-streaming invocation.
	Response struct {
		Message    Message
		Usage      TokenUsage
		StopReason string
	}

	// Chunk is one streaming event emitted while a response is generated.
	Chunk struct {
		Type       string
		Delta      string
		UsageDelta *TokenUsage
		StopReason string
	}

	// Streamer delivers incremental model output. Callers drain Recv until it
	// returns io.EOF, then Close.
	Streamer interface {
		Recv() (Chunk, error)
		Close() error
	}

	// Client is the provider-agnostic LLM transport contract. Concrete
	// adapters (internal/llm/anthropic, internal/llm/openai) translate
	// Request/Response/Chunk to and from one provider's wire API.
	Client interface {
		Complete(ctx context.Context, req *Request) (*Response, error)
		Stream(ctx context.Context, req *Request) (Streamer, error)
	}
)

const (
	ChunkTypeText  = "text"
	ChunkTypeUsage = "usage"
	ChunkTypeStop  = "stop"
)

// Transport error kinds surfaced by provider adapters.
var (
	ErrTimeout     = errors.New("model: request timeout")
	ErrConnect     = errors.New("model: connect failed")
	ErrHTTPStatus  = errors.New("model: non-2xx http status")
	ErrMalformed   = errors.New("model: malformed response")
	ErrRateLimited = errors.New("model: rate limited")
)
