package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

type stubChatCompletionsClient struct {
	lastParams openai.ChatCompletionNewParams
	resp        *openai.ChatCompletion
	err         error
}

func (s *stubChatCompletionsClient) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = params
	return s.resp, s.err
}

func TestCompleteTranslatesTextResponse(t *testing.T) {
	stub := &stubChatCompletionsClient{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{
					Message:      openai.ChatCompletionMessage{Content: "hi there"},
					FinishReason: "stop",
				},
			},
			Usage: openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	resp, err := cl.Complete(context.Background(), &model.Request{
		Messages: []model.Message{
			model.NewTextMessage(model.RoleSystem, "be terse"),
			model.NewTextMessage(model.RoleUser, "hello"),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "hi there", resp.Message.Content.AsText())
	assert.Equal(t, 15, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, "gpt-4o", stub.lastParams.Model)
	require.Len(t, stub.lastParams.Messages, 2)
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	cl, err := New(&stubChatCompletionsClient{}, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{})
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestCompleteUsesRequestModelOverDefault(t *testing.T) {
	stub := &stubChatCompletionsClient{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}},
	}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Model:    "gpt-4o-mini",
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", stub.lastParams.Model)
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	stub := &stubChatCompletionsClient{resp: &openai.ChatCompletion{}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestCompleteWrapsTransportError(t *testing.T) {
	stub := &stubChatCompletionsClient{err: errors.New("boom")}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})
	require.Error(t, err)
}

func TestStreamIsUnsupported(t *testing.T) {
	cl, err := New(&stubChatCompletionsClient{}, Options{DefaultModel: "gpt-4o", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Stream(context.Background(), &model.Request{
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})
	assert.Error(t, err)
}

func TestNewRejectsMissingDefaultModel(t *testing.T) {
	_, err := New(&stubChatCompletionsClient{}, Options{})
	assert.Error(t, err)
}

func TestNewFromAPIKeyRejectsEmptyKey(t *testing.T) {
	_, err := NewFromAPIKey("", "gpt-4o")
	assert.Error(t, err)
}
