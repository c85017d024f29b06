package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
	stream     *ssestream.Stream[sdk.MessageStreamEventUnion]
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func (s *stubMessagesClient) NewStreaming(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	s.lastParams = body
	if s.stream == nil {
		s.stream = ssestream.NewStream[sdk.MessageStreamEventUnion](&noopDecoder{}, nil)
	}
	return s.stream
}

type noopDecoder struct{}

func (n *noopDecoder) Event() ssestream.Event { return ssestream.Event{} }
func (n *noopDecoder) Next() bool             { return false }
func (n *noopDecoder) Close() error           { return nil }
func (n *noopDecoder) Err() error             { return nil }

func TestCompleteTranslatesTextResponse(t *testing.T) {
	stub := &stubMessagesClient{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{
				{Type: "text", Text: "hi there"},
			},
			StopReason: sdk.StopReasonEndTurn,
			Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "claude-3-5-sonnet-20241022", MaxTokens: 256})
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
	assert.Equal(t, string(sdk.StopReasonEndTurn), resp.StopReason)
	require.Len(t, stub.lastParams.System, 1)
	assert.Equal(t, "be terse", stub.lastParams.System[0].Text)
}

func TestCompleteRejectsEmptyMessages(t *testing.T) {
	cl, err := New(&stubMessagesClient{}, Options{DefaultModel: "claude-3-5-sonnet-20241022", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{})
	assert.ErrorIs(t, err, model.ErrMalformed)
}

func TestCompleteUsesRequestModelOverDefault(t *testing.T) {
	stub := &stubMessagesClient{resp: &sdk.Message{StopReason: sdk.StopReasonEndTurn}}
	cl, err := New(stub, Options{DefaultModel: "claude-3-5-sonnet-20241022", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})

	require.NoError(t, err)
	assert.Equal(t, sdk.Model("claude-3-5-haiku-20241022"), stub.lastParams.Model)
}

func TestCompleteWrapsTransportError(t *testing.T) {
	stub := &stubMessagesClient{err: errors.New("boom")}
	cl, err := New(stub, Options{DefaultModel: "claude-3-5-sonnet-20241022", MaxTokens: 256})
	require.NoError(t, err)

	_, err = cl.Complete(context.Background(), &model.Request{
		Messages: []model.Message{model.NewTextMessage(model.RoleUser, "hi")},
	})
	require.Error(t, err)
}

func TestNewRejectsMissingDefaultModel(t *testing.T) {
	_, err := New(&stubMessagesClient{}, Options{})
	assert.Error(t, err)
}

func TestNewFromAPIKeyRejectsEmptyKey(t *testing.T) {
	_, err := NewFromAPIKey("", "claude-3-5-sonnet-20241022")
	assert.Error(t, err)
}
