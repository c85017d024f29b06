package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentcore/orchestrator/internal/agent/model"
)

type fakeClient struct {
	completeErr error
	streamErr   error

	completeCalls int
	streamCalls   int
}

func (f *fakeClient) Complete(_ context.Context, _ *model.Request) (*model.Response, error) {
	f.completeCalls++
	return nil, f.completeErr
}

func (f *fakeClient) Stream(_ context.Context, _ *model.Request) (model.Streamer, error) {
	f.streamCalls++
	return nil, f.streamErr
}

func textRequest(text string) *model.Request {
	return &model.Request{
		Messages:  []model.Message{model.NewTextMessage(model.RoleUser, text)},
		MaxTokens: 10,
	}
}

func TestAdaptiveRateLimiterBacksOffOnRateLimited(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 60000)
	initialTPM := limiter.CurrentTPM()

	client := &fakeClient{completeErr: model.ErrRateLimited}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Complete(context.Background(), textRequest("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRateLimited)
	assert.Less(t, limiter.CurrentTPM(), initialTPM)
}

func TestAdaptiveRateLimiterProbesOnSuccess(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 120000)
	limiter.mu.Lock()
	limiter.currentTPM = 60000
	limiter.recoveryRate = 1000
	limiter.mu.Unlock()
	initialTPM := limiter.CurrentTPM()

	client := &fakeClient{}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Complete(context.Background(), textRequest("hello"))
	require.NoError(t, err)
	assert.Greater(t, limiter.CurrentTPM(), initialTPM)
}

func TestAdaptiveRateLimiterNeverDropsBelowMinTPM(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 100)
	client := &fakeClient{completeErr: model.ErrRateLimited}
	wrapped := limiter.Middleware()(client)

	for i := 0; i < 20; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}

	assert.GreaterOrEqual(t, limiter.CurrentTPM(), limiter.minTPM)
}

func TestAdaptiveRateLimiterNeverExceedsMaxTPM(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(100, 200)
	limiter.mu.Lock()
	limiter.recoveryRate = 1000
	limiter.mu.Unlock()
	client := &fakeClient{}
	wrapped := limiter.Middleware()(client)

	for i := 0; i < 20; i++ {
		_, _ = wrapped.Complete(context.Background(), textRequest("hello"))
	}

	assert.LessOrEqual(t, limiter.CurrentTPM(), limiter.maxTPM)
}

func TestMiddlewareWrapsStream(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 60000)
	client := &fakeClient{streamErr: errors.New("boom")}
	wrapped := limiter.Middleware()(client)

	_, err := wrapped.Stream(context.Background(), textRequest("hello"))
	require.Error(t, err)
	assert.Equal(t, 1, client.streamCalls)
}

func TestMiddlewareNilNextReturnsNil(t *testing.T) {
	limiter := NewAdaptiveRateLimiter(60000, 60000)
	assert.Nil(t, limiter.Middleware()(nil))
}

func TestEstimateTokensFloorsOnEmptyMessages(t *testing.T) {
	assert.Equal(t, 500, estimateTokens(&model.Request{}))
}
