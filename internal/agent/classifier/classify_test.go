package classifier

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/stretchr/testify/assert"
)

type scriptedClient struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedClient) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &model.Response{Message: model.NewTextMessage(model.RoleAssistant, s.responses[idx])}, nil
}

func (s *scriptedClient) Stream(ctx context.Context, req *model.Request) (model.Streamer, error) {
	return nil, nil
}

func TestClassifySucceedsFirstTry(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"category":"coding_task","reason":"asks to fix a bug","confidence":0.9}`}}
	c := New(client, "test-model", nil)
	result := c.Classify(context.Background(), "fix the bug in main.go")
	assert.Equal(t, CategoryCodingTask, result.Category)
	assert.Equal(t, 1, client.calls)
}

func TestClassifyFallsBackToUncertainAfterTwoParseFailures(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json", "still not json"}}
	c := New(client, "test-model", nil)
	result := c.Classify(context.Background(), "???")
	assert.Equal(t, CategoryUncertain, result.Category)
	assert.Equal(t, 2, client.calls)
}

func TestClassifyRetriesOnceThenSucceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{"not json", `{"category":"general_chat","reason":"small talk","confidence":0.5}`}}
	c := New(client, "test-model", nil)
	result := c.Classify(context.Background(), "hey there")
	assert.Equal(t, CategoryGeneralChat, result.Category)
	assert.Equal(t, 2, client.calls)
}

func TestClassifyRejectsUnknownCategory(t *testing.T) {
	client := &scriptedClient{responses: []string{`{"category":"bogus","reason":"x","confidence":0.9}`, `{"category":"bogus","reason":"x","confidence":0.9}`}}
	c := New(client, "test-model", nil)
	result := c.Classify(context.Background(), "whatever")
	assert.Equal(t, CategoryUncertain, result.Category)
}
