package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/model"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
)

// Result is the decoded output of one classification call.
type Result struct {
	Category   Category `json:"category"`
	Reason     string   `json:"reason"`
	Confidence float64  `json:"confidence"`
}

// Classifier sends a dedicated classification prompt to an LLM client and
// decodes its strict-JSON response. If parsing fails twice it falls back to
// CategoryUncertain rather than propagating an error, since classification
// failure must never abort a turn.
type Classifier struct {
	client model.Client
	modelName string
	logger telemetry.Logger
}

// New constructs a Classifier backed by client, sending requests against
// modelName.
func New(client model.Client, modelName string, logger telemetry.Logger) *Classifier {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Classifier{client: client, modelName: modelName, logger: logger}
}

const classifyPromptTemplate = `Classify the following user request into exactly one category from this list:
coding_task, error_diagnosis, repo_analysis, documentation_task, technical_consulting,
project_design, security_consulting, capability_query, general_chat, casual_chat, uncertain.

Respond with exactly one JSON object and nothing else: {"category": "...", "reason": "...", "confidence": 0.0}

User request:
%s`

// Classify issues up to two classification requests (the first attempt plus
// one retry on parse failure) and returns CategoryUncertain if both fail to
// decode to a valid Result.
func (c *Classifier) Classify(ctx context.Context, userInput string) Result {
	req := &model.Request{
		Model:       c.modelName,
		Messages:    []model.Message{model.NewTextMessage(model.RoleUser, fmt.Sprintf(classifyPromptTemplate, userInput))},
		Temperature: 0,
		MaxTokens:   256,
	}

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := c.client.Complete(ctx, req)
		if err != nil {
			c.logger.Warn(ctx, "classifier: llm call failed", "attempt", attempt, "error", err.Error())
			continue
		}
		result, perr := parseResult(resp.Message.Content.AsText())
		if perr == nil {
			return result
		}
		c.logger.Warn(ctx, "classifier: parse failed", "attempt", attempt, "error", perr.Error())
	}
	return Result{Category: CategoryUncertain, Reason: "classification failed twice", Confidence: 0}
}

func parseResult(raw string) (Result, error) {
	trimmed := strings.TrimSpace(raw)
	var r Result
	if err := json.Unmarshal([]byte(trimmed), &r); err != nil {
		return Result{}, fmt.Errorf("classifier: decode response: %w", err)
	}
	if !r.Category.IsValid() {
		return Result{}, fmt.Errorf("classifier: unknown category %q", r.Category)
	}
	return r, nil
}
