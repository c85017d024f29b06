package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// ParseError wraps a plan-output parse failure, carrying the quoted raw
// error text the Step Executor injects into the retry-feedback message.
type ParseError struct {
	Code string
	Raw  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// envelope is the minimal shape used to sniff the "type" discriminator
// before committing to a concrete decode.
type envelope struct {
	Type string `json:"type"`
}

// ParseOutput parses one planner-model JSON object into a ParsedPlan. The
// model is required to emit exactly one JSON object with no code fences and
// no surrounding text; ParseOutput trims incidental whitespace only.
func ParseOutput(raw string) (*ParsedPlan, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: fmt.Errorf("empty output")}
	}
	if strings.HasPrefix(trimmed, "```") {
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: fmt.Errorf("output wrapped in code fences")}
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: err}
	}

	switch env.Type {
	case "FullPlan":
		var p FullPlan
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: err}
		}
		for i := range p.Steps {
			if p.Steps[i].Status == "" {
				p.Steps[i].Status = StepPending
			}
		}
		return &ParsedPlan{Full: &p}, nil
	case "PlanPatch":
		var p PlanPatch
		if err := json.Unmarshal([]byte(trimmed), &p); err != nil {
			return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: err}
		}
		if len(p.Changes) == 0 {
			return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: fmt.Errorf("PlanPatch must contain at least one change")}
		}
		return &ParsedPlan{Patch: &p}, nil
	default:
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: fmt.Errorf("unknown plan type %q", env.Type)}
	}
}

// CoerceToolCall is the fallback attempted on a second consecutive parse
// failure: if the raw output is a bare {tool, args} tool-call object, wrap
// it as a one-step FullPlan whose tools_expected names that tool.
func CoerceToolCall(raw string) (*FullPlan, error) {
	trimmed := strings.TrimSpace(raw)
	var call tools.ToolCall
	if err := json.Unmarshal([]byte(trimmed), &call); err != nil {
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: err}
	}
	if call.Tool == "" {
		return nil, &ParseError{Code: "E_PLAN_PARSE", Raw: raw, Err: fmt.Errorf("not a tool-call shape")}
	}
	return &FullPlan{
		Type:  "FullPlan",
		Title: fmt.Sprintf("coerced call to %s", call.Tool),
		Steps: []Step{{
			ID:            "step-1",
			Description:   fmt.Sprintf("invoke %s", call.Tool),
			ToolsExpected: []tools.Ident{tools.Ident(call.Tool)},
			Status:        StepPending,
		}},
	}, nil
}
