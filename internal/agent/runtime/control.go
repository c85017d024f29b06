package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// Control names the two structured control signals a step may emit instead
// of a tool call.
type Control string

const (
	ControlStepDone Control = "step_done"
	ControlReplan   Control = "replan"
)

// ControlEnvelope is a structured alternative to a ToolCall: the model
// signals that the current step is finished, or that the plan itself needs
// to change.
type ControlEnvelope struct {
	Control Control `json:"control"`
	Reason  string  `json:"reason,omitempty"`
}

// StepOutput is the parsed result of one step-execution model call: exactly
// one of Envelope or Call is populated. Legacy is set when the output was a
// bare legacy token rather than JSON.
type StepOutput struct {
	Envelope *ControlEnvelope
	Call     *tools.ToolCall
	Legacy   bool
}

// ParseStepOutput parses one step model response in priority order: (a) a
// structured ControlEnvelope, (b) a single ToolCall, (c) legacy string tokens
// STEP_DONE / REPLAN. Anything else is an error, which the caller counts
// toward invalid_output_count.
func ParseStepOutput(raw string) (StepOutput, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return StepOutput{}, fmt.Errorf("runtime: empty step output")
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &probe); err == nil {
		if _, ok := probe["control"]; ok {
			var env ControlEnvelope
			if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
				return StepOutput{}, fmt.Errorf("runtime: parse control envelope: %w", err)
			}
			if env.Control != ControlStepDone && env.Control != ControlReplan {
				return StepOutput{}, fmt.Errorf("runtime: unknown control %q", env.Control)
			}
			return StepOutput{Envelope: &env}, nil
		}
		if _, ok := probe["tool"]; ok {
			var call tools.ToolCall
			if err := json.Unmarshal([]byte(trimmed), &call); err != nil {
				return StepOutput{}, fmt.Errorf("runtime: parse tool call: %w", err)
			}
			if call.Tool == "" {
				return StepOutput{}, fmt.Errorf("runtime: tool call missing tool name")
			}
			return StepOutput{Call: &call}, nil
		}
		return StepOutput{}, fmt.Errorf("runtime: json object has neither control nor tool field")
	}

	switch trimmed {
	case "STEP_DONE":
		return StepOutput{Envelope: &ControlEnvelope{Control: ControlStepDone}, Legacy: true}, nil
	case "REPLAN":
		return StepOutput{Envelope: &ControlEnvelope{Control: ControlReplan}, Legacy: true}, nil
	}
	return StepOutput{}, fmt.Errorf("runtime: unrecognized step output")
}
