// Package dispatch implements the Tool Dispatcher: it resolves a
// tool call against the process-wide registry, validates and defaults its
// arguments, serves cached results for read-only tools, enforces the
// policy engine, runs the handler under a timeout, invalidates the cache
// for writes/execs, and emits start/complete events.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/cache"
	"github.com/agentcore/orchestrator/internal/agent/events"
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/telemetry"
	"github.com/agentcore/orchestrator/internal/agent/toolerrors"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// ApprovalChecker mirrors policy.ApprovalChecker so callers can wire in the
// approval store without this package importing it directly.
type ApprovalChecker = policy.ApprovalChecker

// Options configures a Dispatcher.
type Options struct {
	Registry      *tools.Registry
	Cache         *cache.Cache
	Policy        *policy.Engine
	Bus           *events.Bus
	Logger        telemetry.Logger
	DefaultTimeout time.Duration
}

// Dispatcher is the single entry point the Step Executor calls to run a
// tool.
type Dispatcher struct {
	registry       *tools.Registry
	cache          *cache.Cache
	policy         *policy.Engine
	bus            *events.Bus
	logger         telemetry.Logger
	defaultTimeout time.Duration
}

// New constructs a Dispatcher from opts. Registry, Cache, and Policy must be
// non-nil; Bus and Logger default to no-ops when unset.
func New(opts Options) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	timeout := opts.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		registry:       opts.Registry,
		cache:          opts.Cache,
		policy:         opts.Policy,
		bus:            opts.Bus,
		logger:         logger,
		defaultTimeout: timeout,
	}
}

// Call carries everything Dispatch needs to resolve, gate, and run one tool
// invocation in the context of the current turn.
type Call struct {
	tools.ToolCall
	TraceID       string
	SessionID     string
	ProjectID     string
	WorkspaceRoot string
	RiskLevel     policy.RiskLevel
	PlanSummary   string
	// CommandArgv and Paths give the policy engine enough to gate a write
	// or exec call; empty for tools that touch neither.
	CommandArgv []string
	Paths       []string
	Confirmed   bool
	// Timeout is the caller's timeout; the smaller of it and the tool's own
	// TimeoutSeconds wins. Zero means "use the dispatcher default".
	Timeout time.Duration
}

// Dispatch resolves, validates, gates, executes, and (for read-only tools)
// caches one tool call, emitting tool_call_started/tool_call_completed
// events around the work.
func (d *Dispatcher) Dispatch(ctx context.Context, call Call) tools.ToolResult {
	d.publish(call, events.KindToolCallStarted, map[string]any{"tool": call.Tool, "args": call.Args})

	result := d.dispatch(ctx, call)

	d.publish(call, events.KindToolCallCompleted, map[string]any{
		"tool":       call.Tool,
		"ok":         result.OK,
		"error_code": result.ErrorCode,
		"from_cache": result.FromCache,
		"truncated":  result.Truncated,
	})
	return result
}

func (d *Dispatcher) dispatch(ctx context.Context, call Call) tools.ToolResult {
	spec, ok := d.registry.Lookup(tools.Ident(call.Tool))
	if !ok {
		return errResult("E_UNKNOWN_TOOL", fmt.Sprintf("unknown tool %q", call.Tool))
	}

	validator, _ := d.registry.Validator(spec.Name)
	args, issues, err := tools.ValidateAndDefault(validator, spec.ArgsSchema, call.Args)
	if err != nil {
		return errResult("E_BAD_ARGS", fieldIssuesMessage(issues, err))
	}
	if len(issues) > 0 {
		return errResult("E_BAD_ARGS", fieldIssuesMessage(issues, nil))
	}
	if unknown := tools.RejectUnknownKeys(spec.ArgsSchema, args); len(unknown) > 0 {
		return errResult("E_BAD_ARGS", fieldIssuesMessage(unknown, nil))
	}

	readOnly := spec.SideEffects == tools.SideEffectRead
	if readOnly {
		if cached, hit := d.cache.Get(call.Tool, args); hit {
			return cached
		}
	}

	if d.policy != nil {
		risk := policy.Max(call.RiskLevel, sideEffectRisk(spec.SideEffects))
		decision := d.policy.DecideStep(spec.Name, risk, call.PlanSummary, call.CommandArgv, call.Paths, call.Confirmed)
		if !decision.Allow {
			if decision.ErrorCode == "E_APPROVAL_REQUIRED" {
				d.publish(call, events.KindApprovalRequired, map[string]any{"tool": call.Tool, "plan_summary": call.PlanSummary})
			} else {
				kind := events.KindPolicyDenyCommand
				if decision.ErrorCode == "E_PATH_DENIED" {
					kind = events.KindPolicyDenyPath
				}
				d.publish(call, kind, map[string]any{"tool": call.Tool, "reason": decision.Reason})
			}
			return errResult(decision.ErrorCode, decision.Reason)
		}
	}

	timeout := d.callTimeout(spec, call)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := d.execute(runCtx, spec, args, call.WorkspaceRoot, call.TraceID)

	if spec.SideEffects == tools.SideEffectWrite || spec.SideEffects == tools.SideEffectExec {
		d.invalidateCache(spec, result)
	}
	return result
}

func (d *Dispatcher) execute(ctx context.Context, spec *tools.ToolSpec, args map[string]any, workspaceRoot, traceID string) tools.ToolResult {
	hctx := newHandlerContext(ctx, workspaceRoot, traceID)
	type outcome struct {
		payload any
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		payload, err := spec.Handler(hctx, args)
		done <- outcome{payload: payload, err: err}
	}()

	select {
	case <-ctx.Done():
		return errResult("E_TIMEOUT", fmt.Sprintf("tool %q timed out", spec.Name))
	case o := <-done:
		if o.err != nil {
			return toolErrorResult(o.err)
		}
		result := tools.ToolResult{OK: true, Payload: o.payload, PathsTouched: pathsTouchedOf(o.payload)}
		if spec.SideEffects == tools.SideEffectRead {
			d.cache.Put(spec.Name.String(), args, result, result.PathsTouched)
		}
		return result
	}
}

func (d *Dispatcher) invalidateCache(spec *tools.ToolSpec, result tools.ToolResult) {
	if spec.SideEffects == tools.SideEffectExec {
		d.cache.InvalidateAll()
		return
	}
	if len(result.PathsTouched) > 0 {
		d.cache.InvalidatePaths(result.PathsTouched)
	}
}

func (d *Dispatcher) callTimeout(spec *tools.ToolSpec, call Call) time.Duration {
	timeout := d.defaultTimeout
	if call.Timeout > 0 {
		timeout = call.Timeout
	}
	if spec.TimeoutSeconds > 0 {
		specTimeout := time.Duration(spec.TimeoutSeconds) * time.Second
		if specTimeout < timeout {
			timeout = specTimeout
		}
	}
	return timeout
}

func (d *Dispatcher) publish(call Call, kind events.Kind, data map[string]any) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(events.Event{
		TS:        time.Now(),
		TraceID:   call.TraceID,
		SessionID: call.SessionID,
		ProjectID: call.ProjectID,
		Kind:      kind,
		Data:      data,
	})
}

// pathsToucher is the optional interface a tool handler's payload may
// implement to report which workspace paths it touched, so write/exec
// dispatches can invalidate exactly the cache entries that depended on them.
type pathsToucher interface {
	PathsTouched() []string
}

func pathsTouchedOf(payload any) []string {
	if pt, ok := payload.(pathsToucher); ok {
		return pt.PathsTouched()
	}
	return nil
}

// sideEffectRisk is the floor a tool's own side effects impose on the risk
// level passed to the policy engine: the step inherits the intent's risk
// unless the tool it calls is riskier than that.
func sideEffectRisk(effect tools.SideEffect) policy.RiskLevel {
	switch effect {
	case tools.SideEffectExec:
		return policy.RiskHigh
	case tools.SideEffectWrite:
		return policy.RiskMedium
	default:
		return policy.RiskLow
	}
}

func errResult(code, text string) tools.ToolResult {
	return tools.ToolResult{OK: false, ErrorCode: code, ErrorText: text}
}

func toolErrorResult(err error) tools.ToolResult {
	te := toolerrors.FromError(err)
	code := te.Code
	if code == "" {
		code = "E_NOT_FOUND"
	}
	return tools.ToolResult{OK: false, ErrorCode: code, ErrorText: te.Message}
}

func fieldIssuesMessage(issues []tools.FieldIssue, err error) string {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	for _, iss := range issues {
		if msg != "" {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", iss.Field, iss.Constraint)
	}
	if msg == "" {
		msg = "invalid arguments"
	}
	return msg
}
