package dispatch

import "context"

// handlerContext is the concrete tools.HandlerContext passed to every
// handler invocation.
type handlerContext struct {
	ctx           context.Context
	workspaceRoot string
	traceID       string
}

func newHandlerContext(ctx context.Context, workspaceRoot, traceID string) handlerContext {
	return handlerContext{ctx: ctx, workspaceRoot: workspaceRoot, traceID: traceID}
}

func (h handlerContext) Context() context.Context { return h.ctx }
func (h handlerContext) WorkspaceRoot() string     { return h.workspaceRoot }
func (h handlerContext) TraceID() string           { return h.traceID }
