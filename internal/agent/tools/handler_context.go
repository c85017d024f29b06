package tools

import "context"

// HandlerContext is the narrow view of dispatch-time context a tool Handler
// receives. It intentionally exposes only what handlers need (the
// cancellable context, the workspace root for path resolution, and the
// trace id for logging) so the tools package has no dependency on the
// policy, command, or patch packages that handlers are free to use
// internally.
type HandlerContext interface {
	Context() context.Context
	WorkspaceRoot() string
	TraceID() string
}
