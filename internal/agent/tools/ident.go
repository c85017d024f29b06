package tools

// Ident is the strong type for tool names. Using a distinct type instead of
// a bare string prevents accidental mixing of tool identifiers with
// free-form strings in maps and function signatures.
type Ident string

func (i Ident) String() string { return string(i) }

// SideEffect classifies the effect a tool has on the workspace or the outside
// world. The dispatcher and policy engine use this to decide on caching and
// approval requirements.
type SideEffect string

const (
	SideEffectRead  SideEffect = "read"
	SideEffectWrite SideEffect = "write"
	SideEffectExec  SideEffect = "exec"
	SideEffectNet   SideEffect = "network"
	SideEffectNone  SideEffect = "none"
)

// Group names a bundle of tools injected into the prompt for a given intent
// (minimal / readonly / write / exec / web / task / utility), so the prompt
// layer can advertise only the subset relevant to the current turn without
// narrowing what the registry is willing to validate and dispatch.
type Group string

const (
	GroupMinimal  Group = "minimal"
	GroupReadonly Group = "readonly"
	GroupWrite    Group = "write"
	GroupExec     Group = "exec"
	GroupWeb      Group = "web"
	GroupTask     Group = "task"
	GroupUtility  Group = "utility"
)

// FieldIssue is a single validation issue surfaced for a tool payload, used
// to populate E_BAD_ARGS errors and retry-hint guidance with field-level
// precision.
type FieldIssue struct {
	Field      string
	Constraint string
}
