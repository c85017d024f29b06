// Package patch implements the Patch Engine: hunks are anchored on
// surrounding text rather than line numbers, so a patch still applies after
// unrelated edits have shifted line numbers elsewhere in the file. Each
// successful apply is atomic (temp file, fsync, rename) and recorded as an
// undo entry that a later undo_patch can reverse, gated on the file's
// current hash still matching what the apply produced.
package patch

import "fmt"

// Hunk anchors a single textual change: Before must match exactly once in
// the target file's current contents, and is replaced verbatim by After.
type Hunk struct {
	Before string
	After  string
}

// Patch is an ordered sequence of hunks applied to one file. Hunks are
// applied against the content produced by the previous hunk, so later hunks
// may target text introduced by earlier ones within the same patch.
type Patch struct {
	Hunks []Hunk
}

// Code identifies a patch-specific failure, surfaced as ToolResult.ErrorCode
// by callers that wrap patch errors into a tool dispatch result.
type Code string

const (
	CodeConflict  Code = "E_CONFLICT"
	CodeAmbiguous Code = "E_AMBIGUOUS"
)

// Error is returned when a hunk cannot be applied unambiguously.
type Error struct {
	Code     Code
	HunkIdx  int
	Path     string
	NumFound int
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeConflict:
		return fmt.Sprintf("patch: %s: hunk %d: before-context not found", e.Path, e.HunkIdx)
	case CodeAmbiguous:
		return fmt.Sprintf("patch: %s: hunk %d: before-context matches %d times", e.Path, e.HunkIdx, e.NumFound)
	default:
		return fmt.Sprintf("patch: %s: hunk %d: apply failed", e.Path, e.HunkIdx)
	}
}
