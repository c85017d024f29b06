package patch

import "strings"

// applyHunks applies hunks in order against content, returning the fully
// patched text. Each hunk's Before must match exactly once in the content
// as it stands after all prior hunks have been applied.
func applyHunks(path, content string, hunks []Hunk) (string, error) {
	for i, h := range hunks {
		n := strings.Count(content, h.Before)
		switch n {
		case 0:
			return "", &Error{Code: CodeConflict, HunkIdx: i, Path: path}
		case 1:
			content = strings.Replace(content, h.Before, h.After, 1)
		default:
			return "", &Error{Code: CodeAmbiguous, HunkIdx: i, Path: path, NumFound: n}
		}
	}
	return content, nil
}

// reverseHunks builds the inverse hunk sequence (After -> Before, in
// reverse order) used to undo a previously applied patch.
func reverseHunks(hunks []Hunk) []Hunk {
	out := make([]Hunk, len(hunks))
	for i, h := range hunks {
		out[len(hunks)-1-i] = Hunk{Before: h.After, After: h.Before}
	}
	return out
}
