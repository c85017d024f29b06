package patch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Engine applies and undoes patches against files on disk, recording each
// successful apply in an UndoStore keyed by plan id.
type Engine struct {
	undo *UndoStore
}

// NewEngine returns an Engine backed by a fresh undo store.
func NewEngine() *Engine {
	return &Engine{undo: NewUndoStore()}
}

// ApplyResult describes one successful patch apply.
type ApplyResult struct {
	OldHash string
	NewHash string
}

// Apply reads path, applies p's hunks against its current contents, writes
// the result atomically (temp file, fsync, rename), and records an undo
// entry under planID. It returns *Error with CodeConflict or CodeAmbiguous
// when a hunk's before-context does not match exactly once.
func (e *Engine) Apply(planID, path string, p Patch) (ApplyResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ApplyResult{}, fmt.Errorf("patch: read %q: %w", path, err)
	}
	oldHash := hashOf(raw)

	patched, err := applyHunks(path, string(raw), p.Hunks)
	if err != nil {
		return ApplyResult{}, err
	}
	newHash := hashOf([]byte(patched))

	if err := writeAtomic(path, []byte(patched)); err != nil {
		return ApplyResult{}, err
	}

	e.undo.record(UndoEntry{
		PlanID:  planID,
		Path:    path,
		OldHash: oldHash,
		NewHash: newHash,
		Hunks:   p.Hunks,
	})
	return ApplyResult{OldHash: oldHash, NewHash: newHash}, nil
}

// Undo reverses the most recent patch applied under planID. It refuses if
// the file's current contents no longer hash to the recorded NewHash —
// meaning something else has touched the file since the apply.
func (e *Engine) Undo(planID string) error {
	entry, ok := e.undo.Latest(planID)
	if !ok {
		return fmt.Errorf("patch: no undo entry for plan %q", planID)
	}
	raw, err := os.ReadFile(entry.Path)
	if err != nil {
		return fmt.Errorf("patch: read %q: %w", entry.Path, err)
	}
	if hashOf(raw) != entry.NewHash {
		return &Error{Code: CodeConflict, Path: entry.Path}
	}

	reversed, err := applyHunks(entry.Path, string(raw), reverseHunks(entry.Hunks))
	if err != nil {
		return err
	}
	if hashOf([]byte(reversed)) != entry.OldHash {
		return fmt.Errorf("patch: undo of %q did not restore original hash", entry.Path)
	}
	if err := writeAtomic(entry.Path, []byte(reversed)); err != nil {
		return err
	}
	e.undo.pop(planID)
	return nil
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// writeAtomic writes data to path via a sibling temp file, fsync, then
// rename, so a crash mid-write never leaves path partially updated.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("patch: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("patch: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("patch: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("patch: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("patch: rename temp file into place: %w", err)
	}
	return nil
}
