package promptcompose

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ProfileFile is the decoded shape of prompt_profiles.yaml: profile name →
// stage → StageRefs.
type ProfileFile map[string]map[Stage]StageRefs

// VersionEntry pins a template ref to its current/previous compiled body
// version, matching prompt_versions.json's {current, previous} shape.
type VersionEntry struct {
	Current  string `json:"current"`
	Previous string `json:"previous,omitempty"`
}

// VersionsFile is the decoded shape of prompt_versions.json: template ref →
// VersionEntry.
type VersionsFile map[string]VersionEntry

// ProfileRegistry is the hot-reloadable, process-wide prompt-profile +
// version-pin registry, mirroring the snapshot-swap pattern used by the
// Intent Registry and Tool Registry.
type ProfileRegistry struct {
	mu            sync.RWMutex
	snapshot      *profileSnapshot
	profilesPath  string
	versionsPath  string
}

type profileSnapshot struct {
	profiles     ProfileFile
	versions     VersionsFile
	profilesMod  time.Time
	versionsMod  time.Time
}

// NewProfileRegistry loads prompt_profiles.yaml and prompt_versions.json
// from the given paths.
func NewProfileRegistry(profilesPath, versionsPath string) (*ProfileRegistry, error) {
	reg := &ProfileRegistry{profilesPath: profilesPath, versionsPath: versionsPath}
	if err := reg.reload(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Reload re-reads either file if its mtime advanced since the last load.
func (r *ProfileRegistry) Reload() error {
	pInfo, err := os.Stat(r.profilesPath)
	if err != nil {
		return fmt.Errorf("promptcompose: stat profiles file: %w", err)
	}
	vInfo, err := os.Stat(r.versionsPath)
	if err != nil {
		return fmt.Errorf("promptcompose: stat versions file: %w", err)
	}
	r.mu.RLock()
	cur := r.snapshot
	r.mu.RUnlock()
	if cur != nil && !pInfo.ModTime().After(cur.profilesMod) && !vInfo.ModTime().After(cur.versionsMod) {
		return nil
	}
	return r.reload()
}

func (r *ProfileRegistry) reload() error {
	pInfo, err := os.Stat(r.profilesPath)
	if err != nil {
		return fmt.Errorf("promptcompose: stat profiles file: %w", err)
	}
	praw, err := os.ReadFile(r.profilesPath)
	if err != nil {
		return fmt.Errorf("promptcompose: read profiles file: %w", err)
	}
	var profiles ProfileFile
	if err := yaml.Unmarshal(praw, &profiles); err != nil {
		return fmt.Errorf("promptcompose: parse profiles file: %w", err)
	}

	vInfo, err := os.Stat(r.versionsPath)
	if err != nil {
		return fmt.Errorf("promptcompose: stat versions file: %w", err)
	}
	vraw, err := os.ReadFile(r.versionsPath)
	if err != nil {
		return fmt.Errorf("promptcompose: read versions file: %w", err)
	}
	var versions VersionsFile
	if err := unmarshalJSONOrEmpty(vraw, &versions); err != nil {
		return fmt.Errorf("promptcompose: parse versions file: %w", err)
	}

	snap := &profileSnapshot{
		profiles:    profiles,
		versions:    versions,
		profilesMod: pInfo.ModTime(),
		versionsMod: vInfo.ModTime(),
	}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	return nil
}

// StageRefs returns the registered refs for profile/stage.
func (r *ProfileRegistry) StageRefs(profile string, stage Stage) (StageRefs, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byStage, ok := r.snapshot.profiles[profile]
	if !ok {
		return StageRefs{}, fmt.Errorf("promptcompose: unknown profile %q", profile)
	}
	refs, ok := byStage[stage]
	if !ok {
		return StageRefs{}, fmt.Errorf("promptcompose: profile %q has no refs for stage %q", profile, stage)
	}
	return refs, nil
}

// ResolveRef pins a bare template ref to its current version unless ref
// already carries an explicit "@version" pin.
func (r *ProfileRegistry) ResolveRef(ref string) string {
	if ref == "" {
		return ""
	}
	if hasExplicitPin(ref) {
		return ref
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.snapshot.versions[ref]; ok && entry.Current != "" {
		return ref + "@" + entry.Current
	}
	return ref + "@current"
}

func hasExplicitPin(ref string) bool {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '@' {
			return true
		}
	}
	return false
}
