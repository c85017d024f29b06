package classifier

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/internal/agent/policy"
	"gopkg.in/yaml.v3"
)

// IntentRegistry is the hot-reloadable, process-wide set of intent
// definitions loaded from intents.yaml.
type IntentRegistry struct {
	mu       sync.RWMutex
	snapshot *intentSnapshot
	path     string
}

type intentSnapshot struct {
	file    IntentFile
	mtime   time.Time
	loadErr error
}

// NewIntentRegistry loads intents.yaml from path and returns a registry
// primed with the initial snapshot.
func NewIntentRegistry(path string) (*IntentRegistry, error) {
	reg := &IntentRegistry{path: path}
	if err := reg.reload(); err != nil {
		return nil, err
	}
	return reg, nil
}

// Reload re-reads intents.yaml if its mtime changed since the last load, and
// atomically swaps in the new snapshot. Safe for concurrent use; returns the
// load error (if any) without disturbing the previous snapshot.
func (r *IntentRegistry) Reload() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("classifier: stat intents file: %w", err)
	}
	r.mu.RLock()
	current := r.snapshot
	r.mu.RUnlock()
	if current != nil && !info.ModTime().After(current.mtime) {
		return nil
	}
	return r.reload()
}

func (r *IntentRegistry) reload() error {
	info, err := os.Stat(r.path)
	if err != nil {
		return fmt.Errorf("classifier: stat intents file: %w", err)
	}
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("classifier: read intents file: %w", err)
	}
	var file IntentFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("classifier: parse intents file: %w", err)
	}
	snap := &intentSnapshot{file: file, mtime: info.ModTime()}
	r.mu.Lock()
	r.snapshot = snap
	r.mu.Unlock()
	return nil
}

func (r *IntentRegistry) current() IntentFile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.file
}

// Router resolves free-form user input (keyword matching) or a Classifier
// Category (profile fallback) to an IntentMatch.
type Router struct {
	registry *IntentRegistry
}

// NewRouter constructs a Router over registry.
func NewRouter(registry *IntentRegistry) *Router {
	return &Router{registry: registry}
}

// preciseConfidence is the score assigned to a precise (substring) keyword
// match; fuzzyThreshold is the minimum token-overlap ratio a fuzzy match
// must clear to be accepted.
const (
	preciseConfidence = 1.0
	fuzzyThreshold    = 0.30
)

// RouteByKeyword tries a precise, then fuzzy, keyword match against enabled
// intents, preferring higher-priority and higher-confidence matches. Returns
// false if nothing clears the fuzzy threshold.
func (r *Router) RouteByKeyword(userInput string) (IntentMatch, bool) {
	file := r.registry.current()
	inputTokens := tokenize(userInput)
	lowerInput := strings.ToLower(userInput)

	var best *IntentDef
	var bestConfidence float64
	var bestIsPrecise bool

	for i := range file.Intents {
		def := &file.Intents[i]
		if !def.Enabled {
			continue
		}
		precise, confidence := matchIntent(lowerInput, inputTokens, def.Keywords)
		if confidence == 0 {
			continue
		}
		if !precise && confidence < fuzzyThreshold {
			continue
		}
		better := best == nil
		if !better {
			switch {
			case precise && !bestIsPrecise:
				better = true
			case precise == bestIsPrecise && def.Priority > best.Priority:
				better = true
			case precise == bestIsPrecise && def.Priority == best.Priority && confidence > bestConfidence:
				better = true
			}
		}
		if better {
			best = def
			bestConfidence = confidence
			bestIsPrecise = precise
		}
	}

	if best == nil {
		return IntentMatch{}, false
	}
	return toIntentMatch(*best, file.DefaultRiskLevel, file.DefaultMode), true
}

// RouteByCategory maps a classifier Category to a default prompt profile
// when no keyword match applies. Planning-disabled categories never reach
// this path (the orchestrator routes straight to DIRECT).
func (r *Router) RouteByCategory(cat Category) IntentMatch {
	file := r.registry.current()
	risk, _ := policy.ParseRiskLevel(file.DefaultRiskLevel)
	return IntentMatch{
		Name:      string(cat),
		RiskLevel: risk,
		Mode:      file.DefaultMode,
	}
}

// Route is the combined resolution the Orchestrator calls: keyword match
// first, category fallback on miss.
func (r *Router) Route(userInput string, cat Category) IntentMatch {
	if m, ok := r.RouteByKeyword(userInput); ok {
		return m
	}
	return r.RouteByCategory(cat)
}

func toIntentMatch(def IntentDef, defaultRisk string, defaultMode Mode) IntentMatch {
	riskStr := def.RiskLevel
	if riskStr == "" {
		riskStr = defaultRisk
	}
	risk, _ := policy.ParseRiskLevel(riskStr)
	mode := def.Mode
	if mode == "" {
		mode = defaultMode
	}
	return IntentMatch{
		Name:            def.Name,
		RiskLevel:       risk,
		Tools:           def.Tools,
		PromptProfileRef: def.PromptProfile,
		Mode:            mode,
	}
}

// matchIntent reports whether any keyword is a precise (substring) match,
// else the best fuzzy token-overlap ratio across all keywords.
func matchIntent(lowerInput string, inputTokens map[string]struct{}, keywords []string) (precise bool, confidence float64) {
	var best float64
	for _, kw := range keywords {
		lowerKw := strings.ToLower(kw)
		if lowerKw == "" {
			continue
		}
		if strings.Contains(lowerInput, lowerKw) {
			return true, preciseConfidence
		}
		kwTokens := tokenize(kw)
		if len(kwTokens) == 0 {
			continue
		}
		overlap := 0
		for t := range kwTokens {
			if _, ok := inputTokens[t]; ok {
				overlap++
			}
		}
		ratio := float64(overlap) / float64(len(kwTokens))
		if ratio > best {
			best = ratio
		}
	}
	return false, best
}

func tokenize(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}
