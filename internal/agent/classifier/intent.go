package classifier

import "github.com/agentcore/orchestrator/internal/agent/policy"

// Mode selects whether a turn uses one combined planning/execution pass or
// splits planning and execution into separate LLM calls.
type Mode string

const (
	ModeUnified Mode = "unified"
	ModeSplit   Mode = "split"
)

// IntentMatch is the resolved routing decision for one turn: either a
// precise/fuzzy keyword match from the Intent Registry, or a category
// fallback synthesized by the Router.
type IntentMatch struct {
	Name            string
	RiskLevel       policy.RiskLevel
	Tools           []string // allowlist; empty means no restriction
	PromptProfileRef string
	Mode            Mode
}

// IntentDef is one entry of intents.yaml: a named intent with its keyword
// triggers, risk level, tool allowlist, and priority among competing
// matches.
type IntentDef struct {
	Name           string   `yaml:"name"`
	Keywords       []string `yaml:"keywords"`
	Mode           Mode     `yaml:"mode"`
	RiskLevel      string   `yaml:"risk_level"`
	Tools          []string `yaml:"tools"`
	PromptProfile  string   `yaml:"prompt_profile"`
	Priority       int      `yaml:"priority"`
	Enabled        bool     `yaml:"enabled"`
}

// IntentFile is the decoded shape of intents.yaml.
type IntentFile struct {
	Version          int         `yaml:"version"`
	DefaultRiskLevel string      `yaml:"default_risk_level"`
	DefaultMode      Mode        `yaml:"default_mode"`
	Intents          []IntentDef `yaml:"intents"`
}
