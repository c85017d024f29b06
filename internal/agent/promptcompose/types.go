// Package promptcompose assembles the four-layer system prompt (core, role,
// policy, context) and phase-specific stage user prompts ,
// resolving template references through a hot-reloadable prompt-profile
// registry.
package promptcompose

// Role selects the persona layer of the system prompt.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleAnalyst   Role = "analyst"
	RoleArchitect Role = "architect"
	RoleOperator  Role = "operator"
	RoleSecurity  Role = "security"
)

// PolicyLayer optionally narrows the operating envelope described to the
// model. Empty means no additional policy layer is injected.
type PolicyLayer string

const (
	PolicyNone     PolicyLayer = ""
	PolicyReadonly PolicyLayer = "readonly"
	PolicyHighRisk PolicyLayer = "high_risk"
)

// Stage names a phase of the turn for which a user prompt template exists.
type Stage string

const (
	StagePlanning    Stage = "planning"
	StageExecuteStep Stage = "execute_step"
	StageReplan      Stage = "replan"
	// StageDirectAnswer is used when the Router disables planning for the
	// turn's category (capability_query, general_chat, casual_chat,
	// uncertain) and the orchestrator answers directly instead.
	StageDirectAnswer Stage = "direct_answer"
)

// StageRefs is the set of template refs registered for one stage: the four
// system-prompt layers plus the stage's user-prompt template. Any ref may be
// empty meaning that layer contributes nothing for this stage.
type StageRefs struct {
	Core       string `yaml:"core"`
	Role       string `yaml:"role"`
	Policy     string `yaml:"policy"`
	Context    string `yaml:"context"`
	UserPrompt string `yaml:"user_prompt"`
}
