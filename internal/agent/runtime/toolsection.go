package runtime

import (
	"github.com/agentcore/orchestrator/internal/agent/policy"
	"github.com/agentcore/orchestrator/internal/agent/tools"
)

// toolsSection renders the Context prompt layer's tool list: every
// registered tool visible for the risk-appropriate groups, narrowed to an
// intent's explicit tool allowlist when one is set. Returns "" when no
// registry has been installed via tools.SetGlobal (e.g. a test composer
// that never references the variable), so prompts still render.
func toolsSection(risk policy.RiskLevel, allowlist []string) string {
	reg := tools.Global()
	if reg == nil {
		return ""
	}
	idents := reg.InGroups(groupsForRisk(risk)...)
	if len(allowlist) > 0 {
		idents = filterAllowed(idents, allowlist)
	}
	return reg.DescribeTools(idents)
}

// groupsForRisk returns the cumulative prompt tool-groups exposed at a given
// risk level: higher risk adds write/exec tools on top of the read-only
// baseline rather than replacing it, since every step can still need to
// read a file regardless of what else it's allowed to do.
func groupsForRisk(risk policy.RiskLevel) []tools.Group {
	groups := []tools.Group{tools.GroupMinimal, tools.GroupReadonly}
	if risk >= policy.RiskMedium {
		groups = append(groups, tools.GroupWrite)
	}
	if risk >= policy.RiskHigh {
		groups = append(groups, tools.GroupExec)
	}
	return groups
}

// filterAllowed narrows idents to the names present in allowlist, preserving
// idents' order.
func filterAllowed(idents []tools.Ident, allowlist []string) []tools.Ident {
	allowed := make(map[string]struct{}, len(allowlist))
	for _, name := range allowlist {
		allowed[name] = struct{}{}
	}
	out := make([]tools.Ident, 0, len(idents))
	for _, id := range idents {
		if _, ok := allowed[id.String()]; ok {
			out = append(out, id)
		}
	}
	return out
}
