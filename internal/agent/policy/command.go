package policy

import (
	"fmt"
	"strings"
)

// DefaultDenyList is the built-in set of first-token command names rejected
// by CheckCommand unless explicitly allowed via CommandPolicy.Allow.
var DefaultDenyList = []string{
	"rm", "del", "rmdir", "format", "dd", "mkfs",
	"curl", "wget", "nc", "netcat", "ssh", "scp", "telnet",
	"shutdown", "reboot", "kill", "killall",
}

// CommandPolicy configures the command allow/deny list enforced by
// CheckCommand.
type CommandPolicy struct {
	// Deny overrides DefaultDenyList when non-empty.
	Deny []string
	// Allow explicitly permits a first token that would otherwise be denied
	// (e.g., "curl" for an intent that legitimately needs network access).
	Allow []string
}

func (p CommandPolicy) denySet() map[string]struct{} {
	list := p.Deny
	if len(list) == 0 {
		list = DefaultDenyList
	}
	out := make(map[string]struct{}, len(list))
	for _, c := range list {
		out[c] = struct{}{}
	}
	return out
}

func (p CommandPolicy) allowSet() map[string]struct{} {
	out := make(map[string]struct{}, len(p.Allow))
	for _, c := range p.Allow {
		out[c] = struct{}{}
	}
	return out
}

// CheckCommand tokenizes argv (preferring an already-split argv form; see
// command.DetectShellMode for the shell-vs-argv decision made by the
// Command Runner) and rejects it if the first token matches the deny list
// and is not explicitly allowed.
func (p CommandPolicy) CheckCommand(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("policy: empty command")
	}
	first := strings.ToLower(strings.TrimSpace(argv[0]))
	// Strip a path prefix so "/usr/bin/rm" still matches "rm".
	if idx := strings.LastIndexAny(first, "/\\"); idx >= 0 {
		first = first[idx+1:]
	}
	if _, allowed := p.allowSet()[first]; allowed {
		return nil
	}
	if _, denied := p.denySet()[first]; denied {
		return fmt.Errorf("policy: command %q is denied", first)
	}
	return nil
}
