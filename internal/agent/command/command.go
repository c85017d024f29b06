// Package command implements the Command Runner: it decides whether
// a command needs a shell to interpret pipes/redirects/globs or can run
// directly as argv, captures stdout/stderr under a byte budget, and kills
// the whole process tree on timeout.
package command

import (
	"strings"
	"time"
)

// Request describes one command to run.
type Request struct {
	// Command is the raw command line as the model supplied it. Either
	// Command or Argv should be set; Command is preferred when both a
	// shell-mode hint and an argv form are available.
	Command string
	Argv    []string
	Cwd     string
	Env     []string
	Timeout time.Duration
}

// Result is what the runner hands back to the dispatcher.
type Result struct {
	ExitCode   int
	DurationMS int64
	PID        int
	Stdout     string
	Stderr     string
	Truncated  bool
	TimedOut   bool
}

const defaultByteBudget = 64 * 1024

// shellMetaChars forces shell-mode when any appears in the command line:
// pipes, redirects, backgrounding, sequencing, substitution, globs, and
// grouping all require a shell to interpret.
const shellMetaChars = "|><&;$`*?(){}[]"

// DetectShellMode reports whether cmd contains any shell metacharacter and
// must therefore be run through a shell rather than as a literal argv.
func DetectShellMode(cmd string) bool {
	return strings.ContainsAny(cmd, shellMetaChars)
}
