// Package policy implements the path sandbox, command allow/deny list,
// environment scrubbing, and risk-to-approval gating.
package policy

import (
	"encoding/json"
	"fmt"
)

// RiskLevel orders the severity of an intent, plan, or step. It propagates
// from Intent to Plan to each Step; a step inherits its plan's risk unless a
// tool's side effect raises it.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	}
	return "unknown"
}

// Max returns the higher of two risk levels.
func Max(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

// ParseRiskLevel parses the wire/config string form of a risk level.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch s {
	case "low":
		return RiskLow, true
	case "medium":
		return RiskMedium, true
	case "high":
		return RiskHigh, true
	case "critical":
		return RiskCritical, true
	}
	return RiskLow, false
}

// MarshalJSON renders a RiskLevel as its wire string form.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON parses a RiskLevel from its wire string form.
func (r *RiskLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := ParseRiskLevel(s)
	if !ok {
		return fmt.Errorf("policy: invalid risk level %q", s)
	}
	*r = parsed
	return nil
}
