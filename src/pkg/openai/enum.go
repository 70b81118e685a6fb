package openai

import (
	"fmt"
	"strings"
)

type TextVerbosity string

const (
	TextVerbosityLow    TextVerbosity = "low"
	TextVerbosityMedium TextVerbosity = "medium" // default if omitted
	TextVerbosityHigh   TextVerbosity = "high"
)

type InputRole string

const (
	RoleDeveloper InputRole = "developer"
	RoleUser      InputRole = "user"
)

// Summary requires a verified organization; corrections never ask for one.
type Summary string

type Effort string

const (
	EffortMinimal Effort = "minimal"
	EffortLow     Effort = "low"
	EffortMedium  Effort = "medium"
	EffortHigh    Effort = "high"
)

// ParseEffort accepts the effort names case-insensitively; "" means no reasoning block.
func ParseEffort(raw string) (effort *Effort, err error) {
	switch value := Effort(strings.ToLower(strings.TrimSpace(raw))); value {
	case "":
		return nil, nil
	case EffortMinimal, EffortLow, EffortMedium, EffortHigh:
		return &value, nil
	default:
		return nil, fmt.Errorf("unknown reasoning effort %q", raw)
	}
}
