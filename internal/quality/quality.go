// Package quality maps note quality tiers to model instructions.
package quality

import "strings"

// Tier selects how detailed the generated notes are.
type Tier string

const (
	Simple   Tier = "SIMPLE"
	Balanced Tier = "BALANCED"
	Detailed Tier = "DETAILED"
)

// Default is applied when no tier is requested.
const Default = Balanced

// Tiers lists the accepted tiers in display order.
func Tiers() []Tier {
	return []Tier{Simple, Balanced, Detailed}
}

// Parse resolves a user supplied tier name. Blank input selects the default;
// unknown names return the default and false.
func Parse(value string) (Tier, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch Tier(normalized) {
	case "":
		return Default, true
	case Simple, Balanced, Detailed:
		return Tier(normalized), true
	default:
		return Default, false
	}
}

// Instruction returns the prompt fragment for the tier. Anything other than
// SIMPLE or DETAILED gets the balanced instruction.
func Instruction(t Tier) string {
	switch t {
	case Simple:
		return "Create concise bullet-point notes with key terms only. Avoid long explanations."
	case Detailed:
		return "Create detailed lecture notes with explanations, examples, and brief derivations where relevant."
	default:
		return "Create balanced notes with bullet points and short explanations."
	}
}

func (t Tier) String() string {
	return string(t)
}
