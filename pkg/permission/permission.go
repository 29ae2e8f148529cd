// Package permission resolves whether a tool call may proceed, must be
// confirmed, or is blocked. Resolution is pure and total: any combination of
// tool name and settings yields a decision without error.
package permission

import (
	"math"
	"strings"
)

// Decision is the outcome of resolving a tool against current settings.
type Decision string

const (
	Allow Decision = "allow"
	Ask   Decision = "ask"
	Deny  Decision = "deny"
)

// ParseDecision normalizes a configured decision string. The second return is
// false for values that are not valid decisions.
func ParseDecision(s string) (Decision, bool) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case Allow:
		return Allow, true
	case Ask:
		return Ask, true
	case Deny:
		return Deny, true
	}
	return Ask, false
}

// Mode selects the operating posture of the assistant.
type Mode string

const (
	ModeSafe      Mode = "safe"
	ModeAuto      Mode = "auto"
	ModePlan      Mode = "plan"
	ModeReview    Mode = "review"
	ModeResearch  Mode = "research"
	ModeDangerous Mode = "dangerous"
	ModeCI        Mode = "ci"
)

// ParseMode normalizes a configured mode string. Unknown modes return false;
// callers fall through to per-tool resolution.
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeSafe, ModeAuto, ModePlan, ModeReview, ModeResearch, ModeDangerous, ModeCI:
		return m, true
	}
	return "", false
}

// customPrefix marks tools registered at runtime from user-defined commands.
// They inherit the posture of the generic shell tool.
const customPrefix = "custom__"

// shellTool is the generic shell entry custom tools inherit from.
const shellTool = "run_shell"

// Settings is the slice of configuration the resolver consults.
type Settings struct {
	// Mode is the operating mode, e.g. "auto" or "plan".
	Mode Mode
	// AutonomyLevel gates the non-bypassable floor for destructive tools.
	AutonomyLevel float64
	// Overrides maps tool name to a configured decision string.
	Overrides map[string]string
}

// Destructive reports whether a tool can modify state outside the
// conversation. Custom shell-backed tools count as destructive.
func Destructive(toolName string) bool {
	if strings.HasPrefix(toolName, customPrefix) {
		return true
	}
	_, ok := destructiveTools[toolName]
	return ok
}

// Resolve returns the decision for toolName under s. Precedence:
//
//  1. an explicit per-tool override whose value differs from the tool's
//     built-in default
//  2. the mode table for s.Mode (custom__ tools use the shell entry)
//  3. the per-tool override, even when equal to the default
//  4. the built-in default
//  5. ask
//
// After resolution the autonomy floor applies: a destructive tool resolved to
// allow is demoted to ask when floor(AutonomyLevel) <= 2. The floor is not
// configurable and cannot be overridden by any of the sources above.
func Resolve(toolName string, s Settings) Decision {
	d := resolveBase(toolName, s)
	if d == Allow && Destructive(toolName) && math.Floor(s.AutonomyLevel) <= 2 {
		return Ask
	}
	return d
}

func resolveBase(toolName string, s Settings) Decision {
	def, hasDefault := builtinDefaults[toolName]

	override, hasOverride := lookupOverride(toolName, s.Overrides)
	if hasOverride && (!hasDefault || override != def) {
		return override
	}

	if table, ok := modeTables[s.Mode]; ok {
		key := toolName
		if strings.HasPrefix(toolName, customPrefix) {
			key = shellTool
		}
		if d, ok := table[key]; ok {
			return d
		}
	}

	if hasOverride {
		return override
	}
	if hasDefault {
		return def
	}
	return Ask
}

func lookupOverride(toolName string, overrides map[string]string) (Decision, bool) {
	raw, ok := overrides[toolName]
	if !ok {
		return Ask, false
	}
	d, valid := ParseDecision(raw)
	if !valid {
		// Malformed values are ignored rather than failing the call.
		return Ask, false
	}
	return d, true
}
