package permission

// destructiveTools can modify the workspace, spawn processes, or act on
// external systems. The autonomy floor applies to these regardless of mode.
var destructiveTools = map[string]struct{}{
	"write_file":   {},
	"edit_file":    {},
	"delete_file":  {},
	"run_shell":    {},
	"bg_start":     {},
	"bg_kill":      {},
	"browser_type": {},
}

// builtinDefaults is the fallback decision per tool when neither an override
// nor the mode table speaks. Read-only tools default to allow, everything
// that mutates defaults to ask.
var builtinDefaults = map[string]Decision{
	"read_file":   Allow,
	"list_dir":    Allow,
	"search_text": Allow,
	"find_files":  Allow,

	"write_file":  Ask,
	"edit_file":   Ask,
	"delete_file": Ask,
	"run_shell":   Ask,

	"bg_start":  Ask,
	"bg_status": Allow,
	"bg_output": Allow,
	"bg_kill":   Ask,

	"browser_open":       Ask,
	"browser_navigate":   Ask,
	"browser_click":      Ask,
	"browser_type":       Ask,
	"browser_snapshot":   Allow,
	"browser_screenshot": Allow,
	"browser_close":      Allow,
	"browser_status":     Allow,

	"learning_record": Allow,
	"learning_list":   Allow,
	"research_search": Allow,
}

// modeTables adjusts decisions per operating mode. Tools absent from a table
// fall through to overrides and built-in defaults.
var modeTables = map[Mode]map[string]Decision{
	ModeSafe: {
		"write_file":       Ask,
		"edit_file":        Ask,
		"delete_file":      Ask,
		"run_shell":        Ask,
		"bg_start":         Ask,
		"browser_open":     Ask,
		"browser_navigate": Ask,
		"browser_click":    Ask,
		"browser_type":     Ask,
	},
	ModeAuto: {
		"write_file":       Allow,
		"edit_file":        Allow,
		"delete_file":      Ask,
		"run_shell":        Allow,
		"bg_start":         Allow,
		"bg_kill":          Allow,
		"browser_open":     Allow,
		"browser_navigate": Allow,
		"browser_click":    Allow,
		"browser_type":     Ask,
	},
	ModePlan: {
		"write_file":       Deny,
		"edit_file":        Deny,
		"delete_file":      Deny,
		"run_shell":        Ask,
		"bg_start":         Deny,
		"bg_kill":          Ask,
		"browser_open":     Ask,
		"browser_navigate": Ask,
		"browser_click":    Deny,
		"browser_type":     Deny,
	},
	ModeReview: {
		"write_file":  Ask,
		"edit_file":   Ask,
		"delete_file": Deny,
		"run_shell":   Ask,
		"bg_start":    Ask,
	},
	ModeResearch: {
		"write_file":       Deny,
		"edit_file":        Deny,
		"delete_file":      Deny,
		"run_shell":        Ask,
		"bg_start":         Deny,
		"browser_open":     Allow,
		"browser_navigate": Allow,
		"browser_click":    Allow,
		"browser_type":     Ask,
		"research_search":  Allow,
	},
	ModeDangerous: {
		"write_file":       Allow,
		"edit_file":        Allow,
		"delete_file":      Allow,
		"run_shell":        Allow,
		"bg_start":         Allow,
		"bg_kill":          Allow,
		"browser_open":     Allow,
		"browser_navigate": Allow,
		"browser_click":    Allow,
		"browser_type":     Allow,
	},
	// CI has no operator to answer prompts, so anything that would ask is
	// denied outright and the rest is allowed.
	ModeCI: {
		"write_file":       Allow,
		"edit_file":        Allow,
		"delete_file":      Deny,
		"run_shell":        Allow,
		"bg_start":         Allow,
		"bg_kill":          Allow,
		"browser_open":     Deny,
		"browser_navigate": Deny,
		"browser_click":    Deny,
		"browser_type":     Deny,
	},
}
