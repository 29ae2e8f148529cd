package builtin

import (
	"github.com/quillagent/quill/pkg/background"
	"github.com/quillagent/quill/pkg/browser"
	"github.com/quillagent/quill/pkg/ledger"
	"github.com/quillagent/quill/pkg/sandbox"
	"github.com/quillagent/quill/pkg/tool"
)

// Deps carries the collaborators the builtin tool set needs. Browser and
// Research entries may be nil; the corresponding tools stay registered and
// report the capability as disabled when called.
type Deps struct {
	Guard      *sandbox.Guard
	Background *background.Manager
	Browser    *browser.Daemon
	Ledger     *ledger.Ledger
	Research   ResearchProvider
}

// All returns every builtin tool wired to deps.
func All(deps Deps) []tool.Tool {
	tools := []tool.Tool{
		&ReadFileTool{Guard: deps.Guard},
		&WriteFileTool{Guard: deps.Guard},
		&EditFileTool{Guard: deps.Guard},
		&DeleteFileTool{Guard: deps.Guard},
		&ListDirTool{Guard: deps.Guard},
		&SearchTextTool{Guard: deps.Guard},
		&FindFilesTool{Guard: deps.Guard},
		&RunShellTool{Workdir: deps.Guard.Root()},
		&BgStartTool{Manager: deps.Background},
		&BgStatusTool{Manager: deps.Background},
		&BgOutputTool{Manager: deps.Background},
		&BgKillTool{Manager: deps.Background},
	}
	// Browser tools register even without a daemon so a disabled runtime
	// surfaces its stable code instead of an unknown-tool error.
	tools = append(tools,
		&BrowserOpenTool{Daemon: deps.Browser},
		&BrowserNavigateTool{Daemon: deps.Browser},
		&BrowserClickTool{Daemon: deps.Browser},
		&BrowserTypeTool{Daemon: deps.Browser},
		&BrowserSnapshotTool{Daemon: deps.Browser},
		&BrowserScreenshotTool{Daemon: deps.Browser},
		&BrowserCloseTool{Daemon: deps.Browser},
		&BrowserStatusTool{Daemon: deps.Browser},
	)
	if deps.Ledger != nil {
		tools = append(tools,
			&LearningRecordTool{Ledger: deps.Ledger},
			&LearningListTool{Ledger: deps.Ledger},
		)
	}
	tools = append(tools, &ResearchSearchTool{Provider: deps.Research})
	return tools
}
