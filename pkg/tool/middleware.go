package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/quillagent/quill/pkg/browser"
	"github.com/quillagent/quill/pkg/browser/policy"
	"github.com/quillagent/quill/pkg/config"
	"github.com/quillagent/quill/pkg/logging"
	"github.com/quillagent/quill/pkg/metrics"
	"github.com/quillagent/quill/pkg/permission"
	"github.com/quillagent/quill/pkg/retry"
	"github.com/quillagent/quill/pkg/storage"
)

// ExecutionContext carries one tool call through the middleware chain.
type ExecutionContext struct {
	Context   context.Context
	ToolName  string
	Tool      Tool
	Args      map[string]any
	CallID    string
	StartTime time.Time

	// Decision and Code record the gate outcome for the audit trail.
	Decision string
	Code     string
	Risk     string
}

// Executor runs a tool call.
type Executor func(*ExecutionContext) (*Result, error)

// Middleware wraps an executor with a cross-cutting concern.
type Middleware func(Executor) Executor

// Chain composes middlewares so the first argument is outermost.
func Chain(mws ...Middleware) Middleware {
	return func(final Executor) Executor {
		for i := len(mws) - 1; i >= 0; i-- {
			final = mws[i](final)
		}
		return final
	}
}

// Approver answers ask/gate decisions. A nil approver declines everything.
type Approver interface {
	Approve(toolName string, args map[string]any, reason string) bool
}

// SettingsProvider hands out the current configuration snapshot.
type SettingsProvider interface {
	Current() *config.Config
}

// Recovery converts panics anywhere below it into an error result. It is the
// single recovery boundary for tool execution.
func Recovery(logger *logging.Logger) Middleware {
	return func(next Executor) Executor {
		return func(ec *ExecutionContext) (res *Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error(logging.CategoryTool, "tool.panic", map[string]any{
						"tool":  ec.ToolName,
						"panic": fmt.Sprint(r),
						"stack": string(debug.Stack()),
					})
					res = Failure("INTERNAL", fmt.Sprintf("tool %s panicked: %v", ec.ToolName, r),
						retry.Classify("INTERNAL", "panic"))
					err = nil
				}
			}()
			return next(ec)
		}
	}
}

// Permission enforces the resolver's decision before anything runs. Asks go
// to the approver; without one, or on decline, the call stops with a
// structured result.
func Permission(provider SettingsProvider, approver Approver, m *metrics.Metrics) Middleware {
	return func(next Executor) Executor {
		return func(ec *ExecutionContext) (*Result, error) {
			settings := provider.Current().PermissionSettings()
			decision := permission.Resolve(ec.ToolName, settings)
			ec.Decision = string(decision)
			m.RecordDecision(string(decision))

			switch decision {
			case permission.Deny:
				ec.Code = "PERMISSION_DENIED"
				return Failure("PERMISSION_DENIED",
					fmt.Sprintf("tool %s is denied in mode %s; change default_mode or permissions to enable it", ec.ToolName, settings.Mode),
					retry.Classify("PERMISSION_DENIED", "permission denied")), nil
			case permission.Ask:
				if approver != nil && approver.Approve(ec.ToolName, ec.Args, "tool requires confirmation") {
					break
				}
				ec.Code = "PERMISSION_APPROVAL_REQUIRED"
				return Failure("PERMISSION_APPROVAL_REQUIRED",
					fmt.Sprintf("tool %s requires confirmation; approve the call or allow it in permissions", ec.ToolName),
					retry.Classify("PERMISSION_APPROVAL_REQUIRED", "permission denied")), nil
			}
			return next(ec)
		}
	}
}

// BrowserPolicy gates browser_* tools: the runtime-disabled check runs first,
// then the policy engine. Gate decisions consult the approver and re-evaluate
// with the approval carried through, so a config-level deny still wins.
func BrowserPolicy(provider SettingsProvider, engine *policy.Engine, approver Approver, m *metrics.Metrics) Middleware {
	return func(next Executor) Executor {
		return func(ec *ExecutionContext) (*Result, error) {
			if !isBrowserTool(ec.ToolName) {
				return next(ec)
			}

			cfg := provider.Current()
			if !cfg.Browser.Enabled {
				ec.Code = browser.CodeRuntimeDisabled
				return Failure(browser.CodeRuntimeDisabled,
					"browser support is disabled by config; set browser.enabled to true",
					retry.Classify(browser.CodeRuntimeDisabled, "disabled by config")), nil
			}

			req := policyRequest(ec)
			decision := engine.Evaluate(req)
			ec.Risk = string(decision.RiskLevel)
			m.RecordDecision(string(decision.Action))

			if decision.Action == policy.ActionGate && approver != nil &&
				approver.Approve(ec.ToolName, ec.Args, decision.Reason) {
				req.Approved = true
				decision = engine.Evaluate(req)
				ec.Risk = string(decision.RiskLevel)
			}

			switch decision.Action {
			case policy.ActionDeny:
				ec.Code = decision.Code
				return Failure(decision.Code, decision.Reason,
					retry.Classify(decision.Code, "permission denied")), nil
			case policy.ActionGate:
				ec.Code = decision.Code
				return Failure(decision.Code,
					decision.Reason+"; approve the action to proceed",
					retry.Classify(decision.Code, "permission denied")), nil
			}
			return next(ec)
		}
	}
}

// Audit appends every call outcome to the store and the structured log.
// Persistence failures are logged and swallowed so auditing cannot break
// execution.
func Audit(store *storage.AuditStore, logger *logging.Logger, m *metrics.Metrics) Middleware {
	return func(next Executor) Executor {
		return func(ec *ExecutionContext) (*Result, error) {
			res, err := next(ec)

			outcome := "error"
			success := false
			if err == nil && res != nil && res.OK {
				outcome = "ok"
				success = true
			} else if res != nil && res.Code != "" {
				outcome = "blocked"
			}
			m.RecordExecution(ec.ToolName, outcome)

			duration := time.Since(ec.StartTime).Milliseconds()
			logger.Info(logging.CategoryTool, "tool.dispatched", map[string]any{
				"tool":        ec.ToolName,
				"call_id":     ec.CallID,
				"decision":    ec.Decision,
				"code":        ec.Code,
				"outcome":     outcome,
				"duration_ms": duration,
			})
			if store != nil {
				rec := storage.AuditRecord{
					Tool:       ec.ToolName,
					Decision:   ec.Decision,
					Code:       ec.Code,
					RiskLevel:  ec.Risk,
					Success:    success,
					DurationMS: duration,
				}
				if aerr := store.Append(rec); aerr != nil {
					logger.Warn(logging.CategoryTool, "audit.append_failed", map[string]any{"error": aerr.Error()})
				}
			}
			return res, err
		}
	}
}

func isBrowserTool(name string) bool {
	return len(name) > 8 && name[:8] == "browser_"
}

func policyRequest(ec *ExecutionContext) policy.Request {
	req := policy.Request{Tool: ec.ToolName}
	if url, ok := ec.Args["url"].(string); ok {
		req.URL = url
	}
	if sel, ok := ec.Args["selector"].(string); ok {
		req.Selector = sel
	}
	if approved, ok := ec.Args["approved"].(bool); ok {
		req.Approved = approved
	}
	return req
}
