package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/quillagent/quill/pkg/browser"
	"github.com/quillagent/quill/pkg/browser/policy"
	"github.com/quillagent/quill/pkg/logging"
	"github.com/quillagent/quill/pkg/metrics"
	"github.com/quillagent/quill/pkg/retry"
	"github.com/quillagent/quill/pkg/storage"
)

// DispatcherOptions wires the dispatcher's collaborators.
type DispatcherOptions struct {
	Registry *Registry
	Settings SettingsProvider
	Policy   *policy.Engine
	Approver Approver
	Logger   *logging.Logger
	Audit    *storage.AuditStore
	Metrics  *metrics.Metrics
}

// Dispatcher routes tool calls through the gate chain and is the single
// place where execution errors are enriched into actionable results.
type Dispatcher struct {
	registry *Registry
	execute  Executor
}

// NewDispatcher assembles the middleware chain. Recovery sits outermost so a
// panic anywhere still produces a structured result; audit wraps the gates
// so blocked calls are recorded too.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	base := func(ec *ExecutionContext) (*Result, error) {
		return ec.Tool.Execute(ec.Context, ec.Args)
	}
	chain := Chain(
		Recovery(opts.Logger),
		Audit(opts.Audit, opts.Logger, opts.Metrics),
		Permission(opts.Settings, opts.Approver, opts.Metrics),
		BrowserPolicy(opts.Settings, opts.Policy, opts.Approver, opts.Metrics),
	)
	return &Dispatcher{
		registry: opts.Registry,
		execute:  chain(base),
	}
}

// Execute runs a named tool against a JSON arguments payload and returns the
// string handed to the model. It never panics and never returns an empty
// string.
func (d *Dispatcher) Execute(ctx context.Context, name, argsPayload string) string {
	t, ok := d.registry.Get(name)
	if !ok {
		return fmt.Sprintf("Error: Unknown tool %q", name)
	}

	args := map[string]any{}
	if argsPayload != "" {
		if err := json.Unmarshal([]byte(argsPayload), &args); err != nil {
			return fmt.Sprintf("Error: invalid tool arguments: %v", err)
		}
	}

	ec := &ExecutionContext{
		Context:   ctx,
		ToolName:  name,
		Tool:      t,
		Args:      args,
		CallID:    ulid.Make().String(),
		StartTime: time.Now(),
	}

	res, err := d.execute(ec)
	if err != nil {
		return enrich(name, err).Render()
	}
	if res == nil {
		return Failure("INTERNAL", fmt.Sprintf("tool %s returned no result", name),
			retry.Classify("INTERNAL", "empty result")).Render()
	}
	return res.Render()
}

// enrich turns a raw execution error into a structured result. Browser
// errors keep their stable code; everything else is classified from the
// error chain.
func enrich(name string, err error) *Result {
	var berr *browser.Error
	if errors.As(err, &berr) {
		rec := berr.Retry()
		return Failure(berr.Code, berr.Message, rec)
	}
	res := FailureFromError("TOOL_EXECUTION", err)
	res.Message = fmt.Sprintf("%s: %s", name, res.Message)
	return res
}
