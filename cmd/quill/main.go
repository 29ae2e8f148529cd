// Command quill runs the policy-gated tool substrate from the terminal:
// it loads configuration, wires the managers, and dispatches tool calls.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillagent/quill/pkg/background"
	"github.com/quillagent/quill/pkg/browser"
	playwrightadapter "github.com/quillagent/quill/pkg/browser/adapters/playwright"
	"github.com/quillagent/quill/pkg/browser/policy"
	"github.com/quillagent/quill/pkg/config"
	"github.com/quillagent/quill/pkg/ledger"
	"github.com/quillagent/quill/pkg/logging"
	"github.com/quillagent/quill/pkg/metrics"
	"github.com/quillagent/quill/pkg/sandbox"
	"github.com/quillagent/quill/pkg/storage"
	"github.com/quillagent/quill/pkg/tool"
	"github.com/quillagent/quill/pkg/tool/builtin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quill:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", ".quill/config.yaml", "path to the configuration file")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: quill [-config path] <tool|tools|status|audit> ...")
	}

	sessionID := ulid.Make().String()

	provider, warnings, err := config.NewProvider(*configPath, nil)
	if err != nil {
		return err
	}
	cfg := provider.Current()

	logger, err := logging.New(cfg.Logging.Dir, sessionID, logging.Level(cfg.Logging.Level))
	if err != nil {
		return err
	}
	defer logger.Close()
	provider.SetLogger(logger)
	for _, w := range warnings {
		logger.Warn(logging.CategoryConfig, "config.warning", map[string]any{"warning": w})
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
	if err := provider.Watch(); err != nil {
		logger.Warn(logging.CategoryConfig, "config.watch_failed", map[string]any{"error": err.Error()})
	}
	defer provider.Close()

	guard, err := sandbox.New(cfg.Workspace)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.NewRegistry())

	bg := background.NewManager(background.Options{
		MaxConcurrent:  cfg.Background.MaxConcurrent,
		DefaultTimeout: cfg.BackgroundTimeout(),
		MaxBufferBytes: cfg.Background.MaxBufferBytes,
		Logger:         logger,
	})
	bg.SetGauges(m.ProcStarted, m.ProcStopped)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var daemon *browser.Daemon
	if cfg.Browser.Enabled {
		rt, err := playwrightadapter.New()
		if err != nil {
			return fmt.Errorf("start browser runtime: %w", err)
		}
		daemon = browser.NewDaemon(browserConfig(cfg), rt, logger)
		daemon.SetGauges(m.SessionOpened, m.SessionClosed, m.ProfilesPruned)
		daemon.Start()
		defer daemon.Shutdown(context.Background())
	}
	defer bg.KillAll(context.Background())

	engine, err := policy.NewEngine(policy.Config{
		AllowHosts:   cfg.Browser.Policy.AllowHosts,
		DenyHosts:    cfg.Browser.Policy.DenyHosts,
		GateNewHosts: cfg.Browser.Policy.GateNewHosts,
		DenyActions:  cfg.Browser.Policy.DenyActions,
	})
	if err != nil {
		return err
	}

	audit, err := storage.OpenAudit(filepath.Join(cfg.Logging.Dir, "audit.db"))
	if err != nil {
		return err
	}
	defer audit.Close()

	learnings, err := ledger.New(filepath.Join(cfg.Logging.Dir, "learnings.jsonl"))
	if err != nil {
		return err
	}

	registry := tool.NewRegistry()
	registry.MustRegister(builtin.All(builtin.Deps{
		Guard:      guard,
		Background: bg,
		Browser:    daemon,
		Ledger:     learnings,
	})...)

	dispatcher := tool.NewDispatcher(tool.DispatcherOptions{
		Registry: registry,
		Settings: provider,
		Policy:   engine,
		Approver: terminalApprover{},
		Logger:   logger,
		Audit:    audit,
		Metrics:  m,
	})

	switch args[0] {
	case "tool":
		if len(args) < 2 {
			return fmt.Errorf("usage: quill tool <name> [json-args]")
		}
		payload := ""
		if len(args) > 2 {
			payload = args[2]
		}
		fmt.Println(dispatcher.Execute(ctx, args[1], payload))
		return nil
	case "tools":
		for _, name := range registry.Names() {
			t, _ := registry.Get(name)
			fmt.Printf("%-20s %s\n", name, t.Description())
		}
		return nil
	case "status":
		return printStatus(cfg, bg, daemon)
	case "audit":
		records, err := audit.Recent(20)
		if err != nil {
			return err
		}
		return printJSON(records)
	default:
		return fmt.Errorf("unknown command %q; use tool, tools, status, or audit", args[0])
	}
}

func browserConfig(cfg *config.Config) browser.Config {
	rt := cfg.Browser.Runtime
	return browser.Config{
		MaxSessions:          rt.MaxSessions,
		Headless:             rt.Headless,
		WSEndpoint:           rt.WSEndpoint,
		ArtifactsDir:         rt.ArtifactsDir,
		ProfilesDir:          rt.ProfilesDir,
		ProfileRetention:     time.Duration(rt.ProfileRetentionDays) * 24 * time.Hour,
		MaxPersistedProfiles: rt.MaxPersistedProfiles,
		ProfileSweepEvery:    time.Duration(rt.ProfileSweepSeconds) * time.Second,
		ArtifactRetention:    time.Duration(rt.ArtifactRetentionDay) * 24 * time.Hour,
		ArtifactSweepEvery:   time.Duration(rt.ArtifactSweepSeconds) * time.Second,
		ActionsPerSecond:     rt.ActionsPerSecond,
	}
}

func printStatus(cfg *config.Config, bg *background.Manager, daemon *browser.Daemon) error {
	status := map[string]any{
		"mode":      cfg.DefaultMode,
		"autonomy":  cfg.Autonomy.Level,
		"processes": bg.List(),
	}
	if daemon != nil {
		status["browser"] = daemon.Health()
	} else {
		status["browser"] = map[string]any{"enabled": false}
	}
	return printJSON(status)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// terminalApprover asks on stdin. Anything but an explicit yes declines.
type terminalApprover struct{}

func (terminalApprover) Approve(toolName string, _ map[string]any, reason string) bool {
	fmt.Fprintf(os.Stderr, "%s requires approval (%s). Proceed? [y/N] ", toolName, reason)
	var answer string
	if _, err := fmt.Fscanln(os.Stdin, &answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
