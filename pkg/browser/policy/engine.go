// Package policy decides whether browser actions run, require approval, or
// are blocked, and attaches a risk assessment to every decision.
package policy

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Action is the decision for a browser request.
type Action string

const (
	ActionAllow Action = "allow"
	ActionGate  Action = "gate"
	ActionDeny  Action = "deny"
)

// RiskLevel buckets the risk score for operators and audit logs.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// Stable decision codes surfaced to callers.
const (
	CodeDeny             = "BROWSER_POLICY_DENY"
	CodeApprovalRequired = "BROWSER_POLICY_APPROVAL_REQUIRED"
)

// Config holds the operator-authored rules. Host patterns are globs
// ("*.example.com"). DenyActions lists tool names blocked outright.
type Config struct {
	AllowHosts   []string
	DenyHosts    []string
	GateNewHosts bool
	DenyActions  []string
}

// Hint lets an adaptation layer flag a request as riskier than its shape
// suggests. Hints can raise the assessed level, never lower it.
type Hint struct {
	Level  RiskLevel
	Reason string
}

// Request describes one browser action to evaluate.
type Request struct {
	Tool     string
	URL      string
	Selector string
	Approved bool
	Hint     *Hint
}

// Decision is the evaluation outcome. Code is empty for allow.
type Decision struct {
	Action    Action
	Code      string
	Reason    string
	RiskLevel RiskLevel
	RiskScore int
	Evidence  []string
}

// Engine evaluates requests against config rules plus host-novelty tracking.
// It is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	allowHosts []glob.Glob
	denyHosts  []glob.Glob
	denyTools  map[string]struct{}
	gateNew    bool
	seenHosts  map[string]struct{}
}

// NewEngine compiles cfg. Invalid glob patterns are rejected so a typo in a
// deny rule cannot silently open a hole.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{
		denyTools: make(map[string]struct{}, len(cfg.DenyActions)),
		gateNew:   cfg.GateNewHosts,
		seenHosts: make(map[string]struct{}),
	}
	for _, pattern := range cfg.AllowHosts {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("allow host pattern %q: %w", pattern, err)
		}
		e.allowHosts = append(e.allowHosts, g)
	}
	for _, pattern := range cfg.DenyHosts {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("deny host pattern %q: %w", pattern, err)
		}
		e.denyHosts = append(e.denyHosts, g)
	}
	for _, tool := range cfg.DenyActions {
		e.denyTools[tool] = struct{}{}
	}
	return e, nil
}

// Evaluate scores req and returns the decision. Config-level deny rules win
// over everything, including Approved. Approved otherwise forces allow; the
// risk assessment is still computed so audit records stay meaningful.
func (e *Engine) Evaluate(req Request) Decision {
	e.mu.Lock()
	defer e.mu.Unlock()

	host := hostOf(req.URL)
	class := classOf(req.Tool)

	score := class.baseScore
	evidence := []string{fmt.Sprintf("action class %s (base %d)", class.name, class.baseScore)}

	newHost := false
	if host != "" {
		if _, seen := e.seenHosts[host]; !seen {
			newHost = true
			score += 30
			evidence = append(evidence, fmt.Sprintf("first visit to host %s (+30)", host))
		}
	}

	// Deny rules are terminal.
	if _, blocked := e.denyTools[req.Tool]; blocked {
		return Decision{
			Action:    ActionDeny,
			Code:      CodeDeny,
			Reason:    fmt.Sprintf("action %s is blocked by configuration", req.Tool),
			RiskLevel: RiskHigh,
			RiskScore: score,
			Evidence:  append(evidence, "matched deny_actions rule"),
		}
	}
	for _, g := range e.denyHosts {
		if host != "" && g.Match(host) {
			return Decision{
				Action:    ActionDeny,
				Code:      CodeDeny,
				Reason:    fmt.Sprintf("host %s is blocked by configuration", host),
				RiskLevel: RiskHigh,
				RiskScore: score,
				Evidence:  append(evidence, "matched deny_hosts rule"),
			}
		}
	}

	if req.Hint != nil {
		evidence = append(evidence, fmt.Sprintf("adaptation hint %s: %s", req.Hint.Level, req.Hint.Reason))
		if s := minScoreFor(req.Hint.Level); s > score {
			score = s
		}
	}
	level := levelFor(score)

	if req.Approved {
		e.markSeen(host)
		return Decision{
			Action:    ActionAllow,
			Reason:    "approved by operator",
			RiskLevel: level,
			RiskScore: score,
			Evidence:  append(evidence, "operator approval carried through"),
		}
	}

	if host != "" && len(e.allowHosts) > 0 && !matchAny(e.allowHosts, host) {
		return Decision{
			Action:    ActionGate,
			Code:      CodeApprovalRequired,
			Reason:    fmt.Sprintf("host %s is outside the allow list", host),
			RiskLevel: level,
			RiskScore: score,
			Evidence:  append(evidence, "host not in allow_hosts"),
		}
	}
	if newHost && e.gateNew {
		return Decision{
			Action:    ActionGate,
			Code:      CodeApprovalRequired,
			Reason:    fmt.Sprintf("first visit to %s requires approval", host),
			RiskLevel: level,
			RiskScore: score,
			Evidence:  append(evidence, "gate_new_hosts enabled"),
		}
	}
	if level == RiskHigh {
		return Decision{
			Action:    ActionGate,
			Code:      CodeApprovalRequired,
			Reason:    "high-risk action requires approval",
			RiskLevel: level,
			RiskScore: score,
			Evidence:  evidence,
		}
	}

	e.markSeen(host)
	return Decision{
		Action:    ActionAllow,
		Reason:    "within policy",
		RiskLevel: level,
		RiskScore: score,
		Evidence:  evidence,
	}
}

func (e *Engine) markSeen(host string) {
	if host != "" {
		e.seenHosts[host] = struct{}{}
	}
}

func matchAny(globs []glob.Glob, host string) bool {
	for _, g := range globs {
		if g.Match(host) {
			return true
		}
	}
	return false
}

func hostOf(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

type actionClass struct {
	name      string
	baseScore int
}

// classOf buckets tool names by how much a mistake could cost.
func classOf(tool string) actionClass {
	switch tool {
	case "browser_open", "browser_navigate":
		return actionClass{"navigate", 20}
	case "browser_click":
		return actionClass{"interact", 35}
	case "browser_type":
		return actionClass{"input", 45}
	default:
		return actionClass{"observe", 5}
	}
}

func levelFor(score int) RiskLevel {
	switch {
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	default:
		return RiskLow
	}
}

func minScoreFor(level RiskLevel) int {
	switch level {
	case RiskHigh:
		return 60
	case RiskMedium:
		return 30
	default:
		return 0
	}
}
