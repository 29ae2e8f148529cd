package policy

import (
	"strings"
	"testing"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEvaluateHostRules(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		req  Request
		want Action
		code string
	}{
		{
			name: "deny host glob wins",
			cfg:  Config{DenyHosts: []string{"*.internal.example"}},
			req:  Request{Tool: "browser_navigate", URL: "https://vault.internal.example/login"},
			want: ActionDeny,
			code: CodeDeny,
		},
		{
			name: "deny action wins",
			cfg:  Config{DenyActions: []string{"browser_type"}},
			req:  Request{Tool: "browser_type", URL: "https://docs.example.com", Selector: "#q"},
			want: ActionDeny,
			code: CodeDeny,
		},
		{
			name: "allowlist miss gates",
			cfg:  Config{AllowHosts: []string{"*.example.com"}},
			req:  Request{Tool: "browser_navigate", URL: "https://elsewhere.net"},
			want: ActionGate,
			code: CodeApprovalRequired,
		},
		{
			name: "new host gates when enabled",
			cfg:  Config{GateNewHosts: true},
			req:  Request{Tool: "browser_navigate", URL: "https://docs.example.com"},
			want: ActionGate,
			code: CodeApprovalRequired,
		},
		{
			name: "navigate allowed when gating off",
			cfg:  Config{},
			req:  Request{Tool: "browser_navigate", URL: "https://docs.example.com"},
			want: ActionAllow,
		},
		{
			name: "observe action on no URL allowed",
			cfg:  Config{GateNewHosts: true},
			req:  Request{Tool: "browser_snapshot"},
			want: ActionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestEngine(t, tt.cfg).Evaluate(tt.req)
			if d.Action != tt.want {
				t.Errorf("action = %q, want %q (reason %q)", d.Action, tt.want, d.Reason)
			}
			if d.Code != tt.code {
				t.Errorf("code = %q, want %q", d.Code, tt.code)
			}
			if len(d.Evidence) == 0 {
				t.Error("decision must carry evidence")
			}
		})
	}
}

func TestGateThenApprovedAllows(t *testing.T) {
	e := newTestEngine(t, Config{GateNewHosts: true})
	req := Request{Tool: "browser_navigate", URL: "https://docs.example.com"}

	first := e.Evaluate(req)
	if first.Action != ActionGate {
		t.Fatalf("first pass = %q, want gate", first.Action)
	}

	req.Approved = true
	second := e.Evaluate(req)
	if second.Action != ActionAllow {
		t.Fatalf("approved pass = %q, want allow", second.Action)
	}

	// Host is now known; a fresh unapproved request sails through.
	third := e.Evaluate(Request{Tool: "browser_navigate", URL: "https://docs.example.com/page2"})
	if third.Action != ActionAllow {
		t.Errorf("revisit = %q, want allow", third.Action)
	}
}

func TestDenyBeatsApproved(t *testing.T) {
	e := newTestEngine(t, Config{DenyHosts: []string{"banned.example"}})
	d := e.Evaluate(Request{Tool: "browser_navigate", URL: "https://banned.example", Approved: true})
	if d.Action != ActionDeny || d.Code != CodeDeny {
		t.Errorf("decision = %+v, want deny with %s", d, CodeDeny)
	}
}

func TestHintsOnlyRaiseRisk(t *testing.T) {
	e := newTestEngine(t, Config{})
	seed := Request{Tool: "browser_navigate", URL: "https://docs.example.com"}
	e.Evaluate(Request{Tool: "browser_navigate", URL: seed.URL, Approved: true})

	base := e.Evaluate(Request{Tool: "browser_navigate", URL: seed.URL})
	if base.RiskLevel != RiskLow {
		t.Fatalf("base risk = %q, want low", base.RiskLevel)
	}

	raised := e.Evaluate(Request{
		Tool: "browser_navigate",
		URL:  seed.URL,
		Hint: &Hint{Level: RiskHigh, Reason: "credential form detected"},
	})
	if raised.RiskLevel != RiskHigh {
		t.Errorf("hinted risk = %q, want high", raised.RiskLevel)
	}
	if raised.Action != ActionGate {
		t.Errorf("high risk should gate, got %q", raised.Action)
	}

	lowHint := e.Evaluate(Request{
		Tool:     "browser_type",
		URL:      seed.URL,
		Selector: "#q",
		Hint:     &Hint{Level: RiskLow, Reason: "harmless"},
	})
	if lowHint.RiskScore < 45 {
		t.Errorf("low hint lowered score to %d", lowHint.RiskScore)
	}
}

func TestRiskLevels(t *testing.T) {
	tests := []struct {
		score int
		want  RiskLevel
	}{
		{0, RiskLow}, {29, RiskLow}, {30, RiskMedium}, {59, RiskMedium}, {60, RiskHigh}, {100, RiskHigh},
	}
	for _, tt := range tests {
		if got := levelFor(tt.score); got != tt.want {
			t.Errorf("levelFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestNewEngineRejectsBadPattern(t *testing.T) {
	_, err := NewEngine(Config{DenyHosts: []string{"[unclosed"}})
	if err == nil || !strings.Contains(err.Error(), "deny host pattern") {
		t.Errorf("err = %v, want compile failure", err)
	}
}
