package builtin

import (
	"context"
	"testing"
	"time"

	"github.com/quillagent/quill/pkg/background"
)

func newBgManager(t *testing.T) *background.Manager {
	t.Helper()
	m := background.NewManager(background.Options{})
	t.Cleanup(func() { m.KillAll(context.Background()) })
	return m
}

func waitBgTerminal(t *testing.T, m *background.Manager, id string) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		st, err := m.Status(id)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if st.State.Terminal() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("process %s never reached a terminal state", id)
}

func TestBgOutputDefaultsToIncremental(t *testing.T) {
	m := newBgManager(t)
	st, err := m.Start(context.Background(), background.StartOptions{Command: "printf payload"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitBgTerminal(t, m, st.ID)

	out := &BgOutputTool{Manager: m}
	first, err := out.Execute(context.Background(), map[string]any{"id": st.ID})
	if err != nil {
		t.Fatalf("first Execute: %v", err)
	}
	if got := first.Data["stdout"]; got != "payload" {
		t.Fatalf("first read stdout = %q, want payload", got)
	}

	// With since_last_read omitted the read must be incremental, so an
	// immediate second poll returns nothing new.
	second, err := out.Execute(context.Background(), map[string]any{"id": st.ID})
	if err != nil {
		t.Fatalf("second Execute: %v", err)
	}
	if got := second.Data["stdout"]; got != "" {
		t.Errorf("second read stdout = %q, want empty", got)
	}
}

func TestBgOutputTailWhenIncrementalDisabled(t *testing.T) {
	m := newBgManager(t)
	st, err := m.Start(context.Background(), background.StartOptions{Command: "printf 'a\\nb\\n'"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitBgTerminal(t, m, st.ID)

	out := &BgOutputTool{Manager: m}
	args := map[string]any{"id": st.ID, "since_last_read": false, "lines": 1}
	for range 2 {
		res, err := out.Execute(context.Background(), args)
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if got := res.Data["stdout"]; got != "b\n" {
			t.Errorf("tail read stdout = %q, want b\\n", got)
		}
	}
}

func TestBgKillRejectsUnknownSignal(t *testing.T) {
	kill := &BgKillTool{Manager: newBgManager(t)}
	_, err := kill.Execute(context.Background(), map[string]any{"id": "anything", "signal": "SIGFOO"})
	if err == nil {
		t.Fatal("unknown signal should be rejected")
	}
}
