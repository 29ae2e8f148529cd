package storage

import (
	"testing"
)

func TestAuditAppendAndRecent(t *testing.T) {
	store, err := OpenAudit(":memory:")
	if err != nil {
		t.Fatalf("OpenAudit: %v", err)
	}
	defer store.Close()

	records := []AuditRecord{
		{Tool: "read_file", Decision: "allow", Success: true, DurationMS: 3},
		{Tool: "browser_navigate", Decision: "gate", Code: "BROWSER_POLICY_APPROVAL_REQUIRED", RiskLevel: "medium", Success: false, DurationMS: 1},
		{Tool: "write_file", Decision: "deny", Success: false, DurationMS: 0},
	}
	for _, rec := range records {
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("records = %d, want 3", len(got))
	}
	if got[0].Tool != "write_file" {
		t.Errorf("newest first violated: got[0] = %+v", got[0])
	}
	if got[1].Code != "BROWSER_POLICY_APPROVAL_REQUIRED" || got[1].RiskLevel != "medium" {
		t.Errorf("fields lost: %+v", got[1])
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("created_at not populated")
	}
}

func TestAuditRecentLimit(t *testing.T) {
	store, err := OpenAudit(":memory:")
	if err != nil {
		t.Fatalf("OpenAudit: %v", err)
	}
	defer store.Close()

	for i := 0; i < 5; i++ {
		if err := store.Append(AuditRecord{Tool: "read_file", Decision: "allow", Success: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	got, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("records = %d, want 2", len(got))
	}
}
