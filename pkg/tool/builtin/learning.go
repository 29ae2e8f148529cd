package builtin

import (
	"context"

	"github.com/quillagent/quill/pkg/ledger"
	"github.com/quillagent/quill/pkg/tool"
)

// LearningRecordTool appends a durable learning to the ledger.
type LearningRecordTool struct {
	Ledger *ledger.Ledger
}

func (t *LearningRecordTool) Name() string { return "learning_record" }

func (t *LearningRecordTool) Description() string {
	return "Record a durable learning. Arguments: topic, content, tags (optional)."
}

func (t *LearningRecordTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	topic, err := parseString(args, "topic", true)
	if err != nil {
		return nil, err
	}
	content, err := parseString(args, "content", true)
	if err != nil {
		return nil, err
	}
	tags, err := parseStringSlice(args, "tags")
	if err != nil {
		return nil, err
	}

	entry, err := t.Ledger.Record(topic, content, tags)
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"id": entry.ID, "topic": entry.Topic}), nil
}

// LearningListTool lists recorded learnings.
type LearningListTool struct {
	Ledger *ledger.Ledger
}

func (t *LearningListTool) Name() string { return "learning_list" }

func (t *LearningListTool) Description() string {
	return "List recorded learnings. Arguments: topic (optional substring filter)."
}

func (t *LearningListTool) Execute(_ context.Context, args map[string]any) (*tool.Result, error) {
	topic, err := parseString(args, "topic", false)
	if err != nil {
		return nil, err
	}
	entries, err := t.Ledger.List(topic)
	if err != nil {
		return nil, err
	}
	return tool.Success(map[string]any{"learnings": entries, "count": len(entries)}), nil
}
