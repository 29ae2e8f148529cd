package builtin

import (
	"context"
	"fmt"

	"github.com/quillagent/quill/pkg/tool"
)

// ResearchProvider is an external search backend. The substrate stays
// provider-agnostic; hosts plug one in.
type ResearchProvider interface {
	Search(ctx context.Context, query string, limit int) ([]ResearchHit, error)
}

// ResearchHit is one search result.
type ResearchHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ResearchSearchTool queries the configured research provider.
type ResearchSearchTool struct {
	Provider ResearchProvider
}

func (t *ResearchSearchTool) Name() string { return "research_search" }

func (t *ResearchSearchTool) Description() string {
	return "Search the configured research provider. Arguments: query, limit (optional)."
}

func (t *ResearchSearchTool) Execute(ctx context.Context, args map[string]any) (*tool.Result, error) {
	if t.Provider == nil {
		return nil, fmt.Errorf("research is disabled by config; set research.enabled and an endpoint to use it")
	}
	query, err := parseString(args, "query", true)
	if err != nil {
		return nil, err
	}
	limit, err := parseInt(args, "limit", 10)
	if err != nil {
		return nil, err
	}

	hits, err := t.Provider.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("research search: %w", err)
	}
	return tool.Success(map[string]any{"query": query, "hits": hits, "count": len(hits)}), nil
}
