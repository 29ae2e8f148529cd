package browser

import "context"

// Runtime abstracts the underlying browser engine so the daemon can be
// exercised against a fake in tests and playwright in production.
type Runtime interface {
	// Launch starts a private browser using profileDir for its state.
	Launch(ctx context.Context, profileDir string, headless bool) (Page, error)
	// Attach connects to an existing browser over its debug endpoint.
	Attach(ctx context.Context, wsEndpoint string) (Page, error)
	// Close releases engine-level resources. Sessions must be closed first.
	Close() error
}

// Page is a single controllable page within a session.
type Page interface {
	Navigate(ctx context.Context, url string) (PageInfo, error)
	Click(ctx context.Context, selector string) error
	Type(ctx context.Context, selector, text string) error
	// Content returns the serialized DOM for snapshots.
	Content(ctx context.Context) (string, error)
	// Screenshot returns PNG bytes of the viewport.
	Screenshot(ctx context.Context) ([]byte, error)
	URL() string
	Title() string
	Close() error
}
