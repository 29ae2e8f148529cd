// Package browser hosts the runtime daemon: a bounded pool of browser
// sessions with artifact capture and profile retention.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/quillagent/quill/pkg/logging"
)

type session struct {
	data SessionData
	page Page
}

// Daemon owns the session pool. All table mutations happen under mu; page
// operations run outside it so a slow page cannot stall Health or other
// sessions' bookkeeping.
type Daemon struct {
	mu       sync.Mutex
	cfg      Config
	runtime  Runtime
	logger   *logging.Logger
	sessions map[string]*session
	limiter  *rate.Limiter

	lastProfilePrune  *PruneResult
	lastArtifactPrune *PruneResult

	stopSweeps chan struct{}
	sweepsDone sync.WaitGroup
	started    bool

	onOpened func()
	onClosed func()
	onPruned func(count int)
}

// SetGauges registers callbacks for session lifecycle and prune counts, used
// for metrics wiring.
func (d *Daemon) SetGauges(onOpened, onClosed func(), onPruned func(count int)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onOpened = onOpened
	d.onClosed = onClosed
	d.onPruned = onPruned
}

// NewDaemon creates a daemon over runtime. Call Start to begin retention
// sweeps and Shutdown to release everything.
func NewDaemon(cfg Config, rt Runtime, logger *logging.Logger) *Daemon {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 3
	}
	if cfg.ActionsPerSecond <= 0 {
		cfg.ActionsPerSecond = 2
	}
	return &Daemon{
		cfg:      cfg,
		runtime:  rt,
		logger:   logger,
		sessions: make(map[string]*session),
		limiter:  rate.NewLimiter(rate.Limit(cfg.ActionsPerSecond), 1),
	}
}

// Start launches the profile and artifact sweep loops. Idempotent.
func (d *Daemon) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.stopSweeps = make(chan struct{})

	if d.cfg.ProfileSweepEvery > 0 && d.cfg.ProfilesDir != "" {
		d.sweepsDone.Add(1)
		go d.sweepLoop(d.cfg.ProfileSweepEvery, d.SweepProfiles)
	}
	if d.cfg.ArtifactSweepEvery > 0 && d.cfg.ArtifactsDir != "" {
		d.sweepsDone.Add(1)
		go d.sweepLoop(d.cfg.ArtifactSweepEvery, d.SweepArtifacts)
	}
}

func (d *Daemon) sweepLoop(every time.Duration, sweep func() PruneResult) {
	defer d.sweepsDone.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sweep()
		case <-d.stopSweeps:
			return
		}
	}
}

// OpenSession creates a session, failing fast over the pool cap. Isolated
// sessions get a disposable profile directory named after the session.
func (d *Daemon) OpenSession(ctx context.Context, opts OpenOptions) (SessionData, error) {
	if opts.Mode == "" {
		opts.Mode = ModeIsolated
	}

	d.mu.Lock()
	if len(d.sessions) >= d.cfg.MaxSessions {
		d.mu.Unlock()
		return SessionData{}, newError(CodeSessionLimit,
			fmt.Sprintf("%d of %d sessions open; close one with browser_close", len(d.sessions), d.cfg.MaxSessions),
			ErrSessionLimit)
	}
	id := ulid.Make().String()
	// Reserve the slot before the (slow) launch so concurrent opens cannot
	// both pass the cap check.
	d.sessions[id] = nil
	d.mu.Unlock()

	release := func() {
		d.mu.Lock()
		delete(d.sessions, id)
		d.mu.Unlock()
	}

	var (
		page       Page
		profileDir string
		err        error
	)
	switch opts.Mode {
	case ModeAttach:
		endpoint := opts.WSEndpoint
		if endpoint == "" {
			endpoint = d.cfg.WSEndpoint
		}
		if endpoint == "" {
			release()
			return SessionData{}, newError(CodeOpenSessionFailed,
				"attach mode needs a ws_endpoint; set browser.runtime.ws_endpoint or pass one", nil)
		}
		page, err = d.runtime.Attach(ctx, endpoint)
	case ModeIsolated:
		profileDir = filepath.Join(d.cfg.ProfilesDir, id)
		if mkErr := os.MkdirAll(profileDir, 0o755); mkErr != nil {
			release()
			return SessionData{}, newError(CodeOpenSessionFailed, "create profile directory", mkErr)
		}
		page, err = d.runtime.Launch(ctx, profileDir, opts.Headless || d.cfg.Headless)
	default:
		release()
		return SessionData{}, newError(CodeOpenSessionFailed,
			fmt.Sprintf("unknown session mode %q; use isolated or attach", opts.Mode), nil)
	}
	if err != nil {
		release()
		return SessionData{}, newError(CodeOpenSessionFailed, "open browser session", err)
	}

	s := &session{
		data: SessionData{
			ID:         id,
			Mode:       opts.Mode,
			Status:     StatusActive,
			CreatedAt:  time.Now(),
			ProfileDir: profileDir,
		},
		page: page,
	}
	d.mu.Lock()
	d.sessions[id] = s
	onOpened := d.onOpened
	d.mu.Unlock()
	if onOpened != nil {
		onOpened()
	}

	d.logger.Info(logging.CategoryBrowser, "session.opened", map[string]any{
		"session_id": id, "mode": string(opts.Mode),
	})
	return s.data, nil
}

func (d *Daemon) get(id string) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sessions[id]
	if !ok || s == nil {
		return nil, newError(CodeSessionNotFound,
			fmt.Sprintf("session %s not found; open one with browser_open", id), ErrSessionNotFound)
	}
	return s, nil
}

// Navigate drives the session's page to url.
func (d *Daemon) Navigate(ctx context.Context, id, url string) (PageInfo, error) {
	s, err := d.get(id)
	if err != nil {
		return PageInfo{}, err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return PageInfo{}, newError(CodeNavigateFailed, "rate limit wait", err)
	}
	info, err := s.page.Navigate(ctx, url)
	if err != nil {
		return PageInfo{}, newError(CodeNavigateFailed, fmt.Sprintf("navigate to %s", url), err)
	}
	d.mu.Lock()
	s.data.CurrentURL = info.URL
	s.data.Title = info.Title
	d.mu.Unlock()
	return info, nil
}

// Click clicks the first element matching selector.
func (d *Daemon) Click(ctx context.Context, id, selector string) error {
	s, err := d.get(id)
	if err != nil {
		return err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return newError(CodeActionFailed, "rate limit wait", err)
	}
	if err := s.page.Click(ctx, selector); err != nil {
		return newError(CodeActionFailed, fmt.Sprintf("click %q", selector), err)
	}
	return nil
}

// Type fills the element matching selector with text.
func (d *Daemon) Type(ctx context.Context, id, selector, text string) error {
	s, err := d.get(id)
	if err != nil {
		return err
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return newError(CodeActionFailed, "rate limit wait", err)
	}
	if err := s.page.Type(ctx, selector, text); err != nil {
		return newError(CodeActionFailed, fmt.Sprintf("type into %q", selector), err)
	}
	return nil
}

// Snapshot serializes the current DOM to an HTML artifact and returns its
// location, never the content.
func (d *Daemon) Snapshot(ctx context.Context, id string) (Artifact, error) {
	s, err := d.get(id)
	if err != nil {
		return Artifact{}, err
	}
	content, err := s.page.Content(ctx)
	if err != nil {
		return Artifact{}, newError(CodeSnapshotFailed, "read page content", err)
	}
	return d.writeArtifact(id, "snapshot-"+uuid.NewString()+".html", []byte(content), "text/html")
}

// Screenshot captures the viewport to a PNG artifact.
func (d *Daemon) Screenshot(ctx context.Context, id string) (Artifact, error) {
	s, err := d.get(id)
	if err != nil {
		return Artifact{}, err
	}
	img, err := s.page.Screenshot(ctx)
	if err != nil {
		return Artifact{}, newError(CodeScreenshotFailed, "capture viewport", err)
	}
	return d.writeArtifact(id, "screenshot-"+uuid.NewString()+".png", img, "image/png")
}

func (d *Daemon) writeArtifact(sessionID, name string, data []byte, mime string) (Artifact, error) {
	code := CodeSnapshotFailed
	if mime == "image/png" {
		code = CodeScreenshotFailed
	}
	dir := filepath.Join(d.cfg.ArtifactsDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, newError(code, "create artifact directory", err)
	}
	full := filepath.Join(dir, name)
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Artifact{}, newError(code, "write artifact", err)
	}
	return Artifact{
		Path:     filepath.Join(sessionID, name),
		Bytes:    int64(len(data)),
		MimeType: mime,
	}, nil
}

// CloseSession closes the page and removes the session. The table entry is
// removed even when the page close fails.
func (d *Daemon) CloseSession(id string) error {
	d.mu.Lock()
	s, ok := d.sessions[id]
	if !ok || s == nil {
		d.mu.Unlock()
		return newError(CodeSessionNotFound,
			fmt.Sprintf("session %s not found; open one with browser_open", id), ErrSessionNotFound)
	}
	delete(d.sessions, id)
	s.data.Status = StatusClosed
	onClosed := d.onClosed
	d.mu.Unlock()
	if onClosed != nil {
		onClosed()
	}

	if err := s.page.Close(); err != nil {
		d.logger.Warn(logging.CategoryBrowser, "session.close_failed", map[string]any{
			"session_id": id, "error": err.Error(),
		})
		return newError(CodeCloseSessionFailed, fmt.Sprintf("close session %s", id), err)
	}
	d.logger.Info(logging.CategoryBrowser, "session.closed", map[string]any{"session_id": id})
	return nil
}

// Sessions lists the data of every open session.
func (d *Daemon) Sessions() []SessionData {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]SessionData, 0, len(d.sessions))
	for _, s := range d.sessions {
		if s != nil {
			out = append(out, s.data)
		}
	}
	return out
}

// Health assembles a snapshot from bookkeeping only. It never calls into
// pages, so it cannot block behind a stuck browser.
func (d *Daemon) Health() Health {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := Health{
		Enabled:     true,
		MaxSessions: d.cfg.MaxSessions,
	}
	for id, s := range d.sessions {
		if s != nil {
			h.ActiveSessions++
			h.SessionIDs = append(h.SessionIDs, id)
		}
	}
	h.LastProfilePrune = d.lastProfilePrune
	h.LastArtifactPrune = d.lastArtifactPrune
	return h
}

// Shutdown closes all sessions in parallel, stops sweeps, and releases the
// runtime. Best-effort and re-entrant: failures are logged, not returned.
func (d *Daemon) Shutdown(ctx context.Context) {
	d.mu.Lock()
	victims := make([]*session, 0, len(d.sessions))
	for id, s := range d.sessions {
		if s != nil {
			victims = append(victims, s)
		}
		delete(d.sessions, id)
	}
	stop := d.stopSweeps
	d.stopSweeps = nil
	d.started = false
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		d.sweepsDone.Wait()
	}

	g, _ := errgroup.WithContext(ctx)
	for _, s := range victims {
		g.Go(func() error {
			if err := s.page.Close(); err != nil {
				d.logger.Warn(logging.CategoryBrowser, "session.shutdown_close_failed", map[string]any{
					"session_id": s.data.ID, "error": err.Error(),
				})
			}
			return nil
		})
	}
	g.Wait()

	if d.runtime != nil {
		if err := d.runtime.Close(); err != nil {
			d.logger.Warn(logging.CategoryBrowser, "runtime.close_failed", map[string]any{"error": err.Error()})
		}
	}
}
