package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	url       string
	title     string
	content   string
	failNav   error
	closed    bool
	closeErr  error
	typedInto map[string]string
}

func (p *fakePage) Navigate(_ context.Context, url string) (PageInfo, error) {
	if p.failNav != nil {
		return PageInfo{}, p.failNav
	}
	p.url = url
	p.title = "Title of " + url
	return PageInfo{URL: url, Title: p.title}, nil
}

func (p *fakePage) Click(_ context.Context, _ string) error { return nil }

func (p *fakePage) Type(_ context.Context, selector, text string) error {
	if p.typedInto == nil {
		p.typedInto = map[string]string{}
	}
	p.typedInto[selector] = text
	return nil
}

func (p *fakePage) Content(_ context.Context) (string, error) { return p.content, nil }

func (p *fakePage) Screenshot(_ context.Context) ([]byte, error) {
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (p *fakePage) URL() string   { return p.url }
func (p *fakePage) Title() string { return p.title }

func (p *fakePage) Close() error {
	p.closed = true
	return p.closeErr
}

type fakeRuntime struct {
	launched  int
	attached  int
	launchErr error
	pages     []*fakePage
	closed    bool
}

func (r *fakeRuntime) Launch(_ context.Context, _ string, _ bool) (Page, error) {
	if r.launchErr != nil {
		return nil, r.launchErr
	}
	r.launched++
	p := &fakePage{content: "<html><body>ok</body></html>"}
	r.pages = append(r.pages, p)
	return p, nil
}

func (r *fakeRuntime) Attach(_ context.Context, _ string) (Page, error) {
	r.attached++
	p := &fakePage{content: "<html/>"}
	r.pages = append(r.pages, p)
	return p, nil
}

func (r *fakeRuntime) Close() error {
	r.closed = true
	return nil
}

func newTestDaemon(t *testing.T, cfg Config) (*Daemon, *fakeRuntime) {
	t.Helper()
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = filepath.Join(t.TempDir(), "artifacts")
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = filepath.Join(t.TempDir(), "profiles")
	}
	if cfg.ActionsPerSecond == 0 {
		cfg.ActionsPerSecond = 1000
	}
	rt := &fakeRuntime{}
	d := NewDaemon(cfg, rt, nil)
	t.Cleanup(func() { d.Shutdown(context.Background()) })
	return d, rt
}

func TestOpenSessionIsolated(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 2})
	data, err := d.OpenSession(context.Background(), OpenOptions{Mode: ModeIsolated})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, data.Status)
	assert.Equal(t, ModeIsolated, data.Mode)
	assert.Equal(t, 1, rt.launched)
	assert.DirExists(t, data.ProfileDir)
}

func TestOpenSessionCap(t *testing.T) {
	d, _ := newTestDaemon(t, Config{MaxSessions: 1})
	_, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)

	_, err = d.OpenSession(context.Background(), OpenOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionLimit)

	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, CodeSessionLimit, berr.Code)
	assert.Equal(t, 1, d.Health().ActiveSessions)
}

func TestOpenSessionLaunchFailureReleasesSlot(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 1})
	rt.launchErr = errors.New("chromium exploded")

	_, err := d.OpenSession(context.Background(), OpenOptions{})
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, CodeOpenSessionFailed, berr.Code)

	// The reserved slot must be released so the next open can succeed.
	rt.launchErr = nil
	_, err = d.OpenSession(context.Background(), OpenOptions{})
	assert.NoError(t, err)
}

func TestAttachWithoutEndpointFails(t *testing.T) {
	d, _ := newTestDaemon(t, Config{MaxSessions: 1})
	_, err := d.OpenSession(context.Background(), OpenOptions{Mode: ModeAttach})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ws_endpoint")
}

func TestNavigateUpdatesSessionData(t *testing.T) {
	d, _ := newTestDaemon(t, Config{MaxSessions: 1})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)

	info, err := d.Navigate(context.Background(), data.ID, "https://docs.example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.com", info.URL)

	sessions := d.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "https://docs.example.com", sessions[0].CurrentURL)
}

func TestNavigateFailureCode(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 1})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)
	rt.pages[0].failNav = errors.New("net::ERR_CONNECTION_REFUSED")

	_, err = d.Navigate(context.Background(), data.ID, "https://down.example.com")
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, CodeNavigateFailed, berr.Code)
	assert.True(t, berr.Retry().Retryable)
}

func TestSnapshotAndScreenshotWriteArtifacts(t *testing.T) {
	d, _ := newTestDaemon(t, Config{MaxSessions: 1})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)

	snap, err := d.Snapshot(context.Background(), data.ID)
	require.NoError(t, err)
	assert.Equal(t, "text/html", snap.MimeType)
	assert.Positive(t, snap.Bytes)
	assert.FileExists(t, filepath.Join(d.cfg.ArtifactsDir, snap.Path))

	shot, err := d.Screenshot(context.Background(), data.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/png", shot.MimeType)
	assert.FileExists(t, filepath.Join(d.cfg.ArtifactsDir, shot.Path))
}

func TestCloseSession(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 1})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)

	require.NoError(t, d.CloseSession(data.ID))
	assert.True(t, rt.pages[0].closed)
	assert.Equal(t, 0, d.Health().ActiveSessions)

	err = d.CloseSession(data.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCloseSessionRemovesEntryOnPageError(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 1})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)
	rt.pages[0].closeErr = errors.New("already gone")

	err = d.CloseSession(data.ID)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, CodeCloseSessionFailed, berr.Code)
	assert.Equal(t, 0, d.Health().ActiveSessions, "entry must be gone despite the close error")
}

func TestHealthSnapshot(t *testing.T) {
	d, _ := newTestDaemon(t, Config{MaxSessions: 3})
	_, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)

	h := d.Health()
	assert.True(t, h.Enabled)
	assert.Equal(t, 1, h.ActiveSessions)
	assert.Equal(t, 3, h.MaxSessions)
	assert.Len(t, h.SessionIDs, 1)
	assert.Nil(t, h.LastProfilePrune)
}

func makeProfile(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(p, 0o755))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(p, stamp, stamp))
}

func TestSweepProfilesRetentionAndCap(t *testing.T) {
	d, _ := newTestDaemon(t, Config{
		MaxSessions:          1,
		ProfileRetention:     24 * time.Hour,
		MaxPersistedProfiles: 2,
	})
	dir := d.cfg.ProfilesDir
	makeProfile(t, dir, "ancient", 48*time.Hour)
	makeProfile(t, dir, "old", 10*time.Hour)
	makeProfile(t, dir, "middle", 5*time.Hour)
	makeProfile(t, dir, "fresh", time.Hour)

	res := d.SweepProfiles()
	assert.Equal(t, 4, res.Listed)
	// "ancient" is expired; "old" is the oldest survivor over the cap of 2.
	assert.Equal(t, 2, res.Pruned)
	assert.Equal(t, 2, res.Kept)
	assert.NoDirExists(t, filepath.Join(dir, "ancient"))
	assert.NoDirExists(t, filepath.Join(dir, "old"))
	assert.DirExists(t, filepath.Join(dir, "middle"))
	assert.DirExists(t, filepath.Join(dir, "fresh"))

	// Idempotent: a second sweep finds nothing more to remove.
	res2 := d.SweepProfiles()
	assert.Equal(t, 0, res2.Pruned)
	assert.Equal(t, 2, res2.Kept)

	h := d.Health()
	require.NotNil(t, h.LastProfilePrune)
	assert.Equal(t, 0, h.LastProfilePrune.Pruned, "only the latest sweep result is retained")
}

func TestSweepProfilesSkipsActiveSessions(t *testing.T) {
	d, _ := newTestDaemon(t, Config{
		MaxSessions:      1,
		ProfileRetention: time.Nanosecond,
	})
	data, err := d.OpenSession(context.Background(), OpenOptions{})
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	res := d.SweepProfiles()
	assert.Equal(t, 0, res.Pruned)
	assert.DirExists(t, data.ProfileDir)
}

func TestSweepArtifacts(t *testing.T) {
	d, _ := newTestDaemon(t, Config{
		MaxSessions:       1,
		ArtifactRetention: time.Hour,
	})
	dir := filepath.Join(d.cfg.ArtifactsDir, "sess")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	stale := filepath.Join(dir, "old.png")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	stamp := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, stamp, stamp))

	fresh := filepath.Join(dir, "new.png")
	require.NoError(t, os.WriteFile(fresh, []byte("y"), 0o644))

	res := d.SweepArtifacts()
	assert.Equal(t, 1, res.Pruned)
	assert.Equal(t, 1, res.Kept)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

func TestShutdownIsReentrant(t *testing.T) {
	d, rt := newTestDaemon(t, Config{MaxSessions: 2})
	for i := 0; i < 2; i++ {
		_, err := d.OpenSession(context.Background(), OpenOptions{})
		require.NoError(t, err, fmt.Sprintf("open %d", i))
	}

	d.Shutdown(context.Background())
	assert.True(t, rt.closed)
	for _, p := range rt.pages {
		assert.True(t, p.closed)
	}
	// A second shutdown must be a no-op.
	d.Shutdown(context.Background())
}
