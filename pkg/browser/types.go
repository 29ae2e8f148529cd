package browser

import "time"

// SessionMode selects how a session gets its browser.
type SessionMode string

const (
	// ModeIsolated launches a private browser with a disposable profile.
	ModeIsolated SessionMode = "isolated"
	// ModeAttach connects to an already-running browser over its debug
	// endpoint.
	ModeAttach SessionMode = "attach"
)

// SessionStatus is the lifecycle phase of a session.
type SessionStatus string

const (
	StatusActive SessionStatus = "active"
	StatusClosed SessionStatus = "closed"
)

// SessionData is the caller-visible view of a session.
type SessionData struct {
	ID         string        `json:"id"`
	Mode       SessionMode   `json:"mode"`
	Status     SessionStatus `json:"status"`
	CurrentURL string        `json:"current_url,omitempty"`
	Title      string        `json:"title,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	ProfileDir string        `json:"-"`
}

// OpenOptions configures OpenSession.
type OpenOptions struct {
	Mode       SessionMode
	WSEndpoint string
	Headless   bool
}

// PageInfo is returned from navigation.
type PageInfo struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Artifact describes a file written to disk. Callers get the location, not
// the bytes.
type Artifact struct {
	Path     string `json:"path"` // relative to the artifacts root
	Bytes    int64  `json:"bytes"`
	MimeType string `json:"mime_type"`
}

// PruneResult summarizes one retention sweep. Only the most recent result is
// retained.
type PruneResult struct {
	Listed    int       `json:"listed"`
	Pruned    int       `json:"pruned"`
	Kept      int       `json:"kept"`
	LastError string    `json:"last_error,omitempty"`
	At        time.Time `json:"at"`
}

// Health is a point-in-time snapshot assembled without touching sessions.
type Health struct {
	Enabled           bool         `json:"enabled"`
	ActiveSessions    int          `json:"active_sessions"`
	MaxSessions       int          `json:"max_sessions"`
	SessionIDs        []string     `json:"session_ids"`
	LastProfilePrune  *PruneResult `json:"last_profile_prune,omitempty"`
	LastArtifactPrune *PruneResult `json:"last_artifact_prune,omitempty"`
}

// Config holds daemon settings, mirrored from browser.runtime configuration.
type Config struct {
	MaxSessions          int
	Headless             bool
	WSEndpoint           string
	ArtifactsDir         string
	ProfilesDir          string
	ProfileRetention     time.Duration
	MaxPersistedProfiles int
	ProfileSweepEvery    time.Duration
	ArtifactRetention    time.Duration
	ArtifactSweepEvery   time.Duration
	ActionsPerSecond     float64
}
