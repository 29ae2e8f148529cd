package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/quillagent/quill/pkg/logging"
)

// Provider hands out the current configuration and reloads it when the file
// changes on disk, so permission changes apply between tool calls without a
// restart.
type Provider struct {
	mu      sync.RWMutex
	path    string
	current *Config
	logger  *logging.Logger
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewProvider loads path and returns a provider serving that snapshot.
func NewProvider(path string, logger *logging.Logger) (*Provider, []string, error) {
	cfg, warnings, err := Load(path)
	if err != nil {
		return nil, nil, err
	}
	return &Provider{path: path, current: cfg, logger: logger}, warnings, nil
}

// SetLogger attaches a logger created after the initial load.
func (p *Provider) SetLogger(logger *logging.Logger) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
}

// Current returns the latest loaded configuration.
func (p *Provider) Current() *Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Watch begins reloading on file changes. Reload failures keep the previous
// snapshot and are logged rather than propagated.
func (p *Provider) Watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(p.path); err != nil {
		w.Close()
		return err
	}
	p.watcher = w
	p.done = make(chan struct{})

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				p.reload()
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			case <-p.done:
				return
			}
		}
	}()
	return nil
}

func (p *Provider) reload() {
	cfg, warnings, err := Load(p.path)

	p.mu.Lock()
	logger := p.logger
	if err == nil {
		p.current = cfg
	}
	p.mu.Unlock()

	if err != nil {
		logger.Warn(logging.CategoryConfig, "config.reload_failed", map[string]any{
			"path":  p.path,
			"error": err.Error(),
		})
		return
	}
	logger.Info(logging.CategoryConfig, "config.reloaded", map[string]any{
		"path":     p.path,
		"warnings": len(warnings),
	})
	for _, warning := range warnings {
		logger.Warn(logging.CategoryConfig, "config.warning", map[string]any{"warning": warning})
	}
}

// Close stops watching. Safe to call when Watch was never started.
func (p *Provider) Close() error {
	if p.done != nil {
		close(p.done)
		p.done = nil
	}
	if p.watcher != nil {
		err := p.watcher.Close()
		p.watcher = nil
		return err
	}
	return nil
}
