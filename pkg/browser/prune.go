package browser

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/quillagent/quill/pkg/logging"
)

// SweepProfiles removes persisted profile directories that are past the
// retention window or beyond the count cap, oldest first. Profiles owned by
// open sessions are never touched. The result replaces the previous one.
func (d *Daemon) SweepProfiles() PruneResult {
	res := PruneResult{At: time.Now()}

	entries, err := os.ReadDir(d.cfg.ProfilesDir)
	if err != nil {
		if !os.IsNotExist(err) {
			res.LastError = err.Error()
		}
		d.storeProfileResult(res)
		return res
	}

	d.mu.Lock()
	active := make(map[string]struct{}, len(d.sessions))
	for id, s := range d.sessions {
		if s != nil {
			active[id] = struct{}{}
		}
	}
	d.mu.Unlock()

	type profile struct {
		name    string
		modTime time.Time
	}
	var candidates []profile
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		res.Listed++
		if _, inUse := active[entry.Name()]; inUse {
			res.Kept++
			continue
		}
		info, err := entry.Info()
		if err != nil {
			res.LastError = err.Error()
			res.Kept++
			continue
		}
		candidates = append(candidates, profile{entry.Name(), info.ModTime()})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	now := time.Now()
	keepBudget := d.cfg.MaxPersistedProfiles
	// Walk newest-last so the count cap evicts the oldest entries.
	surviving := 0
	for _, c := range candidates {
		if d.cfg.ProfileRetention > 0 && now.Sub(c.modTime) > d.cfg.ProfileRetention {
			continue
		}
		surviving++
	}
	excess := 0
	if keepBudget > 0 && surviving > keepBudget {
		excess = surviving - keepBudget
	}

	for _, c := range candidates {
		expired := d.cfg.ProfileRetention > 0 && now.Sub(c.modTime) > d.cfg.ProfileRetention
		overCap := false
		if !expired && excess > 0 {
			overCap = true
			excess--
		}
		if !expired && !overCap {
			res.Kept++
			continue
		}
		if err := os.RemoveAll(filepath.Join(d.cfg.ProfilesDir, c.name)); err != nil {
			res.LastError = err.Error()
			res.Kept++
			continue
		}
		res.Pruned++
	}

	d.storeProfileResult(res)
	d.logger.Debug(logging.CategoryBrowser, "profiles.swept", map[string]any{
		"listed": res.Listed, "pruned": res.Pruned, "kept": res.Kept,
	})
	return res
}

func (d *Daemon) storeProfileResult(res PruneResult) {
	d.mu.Lock()
	d.lastProfilePrune = &res
	onPruned := d.onPruned
	d.mu.Unlock()
	if onPruned != nil && res.Pruned > 0 {
		onPruned(res.Pruned)
	}
}

// SweepArtifacts removes artifact files older than the artifact retention
// window and drops session directories left empty. Independent of the
// profile sweep.
func (d *Daemon) SweepArtifacts() PruneResult {
	res := PruneResult{At: time.Now()}

	sessionDirs, err := os.ReadDir(d.cfg.ArtifactsDir)
	if err != nil {
		if !os.IsNotExist(err) {
			res.LastError = err.Error()
		}
		d.storeArtifactResult(res)
		return res
	}

	now := time.Now()
	for _, dirEntry := range sessionDirs {
		if !dirEntry.IsDir() {
			continue
		}
		dir := filepath.Join(d.cfg.ArtifactsDir, dirEntry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			res.LastError = err.Error()
			continue
		}
		remaining := 0
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			res.Listed++
			info, err := f.Info()
			if err != nil {
				res.LastError = err.Error()
				res.Kept++
				remaining++
				continue
			}
			if d.cfg.ArtifactRetention > 0 && now.Sub(info.ModTime()) > d.cfg.ArtifactRetention {
				if err := os.Remove(filepath.Join(dir, f.Name())); err != nil {
					res.LastError = err.Error()
					res.Kept++
					remaining++
					continue
				}
				res.Pruned++
				continue
			}
			res.Kept++
			remaining++
		}
		if remaining == 0 {
			os.Remove(dir)
		}
	}

	d.storeArtifactResult(res)
	d.logger.Debug(logging.CategoryBrowser, "artifacts.swept", map[string]any{
		"listed": res.Listed, "pruned": res.Pruned, "kept": res.Kept,
	})
	return res
}

func (d *Daemon) storeArtifactResult(res PruneResult) {
	d.mu.Lock()
	d.lastArtifactPrune = &res
	d.mu.Unlock()
}
