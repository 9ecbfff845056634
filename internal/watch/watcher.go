package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/LuisPadre25/wu-cli/internal/config"
	"github.com/LuisPadre25/wu-cli/internal/hmr"
)

// Scan cadence and table bounds.
const (
	// DefaultInterval is the delay between scan rounds.
	DefaultInterval = 100 * time.Millisecond

	// maxEntries bounds the watch table; overflow files are silently
	// dropped from watching.
	maxEntries = 4096

	// configDebounceRounds is how many stable scans the config file
	// must survive before a reload.
	configDebounceRounds = 5
)

// skipDirs are never descended into. Dot-prefixed directories are
// skipped unconditionally.
var skipDirs = map[string]bool{
	"node_modules": true,
	"dist":         true,
	"build":        true,
	"coverage":     true,
}

// watchedExts are the extensions a scan round stats.
var watchedExts = map[string]bool{
	".js": true, ".mjs": true, ".ts": true, ".tsx": true, ".jsx": true,
	".html": true, ".css": true, ".json": true,
	".svelte": true, ".vue": true, ".astro": true,
}

// entry is one watched file. After round R completes, generation == R
// iff the file still exists; older generations are deletions and are
// pruned at end of round.
type entry struct {
	mtime      int64
	generation uint64
}

// Watcher polls the project tree and publishes classified change events
// into the HMR hub. It holds no pointer to the server; readers pull from
// the hub.
type Watcher struct {
	store    *config.Store
	hub      *hmr.Hub
	logger   *slog.Logger
	interval time.Duration

	entries    map[uint64]*entry
	generation uint64

	configMtime    int64
	configDebounce int

	initialized bool

	// OnRound is a test hook invoked after every completed round.
	OnRound func()
}

// New creates a watcher over the store's app and shell directories.
func New(store *config.Store, hub *hmr.Hub, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		store:    store,
		hub:      hub,
		logger:   logger,
		interval: DefaultInterval,
		entries:  make(map[uint64]*entry),
	}
}

// Run scans every interval until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Scan()
		}
	}
}

// round accumulates what one scan observed.
type round struct {
	changedApps map[string]config.AppEntry
	changedExts map[string]bool
	shell       bool
	deletions   bool
	config      bool
}

// Scan performs one scan round: walk every watched directory, diff
// mtimes, prune deletions, debounce the config file, classify, publish.
func (w *Watcher) Scan() {
	snap := w.store.Snapshot()
	w.generation++

	r := &round{
		changedApps: map[string]config.AppEntry{},
		changedExts: map[string]bool{},
	}

	for _, app := range snap.Apps {
		w.walk(snap.Config.AppDir(app), func(ext string) {
			r.changedApps[app.Name] = app
			r.changedExts[ext] = true
		})
	}
	w.walk(snap.Config.ShellDir(), func(ext string) {
		r.shell = true
	})

	// Deletions: entries the walk did not refresh.
	for hash, e := range w.entries {
		if e.generation != w.generation {
			delete(w.entries, hash)
			if w.initialized {
				r.deletions = true
			}
		}
	}

	w.checkConfig(snap.Config, r)

	if w.initialized {
		if ev, ok := classify(r, snap); ok {
			w.hub.Publish(ev)
		}
	}
	w.initialized = true

	if w.OnRound != nil {
		w.OnRound()
	}
}

// walk descends one watched root, refreshing generations and reporting
// changed files. I/O errors skip the subtree for this round; the next
// round retries.
func (w *Watcher) walk(root string, changed func(ext string)) {
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(path))
		if !watchedExts[ext] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime().UnixNano()

		hash := xxhash.Sum64String(path)
		e, ok := w.entries[hash]
		if !ok {
			if len(w.entries) >= maxEntries {
				return nil
			}
			w.entries[hash] = &entry{mtime: mtime, generation: w.generation}
			if w.initialized {
				changed(ext)
			}
			return nil
		}

		e.generation = w.generation
		if e.mtime != mtime {
			e.mtime = mtime
			changed(ext)
		}
		return nil
	})
}

// checkConfig stats the config file and reloads after the mtime has
// been stable for the debounce window.
func (w *Watcher) checkConfig(cfg *config.Config, r *round) {
	info, err := os.Stat(cfg.ConfigPath())
	if err != nil {
		return
	}
	mtime := info.ModTime().UnixNano()

	if w.configMtime == 0 {
		w.configMtime = mtime
		return
	}
	if mtime != w.configMtime {
		w.configMtime = mtime
		w.configDebounce = configDebounceRounds
		return
	}
	if w.configDebounce > 0 {
		w.configDebounce--
		if w.configDebounce == 0 {
			w.reloadConfig(cfg.Dir(), r)
		}
	}
}

func (w *Watcher) reloadConfig(dir string, r *round) {
	fresh, err := config.Load(dir)
	if err != nil {
		w.logger.Warn("config reload failed", "error", err)
		return
	}
	w.store.Swap(fresh)
	r.config = true
	w.logger.Info("config reloaded", "apps", len(fresh.Apps))
}

// classify turns a round's observations into at most one event:
// anything broad means full-reload, a single app changing only CSS is a
// css-update, any other single-app change is an app-update.
func classify(r *round, snap *config.Snapshot) (hmr.Event, bool) {
	broad := r.config || r.shell || r.deletions || len(r.changedApps) >= 2
	if broad {
		return hmr.FullReload(), true
	}
	if len(r.changedApps) != 1 {
		return hmr.Event{}, false
	}

	var app config.AppEntry
	for _, a := range r.changedApps {
		app = a
	}

	cssOnly := len(r.changedExts) == 1 && r.changedExts[".css"]
	if cssOnly {
		return hmr.CSSUpdate(app.Name), true
	}
	return hmr.AppUpdate(app.Name, app.Dir, app.Framework), true
}
