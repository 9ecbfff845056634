package watch

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/LuisPadre25/wu-cli/internal/config"
	"github.com/LuisPadre25/wu-cli/internal/hmr"
)

// fixture builds a project with two apps and a shell and returns the
// pieces a watcher needs.
func fixture(t *testing.T) (string, *config.Store, *hmr.Hub, *Watcher) {
	t.Helper()
	root := t.TempDir()

	for _, dir := range []string{"mf-header/src", "mf-cart/src", "shell"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	write(t, root, "mf-header/src/main.jsx", "export {}")
	write(t, root, "mf-header/src/app.css", "body{}")
	write(t, root, "mf-cart/src/main.js", "export {}")
	write(t, root, "shell/index.html", "<html></html>")
	write(t, root, config.ConfigFileName, `{
  "apps": [
    {"name": "header", "dir": "mf-header", "framework": "react"},
    {"name": "cart", "dir": "mf-cart", "framework": "vue"}
  ]
}`)

	cfg, err := config.Load(root)
	if err != nil {
		t.Fatal(err)
	}
	store := config.NewStore(cfg)
	hub := hmr.NewHub()
	return root, store, hub, New(store, hub, nil)
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// touch bumps a file's mtime far enough that a scan must notice.
func touch(t *testing.T, root, rel string, offset time.Duration) {
	t.Helper()
	path := filepath.Join(root, rel)
	when := time.Now().Add(offset)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

func lastEvent(t *testing.T, hub *hmr.Hub) hmr.Event {
	t.Helper()
	var ev hmr.Event
	if err := json.Unmarshal(hub.Latest(), &ev); err != nil {
		t.Fatalf("bad slot payload %q: %v", hub.Latest(), err)
	}
	return ev
}

// One app, one css file changed → css-update, counter +1.
func TestWatcher_CSSOnlyClassification(t *testing.T) {
	root, _, hub, w := fixture(t)

	w.Scan() // baseline round
	if hub.Counter() != 0 {
		t.Fatalf("baseline round published %d events", hub.Counter())
	}

	touch(t, root, "mf-header/src/app.css", time.Second)
	w.Scan()

	if hub.Counter() != 1 {
		t.Fatalf("counter = %d, want exactly 1", hub.Counter())
	}
	ev := lastEvent(t, hub)
	if ev.Type != hmr.TypeCSSUpdate || ev.App != "header" {
		t.Errorf("event = %+v, want css-update for header", ev)
	}
}

func TestWatcher_AppUpdateClassification(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	touch(t, root, "mf-header/src/main.jsx", time.Second)
	w.Scan()

	ev := lastEvent(t, hub)
	if ev.Type != hmr.TypeAppUpdate {
		t.Fatalf("event = %+v, want app-update", ev)
	}
	if ev.App != "header" || ev.Dir != "mf-header" || ev.Framework != "react" {
		t.Errorf("event fields = %+v", ev)
	}
}

func TestWatcher_TwoAppsMeansFullReload(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	touch(t, root, "mf-header/src/main.jsx", time.Second)
	touch(t, root, "mf-cart/src/main.js", time.Second)
	w.Scan()

	if ev := lastEvent(t, hub); ev.Type != hmr.TypeFullReload {
		t.Errorf("event = %+v, want full-reload", ev)
	}
}

func TestWatcher_ShellMeansFullReload(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	touch(t, root, "shell/index.html", time.Second)
	w.Scan()

	if ev := lastEvent(t, hub); ev.Type != hmr.TypeFullReload {
		t.Errorf("event = %+v, want full-reload", ev)
	}
}

func TestWatcher_DeletionMeansFullReload(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	if err := os.Remove(filepath.Join(root, "mf-cart/src/main.js")); err != nil {
		t.Fatal(err)
	}
	w.Scan()

	if ev := lastEvent(t, hub); ev.Type != hmr.TypeFullReload {
		t.Errorf("event = %+v, want full-reload", ev)
	}
}

func TestWatcher_NewFileIsAppUpdate(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	write(t, root, "mf-cart/src/extra.js", "export {}")
	touch(t, root, "mf-cart/src/extra.js", time.Second)
	w.Scan()

	ev := lastEvent(t, hub)
	if ev.Type != hmr.TypeAppUpdate || ev.App != "cart" {
		t.Errorf("event = %+v, want app-update for cart", ev)
	}
}

func TestWatcher_UnwatchedExtensionsIgnored(t *testing.T) {
	root, _, hub, w := fixture(t)
	w.Scan()

	write(t, root, "mf-cart/src/notes.txt", "ignore me")
	write(t, root, "mf-cart/src/photo.png", "binary")
	w.Scan()

	if hub.Counter() != 0 {
		t.Errorf("unwatched extensions published %d events", hub.Counter())
	}
}

func TestWatcher_SkipDirs(t *testing.T) {
	root, _, hub, w := fixture(t)

	if err := os.MkdirAll(filepath.Join(root, "mf-cart/node_modules/dep"), 0o755); err != nil {
		t.Fatal(err)
	}
	write(t, root, "mf-cart/node_modules/dep/index.js", "module.exports = 1")
	w.Scan()

	touch(t, root, "mf-cart/node_modules/dep/index.js", time.Second)
	w.Scan()

	if hub.Counter() != 0 {
		t.Errorf("node_modules change published %d events", hub.Counter())
	}
}

func TestWatcher_ConfigReloadSwapsApps(t *testing.T) {
	root, store, hub, w := fixture(t)
	w.Scan() // establishes the config mtime baseline

	old := store.Snapshot()

	write(t, root, config.ConfigFileName, `{
  "apps": [
    {"name": "header", "dir": "mf-header", "framework": "react"},
    {"name": "cart", "dir": "mf-cart", "framework": "vue"},
    {"name": "nav", "dir": "mf-nav", "framework": "lit"}
  ]
}`)
	touch(t, root, config.ConfigFileName, time.Second)

	// One round notices the new mtime; five stable rounds complete the
	// debounce window.
	for i := 0; i < 1+5; i++ {
		w.Scan()
	}

	snap := store.Snapshot()
	if len(snap.Apps) != 3 {
		t.Fatalf("live apps = %d, want 3 after reload", len(snap.Apps))
	}
	if ev := lastEvent(t, hub); ev.Type != hmr.TypeFullReload {
		t.Errorf("config reload event = %+v, want full-reload", ev)
	}

	// The old snapshot is still intact for in-flight requests.
	if len(old.Apps) != 2 {
		t.Errorf("old snapshot mutated: %+v", old.Apps)
	}
	if store.Generations() != 2 {
		t.Errorf("Generations() = %d, want 2", store.Generations())
	}
}

func TestWatcher_ConfigEditKeepsDebouncing(t *testing.T) {
	root, store, _, w := fixture(t)
	w.Scan()

	write(t, root, config.ConfigFileName, `{"apps": []}`)
	touch(t, root, config.ConfigFileName, time.Second)
	w.Scan() // notices change, arms debounce

	// Another edit inside the window restarts it.
	touch(t, root, config.ConfigFileName, 2*time.Second)
	for i := 0; i < 4; i++ {
		w.Scan()
	}
	if store.Generations() != 1 {
		t.Fatal("reload fired before the mtime stabilized")
	}

	for i := 0; i < 3; i++ {
		w.Scan()
	}
	if store.Generations() != 2 {
		t.Error("reload should fire once the mtime stabilizes")
	}
}
