package telemetry

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LuisPadre25/wu-cli/internal/config"
)

// DebugServer is the side HTTP endpoint exposing metrics and live state.
// It rides the standard net/http stack; the main dev-server port keeps
// its own connection handling.
type DebugServer struct {
	store  *config.Store
	logger *slog.Logger
	server *http.Server
}

// NewDebugServer builds the debug mux.
func NewDebugServer(addr string, store *config.Store, logger *slog.Logger) *DebugServer {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DebugServer{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", d.handleHealthz)
	r.Get("/debug/apps", d.handleApps)

	d.server = &http.Server{Addr: addr, Handler: r}
	return d
}

// Run serves until the listener fails or Close is called.
func (d *DebugServer) Run() {
	d.logger.Info("debug server listening", "addr", d.server.Addr)
	if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		d.logger.Warn("debug server stopped", "error", err)
	}
}

// Close shuts the debug listener down.
func (d *DebugServer) Close() {
	d.server.Close()
}

func (d *DebugServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}

func (d *DebugServer) handleApps(w http.ResponseWriter, r *http.Request) {
	snap := d.store.Snapshot()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(snap.Apps)
}
