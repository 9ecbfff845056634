package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/LuisPadre25/wu-cli/internal/compile"
	"github.com/LuisPadre25/wu-cli/internal/config"
	wuerrors "github.com/LuisPadre25/wu-cli/internal/errors"
	"github.com/LuisPadre25/wu-cli/internal/hmr"
	"github.com/LuisPadre25/wu-cli/internal/httpx"
	"github.com/LuisPadre25/wu-cli/internal/telemetry"
	"github.com/LuisPadre25/wu-cli/internal/watch"
)

// Options configures the dev server.
type Options struct {
	// Config is the loaded project configuration.
	Config *config.Config

	// Host is the bind address (default: localhost).
	Host string

	// Logger receives structured server logs.
	Logger *slog.Logger

	// Metrics receives instrument updates; nil disables them.
	Metrics *telemetry.Metrics
}

// Server is the dev-server core: it owns the listener, the component
// instances, and the per-connection tasks.
type Server struct {
	root    string
	store   *config.Store
	hub     *hmr.Hub
	cache   *compile.Cache
	broker  *compile.Broker
	watcher *watch.Watcher
	logger  *slog.Logger
	metrics *telemetry.Metrics
	host    string
	port    int

	ln       net.Listener
	stopping atomic.Bool
}

// New wires the component instances together.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg := opts.Config
	store := config.NewStore(cfg)
	hub := hmr.NewHub()
	cache := compile.NewCache(cfg.Dir())
	broker := compile.NewBroker(cache.DiskDir(), logger)
	watcher := watch.New(store, hub, logger)

	host := opts.Host
	if host == "" {
		host = "localhost"
	}

	s := &Server{
		root:    cfg.Dir(),
		store:   store,
		hub:     hub,
		cache:   cache,
		broker:  broker,
		watcher: watcher,
		logger:  logger,
		metrics: opts.Metrics,
		host:    host,
		port:    cfg.Proxy.Port,
	}

	if s.metrics != nil {
		watcher.OnRound = func() { s.metrics.WatcherRounds.Inc() }
	}
	return s
}

// Store exposes the live configuration store (the debug server reads it).
func (s *Server) Store() *config.Store {
	return s.store
}

// Hub exposes the HMR hub the watcher publishes into.
func (s *Server) Hub() *hmr.Hub {
	return s.hub
}

// Addr returns the bound listen address once Listen has bound the
// listener, and the configured host:port before that.
func (s *Server) Addr() string {
	if s.ln == nil {
		return fmt.Sprintf("%s:%d", s.host, s.port)
	}
	return s.ln.Addr().String()
}

// Listen binds the TCP listener. Run calls it implicitly; tests call it
// first to learn the bound address before starting the accept loop.
func (s *Server) Listen() error {
	if s.ln != nil {
		return nil
	}
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return wuerrors.New("E110").
			WithDetail(fmt.Sprintf("could not bind %s", addr)).
			WithSuggestion("Pass --port to choose another port").
			Wrap(err)
	}
	s.ln = ln
	return nil
}

// Run binds the listener, starts the watcher, and accepts connections
// until ctx is canceled. Each accepted connection gets its own
// goroutine.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	ln := s.ln

	go s.watcher.Run(ctx)
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.logger.Info("dev server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.stopping.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}
		go s.handleConn(conn)
	}
}

// Shutdown flips the stop flag, closes the listener, frees the cache,
// and terminates the compile daemon. In-flight connection tasks observe
// the flag at their loop tops and drain out.
func (s *Server) Shutdown() {
	if s.stopping.Swap(true) {
		return
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.cache.Close()
	s.broker.Shutdown()
	s.logger.Info("dev server stopped")
}

// handleConn reads, parses, routes, and responds until the peer closes,
// the request is hijacked by an HMR stream, or shutdown begins.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, 0, 16*1024)
	chunk := make([]byte, 8*1024)

	for !s.stopping.Load() {
		// Drain complete requests already buffered before reading more.
		for len(buf) > 0 {
			var req httpx.Request
			err := httpx.Parse(buf, &req)
			if errors.Is(err, httpx.ErrIncomplete) {
				break
			}
			if err != nil {
				// Client protocol error: answer 400, keep the
				// connection usable.
				s.writeResponse(conn, response{status: 400, contentType: "text/plain; charset=utf-8", body: []byte("bad request\n")})
				buf = buf[:0]
				break
			}

			hijacked := s.dispatch(conn, &req)
			if hijacked {
				return
			}
			if string(req.Method) == "GET" || string(req.Method) == "OPTIONS" {
				// Keep any pipelined follow-up request.
				n := copy(buf, req.Body)
				buf = buf[:n]
			} else {
				// Unread request bodies must not be mistaken for a
				// pipelined request.
				buf = buf[:0]
			}
		}

		n, err := conn.Read(chunk)
		if err != nil {
			return
		}
		buf = append(buf, chunk[:n]...)
	}
}
