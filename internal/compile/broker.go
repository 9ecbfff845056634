package compile

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/LuisPadre25/wu-cli/internal/transform"
)

// Broker errors.
var (
	ErrCompilerNotFound = errors.New("compile: no compiler host found")
	ErrCompileFailed    = errors.New("compile: compilation failed")
	ErrPathTooLong      = errors.New("compile: path too long")
)

// maxPathLen bounds the filename carried in a protocol header line.
const maxPathLen = 4096

// tier selects the compile strategy for an extension/framework pair.
type tier int

const (
	tierNone tier = iota
	tierNative
	tierDaemon
)

// Broker drives the three-tier compile strategy: native Go transforms,
// a long-running node daemon, and a one-shot subprocess fallback.
type Broker struct {
	cacheDir string
	logger   *slog.Logger
	tracer   trace.Tracer

	mu     sync.Mutex // serializes daemon traffic and guards the fields below
	daemon *daemon
}

// NewBroker creates a broker whose daemon host script lives under
// cacheDir.
func NewBroker(cacheDir string, logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		cacheDir: cacheDir,
		logger:   logger,
		tracer:   otel.Tracer("wu/compile"),
	}
}

// NeedsCompile reports whether a file requires framework compilation
// rather than the plain source transformer.
func NeedsCompile(path, framework string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsx", ".tsx", ".svelte", ".vue":
		return true
	case ".ts":
		return framework == "angular"
	}
	return false
}

// plan maps an extension/framework pair onto its strategy and daemon
// request kind.
func plan(ext, framework string) (tier, string) {
	switch ext {
	case ".jsx", ".tsx":
		switch framework {
		case "solid":
			return tierDaemon, "solid"
		case "qwik":
			return tierDaemon, "qwik"
		default:
			// React-family JSX translates natively.
			return tierNative, "jsx"
		}
	case ".svelte":
		return tierDaemon, "svelte"
	case ".vue":
		return tierDaemon, "vue"
	case ".ts":
		if framework == "angular" {
			return tierDaemon, "angular"
		}
		return tierNative, "ts"
	}
	return tierNone, ""
}

// Compile turns one source file into browser-ready JavaScript. Daemon
// and one-shot output gets bare-import rewriting applied because
// third-party compilers emit specifiers the browser cannot resolve.
func (b *Broker) Compile(ctx context.Context, source []byte, filePath, appDir, framework string) ([]byte, error) {
	if len(filePath) > maxPathLen {
		return nil, ErrPathTooLong
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	strategy, kind := plan(ext, framework)

	ctx, span := b.tracer.Start(ctx, "compile",
		trace.WithAttributes(
			attribute.String("file", filePath),
			attribute.String("framework", framework),
			attribute.String("kind", kind),
		))
	defer span.End()
	_ = ctx

	switch strategy {
	case tierNative:
		if kind == "ts" {
			out := transform.StripTypes(source)
			return transform.RewriteCSSImports(transform.RewriteBareImports(out)), nil
		}
		out := transform.CompileJSX(source, framework, ext == ".tsx")
		return transform.RewriteCSSImports(transform.RewriteBareImports(out)), nil

	case tierDaemon:
		out, err := b.viaDaemon(kind, filePath, loaderFor(ext), framework, source)
		if err != nil {
			return nil, err
		}
		return transform.RewriteBareImports(out), nil
	}

	return nil, ErrCompileFailed
}

// viaDaemon sends one request through the shared daemon, spawning it on
// first need and falling back to a one-shot subprocess when the spawn
// fails.
func (b *Broker) viaDaemon(kind, filePath, loader, hint string, source []byte) ([]byte, error) {
	nodePath, err := exec.LookPath("node")
	if err != nil {
		return nil, ErrCompilerNotFound
	}
	scriptPath := filepath.Join(b.cacheDir, DaemonScriptName)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.daemon == nil {
		d, err := spawnDaemon(nodePath, scriptPath)
		if err != nil {
			b.logger.Warn("daemon spawn failed, using one-shot compiler", "error", err)
			out, oneErr := oneShot(nodePath, scriptPath, kind, filePath, source)
			if oneErr != nil {
				return nil, ErrCompilerNotFound
			}
			return out, nil
		}
		b.daemon = d
	}

	out, err := b.daemon.roundTrip(kind, filePath, loader, hint, source)
	if err != nil {
		// A protocol ERR keeps the daemon; an I/O failure tears it
		// down so the next request respawns.
		var perr protocolError
		if !errors.As(err, &perr) {
			b.logger.Warn("daemon I/O error, tearing down", "error", err)
			b.daemon.kill()
			b.daemon = nil
		}
		return nil, errors.Join(ErrCompileFailed, err)
	}
	return out, nil
}

func loaderFor(ext string) string {
	switch ext {
	case ".tsx":
		return "tsx"
	case ".jsx":
		return "jsx"
	case ".ts":
		return "ts"
	}
	return ""
}

// Shutdown terminates the daemon, if running.
func (b *Broker) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.daemon != nil {
		b.daemon.kill()
		b.daemon = nil
	}
}
