package server

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LuisPadre25/wu-cli/internal/config"
	"github.com/LuisPadre25/wu-cli/internal/hmr"
	"github.com/LuisPadre25/wu-cli/internal/httpx"
)

// dispatch routes one parsed request. It returns true when the
// connection was taken over by an HMR stream and must not be reused.
func (s *Server) dispatch(conn net.Conn, req *httpx.Request) bool {
	start := time.Now()
	method := string(req.Method)

	rawPath := percentDecode(req.Path)
	query := string(req.Query)

	if method == "OPTIONS" {
		s.observe("options", 204, start)
		s.writeResponse(conn, response{status: 204})
		return false
	}
	if method != "GET" {
		s.observe("other", 405, start)
		s.writeResponse(conn, response{status: 405, contentType: "text/plain; charset=utf-8", body: []byte("method not allowed\n")})
		return false
	}
	if strings.Contains(rawPath, "..") {
		s.observe("traversal", 403, start)
		s.writeResponse(conn, response{status: 403, contentType: "text/plain; charset=utf-8", body: []byte("forbidden\n")})
		return false
	}

	snap := s.store.Snapshot()

	switch {
	case rawPath == hmr.SSEPath:
		s.observe("hmr", 200, start)
		s.serveSSE(conn)
		return true

	case rawPath == hmr.WSPath:
		if s.serveWS(conn, req) {
			s.observe("hmr", 101, start)
			return true
		}
		s.observe("hmr", 400, start)
		return false

	case strings.HasPrefix(rawPath, "/@modules/"):
		resp := s.serveModule(strings.TrimPrefix(rawPath, "/@modules/"), snap)
		s.observe("module", resp.status, start)
		s.writeResponse(conn, resp)
		return false

	case rawPath == hmr.ClientPath:
		s.observe("wu", 200, start)
		s.writeResponse(conn, response{
			status:      200,
			contentType: "text/javascript; charset=utf-8",
			body:        []byte(hmr.ClientScript),
		})
		return false

	case rawPath == "/@wu/apps.json":
		s.observe("wu", 200, start)
		s.writeResponse(conn, response{
			status:      200,
			contentType: "application/json; charset=utf-8",
			body:        appsJSON(snap),
		})
		return false

	case strings.HasSuffix(rawPath, "/wu.json"):
		resp := s.serveManifest(rawPath, snap)
		s.observe("manifest", resp.status, start)
		s.writeResponse(conn, resp)
		return false

	case strings.HasSuffix(rawPath, ".css") && hasImportFlag(query):
		resp := s.serveCSSModule(rawPath, snap)
		s.observe("css", resp.status, start)
		s.writeResponse(conn, resp)
		return false
	}

	if app, rel, ok := matchApp(rawPath, snap); ok {
		resp := s.serveAppFile(snap, app, rel)
		s.observe("app", resp.status, start)
		s.writeResponse(conn, resp)
		return false
	}

	resp := s.serveShell(rawPath, snap)
	s.observe("shell", resp.status, start)
	s.writeResponse(conn, resp)
	return false
}

// matchApp matches /<dir>/rest where <dir> is a live app directory and
// the next character is '/' or end of path.
func matchApp(rawPath string, snap *config.Snapshot) (config.AppEntry, string, bool) {
	rel := strings.TrimPrefix(rawPath, "/")
	for _, app := range snap.Apps {
		if rel == app.Dir {
			return app, "", true
		}
		if strings.HasPrefix(rel, app.Dir+"/") {
			return app, rel[len(app.Dir)+1:], true
		}
	}
	return config.AppEntry{}, "", false
}

// serveManifest serves an on-disk wu.json, or synthesizes one for a
// registered app directory.
func (s *Server) serveManifest(rawPath string, snap *config.Snapshot) response {
	onDisk := filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(rawPath, "/")))
	if data, err := os.ReadFile(onDisk); err == nil {
		return response{status: 200, contentType: "application/json; charset=utf-8", body: data}
	}

	dir := strings.TrimPrefix(strings.TrimSuffix(rawPath, "/wu.json"), "/")
	for _, app := range snap.Apps {
		if app.Dir == dir {
			body, _ := json.Marshal(map[string]any{
				"name":      app.Name,
				"dir":       app.Dir,
				"framework": app.Framework,
				"port":      app.Port,
			})
			return response{status: 200, contentType: "application/json; charset=utf-8", body: body}
		}
	}
	return response{status: 404, contentType: "text/plain; charset=utf-8", body: []byte("not found\n")}
}

// wuApp is one record in /@wu/apps.json and window.__wu_apps.
type wuApp struct {
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Framework string `json:"framework"`
	Color     string `json:"color"`
	Ext       string `json:"ext"`
}

func appsJSON(snap *config.Snapshot) []byte {
	apps := make([]wuApp, 0, len(snap.Apps))
	for _, a := range snap.Apps {
		apps = append(apps, wuApp{
			Name:      a.Name,
			Dir:       a.Dir,
			Framework: a.Framework,
			Color:     config.FrameworkColor(a.Framework),
			Ext:       config.FrameworkExt(a.Framework),
		})
	}
	body, _ := json.Marshal(apps)
	return body
}

func hasImportFlag(query string) bool {
	for _, part := range strings.Split(query, "&") {
		if part == "import" || strings.HasPrefix(part, "import=") {
			return true
		}
	}
	return false
}

// percentDecode decodes %XX escapes into a fresh per-request buffer.
// Malformed escapes pass through literally.
func percentDecode(path []byte) string {
	if !hasByte(path, '%') {
		return string(path)
	}
	out := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '%' && i+2 < len(path) {
			hi, ok1 := unhex(path[i+1])
			lo, ok2 := unhex(path[i+2])
			if ok1 && ok2 {
				out = append(out, hi<<4|lo)
				i += 2
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}

func hasByte(b []byte, c byte) bool {
	for _, x := range b {
		if x == c {
			return true
		}
	}
	return false
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// observe records request metrics when telemetry is wired.
func (s *Server) observe(route string, status int, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RequestsTotal.WithLabelValues(route, statusLabel(status)).Inc()
	s.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

func statusLabel(status int) string {
	switch {
	case status < 300:
		return "2xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
