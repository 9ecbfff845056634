package server

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/LuisPadre25/wu-cli/internal/compile"
	"github.com/LuisPadre25/wu-cli/internal/config"
	"github.com/LuisPadre25/wu-cli/internal/httpx"
	"github.com/LuisPadre25/wu-cli/internal/resolve"
	"github.com/LuisPadre25/wu-cli/internal/transform"
)

// moduleCacheControl is the long-cache policy for the /@modules/
// namespace; everything else is no-store.
const moduleCacheControl = "max-age=86400"

// searchDirs are the roots the resolver probes for node_modules trees.
func (s *Server) searchDirs(snap *config.Snapshot) []string {
	dirs := []string{s.root, snap.Config.ShellDir()}
	for _, app := range snap.Apps {
		dirs = append(dirs, snap.Config.AppDir(app))
	}
	return dirs
}

// serveModule resolves a bare specifier and streams the transformed
// module body. A resolution or compile failure still answers 200 with a
// console.error stub so the browser surfaces something useful.
func (s *Server) serveModule(spec string, snap *config.Snapshot) response {
	spec = strings.TrimSuffix(spec, "/")
	if spec == "" {
		return stub("empty module specifier")
	}

	mod, err := resolve.Resolve(spec, s.searchDirs(snap))
	if err != nil {
		s.logger.Warn("module resolution failed", "specifier", spec, "error", err)
		return stub("module not found: " + spec)
	}

	info, err := os.Stat(mod.FilePath)
	if err != nil {
		return stub("module not found: " + spec)
	}
	mtime := info.ModTime().UnixNano()

	if body := s.cacheGet(mod.FilePath, mtime); body != nil {
		return moduleResponse(mod.FilePath, body)
	}

	src, err := os.ReadFile(mod.FilePath)
	if err != nil {
		return stub("module read failed: " + spec)
	}

	body := s.prepareModuleBody(spec, mod, src)
	s.cache.Put(mod.FilePath, mtime, body)
	return moduleResponse(mod.FilePath, body)
}

func moduleResponse(filePath string, body []byte) response {
	return response{
		status:       200,
		contentType:  httpx.ContentType(strings.ToLower(filepath.Ext(filePath))),
		cacheControl: moduleCacheControl,
		body:         body,
	}
}

// prepareModuleBody turns raw package source into a browser-loadable
// module: CommonJS gets wrapped; ESM gets bare-import remapping,
// relative-import anchoring, css tagging, feature-flag substitution,
// and #imports resolution.
func (s *Server) prepareModuleBody(spec string, mod *resolve.Module, src []byte) []byte {
	if !transform.IsJSFamily(mod.FilePath) {
		return src
	}

	pkgName, _ := resolve.SplitSpecifier(spec)

	if !mod.IsESM && transform.IsCommonJS(src) {
		fileDir := filepath.Dir(mod.FilePath)
		return transform.WrapCommonJS(src, func(rel string) []byte {
			target := resolve.ResolveRelative(fileDir, rel)
			if target == "" {
				return nil
			}
			inlined, err := os.ReadFile(target)
			if err != nil {
				return nil
			}
			return inlined
		})
	}

	ext := strings.ToLower(filepath.Ext(mod.FilePath))
	out := src
	if ext == ".ts" || ext == ".mts" {
		out = transform.StripTypes(out)
	}
	out = transform.RewriteBareImports(out)
	out = s.anchorImports(out, pkgName, mod)
	out = transform.RewriteCSSImports(out)
	out = transform.SubstituteFlags(out)
	return out
}

// anchorImports rewrites package-internal relative imports and #imports
// to absolute /@modules/ URLs so the browser resolves them against the
// physical package layout, not the virtual request path.
func (s *Server) anchorImports(src []byte, pkgName string, mod *resolve.Module) []byte {
	fileDir := filepath.Dir(mod.FilePath)

	return transform.AnchorImports(src, func(spec string) (string, bool) {
		if strings.HasPrefix(spec, "#") {
			hashMod, err := resolve.ResolveImports(mod.PackageDir, spec)
			if err != nil {
				return "", false
			}
			return moduleURL(pkgName, mod.PackageDir, hashMod.FilePath), true
		}
		if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
			return "", false
		}
		target := resolve.ResolveRelative(fileDir, spec)
		if target == "" {
			return "", false
		}
		return moduleURL(pkgName, mod.PackageDir, target), true
	})
}

// moduleURL maps an on-disk file inside a package onto its virtual URL.
func moduleURL(pkgName, pkgDir, filePath string) string {
	rel, err := filepath.Rel(pkgDir, filePath)
	if err != nil {
		return transform.ModulePrefix + pkgName
	}
	return transform.ModulePrefix + pkgName + "/" + filepath.ToSlash(rel)
}

// serveAppFile streams one file beneath a live app directory, compiling
// or transforming as the extension demands.
func (s *Server) serveAppFile(snap *config.Snapshot, app config.AppEntry, rel string) response {
	appDir := snap.Config.AppDir(app)
	full := filepath.Join(appDir, filepath.FromSlash(rel))
	if rel == "" {
		full = filepath.Join(appDir, "index.html")
	}

	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return response{status: 404, contentType: "text/plain; charset=utf-8", body: []byte("not found\n")}
	}

	if compile.NeedsCompile(full, app.Framework) {
		return s.serveCompiled(snap, app, full, info.ModTime().UnixNano())
	}

	src, err := os.ReadFile(full)
	if err != nil {
		return response{status: 404, contentType: "text/plain; charset=utf-8", body: []byte("not found\n")}
	}

	ext := strings.ToLower(filepath.Ext(full))
	switch {
	case transform.IsJSFamily(full):
		body := transform.Transform(src, full, s.hub.Counter())
		return response{status: 200, contentType: httpx.ContentType(ext), body: body}
	case ext == ".html" || ext == ".htm":
		return response{status: 200, contentType: httpx.ContentType(ext), body: s.injectHTML(src, snap)}
	default:
		return response{status: 200, contentType: httpx.ContentType(ext), body: src}
	}
}

// serveCompiled runs a framework file through the broker, backed by the
// two-level cache. Compile failures answer with a stub; the source is
// untouched so the next request retries.
func (s *Server) serveCompiled(snap *config.Snapshot, app config.AppEntry, full string, mtime int64) response {
	if body := s.cacheGet(full, mtime); body != nil {
		return response{status: 200, contentType: "text/javascript; charset=utf-8", body: s.stamp(body)}
	}

	src, err := os.ReadFile(full)
	if err != nil {
		return response{status: 404, contentType: "text/plain; charset=utf-8", body: []byte("not found\n")}
	}

	start := time.Now()
	out, err := s.broker.Compile(context.Background(), src, full, snap.Config.AppDir(app), app.Framework)
	if s.metrics != nil {
		s.metrics.CompileDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.logger.Warn("compile failed", "file", full, "error", err)
		return stub("compile failed: " + filepath.Base(full))
	}

	s.cache.Put(full, mtime, out)
	return response{status: 200, contentType: "text/javascript; charset=utf-8", body: s.stamp(out)}
}

// stamp applies the hot-reload cache buster to browser-bound output.
func (s *Server) stamp(body []byte) []byte {
	return transform.StampRelativeImports(body, s.hub.Counter())
}

// serveCSSModule serves a stylesheet as a JavaScript module that
// installs its text into a tagged <style> element.
func (s *Server) serveCSSModule(rawPath string, snap *config.Snapshot) response {
	var full string
	if app, rel, ok := matchApp(rawPath, snap); ok {
		full = filepath.Join(snap.Config.AppDir(app), filepath.FromSlash(rel))
	} else {
		full = filepath.Join(snap.Config.ShellDir(), filepath.FromSlash(strings.TrimPrefix(rawPath, "/")))
	}

	css, err := os.ReadFile(full)
	if err != nil {
		return stub("stylesheet not found: " + rawPath)
	}

	quotedCSS, _ := json.Marshal(string(css))
	quotedPath, _ := json.Marshal(rawPath)

	var b bytes.Buffer
	b.WriteString("let style = document.querySelector('style[data-wu-css=" + jsAttr(rawPath) + "]');\n")
	b.WriteString("if (!style) {\n")
	b.WriteString("  style = document.createElement('style');\n")
	b.WriteString("  style.setAttribute('data-wu-css', " + string(quotedPath) + ");\n")
	b.WriteString("  document.head.appendChild(style);\n")
	b.WriteString("}\n")
	b.WriteString("style.textContent = " + string(quotedCSS) + ";\n")
	b.WriteString("export default style.textContent;\n")

	return response{
		status:      200,
		contentType: "text/javascript; charset=utf-8",
		body:        b.Bytes(),
	}
}

// jsAttr embeds a path inside the single-quoted attribute selector.
func jsAttr(path string) string {
	return `"` + strings.ReplaceAll(path, `"`, `\"`) + `"`
}

// serveShell serves everything no other namespace claimed: built shell
// output first, then shell source, then the shell's index fallback.
func (s *Server) serveShell(rawPath string, snap *config.Snapshot) response {
	shellDir := snap.Config.ShellDir()
	clean := strings.TrimPrefix(rawPath, "/")

	candidates := []string{
		filepath.Join(shellDir, "dist", filepath.FromSlash(clean)),
		filepath.Join(shellDir, filepath.FromSlash(clean)),
		filepath.Join(shellDir, "dist", filepath.FromSlash(clean), "index.html"),
		filepath.Join(shellDir, filepath.FromSlash(clean), "index.html"),
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		src, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}

		ext := strings.ToLower(filepath.Ext(candidate))
		switch {
		case ext == ".html" || ext == ".htm":
			return response{status: 200, contentType: httpx.ContentType(ext), body: s.injectHTML(src, snap)}
		case transform.IsJSFamily(candidate):
			return response{status: 200, contentType: httpx.ContentType(ext), body: transform.Transform(src, candidate, s.hub.Counter())}
		default:
			return response{status: 200, contentType: httpx.ContentType(ext), body: src}
		}
	}

	return response{status: 404, contentType: "text/plain; charset=utf-8", body: []byte("not found\n")}
}

// injectHTML inserts the live-apps bootstrap and the HMR client before
// </head>, else before </body>, else at the top of the document.
func (s *Server) injectHTML(body []byte, snap *config.Snapshot) []byte {
	var block bytes.Buffer
	block.WriteString("<script>window.__wu_apps = ")
	block.Write(appsJSON(snap))
	block.WriteString(";</script>\n")
	block.WriteString(`<script type="module" src="` + "/@wu/client.js" + `"></script>` + "\n")

	for _, anchor := range [][]byte{[]byte("</head>"), []byte("</body>")} {
		if idx := bytes.Index(body, anchor); idx >= 0 {
			out := make([]byte, 0, len(body)+block.Len())
			out = append(out, body[:idx]...)
			out = append(out, block.Bytes()...)
			out = append(out, body[idx:]...)
			return out
		}
	}
	return append(block.Bytes(), body...)
}

// cacheGet wraps the cache with hit/miss accounting.
func (s *Server) cacheGet(path string, mtime int64) []byte {
	body := s.cache.Get(path, mtime)
	if s.metrics != nil {
		if body != nil {
			s.metrics.CacheHits.Inc()
		} else {
			s.metrics.CacheMisses.Inc()
		}
	}
	return body
}
