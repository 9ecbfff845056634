package transform

import (
	"path/filepath"
	"strings"
)

// jsFamily holds the extensions the transformer treats as JavaScript.
var jsFamily = map[string]bool{
	".js": true, ".mjs": true, ".cjs": true,
	".ts": true, ".mts": true,
	".jsx": true, ".tsx": true,
}

// IsJSFamily reports whether path has a JavaScript-family extension.
func IsJSFamily(path string) bool {
	return jsFamily[strings.ToLower(filepath.Ext(path))]
}

// Transform prepares a JavaScript-family source file for the browser:
// TypeScript erasure for .ts/.mts files, bare-import remapping onto
// /@modules/, CSS-import tagging, and cache-busting stamps on relative
// imports once the reload counter is running. Always returns owned bytes
// and preserves the input's line count.
func Transform(src []byte, path string, counter uint64) []byte {
	ext := strings.ToLower(filepath.Ext(path))
	out := src
	if ext == ".ts" || ext == ".mts" {
		out = StripTypes(out)
	}
	out = RewriteBareImports(out)
	out = RewriteCSSImports(out)
	out = StampRelativeImports(out, counter)
	return out
}
