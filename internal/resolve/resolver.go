package resolve

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Resolution errors.
var (
	ErrPackageNotFound    = errors.New("resolve: package not found")
	ErrEntryPointNotFound = errors.New("resolve: entry point not found")
)

// Module is a resolved npm module.
type Module struct {
	// FilePath is the on-disk path of the resolved file.
	FilePath string

	// PackageDir is the directory holding the package's package.json.
	PackageDir string

	// IsESM reports whether the file should be served as an ES module
	// without CommonJS wrapping.
	IsESM bool
}

// conditionPriority orders export-map condition keys. "types" entries are
// filtered out separately.
var conditionPriority = []string{"import", "module", "browser", "default", "require"}

// subpathExtensions are probed, in order, when a subpath has no exports
// mapping.
var subpathExtensions = []string{".js", ".mjs", ".ts", ".tsx", ".jsx"}

// indexNames are probed when a subpath is a directory.
var indexNames = []string{"index.js", "index.mjs", "index.ts", "index.tsx"}

// SplitSpecifier splits a bare specifier into its package name and
// optional subpath. Scoped names keep their "@scope/" prefix.
func SplitSpecifier(spec string) (pkg, subpath string) {
	if strings.HasPrefix(spec, "@") {
		first := strings.IndexByte(spec, '/')
		if first < 0 {
			return spec, ""
		}
		second := strings.IndexByte(spec[first+1:], '/')
		if second < 0 {
			return spec, ""
		}
		return spec[:first+1+second], spec[first+1+second+1:]
	}
	first := strings.IndexByte(spec, '/')
	if first < 0 {
		return spec, ""
	}
	return spec[:first], spec[first+1:]
}

// Resolve resolves a bare specifier against the given search directories.
// Each directory is probed for node_modules/<pkg> first; a second pass
// probes <dir>/<pkg> directly so workspace layouts without a node_modules
// still resolve.
func Resolve(specifier string, searchDirs []string) (*Module, error) {
	pkg, subpath := SplitSpecifier(specifier)

	pkgDir := findPackageDir(pkg, searchDirs)
	if pkgDir == "" {
		return nil, ErrPackageNotFound
	}

	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return nil, ErrPackageNotFound
	}

	if subpath != "" {
		return resolveSubpath(pkgDir, data, subpath)
	}
	return resolveRoot(pkgDir, data)
}

func findPackageDir(pkg string, searchDirs []string) string {
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, "node_modules", pkg)
		if fileExists(filepath.Join(candidate, "package.json")) {
			return candidate
		}
	}
	for _, dir := range searchDirs {
		candidate := filepath.Join(dir, pkg)
		if fileExists(filepath.Join(candidate, "package.json")) {
			return candidate
		}
	}
	return ""
}

// resolveRoot resolves the bare package name to its entry point:
// exports, then module, then main, then index.js. Candidates that do not
// exist on disk fall through to the next.
func resolveRoot(pkgDir string, data []byte) (*Module, error) {
	esmType := isModuleType(data)

	if raw, kind, ok := extractField(data, "exports"); ok {
		if rel, viaESM, ok := resolveRootExports(raw, kind); ok {
			if m := tryFile(pkgDir, rel, esmType || viaESM); m != nil {
				return m, nil
			}
		}
	}

	if rel, kind, ok := extractField(data, "module"); ok && kind == kindString {
		if m := tryFile(pkgDir, rel, true); m != nil {
			return m, nil
		}
	}

	if rel, kind, ok := extractField(data, "main"); ok && kind == kindString {
		if m := tryFile(pkgDir, rel, esmType); m != nil {
			return m, nil
		}
	}

	if m := tryFile(pkgDir, "index.js", esmType); m != nil {
		return m, nil
	}

	return nil, ErrEntryPointNotFound
}

// resolveRootExports handles the three shapes the exports field takes:
// a plain string, a condition object, or a subpath map keyed by ".".
func resolveRootExports(raw string, kind byte) (rel string, viaESM, ok bool) {
	if kind == kindString {
		if isTypesFile(raw) {
			return "", false, false
		}
		return raw, false, true
	}
	if kind != kindObject {
		return "", false, false
	}

	if dot, dotKind, found := extractField([]byte(raw), "."); found {
		return resolveConditions(dot, dotKind)
	}
	return resolveConditions(raw, kind)
}

// resolveConditions walks a condition object in priority order:
// import > module > browser > default > require. Values may nest.
func resolveConditions(value string, kind byte) (rel string, viaESM, ok bool) {
	if kind == kindString {
		if isTypesFile(value) {
			return "", false, false
		}
		return value, false, true
	}
	if kind != kindObject {
		return "", false, false
	}

	for _, cond := range conditionPriority {
		v, k, found := extractField([]byte(value), cond)
		if !found {
			continue
		}
		r, nestedESM, resolved := resolveConditions(v, k)
		if !resolved {
			continue
		}
		esm := nestedESM || cond == "import" || cond == "module"
		return r, esm, true
	}
	return "", false, false
}

// resolveSubpath resolves "<pkg>/<subpath>". With an exports map the
// "./subpath" entry is consulted; otherwise the file is probed directly
// under the package directory.
func resolveSubpath(pkgDir string, data []byte, subpath string) (*Module, error) {
	esmType := isModuleType(data)

	if raw, kind, ok := extractField(data, "exports"); ok && kind == kindObject {
		if v, k, found := extractField([]byte(raw), "./"+subpath); found {
			if rel, viaESM, resolved := resolveConditions(v, k); resolved {
				if m := tryFile(pkgDir, rel, esmType || viaESM); m != nil {
					return m, nil
				}
			}
			return nil, ErrEntryPointNotFound
		}
	}

	for _, ext := range subpathExtensions {
		if m := tryFile(pkgDir, subpath+ext, esmType || extIsESM(ext)); m != nil {
			return m, nil
		}
	}
	for _, index := range indexNames {
		if m := tryFile(pkgDir, filepath.Join(subpath, index), esmType); m != nil {
			return m, nil
		}
	}
	if m := tryFile(pkgDir, subpath, esmType); m != nil {
		return m, nil
	}

	return nil, ErrEntryPointNotFound
}

// ResolveImports resolves a node-style "#name" specifier against the
// owning package's imports field, using the same condition priority as
// exports.
func ResolveImports(pkgDir, specifier string) (*Module, error) {
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err != nil {
		return nil, ErrPackageNotFound
	}

	raw, kind, ok := extractField(data, "imports")
	if !ok || kind != kindObject {
		return nil, ErrEntryPointNotFound
	}
	v, k, found := extractField([]byte(raw), specifier)
	if !found {
		return nil, ErrEntryPointNotFound
	}
	rel, viaESM, resolved := resolveConditions(v, k)
	if !resolved {
		return nil, ErrEntryPointNotFound
	}
	if m := tryFile(pkgDir, rel, isModuleType(data) || viaESM); m != nil {
		return m, nil
	}
	return nil, ErrEntryPointNotFound
}

// ResolveRelative resolves a relative specifier against a directory,
// probing extensions and index files the way subpaths are probed.
// Returns the on-disk path, or "" when nothing matches.
func ResolveRelative(baseDir, rel string) string {
	clean := filepath.Join(baseDir, rel)
	if fileExists(clean) && !isDir(clean) {
		return clean
	}
	for _, ext := range subpathExtensions {
		if fileExists(clean + ext) {
			return clean + ext
		}
	}
	for _, index := range indexNames {
		p := filepath.Join(clean, index)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func tryFile(pkgDir, rel string, esm bool) *Module {
	path := filepath.Join(pkgDir, filepath.FromSlash(rel))
	if !fileExists(path) || isDir(path) {
		return nil
	}
	return &Module{
		FilePath:   path,
		PackageDir: pkgDir,
		IsESM:      esm || extIsESM(filepath.Ext(path)),
	}
}

func isModuleType(data []byte) bool {
	t, kind, ok := extractField(data, "type")
	return ok && kind == kindString && t == "module"
}

func isTypesFile(rel string) bool {
	return strings.HasSuffix(rel, ".d.ts") || strings.HasSuffix(rel, ".d.mts")
}

func extIsESM(ext string) bool {
	return ext == ".mjs" || ext == ".mts"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
