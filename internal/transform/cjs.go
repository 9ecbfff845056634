package transform

import (
	"bytes"
	"fmt"
	"strings"
)

// IsCommonJS reports whether source is a CommonJS module: no top-level
// import/export statements, plus at least one require(, module.exports,
// or exports. usage.
func IsCommonJS(src []byte) bool {
	hasCJS := bytes.Contains(src, []byte("require(")) ||
		bytes.Contains(src, []byte("module.exports")) ||
		bytes.Contains(src, []byte("exports."))
	if !hasCJS {
		return false
	}

	for _, line := range bytes.Split(src, []byte("\n")) {
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("import ")) ||
			bytes.HasPrefix(trimmed, []byte("import\"")) ||
			bytes.HasPrefix(trimmed, []byte("import'")) ||
			bytes.HasPrefix(trimmed, []byte("export ")) ||
			bytes.HasPrefix(trimmed, []byte("export{")) ||
			bytes.HasPrefix(trimmed, []byte("export*")) {
			return false
		}
	}
	return true
}

// requireCall is one require('<spec>') occurrence found in CJS source.
type requireCall struct {
	spec string
}

// scanRequires collects the specifiers of require('…') calls, in order.
func scanRequires(src []byte) []requireCall {
	var calls []requireCall
	i := 0
	for {
		idx := bytes.Index(src[i:], []byte("require"))
		if idx < 0 {
			return calls
		}
		pos := i + idx
		i = pos + len("require")

		// Word boundary on the left.
		if pos > 0 && isIdentChar(src[pos-1]) {
			continue
		}
		j := skipSpaces(src, i)
		if j >= len(src) || src[j] != '(' {
			continue
		}
		j = skipSpaces(src, j+1)
		if j >= len(src) || (src[j] != '\'' && src[j] != '"') {
			continue
		}
		q := src[j]
		j++
		start := j
		for j < len(src) && src[j] != q && src[j] != '\n' {
			j++
		}
		if j >= len(src) || src[j] != q {
			continue
		}
		spec := string(src[start:j])
		j = skipSpaces(src, j+1)
		if j < len(src) && src[j] == ')' {
			calls = append(calls, requireCall{spec: spec})
			i = j + 1
		}
	}
}

// WrapCommonJS wraps a CommonJS module so a browser can import it as ESM.
// loadRelative resolves a relative require inside the same package and
// returns its source, or nil; it drives the development-variant inlining
// of the `if (prod) require('./x.prod') else require('./x.dev')` idiom.
func WrapCommonJS(src []byte, loadRelative func(rel string) []byte) []byte {
	body := src

	// Entry files that only re-export a variant get collapsed into the
	// development variant without evaluating the conditional.
	if loadRelative != nil {
		var relative []requireCall
		for _, c := range scanRequires(src) {
			if strings.HasPrefix(c.spec, "./") || strings.HasPrefix(c.spec, "../") {
				relative = append(relative, c)
			}
		}
		if len(relative) > 0 {
			pick := relative[0]
			for _, c := range relative {
				if strings.Contains(c.spec, "development") {
					pick = c
					break
				}
			}
			if inlined := loadRelative(pick.spec); inlined != nil {
				body = inlined
			}
		}
	}

	// Static imports for every bare require in the (possibly inlined)
	// body.
	var deps []string
	seen := map[string]bool{}
	for _, c := range scanRequires(body) {
		if !IsBareSpecifier(c.spec) || seen[c.spec] {
			continue
		}
		seen[c.spec] = true
		deps = append(deps, c.spec)
	}

	var out bytes.Buffer
	out.Grow(len(body) + 1024)

	for n, dep := range deps {
		fmt.Fprintf(&out, "import __dep%d from '%s%s';\n", n, ModulePrefix, dep)
	}

	out.WriteString("var process = { env: { NODE_ENV: \"development\" } };\n")
	out.WriteString("var global = globalThis;\n")
	out.WriteString("var module = { exports: {} };\n")
	out.WriteString("var exports = module.exports;\n")

	out.WriteString("function require(id) {\n")
	for n, dep := range deps {
		fmt.Fprintf(&out, "  if (id === '%s') return __dep%d;\n", dep, n)
	}
	out.WriteString("  console.warn('[wu] unresolved require:', id);\n")
	out.WriteString("  return {};\n")
	out.WriteString("}\n")

	out.Write(body)
	if len(body) > 0 && body[len(body)-1] != '\n' {
		out.WriteByte('\n')
	}

	out.WriteString("export default module.exports;\n")

	if names := scanNamedExports(body); len(names) > 0 {
		out.WriteString("var __e = module.exports; export var ")
		for n, name := range names {
			if n > 0 {
				out.WriteString(", ")
			}
			fmt.Fprintf(&out, "%s = __e.%s", name, name)
		}
		out.WriteString(";\n")
	}

	return out.Bytes()
}

// scanNamedExports collects distinct NAME tokens from `exports.NAME = …`
// assignments, skipping underscore-prefixed names and __esModule.
func scanNamedExports(src []byte) []string {
	var names []string
	seen := map[string]bool{}

	i := 0
	for {
		idx := bytes.Index(src[i:], []byte("exports."))
		if idx < 0 {
			return names
		}
		pos := i + idx
		i = pos + len("exports.")

		// `module.exports.` and plain `exports.` both qualify; a larger
		// identifier like `myexports.` does not.
		if pos > 0 && isIdentChar(src[pos-1]) {
			continue
		}

		start := i
		for i < len(src) && isIdentChar(src[i]) {
			i++
		}
		name := string(src[start:i])
		if name == "" || name[0] == '_' {
			continue
		}

		j := skipSpaces(src, i)
		if j >= len(src) || src[j] != '=' || (j+1 < len(src) && src[j+1] == '=') {
			continue
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
}
