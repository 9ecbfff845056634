package transform

import (
	"bytes"
	"strconv"
	"strings"
)

// ModulePrefix is the virtual namespace bare specifiers are rewritten into.
const ModulePrefix = "/@modules/"

// rewriteSpecifiers scans src for import specifiers — string literals
// following the keywords `from` and `import` (including dynamic
// `import(`) — and lets fn replace each one. String literals outside
// import positions and comment bodies are never touched.
func rewriteSpecifiers(src []byte, fn func(spec string) (string, bool)) []byte {
	var out bytes.Buffer
	out.Grow(len(src) + 64)

	i := 0
	for i < len(src) {
		c := src[i]

		// Skip comments.
		if c == '/' && i+1 < len(src) {
			if src[i+1] == '/' {
				end := bytes.IndexByte(src[i:], '\n')
				if end < 0 {
					out.Write(src[i:])
					return out.Bytes()
				}
				out.Write(src[i : i+end])
				i += end
				continue
			}
			if src[i+1] == '*' {
				end := bytes.Index(src[i+2:], []byte("*/"))
				if end < 0 {
					out.Write(src[i:])
					return out.Bytes()
				}
				out.Write(src[i : i+2+end+2])
				i += 2 + end + 2
				continue
			}
		}

		// Skip non-import string literals.
		if c == '\'' || c == '"' || c == '`' {
			end := skipString(src, i)
			out.Write(src[i:end])
			i = end
			continue
		}

		if isIdentStart(c) && (i == 0 || !isIdentChar(src[i-1])) {
			word := readWordBytes(src, i)
			if word == "from" || word == "import" {
				j := i + len(word)
				// Dynamic import: import( 'spec' )
				if word == "import" {
					k := skipSpaces(src, j)
					if k < len(src) && src[k] == '(' {
						j = skipSpaces(src, k+1)
						if j < len(src) && (src[j] == '\'' || src[j] == '"') {
							i = rewriteOneSpecifier(&out, src, i, j, fn)
							continue
						}
					}
				}
				k := skipSpaces(src, j)
				if k < len(src) && (src[k] == '\'' || src[k] == '"') {
					i = rewriteOneSpecifier(&out, src, i, k, fn)
					continue
				}
			}
			out.WriteString(word)
			i += len(word)
			continue
		}

		out.WriteByte(c)
		i++
	}

	return out.Bytes()
}

// rewriteOneSpecifier copies src[start:quote+1], applies fn to the literal
// body, and returns the index after the closing quote.
func rewriteOneSpecifier(out *bytes.Buffer, src []byte, start, quote int, fn func(string) (string, bool)) int {
	q := src[quote]
	end := quote + 1
	for end < len(src) && src[end] != q && src[end] != '\n' {
		end++
	}
	if end >= len(src) || src[end] != q {
		// Unterminated literal: pass through untouched.
		out.Write(src[start:end])
		return end
	}

	spec := string(src[quote+1 : end])
	out.Write(src[start : quote+1])
	if replaced, ok := fn(spec); ok {
		out.WriteString(replaced)
	} else {
		out.WriteString(spec)
	}
	out.WriteByte(q)
	return end + 1
}

// skipString returns the index just past the string literal starting at i.
func skipString(src []byte, i int) int {
	q := src[i]
	i++
	for i < len(src) {
		switch src[i] {
		case '\\':
			i++
		case q:
			return i + 1
		case '\n':
			if q != '`' {
				return i
			}
		}
		i++
	}
	return i
}

func skipSpaces(src []byte, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func readWordBytes(src []byte, pos int) string {
	end := pos
	for end < len(src) && isIdentChar(src[end]) {
		end++
	}
	return string(src[pos:end])
}

// IsBareSpecifier reports whether spec is a bare module specifier:
// it starts with a letter, '@', or '_', is not relative, absolute, or a
// URL, and contains no whitespace or bracket characters.
func IsBareSpecifier(spec string) bool {
	if spec == "" {
		return false
	}
	c := spec[0]
	if c != '@' && c != '_' && !(c >= 'a' && c <= 'z') && !(c >= 'A' && c <= 'Z') {
		return false
	}
	if strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return false
	}
	if strings.HasPrefix(spec, "http:") || strings.HasPrefix(spec, "https:") || strings.HasPrefix(spec, "data:") {
		return false
	}
	if strings.ContainsAny(spec, " \t\n\r[](){}<>") {
		return false
	}
	return true
}

// AnchorImports runs the import scanner with a caller-supplied
// replacement. The module pipeline uses it to anchor package-internal
// relative imports and #imports onto absolute /@modules/ URLs.
func AnchorImports(src []byte, anchor func(spec string) (string, bool)) []byte {
	return rewriteSpecifiers(src, anchor)
}

// RewriteBareImports maps every bare import specifier onto the virtual
// /@modules/ namespace. Always returns owned bytes.
func RewriteBareImports(src []byte) []byte {
	return rewriteSpecifiers(src, func(spec string) (string, bool) {
		if IsBareSpecifier(spec) {
			return ModulePrefix + spec, true
		}
		return "", false
	})
}

// RewriteCSSImports appends ?import to .css specifiers so the router
// serves them as JavaScript modules. Idempotent.
func RewriteCSSImports(src []byte) []byte {
	return rewriteSpecifiers(src, func(spec string) (string, bool) {
		if strings.HasSuffix(spec, ".css") {
			return spec + "?import", true
		}
		return "", false
	})
}

// StampRelativeImports appends a ?t=<counter> cache-busting query to
// relative specifiers that carry no query yet. A zero counter leaves the
// source untouched.
func StampRelativeImports(src []byte, counter uint64) []byte {
	if counter == 0 {
		return append([]byte(nil), src...)
	}
	stamp := "?t=" + strconv.FormatUint(counter, 10)
	return rewriteSpecifiers(src, func(spec string) (string, bool) {
		if !strings.HasPrefix(spec, "./") && !strings.HasPrefix(spec, "../") {
			return "", false
		}
		if strings.Contains(spec, "?") {
			return "", false
		}
		return spec + stamp, true
	})
}
