package transform

import (
	"bytes"
	"strings"
)

// jsxPreambles alias the __jsx factory and __Fragment to each framework's
// real factory functions. The bare imports are remapped onto /@modules/
// by the broker before the result is served. The preamble carries no
// newline so output line numbers stay aligned with the input.
var jsxPreambles = map[string]string{
	"react":  "import { createElement as __jsx, Fragment as __Fragment } from 'react'; ",
	"preact": "import { h as __jsx, Fragment as __Fragment } from 'preact'; ",
}

// CompileJSX translates JSX or TSX source to __jsx(tag, props, …children)
// calls and prepends the framework preamble. Output line count equals
// input line count. Malformed JSX produces a best-effort emission; the
// browser surfaces the syntax error.
func CompileJSX(src []byte, framework string, isTSX bool) []byte {
	if isTSX {
		src = StripTypes(src)
	}

	translated := TranslateJSX(src)

	preamble, ok := jsxPreambles[framework]
	if !ok {
		preamble = jsxPreambles["react"]
	}
	out := make([]byte, 0, len(preamble)+len(translated))
	out = append(out, preamble...)
	return append(out, translated...)
}

// TranslateJSX performs only the JSX-to-call translation, without the
// framework preamble. Input free of JSX passes through byte-identical.
func TranslateJSX(src []byte) []byte {
	t := &jsxTranslator{src: src}
	t.run()
	return t.out.Bytes()
}

// jsxStartPrecursors are keywords after which a '<' begins JSX.
var jsxStartPrecursors = map[string]bool{
	"return": true, "case": true, "default": true, "typeof": true,
	"void": true, "delete": true, "throw": true, "new": true,
	"in": true, "of": true, "else": true, "yield": true,
	"await": true, "export": true,
}

type jsxTranslator struct {
	src []byte
	i   int
	out bytes.Buffer
}

func (t *jsxTranslator) run() {
	for t.i < len(t.src) {
		t.step()
	}
}

func (t *jsxTranslator) step() {
	c := t.src[t.i]

	if c == '/' && t.i+1 < len(t.src) {
		if t.src[t.i+1] == '/' {
			end := bytes.IndexByte(t.src[t.i:], '\n')
			if end < 0 {
				t.out.Write(t.src[t.i:])
				t.i = len(t.src)
				return
			}
			t.out.Write(t.src[t.i : t.i+end])
			t.i += end
			return
		}
		if t.src[t.i+1] == '*' {
			end := bytes.Index(t.src[t.i+2:], []byte("*/"))
			if end < 0 {
				t.out.Write(t.src[t.i:])
				t.i = len(t.src)
				return
			}
			t.out.Write(t.src[t.i : t.i+2+end+2])
			t.i += 2 + end + 2
			return
		}
	}

	if c == '\'' || c == '"' {
		end := skipString(t.src, t.i)
		t.out.Write(t.src[t.i:end])
		t.i = end
		return
	}

	if c == '`' {
		t.copyTemplate()
		return
	}

	if c == '<' && t.jsxStarts() {
		t.element()
		return
	}

	t.out.WriteByte(c)
	t.i++
}

// copyTemplate copies a template literal verbatim, recursing into ${…}
// interpolations so nested JSX inside them is still recognized.
func (t *jsxTranslator) copyTemplate() {
	t.out.WriteByte('`')
	t.i++
	for t.i < len(t.src) {
		c := t.src[t.i]
		if c == '\\' && t.i+1 < len(t.src) {
			t.out.Write(t.src[t.i : t.i+2])
			t.i += 2
			continue
		}
		if c == '`' {
			t.out.WriteByte('`')
			t.i++
			return
		}
		if c == '$' && t.i+1 < len(t.src) && t.src[t.i+1] == '{' {
			end := scanBalancedBraces(t.src, t.i+1)
			t.out.WriteString("${")
			sub := &jsxTranslator{src: t.src[t.i+2 : end]}
			sub.run()
			t.out.Write(sub.out.Bytes())
			t.out.WriteByte('}')
			t.i = end + 1
			continue
		}
		t.out.WriteByte(c)
		t.i++
	}
}

// jsxStarts decides whether the '<' at t.i begins a JSX element, by
// examining the preceding significant token and rejecting TSX generic
// parameter patterns. Ambiguous arrow generics after `return` may still
// parse as JSX; a full expression parser is deliberately out of scope.
func (t *jsxTranslator) jsxStarts() bool {
	j := t.i - 1
	for j >= 0 && (t.src[j] == ' ' || t.src[j] == '\t' || t.src[j] == '\n' || t.src[j] == '\r') {
		j--
	}

	ok := false
	switch {
	case j < 0:
		ok = true
	case t.src[j] == '&' && j > 0 && t.src[j-1] == '&':
		ok = true
	case t.src[j] == '|' && j > 0 && t.src[j-1] == '|':
		ok = true
	case bytes.IndexByte([]byte("(,=>{}[;?:"), t.src[j]) >= 0:
		ok = true
	case isIdentChar(t.src[j]):
		start := j
		for start > 0 && isIdentChar(t.src[start-1]) {
			start--
		}
		ok = jsxStartPrecursors[string(t.src[start:j+1])]
	}
	if !ok {
		return false
	}

	return !t.looksLikeGenerics()
}

// looksLikeGenerics rejects `<T,>`, `<T = …>`, and `<T extends …>`.
func (t *jsxTranslator) looksLikeGenerics() bool {
	j := t.i + 1
	for j < len(t.src) && (t.src[j] == ' ' || t.src[j] == '\t') {
		j++
	}
	start := j
	for j < len(t.src) && isIdentChar(t.src[j]) {
		j++
	}
	if j == start {
		return false
	}
	for j < len(t.src) && (t.src[j] == ' ' || t.src[j] == '\t') {
		j++
	}
	if j >= len(t.src) {
		return false
	}
	switch t.src[j] {
	case ',':
		return true
	case '=':
		return j+1 >= len(t.src) || t.src[j+1] != '>'
	}
	return readWordBytes(t.src, j) == "extends"
}

// element translates one JSX element starting at the '<' under t.i.
func (t *jsxTranslator) element() {
	t.i++ // '<'

	// Fragment: <>…</>
	if t.i < len(t.src) && t.src[t.i] == '>' {
		t.i++
		t.out.WriteString("__jsx(__Fragment, null")
		t.children("")
		t.out.WriteByte(')')
		return
	}

	name := t.readTagName()
	tag := name
	if name == "" {
		tag = `""`
	} else if isLowerTag(name) {
		tag = `"` + name + `"`
	}
	t.out.WriteString("__jsx(")
	t.out.WriteString(tag)
	t.out.WriteString(", ")

	selfClosing, closed := t.props()
	if !closed {
		// Ran out of input mid-tag: close the call and give up.
		t.out.WriteByte(')')
		return
	}
	if selfClosing {
		t.out.WriteByte(')')
		return
	}
	t.children(name)
	t.out.WriteByte(')')
}

// readTagName reads an element name: identifiers with dots for member
// components and dashes for custom elements.
func (t *jsxTranslator) readTagName() string {
	start := t.i
	for t.i < len(t.src) {
		c := t.src[t.i]
		if isIdentChar(c) || c == '.' || c == '-' {
			t.i++
			continue
		}
		break
	}
	return string(t.src[start:t.i])
}

// isLowerTag reports whether a tag name is an intrinsic element (emitted
// as a string literal) rather than a component reference.
func isLowerTag(name string) bool {
	c := name[0]
	return (c >= 'a' && c <= 'z') || strings.Contains(name, "-")
}

// props parses the attribute region up to '>' or '/>'. It emits either a
// props object or null as the second __jsx argument, echoing every
// newline it crosses. Returns selfClosing and whether the tag was closed
// before end of input.
func (t *jsxTranslator) props() (selfClosing, closed bool) {
	open := false

	closeProps := func() {
		if open {
			t.out.WriteByte('}')
		} else {
			t.out.WriteString("null")
		}
	}

	for t.i < len(t.src) {
		c := t.src[t.i]
		switch {
		case c == '\n':
			t.out.WriteByte('\n')
			t.i++
		case c == ' ' || c == '\t' || c == '\r':
			t.i++
		case c == '>':
			t.i++
			closeProps()
			return false, true
		case c == '/' && t.i+1 < len(t.src) && t.src[t.i+1] == '>':
			t.i += 2
			closeProps()
			return true, true
		case c == '{':
			// Spread props: {...expr}
			end := scanBalancedBraces(t.src, t.i)
			inner := t.src[t.i+1 : end]
			if open {
				t.out.WriteString(", ")
			} else {
				t.out.WriteByte('{')
				open = true
			}
			t.out.Write(inner)
			t.i = end + 1
		case isIdentStart(c):
			name := t.readPropName()
			if open {
				t.out.WriteString(", ")
			} else {
				t.out.WriteByte('{')
				open = true
			}
			t.out.WriteString(quotePropName(name))
			t.out.WriteString(": ")
			t.skipHWS()
			if t.i < len(t.src) && t.src[t.i] == '=' {
				t.i++
				t.skipHWS()
				t.propValue()
			} else {
				t.out.WriteString("true")
			}
		default:
			// Stray byte inside a tag; skip it.
			t.i++
		}
	}
	closeProps()
	return false, false
}

func (t *jsxTranslator) readPropName() string {
	start := t.i
	for t.i < len(t.src) {
		c := t.src[t.i]
		if isIdentChar(c) || c == '-' || c == ':' {
			t.i++
			continue
		}
		break
	}
	return string(t.src[start:t.i])
}

func quotePropName(name string) string {
	if strings.ContainsAny(name, "-:") {
		return `"` + name + `"`
	}
	return name
}

// propValue emits a single attribute value: a string literal, or a {…}
// expression wrapped in parentheses.
func (t *jsxTranslator) propValue() {
	if t.i >= len(t.src) {
		t.out.WriteString("true")
		return
	}
	c := t.src[t.i]
	if c == '\'' || c == '"' {
		end := skipString(t.src, t.i)
		t.out.Write(t.src[t.i:end])
		t.i = end
		return
	}
	if c == '{' {
		end := scanBalancedBraces(t.src, t.i)
		inner := t.src[t.i+1 : end]
		sub := &jsxTranslator{src: inner}
		sub.run()
		t.out.WriteByte('(')
		t.out.Write(sub.out.Bytes())
		t.out.WriteByte(')')
		t.i = end + 1
		return
	}
	t.out.WriteString("true")
}

// children translates element children until the matching closing tag.
// Text runs become string-literal arguments; expressions and nested
// elements recurse. closeName "" closes a fragment.
func (t *jsxTranslator) children(closeName string) {
	var text []byte

	flush := func() {
		seg := strings.TrimSpace(string(text))
		text = text[:0]
		if seg == "" {
			return
		}
		t.out.WriteString(", ")
		t.out.WriteString(escapeJSXText(seg))
	}

	for t.i < len(t.src) {
		c := t.src[t.i]

		if c == '\n' {
			flush()
			t.out.WriteByte('\n')
			t.i++
			continue
		}

		if c == '{' {
			flush()
			end := scanBalancedBraces(t.src, t.i)
			inner := t.src[t.i+1 : end]
			sub := &jsxTranslator{src: inner}
			sub.run()
			body := sub.out.Bytes()
			if isBlankExpr(body) {
				// Comment-only expressions stay as comments, not args.
				t.out.Write(body)
			} else {
				t.out.WriteString(", ")
				t.out.Write(body)
			}
			t.i = end + 1
			continue
		}

		if c == '<' {
			flush()
			// Closing tag?
			j := t.i + 1
			for j < len(t.src) && (t.src[j] == ' ' || t.src[j] == '\t') {
				j++
			}
			if j < len(t.src) && t.src[j] == '/' {
				t.consumeClosingTag()
				return
			}
			t.out.WriteString(", ")
			t.element()
			continue
		}

		text = append(text, c)
		t.i++
	}
	flush()
}

// consumeClosingTag consumes `</name>` (or `</>`), echoing any newlines
// inside it. A missing '>' consumes to end of input (malformed source).
func (t *jsxTranslator) consumeClosingTag() {
	for t.i < len(t.src) {
		c := t.src[t.i]
		t.i++
		if c == '\n' {
			t.out.WriteByte('\n')
		}
		if c == '>' {
			return
		}
	}
}

func (t *jsxTranslator) skipHWS() {
	for t.i < len(t.src) && (t.src[t.i] == ' ' || t.src[t.i] == '\t') {
		t.i++
	}
}

// escapeJSXText renders a text run as a double-quoted JS string literal.
func escapeJSXText(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// isBlankExpr reports whether a translated expression body holds only
// whitespace and comments.
func isBlankExpr(body []byte) bool {
	i := 0
	for i < len(body) {
		c := body[i]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			i++
			continue
		}
		if c == '/' && i+1 < len(body) {
			if body[i+1] == '/' {
				nl := bytes.IndexByte(body[i:], '\n')
				if nl < 0 {
					return true
				}
				i += nl
				continue
			}
			if body[i+1] == '*' {
				end := bytes.Index(body[i+2:], []byte("*/"))
				if end < 0 {
					return true
				}
				i += 2 + end + 2
				continue
			}
		}
		return false
	}
	return true
}

// scanBalancedBraces returns the index of the '}' matching the '{' at
// start, accounting for nested braces, strings, and comments. Returns
// the last index when unbalanced.
func scanBalancedBraces(src []byte, start int) int {
	depth := 0
	i := start
	for i < len(src) {
		switch c := src[i]; c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		case '\'', '"', '`':
			i = skipString(src, i) - 1
		case '/':
			if i+1 < len(src) {
				if src[i+1] == '/' {
					nl := bytes.IndexByte(src[i:], '\n')
					if nl < 0 {
						return len(src) - 1
					}
					i += nl
				} else if src[i+1] == '*' {
					end := bytes.Index(src[i+2:], []byte("*/"))
					if end < 0 {
						return len(src) - 1
					}
					i += 2 + end + 1
				}
			}
		}
		i++
	}
	return len(src) - 1
}
