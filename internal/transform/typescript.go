package transform

import (
	"bytes"
	"strings"
)

// StripTypes erases TypeScript syntax from source, returning owned bytes.
// Every input newline produces one output newline so downstream line
// numbers stay aligned with the original file.
func StripTypes(src []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(src))

	// skipDepth is the open-brace depth of a removed multi-line
	// declaration. While positive, whole lines are replaced with blanks.
	skipDepth := 0

	lines := splitLinesKeepEnds(src)
	for _, line := range lines {
		body, nl := cutLineEnd(line)

		if skipDepth > 0 {
			skipDepth += braceDelta(body)
			if skipDepth < 0 {
				skipDepth = 0
			}
			out.WriteString(nl)
			continue
		}

		if removeWholeLine(body) {
			skipDepth = braceDelta(body)
			if skipDepth < 0 {
				skipDepth = 0
			}
			out.WriteString(nl)
			continue
		}

		out.WriteString(stripLineTypes(body))
		out.WriteString(nl)
	}

	return out.Bytes()
}

// splitLinesKeepEnds splits src after every '\n', keeping the newline on
// each piece. The final piece may have no newline.
func splitLinesKeepEnds(src []byte) []string {
	s := string(src)
	var lines []string
	for len(s) > 0 {
		idx := strings.IndexByte(s, '\n')
		if idx < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:idx+1])
		s = s[idx+1:]
	}
	return lines
}

// cutLineEnd splits a line into its body and its line terminator
// ("\n", "\r\n", or "").
func cutLineEnd(line string) (body, nl string) {
	if strings.HasSuffix(line, "\r\n") {
		return line[:len(line)-2], "\r\n"
	}
	if strings.HasSuffix(line, "\n") {
		return line[:len(line)-1], "\n"
	}
	return line, ""
}

// removalPrefixes are line starts that delete the whole line.
var removalPrefixes = []string{
	"interface ",
	"export interface ",
	"import type ",
	"export type {",
	"export type *",
	"declare ",
	"export declare ",
	"namespace ",
	"export namespace ",
	"abstract class ",
}

// removeWholeLine reports whether a line is pure type syntax and should be
// dropped entirely.
func removeWholeLine(body string) bool {
	trimmed := strings.TrimSpace(body)
	if trimmed == "};" {
		return true
	}
	for _, p := range removalPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	if isTypeAlias(trimmed) {
		return true
	}
	if isPlainComment(trimmed) {
		return true
	}
	return false
}

// isTypeAlias matches `type Name = …` and `export type Name<…> = …`,
// looking past a generic parameter list for the '='. A lone `type:` object
// property does not match because no '=' follows the name.
func isTypeAlias(trimmed string) bool {
	rest, ok := strings.CutPrefix(trimmed, "export ")
	if !ok {
		rest = trimmed
	}
	rest, ok = strings.CutPrefix(rest, "type ")
	if !ok {
		return false
	}

	i := 0
	for i < len(rest) && isIdentChar(rest[i]) {
		i++
	}
	if i == 0 {
		return false
	}
	// Skip a generic parameter list.
	for i < len(rest) && rest[i] == ' ' {
		i++
	}
	if i < len(rest) && rest[i] == '<' {
		depth := 0
		for ; i < len(rest); i++ {
			switch rest[i] {
			case '<':
				depth++
			case '>':
				depth--
			}
			if depth == 0 {
				i++
				break
			}
		}
	}
	for i < len(rest) && rest[i] == ' ' {
		i++
	}
	return i < len(rest) && rest[i] == '='
}

// isPlainComment reports whether the line is a non-directive line comment.
// `//# sourceMappingURL` and `/// <reference>` directives survive.
func isPlainComment(trimmed string) bool {
	if !strings.HasPrefix(trimmed, "//") {
		return false
	}
	if strings.HasPrefix(trimmed, "//#") || strings.HasPrefix(trimmed, "///") {
		return false
	}
	return true
}

// braceDelta counts net open braces on a line, ignoring braces inside
// string literals and comments.
func braceDelta(body string) int {
	delta := 0
	var quote byte
	inLineComment := false
	for i := 0; i < len(body); i++ {
		c := body[i]
		if inLineComment {
			break
		}
		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '/':
			if i+1 < len(body) && body[i+1] == '/' {
				inLineComment = true
			}
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

// typeModifiers are stripped at word boundaries on kept lines.
var typeModifiers = []string{"public", "private", "protected", "readonly", "override", "abstract"}

// stripLineTypes removes inline type syntax from a kept line. String
// literals and comments pass through verbatim.
func stripLineTypes(body string) string {
	out := make([]byte, 0, len(body))

	// justStripped repairs spacing when a removed type region swallowed
	// the whitespace before an initializer or class-body brace.
	justStripped := false
	emit := func(c byte) {
		if justStripped {
			justStripped = false
			if (c == '=' || c == '{') && len(out) > 0 && out[len(out)-1] != ' ' {
				out = append(out, ' ')
			}
		}
		out = append(out, c)
	}
	emitStr := func(s string) {
		justStripped = false
		out = append(out, s...)
	}

	i := 0
	var quote byte
	for i < len(body) {
		c := body[i]

		// String and template literals: copy verbatim.
		if quote != 0 {
			emit(c)
			if c == '\\' && i+1 < len(body) {
				emit(body[i+1])
				i += 2
				continue
			}
			if c == quote {
				quote = 0
			}
			i++
			continue
		}
		if c == '\'' || c == '"' || c == '`' {
			quote = c
			emit(c)
			i++
			continue
		}

		// Comments: copy the rest of the line or the block verbatim.
		if c == '/' && i+1 < len(body) {
			if body[i+1] == '/' {
				emitStr(body[i:])
				return string(out)
			}
			if body[i+1] == '*' {
				end := strings.Index(body[i+2:], "*/")
				if end < 0 {
					emitStr(body[i:])
					return string(out)
				}
				emitStr(body[i : i+2+end+2])
				i += 2 + end + 2
				continue
			}
		}

		// Access modifiers at word boundaries.
		if isIdentStart(c) && (i == 0 || !isIdentChar(body[i-1])) {
			word := readWord(body, i)
			if isModifier(word) && i+len(word) < len(body) && body[i+len(word)] == ' ' {
				i += len(word) + 1
				continue
			}
			if word == "implements" {
				// Drop the clause up to the class body brace.
				j := i + len(word)
				for j < len(body) && body[j] != '{' {
					j++
				}
				out = trimTrailingSpace(out)
				justStripped = true
				i = j
				continue
			}
			if (word == "as" || word == "satisfies") && castPrecedes(out) {
				out = trimTrailingSpace(out)
				justStripped = true
				i = skipTypeExpr(body, i+len(word))
				continue
			}
		}

		// Annotations `: T` after an identifier, '?', '!', or ')'.
		// An empty region (`default:`, `case x:`) is a label, not an
		// annotation.
		if c == ':' {
			if prev := lastSignificant(out); prev == '?' || prev == '!' || prev == ')' || isIdentChar(prev) {
				end := skipTypeExpr(body, i+1)
				if strings.TrimSpace(body[i+1:end]) != "" {
					justStripped = true
					i = end
					continue
				}
			}
		}

		// Optional and definite-assignment markers directly before ':',
		// ')' or '=' are type syntax (`x?: T`, `y!: T`, `z?)`).
		if c == '?' || c == '!' {
			if isIdentChar(lastSignificant(out)) && nextSignificantIs(body, i+1, ":)=,") {
				i++
				continue
			}
		}

		emit(c)
		i++
	}

	return string(out)
}

func isModifier(word string) bool {
	for _, m := range typeModifiers {
		if word == m {
			return true
		}
	}
	return false
}

func trimTrailingSpace(out []byte) []byte {
	for len(out) > 0 && (out[len(out)-1] == ' ' || out[len(out)-1] == '\t') {
		out = out[:len(out)-1]
	}
	return out
}

// castPrecedes reports whether the emitted output so far ends with
// something a cast may follow: ')', ']', or an identifier.
func castPrecedes(emitted []byte) bool {
	c := lastSignificant(emitted)
	return c == ')' || c == ']' || isIdentChar(c)
}

// lastSignificant returns the last non-space byte of s, or 0.
func lastSignificant(s []byte) byte {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != ' ' && s[i] != '\t' {
			return s[i]
		}
	}
	return 0
}

// nextSignificantIs reports whether the next non-space byte at or after
// pos is one of set.
func nextSignificantIs(s string, pos int, set string) bool {
	for ; pos < len(s); pos++ {
		if s[pos] == ' ' || s[pos] == '\t' {
			continue
		}
		return strings.IndexByte(set, s[pos]) >= 0
	}
	return false
}

// skipTypeExpr advances past a type expression starting at pos. Tracks
// angle-bracket and parenthesis depth; at depth zero it stops before
// ',', ')', ';', '=', '{', '}', or end of line.
func skipTypeExpr(body string, pos int) int {
	depth := 0
	for pos < len(body) {
		switch body[pos] {
		case '<', '(':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ')':
			if depth == 0 {
				return pos
			}
			depth--
		case '=':
			// `=>` inside a function type is part of the type; a bare
			// '=' at depth zero is the initializer that ends it.
			if depth == 0 {
				if pos+1 < len(body) && body[pos+1] == '>' {
					pos += 2
					continue
				}
				return pos
			}
		case ',', ';', '{', '}':
			if depth == 0 {
				return pos
			}
		case '\'', '"':
			// String-literal types skip to their closing quote.
			q := body[pos]
			pos++
			for pos < len(body) && body[pos] != q {
				if body[pos] == '\\' {
					pos++
				}
				pos++
			}
		}
		pos++
	}
	return pos
}

func readWord(s string, pos int) string {
	end := pos
	for end < len(s) && isIdentChar(s[end]) {
		end++
	}
	return s[pos:end]
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
