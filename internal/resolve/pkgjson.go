package resolve

// A brace-depth-aware field extractor for package.json. Only top-level
// keys are needed (exports, module, main, type, imports), package.json
// files are machine-written JSON, and the values are passed around as raw
// regions for further extraction, so a general JSON parser buys nothing
// here.

// Value kinds returned by extractField.
const (
	kindString byte = 's'
	kindObject byte = 'o'
	kindArray  byte = 'a'
	kindScalar byte = 'v'
)

// extractField locates key at object depth 1 of the outermost '{' and
// returns its value region. Strings come back unquoted; objects and
// arrays come back verbatim including their delimiters. Nested keys are
// never matched.
func extractField(data []byte, key string) (string, byte, bool) {
	i := indexByte(data, '{')
	if i < 0 {
		return "", 0, false
	}
	depth := 0

	for i < len(data) {
		switch data[i] {
		case '{', '[':
			depth++
			i++
		case '}', ']':
			depth--
			i++
		case '"':
			s, next, ok := readJSONString(data, i)
			if !ok {
				return "", 0, false
			}
			if depth == 1 {
				j := skipJSONWS(data, next)
				if j < len(data) && data[j] == ':' {
					j = skipJSONWS(data, j+1)
					if s == key {
						return readValueRegion(data, j)
					}
					i = skipValue(data, j)
					continue
				}
			}
			i = next
		default:
			i++
		}
	}
	return "", 0, false
}

// readValueRegion reads the value starting at pos.
func readValueRegion(data []byte, pos int) (string, byte, bool) {
	if pos >= len(data) {
		return "", 0, false
	}
	switch data[pos] {
	case '"':
		s, _, ok := readJSONString(data, pos)
		return s, kindString, ok
	case '{':
		end := skipBalanced(data, pos, '{', '}')
		return string(data[pos:end]), kindObject, true
	case '[':
		end := skipBalanced(data, pos, '[', ']')
		return string(data[pos:end]), kindArray, true
	default:
		end := pos
		for end < len(data) && data[end] != ',' && data[end] != '}' && data[end] != ']' &&
			data[end] != '\n' && data[end] != '\r' {
			end++
		}
		return trimJSONWS(string(data[pos:end])), kindScalar, true
	}
}

// skipValue returns the index just past the value starting at pos.
func skipValue(data []byte, pos int) int {
	if pos >= len(data) {
		return pos
	}
	switch data[pos] {
	case '"':
		_, next, _ := readJSONString(data, pos)
		return next
	case '{':
		return skipBalanced(data, pos, '{', '}')
	case '[':
		return skipBalanced(data, pos, '[', ']')
	default:
		for pos < len(data) && data[pos] != ',' && data[pos] != '}' && data[pos] != ']' {
			pos++
		}
		return pos
	}
}

// skipBalanced returns the index just past the region opened at pos,
// honoring string-literal bodies and their backslash escapes.
func skipBalanced(data []byte, pos int, open, close byte) int {
	depth := 0
	for pos < len(data) {
		switch data[pos] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return pos + 1
			}
		case '"':
			_, next, ok := readJSONString(data, pos)
			if !ok {
				return len(data)
			}
			pos = next
			continue
		}
		pos++
	}
	return pos
}

// readJSONString reads the string literal starting at the '"' under pos,
// returning the unescaped contents and the index just past the closing
// quote.
func readJSONString(data []byte, pos int) (string, int, bool) {
	pos++ // opening quote
	var out []byte
	start := pos
	for pos < len(data) {
		c := data[pos]
		if c == '\\' && pos+1 < len(data) {
			if out == nil {
				out = append(out, data[start:pos]...)
			}
			esc := data[pos+1]
			switch esc {
			case '"', '\\', '/':
				out = append(out, esc)
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, '\\', esc)
			}
			pos += 2
			continue
		}
		if c == '"' {
			if out == nil {
				return string(data[start:pos]), pos + 1, true
			}
			return string(out), pos + 1, true
		}
		if out != nil {
			out = append(out, c)
		}
		pos++
	}
	return "", pos, false
}

func skipJSONWS(data []byte, pos int) int {
	for pos < len(data) {
		switch data[pos] {
		case ' ', '\t', '\n', '\r':
			pos++
		default:
			return pos
		}
	}
	return pos
}

func trimJSONWS(s string) string {
	start := 0
	for start < len(s) && (s[start] == ' ' || s[start] == '\t') {
		start++
	}
	end := len(s)
	for end > start && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[start:end]
}

func indexByte(data []byte, c byte) int {
	for i, b := range data {
		if b == c {
			return i
		}
	}
	return -1
}
