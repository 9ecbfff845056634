package transform

import "bytes"

// featureFlags is the whole-token substitution table applied to served
// module bodies. Bundler-style defines that third-party packages expect
// at build time get their development values here.
var featureFlags = []struct {
	token       string
	replacement string
}{
	{"process.env.NODE_ENV", `"development"`},
	{"__VUE_OPTIONS_API__", "true"},
	{"__VUE_PROD_DEVTOOLS__", "false"},
	{"__VUE_PROD_HYDRATION_MISMATCH_DETAILS__", "false"},
}

// SubstituteFlags replaces feature-flag tokens with their development
// values. Tokens are matched at word boundaries only, never inside longer
// identifiers or member chains.
func SubstituteFlags(src []byte) []byte {
	out := src
	for _, f := range featureFlags {
		out = substituteToken(out, f.token, f.replacement)
	}
	if len(out) > 0 && len(src) > 0 && &out[0] == &src[0] {
		out = append([]byte(nil), src...)
	}
	return out
}

func substituteToken(src []byte, token, replacement string) []byte {
	tok := []byte(token)
	idx := bytes.Index(src, tok)
	if idx < 0 {
		return src
	}

	var out bytes.Buffer
	out.Grow(len(src))
	pos := 0
	for idx >= 0 {
		abs := pos + idx
		if wholeToken(src, abs, len(tok)) {
			out.Write(src[pos:abs])
			out.WriteString(replacement)
			pos = abs + len(tok)
		} else {
			out.Write(src[pos : abs+len(tok)])
			pos = abs + len(tok)
		}
		idx = bytes.Index(src[pos:], tok)
	}
	out.Write(src[pos:])
	return out.Bytes()
}

// wholeToken reports whether the match at off is not embedded in a larger
// identifier or member expression.
func wholeToken(src []byte, off, n int) bool {
	if off > 0 {
		prev := src[off-1]
		if isIdentChar(prev) || prev == '.' {
			return false
		}
	}
	if off+n < len(src) {
		next := src[off+n]
		if isIdentChar(next) {
			return false
		}
	}
	return true
}
