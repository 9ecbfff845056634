package httpx

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParse_Simple(t *testing.T) {
	buf := []byte("GET /index.html HTTP/1.1\r\nHost: localhost\r\n\r\n")
	var req Request
	if err := Parse(buf, &req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if string(req.Method) != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	if string(req.Path) != "/index.html" {
		t.Errorf("Path = %q, want /index.html", req.Path)
	}
	if req.Query != nil {
		t.Errorf("Query = %q, want nil", req.Query)
	}
	if string(req.Version) != "HTTP/1.1" {
		t.Errorf("Version = %q, want HTTP/1.1", req.Version)
	}
	if got := req.HeaderValue("host"); string(got) != "localhost" {
		t.Errorf("HeaderValue(host) = %q, want localhost", got)
	}
}

func TestParse_Query(t *testing.T) {
	buf := []byte("GET /style.css?import HTTP/1.1\r\n\r\n")
	var req Request
	if err := Parse(buf, &req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if string(req.Path) != "/style.css" {
		t.Errorf("Path = %q, want /style.css", req.Path)
	}
	if string(req.Query) != "import" {
		t.Errorf("Query = %q, want import", req.Query)
	}
}

// Slices returned by Parse must alias the input buffer byte-for-byte.
func TestParse_ZeroCopy(t *testing.T) {
	raw := "POST /@modules/react?t=7 HTTP/1.1\r\nContent-Type:  application/json \r\nX-Custom:\tvalue\r\n\r\nbody"
	buf := []byte(raw)
	var req Request
	if err := Parse(buf, &req); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	for _, part := range [][]byte{req.Method, req.Path, req.Query, req.Version, req.Body} {
		if len(part) == 0 {
			continue
		}
		if !aliases(buf, part) {
			t.Errorf("slice %q does not alias the input buffer", part)
		}
	}
	for _, h := range req.Headers {
		if !aliases(buf, h.Name) || !aliases(buf, h.Value) {
			t.Errorf("header %q: %q does not alias the input buffer", h.Name, h.Value)
		}
		if !bytes.Contains(buf, h.Name) || !bytes.Contains(buf, h.Value) {
			t.Errorf("header contents mutated: %q: %q", h.Name, h.Value)
		}
	}

	if got := req.HeaderValue("content-type"); string(got) != "application/json" {
		t.Errorf("trimmed value = %q, want application/json", got)
	}
	if got := req.HeaderValue("X-CUSTOM"); string(got) != "value" {
		t.Errorf("tab-trimmed value = %q, want value", got)
	}
	if string(req.Body) != "body" {
		t.Errorf("Body = %q, want body", req.Body)
	}
}

// aliases reports whether part is a subslice of buf, by comparing the
// address of part's first element against every occurrence of its contents
// in buf. This keeps the test honest about zero-copy without unsafe.
func aliases(buf, part []byte) bool {
	if len(part) == 0 {
		return true
	}
	for off := 0; ; {
		idx := bytes.Index(buf[off:], part)
		if idx < 0 {
			return false
		}
		if &buf[off+idx] == &part[0] {
			return true
		}
		off += idx + 1
	}
}

func TestParse_Methods(t *testing.T) {
	for _, m := range []string{"GET", "HEAD", "POST", "PUT", "DELETE", "CONNECT", "OPTIONS", "TRACE", "PATCH"} {
		buf := []byte(m + " / HTTP/1.1\r\n\r\n")
		var req Request
		if err := Parse(buf, &req); err != nil {
			t.Errorf("Parse(%s) error = %v", m, err)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"unknown method", "BREW / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"lowercase method", "get / HTTP/1.1\r\n\r\n", ErrInvalidMethod},
		{"empty path", "GET  HTTP/1.1\r\n\r\n", ErrInvalidPath},
		{"bad version", "GET / HTTP/2.0\r\n\r\n", ErrInvalidVersion},
		{"garbage version", "GET / banana\r\n\r\n", ErrInvalidVersion},
		{"header no colon", "GET / HTTP/1.1\r\nNoColonHere\r\n\r\n", ErrInvalidHeader},
		{"truncated", "GET / HT", ErrIncomplete},
		{"no final crlf", "GET / HTTP/1.1\r\nHost: x\r\n", ErrIncomplete},
		{"empty", "", ErrIncomplete},
	}

	for _, tt := range tests {
		var req Request
		err := Parse([]byte(tt.raw), &req)
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: Parse() error = %v, want %v", tt.name, err, tt.want)
		}
	}
}

func TestParse_TooManyHeaders(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < MaxHeaders+1; i++ {
		sb.WriteString("X-H: v\r\n")
	}
	sb.WriteString("\r\n")

	var req Request
	if err := Parse([]byte(sb.String()), &req); !errors.Is(err, ErrTooManyHeaders) {
		t.Errorf("Parse() error = %v, want ErrTooManyHeaders", err)
	}
}

func TestParse_HeaderLimit(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i < MaxHeaders; i++ {
		sb.WriteString("X-H: v\r\n")
	}
	sb.WriteString("\r\n")

	var req Request
	if err := Parse([]byte(sb.String()), &req); err != nil {
		t.Errorf("Parse() with exactly %d headers error = %v", MaxHeaders, err)
	}
	if len(req.Headers) != MaxHeaders {
		t.Errorf("len(Headers) = %d, want %d", len(req.Headers), MaxHeaders)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".html", "text/html; charset=utf-8"},
		{".ts", "text/javascript; charset=utf-8"},
		{".tsx", "text/javascript; charset=utf-8"},
		{".mjs", "text/javascript; charset=utf-8"},
		{".css", "text/css; charset=utf-8"},
		{".wasm", "application/wasm"},
		{".woff2", "font/woff2"},
		{".avif", "image/avif"},
		{".zzz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := ContentType(tt.ext); got != tt.want {
			t.Errorf("ContentType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}
