package compile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestNeedsCompile(t *testing.T) {
	tests := []struct {
		path      string
		framework string
		want      bool
	}{
		{"app/App.jsx", "react", true},
		{"app/App.tsx", "preact", true},
		{"app/App.svelte", "svelte", true},
		{"app/App.vue", "vue", true},
		{"app/main.ts", "angular", true},
		{"app/main.ts", "vue", false},
		{"app/main.js", "react", false},
		{"app/style.css", "react", false},
	}

	for _, tt := range tests {
		if got := NeedsCompile(tt.path, tt.framework); got != tt.want {
			t.Errorf("NeedsCompile(%q, %q) = %v, want %v", tt.path, tt.framework, got, tt.want)
		}
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		ext, framework string
		wantTier       tier
		wantKind       string
	}{
		{".jsx", "react", tierNative, "jsx"},
		{".tsx", "preact", tierNative, "jsx"},
		{".jsx", "solid", tierDaemon, "solid"},
		{".tsx", "qwik", tierDaemon, "qwik"},
		{".svelte", "svelte", tierDaemon, "svelte"},
		{".vue", "vue", tierDaemon, "vue"},
		{".ts", "angular", tierDaemon, "angular"},
		{".ts", "react", tierNative, "ts"},
		{".css", "react", tierNone, ""},
	}

	for _, tt := range tests {
		gotTier, gotKind := plan(tt.ext, tt.framework)
		if gotTier != tt.wantTier || gotKind != tt.wantKind {
			t.Errorf("plan(%q, %q) = (%v, %q), want (%v, %q)",
				tt.ext, tt.framework, gotTier, gotKind, tt.wantTier, tt.wantKind)
		}
	}
}

func TestCompile_NativeJSX(t *testing.T) {
	b := NewBroker(t.TempDir(), nil)

	out, err := b.Compile(context.Background(),
		[]byte(`export default () => <div>hey</div>;`),
		"apps/header/App.jsx", "apps/header", "react")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	s := string(out)
	if !strings.Contains(s, `__jsx("div", null, "hey")`) {
		t.Errorf("JSX not translated: %q", s)
	}
	if !strings.Contains(s, "'/@modules/react'") {
		t.Errorf("preamble import not remapped: %q", s)
	}
}

func TestCompile_NativeTS(t *testing.T) {
	b := NewBroker(t.TempDir(), nil)

	out, err := b.Compile(context.Background(),
		[]byte("import { ref } from 'vue';\nconst n: number = 1;\n"),
		"apps/cart/main.ts", "apps/cart", "vue")
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	s := string(out)
	if strings.Contains(s, ": number") {
		t.Errorf("types not erased: %q", s)
	}
	if !strings.Contains(s, "'/@modules/vue'") {
		t.Errorf("bare import not remapped: %q", s)
	}
}

func TestCompile_PathTooLong(t *testing.T) {
	b := NewBroker(t.TempDir(), nil)

	long := strings.Repeat("a", maxPathLen+1)
	_, err := b.Compile(context.Background(), []byte("x"), long, "", "react")
	if !errors.Is(err, ErrPathTooLong) {
		t.Errorf("error = %v, want ErrPathTooLong", err)
	}
}

func TestWriteRequest_Framing(t *testing.T) {
	var buf bytes.Buffer
	err := writeRequest(&buf, "svelte", "apps/nav/Nav.svelte", "", "svelte", []byte("<script></script>"))
	if err != nil {
		t.Fatal(err)
	}

	want := "COMPILE\tsvelte\tapps/nav/Nav.svelte\t\tsvelte\t17\n<script></script>"
	if buf.String() != want {
		t.Errorf("framing = %q, want %q", buf.String(), want)
	}
}

func TestReadResponse_OK(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("OK\t5\nhello"))
	body, err := readResponse(r)
	if err != nil {
		t.Fatalf("readResponse() error = %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("body = %q, want hello", body)
	}
}

func TestReadResponse_Err(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("ERR\tsvelte not installed\n"))
	_, err := readResponse(r)
	if err == nil {
		t.Fatal("readResponse() should fail on ERR")
	}

	var perr protocolError
	if !errors.As(err, &perr) {
		t.Errorf("error type = %T, want protocolError", err)
	}
	if !strings.Contains(err.Error(), "svelte not installed") {
		t.Errorf("error = %v", err)
	}
}

func TestReadResponse_Malformed(t *testing.T) {
	for _, raw := range []string{"OK\tnope\n", "WAT\t1\nx", "OK\t-3\n"} {
		r := bufio.NewReader(strings.NewReader(raw))
		if _, err := readResponse(r); err == nil {
			t.Errorf("readResponse(%q) should fail", raw)
		}

		var perr protocolError
		if err := func() error { _, e := readResponse(bufio.NewReader(strings.NewReader(raw))); return e }(); errors.As(err, &perr) {
			t.Errorf("readResponse(%q) must not look like a protocol ERR", raw)
		}
	}
}
