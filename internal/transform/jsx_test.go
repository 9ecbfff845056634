package transform

import (
	"bytes"
	"strings"
	"testing"
)

func TestTranslateJSX_SimpleElement(t *testing.T) {
	src := []byte(`const el = <div className="box">Hi</div>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx("div", {className: "box"}, "Hi");`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_SelfClosing(t *testing.T) {
	src := []byte(`const el = <br/>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx("br", null);`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_Component(t *testing.T) {
	src := []byte(`return <App title={name} active/>;`)
	got := string(TranslateJSX(src))
	want := `return __jsx(App, {title: (name), active: true});`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_SpreadProps(t *testing.T) {
	src := []byte(`const el = <Widget {...rest} id="w"/>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx(Widget, {...rest, id: "w"});`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_Fragment(t *testing.T) {
	src := []byte(`const el = <>a<b/></>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx(__Fragment, null, "a", __jsx("b", null));`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_NestedChildren(t *testing.T) {
	src := []byte(`const el = <ul>{items.map(i => <li key={i}>{i}</li>)}</ul>;`)
	got := string(TranslateJSX(src))

	if !strings.Contains(got, `__jsx("ul", null, `) {
		t.Errorf("outer element wrong: %q", got)
	}
	if !strings.Contains(got, `items.map(i => __jsx("li", {key: (i)}, i))`) {
		t.Errorf("nested map body wrong: %q", got)
	}
}

func TestTranslateJSX_MemberComponent(t *testing.T) {
	src := []byte(`const el = <UI.Button/>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx(UI.Button, null);`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_CustomElement(t *testing.T) {
	src := []byte(`const el = <my-widget/>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx("my-widget", null);`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

func TestTranslateJSX_DashedProp(t *testing.T) {
	src := []byte(`const el = <div data-id="7"/>;`)
	got := string(TranslateJSX(src))
	want := `const el = __jsx("div", {"data-id": "7"});`
	if got != want {
		t.Errorf("TranslateJSX() = %q, want %q", got, want)
	}
}

// Input free of '<' in expression position passes through unchanged.
func TestTranslateJSX_IdempotentOnPlainJS(t *testing.T) {
	inputs := []string{
		`const a = 1 < 2;`,
		"function f(x) { return x > 1 && x < 10; }",
		"const s = 'keep <div> as text';\nconst t = `tpl <b>${1+1}</b>`;",
		"// comment with <jsx>\n/* block <here> */\nlet ok = true;",
		"for (let i = 0; i < n; i++) { total += i; }",
	}
	for _, in := range inputs {
		got := TranslateJSX([]byte(in))
		if !bytes.Equal(got, []byte(in)) {
			t.Errorf("plain JS changed:\n in: %q\nout: %q", in, got)
		}
	}
}

func TestTranslateJSX_GenericsNotJSX(t *testing.T) {
	inputs := []string{
		`const f = <T,>(x) => x;`,
		`const g = <T extends object>(x) => x;`,
		`const h = <T = string>(x) => x;`,
	}
	for _, in := range inputs {
		got := TranslateJSX([]byte(in))
		if bytes.Contains(got, []byte("__jsx")) {
			t.Errorf("generic parsed as JSX:\n in: %q\nout: %q", in, got)
		}
	}
}

func TestTranslateJSX_LinePreservation(t *testing.T) {
	src := []byte("const el = (\n  <div>\n    text\n  </div>\n);\n")
	out := TranslateJSX(src)
	if countLines(out) != countLines(src) {
		t.Errorf("line count changed: got %d, want %d\nout: %q",
			countLines(out), countLines(src), out)
	}
}

func TestTranslateJSX_TemplateInterpolation(t *testing.T) {
	src := []byte("const html = `wrap ${flag && <b>on</b>} done`;")
	got := string(TranslateJSX(src))
	if !strings.Contains(got, `flag && __jsx("b", null, "on")`) {
		t.Errorf("JSX inside interpolation missed: %q", got)
	}
	if !strings.Contains(got, "`wrap ${") || !strings.Contains(got, "} done`") {
		t.Errorf("template text mangled: %q", got)
	}
}

func TestTranslateJSX_TextEscaping(t *testing.T) {
	src := []byte(`const el = <p>say "hi"	now</p>;`)
	got := string(TranslateJSX(src))
	if !strings.Contains(got, `"say \"hi\"\tnow"`) {
		t.Errorf("escaping wrong: %q", got)
	}
}

func TestTranslateJSX_MalformedBestEffort(t *testing.T) {
	src := []byte(`const el = <div>never closed`)
	got := string(TranslateJSX(src))
	if !strings.HasSuffix(got, ")") {
		t.Errorf("best-effort emission should close the call: %q", got)
	}
	if !strings.Contains(got, `__jsx("div", null`) {
		t.Errorf("open emission missing: %q", got)
	}
}

func TestCompileJSX_Preambles(t *testing.T) {
	src := []byte(`export default () => <div/>;`)

	react := string(CompileJSX(src, "react", false))
	if !strings.HasPrefix(react, "import { createElement as __jsx, Fragment as __Fragment } from 'react';") {
		t.Errorf("react preamble missing: %q", react)
	}

	preact := string(CompileJSX(src, "preact", false))
	if !strings.HasPrefix(preact, "import { h as __jsx, Fragment as __Fragment } from 'preact';") {
		t.Errorf("preact preamble missing: %q", preact)
	}

	if countLines([]byte(react)) != countLines(src) {
		t.Errorf("preamble must not add lines: %d vs %d", countLines([]byte(react)), countLines(src))
	}
}

func TestCompileJSX_TSX(t *testing.T) {
	src := []byte("const n: number = 1;\nexport const El = () => <span>{n}</span>;\n")
	out := string(CompileJSX(src, "react", true))

	if strings.Contains(out, ": number") {
		t.Errorf("TSX should be type-erased first: %q", out)
	}
	if !strings.Contains(out, `__jsx("span", null, n)`) {
		t.Errorf("JSX translation missing: %q", out)
	}
}
