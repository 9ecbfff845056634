package config

// frameworkColors are the badge colors surfaced in /@wu/apps.json and
// window.__wu_apps.
var frameworkColors = map[string]string{
	"react":    "#61dafb",
	"vue":      "#42b883",
	"angular":  "#dd0031",
	"svelte":   "#ff3e00",
	"solid":    "#2c4f7c",
	"preact":   "#673ab8",
	"lit":      "#324fff",
	"astro":    "#ff5d01",
	"qwik":     "#ac7ef4",
	"stencil":  "#4c48ff",
	"alpine":   "#8bc0d0",
	"htmx":     "#3366cc",
	"stimulus": "#77e8b9",
	"vanilla":  "#f7df1e",
}

// FrameworkColor returns the badge color for a framework tag.
func FrameworkColor(framework string) string {
	if c, ok := frameworkColors[framework]; ok {
		return c
	}
	return frameworkColors["vanilla"]
}

// FrameworkExt returns the entry-file extension for a framework tag:
// jsx for the JSX family, ts for Angular, js otherwise.
func FrameworkExt(framework string) string {
	switch framework {
	case "react", "preact", "solid", "qwik":
		return "jsx"
	case "angular":
		return "ts"
	default:
		return "js"
	}
}
