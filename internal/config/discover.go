package config

import (
	"os"
	"path/filepath"
	"strings"
)

// appConfigFiles mark a directory as a buildable app.
var appConfigFiles = []string{
	"vite.config.js",
	"vite.config.ts",
	"vite.config.mjs",
	"astro.config.mjs",
	"astro.config.ts",
}

// frameworkDeps maps a package.json dependency substring to a framework
// tag. Each name is matched in its quoted form, so "react" never matches
// inside "preact". Order matters only when package.json names several of
// these dependencies: the first entry in the table wins.
var frameworkDeps = []struct {
	dep       string
	framework string
}{
	{"@angular/core", "angular"},
	{"preact", "preact"},
	{"solid-js", "solid"},
	{"svelte", "svelte"},
	{"astro", "astro"},
	{"react", "react"},
	{"vue", "vue"},
	{"lit", "lit"},
}

// Discover builds a configuration by scanning the immediate
// subdirectories of root. A directory is an app iff it carries a vite or
// astro config file.
func Discover(root string) (*Config, error) {
	cfg := &Config{configDir: root}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	port := FirstAppPort
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if !isAppDir(dir) {
			continue
		}

		appPort := scanConfiguredPort(dir)
		if appPort == 0 {
			appPort = port
		}
		cfg.Apps = append(cfg.Apps, AppEntry{
			Name:      e.Name(),
			Dir:       e.Name(),
			Framework: inferFramework(dir),
			Port:      appPort,
		})
		port = appPort + 1
	}

	cfg.applyDefaults()
	return cfg, nil
}

func isAppDir(dir string) bool {
	for _, name := range appConfigFiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// inferFramework reads an app's package.json and matches its dependency
// text against the framework table.
func inferFramework(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "vanilla"
	}
	text := string(data)
	for _, fd := range frameworkDeps {
		if strings.Contains(text, `"`+fd.dep+`"`) {
			return fd.framework
		}
	}
	return "vanilla"
}

// scanConfiguredPort pulls `port: NNNN` out of the app's vite or astro
// config with a plain string scan; the config is JavaScript, so a JSON
// parser is of no use here.
func scanConfiguredPort(dir string) int {
	for _, name := range appConfigFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		if p := scanPortText(string(data)); p > 0 {
			return p
		}
	}
	return 0
}

func scanPortText(text string) int {
	idx := strings.Index(text, "port:")
	if idx < 0 {
		return 0
	}
	rest := text[idx+len("port:"):]
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	port := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		port = port*10 + int(rest[i]-'0')
		i++
	}
	if port > 65535 {
		return 0
	}
	return port
}
