package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/LuisPadre25/wu-cli/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "wu.config.json"

	// DefaultProxyPort is the port the dev server binds by default.
	DefaultProxyPort = 3000

	// DefaultShellPort is the display port recorded for the shell.
	DefaultShellPort = 4321

	// FirstAppPort starts the sequential port assignment during
	// auto-discovery.
	FirstAppPort = 5001
)

// Config is the parsed wu.config.json. Unknown keys are ignored.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Version is the project version.
	Version string `json:"version,omitempty"`

	// Shell is the outer page hosting every micro-app.
	Shell ShellEntry `json:"shell,omitempty"`

	// Apps are the micro-apps served by the dev server, in order.
	Apps []AppEntry `json:"apps,omitempty"`

	// Proxy configures the single serving endpoint.
	Proxy ProxyConfig `json:"proxy,omitempty"`

	// configDir is the project root the config was loaded from.
	configDir string
}

// ShellEntry describes the shell application.
type ShellEntry struct {
	Dir       string `json:"dir,omitempty"`
	Port      int    `json:"port,omitempty"`
	Framework string `json:"framework,omitempty"`
}

// AppEntry describes one micro-app. Port is the app's original
// standalone port, retained for display only.
type AppEntry struct {
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Framework string `json:"framework"`
	Port      int    `json:"port,omitempty"`
}

// ProxyConfig configures the unified endpoint.
type ProxyConfig struct {
	Port        int  `json:"port,omitempty"`
	OpenBrowser bool `json:"open_browser,omitempty"`
}

// Load reads wu.config.json from dir, falling back to auto-discovery
// when the file is absent.
func Load(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Discover(dir)
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse wu.config.json: " + err.Error()).
			WithSuggestion("Check that wu.config.json is valid JSON")
	}

	cfg.configDir = dir
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Dir returns the project root the config belongs to.
func (c *Config) Dir() string {
	return c.configDir
}

// ConfigPath returns the path of the configuration file, whether or not
// it exists.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.configDir, ConfigFileName)
}

// ShellDir returns the absolute path of the shell directory.
func (c *Config) ShellDir() string {
	if filepath.IsAbs(c.Shell.Dir) {
		return c.Shell.Dir
	}
	return filepath.Join(c.configDir, c.Shell.Dir)
}

// AppDir returns the absolute path of an app's directory.
func (c *Config) AppDir(app AppEntry) string {
	if filepath.IsAbs(app.Dir) {
		return app.Dir
	}
	return filepath.Join(c.configDir, app.Dir)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = filepath.Base(c.configDir)
	}
	if c.Shell.Dir == "" {
		c.Shell.Dir = "shell"
	}
	if c.Shell.Port == 0 {
		c.Shell.Port = DefaultShellPort
	}
	if c.Shell.Framework == "" {
		c.Shell.Framework = "vanilla"
	}
	if c.Proxy.Port == 0 {
		c.Proxy.Port = DefaultProxyPort
	}
	port := FirstAppPort
	for i := range c.Apps {
		if c.Apps[i].Name == "" {
			c.Apps[i].Name = filepath.Base(c.Apps[i].Dir)
		}
		if c.Apps[i].Framework == "" {
			c.Apps[i].Framework = "vanilla"
		}
		if c.Apps[i].Port == 0 {
			c.Apps[i].Port = port
		}
		port = c.Apps[i].Port + 1
	}
}

// Validate checks port ranges.
func (c *Config) Validate() error {
	ports := []int{c.Proxy.Port, c.Shell.Port}
	for _, a := range c.Apps {
		ports = append(ports, a.Port)
	}
	for _, p := range ports {
		if p < 0 || p > 65535 {
			return errors.New("E101").WithDetail("Port must be between 0 and 65535")
		}
	}
	return nil
}
