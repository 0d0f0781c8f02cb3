// SPDX-License-Identifier: GPL-3.0-only

// Package config loads the viewer configuration and persisted state.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/herokl/k8s-log-viewer/pkg/highlight"
	"github.com/herokl/k8s-log-viewer/pkg/session"
	"github.com/herokl/k8s-log-viewer/pkg/ty"
)

// Sentinel errors so callers can detect exact failure modes using errors.Is().
var (
	ErrConfigParse       = errors.New("invalid config content")
	ErrInvalidValue      = errors.New("invalid config value")
	ErrMissingShell      = errors.New("no shell interpreter configured or found")
	ErrMissingKubeconfig = errors.New("no kubeconfig configured or found")
)

const (
	// EnvConfigPath is the environment variable used to override the config path
	EnvConfigPath = "K8SLOGVIEWER_CONFIG"

	// DefaultConfigDir is the directory under the user's home holding the
	// config and state files.
	DefaultConfigDir = ".k8slogviewer"

	// DefaultConfigFile is the config filename to look for in the default dir.
	DefaultConfigFile = "config.yaml"

	// DefaultDebounce is the search debounce used when none is configured.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultMaxBufferBytes bounds the viewed log when none is configured,
	// roughly ten thousand typical log lines.
	DefaultMaxBufferBytes = 8 << 20
)

// gitBashPath is where Git for Windows installs bash by default.
const gitBashPath = `C:\Program Files\Git\bin\bash.exe`

// Config is the viewer configuration file.
type Config struct {
	ShellPath      string `json:"shellPath,omitempty" yaml:"shellPath,omitempty"`
	KubeconfigPath string `json:"kubeconfigPath,omitempty" yaml:"kubeconfigPath,omitempty"`
	KubectlPath    string `json:"kubectlPath,omitempty" yaml:"kubectlPath,omitempty"`
	// CommandTemplate replaces the built-in fetch command template.
	CommandTemplate string `json:"commandTemplate,omitempty" yaml:"commandTemplate,omitempty"`

	Defaults Defaults         `json:"defaults,omitempty" yaml:"defaults,omitempty"`
	Styles   map[string]Style `json:"styles,omitempty" yaml:"styles,omitempty"`

	// Path is the file the config was read from, empty for built-in defaults.
	Path string `json:"-" yaml:"-"`
}

// Defaults seed the query of every new session.
type Defaults struct {
	TailLines      ty.Opt[int]    `json:"tailLines,omitempty" yaml:"tailLines,omitempty"`
	ContextLines   ty.Opt[int]    `json:"contextLines,omitempty" yaml:"contextLines,omitempty"`
	Follow         ty.Opt[bool]   `json:"follow,omitempty" yaml:"follow,omitempty"`
	SearchRunning  ty.Opt[bool]   `json:"searchRunning,omitempty" yaml:"searchRunning,omitempty"`
	Debounce       ty.Opt[string] `json:"debounce,omitempty" yaml:"debounce,omitempty"`
	MatchMode      ty.Opt[string] `json:"matchMode,omitempty" yaml:"matchMode,omitempty"`
	MaxBufferBytes ty.Opt[int]    `json:"maxBufferBytes,omitempty" yaml:"maxBufferBytes,omitempty"`
}

// Style colors one highlight tag. Colors are names ("red"), ANSI numbers
// ("9") or hex ("#ff5f87").
type Style struct {
	Foreground string `json:"foreground,omitempty" yaml:"foreground,omitempty"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
	Bold       bool   `json:"bold,omitempty" yaml:"bold,omitempty"`
	Underline  bool   `json:"underline,omitempty" yaml:"underline,omitempty"`
}

// ResolvePath returns the config file to read: configPath when set, then
// $K8SLOGVIEWER_CONFIG, then ~/.k8slogviewer/config.yaml. explicit is false
// when the path is the default location, which may not exist.
func ResolvePath(configPath string) (path string, explicit bool) {
	if p := strings.TrimSpace(configPath); p != "" {
		return p, true
	}
	if envPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); envPath != "" {
		return envPath, true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), false
}

// Load reads the config file and fills unset environment values by
// detection. A missing file at the default location yields the built-in
// defaults; a missing explicit file is an error.
func Load(configPath string) (*Config, error) {
	path, explicit := ResolvePath(configPath)

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
			cfg.Path = path
		case os.IsNotExist(err) && !explicit:
		case os.IsNotExist(err):
			return nil, fmt.Errorf("config file not found at path: %s", path)
		default:
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg.Detect()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parsing JSON %s: %v", ErrConfigParse, path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("%w: parsing YAML %s: %v", ErrConfigParse, path, err)
		}
	default:
		// Try JSON then YAML as a fallback
		if err := json.Unmarshal(data, cfg); err == nil {
			return nil
		}
		if err := yaml.Unmarshal(data, cfg); err == nil {
			return nil
		}
		return fmt.Errorf("%w: unsupported or invalid config format for file: %s", ErrConfigParse, path)
	}
	return nil
}

// Detect fills empty environment values from the host.
func (c *Config) Detect() {
	if c.ShellPath == "" {
		c.ShellPath = DetectShell()
	}
	if c.KubeconfigPath == "" {
		c.KubeconfigPath = DetectKubeconfig()
	}
	if c.KubectlPath == "" {
		c.KubectlPath = "kubectl"
	}
}

// Validate checks the values that do not depend on the host.
func (c *Config) Validate() error {
	var problems []string
	d := c.Defaults
	if v, ok := d.TailLines.Get(); ok && v < 0 {
		problems = append(problems, fmt.Sprintf("defaults.tailLines must be >= 0, got %d", v))
	}
	if v, ok := d.ContextLines.Get(); ok && v < 0 {
		problems = append(problems, fmt.Sprintf("defaults.contextLines must be >= 0, got %d", v))
	}
	if v, ok := d.MaxBufferBytes.Get(); ok && v < 0 {
		problems = append(problems, fmt.Sprintf("defaults.maxBufferBytes must be >= 0, got %d", v))
	}
	if v, ok := d.Debounce.Get(); ok {
		if dur, err := time.ParseDuration(v); err != nil || dur < 0 {
			problems = append(problems, fmt.Sprintf("defaults.debounce %q is not a duration", v))
		}
	}
	if v, ok := d.MatchMode.Get(); ok {
		if _, err := highlight.ParseMatchMode(v); err != nil {
			problems = append(problems, "defaults."+err.Error())
		}
	}
	for tag := range c.Styles {
		switch highlight.Tag(tag) {
		case highlight.TagBase, highlight.TagLog, highlight.TagSearch, highlight.TagSelected:
		default:
			problems = append(problems, fmt.Sprintf("styles: unknown tag %q", tag))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w:\n  %s", ErrInvalidValue, strings.Join(problems, "\n  "))
	}
	return nil
}

// Query returns the default session query with the configured defaults applied.
func (c *Config) Query() session.Query {
	q := session.DefaultQuery()
	d := c.Defaults
	q.TailLines = d.TailLines.Or(q.TailLines)
	q.ContextLines = d.ContextLines.Or(q.ContextLines)
	q.Follow = d.Follow.Or(q.Follow)
	q.SearchRunning = d.SearchRunning.Or(q.SearchRunning)
	if mode, err := highlight.ParseMatchMode(d.MatchMode.Or("")); err == nil {
		q.MatchMode = mode
	}
	return q
}

// DebounceDelay returns the configured search debounce.
func (c *Config) DebounceDelay() time.Duration {
	if dur, err := time.ParseDuration(c.Defaults.Debounce.Or("")); err == nil {
		return dur
	}
	return DefaultDebounce
}

// MaxBufferBytes returns the buffer bound. An explicit 0 means unbounded.
func (c *Config) MaxBufferBytes() int {
	return c.Defaults.MaxBufferBytes.Or(DefaultMaxBufferBytes)
}

// CheckEnvironment reports the first environment value the fetch command
// cannot do without.
func (c *Config) CheckEnvironment() error {
	if c.ShellPath == "" {
		return ErrMissingShell
	}
	if c.KubeconfigPath == "" {
		return ErrMissingKubeconfig
	}
	return nil
}

// DetectShell looks for bash, then sh, on PATH. On Windows it also tries the
// default Git Bash location.
func DetectShell() string {
	if p, err := exec.LookPath("bash"); err == nil {
		return p
	}
	if runtime.GOOS == "windows" {
		if _, err := os.Stat(gitBashPath); err == nil {
			return gitBashPath
		}
		return ""
	}
	if p, err := exec.LookPath("sh"); err == nil {
		return p
	}
	return ""
}

// DetectKubeconfig returns the first existing file of $KUBECONFIG, then
// ~/.kube/config.
func DetectKubeconfig() string {
	for _, p := range filepath.SplitList(os.Getenv("KUBECONFIG")) {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".kube", "config")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Save writes cfg as YAML to path, creating the directory when needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
