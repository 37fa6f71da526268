package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the repository root
const DefaultFileName = ".repohealth.yaml"

// Environment variables that override the config file
const (
	EnvCommonDir   = "COMMON_DIR"
	EnvOffline     = "OFFLINE"
	EnvGitHubToken = "GITHUB_TOKEN"
	EnvGHToken     = "GH_TOKEN"
)

// Config represents the complete repohealth configuration
type Config struct {
	RepoDir   string       `yaml:"repo_dir"`
	CommonDir string       `yaml:"common_dir"`
	Offline   bool         `yaml:"offline"`
	Readme    string       `yaml:"readme"`
	GitHub    GitHubConfig `yaml:"github"`
	Checks    ChecksConfig `yaml:"checks"`
}

// GitHubConfig configures repository metadata lookups
type GitHubConfig struct {
	Repository string `yaml:"repository"`
	Remote     string `yaml:"remote"`
	TokenFile  string `yaml:"token_file"`
	APIURL     string `yaml:"api_url"`

	token string
}

// ChecksConfig selects which checks run
type ChecksConfig struct {
	Skip []string `yaml:"skip"`
}

// Load reads and parses the configuration file. Without repo_dir the
// repository is the directory holding the file.
func Load(path string) (*Config, error) {
	return LoadFile(path, "")
}

// LoadFile reads and parses the configuration file. Relative paths in the
// file resolve against its directory; repoDir, when set, is used if the
// file has no repo_dir.
func LoadFile(path, repoDir string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative paths in the file are relative to the file itself
	if err := cfg.finish(filepath.Dir(path), repoDir); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOptional loads path if it exists and falls back to Default otherwise
func LoadOptional(path, baseDir string) (*Config, error) {
	if _, err := os.Stat(os.ExpandEnv(path)); errors.Is(err, fs.ErrNotExist) {
		return Default(baseDir)
	}
	return LoadFile(path, baseDir)
}

// Default returns a configuration built only from defaults and the
// environment, with relative paths resolved against baseDir
func Default(baseDir string) (*Config, error) {
	var cfg Config
	if err := cfg.finish(baseDir, ""); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish(baseDir, repoDir string) error {
	// Expand environment variables in string fields
	c.expandEnv()

	// Environment wins over the file
	c.applyEnv()

	// Apply defaults
	if err := c.applyDefaults(baseDir, repoDir); err != nil {
		return err
	}

	// Validate
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.RepoDir = os.ExpandEnv(c.RepoDir)
	c.CommonDir = os.ExpandEnv(c.CommonDir)
	c.Readme = os.ExpandEnv(c.Readme)
	c.GitHub.Repository = os.ExpandEnv(c.GitHub.Repository)
	c.GitHub.TokenFile = os.ExpandEnv(c.GitHub.TokenFile)
	c.GitHub.APIURL = os.ExpandEnv(c.GitHub.APIURL)
}

// applyEnv applies the environment variable overrides
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvCommonDir); v != "" {
		c.CommonDir = v
	}
	if v := os.Getenv(EnvOffline); v != "" {
		c.Offline = truthy(v)
	}
	if v := os.Getenv(EnvGitHubToken); v != "" {
		c.GitHub.token = v
	} else if v := os.Getenv(EnvGHToken); v != "" {
		c.GitHub.token = v
	}
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults(baseDir, repoDir string) error {
	if c.RepoDir == "" {
		c.RepoDir = repoDir
	}
	if c.RepoDir == "" {
		c.RepoDir = "."
	}
	if c.Readme == "" {
		c.Readme = "README.md"
	}
	if c.GitHub.Remote == "" {
		c.GitHub.Remote = "origin"
	}
	if c.CommonDir == "" {
		dir, err := DefaultCommonDir()
		if err != nil {
			return err
		}
		c.CommonDir = dir
	}

	c.RepoDir = absFrom(baseDir, c.RepoDir)
	c.CommonDir = absFrom(baseDir, c.CommonDir)
	if c.GitHub.TokenFile != "" {
		c.GitHub.TokenFile = absFrom(baseDir, c.GitHub.TokenFile)
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.RepoDir == "" {
		return fmt.Errorf("repo_dir is required")
	}
	if c.CommonDir == "" {
		return fmt.Errorf("common_dir is required")
	}
	if c.GitHub.Repository != "" {
		owner, name, ok := strings.Cut(c.GitHub.Repository, "/")
		if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
			return fmt.Errorf("github.repository must be in owner/name form: %s", c.GitHub.Repository)
		}
	}
	for _, name := range c.Checks.Skip {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("checks.skip contains an empty check name")
		}
	}
	return nil
}

// ReadmePath returns the README location inside the repository
func (c *Config) ReadmePath() string {
	if filepath.IsAbs(c.Readme) {
		return c.Readme
	}
	return filepath.Join(c.RepoDir, c.Readme)
}

// Token returns the GitHub token from the environment or the token file.
// An empty token means unauthenticated access.
func (c *Config) Token() (string, error) {
	if c.GitHub.token != "" {
		return c.GitHub.token, nil
	}
	if c.GitHub.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.GitHub.TokenFile)
	if err != nil {
		return "", fmt.Errorf("failed to read GitHub token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Skipped reports whether the named check is disabled
func (c *Config) Skipped(name string) bool {
	for _, s := range c.Checks.Skip {
		if strings.TrimSpace(s) == name {
			return true
		}
	}
	return false
}

// DefaultCommonDir returns the "common" directory next to the executable
func DefaultCommonDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "common"), nil
}

func absFrom(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	if abs, err := filepath.Abs(filepath.Join(baseDir, path)); err == nil {
		return abs
	}
	return filepath.Join(baseDir, path)
}

// truthy treats anything but an explicit false value as enabled
func truthy(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return true
	}
	return b
}
