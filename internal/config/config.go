// Package config loads MemoBuild's layered configuration: built-in
// defaults, then an optional YAML file, then environment variable
// overrides. The YAML decode shape follows the teacher's kit manifest
// loader (internal/kit/manifest.go): parseFileConfig unmarshals the file's
// bytes, Load reads the file and layers it over the defaults, and a missing
// file is never an error while malformed YAML is.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/neopilotai/memobuild/internal/buildrr"
)

// Config holds MemoBuild's runtime configuration.
type Config struct {
	// CacheRoot is the local content-addressable cache's root directory.
	CacheRoot string

	// RemoteURL is the base URL of the remote cache server. Empty means
	// no remote tier; the hybrid cache runs local-only.
	RemoteURL string

	// RemoteTimeout is the configured per-request timeout for remote cache
	// HTTP requests. remote.NewClient takes no timeout, so cmd/memobuild
	// does not apply this value to the remote client.
	RemoteTimeout time.Duration

	// IgnoreFile is the path to the ignore-pattern file consulted by the
	// tree hasher. Empty means no ignore rules.
	IgnoreFile string

	// ExtraEnvAllowlist lists additional environment variable names read
	// from the config file. Fingerprint collection does not consult it; the
	// fingerprint captures only the fixed fingerprint.Allowlist.
	ExtraEnvAllowlist []string
}

// fileConfig is the YAML on-disk shape of the optional config file.
type fileConfig struct {
	RemoteURL         string   `yaml:"remote_url,omitempty"`
	RemoteTimeoutMS   int      `yaml:"remote_timeout_ms,omitempty"`
	IgnoreFile        string   `yaml:"ignore_file,omitempty"`
	ExtraEnvAllowlist []string `yaml:"extra_env_allowlist,omitempty"`
}

// Default returns MemoBuild's built-in default configuration, rooted at
// $HOME/.memobuild.
func Default() *Config {
	home, _ := os.UserHomeDir()
	root := filepath.Join(home, ".memobuild")
	return &Config{
		CacheRoot:     filepath.Join(root, "cache"),
		RemoteTimeout: 10 * time.Second,
	}
}

// Load builds the layered configuration: Default(), then path's YAML
// contents if the file exists, then environment variable overrides. path
// may be empty, in which case only defaults and env overrides apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return applyEnvOverrides(cfg), nil
			}
			return nil, buildrr.Storage("read config file", err)
		}
		fc, err := parseFileConfig(data)
		if err != nil {
			return nil, err
		}
		applyFileConfig(cfg, fc)
	}

	return applyEnvOverrides(cfg), nil
}

func parseFileConfig(data []byte) (*fileConfig, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, buildrr.ConstraintViolation("parse config file", err)
	}
	return &fc, nil
}

func applyFileConfig(cfg *Config, fc *fileConfig) {
	if fc.RemoteURL != "" {
		cfg.RemoteURL = fc.RemoteURL
	}
	if fc.RemoteTimeoutMS > 0 {
		cfg.RemoteTimeout = time.Duration(fc.RemoteTimeoutMS) * time.Millisecond
	}
	if fc.IgnoreFile != "" {
		cfg.IgnoreFile = fc.IgnoreFile
	}
	if len(fc.ExtraEnvAllowlist) > 0 {
		cfg.ExtraEnvAllowlist = fc.ExtraEnvAllowlist
	}
}

// applyEnvOverrides layers environment variables over cfg, winning over
// both defaults and the file. HOME itself is consumed by Default() via
// os.UserHomeDir, not here.
func applyEnvOverrides(cfg *Config) *Config {
	if v := os.Getenv("MEMOBUILD_CACHE_ROOT"); v != "" {
		cfg.CacheRoot = v
	}
	if v := os.Getenv("MEMOBUILD_REMOTE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv("MEMOBUILD_IGNORE_FILE"); v != "" {
		cfg.IgnoreFile = v
	}
	return cfg
}

// EnsureCacheRoot creates the cache root directory if it does not exist.
func (c *Config) EnsureCacheRoot() error {
	if err := os.MkdirAll(c.CacheRoot, 0755); err != nil {
		return buildrr.Storage("create cache root", err)
	}
	return nil
}
