// Package config loads and persists the shell configuration file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	semver "github.com/Masterminds/semver/v3"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	nserrors "github.com/nushape/nushape/internal/errors"
)

// SchemaVersion is written to new config files
const SchemaVersion = "1.0.0"

// supportedSchema is the range of config versions this build understands
const supportedSchema = "^1"

const (
	defaultHistoryLimit = 1000
	defaultPrompt       = "> "
)

// Config is the on-disk configuration
type Config struct {
	Version      string   `yaml:"version,omitempty"`
	Startup      []string `yaml:"startup,omitempty"`
	HistoryFile  string   `yaml:"history_file,omitempty"`
	HistoryLimit int      `yaml:"history_limit,omitempty"`
	Prompt       string   `yaml:"prompt,omitempty"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Version:      SchemaVersion,
		HistoryLimit: defaultHistoryLimit,
		Prompt:       defaultPrompt,
	}
}

func (c *Config) clone() *Config {
	out := *c
	out.Startup = append([]string(nil), c.Startup...)
	return &out
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = SchemaVersion
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	if c.Prompt == "" {
		c.Prompt = defaultPrompt
	}
}

// CheckVersion rejects configs written for an incompatible schema
func CheckVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return nserrors.ConfigError(fmt.Sprintf("invalid config version %q", version), err)
	}
	c, err := semver.NewConstraint(supportedSchema)
	if err != nil {
		return nserrors.ConfigError("invalid schema constraint", err)
	}
	if !c.Check(v) {
		return nserrors.ConfigError(fmt.Sprintf("config version %s is not supported (want %s)", v, supportedSchema), nil)
	}
	return nil
}

// DefaultPath returns $NUSHAPE_CONFIG or <user config dir>/nushape/config.yaml
func DefaultPath() (string, error) {
	if p := os.Getenv("NUSHAPE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config dir: %w", err)
	}
	return filepath.Join(dir, "nushape", "config.yaml"), nil
}

// Store reads and writes one config file
type Store struct {
	path string
	sf   singleflight.Group
	mu   sync.Mutex
}

// NewStore creates a store for the file at path
func NewStore(path string) *Store {
	return &Store{path: filepath.Clean(path)}
}

// Path returns the config file path
func (s *Store) Path() string { return s.path }

// HistoryPath returns the configured history file, defaulting to a file
// next to the config
func (s *Store) HistoryPath(cfg *Config) string {
	if cfg != nil && cfg.HistoryFile != "" {
		return cfg.HistoryFile
	}
	return filepath.Join(filepath.Dir(s.path), "history.txt")
}

// Load reads the config. Concurrent callers share one read. A missing file
// yields the defaults.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	ch := s.sf.DoChan("load", func() (interface{}, error) {
		return s.read()
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Config).clone(), nil
	}
}

func (s *Store) read() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, nserrors.ConfigError("failed to read config file", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nserrors.ConfigError(fmt.Sprintf("failed to parse %s", s.path), err)
	}
	if err := CheckVersion(cfg.Version); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes cfg atomically while holding the config file lock
func (s *Store) Save(cfg *Config) error {
	return s.withLock(func() error {
		return s.write(cfg)
	})
}

// Update applies fn to the current config and writes the result, all under
// the file lock
func (s *Store) Update(fn func(cfg *Config) error) error {
	return s.withLock(func() error {
		cfg, err := s.read()
		if err != nil {
			return err
		}
		if err := fn(cfg); err != nil {
			return err
		}
		return s.write(cfg)
	})
}

func (s *Store) withLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nserrors.ConfigError("failed to create config dir", err)
	}

	lock, err := os.OpenFile(s.path+".lock", os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nserrors.ConfigError("failed to open config lock", err)
	}
	defer lock.Close()

	if err := lockFile(lock); err != nil {
		return nserrors.ConfigError("failed to lock config", err)
	}
	defer unlockFile(lock)

	return fn()
}

func (s *Store) write(cfg *Config) error {
	out := cfg.clone()
	out.applyDefaults()

	data, err := yaml.Marshal(out)
	if err != nil {
		return nserrors.ConfigError("failed to marshal config", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.yaml")
	if err != nil {
		return nserrors.ConfigError("failed to write config file", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nserrors.ConfigError("failed to write config file", err)
	}
	if err := tmp.Close(); err != nil {
		return nserrors.ConfigError("failed to write config file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return nserrors.ConfigError("failed to replace config file", err)
	}
	return nil
}
