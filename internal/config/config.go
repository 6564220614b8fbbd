package config

import (
	"collectioninject/internal/collection"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// ErrNoCollections is returned by Validate when the manifest lists nothing to register.
var ErrNoCollections = errors.New("config: no collections configured")

// DefaultPath is the manifest looked up when no --config flag is given.
const DefaultPath = "inject.yaml"

// Config holds the injector manifest.
type Config struct {
	// Project layout
	Project ProjectConfig `yaml:"project" toml:"project"`

	// Collections to register, applied as one batch
	Collections []CollectionConfig `yaml:"collections" toml:"collections"`

	// Logging
	Logging LoggingConfig `yaml:"logging" toml:"logging"`

	// Watch mode
	Watch WatchConfig `yaml:"watch" toml:"watch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:            ".",
			SrcDir:          "src",
			OrganizeImports: true,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Watch: WatchConfig{
			Debounce: "300ms",
		},
	}
}

// Load loads configuration from a YAML or TOML file, chosen by extension.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration in the format matching the path's extension.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(c)
	} else {
		data, err = yaml.Marshal(c)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("INJECT_ROOT"); root != "" {
		c.Project.Root = root
	}
	if src := os.Getenv("INJECT_SRC_DIR"); src != "" {
		c.Project.SrcDir = src
	}
	if debug := os.Getenv("INJECT_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
	if level := os.Getenv("INJECT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Project.Root == "" {
		return fmt.Errorf("project root not configured (set project.root or INJECT_ROOT)")
	}
	if c.Project.SrcDir == "" {
		return fmt.Errorf("source directory not configured (set project.src_dir or INJECT_SRC_DIR)")
	}
	if _, err := c.Watch.GetDebounce(); err != nil {
		return err
	}
	if len(c.Collections) == 0 {
		return ErrNoCollections
	}

	seen := make(map[string]bool, len(c.Collections))
	for i, cc := range c.Collections {
		if err := cc.Request().Validate(); err != nil {
			return fmt.Errorf("collections[%d]: %w", i, err)
		}
		if seen[cc.Name] {
			return fmt.Errorf("collections[%d]: duplicate collection %q", i, cc.Name)
		}
		seen[cc.Name] = true
	}
	return nil
}

// Requests maps every configured collection onto an injector request.
func (c *Config) Requests() []collection.Request {
	reqs := make([]collection.Request, 0, len(c.Collections))
	for _, cc := range c.Collections {
		reqs = append(reqs, cc.Request())
	}
	return reqs
}
