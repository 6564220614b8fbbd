package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// ProjectConfig locates the site being edited.
type ProjectConfig struct {
	// Root is the project directory. Relative roots resolve against the manifest's directory.
	Root string `yaml:"root" toml:"root"`
	// SrcDir holds content/config.ts, relative to Root.
	SrcDir string `yaml:"src_dir" toml:"src_dir"`
	// OrganizeImports runs the import organizer before persisting.
	OrganizeImports bool `yaml:"organize_imports" toml:"organize_imports"`
}

// ResolveRoot returns Root as an absolute path. Relative roots are taken
// relative to the directory holding manifestPath.
func (p ProjectConfig) ResolveRoot(manifestPath string) (string, error) {
	root := p.Root
	if root == "" {
		root = "."
	}
	if !filepath.IsAbs(root) && manifestPath != "" {
		root = filepath.Join(filepath.Dir(manifestPath), root)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project root %q: %w", p.Root, err)
	}
	return abs, nil
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce delays a re-run until the manifest has been quiet this long.
	Debounce string `yaml:"debounce" toml:"debounce"`
}

// GetDebounce returns the debounce window as a duration.
func (w WatchConfig) GetDebounce() (time.Duration, error) {
	if w.Debounce == "" {
		return 300 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(w.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.debounce %q: %w", w.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid watch.debounce %q: negative", w.Debounce)
	}
	return d, nil
}
