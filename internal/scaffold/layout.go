// Package scaffold prepares the filesystem around the content configuration
// module: the source and content directories, an empty config module, and one
// directory per collection optionally seeded from a template directory.
//
// Storage goes through github.com/viant/afs so seeds can be copied recursively
// and every existence check shares one abstraction.
package scaffold

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	afsurl "github.com/viant/afs/url"
)

var (
	// ErrInvalidPath is returned for an empty seed path.
	ErrInvalidPath = errors.New("scaffold: invalid path")
	// ErrPathNotFound is returned when a resolved seed path does not exist.
	ErrPathNotFound = errors.New("scaffold: path does not exist")
)

// ContentDirName is the directory under the source dir holding collections.
const ContentDirName = "content"

// configNames are the accepted config module file names, in lookup order.
var configNames = []string{"config.ts", "config.mts", "config.mjs", "config.js"}

// Layout locates the project's content tree.
type Layout struct {
	Root   string
	SrcDir string
}

// NewLayout returns a layout with absolute paths.
func NewLayout(root, srcDir string) (Layout, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}
	if srcDir == "" {
		srcDir = "src"
	}
	return Layout{Root: abs, SrcDir: srcDir}, nil
}

// SrcPath is <root>/<srcDir>.
func (l Layout) SrcPath() string {
	if filepath.IsAbs(l.SrcDir) {
		return l.SrcDir
	}
	return filepath.Join(l.Root, l.SrcDir)
}

// ContentDir is <root>/<srcDir>/content.
func (l Layout) ContentDir() string {
	return filepath.Join(l.SrcPath(), ContentDirName)
}

// ConfigPath is the default config module path, <root>/<srcDir>/content/config.ts.
func (l Layout) ConfigPath() string {
	return filepath.Join(l.ContentDir(), configNames[0])
}

// CollectionDir is <root>/<srcDir>/content/<name>.
func (l Layout) CollectionDir(name string) string {
	return filepath.Join(l.ContentDir(), name)
}

// FindConfig returns the first existing config module, falling back to
// ConfigPath when none exists yet.
func (l Layout) FindConfig(ctx context.Context, fs afs.Service) (string, bool, error) {
	for _, name := range configNames {
		candidate := filepath.Join(l.ContentDir(), name)
		ok, err := fs.Exists(ctx, candidate)
		if err != nil {
			return "", false, fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		if ok {
			return candidate, true, nil
		}
	}
	return l.ConfigPath(), false, nil
}

// ResolveDir turns a user-supplied seed location into an existing directory.
// file: URLs are converted to paths, relative paths resolve against base, and
// a path with an extension is taken to name a file whose parent is used.
func ResolveDir(ctx context.Context, fs afs.Service, base, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}

	if strings.HasPrefix(p, "file:") {
		converted, err := fileURLToPath(p)
		if err != nil {
			return "", fmt.Errorf("%w: %q: %v", ErrInvalidPath, p, err)
		}
		p = converted
	}

	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	p = filepath.Clean(p)

	if filepath.Ext(p) != "" {
		p = filepath.Dir(p)
	}

	ok, err := fs.Exists(ctx, p)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrPathNotFound, p)
	}
	return p, nil
}

func fileURLToPath(u string) (string, error) {
	if strings.HasPrefix(u, "file://") {
		u = afsurl.Path(u)
	} else {
		u = strings.TrimPrefix(u, "file:")
	}
	return url.PathUnescape(u)
}
