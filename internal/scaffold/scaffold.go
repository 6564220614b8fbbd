package scaffold

import (
	"bytes"
	"collectioninject/internal/logging"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	afsurl "github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"
)

// Target is one collection directory to ensure. SeedDir, when set, must
// already be resolved with ResolveDir.
type Target struct {
	Collection string
	SeedDir    string
}

// Result reports what Ensure did or, in dry-run mode, would do.
type Result struct {
	ConfigPath    string
	ConfigExists  bool
	CreatedDirs   []string
	CreatedConfig bool
	Seeded        []string
	// SeedFailures maps collection names to the copy error that was tolerated.
	SeedFailures map[string]error
}

// Scaffolder creates missing directories and the config module.
type Scaffolder struct {
	fs     afs.Service
	layout Layout
	dryRun bool
	audit  *logging.AuditLogger

	mu  sync.Mutex
	res *Result
}

// New returns a scaffolder for layout. A nil fs uses afs.New().
func New(fs afs.Service, layout Layout) *Scaffolder {
	if fs == nil {
		fs = afs.New()
	}
	return &Scaffolder{fs: fs, layout: layout}
}

// WithDryRun makes Ensure report without touching storage.
func (s *Scaffolder) WithDryRun(dryRun bool) *Scaffolder {
	s.dryRun = dryRun
	return s
}

// WithAudit records created directories and seed copies under a run.
func (s *Scaffolder) WithAudit(a *logging.AuditLogger) *Scaffolder {
	s.audit = a
	return s
}

// Layout returns the scaffolder's layout.
func (s *Scaffolder) Layout() Layout {
	return s.layout
}

// Ensure creates the source dir, the content dir, an empty config module and
// every target's collection directory. Collection directories are handled
// concurrently. A seed copy failure is logged and recorded; it never fails
// the call.
func (s *Scaffolder) Ensure(ctx context.Context, targets []Target) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryScaffold, "scaffold")
	defer timer.Stop()

	s.res = &Result{SeedFailures: make(map[string]error)}

	for _, dir := range []string{s.layout.SrcPath(), s.layout.ContentDir()} {
		if err := s.ensureDir(ctx, "", dir); err != nil {
			return nil, err
		}
	}

	configPath, exists, err := s.layout.FindConfig(ctx, s.fs)
	if err != nil {
		return nil, err
	}
	s.res.ConfigPath = configPath
	s.res.ConfigExists = exists
	if !exists {
		if err := s.createConfig(ctx, configPath); err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Collection] {
			continue
		}
		seen[t.Collection] = true
		t := t
		g.Go(func() error {
			return s.ensureCollection(gctx, t)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(s.res.CreatedDirs)
	sort.Strings(s.res.Seeded)
	return s.res, nil
}

func (s *Scaffolder) ensureCollection(ctx context.Context, t Target) error {
	dir := s.layout.CollectionDir(t.Collection)
	ok, err := s.fs.Exists(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if ok {
		logging.ScaffoldDebug("collection dir exists: %s", dir)
		return nil
	}

	if err := s.ensureDir(ctx, t.Collection, dir); err != nil {
		return err
	}
	if t.SeedDir == "" {
		return nil
	}

	if err := s.seed(ctx, t.SeedDir, dir); err != nil {
		logging.ScaffoldWarn("Failed to seed '%s' collection from %s: %v", t.Collection, t.SeedDir, err)
		s.record(func(r *Result) { r.SeedFailures[t.Collection] = err })
		if s.audit != nil {
			s.audit.Scaffold(logging.AuditSeedFailed, t.Collection, t.SeedDir, err)
		}
		return nil
	}
	logging.Scaffold("seeded %s from %s", dir, t.SeedDir)
	s.record(func(r *Result) { r.Seeded = append(r.Seeded, t.Collection) })
	if s.audit != nil {
		s.audit.Scaffold(logging.AuditSeedCopy, t.Collection, t.SeedDir, nil)
	}
	return nil
}

// seed copies the children of src into dst.
func (s *Scaffolder) seed(ctx context.Context, src, dst string) error {
	if s.dryRun {
		return nil
	}
	objects, err := s.fs.List(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to list seed %s: %w", src, err)
	}
	for _, object := range objects {
		if sameLocation(object.URL(), src) {
			continue
		}
		target := afsurl.Join(dst, object.Name())
		logging.ScaffoldDebug("copy %s -> %s", object.URL(), target)
		if err := s.fs.Copy(ctx, object.URL(), target); err != nil {
			return fmt.Errorf("failed to copy %s: %w", object.URL(), err)
		}
	}
	return nil
}

// sameLocation reports whether a listed URL is the listed directory itself.
func sameLocation(objectURL, dir string) bool {
	if afsurl.Equals(objectURL, dir) {
		return true
	}
	return strings.TrimSuffix(afsurl.Path(objectURL), "/") == strings.TrimSuffix(dir, "/")
}

func (s *Scaffolder) ensureDir(ctx context.Context, collection, dir string) error {
	ok, err := s.fs.Exists(ctx, dir)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if ok {
		return nil
	}
	if !s.dryRun {
		if err := s.fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			if s.audit != nil {
				s.audit.Scaffold(logging.AuditDirCreate, collection, dir, err)
			}
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	logging.Scaffold("created directory %s", dir)
	s.record(func(r *Result) { r.CreatedDirs = append(r.CreatedDirs, dir) })
	if s.audit != nil {
		s.audit.Scaffold(logging.AuditDirCreate, collection, dir, nil)
	}
	return nil
}

func (s *Scaffolder) createConfig(ctx context.Context, path string) error {
	if !s.dryRun {
		if err := s.fs.Upload(ctx, path, file.DefaultFileOsMode, bytes.NewReader(nil)); err != nil {
			return fmt.Errorf("failed to create config module %s: %w", path, err)
		}
	}
	logging.Scaffold("created empty config module %s", path)
	s.res.CreatedConfig = true
	return nil
}

func (s *Scaffolder) record(fn func(*Result)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.res)
}
