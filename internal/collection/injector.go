package collection

import (
	"bytes"
	"collectioninject/internal/diff"
	"collectioninject/internal/logging"
	"collectioninject/internal/scaffold"
	"collectioninject/internal/source"
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/viant/afs"
)

// State is a step of Apply. States are entered in declaration order and
// never revisited.
type State string

const (
	StateScaffoldEnsured        State = "scaffold_ensured"
	StateModuleLoaded           State = "module_loaded"
	StateSchemaImportEnsured    State = "schema_import_ensured"
	StateRegistryBindingEnsured State = "registry_binding_ensured"
	StatePropertyMerged         State = "property_merged"
	StateImportsNormalized      State = "imports_normalized"
	StatePersisted              State = "persisted"
)

// Options configures an Injector.
type Options struct {
	// DryRun computes the result without creating directories or writing
	// the module.
	DryRun bool
	// OrganizeImports prunes, coalesces and sorts imports before persisting.
	OrganizeImports bool
	// FS is the storage used for scaffolding and loading. Nil uses afs.New().
	FS afs.Service
}

// Outcome reports what happened to one request.
type Outcome struct {
	Collection string
	// Local is the identifier the registry entry references.
	Local    string
	Import   source.ImportResult
	Property source.PropertyResult
}

// Result is the report of one Apply.
type Result struct {
	RunID      string
	ConfigPath string
	States     []State
	Scaffold   *scaffold.Result
	Registry   source.RegistryResult
	// DefineLocal is the name defineCollection is referenced by.
	DefineLocal      string
	Collections      []Outcome
	OrganizedImports bool
	// Changed reports whether the printed module differs from what was loaded.
	Changed bool
	// Written is false for unchanged modules and dry runs.
	Written  bool
	Original []byte
	Output   []byte
	Diff     *diff.FileDiff
	Duration time.Duration
}

// Injector applies requests to one project. Apply calls are serialized.
type Injector struct {
	mu     sync.Mutex
	layout scaffold.Layout
	fs     afs.Service
	opts   Options
}

// NewInjector returns an injector for the project described by layout.
func NewInjector(layout scaffold.Layout, opts Options) *Injector {
	fs := opts.FS
	if fs == nil {
		fs = afs.New()
	}
	return &Injector{layout: layout, fs: fs, opts: opts}
}

// Layout returns the project layout the injector edits.
func (inj *Injector) Layout() scaffold.Layout {
	return inj.layout
}

// run carries the state of one Apply.
type run struct {
	inj    *Injector
	reqs   []Request
	res    *Result
	audit  *logging.AuditLogger
	module *source.Module
	seeds  map[string]string
	locals []string
}

// Apply registers every request in one pass over the config module. All
// requests are validated and all seed directories resolved before anything
// is touched. The module is loaded once and written at most once.
func (inj *Injector) Apply(ctx context.Context, reqs ...Request) (*Result, error) {
	inj.mu.Lock()
	defer inj.mu.Unlock()

	start := time.Now()
	r := &run{
		inj:   inj,
		reqs:  reqs,
		res:   &Result{RunID: uuid.New().String()},
		seeds: make(map[string]string),
	}
	r.audit = logging.AuditRun(r.res.RunID)

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Collection
	}
	logging.Inject("run %s: %d collection(s) %v dry_run=%v", r.res.RunID, len(reqs), names, inj.opts.DryRun)
	r.audit.RunStart(inj.layout.ConfigPath(), names)

	err := r.execute(ctx)
	r.res.Duration = time.Since(start)
	r.audit.RunEnd(r.res.ConfigPath, r.res.Changed, r.res.Duration, err)
	if err != nil {
		logging.Get(logging.CategoryInject).Error("run %s failed: %v", r.res.RunID, err)
		return nil, err
	}
	logging.Inject("run %s finished in %v: changed=%v written=%v", r.res.RunID, r.res.Duration, r.res.Changed, r.res.Written)
	return r.res, nil
}

func (r *run) execute(ctx context.Context) error {
	if len(r.reqs) == 0 {
		return fmt.Errorf("%w: no collections requested", ErrInvalidRequest)
	}
	for _, req := range r.reqs {
		if err := req.Validate(); err != nil {
			return err
		}
	}
	if err := r.resolveSeeds(ctx); err != nil {
		return err
	}

	steps := []struct {
		state State
		fn    func(context.Context) error
	}{
		{StateScaffoldEnsured, r.ensureScaffold},
		{StateModuleLoaded, r.loadModule},
		{StateSchemaImportEnsured, r.ensureImports},
		{StateRegistryBindingEnsured, r.ensureRegistry},
		{StatePropertyMerged, r.mergeProperties},
		{StateImportsNormalized, r.normalizeImports},
		{StatePersisted, r.persist},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.state, err)
		}
		r.res.States = append(r.res.States, step.state)
		logging.InjectDebug("run %s: %s", r.res.RunID, step.state)
	}
	return nil
}

func (r *run) resolveSeeds(ctx context.Context) error {
	for _, req := range r.reqs {
		if req.SeedDir == "" {
			continue
		}
		dir, err := scaffold.ResolveDir(ctx, r.inj.fs, r.inj.layout.Root, req.SeedDir)
		if err != nil {
			return fmt.Errorf("collection %q: seed: %w", req.Collection, err)
		}
		r.seeds[req.Collection] = dir
	}
	return nil
}

func (r *run) ensureScaffold(ctx context.Context) error {
	targets := make([]scaffold.Target, 0, len(r.reqs))
	for _, req := range r.reqs {
		targets = append(targets, scaffold.Target{Collection: req.Collection, SeedDir: r.seeds[req.Collection]})
	}
	res, err := scaffold.New(r.inj.fs, r.inj.layout).
		WithDryRun(r.inj.opts.DryRun).
		WithAudit(r.audit).
		Ensure(ctx, targets)
	if err != nil {
		return err
	}
	r.res.Scaffold = res
	r.res.ConfigPath = res.ConfigPath
	return nil
}

func (r *run) loadModule(ctx context.Context) error {
	path := r.res.ConfigPath
	var content []byte
	ok, err := r.inj.fs.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if ok {
		content, err = r.inj.fs.DownloadWithURL(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	r.res.Original = content

	m, err := source.Parse(ctx, path, content)
	if err != nil {
		return err
	}
	r.module = m
	return nil
}

func (r *run) ensureImports(ctx context.Context) error {
	m := r.module
	if _, err := m.EnsureImport(source.ImportRequest{Module: AstroModule, Name: ZodName}); err != nil {
		return err
	}
	define, err := m.EnsureImport(source.ImportRequest{Module: AstroModule, Name: DefineFunc})
	if err != nil {
		return err
	}
	r.res.DefineLocal = define.Local

	r.locals = make([]string, len(r.reqs))
	for i, req := range r.reqs {
		imp, err := m.EnsureImport(req.importRequest())
		if err != nil {
			return fmt.Errorf("collection %q: %w", req.Collection, err)
		}
		r.locals[i] = imp.Local
		r.res.Collections = append(r.res.Collections, Outcome{Collection: req.Collection, Local: imp.Local, Import: imp})
		if imp.Changed {
			r.audit.Mutation(logging.AuditImportEnsure, req.Collection, req.Module, imp.Local)
		}
	}
	return nil
}

func (r *run) ensureRegistry(ctx context.Context) error {
	_, res, err := r.module.EnsureRegistry(RegistryName)
	if err != nil {
		return err
	}
	r.res.Registry = res
	if res.Changed() {
		r.audit.Mutation(logging.AuditRegistryRepair, "", RegistryName, fmt.Sprintf("%+v", res))
	}
	return nil
}

func (r *run) mergeProperties(ctx context.Context) error {
	obj, err := r.module.Registry(RegistryName)
	if err != nil {
		return err
	}
	for i, req := range r.reqs {
		spec := req.callSpec(r.res.DefineLocal, r.locals[i])
		pr := obj.EnsureProperty(req.Collection, spec, req.Overwrite)
		r.res.Collections[i].Property = pr
		if pr.Action != source.PropertyKept && pr.Action != source.PropertyUnchanged {
			r.audit.Mutation(logging.AuditPropertyMerge, req.Collection, RegistryName+"."+req.Collection, string(pr.Action))
		}
	}
	return nil
}

func (r *run) normalizeImports(ctx context.Context) error {
	if !r.inj.opts.OrganizeImports {
		return nil
	}
	changed, err := r.module.OrganizeImports(ctx)
	if err != nil {
		return err
	}
	r.res.OrganizedImports = changed
	if changed {
		r.audit.Mutation(logging.AuditImportsOrganize, "", r.res.ConfigPath, "organized")
	}
	return nil
}

func (r *run) persist(ctx context.Context) error {
	out, err := r.module.Bytes()
	if err != nil {
		return err
	}
	r.res.Output = out
	r.res.Changed = !bytes.Equal(out, r.res.Original)
	if !r.res.Changed {
		r.audit.FileOp(logging.AuditFileSkip, r.res.ConfigPath, len(out), nil)
		return nil
	}

	rel, err := filepath.Rel(r.inj.layout.Root, r.res.ConfigPath)
	if err != nil {
		rel = r.res.ConfigPath
	}
	r.res.Diff = diff.Compute(filepath.ToSlash(rel), string(r.res.Original), string(out))

	if r.inj.opts.DryRun {
		logging.InjectDebug("dry run: %s not written", r.res.ConfigPath)
		return nil
	}
	if err := writeAtomic(r.res.ConfigPath, out); err != nil {
		r.audit.FileOp(logging.AuditFileError, r.res.ConfigPath, len(out), err)
		return err
	}
	r.res.Written = true
	r.audit.FileOp(logging.AuditFileWrite, r.res.ConfigPath, len(out), nil)
	logging.Inject("wrote %s (%d bytes)", r.res.ConfigPath, len(out))
	return nil
}

// writeAtomic replaces path with data through a temp file in the same
// directory, keeping the existing file mode.
func writeAtomic(path string, data []byte) error {
	if err := renameio.WriteFile(path, data, 0644, renameio.WithExistingPermissions()); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
