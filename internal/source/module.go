// Package source holds the editable model of a TypeScript/JavaScript module
// that the injector mutates.
//
// A Module is parsed once with tree-sitter into a small node graph (imports,
// top-level bindings, object literals, call expressions). Every node parsed from
// the file remembers its original byte span. Mutations mark nodes dirty or
// attach new nodes, and Bytes() prints the module by copying untouched regions
// verbatim and emitting span-scoped edits for everything else.
package source

import (
	"errors"
)

var (
	// ErrSyntax is returned when the module cannot be parsed cleanly.
	ErrSyntax = errors.New("source: syntax error")
	// ErrNameExhausted is returned when conflict resolution gives up.
	ErrNameExhausted = errors.New("source: no conflict-free name found")
	// ErrNoRegistry is returned when a registry operation runs before EnsureRegistry.
	ErrNoRegistry = errors.New("source: registry binding not found")
)

// Span is a half-open byte range into the original source.
type Span struct {
	Start int
	End   int
}

// noSpan marks nodes created by the engine.
var noSpan = Span{Start: -1, End: -1}

// Valid reports whether the span points into the original source.
func (s Span) Valid() bool {
	return s.Start >= 0 && s.End >= s.Start
}

// BindingKind is the declaration keyword of a top-level binding.
type BindingKind string

const (
	KindConst    BindingKind = "const"
	KindLet      BindingKind = "let"
	KindVar      BindingKind = "var"
	KindFunction BindingKind = "function"
)

// Module is the editable view of one source file.
type Module struct {
	Path string

	// Imports in print order. Parsed declarations come first in source order;
	// OrganizeImports may reorder them.
	Imports []*ImportDecl

	// Bindings are top-level variable declarators and function declarations.
	Bindings []*Binding

	src         []byte
	importSlots []Span
	exported    map[string]bool
	appended    []*Binding
}

// ImportSpecifier is one `name as alias` entry inside braces.
type ImportSpecifier struct {
	Name     string
	Alias    string
	TypeOnly bool
}

// Local returns the identifier the specifier binds in the module.
func (s *ImportSpecifier) Local() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// ImportDecl is a single import statement.
type ImportDecl struct {
	Module    string
	Default   string
	Namespace string
	Named     []*ImportSpecifier
	TypeOnly  bool

	span       Span
	text       string
	orig       *importSnapshot
	quote      byte
	semicolon  bool
	attributes string
	dirty      bool
	removed    bool
	// opaque declarations (side-effect imports, import-require) are only
	// consulted for name conflicts.
	opaque bool
	locals []string
}

// IsNew reports whether the declaration was added by the engine.
func (d *ImportDecl) IsNew() bool {
	return !d.span.Valid()
}

// LocalNames lists every identifier the declaration binds.
func (d *ImportDecl) LocalNames() []string {
	if d.opaque {
		return d.locals
	}
	var names []string
	if d.Default != "" {
		names = append(names, d.Default)
	}
	if d.Namespace != "" {
		names = append(names, d.Namespace)
	}
	for _, s := range d.Named {
		names = append(names, s.Local())
	}
	return names
}

func (d *ImportDecl) empty() bool {
	return d.Default == "" && d.Namespace == "" && len(d.Named) == 0
}

// Binding is a top-level declaration.
type Binding struct {
	Name     string
	Kind     BindingKind
	Exported bool
	Init     Expr

	stmtSpan  Span
	kindSpan  Span
	declEnd   int
	valueSpan Span
	// siblings share one statement, kind changes then apply to all of them.
	siblings int

	exportDirty bool
	kindDirty   bool
	initDirty   bool
}

// IsNew reports whether the binding was added by the engine.
func (b *Binding) IsNew() bool {
	return !b.stmtSpan.Valid()
}

// IsExported reports whether name is exported by its declaration or by an
// `export { name }` clause.
func (m *Module) IsExported(name string) bool {
	if m.exported[name] {
		return true
	}
	for _, b := range m.Bindings {
		if b.Name == name && b.Exported {
			return true
		}
	}
	return false
}

// ImportFor returns the first value import declaration for module, or nil.
func (m *Module) ImportFor(module string) *ImportDecl {
	for _, d := range m.Imports {
		if d.removed || d.opaque || d.TypeOnly {
			continue
		}
		if d.Module == module {
			return d
		}
	}
	return nil
}

func (m *Module) liveImports() []*ImportDecl {
	live := make([]*ImportDecl, 0, len(m.Imports))
	for _, d := range m.Imports {
		if !d.removed {
			live = append(live, d)
		}
	}
	return live
}
