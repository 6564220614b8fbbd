package source

import (
	"collectioninject/internal/logging"
	"strings"
)

// ImportRequest describes one symbol the module must import.
type ImportRequest struct {
	Module  string
	Name    string
	Alias   string
	Default bool
}

// ImportResult reports the identifiers actually used after EnsureImport.
type ImportResult struct {
	// Local is the identifier the module should use to reference the import.
	Local string
	// Name is the imported name, or the local name for default imports.
	Name string
	// Alias is set when a named import is bound under another name.
	Alias   string
	Changed bool
}

// EnsureImport makes sure the module imports req.Name from req.Module under a
// conflict-free local name, merging with an existing declaration for the same
// module. Calling it again with the same request is a no-op.
func (m *Module) EnsureImport(req ImportRequest) (ImportResult, error) {
	name, alias := req.Name, req.Alias
	if !req.Default && alias == name {
		alias = ""
	}

	desired := alias
	if desired == "" {
		desired = name
	}
	promoted := m.promoteTypeOnly(req.Module, name, desired, req.Default)
	resolved, err := m.ResolveName(desired, req.Module)
	if err != nil {
		return ImportResult{}, err
	}
	if resolved != desired {
		// Default imports without an explicit alias are renamed directly.
		if !req.Default || alias != "" {
			alias = resolved
		} else {
			name = resolved
		}
	}

	local := alias
	if local == "" {
		local = name
	}
	result := ImportResult{Local: local, Name: name, Alias: alias, Changed: promoted}

	decl := m.ImportFor(req.Module)
	if decl == nil {
		decl = m.newImport(req.Module)
		if req.Default {
			decl.Default = local
		} else {
			decl.Named = []*ImportSpecifier{{Name: name, Alias: alias}}
		}
		m.Imports = append(m.Imports, decl)
		result.Changed = true
		logging.Imports("added import %s from %q", describeImport(req.Default, name, alias), req.Module)
		return result, nil
	}

	if decl.Namespace != "" {
		logging.Imports("removed namespace import %q from %q", decl.Namespace, req.Module)
		decl.Namespace = ""
		result.Changed = true
	}

	if req.Default {
		if decl.Default != local {
			logging.Imports("default import from %q: %q -> %q", req.Module, decl.Default, local)
			decl.Default = local
			result.Changed = true
		}
	} else {
		spec := decl.named(name)
		switch {
		case spec == nil:
			decl.Named = append(decl.Named, &ImportSpecifier{Name: name, Alias: alias})
			logging.Imports("added named import %s to %q", describeImport(false, name, alias), req.Module)
			result.Changed = true
		case spec.Alias != alias || spec.TypeOnly:
			logging.Imports("reconciled named import %q from %q: alias %q -> %q", name, req.Module, spec.Alias, alias)
			spec.Alias = alias
			spec.TypeOnly = false
			result.Changed = true
		}
	}

	if result.Changed {
		decl.dirty = true
	}
	return result, nil
}

// promoteTypeOnly takes the specifier binding name as local out of
// `import type` declarations for module so the value import can reuse the
// local name. A declaration left empty is dropped.
func (m *Module) promoteTypeOnly(module, name, local string, isDefault bool) bool {
	promoted := false
	for _, d := range m.Imports {
		if d.removed || d.opaque || !d.TypeOnly || d.Module != module {
			continue
		}
		found := false
		if isDefault {
			if d.Default == local {
				d.Default = ""
				found = true
			}
		} else {
			kept := make([]*ImportSpecifier, 0, len(d.Named))
			for _, s := range d.Named {
				if s.Name == name && s.Local() == local {
					found = true
					continue
				}
				kept = append(kept, s)
			}
			d.Named = kept
		}
		if !found {
			continue
		}
		logging.Imports("moved %q out of type-only import from %q", local, module)
		d.dirty = true
		if d.empty() {
			d.removed = true
		}
		promoted = true
	}
	return promoted
}

func describeImport(isDefault bool, name, alias string) string {
	switch {
	case isDefault:
		return "default " + name
	case alias != "":
		return "{ " + name + " as " + alias + " }"
	default:
		return "{ " + name + " }"
	}
}

// newImport creates a declaration that follows the quoting and semicolon
// style of the first existing import.
func (m *Module) newImport(module string) *ImportDecl {
	d := &ImportDecl{
		Module:    module,
		span:      noSpan,
		quote:     '"',
		semicolon: true,
		dirty:     true,
	}
	for _, existing := range m.Imports {
		if existing.span.Valid() && !existing.opaque {
			d.quote = existing.quote
			d.semicolon = existing.semicolon
			break
		}
	}
	return d
}

func (d *ImportDecl) named(name string) *ImportSpecifier {
	for _, s := range d.Named {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// render prints the declaration. Clean parsed declarations keep their
// original text.
func (d *ImportDecl) render() string {
	if d.span.Valid() && (!d.dirty || d.unchanged()) {
		return d.text
	}

	var parts []string
	if d.Default != "" {
		parts = append(parts, d.Default)
	}
	if d.Namespace != "" {
		parts = append(parts, "* as "+d.Namespace)
	}
	if len(d.Named) > 0 {
		specs := make([]string, len(d.Named))
		for i, s := range d.Named {
			specs[i] = s.render()
		}
		parts = append(parts, "{ "+strings.Join(specs, ", ")+" }")
	}

	var b strings.Builder
	b.WriteString("import ")
	if d.TypeOnly {
		b.WriteString("type ")
	}
	if len(parts) > 0 {
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(" from ")
	}
	q := string(d.quote)
	b.WriteString(q + strings.ReplaceAll(d.Module, q, `\`+q) + q)
	b.WriteString(d.attributes)
	if d.semicolon {
		b.WriteString(";")
	}
	return b.String()
}

func (s *ImportSpecifier) render() string {
	var b strings.Builder
	if s.TypeOnly {
		b.WriteString("type ")
	}
	b.WriteString(s.Name)
	if s.Alias != "" && s.Alias != s.Name {
		b.WriteString(" as ")
		b.WriteString(s.Alias)
	}
	return b.String()
}

// importSnapshot is the parsed state of a declaration, used to print clean
// text when a sequence of edits cancels out.
type importSnapshot struct {
	def       string
	namespace string
	named     []ImportSpecifier
}

func snapshotOf(d *ImportDecl) *importSnapshot {
	s := &importSnapshot{def: d.Default, namespace: d.Namespace}
	for _, spec := range d.Named {
		s.named = append(s.named, *spec)
	}
	return s
}

func (d *ImportDecl) unchanged() bool {
	o := d.orig
	if o == nil || o.def != d.Default || o.namespace != d.Namespace || len(o.named) != len(d.Named) {
		return false
	}
	for i, s := range d.Named {
		if o.named[i] != *s {
			return false
		}
	}
	return true
}
