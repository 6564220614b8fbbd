package source

import (
	"collectioninject/internal/logging"
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// OrganizeImports normalizes the module's imports the way an editor's
// "organize imports" action does:
//
//   - specifiers whose local name is never referenced are dropped, and a
//     declaration left with nothing to import is removed;
//   - value declarations for the same module are coalesced;
//   - named specifiers are sorted, then declarations are sorted by module
//     specifier (case-insensitive, ordinal tie-break).
//
// Side-effect and require-style imports are never touched and keep their
// position. It reports whether the import section changed.
func (m *Module) OrganizeImports(ctx context.Context) (bool, error) {
	used, err := m.referencedNames(ctx)
	if err != nil {
		return false, err
	}

	changed := false
	for _, d := range m.liveImports() {
		if d.opaque {
			continue
		}
		if m.pruneUnused(d, used) {
			changed = true
		}
	}

	if m.coalesce() {
		changed = true
	}

	live := m.liveImports()
	var managed []*ImportDecl
	for _, d := range live {
		if d.opaque {
			continue
		}
		if sortSpecifiers(d) {
			d.dirty = true
			changed = true
		}
		managed = append(managed, d)
	}

	sorted := append([]*ImportDecl(nil), managed...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return compareNames(sorted[i].Module, sorted[j].Module) < 0
	})

	ordered := make([]*ImportDecl, 0, len(live))
	next := 0
	for _, d := range live {
		if d.opaque {
			ordered = append(ordered, d)
			continue
		}
		if sorted[next] != d {
			changed = true
		}
		ordered = append(ordered, sorted[next])
		next++
	}
	m.Imports = ordered

	if changed {
		logging.Imports("organized imports of %s", m.Path)
	}
	return changed, nil
}

func (m *Module) pruneUnused(d *ImportDecl, used map[string]bool) bool {
	changed := false
	if d.Default != "" && !used[d.Default] {
		logging.ImportsDebug("dropping unused default import %q from %q", d.Default, d.Module)
		d.Default = ""
		changed = true
	}
	if d.Namespace != "" && !used[d.Namespace] {
		logging.ImportsDebug("dropping unused namespace import %q from %q", d.Namespace, d.Module)
		d.Namespace = ""
		changed = true
	}
	kept := d.Named[:0:0]
	for _, s := range d.Named {
		if used[s.Local()] {
			kept = append(kept, s)
			continue
		}
		logging.ImportsDebug("dropping unused import %q from %q", s.Local(), d.Module)
		changed = true
	}
	d.Named = kept

	if !changed {
		return false
	}
	d.dirty = true
	if d.empty() {
		d.removed = true
	}
	return true
}

// coalesce merges later value declarations of a module into the first one
// when the result is still a single valid import statement.
func (m *Module) coalesce() bool {
	changed := false
	first := make(map[string]*ImportDecl)
	for _, d := range m.liveImports() {
		if d.opaque {
			continue
		}
		key := d.Module
		if d.TypeOnly {
			key = "type:" + key
		}
		target, ok := first[key]
		if !ok {
			first[key] = d
			continue
		}
		if !canMerge(target, d) {
			continue
		}
		if target.Default == "" {
			target.Default = d.Default
		}
		for _, s := range d.Named {
			if !target.hasSpecifier(s) {
				target.Named = append(target.Named, s)
			}
		}
		target.dirty = true
		d.removed = true
		changed = true
		logging.ImportsDebug("coalesced duplicate import of %q", d.Module)
	}
	return changed
}

func canMerge(target, d *ImportDecl) bool {
	if target.Namespace != "" || d.Namespace != "" {
		return false
	}
	if target.attributes != d.attributes {
		return false
	}
	return target.Default == "" || d.Default == "" || target.Default == d.Default
}

func (d *ImportDecl) hasSpecifier(s *ImportSpecifier) bool {
	for _, existing := range d.Named {
		if existing.Name == s.Name && existing.Local() == s.Local() {
			return true
		}
	}
	return false
}

func sortSpecifiers(d *ImportDecl) bool {
	if sort.SliceIsSorted(d.Named, func(i, j int) bool {
		return compareNames(d.Named[i].Name, d.Named[j].Name) < 0
	}) {
		return false
	}
	sort.SliceStable(d.Named, func(i, j int) bool {
		return compareNames(d.Named[i].Name, d.Named[j].Name) < 0
	})
	return true
}

func compareNames(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// referencedNames prints the module as it currently stands, re-parses it and
// collects every identifier used outside import statements.
func (m *Module) referencedNames(ctx context.Context) (map[string]bool, error) {
	out, err := m.Bytes()
	if err != nil {
		return nil, err
	}
	tree, err := parseTree(ctx, m.Path, out)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	used := make(map[string]bool)
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			return
		case "identifier", "type_identifier", "shorthand_property_identifier":
			used[n.Content(out)] = true
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(tree.RootNode())
	return used, nil
}
