package source

import (
	"collectioninject/internal/logging"
	"fmt"
)

// MaxRenameAttempts bounds ResolveName. Hitting it means the module is
// pathological (hundreds of underscore-prefixed variants of one name) and is
// reported as ErrNameExhausted instead of looping.
const MaxRenameAttempts = 256

// renamePrefix is prepended to a conflicting candidate on each attempt.
const renamePrefix = "_"

// Availability reports whether a candidate identifier is free and, if not,
// which kinds of binding already claim it.
type Availability struct {
	Name      string
	Available bool
	Import    bool
	Variable  bool
	Function  bool
}

// CheckName reports whether name is unused by imports, top-level variables and
// top-level functions. Value imports whose module specifier equals
// excludedModule are ignored: re-importing from the same module is resolved by
// the merge step. `import type` declarations always count, since the value
// import cannot merge into them.
func (m *Module) CheckName(name, excludedModule string) Availability {
	a := Availability{Name: name}

	for _, d := range m.Imports {
		if d.removed || (d.Module == excludedModule && !d.TypeOnly) {
			continue
		}
		if d.Default == name || d.Namespace == name {
			a.Import = true
			break
		}
		if d.opaque && containsString(d.locals, name) {
			a.Import = true
			break
		}
		for _, s := range d.Named {
			// Both the exported name and the alias count, as in
			// `import { a as b }` where neither a nor b may be reused.
			if s.Name == name || s.Alias == name {
				a.Import = true
				break
			}
		}
		if a.Import {
			break
		}
	}

	for _, b := range m.Bindings {
		if b.Name != name {
			continue
		}
		if b.Kind == KindFunction {
			a.Function = true
		} else {
			a.Variable = true
		}
	}

	a.Available = !(a.Import || a.Variable || a.Function)
	return a
}

// ResolveName prefixes desired with "_" until CheckName reports it free.
func (m *Module) ResolveName(desired, excludedModule string) (string, error) {
	candidate := desired
	for attempt := 0; attempt <= MaxRenameAttempts; attempt++ {
		a := m.CheckName(candidate, excludedModule)
		if a.Available {
			return candidate, nil
		}
		logging.ImportsDebug("name %q taken (import=%v variable=%v function=%v), trying %q",
			candidate, a.Import, a.Variable, a.Function, renamePrefix+candidate)
		candidate = renamePrefix + candidate
	}
	return "", fmt.Errorf("%w: %q after %d attempts", ErrNameExhausted, desired, MaxRenameAttempts)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
