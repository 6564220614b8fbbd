package source

import (
	"collectioninject/internal/logging"
	"strings"
)

// CallSpec is the target shape of a registry value: a callee and positional
// argument source fragments. Arguments compare textually.
type CallSpec struct {
	Func string
	Args []string
}

// String renders the call as it is inserted into the source.
func (s CallSpec) String() string {
	return s.Func + "(" + strings.Join(s.Args, ", ") + ")"
}

// RegistryResult describes what EnsureRegistry had to repair.
type RegistryResult struct {
	Created     bool
	Exported    bool
	MadeConst   bool
	Initialized bool
}

// Changed reports whether any repair happened.
func (r RegistryResult) Changed() bool {
	return r.Created || r.Exported || r.MadeConst || r.Initialized
}

// EnsureRegistry makes sure name is an exported const binding whose value is
// an object literal, and returns that object.
func (m *Module) EnsureRegistry(name string) (*ObjectLit, RegistryResult, error) {
	var res RegistryResult

	b := m.variable(name)
	if b == nil {
		b = &Binding{
			Name:      name,
			Kind:      KindConst,
			Exported:  !m.exported[name],
			Init:      NewObject(),
			stmtSpan:  noSpan,
			kindSpan:  noSpan,
			valueSpan: noSpan,
		}
		m.Bindings = append(m.Bindings, b)
		m.appended = append(m.appended, b)
		logging.Registry("created registry binding %q", name)
		res.Created = true
		return b.Init.(*ObjectLit), res, nil
	}

	if !m.IsExported(name) {
		b.Exported = true
		b.exportDirty = !b.IsNew()
		res.Exported = true
		logging.Registry("exported registry binding %q", name)
	}

	if b.Kind != KindConst {
		logging.Registry("registry binding %q: %s -> const", name, b.Kind)
		b.Kind = KindConst
		b.kindDirty = !b.IsNew()
		res.MadeConst = true
	}

	obj := unwrapObject(b.Init)
	if obj == nil {
		logging.Registry("registry binding %q initialized to an empty object", name)
		obj = NewObject()
		b.Init = obj
		b.initDirty = !b.IsNew()
		res.Initialized = true
	}
	return obj, res, nil
}

// Registry returns the object literal bound to name, if there is one.
func (m *Module) Registry(name string) (*ObjectLit, error) {
	b := m.variable(name)
	if b == nil {
		return nil, ErrNoRegistry
	}
	obj := unwrapObject(b.Init)
	if obj == nil {
		return nil, ErrNoRegistry
	}
	return obj, nil
}

func (m *Module) variable(name string) *Binding {
	for _, b := range m.Bindings {
		if b.Name == name && b.Kind != KindFunction {
			return b
		}
	}
	return nil
}

// PropertyAction names the outcome of EnsureProperty.
type PropertyAction string

const (
	PropertyAdded     PropertyAction = "added"
	PropertyKept      PropertyAction = "kept"
	PropertyReplaced  PropertyAction = "replaced"
	PropertyPatched   PropertyAction = "patched"
	PropertyUnchanged PropertyAction = "unchanged"
)

// PropertyResult reports what EnsureProperty did.
type PropertyResult struct {
	Action PropertyAction
	// DroppedArgs are requested arguments past the end of the existing
	// call's argument list. They are not appended.
	DroppedArgs []string
}

// EnsureProperty makes the property name hold a call matching spec.
//
// A missing property is appended. An existing property is left alone unless
// overwrite is set, in which case non-call values are replaced, a differing
// callee is replaced, and arguments are diffed by position: differing text is
// replaced and surplus arguments are removed.
func (o *ObjectLit) EnsureProperty(name string, spec CallSpec, overwrite bool) PropertyResult {
	p := o.Property(name)
	if p == nil {
		o.Props = append(o.Props, &Property{
			Key:       name,
			Form:      FormPair,
			origForm:  FormPair,
			Value:     NewCall(spec),
			span:      noSpan,
			valueSpan: noSpan,
		})
		logging.Registry("added property %s: %s", name, spec)
		return PropertyResult{Action: PropertyAdded}
	}

	if !overwrite {
		logging.RegistryDebug("kept existing property %s", name)
		return PropertyResult{Action: PropertyKept}
	}

	call, ok := p.Value.(*CallExpr)
	if !ok || p.Form != FormPair {
		p.Value = NewCall(spec)
		p.Form = FormPair
		p.replaced = true
		logging.Registry("replaced property %s with %s", name, spec)
		return PropertyResult{Action: PropertyReplaced}
	}

	res := PropertyResult{Action: PropertyUnchanged}
	if call.Callee != spec.Func {
		logging.Registry("property %s: callee %q -> %q", name, call.Callee, spec.Func)
		call.Callee = spec.Func
		call.calleeDirty = true
		res.Action = PropertyPatched
	}

	kept := call.Args[:0:0]
	for i, arg := range call.Args {
		if i >= len(spec.Args) {
			if arg.span.Valid() {
				call.trimmed = append(call.trimmed, arg)
			}
			logging.Registry("property %s: removed argument %d", name, i)
			res.Action = PropertyPatched
			continue
		}
		if arg.Text != spec.Args[i] {
			logging.Registry("property %s: argument %d %q -> %q", name, i, arg.Text, spec.Args[i])
			arg.Text = spec.Args[i]
			arg.dirty = true
			res.Action = PropertyPatched
		}
		kept = append(kept, arg)
	}
	if len(spec.Args) > len(call.Args) {
		res.DroppedArgs = append([]string(nil), spec.Args[len(call.Args):]...)
		logging.Get(logging.CategoryRegistry).Warn("property %s: %d requested argument(s) beyond the existing call were not appended",
			name, len(res.DroppedArgs))
	}
	call.Args = kept
	return res
}
