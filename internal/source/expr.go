package source

import (
	"strconv"
	"strings"
)

// indentUnit is used when the engine lays out a new multi-line object.
const indentUnit = "    "

// Expr is an expression node the engine understands well enough to edit.
type Expr interface {
	// Text returns the current source text of the expression.
	Text() string
	exprSpan() Span
	render(indent string) string
}

// RawExpr is any expression the engine treats as opaque text.
type RawExpr struct {
	text string
	span Span
}

func (e *RawExpr) Text() string { return e.text }

func (e *RawExpr) exprSpan() Span { return e.span }

func (e *RawExpr) render(_ string) string { return e.text }

// Arg is one positional argument of a call.
type Arg struct {
	Text string

	span  Span
	dirty bool
}

// CallExpr is a call with positional arguments, e.g. `defineCollection({ ... })`.
type CallExpr struct {
	Callee string
	Args   []*Arg

	text        string
	span        Span
	calleeSpan  Span
	argsSpan    Span
	calleeDirty bool
	trimmed     []*Arg
}

// NewCall builds an engine-owned call expression from spec.
func NewCall(spec CallSpec) *CallExpr {
	call := &CallExpr{Callee: spec.Func, span: noSpan, calleeSpan: noSpan, argsSpan: noSpan}
	for _, a := range spec.Args {
		call.Args = append(call.Args, &Arg{Text: a, span: noSpan})
	}
	return call
}

func (c *CallExpr) modified() bool {
	if !c.span.Valid() || c.calleeDirty || len(c.trimmed) > 0 {
		return true
	}
	for _, a := range c.Args {
		if a.dirty {
			return true
		}
	}
	return false
}

// Text returns the current call text.
func (c *CallExpr) Text() string {
	if !c.modified() {
		return c.text
	}
	return c.render("")
}

func (c *CallExpr) exprSpan() Span { return c.span }

func (c *CallExpr) render(_ string) string {
	texts := make([]string, len(c.Args))
	for i, a := range c.Args {
		texts[i] = a.Text
	}
	return c.Callee + "(" + strings.Join(texts, ", ") + ")"
}

// PropertyForm is the syntactic shape of an object member.
type PropertyForm int

const (
	FormPair PropertyForm = iota
	FormShorthand
	FormMethod
	FormSpread
	FormOther
)

// Property is one member of an object literal.
type Property struct {
	Key   string
	Form  PropertyForm
	Value Expr

	span      Span
	valueSpan Span
	origForm  PropertyForm
	replaced  bool
}

// ObjectLit is an object literal such as the collections registry.
type ObjectLit struct {
	Props []*Property

	text       string
	span       Span
	indent     string
	propIndent string
	singleLine bool
	insertAt   int
	// commaAt is where the separator goes when a trailing line comment
	// pushes insertAt past the end of the last member. -1 otherwise.
	commaAt       int
	trailingComma bool
	origProps     int
}

// NewObject returns an empty engine-owned object literal.
func NewObject() *ObjectLit {
	return &ObjectLit{span: noSpan, insertAt: -1, commaAt: -1}
}

// Property returns the keyed member named name.
func (o *ObjectLit) Property(name string) *Property {
	for _, p := range o.Props {
		if p.Form != FormSpread && p.Form != FormOther && p.Key == name {
			return p
		}
	}
	return nil
}

// Keys lists property keys in order.
func (o *ObjectLit) Keys() []string {
	keys := make([]string, 0, len(o.Props))
	for _, p := range o.Props {
		if p.Key != "" {
			keys = append(keys, p.Key)
		}
	}
	return keys
}

// Text returns the current object text.
func (o *ObjectLit) Text() string {
	if o.span.Valid() && len(o.Props) == o.origProps && !o.anyDirty() {
		return o.text
	}
	return o.render(o.indent)
}

func (o *ObjectLit) anyDirty() bool {
	for _, p := range o.Props {
		if p.replaced {
			return true
		}
		if c, ok := p.Value.(*CallExpr); ok && c.modified() {
			return true
		}
	}
	return false
}

func (o *ObjectLit) exprSpan() Span { return o.span }

func (o *ObjectLit) render(indent string) string {
	if len(o.Props) == 0 {
		return "{}"
	}
	inner := indent + indentUnit
	lines := make([]string, 0, len(o.Props))
	for _, p := range o.Props {
		lines = append(lines, inner+p.render(inner))
	}
	return "{\n" + strings.Join(lines, ",\n") + "\n" + indent + "}"
}

func (p *Property) render(indent string) string {
	return renderKey(p.Key) + ": " + p.Value.render(indent)
}

// renderKey writes name as a bare key when it is an identifier and as a
// double-quoted string otherwise.
func renderKey(name string) string {
	if IsIdentifier(name) {
		return name
	}
	return strconv.Quote(name)
}

// IsIdentifier reports whether s can be written as a bare JavaScript identifier.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		case r > 0x7f:
		default:
			return false
		}
	}
	return true
}

// unwrapObject finds the object literal behind `satisfies`, `as` and
// parentheses.
func unwrapObject(e Expr) *ObjectLit {
	switch v := e.(type) {
	case *ObjectLit:
		return v
	case *wrappedExpr:
		return unwrapObject(v.inner)
	}
	return nil
}

// wrappedExpr is an expression such as `{...} satisfies T` whose inner
// expression is still editable in place.
type wrappedExpr struct {
	RawExpr
	inner Expr
}

func (w *wrappedExpr) Text() string {
	if w.inner == nil {
		return w.text
	}
	inner := w.inner.exprSpan()
	if !inner.Valid() || !w.span.Valid() {
		return w.text
	}
	start := inner.Start - w.span.Start
	end := inner.End - w.span.Start
	return w.text[:start] + w.inner.Text() + w.text[end:]
}

func (w *wrappedExpr) render(_ string) string { return w.Text() }
