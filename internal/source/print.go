package source

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// edit replaces src[start:end] with text. Insertions have start == end.
type edit struct {
	start int
	end   int
	text  string
}

// Bytes prints the module. Regions of the original source that no dirty or
// new node covers are copied unchanged.
func (m *Module) Bytes() ([]byte, error) {
	var edits []edit
	edits = append(edits, m.importEdits()...)
	for _, b := range m.Bindings {
		if b.IsNew() {
			continue
		}
		edits = append(edits, m.bindingEdits(b)...)
	}

	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].end < edits[j].end
	})

	var out bytes.Buffer
	out.Grow(len(m.src) + 256)
	pos := 0
	for _, e := range edits {
		if e.start < pos {
			return nil, fmt.Errorf("source: overlapping edits at offset %d", e.start)
		}
		out.Write(m.src[pos:e.start])
		out.WriteString(e.text)
		pos = e.end
	}
	out.Write(m.src[pos:])

	if len(m.appended) > 0 {
		if out.Len() > 0 {
			if !bytes.HasSuffix(out.Bytes(), []byte("\n")) {
				out.WriteByte('\n')
			}
			out.WriteByte('\n')
		}
		for _, b := range m.appended {
			out.WriteString(renderStatement(b))
			out.WriteByte('\n')
		}
	}
	return out.Bytes(), nil
}

// Changed reports whether printing would produce different bytes.
func (m *Module) Changed() (bool, error) {
	out, err := m.Bytes()
	if err != nil {
		return false, err
	}
	return !bytes.Equal(out, m.src), nil
}

// importEdits assigns live declarations to the original import slots in
// order. Extra declarations are inserted after the last slot and surplus slots
// are deleted.
func (m *Module) importEdits() []edit {
	live := m.liveImports()
	var edits []edit

	for i, slot := range m.importSlots {
		if i >= len(live) {
			edits = append(edits, edit{start: slot.Start, end: lineEnd(m.src, slot.End), text: ""})
			continue
		}
		d := live[i]
		text := d.render()
		if d.span == slot && text == d.text {
			continue
		}
		edits = append(edits, edit{start: slot.Start, end: slot.End, text: text})
	}

	if len(live) <= len(m.importSlots) {
		return edits
	}

	var b strings.Builder
	extra := live[len(m.importSlots):]
	if n := len(m.importSlots); n > 0 {
		for _, d := range extra {
			b.WriteString("\n")
			b.WriteString(d.render())
		}
		at := m.importSlots[n-1].End
		return append(edits, edit{start: at, end: at, text: b.String()})
	}

	for _, d := range extra {
		b.WriteString(d.render())
		b.WriteString("\n")
	}
	at := headerEnd(m.src)
	if at < len(m.src) && m.src[at] != '\n' && m.src[at] != '\r' {
		b.WriteString("\n")
	}
	return append(edits, edit{start: at, end: at, text: b.String()})
}

func (m *Module) bindingEdits(b *Binding) []edit {
	var edits []edit
	if b.exportDirty {
		edits = append(edits, edit{start: b.stmtSpan.Start, end: b.stmtSpan.Start, text: "export "})
	}
	if b.kindDirty && b.kindSpan.Valid() {
		edits = append(edits, edit{start: b.kindSpan.Start, end: b.kindSpan.End, text: string(b.Kind)})
	}
	if b.Init == nil {
		return edits
	}
	if b.initDirty {
		text := b.Init.render(lineIndent(m.src, b.stmtSpan.Start))
		if b.valueSpan.Valid() {
			return append(edits, edit{start: b.valueSpan.Start, end: b.valueSpan.End, text: text})
		}
		return append(edits, edit{start: b.declEnd, end: b.declEnd, text: " = " + text})
	}
	return append(edits, exprEdits(b.Init)...)
}

// exprEdits collects edits for a parsed expression whose children changed.
func exprEdits(e Expr) []edit {
	switch v := e.(type) {
	case *wrappedExpr:
		if v.inner != nil {
			return exprEdits(v.inner)
		}
	case *ObjectLit:
		return objectEdits(v)
	case *CallExpr:
		return callEdits(v)
	}
	return nil
}

func objectEdits(o *ObjectLit) []edit {
	if !o.span.Valid() {
		return nil
	}
	if o.origProps == 0 {
		if len(o.Props) == 0 {
			return nil
		}
		return []edit{{start: o.span.Start, end: o.span.End, text: o.render(o.indent)}}
	}

	var edits []edit
	var added []*Property
	for _, p := range o.Props {
		if !p.span.Valid() {
			added = append(added, p)
			continue
		}
		switch {
		case p.replaced && p.origForm == FormPair && p.valueSpan.Valid():
			edits = append(edits, edit{start: p.valueSpan.Start, end: p.valueSpan.End, text: p.Value.render(o.propIndent)})
		case p.replaced:
			edits = append(edits, edit{start: p.span.Start, end: p.span.End, text: p.render(o.propIndent)})
		default:
			edits = append(edits, exprEdits(p.Value)...)
		}
	}
	if len(added) == 0 {
		return edits
	}

	var b strings.Builder
	if o.commaAt >= 0 {
		edits = append(edits, edit{start: o.commaAt, end: o.commaAt, text: ","})
	}
	for i, p := range added {
		switch {
		case o.commaAt >= 0 && i == 0:
			b.WriteString("\n" + o.propIndent + p.render(o.propIndent))
		case o.singleLine && o.trailingComma:
			b.WriteString(" " + p.render(o.indent) + ",")
		case o.singleLine:
			b.WriteString(", " + p.render(o.indent))
		case o.trailingComma:
			b.WriteString("\n" + o.propIndent + p.render(o.propIndent) + ",")
		default:
			b.WriteString(",\n" + o.propIndent + p.render(o.propIndent))
		}
	}
	return append(edits, edit{start: o.insertAt, end: o.insertAt, text: b.String()})
}

func callEdits(c *CallExpr) []edit {
	if !c.span.Valid() {
		return nil
	}
	var edits []edit
	if c.calleeDirty {
		edits = append(edits, edit{start: c.calleeSpan.Start, end: c.calleeSpan.End, text: c.Callee})
	}
	for _, a := range c.Args {
		if a.dirty && a.span.Valid() {
			edits = append(edits, edit{start: a.span.Start, end: a.span.End, text: a.Text})
		}
	}
	if len(c.trimmed) > 0 {
		end := 0
		for _, a := range c.trimmed {
			if a.span.End > end {
				end = a.span.End
			}
		}
		if len(c.Args) == 0 {
			// Nothing survives: empty the parentheses, trailing commas included.
			edits = append(edits, edit{start: c.argsSpan.Start + 1, end: c.argsSpan.End - 1, text: ""})
		} else {
			from := c.Args[len(c.Args)-1].span.End
			edits = append(edits, edit{start: from, end: end, text: ""})
		}
	}
	return edits
}

func renderStatement(b *Binding) string {
	var sb strings.Builder
	if b.Exported {
		sb.WriteString("export ")
	}
	sb.WriteString(string(b.Kind))
	sb.WriteString(" ")
	sb.WriteString(b.Name)
	if b.Init != nil {
		sb.WriteString(" = ")
		sb.WriteString(b.Init.render(""))
	}
	sb.WriteString(";")
	return sb.String()
}

// lineEnd extends offset past trailing spaces and one line break so a deleted
// statement does not leave a blank line behind.
func lineEnd(src []byte, offset int) int {
	i := offset
	for i < len(src) && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	if i < len(src) && src[i] == '\r' {
		i++
	}
	if i < len(src) && src[i] == '\n' {
		return i + 1
	}
	return offset
}

// headerEnd skips a hashbang line, which must stay first.
func headerEnd(src []byte) int {
	if !bytes.HasPrefix(src, []byte("#!")) {
		return 0
	}
	if i := bytes.IndexByte(src, '\n'); i >= 0 {
		return i + 1
	}
	return len(src)
}
