package source

import (
	"collectioninject/internal/logging"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// languageFor picks the tree-sitter grammar from the file extension.
// TypeScript is the default because config.ts is the conventional name.
func languageFor(path string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return javascript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	default:
		return typescript.GetLanguage()
	}
}

// parseTree runs tree-sitter over content. The caller closes the tree.
func parseTree(ctx context.Context, path string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(languageFor(path))

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return tree, nil
}

// Parse builds a Module from the content of path.
func Parse(ctx context.Context, path string, content []byte) (*Module, error) {
	start := time.Now()
	logging.SourceDebug("parsing module: %s (%d bytes)", filepath.Base(path), len(content))

	tree, err := parseTree(ctx, path, content)
	if err != nil {
		logging.Get(logging.CategorySource).Error("parse failed: %s - %v", path, err)
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstError(root)
		return nil, fmt.Errorf("%w: %s:%d:%d", ErrSyntax, path, line, col)
	}

	m := &Module{
		Path:     path,
		src:      content,
		exported: make(map[string]bool),
	}
	p := &moduleParser{m: m, src: content}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		p.statement(root.NamedChild(i))
	}

	logging.SourceDebug("parsed %s - %d imports, %d bindings in %v",
		filepath.Base(path), len(m.Imports), len(m.Bindings), time.Since(start))
	return m, nil
}

func firstError(n *sitter.Node) (int, int) {
	if n.Type() == "ERROR" || n.IsMissing() {
		p := n.StartPoint()
		return int(p.Row) + 1, int(p.Column) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstError(c)
		}
	}
	p := n.StartPoint()
	return int(p.Row) + 1, int(p.Column) + 1
}

type moduleParser struct {
	m   *Module
	src []byte
}

func (p *moduleParser) text(n *sitter.Node) string {
	return string(p.src[n.StartByte():n.EndByte()])
}

func spanOf(n *sitter.Node) Span {
	return Span{Start: int(n.StartByte()), End: int(n.EndByte())}
}

func (p *moduleParser) statement(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		p.importStatement(n)
	case "lexical_declaration", "variable_declaration":
		p.variableStatement(n, n, false)
	case "function_declaration", "generator_function_declaration", "function_signature":
		p.function(n, n, false)
	case "export_statement":
		p.exportStatement(n)
	}
}

func (p *moduleParser) exportStatement(n *sitter.Node) {
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == "default" {
			isDefault = true
		}
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "lexical_declaration", "variable_declaration":
			p.variableStatement(decl, n, !isDefault)
		case "function_declaration", "generator_function_declaration", "function_signature":
			p.function(decl, n, !isDefault)
		}
		return
	}

	// `export { a, b as c } from "m"` re-exports another module's bindings.
	if n.ChildByFieldName("source") != nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			if spec.Type() != "export_specifier" {
				continue
			}
			if name := spec.ChildByFieldName("name"); name != nil {
				p.m.exported[unquote(p.text(name))] = true
			}
		}
	}
}

func (p *moduleParser) function(n, stmt *sitter.Node, exported bool) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	p.m.Bindings = append(p.m.Bindings, &Binding{
		Name:      p.text(name),
		Kind:      KindFunction,
		Exported:  exported,
		stmtSpan:  spanOf(stmt),
		kindSpan:  noSpan,
		valueSpan: noSpan,
		declEnd:   int(n.EndByte()),
	})
}

func (p *moduleParser) variableStatement(n, stmt *sitter.Node, exported bool) {
	if n.ChildCount() == 0 {
		return
	}
	kindNode := n.Child(0)
	kind := BindingKind(kindNode.Type())
	switch kind {
	case KindConst, KindLet, KindVar:
	default:
		return
	}

	var declarators []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "variable_declarator" {
			declarators = append(declarators, c)
		}
	}

	for _, d := range declarators {
		nameNode := d.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		base := Binding{
			Kind:      kind,
			Exported:  exported,
			stmtSpan:  spanOf(stmt),
			kindSpan:  spanOf(kindNode),
			declEnd:   int(d.EndByte()),
			valueSpan: noSpan,
			siblings:  len(declarators),
		}
		if nameNode.Type() != "identifier" {
			// Destructuring: every bound identifier is a top-level name.
			for _, name := range p.patternNames(nameNode) {
				b := base
				b.Name = name
				p.m.Bindings = append(p.m.Bindings, &b)
			}
			continue
		}
		b := base
		b.Name = p.text(nameNode)
		if value := d.ChildByFieldName("value"); value != nil {
			b.valueSpan = spanOf(value)
			b.Init = p.expr(value)
		}
		p.m.Bindings = append(p.m.Bindings, &b)
	}
}

func (p *moduleParser) patternNames(n *sitter.Node) []string {
	var names []string
	var walk func(*sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "identifier", "shorthand_property_identifier_pattern":
			names = append(names, p.text(n))
			return
		case "pair_pattern":
			if v := n.ChildByFieldName("value"); v != nil {
				walk(v)
			}
			return
		case "assignment_pattern", "object_assignment_pattern":
			if l := n.ChildByFieldName("left"); l != nil {
				walk(l)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(n)
	return names
}

func (p *moduleParser) importStatement(n *sitter.Node) {
	d := &ImportDecl{
		span:  spanOf(n),
		text:  p.text(n),
		quote: '"',
	}
	defer p.addImport(d)

	if source := n.ChildByFieldName("source"); source != nil {
		raw := p.text(source)
		d.Module = unquote(raw)
		if raw != "" {
			d.quote = raw[0]
		}
	}

	var clause *sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch {
		case !c.IsNamed() && (c.Type() == "type" || c.Type() == "typeof"):
			d.TypeOnly = true
		case !c.IsNamed() && c.Type() == ";":
			d.semicolon = true
		case c.Type() == "import_clause":
			clause = c
		case c.Type() == "import_require_clause":
			d.opaque = true
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if id := c.NamedChild(j); id.Type() == "identifier" {
					d.locals = append(d.locals, p.text(id))
				}
				if s := c.NamedChild(j); s.Type() == "string" {
					d.Module = unquote(p.text(s))
				}
			}
		case c.Type() == "import_attribute":
			if source := n.ChildByFieldName("source"); source != nil {
				d.attributes = string(p.src[source.EndByte():c.EndByte()])
			}
		}
	}

	if clause == nil {
		// Side-effect import, or the require form handled above.
		d.opaque = true
		return
	}

	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			d.Default = p.text(c)
		case "namespace_import":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if id := c.NamedChild(j); id.Type() == "identifier" {
					d.Namespace = p.text(id)
				}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if spec := c.NamedChild(j); spec.Type() == "import_specifier" {
					d.Named = append(d.Named, p.importSpecifier(spec))
				}
			}
		}
	}
}

func (p *moduleParser) addImport(d *ImportDecl) {
	d.orig = snapshotOf(d)
	p.m.Imports = append(p.m.Imports, d)
	p.m.importSlots = append(p.m.importSlots, d.span)
}

func (p *moduleParser) importSpecifier(n *sitter.Node) *ImportSpecifier {
	spec := &ImportSpecifier{}
	if name := n.ChildByFieldName("name"); name != nil {
		spec.Name = unquote(p.text(name))
	}
	if alias := n.ChildByFieldName("alias"); alias != nil {
		spec.Alias = p.text(alias)
	}
	if spec.Alias == spec.Name {
		spec.Alias = ""
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && (c.Type() == "type" || c.Type() == "typeof") {
			spec.TypeOnly = true
		}
	}
	return spec
}

// expr converts a value node into the engine's expression model.
func (p *moduleParser) expr(n *sitter.Node) Expr {
	switch n.Type() {
	case "object":
		return p.object(n)
	case "call_expression":
		if call := p.call(n); call != nil {
			return call
		}
	case "satisfies_expression", "as_expression", "parenthesized_expression":
		w := &wrappedExpr{RawExpr: RawExpr{text: p.text(n), span: spanOf(n)}}
		if n.NamedChildCount() > 0 {
			w.inner = p.expr(n.NamedChild(0))
		}
		return w
	}
	return &RawExpr{text: p.text(n), span: spanOf(n)}
}

func (p *moduleParser) call(n *sitter.Node) *CallExpr {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil || args.Type() != "arguments" {
		// Tagged templates share the call_expression node type.
		return nil
	}
	call := &CallExpr{
		Callee:     p.text(fn),
		text:       p.text(n),
		span:       spanOf(n),
		calleeSpan: spanOf(fn),
		argsSpan:   spanOf(args),
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		if a.Type() == "comment" {
			continue
		}
		call.Args = append(call.Args, &Arg{Text: p.text(a), span: spanOf(a)})
	}
	return call
}

func (p *moduleParser) object(n *sitter.Node) *ObjectLit {
	o := &ObjectLit{
		text:     p.text(n),
		span:     spanOf(n),
		indent:   lineIndent(p.src, int(n.StartByte())),
		insertAt: -1,
		commaAt:  -1,
	}

	var last *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		prop := &Property{span: spanOf(c), valueSpan: noSpan}
		switch c.Type() {
		case "pair":
			prop.Form = FormPair
			if key := c.ChildByFieldName("key"); key != nil {
				prop.Key = propertyKey(key.Type(), p.text(key))
			}
			if value := c.ChildByFieldName("value"); value != nil {
				prop.valueSpan = spanOf(value)
				prop.Value = p.expr(value)
			}
		case "shorthand_property_identifier":
			prop.Form = FormShorthand
			prop.Key = p.text(c)
			prop.Value = &RawExpr{text: prop.Key, span: spanOf(c)}
		case "method_definition":
			prop.Form = FormMethod
			if key := c.ChildByFieldName("name"); key != nil {
				prop.Key = propertyKey(key.Type(), p.text(key))
			}
			prop.Value = &RawExpr{text: p.text(c), span: spanOf(c)}
		case "spread_element":
			prop.Form = FormSpread
			prop.Value = &RawExpr{text: p.text(c), span: spanOf(c)}
		case "comment":
			continue
		default:
			prop.Form = FormOther
			prop.Value = &RawExpr{text: p.text(c), span: spanOf(c)}
		}
		prop.origForm = prop.Form
		o.Props = append(o.Props, prop)
		last = c
	}
	o.origProps = len(o.Props)

	if last != nil {
		o.insertAt = int(last.EndByte())
		after := last
		// A trailing comma after the last member keeps its style on insert.
		for next := last.NextSibling(); next != nil; next = next.NextSibling() {
			if next.Type() == "," {
				o.trailingComma = true
				o.insertAt = int(next.EndByte())
				after = next
				break
			}
			if next.Type() != "comment" {
				break
			}
		}
		lastStart := int(last.StartByte())
		if atLineStart(p.src, lastStart) && lineOf(p.src, lastStart) != lineOf(p.src, int(n.StartByte())) {
			o.propIndent = lineIndent(p.src, lastStart)
		} else {
			o.singleLine = true
		}
		// A line comment ending the last member's line stays on that line.
		if next := after.NextSibling(); !o.singleLine && next != nil && next.Type() == "comment" &&
			strings.HasPrefix(p.text(next), "//") && lineOf(p.src, int(next.StartByte())) == lineOf(p.src, o.insertAt) {
			if !o.trailingComma {
				o.commaAt = o.insertAt
			}
			o.insertAt = int(next.EndByte())
		}
	}
	return o
}

func propertyKey(nodeType, text string) string {
	switch nodeType {
	case "string":
		return unquote(text)
	case "computed_property_name":
		return ""
	}
	return text
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

// lineIndent returns the leading whitespace of the line containing offset.
func lineIndent(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

func atLineStart(src []byte, offset int) bool {
	for i := offset - 1; i >= 0; i-- {
		switch src[i] {
		case '\n':
			return true
		case ' ', '\t', '\r':
		default:
			return false
		}
	}
	return true
}

func lineOf(src []byte, offset int) int {
	line := 0
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			line++
		}
	}
	return line
}
