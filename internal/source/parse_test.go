package source

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustParse(t *testing.T, path, src string) *Module {
	t.Helper()
	m, err := Parse(context.Background(), path, []byte(src))
	if err != nil {
		t.Fatalf("Parse(%s) failed: %v", path, err)
	}
	return m
}

func bindingNamed(m *Module, name string) *Binding {
	for _, b := range m.Bindings {
		if b.Name == name {
			return b
		}
	}
	return nil
}

func TestParseImports(t *testing.T) {
	src := `import a, { b as c, type D } from "x";
import * as ns from 'y';
import "./side.css";
import type { T } from "t";
`
	m := mustParse(t, "config.ts", src)
	if len(m.Imports) != 4 {
		t.Fatalf("expected 4 imports, got %d", len(m.Imports))
	}

	first := m.Imports[0]
	if first.Module != "x" || first.Default != "a" {
		t.Errorf("unexpected first import: module=%q default=%q", first.Module, first.Default)
	}
	want := []ImportSpecifier{{Name: "b", Alias: "c"}, {Name: "D", TypeOnly: true}}
	var got []ImportSpecifier
	for _, s := range first.Named {
		got = append(got, *s)
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Errorf("named specifiers mismatch (-want +got):\n%s", d)
	}
	if d := cmp.Diff([]string{"a", "c", "D"}, first.LocalNames()); d != "" {
		t.Errorf("local names mismatch (-want +got):\n%s", d)
	}

	if ns := m.Imports[1]; ns.Namespace != "ns" || ns.quote != '\'' || !ns.semicolon {
		t.Errorf("unexpected namespace import: %+v", ns)
	}
	if side := m.Imports[2]; !side.opaque || side.Module != "./side.css" {
		t.Errorf("side-effect import should be opaque: %+v", side)
	}
	if typed := m.Imports[3]; !typed.TypeOnly {
		t.Error("type-only import not detected")
	}
	if m.ImportFor("t") != nil {
		t.Error("ImportFor should skip type-only declarations")
	}
}

func TestParseBindings(t *testing.T) {
	src := `const a = 1, b = 2;
let { x, y: [z] } = o;
function f() {}
export const e = {};
export { a };
`
	m := mustParse(t, "config.ts", src)

	var names []string
	for _, b := range m.Bindings {
		names = append(names, b.Name)
	}
	if d := cmp.Diff([]string{"a", "b", "x", "z", "f", "e"}, names); d != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", d)
	}

	if f := bindingNamed(m, "f"); f == nil || f.Kind != KindFunction {
		t.Error("function binding not recorded")
	}
	if !m.IsExported("a") {
		t.Error("export clause should mark a as exported")
	}
	if !m.IsExported("e") {
		t.Error("export const should mark e as exported")
	}
	if m.IsExported("b") {
		t.Error("b is never exported")
	}
	if _, ok := bindingNamed(m, "e").Init.(*ObjectLit); !ok {
		t.Errorf("expected object initializer, got %T", bindingNamed(m, "e").Init)
	}
}

func TestParseGrammarByExtension(t *testing.T) {
	mustParse(t, "config.mjs", `import { defineCollection } from "astro:content";`+"\n")
	mustParse(t, "config.tsx", "const el = <div>hi</div>;\n")
	mustParse(t, "config.ts", "const n = <number>value;\n")
}

func TestParseSyntaxError(t *testing.T) {
	for _, src := range []string{
		"export const collections = {\n",
		"const = ;\n",
		"import { from 'x';\n",
	} {
		_, err := Parse(context.Background(), "config.ts", []byte(src))
		if !errors.Is(err, ErrSyntax) {
			t.Errorf("Parse(%q) = %v, want ErrSyntax", src, err)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	m := mustParse(t, "config.ts", "")
	if len(m.Imports) != 0 || len(m.Bindings) != 0 {
		t.Errorf("empty module should have no nodes, got %d imports %d bindings", len(m.Imports), len(m.Bindings))
	}
	out, err := m.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	src := `#!/usr/bin/env node
// comment
import { defineCollection } from 'astro:content'
import docs from "./docs";

export const collections = {
  docs: defineCollection({ schema: docs() }), // trailing
} satisfies Record<string, unknown>;
`
	m := mustParse(t, "config.ts", src)
	changed, err := m.Changed()
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		out, _ := m.Bytes()
		t.Errorf("unmodified module should print verbatim:\n%s", cmp.Diff(src, string(out)))
	}
}
