package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fx = CallSpec{Func: "f", Args: []string{"x"}}

func TestEnsureRegistry(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want RegistryResult
		out  string
	}{
		{
			name: "missing",
			src:  "",
			want: RegistryResult{Created: true},
			out:  "export const collections = {\n    a: f(x)\n};\n",
		},
		{
			name: "not exported",
			src:  "const collections = {};\n",
			want: RegistryResult{Exported: true},
			out:  "export const collections = {\n    a: f(x)\n};\n",
		},
		{
			name: "exported by clause",
			src:  "const collections = {};\nexport { collections };\n",
			want: RegistryResult{},
			out:  "const collections = {\n    a: f(x)\n};\nexport { collections };\n",
		},
		{
			name: "var without initializer",
			src:  "var collections;\n",
			want: RegistryResult{Exported: true, MadeConst: true, Initialized: true},
			out:  "export const collections = {\n    a: f(x)\n};\n",
		},
		{
			name: "declaration list shares its keyword",
			src:  "let a = 1, collections = {};\n",
			want: RegistryResult{Exported: true, MadeConst: true},
			out:  "export const a = 1, collections = {\n    a: f(x)\n};\n",
		},
		{
			name: "function of the same name is not a registry",
			src:  "function collections() {}\n",
			want: RegistryResult{Created: true},
			out:  "function collections() {}\n\nexport const collections = {\n    a: f(x)\n};\n",
		},
		{
			name: "satisfies wrapper",
			src:  "export const collections = {\n  b: f(1),\n} satisfies Record<string, unknown>;\n",
			want: RegistryResult{},
			out:  "export const collections = {\n  b: f(1),\n  a: f(x),\n} satisfies Record<string, unknown>;\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "config.ts", tt.src)
			obj, res, err := m.EnsureRegistry("collections")
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.want != RegistryResult{}, res.Changed())

			assert.Equal(t, PropertyAdded, obj.EnsureProperty("a", fx, false).Action)
			assertPrinted(t, tt.out, m)

			again, err := m.Registry("collections")
			require.NoError(t, err)
			assert.Same(t, obj, again)
		})
	}
}

func TestRegistryMissing(t *testing.T) {
	for _, src := range []string{"", "const collections = 5;\n", "function collections() {}\n"} {
		m := mustParse(t, "config.ts", src)
		_, err := m.Registry("collections")
		assert.ErrorIs(t, err, ErrNoRegistry, src)
	}
}

func TestEnsureProperty(t *testing.T) {
	tests := []struct {
		name      string
		object    string
		overwrite bool
		action    PropertyAction
		want      string
	}{
		{"append single line", "{ b: f(1) }", false, PropertyAdded, "{ b: f(1), a: f(x) }"},
		{"append single line trailing comma", "{ b: f(1), }", false, PropertyAdded, "{ b: f(1), a: f(x), }"},
		{"keep without overwrite", "{ a: g(y) }", false, PropertyKept, "{ a: g(y) }"},
		{"matching call", "{ a: f(x) }", true, PropertyUnchanged, "{ a: f(x) }"},
		{"non-call value", "{ a: 1 }", true, PropertyReplaced, "{ a: f(x) }"},
		{"callee differs", "{ a: g(x) }", true, PropertyPatched, "{ a: f(x) }"},
		{"argument differs", "{ a: f(old) }", true, PropertyPatched, "{ a: f(x) }"},
		{"surplus arguments", "{ a: f(x, y, z) }", true, PropertyPatched, "{ a: f(x) }"},
		{"quoted key", `{ "a": f(old) }`, true, PropertyPatched, `{ "a": f(x) }`},
		{"method", "{ a() { return 1 } }", true, PropertyReplaced, "{ a: f(x) }"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "config.ts", "export const collections = "+tt.object+";\n")
			obj, _, err := m.EnsureRegistry("collections")
			require.NoError(t, err)

			res := obj.EnsureProperty("a", fx, tt.overwrite)
			assert.Equal(t, tt.action, res.Action)
			assertPrinted(t, "export const collections = "+tt.want+";\n", m)
		})
	}
}

func TestEnsurePropertyShorthand(t *testing.T) {
	m := mustParse(t, "config.ts", "const a = 1;\nexport const collections = { a };\n")
	obj, _, err := m.EnsureRegistry("collections")
	require.NoError(t, err)

	assert.Equal(t, PropertyReplaced, obj.EnsureProperty("a", fx, true).Action)
	assertPrinted(t, "const a = 1;\nexport const collections = { a: f(x) };\n", m)
}

func TestEnsurePropertyDoesNotGrowArguments(t *testing.T) {
	m := mustParse(t, "config.ts", "export const collections = { a: f() };\n")
	obj, _, err := m.EnsureRegistry("collections")
	require.NoError(t, err)

	res := obj.EnsureProperty("a", fx, true)
	assert.Equal(t, PropertyUnchanged, res.Action)
	assert.Equal(t, []string{"x"}, res.DroppedArgs)
	assertPrinted(t, "export const collections = { a: f() };\n", m)
}

func TestEnsurePropertyMultiline(t *testing.T) {
	src := `export const collections = {
    docs: defineCollection({ schema: docsSchema() })
}
`
	m := mustParse(t, "config.ts", src)
	obj, _, err := m.EnsureRegistry("collections")
	require.NoError(t, err)

	spec := CallSpec{Func: "defineCollection", Args: []string{"{ schema: blogSchema() }"}}
	obj.EnsureProperty("blog", spec, true)
	obj.EnsureProperty("docs", CallSpec{Func: "defineCollection", Args: []string{"{ schema: docsSchema() }"}}, true)

	assertPrinted(t, `export const collections = {
    docs: defineCollection({ schema: docsSchema() }),
    blog: defineCollection({ schema: blogSchema() })
}
`, m)
	assert.Equal(t, []string{"docs", "blog"}, obj.Keys())
}

func TestEnsurePropertyKeepsLineComments(t *testing.T) {
	tests := []struct {
		name   string
		object string
		want   string
	}{
		{
			name:   "after last member",
			object: "{\n  a: 1, // keep\n  b: 2 // note\n}",
			want:   "{\n  a: 1, // keep\n  b: 2, // note\n  docs: f(x)\n}",
		},
		{
			name:   "after trailing comma",
			object: "{\n  a: 1, // keep\n}",
			want:   "{\n  a: 1, // keep\n  docs: f(x),\n}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "config.ts", "export const collections = "+tt.object+";\n")
			obj, _, err := m.EnsureRegistry("collections")
			require.NoError(t, err)

			assert.Equal(t, PropertyAdded, obj.EnsureProperty("docs", fx, false).Action)
			assertPrinted(t, "export const collections = "+tt.want+";\n", m)
		})
	}
}
