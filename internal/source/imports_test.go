package source

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func printed(t *testing.T, m *Module) string {
	t.Helper()
	out, err := m.Bytes()
	require.NoError(t, err)
	return string(out)
}

func assertPrinted(t *testing.T, want string, m *Module) {
	t.Helper()
	if d := cmp.Diff(want, printed(t, m)); d != "" {
		t.Errorf("printed module mismatch (-want +got):\n%s", d)
	}
}

func TestEnsureImport(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		req   ImportRequest
		local string
		want  string
	}{
		{
			name:  "empty module",
			src:   "",
			req:   ImportRequest{Module: "m", Name: "s"},
			local: "s",
			want:  "import { s } from \"m\";\n",
		},
		{
			name:  "merge into existing declaration",
			src:   "import { a } from 'm'\n\nconst x = a;\n",
			req:   ImportRequest{Module: "m", Name: "b"},
			local: "b",
			want:  "import { a, b } from 'm'\n\nconst x = a;\n",
		},
		{
			name:  "namespace import is replaced",
			src:   "import * as ns from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "s"},
			local: "s",
			want:  "import { s } from \"m\";\n",
		},
		{
			name:  "default import is renamed",
			src:   "import other from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "blogSchema", Default: true},
			local: "blogSchema",
			want:  "import blogSchema from \"m\";\n",
		},
		{
			name:  "stale alias is reconciled",
			src:   "import { s as t } from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "s"},
			local: "s",
			want:  "import { s } from \"m\";\n",
		},
		{
			name:  "new declaration follows existing style",
			src:   "import x from 'a'\nx;\n",
			req:   ImportRequest{Module: "b", Name: "y"},
			local: "y",
			want:  "import x from 'a'\nimport { y } from 'b'\nx;\n",
		},
		{
			name:  "conflicting named import gets an alias",
			src:   "const s = 1;\n",
			req:   ImportRequest{Module: "m", Name: "s"},
			local: "_s",
			want:  "import { s as _s } from \"m\";\n\nconst s = 1;\n",
		},
		{
			name:  "conflicting default import is renamed",
			src:   "import { fooSchema } from \"other\";\n",
			req:   ImportRequest{Module: "m", Name: "fooSchema", Default: true},
			local: "_fooSchema",
			want:  "import { fooSchema } from \"other\";\nimport _fooSchema from \"m\";\n",
		},
		{
			name:  "default import takes the requested alias",
			src:   "import X from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "X", Alias: "Y", Default: true},
			local: "Y",
			want:  "import Y from \"m\";\n",
		},
		{
			name:  "type-only import becomes a value import",
			src:   "import type { docsSchema } from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "docsSchema"},
			local: "docsSchema",
			want:  "import { docsSchema } from \"m\";\n",
		},
		{
			name:  "type-only import keeps its other specifiers",
			src:   "import type { A, docsSchema } from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "docsSchema"},
			local: "docsSchema",
			want:  "import type { A } from \"m\";\nimport { docsSchema } from \"m\";\n",
		},
		{
			name:  "type-only alias of another export conflicts",
			src:   "import type { other as docsSchema } from \"m\";\n",
			req:   ImportRequest{Module: "m", Name: "docsSchema"},
			local: "_docsSchema",
			want:  "import type { other as docsSchema } from \"m\";\nimport { docsSchema as _docsSchema } from \"m\";\n",
		},
		{
			name:  "hashbang stays first",
			src:   "#!/usr/bin/env node\nconsole.log(1);\n",
			req:   ImportRequest{Module: "b", Name: "y"},
			local: "y",
			want:  "#!/usr/bin/env node\nimport { y } from \"b\";\n\nconsole.log(1);\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "config.ts", tt.src)
			res, err := m.EnsureImport(tt.req)
			require.NoError(t, err)
			assert.True(t, res.Changed)
			assert.Equal(t, tt.local, res.Local)
			assertPrinted(t, tt.want, m)

			again, err := m.EnsureImport(tt.req)
			require.NoError(t, err)
			assert.False(t, again.Changed, "second EnsureImport must be a no-op")
			assert.Equal(t, tt.local, again.Local)
			assertPrinted(t, tt.want, m)
		})
	}
}

func TestEnsureImportExistingIsNoop(t *testing.T) {
	src := "import { defineCollection, z } from \"astro:content\";\nimport { docsSchema as ___docsSchema } from \"@astrojs/starlight/schema\";\nconst docsSchema = 1;\nconst _docsSchema = 2;\nfunction __docsSchema() {}\n"
	m := mustParse(t, "config.ts", src)

	res, err := m.EnsureImport(ImportRequest{Module: "astro:content", Name: "z"})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = m.EnsureImport(ImportRequest{Module: "@astrojs/starlight/schema", Name: "docsSchema"})
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, "___docsSchema", res.Local)
	assert.Equal(t, "___docsSchema", res.Alias)
	assertPrinted(t, src, m)
}

func TestEnsureImportTypeOnlySpecifier(t *testing.T) {
	m := mustParse(t, "config.ts", "import { type s } from \"m\";\n")
	res, err := m.EnsureImport(ImportRequest{Module: "m", Name: "s"})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assertPrinted(t, "import { s } from \"m\";\n", m)
}

func TestEnsureImportDefaultThenAlias(t *testing.T) {
	m := mustParse(t, "config.ts", "")

	first, err := m.EnsureImport(ImportRequest{Module: "m", Name: "X", Default: true})
	require.NoError(t, err)
	assert.Equal(t, "X", first.Local)

	req := ImportRequest{Module: "m", Name: "X", Alias: "Y", Default: true}
	res, err := m.EnsureImport(req)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "Y", res.Local)
	assertPrinted(t, "import Y from \"m\";\n", m)

	again, err := m.EnsureImport(req)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Equal(t, "Y", again.Local)
	assertPrinted(t, "import Y from \"m\";\n", m)
	assert.Len(t, m.liveImports(), 1)
}
