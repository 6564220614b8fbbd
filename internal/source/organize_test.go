package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrganizeImports(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		changed bool
		want    string
	}{
		{
			name: "prune coalesce and sort",
			src: `import { z, defineCollection } from "astro:content";
import { b } from "./b";
import "./side.css";
import { a } from "./a";
import { c } from "./b";

export default [defineCollection, a, b, c];
`,
			changed: true,
			want: `import { a } from "./a";
import { b, c } from "./b";
import "./side.css";
import { defineCollection } from "astro:content";

export default [defineCollection, a, b, c];
`,
		},
		{
			name:    "type references keep imports",
			src:     "import type { T } from \"t\";\nlet x: T;\n",
			changed: false,
			want:    "import type { T } from \"t\";\nlet x: T;\n",
		},
		{
			name:    "unused default is dropped",
			src:     "import React, { useState } from \"react\";\nuseState();\n",
			changed: true,
			want:    "import { useState } from \"react\";\nuseState();\n",
		},
		{
			name:    "fully unused declaration is removed",
			src:     "import { a } from \"a\";\nimport { b } from \"b\";\nb();\n",
			changed: true,
			want:    "import { b } from \"b\";\nb();\n",
		},
		{
			name:    "specifiers are sorted",
			src:     "import { b, A, a } from \"m\";\nA(a, b);\n",
			changed: true,
			want:    "import { A, a, b } from \"m\";\nA(a, b);\n",
		},
		{
			name:    "shorthand properties count as usage",
			src:     "import { docs } from \"d\";\nexport const collections = { docs };\n",
			changed: false,
			want:    "import { docs } from \"d\";\nexport const collections = { docs };\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustParse(t, "config.ts", tt.src)
			changed, err := m.OrganizeImports(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assertPrinted(t, tt.want, m)

			again := mustParse(t, "config.ts", printed(t, m))
			changed, err = again.OrganizeImports(context.Background())
			require.NoError(t, err)
			assert.False(t, changed, "organizing twice must be stable")
		})
	}
}

func TestOrganizeAfterEnsureImport(t *testing.T) {
	m := mustParse(t, "config.ts", "import { defineCollection } from \"astro:content\";\n\nexport const collections = {};\n")
	_, err := m.EnsureImport(ImportRequest{Module: "astro:content", Name: "z"})
	require.NoError(t, err)
	res, err := m.EnsureImport(ImportRequest{Module: "@/schemas", Name: "blog"})
	require.NoError(t, err)

	obj, _, err := m.EnsureRegistry("collections")
	require.NoError(t, err)
	obj.EnsureProperty("blog", CallSpec{Func: "defineCollection", Args: []string{"{ schema: " + res.Local + "() }"}}, true)

	_, err = m.OrganizeImports(context.Background())
	require.NoError(t, err)
	assertPrinted(t, `import { blog } from "@/schemas";
import { defineCollection } from "astro:content";

export const collections = {
    blog: defineCollection({ schema: blog() })
};
`, m)
}
