package config

import "collectioninject/internal/collection"

// CollectionConfig is one manifest entry.
//
//	collections:
//	  - name: blog
//	    module: my-theme/collections
//	    export: default
//	    type: content
//	    overwrite: true
//	    seed: ./node_modules/my-theme/content/blog
type CollectionConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Module    string `yaml:"module" toml:"module"`
	Export    string `yaml:"export" toml:"export"`
	Suffix    string `yaml:"suffix,omitempty" toml:"suffix,omitempty"`
	Type      string `yaml:"type,omitempty" toml:"type,omitempty"`
	Overwrite bool   `yaml:"overwrite,omitempty" toml:"overwrite,omitempty"`
	Seed      string `yaml:"seed,omitempty" toml:"seed,omitempty"`
	Schema    string `yaml:"schema,omitempty" toml:"schema,omitempty"` // call, reference
}

// Request maps the entry onto an injector request. An empty export means the
// module's default export.
func (c CollectionConfig) Request() collection.Request {
	export := c.Export
	if export == "" {
		export = collection.DefaultExport
	}
	return collection.Request{
		Module:     c.Module,
		Export:     export,
		Collection: c.Name,
		Suffix:     c.Suffix,
		Type:       collection.Kind(c.Type),
		Overwrite:  c.Overwrite,
		SeedDir:    c.Seed,
		Schema:     collection.SchemaMode(c.Schema),
	}
}
