// Package collection registers content collections in a site's content
// configuration module. An Injector scaffolds the content tree, then edits
// the module so it imports each collection's schema and lists the collection
// in the exported collections object.
package collection

import (
	"collectioninject/internal/source"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for a request that cannot be applied.
var ErrInvalidRequest = errors.New("collection: invalid request")

const (
	// DefaultExport selects the schema module's default export.
	DefaultExport = "default"
	// DefaultSuffix is appended to the collection name to form the local
	// name of a default-exported schema.
	DefaultSuffix = "Schema"

	// RegistryName is the exported object listing every collection.
	RegistryName = "collections"
	// AstroModule provides defineCollection and z.
	AstroModule = "astro:content"
	// DefineFunc wraps each collection's settings.
	DefineFunc = "defineCollection"
	// ZodName is the validator namespace imported alongside DefineFunc.
	ZodName = "z"
)

// Kind is a collection type.
type Kind string

const (
	KindUnset   Kind = ""
	KindContent Kind = "content"
	KindData    Kind = "data"
)

// SchemaMode controls how the schema symbol is referenced.
type SchemaMode string

const (
	// SchemaCall renders schema: <local>().
	SchemaCall SchemaMode = "call"
	// SchemaReference renders schema: <local>.
	SchemaReference SchemaMode = "reference"
)

// Request asks for one collection to be registered.
type Request struct {
	// Module is the specifier the schema is imported from.
	Module string
	// Export is the exported schema symbol, or DefaultExport.
	Export string
	// Collection is the registry key and the content directory name.
	Collection string
	// Suffix forms the default-export local name; empty means DefaultSuffix.
	Suffix string
	Type   Kind
	// Overwrite lets an existing registry entry be brought in line.
	Overwrite bool
	// SeedDir is copied into a newly created collection directory.
	SeedDir string
	Schema  SchemaMode
}

// Validate reports a wrapped ErrInvalidRequest for unusable requests.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Collection) == "":
		return fmt.Errorf("%w: empty collection name", ErrInvalidRequest)
	case strings.ContainsAny(r.Collection, `/\`) || r.Collection == "." || r.Collection == "..":
		return fmt.Errorf("%w: collection %q is not a directory name", ErrInvalidRequest, r.Collection)
	case strings.TrimSpace(r.Module) == "":
		return fmt.Errorf("%w: collection %q: empty module", ErrInvalidRequest, r.Collection)
	case strings.TrimSpace(r.Export) == "":
		return fmt.Errorf("%w: collection %q: empty export name", ErrInvalidRequest, r.Collection)
	}

	switch r.Type {
	case KindUnset, KindContent, KindData:
	default:
		return fmt.Errorf("%w: collection %q: unknown type %q", ErrInvalidRequest, r.Collection, r.Type)
	}
	switch r.Schema {
	case "", SchemaCall, SchemaReference:
	default:
		return fmt.Errorf("%w: collection %q: unknown schema mode %q", ErrInvalidRequest, r.Collection, r.Schema)
	}

	if local := r.ImportName(); !source.IsIdentifier(local) {
		return fmt.Errorf("%w: collection %q: %q is not a valid identifier", ErrInvalidRequest, r.Collection, local)
	}
	return nil
}

// IsDefault reports whether the schema is the module's default export.
func (r Request) IsDefault() bool {
	return r.Export == DefaultExport
}

// ImportName is the local name the schema should be imported under before
// conflict resolution.
func (r Request) ImportName() string {
	if !r.IsDefault() {
		return r.Export
	}
	suffix := r.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return r.Collection + suffix
}

func (r Request) importRequest() source.ImportRequest {
	return source.ImportRequest{
		Module:  r.Module,
		Name:    r.ImportName(),
		Default: r.IsDefault(),
	}
}

// settings renders the object passed to defineCollection, referencing the
// schema through local.
func (r Request) settings(local string) string {
	schema := local + "()"
	if r.Schema == SchemaReference {
		schema = local
	}
	if r.Type == KindData {
		return "{ type: 'data', schema: " + schema + " }"
	}
	return "{ schema: " + schema + " }"
}

func (r Request) callSpec(defineLocal, schemaLocal string) source.CallSpec {
	return source.CallSpec{Func: defineLocal, Args: []string{r.settings(schemaLocal)}}
}
