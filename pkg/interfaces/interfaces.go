package interfaces

import (
	"github.com/crossplane/function-crd-record/pkg/descriptor"
	"github.com/crossplane/function-crd-record/pkg/schema"
)

// CacheProvider defines the contract for caching generated schemas
type CacheProvider interface {
	// Get retrieves a cached schema
	Get(key string) (*schema.Schema, bool)

	// Set stores a schema in cache
	Set(key string, value *schema.Schema)

	// Size returns current cache size
	Size() int

	// Clear removes all cached items
	Clear()
}

// SchemaProvider returns the schema generated from a descriptor
type SchemaProvider interface {
	// Schema builds or reuses the schema of d. Hit reports a cache hit.
	Schema(d *descriptor.Descriptor, maxDepth int) (s *schema.Schema, hit bool, err error)
}
