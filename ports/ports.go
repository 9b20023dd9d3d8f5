// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and core/storage.
package ports

import (
	"context"
	"time"

	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/where"
	"github.com/artpar/contentgate/domain/document"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Document Store Ports
// -----------------------------------------------------------------------------

// FindOptions controls a single-document read.
type FindOptions struct {
	Perspective document.Perspective
	Depth       int
}

// QueryOptions controls a list read.
type QueryOptions struct {
	// Where is the translated filter. Nil matches every document.
	Where *where.Predicate

	Perspective document.Perspective

	// Limit caps the result size. Zero means no limit.
	Limit  int
	Offset int

	// Sort is a field name, prefixed with "-" for descending order.
	// Envelope fields (createdAt, updatedAt, publishedAt, id, status) are
	// accepted alongside declared fields.
	Sort string

	Depth int
}

// WriteOptions controls create and update.
type WriteOptions struct {
	// Publish copies the written payload to the published perspective.
	Publish bool
}

// Collection stores the documents of one declared type.
// Every method respects the tenant carried by ctx.
type Collection interface {
	// FindByID returns the document as seen through the perspective.
	// Returns nil, nil when it does not exist in that perspective.
	FindByID(ctx context.Context, id string, opts FindOptions) (*document.Document, error)

	// Find returns documents matching opts, in sort order.
	Find(ctx context.Context, opts QueryOptions) ([]document.Document, error)

	// Create validates and stores a new document.
	Create(ctx context.Context, data map[string]any, opts WriteOptions) (*document.Document, error)

	// Update merges data into the draft payload.
	// Returns nil, nil when the document does not exist.
	Update(ctx context.Context, id string, data map[string]any, opts WriteOptions) (*document.Document, error)

	// Delete removes the document. Reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// Publish copies the draft payload to the published perspective.
	// Returns nil, nil when the document does not exist.
	Publish(ctx context.Context, id string) (*document.Document, error)

	// Unpublish clears the published payload.
	// Returns nil, nil when the document does not exist.
	Unpublish(ctx context.Context, id string) (*document.Document, error)
}

// DocumentStore is the document persistence collaborator.
type DocumentStore interface {
	// Collection returns the collection of a document type. Rows are keyed
	// by st.Name and writes validate against st. Returns false for object
	// kinds.
	Collection(st schema.SchemaType) (Collection, bool)

	// Lookup fetches a raw row by id across all types.
	// Returns nil, nil when no row has the id.
	Lookup(ctx context.Context, id string) (*document.Row, error)
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// ResolverMetrics records resolver outcomes.
type ResolverMetrics interface {
	// ObserveResolve records one root field resolution.
	ObserveResolve(typeName, field string, d time.Duration, err error)

	// ReferenceFailed records a reference that resolved to null after an error.
	ReferenceFailed(typeName, field string)
}

// SchemaMetrics records schema compile attempts.
type SchemaMetrics interface {
	// SchemaCompiled records a compile; types is the size of the new schema.
	SchemaCompiled(err error, types int)
}
