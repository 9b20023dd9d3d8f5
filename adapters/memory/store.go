// Package memory provides an in-memory document store.
// Data is lost when the process exits; use it for tests and local previews.
package memory

import (
	"context"
	"sync"

	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/validation"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/domain/tenant"
	"github.com/artpar/contentgate/ports"
)

// Store is an in-memory implementation of ports.DocumentStore.
// Rows are partitioned by tenant.
type Store struct {
	mu   sync.RWMutex
	rows map[string]map[string]*document.Row // tenant -> id -> row

	clock ports.Clock
	ids   ports.IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the timestamp source.
func WithClock(c ports.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithIDGenerator sets the document id source.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		rows:  make(map[string]map[string]*document.Row),
		clock: clock.Real{},
		ids:   idgen.UUID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Collection returns a view over the rows of a document type. Writes are
// validated against st.
func (s *Store) Collection(st schema.SchemaType) (ports.Collection, bool) {
	if !st.IsDocument() {
		return nil, false
	}
	return &collection{store: s, schemaType: st}, true
}

// Lookup fetches a row of any type by id.
func (s *Store) Lookup(ctx context.Context, id string) (*document.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[tenant.From(ctx)][id]
	if !ok {
		return nil, nil
	}
	return copyRow(r), nil
}

// Len returns the number of stored rows for the tenant in ctx.
func (s *Store) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows[tenant.From(ctx)])
}

func (s *Store) tenantRows(ctx context.Context) map[string]*document.Row {
	t := tenant.From(ctx)
	rows, ok := s.rows[t]
	if !ok {
		rows = make(map[string]*document.Row)
		s.rows[t] = rows
	}
	return rows
}

// collection is a type-scoped view of the store.
type collection struct {
	store      *Store
	schemaType schema.SchemaType
}

func (c *collection) FindByID(ctx context.Context, id string, opts ports.FindOptions) (*document.Document, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()

	r := c.row(ctx, id)
	if r == nil {
		return nil, nil
	}
	return view(r, opts.Perspective), nil
}

func (c *collection) Find(ctx context.Context, opts ports.QueryOptions) ([]document.Document, error) {
	c.store.mu.RLock()
	var docs []document.Document
	for _, r := range c.store.rows[tenant.From(ctx)] {
		if r.Type != c.schemaType.Name {
			continue
		}
		d := view(r, opts.Perspective)
		if d == nil {
			continue
		}
		if opts.Where.Match(d.Value) {
			docs = append(docs, *d)
		}
	}
	c.store.mu.RUnlock()

	document.Sort(docs, opts.Sort)
	return document.Window(docs, opts.Offset, opts.Limit), nil
}

func (c *collection) Create(ctx context.Context, data map[string]any, opts ports.WriteOptions) (*document.Document, error) {
	if err := validation.ValidateDocument(c.schemaType, data, false); err != nil {
		return nil, err
	}

	r := document.NewRow(c.store.ids.New(), c.schemaType.Name, data, c.store.clock.Now(), opts.Publish)

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	c.store.tenantRows(ctx)[r.ID] = r
	return view(r, document.PerspectiveDraft), nil
}

func (c *collection) Update(ctx context.Context, id string, data map[string]any, opts ports.WriteOptions) (*document.Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.row(ctx, id)
	if r == nil {
		return nil, nil
	}

	merged := r.Merge(data)
	if err := validation.ValidateDocument(c.schemaType, merged, false); err != nil {
		return nil, err
	}
	r.Apply(merged, c.store.clock.Now(), opts.Publish)
	return view(r, document.PerspectiveDraft), nil
}

func (c *collection) Delete(ctx context.Context, id string) (bool, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	if c.row(ctx, id) == nil {
		return false, nil
	}
	delete(c.store.rows[tenant.From(ctx)], id)
	return true, nil
}

func (c *collection) Publish(ctx context.Context, id string) (*document.Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.row(ctx, id)
	if r == nil {
		return nil, nil
	}
	if err := validation.ValidateDocument(c.schemaType, r.DraftData, false); err != nil {
		return nil, err
	}
	r.Publish(c.store.clock.Now())
	return view(r, document.PerspectivePublished), nil
}

func (c *collection) Unpublish(ctx context.Context, id string) (*document.Document, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	r := c.row(ctx, id)
	if r == nil {
		return nil, nil
	}
	r.Unpublish(c.store.clock.Now())
	return view(r, document.PerspectiveDraft), nil
}

// row returns the tenant's row with id if it belongs to this collection.
// Callers hold the store lock.
func (c *collection) row(ctx context.Context, id string) *document.Row {
	r, ok := c.store.rows[tenant.From(ctx)][id]
	if !ok || r.Type != c.schemaType.Name {
		return nil
	}
	return r
}

// view returns a detached copy of the row seen through p.
func view(r *document.Row, p document.Perspective) *document.Document {
	d := copyRow(r).View(p)
	if d == nil {
		return nil
	}
	d.Meta = map[string]any{"store": "memory"}
	return d
}

func copyRow(r *document.Row) *document.Row {
	cp := *r
	cp.DraftData = document.Clone(r.DraftData)
	cp.PublishedData = document.Clone(r.PublishedData)
	if r.PublishedAt != nil {
		t := *r.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}

// Ensure interface compliance.
var (
	_ ports.DocumentStore = (*Store)(nil)
	_ ports.Collection    = (*collection)(nil)
)
