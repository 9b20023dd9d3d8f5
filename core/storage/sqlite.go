// Package storage provides the SQLite document store.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/validation"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/domain/tenant"
	"github.com/artpar/contentgate/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const rowColumns = "id, type, status, created_at, updated_at, published_at, draft_data, published_data"

// SQLiteStore implements ports.DocumentStore with SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock ports.Clock
	ids   ports.IDGenerator
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithClock sets the timestamp source.
func WithClock(c ports.Clock) Option {
	return func(s *SQLiteStore) { s.clock = c }
}

// WithIDGenerator sets the document id source.
func WithIDGenerator(g ports.IDGenerator) Option {
	return func(s *SQLiteStore) { s.ids = g }
}

// NewSQLiteStore opens the database at path and applies migrations.
// ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	memory := path == ":memory:"
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_cslike=true"
	if memory {
		dsn = "file::memory:?_cslike=true"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Each connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	s := NewSQLiteStoreFromDB(db, opts...)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreFromDB creates a store on an existing connection.
// Callers run Migrate themselves.
func NewSQLiteStoreFromDB(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{
		db:    db,
		clock: clock.Real{},
		ids:   idgen.UUID{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate runs all pending migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := s.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration: %w", err)
		}
		applied[version] = true
	}
	rows.Close()

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var migrations []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrations = append(migrations, entry.Name())
		}
	}
	sort.Strings(migrations)

	for _, name := range migrations {
		version := strings.TrimSuffix(name, ".sql")
		if applied[version] {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Collection returns a view over the rows of a document type. Writes are
// validated against st, so callers pass the type of the schema they serve.
func (s *SQLiteStore) Collection(st schema.SchemaType) (ports.Collection, bool) {
	if !st.IsDocument() {
		return nil, false
	}
	return &collection{store: s, schemaType: st}, true
}

// Lookup fetches a row of any type by id.
func (s *SQLiteStore) Lookup(ctx context.Context, id string) (*document.Row, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+rowColumns+" FROM documents WHERE tenant = ? AND id = ?",
		tenant.From(ctx), id)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	return r, nil
}

// collection is a type-scoped view of the store.
type collection struct {
	store      *SQLiteStore
	schemaType schema.SchemaType
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *collection) get(ctx context.Context, q querier, id string) (*document.Row, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+rowColumns+" FROM documents WHERE tenant = ? AND id = ? AND type = ?",
		tenant.From(ctx), id, c.schemaType.Name)
	r, err := scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", c.schemaType.Name, id, err)
	}
	return r, nil
}

func (c *collection) FindByID(ctx context.Context, id string, opts ports.FindOptions) (*document.Document, error) {
	r, err := c.get(ctx, c.store.db, id)
	if err != nil || r == nil {
		return nil, err
	}
	return view(r, opts.Perspective), nil
}

func (c *collection) Find(ctx context.Context, opts ports.QueryOptions) ([]document.Document, error) {
	cond, args := BuildWhere(opts.Where, opts.Perspective)
	order, orderArgs := BuildOrderBy(opts.Sort, opts.Perspective)

	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	querySQL := fmt.Sprintf(
		"SELECT %s FROM documents WHERE tenant = ? AND type = ? AND %s IS NOT NULL AND %s ORDER BY %s LIMIT ? OFFSET ?",
		rowColumns, dataColumn(opts.Perspective), cond, order,
	)
	all := append([]any{tenant.From(ctx), c.schemaType.Name}, args...)
	all = append(all, orderArgs...)
	all = append(all, limit, offset)

	rows, err := c.store.db.QueryContext(ctx, querySQL, all...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", c.schemaType.Name, err)
	}
	defer rows.Close()

	docs := []document.Document{}
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", c.schemaType.Name, err)
		}
		if d := view(r, opts.Perspective); d != nil {
			docs = append(docs, *d)
		}
	}
	return docs, rows.Err()
}

func (c *collection) Create(ctx context.Context, data map[string]any, opts ports.WriteOptions) (*document.Document, error) {
	if err := validation.ValidateDocument(c.schemaType, data, false); err != nil {
		return nil, err
	}

	r := document.NewRow(c.store.ids.New(), c.schemaType.Name, data, c.store.clock.Now(), opts.Publish)
	values, err := encodeRow(r)
	if err != nil {
		return nil, err
	}

	_, err = c.store.db.ExecContext(ctx,
		"INSERT INTO documents (tenant, "+rowColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		append([]any{tenant.From(ctx)}, values...)...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", c.schemaType.Name, err)
	}
	return view(r, document.PerspectiveDraft), nil
}

func (c *collection) Update(ctx context.Context, id string, data map[string]any, opts ports.WriteOptions) (*document.Document, error) {
	return c.modify(ctx, id, document.PerspectiveDraft, func(r *document.Row) error {
		merged := r.Merge(data)
		if err := validation.ValidateDocument(c.schemaType, merged, false); err != nil {
			return err
		}
		r.Apply(merged, c.store.clock.Now(), opts.Publish)
		return nil
	})
}

func (c *collection) Delete(ctx context.Context, id string) (bool, error) {
	res, err := c.store.db.ExecContext(ctx,
		"DELETE FROM documents WHERE tenant = ? AND id = ? AND type = ?",
		tenant.From(ctx), id, c.schemaType.Name)
	if err != nil {
		return false, fmt.Errorf("delete %s %s: %w", c.schemaType.Name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *collection) Publish(ctx context.Context, id string) (*document.Document, error) {
	return c.modify(ctx, id, document.PerspectivePublished, func(r *document.Row) error {
		if err := validation.ValidateDocument(c.schemaType, r.DraftData, false); err != nil {
			return err
		}
		r.Publish(c.store.clock.Now())
		return nil
	})
}

func (c *collection) Unpublish(ctx context.Context, id string) (*document.Document, error) {
	return c.modify(ctx, id, document.PerspectiveDraft, func(r *document.Row) error {
		r.Unpublish(c.store.clock.Now())
		return nil
	})
}

// modify loads a row, applies fn and writes it back in one transaction.
func (c *collection) modify(ctx context.Context, id string, p document.Perspective, fn func(*document.Row) error) (*document.Document, error) {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	r, err := c.get(ctx, tx, id)
	if err != nil || r == nil {
		return nil, err
	}
	if err := fn(r); err != nil {
		return nil, err
	}

	values, err := encodeRow(r)
	if err != nil {
		return nil, err
	}
	// values[0:2] are id and type, which never change.
	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET status = ?, created_at = ?, updated_at = ?, published_at = ?, draft_data = ?, published_data = ?
		 WHERE tenant = ? AND id = ?`,
		append(values[2:], tenant.From(ctx), r.ID)...)
	if err != nil {
		return nil, fmt.Errorf("update %s %s: %w", c.schemaType.Name, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return view(r, p), nil
}

func view(r *document.Row, p document.Perspective) *document.Document {
	d := r.View(p)
	if d == nil {
		return nil
	}
	d.Meta = map[string]any{"store": "sqlite"}
	return d
}

// encodeRow returns column values in rowColumns order.
func encodeRow(r *document.Row) ([]any, error) {
	draft, err := json.Marshal(r.DraftData)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}

	var published, publishedAt any
	if r.PublishedData != nil {
		b, err := json.Marshal(r.PublishedData)
		if err != nil {
			return nil, fmt.Errorf("encode published: %w", err)
		}
		published = string(b)
	}
	if r.PublishedAt != nil {
		publishedAt = document.FormatTime(*r.PublishedAt)
	}

	return []any{
		r.ID, r.Type, string(r.Status),
		document.FormatTime(r.CreatedAt), document.FormatTime(r.UpdatedAt), publishedAt,
		string(draft), published,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRow(sc scanner) (*document.Row, error) {
	var (
		r                      document.Row
		status                 string
		createdAt, updatedAt   string
		publishedAt, published sql.NullString
		draft                  string
	)
	if err := sc.Scan(&r.ID, &r.Type, &status, &createdAt, &updatedAt, &publishedAt, &draft, &published); err != nil {
		return nil, err
	}
	r.Status = document.Status(status)

	var err error
	if r.CreatedAt, err = document.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = document.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if publishedAt.Valid {
		t, err := document.ParseTime(publishedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse published_at: %w", err)
		}
		r.PublishedAt = &t
	}

	if err := json.Unmarshal([]byte(draft), &r.DraftData); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	if published.Valid {
		if err := json.Unmarshal([]byte(published.String), &r.PublishedData); err != nil {
			return nil, fmt.Errorf("decode published: %w", err)
		}
	}
	return &r, nil
}

// Ensure interface compliance.
var (
	_ ports.DocumentStore = (*SQLiteStore)(nil)
	_ ports.Collection    = (*collection)(nil)
)
