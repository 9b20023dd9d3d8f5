package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/adapters/memory"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/where"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/domain/tenant"
	"github.com/artpar/contentgate/ports"
)

func testType(t *testing.T, name string) schema.SchemaType {
	t.Helper()
	set, err := schema.NewSet(
		schema.SchemaType{Kind: schema.KindDocument, Name: "page", Fields: []schema.Field{
			{Name: "title", Type: schema.FieldTypeString, Validation: []schema.Rule{{Rule: "required"}}},
			{Name: "views", Type: schema.FieldTypeNumber},
		}},
		schema.SchemaType{Kind: schema.KindDocument, Name: "author", Fields: []schema.Field{
			{Name: "name", Type: schema.FieldTypeString},
		}},
		schema.SchemaType{Kind: schema.KindObject, Name: "hero", Fields: []schema.Field{
			{Name: "heading", Type: schema.FieldTypeString},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}
	st, ok := set.Lookup(name)
	if !ok {
		t.Fatalf("no type %s", name)
	}
	return st
}

func newStore(t *testing.T) (*memory.Store, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	store := memory.New(memory.WithClock(clk), memory.WithIDGenerator(idgen.NewSequential("doc-")))
	return store, clk
}

func pages(t *testing.T, store *memory.Store) ports.Collection {
	t.Helper()
	c, ok := store.Collection(testType(t, "page"))
	if !ok {
		t.Fatal("page collection missing")
	}
	return c
}

func TestStore_Collection(t *testing.T) {
	store, _ := newStore(t)

	if _, ok := store.Collection(testType(t, "hero")); ok {
		t.Error("object types should not have collections")
	}
}

func TestStore_CollectionFollowsType(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	v1 := testType(t, "page")
	if _, err := pages(t, store).Create(ctx, map[string]any{"title": "A", "summary": "s"}, ports.WriteOptions{}); err == nil {
		t.Fatal("expected undeclared field to be rejected")
	}

	v2 := v1
	v2.Fields = append(append([]schema.Field{}, v1.Fields...), schema.Field{Name: "summary", Type: schema.FieldTypeText})
	c, ok := store.Collection(v2)
	if !ok {
		t.Fatal("page collection missing")
	}
	doc, err := c.Create(ctx, map[string]any{"title": "A", "summary": "s"}, ports.WriteOptions{})
	if err != nil {
		t.Fatalf("Create with new field failed: %v", err)
	}

	// Rows written under v2 stay readable through v1.
	got, err := pages(t, store).FindByID(ctx, doc.ID, ports.FindOptions{Perspective: document.PerspectiveDraft})
	if err != nil || got == nil {
		t.Fatalf("FindByID = %v, %v", got, err)
	}
}

func TestStore_CreateDraftAndPublished(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	c := pages(t, store)

	draft, err := c.Create(ctx, map[string]any{"title": "Draft"}, ports.WriteOptions{})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if draft.ID != "doc-1" || draft.Status != document.StatusDraft {
		t.Errorf("draft = %+v", draft)
	}

	pub, err := c.Create(ctx, map[string]any{"title": "Live"}, ports.WriteOptions{Publish: true})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if pub.Status != document.StatusPublished || pub.PublishedAt == nil {
		t.Errorf("published = %+v", pub)
	}

	got, err := c.FindByID(ctx, draft.ID, ports.FindOptions{Perspective: document.PerspectivePublished})
	if err != nil || got != nil {
		t.Errorf("draft should be invisible in published perspective: %+v, %v", got, err)
	}

	got, _ = c.FindByID(ctx, draft.ID, ports.FindOptions{Perspective: document.PerspectiveDraft})
	if got == nil || got.Fields["title"] != "Draft" {
		t.Errorf("draft perspective = %+v", got)
	}
}

func TestStore_CreateValidates(t *testing.T) {
	store, _ := newStore(t)
	c := pages(t, store)

	_, err := c.Create(context.Background(), map[string]any{"views": 1.0}, ports.WriteOptions{})
	var verr *document.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if store.Len(context.Background()) != 0 {
		t.Error("invalid document was stored")
	}
}

func TestStore_UpdatePublishUnpublish(t *testing.T) {
	store, clk := newStore(t)
	ctx := context.Background()
	c := pages(t, store)

	doc, _ := c.Create(ctx, map[string]any{"title": "A", "views": 1.0}, ports.WriteOptions{Publish: true})

	clk.Advance(time.Minute)
	updated, err := c.Update(ctx, doc.ID, map[string]any{"title": "B"}, ports.WriteOptions{})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Fields["title"] != "B" || updated.Fields["views"] != 1.0 {
		t.Errorf("updated fields = %v", updated.Fields)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Error("UpdatedAt not advanced")
	}

	live, _ := c.FindByID(ctx, doc.ID, ports.FindOptions{Perspective: document.PerspectivePublished})
	if live.Fields["title"] != "A" {
		t.Errorf("published title = %v, want A", live.Fields["title"])
	}

	if _, err := c.Publish(ctx, doc.ID); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	live, _ = c.FindByID(ctx, doc.ID, ports.FindOptions{Perspective: document.PerspectivePublished})
	if live.Fields["title"] != "B" {
		t.Errorf("published title after publish = %v, want B", live.Fields["title"])
	}

	un, err := c.Unpublish(ctx, doc.ID)
	if err != nil || un.Status != document.StatusDraft {
		t.Fatalf("Unpublish = %+v, %v", un, err)
	}
	live, _ = c.FindByID(ctx, doc.ID, ports.FindOptions{Perspective: document.PerspectivePublished})
	if live != nil {
		t.Error("unpublished document still visible")
	}
}

func TestStore_MissingDocument(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	c := pages(t, store)

	if d, err := c.Update(ctx, "nope", map[string]any{"title": "x"}, ports.WriteOptions{}); d != nil || err != nil {
		t.Errorf("Update missing = %+v, %v", d, err)
	}
	if d, err := c.Publish(ctx, "nope"); d != nil || err != nil {
		t.Errorf("Publish missing = %+v, %v", d, err)
	}
	if ok, err := c.Delete(ctx, "nope"); ok || err != nil {
		t.Errorf("Delete missing = %v, %v", ok, err)
	}
}

func TestStore_CollectionsAreTypeScoped(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	authors, _ := store.Collection(testType(t, "author"))
	a, _ := authors.Create(ctx, map[string]any{"name": "Ann"}, ports.WriteOptions{Publish: true})

	if d, _ := pages(t, store).FindByID(ctx, a.ID, ports.FindOptions{}); d != nil {
		t.Error("page collection returned an author")
	}

	row, err := store.Lookup(ctx, a.ID)
	if err != nil || row == nil || row.Type != "author" {
		t.Errorf("Lookup = %+v, %v", row, err)
	}
}

func TestStore_Find(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	c := pages(t, store)

	for i, title := range []string{"Gamma", "Alpha", "Beta", "Delta"} {
		publish := i%2 == 0
		if _, err := c.Create(ctx, map[string]any{"title": title, "views": float64(i)}, ports.WriteOptions{Publish: publish}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts ports.QueryOptions
		want string
	}{
		{"published only", ports.QueryOptions{Perspective: document.PerspectivePublished, Sort: "title"}, "Beta,Gamma"},
		{"draft sees all", ports.QueryOptions{Perspective: document.PerspectiveDraft, Sort: "title"}, "Alpha,Beta,Delta,Gamma"},
		{"descending", ports.QueryOptions{Perspective: document.PerspectiveDraft, Sort: "-views"}, "Delta,Beta,Alpha,Gamma"},
		{"window", ports.QueryOptions{Perspective: document.PerspectiveDraft, Sort: "title", Offset: 1, Limit: 2}, "Beta,Delta"},
		{
			"where status draft",
			ports.QueryOptions{
				Perspective: document.PerspectiveDraft,
				Sort:        "title",
				Where:       where.Translate(map[string]any{"status": "draft"}),
			},
			"Alpha,Delta",
		},
		{
			"where like",
			ports.QueryOptions{
				Perspective: document.PerspectiveDraft,
				Where:       where.Translate(map[string]any{"title": map[string]any{"like": "%ta"}}),
				Sort:        "title",
			},
			"Beta,Delta",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := c.Find(ctx, tt.opts)
			if err != nil {
				t.Fatalf("Find failed: %v", err)
			}
			var titles []string
			for _, d := range docs {
				titles = append(titles, d.Fields["title"].(string))
			}
			if got := strings.Join(titles, ","); got != tt.want {
				t.Errorf("Find = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestStore_TenantIsolation(t *testing.T) {
	store, _ := newStore(t)
	c := pages(t, store)

	acme := tenant.With(context.Background(), "acme")
	doc, _ := c.Create(acme, map[string]any{"title": "Acme only"}, ports.WriteOptions{Publish: true})

	other := tenant.With(context.Background(), "globex")
	if d, _ := c.FindByID(other, doc.ID, ports.FindOptions{}); d != nil {
		t.Error("document leaked across tenants")
	}
	if row, _ := store.Lookup(other, doc.ID); row != nil {
		t.Error("Lookup leaked across tenants")
	}
	docs, _ := c.Find(other, ports.QueryOptions{})
	if len(docs) != 0 {
		t.Errorf("Find leaked %d documents", len(docs))
	}
}

func TestStore_ReturnedDocumentsAreDetached(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()
	c := pages(t, store)

	doc, _ := c.Create(ctx, map[string]any{"title": "A"}, ports.WriteOptions{})
	doc.Fields["title"] = "mutated"

	again, _ := c.FindByID(ctx, doc.ID, ports.FindOptions{Perspective: document.PerspectiveDraft})
	if again.Fields["title"] != "A" {
		t.Error("caller mutation reached the store")
	}
}
