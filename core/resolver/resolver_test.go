package resolver

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/adapters/idgen"
	"github.com/artpar/contentgate/adapters/memory"
	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/pkg/gqlerror"
	"github.com/artpar/contentgate/ports"
)

func testSet(t *testing.T) *schema.Set {
	t.Helper()
	set, err := schema.NewSet(
		schema.SchemaType{Kind: schema.KindDocument, Name: "page", Fields: []schema.Field{
			{Name: "title", Type: schema.FieldTypeString, Validation: []schema.Rule{{Rule: "required"}}},
			{Name: "author", Type: schema.FieldTypeReference, To: []schema.TypeReference{{Type: "author"}}},
			{Name: "editor", Type: schema.FieldTypeReference, To: []schema.TypeReference{{Type: "author"}}},
			{Name: "tags", Type: schema.FieldTypeArray, Of: []schema.TypeReference{{Type: "string"}}},
			{Name: "content", Type: schema.FieldTypeArray, Of: []schema.TypeReference{{Type: "textBlock"}, {Type: "quote"}}},
			{Name: "seo", Type: schema.FieldTypeObject, Fields: []schema.Field{
				{Name: "reviewer", Type: schema.FieldTypeReference, To: []schema.TypeReference{{Type: "author"}}},
			}},
		}},
		schema.SchemaType{Kind: schema.KindDocument, Name: "author", Fields: []schema.Field{
			{Name: "name", Type: schema.FieldTypeString},
			{Name: "mentor", Type: schema.FieldTypeReference, To: []schema.TypeReference{{Type: "author"}}},
		}},
		schema.SchemaType{Kind: schema.KindObject, Name: "textBlock", Fields: []schema.Field{
			{Name: "body", Type: schema.FieldTypeText},
		}},
		schema.SchemaType{Kind: schema.KindObject, Name: "quote", Fields: []schema.Field{
			{Name: "by", Type: schema.FieldTypeReference, To: []schema.TypeReference{{Type: "author"}}},
		}},
	)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

type fakeMetrics struct {
	mu       sync.Mutex
	resolves int
	failures int
}

func (m *fakeMetrics) ObserveResolve(string, string, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolves++
}

func (m *fakeMetrics) ReferenceFailed(string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}

type fixture struct {
	set     *schema.Set
	store   *memory.Store
	m       *Map
	metrics *fakeMetrics
}

func newFixture(t *testing.T, store ports.DocumentStore) *fixture {
	t.Helper()
	set := testSet(t)
	mem := memory.New(memory.WithIDGenerator(idgen.NewSequential("doc-")))
	if store == nil {
		store = mem
	}

	namer, err := convention.NewNamer(set)
	if err != nil {
		t.Fatal(err)
	}
	metrics := &fakeMetrics{}
	m, err := Build(set, namer, Deps{Store: store, Logger: zerolog.Nop(), Metrics: metrics})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return &fixture{set: set, store: mem, m: m, metrics: metrics}
}

func (fx *fixture) call(t *testing.T, typeName, field string, args map[string]any) (any, error) {
	t.Helper()
	fn := fx.m.Field(typeName, field)
	if fn == nil {
		t.Fatalf("no resolver for %s.%s", typeName, field)
	}
	return fn(graphql.ResolveParams{Context: context.Background(), Args: args})
}

func (fx *fixture) create(t *testing.T, typeName string, data map[string]any, publish bool) map[string]any {
	t.Helper()
	out, err := fx.call(t, MutationType, convention.Root(typeName).Create, map[string]any{"data": data, "publish": publish})
	if err != nil {
		t.Fatalf("create %s failed: %v", typeName, err)
	}
	return out.(map[string]any)
}

func (fx *fixture) ref(t *testing.T, typeName, field string, src map[string]any) any {
	t.Helper()
	fn := fx.m.Field(typeName, field)
	if fn == nil {
		t.Fatalf("no reference resolver for %s.%s", typeName, field)
	}
	out, err := fn(graphql.ResolveParams{Context: context.Background(), Source: src})
	if err != nil {
		t.Fatalf("reference resolver returned error: %v", err)
	}
	return out
}

func TestBuildRegistersResolvers(t *testing.T) {
	fx := newFixture(t, nil)

	for _, field := range []string{"page", "allPage", "author", "allAuthor"} {
		if fx.m.Field(QueryType, field) == nil {
			t.Errorf("missing Query.%s", field)
		}
	}
	for _, field := range []string{"createPage", "updatePage", "deletePage", "publishPage", "unpublishPage"} {
		if fx.m.Field(MutationType, field) == nil {
			t.Errorf("missing Mutation.%s", field)
		}
	}

	refs := []struct{ typeName, field string }{
		{"Page", "author"},
		{"Page", "editor"},
		{"Author", "mentor"},
		{"Quote", "by"},
		{"PageSeoObject", "reviewer"},
	}
	for _, r := range refs {
		if fx.m.Field(r.typeName, r.field) == nil {
			t.Errorf("missing reference resolver %s.%s", r.typeName, r.field)
		}
	}

	if _, ok := fx.m.Unions["PageContentItem"]; !ok {
		t.Error("missing PageContentItem union resolver")
	}
}

func TestBuildRequiresStore(t *testing.T) {
	set := testSet(t)
	namer, _ := convention.NewNamer(set)
	if _, err := Build(set, namer, Deps{}); err == nil {
		t.Error("expected error without a store")
	}
}

func TestCreateStatus(t *testing.T) {
	fx := newFixture(t, nil)

	published := fx.create(t, "page", map[string]any{"title": "Live"}, true)
	if published["status"] != "published" || published["publishedAt"] == nil {
		t.Errorf("published payload = %v", published)
	}

	out, err := fx.call(t, MutationType, "createPage", map[string]any{"data": map[string]any{"title": "Draft"}})
	if err != nil {
		t.Fatal(err)
	}
	draft := out.(map[string]any)
	if draft["status"] != "draft" || draft["publishedAt"] != nil {
		t.Errorf("draft payload = %v", draft)
	}
	if draft["id"] == "" || draft["type"] != "page" || draft["createdAt"] == nil {
		t.Errorf("envelope = %v", draft)
	}
	if _, ok := draft["Meta"]; ok {
		t.Error("store metadata leaked into payload")
	}
	for _, field := range []string{"tags", "content"} {
		if list, ok := draft[field].([]any); !ok || len(list) != 0 {
			t.Errorf("absent %s = %#v, want []", field, draft[field])
		}
	}
}

func TestMutationErrors(t *testing.T) {
	fx := newFixture(t, nil)

	tests := []struct {
		name     string
		field    string
		args     map[string]any
		wantCode gqlerror.Code
	}{
		{"validation", "createPage", map[string]any{"data": map[string]any{}}, gqlerror.CodeBadRequest},
		{"non-object data", "createPage", map[string]any{"data": "nope"}, gqlerror.CodeBadRequest},
		{"update missing", "updatePage", map[string]any{"id": "ghost", "data": map[string]any{"title": "x"}}, gqlerror.CodeNotFound},
		{"publish missing", "publishPage", map[string]any{"id": "ghost"}, gqlerror.CodeNotFound},
		{"unpublish missing", "unpublishPage", map[string]any{"id": "ghost"}, gqlerror.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.call(t, MutationType, tt.field, tt.args)
			var gqlErr *gqlerror.Error
			if !errors.As(err, &gqlErr) {
				t.Fatalf("expected gqlerror, got %v", err)
			}
			if gqlErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", gqlErr.Code, tt.wantCode)
			}
		})
	}

	if fx.metrics.resolves != len(tests) {
		t.Errorf("observed %d resolves, want %d", fx.metrics.resolves, len(tests))
	}
}

func TestDeleteReportsSuccess(t *testing.T) {
	fx := newFixture(t, nil)
	page := fx.create(t, "page", map[string]any{"title": "A"}, false)

	out, err := fx.call(t, MutationType, "deletePage", map[string]any{"id": page["id"]})
	if err != nil || out.(map[string]any)["success"] != true {
		t.Errorf("delete = %v, %v", out, err)
	}
	out, _ = fx.call(t, MutationType, "deletePage", map[string]any{"id": page["id"]})
	if out.(map[string]any)["success"] != false {
		t.Errorf("second delete = %v", out)
	}
}

// refusingStore serves no collections.
type refusingStore struct {
	ports.DocumentStore
}

func (refusingStore) Collection(schema.SchemaType) (ports.Collection, bool) {
	return nil, false
}

func TestUnknownCollection(t *testing.T) {
	fx := newFixture(t, refusingStore{})

	_, err := fx.call(t, QueryType, "page", map[string]any{"id": "x"})
	var gqlErr *gqlerror.Error
	if !errors.As(err, &gqlErr) || gqlErr.Code != gqlerror.CodeNotFound {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

// recordingStore remembers the types its collections were opened with.
type recordingStore struct {
	ports.DocumentStore
	opened []schema.SchemaType
}

func (r *recordingStore) Collection(st schema.SchemaType) (ports.Collection, bool) {
	r.opened = append(r.opened, st)
	return r.DocumentStore.Collection(st)
}

func TestCollectionUsesBuiltSchema(t *testing.T) {
	rec := &recordingStore{DocumentStore: memory.New()}
	fx := newFixture(t, rec)

	if _, err := fx.call(t, MutationType, "createPage", map[string]any{"data": map[string]any{"title": "A"}}); err != nil {
		t.Fatalf("createPage failed: %v", err)
	}
	want, _ := fx.set.Lookup("page")
	if len(rec.opened) != 1 || !reflect.DeepEqual(rec.opened[0], want) {
		t.Errorf("opened = %+v, want the page type of the built set", rec.opened)
	}
}

func TestSingleRespectsPerspective(t *testing.T) {
	fx := newFixture(t, nil)
	draft := fx.create(t, "page", map[string]any{"title": "Draft"}, false)

	out, err := fx.call(t, QueryType, "page", map[string]any{"id": draft["id"]})
	if err != nil || out != nil {
		t.Errorf("default perspective should hide drafts: %v, %v", out, err)
	}

	out, err = fx.call(t, QueryType, "page", map[string]any{"id": draft["id"], "perspective": "draft"})
	if err != nil || out == nil {
		t.Fatalf("draft perspective = %v, %v", out, err)
	}
	payload := out.(map[string]any)
	if payload["title"] != "Draft" {
		t.Errorf("title = %v", payload["title"])
	}
	if scope := payload[ScopeKey].(Scope); scope.Perspective != document.PerspectiveDraft || scope.Depth != 2 {
		t.Errorf("scope = %+v", scope)
	}

	ctx := WithPerspective(context.Background(), document.PerspectiveDraft)
	out, _ = fx.m.Field(QueryType, "page")(graphql.ResolveParams{Context: ctx, Args: map[string]any{"id": draft["id"]}})
	if out == nil {
		t.Error("request perspective should apply when no argument is given")
	}
}

func TestListWhereWindow(t *testing.T) {
	fx := newFixture(t, nil)
	for i, title := range []string{"A", "B", "C", "D", "E"} {
		fx.create(t, "page", map[string]any{"title": title}, i == 0)
	}

	out, err := fx.call(t, QueryType, "allPage", map[string]any{
		"perspective": "draft",
		"where":       map[string]any{"status": map[string]any{"equals": "draft"}},
		"sort":        "title",
		"limit":       2,
		"offset":      1,
	})
	if err != nil {
		t.Fatalf("allPage failed: %v", err)
	}

	list := out.([]any)
	if len(list) != 2 {
		t.Fatalf("got %d results, want 2", len(list))
	}
	if a, b := list[0].(map[string]any)["title"], list[1].(map[string]any)["title"]; a != "C" || b != "D" {
		t.Errorf("titles = %v, %v; want C, D", a, b)
	}
}

func TestListEmptyIsNotNil(t *testing.T) {
	fx := newFixture(t, nil)
	out, err := fx.call(t, QueryType, "allPage", map[string]any{})
	if err != nil {
		t.Fatal(err)
	}
	if list, ok := out.([]any); !ok || list == nil || len(list) != 0 {
		t.Errorf("allPage = %#v, want empty list", out)
	}
}

func TestReferenceResolves(t *testing.T) {
	fx := newFixture(t, nil)
	mentor := fx.create(t, "author", map[string]any{"name": "Mentor"}, true)
	author := fx.create(t, "author", map[string]any{"name": "Ann", "mentor": mentor["id"]}, true)
	page := fx.create(t, "page", map[string]any{"title": "A", "author": author["id"], "editor": "ghost"}, true)

	got := fx.ref(t, "Page", "author", page)
	resolved, ok := got.(map[string]any)
	if !ok || resolved["name"] != "Ann" {
		t.Fatalf("author = %v", got)
	}
	if scope := resolved[ScopeKey].(Scope); scope.Depth != 1 {
		t.Errorf("nested depth = %d, want 1", scope.Depth)
	}

	// A missing target resolves to null; the sibling above was unaffected.
	if got := fx.ref(t, "Page", "editor", page); got != nil {
		t.Errorf("missing reference = %v, want nil", got)
	}

	// Depth 1 then 0: the mentor resolves, its own references do not.
	m := fx.ref(t, "Author", "mentor", resolved).(map[string]any)
	if m["name"] != "Mentor" {
		t.Errorf("mentor = %v", m)
	}
	exhausted := map[string]any{"mentor": mentor["id"], ScopeKey: Scope{Perspective: document.PerspectivePublished, Depth: 0}}
	if got := fx.ref(t, "Author", "mentor", exhausted); got != nil {
		t.Errorf("exhausted depth = %v, want nil", got)
	}
}

func TestReferenceFollowsPerspective(t *testing.T) {
	fx := newFixture(t, nil)
	author := fx.create(t, "author", map[string]any{"name": "Draft Ann"}, false)

	published := map[string]any{"author": author["id"], ScopeKey: Scope{Perspective: document.PerspectivePublished, Depth: 2}}
	if got := fx.ref(t, "Page", "author", published); got != nil {
		t.Errorf("draft author visible through published scope: %v", got)
	}

	draft := map[string]any{"author": author["id"], ScopeKey: Scope{Perspective: document.PerspectiveDraft, Depth: 2}}
	if got := fx.ref(t, "Page", "author", draft); got == nil {
		t.Error("draft author invisible through draft scope")
	}

	// Without a stamped scope, an explicit draft status on the parent applies.
	unstamped := map[string]any{"author": author["id"], "status": "draft"}
	if got := fx.ref(t, "Page", "author", unstamped); got == nil {
		t.Error("parent status should select the draft perspective")
	}
}

func TestReferenceScopeReachesNestedObjects(t *testing.T) {
	fx := newFixture(t, nil)
	author := fx.create(t, "author", map[string]any{"name": "Draft Ann"}, false)

	page := fx.create(t, "page", map[string]any{
		"title":   "A",
		"seo":     map[string]any{"reviewer": author["id"]},
		"content": []any{map[string]any{"_type": "quote", "by": author["id"]}},
	}, false)

	seo := page["seo"].(map[string]any)
	if got := fx.ref(t, "PageSeoObject", "reviewer", seo); got == nil {
		t.Error("inline object did not inherit the draft scope")
	}

	quote := page["content"].([]any)[0].(map[string]any)
	if got := fx.ref(t, "Quote", "by", quote); got == nil {
		t.Error("array element did not inherit the draft scope")
	}
}

type failingStore struct {
	ports.DocumentStore
}

func (failingStore) Lookup(context.Context, string) (*document.Row, error) {
	return nil, errors.New("connection reset")
}

func TestReferenceFailureResolvesNull(t *testing.T) {
	fx := newFixture(t, nil)
	fx2 := newFixture(t, failingStore{DocumentStore: fx.store})

	page := map[string]any{"author": "a1", "editor": "a2"}
	for _, field := range []string{"author", "editor"} {
		if got := fx2.ref(t, "Page", field, page); got != nil {
			t.Errorf("%s = %v, want nil", field, got)
		}
	}
	if fx2.metrics.failures != 2 {
		t.Errorf("failures = %d, want 2", fx2.metrics.failures)
	}
}

func TestUnionResolver(t *testing.T) {
	fx := newFixture(t, nil)
	resolve := fx.m.Unions["PageContentItem"]

	name, err := resolve(map[string]any{"_type": "textBlock"})
	if err != nil || name != "TextBlock" {
		t.Errorf("textBlock = %q, %v", name, err)
	}

	_, err = resolve(map[string]any{"_type": "video"})
	var unknown *UnknownVariantError
	if !errors.As(err, &unknown) || unknown.Tag != "video" || unknown.Union != "PageContentItem" {
		t.Errorf("unknown tag error = %v", err)
	}

	if _, err := resolve(map[string]any{}); err == nil {
		t.Error("missing tag should fail")
	}
}
