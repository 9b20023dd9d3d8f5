package artifact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/adapters/clock"
	"github.com/artpar/contentgate/adapters/memory"
	"github.com/artpar/contentgate/core/executable"
	"github.com/artpar/contentgate/core/schema"
)

const pageYAML = `
types:
  - kind: document
    name: page
    fields:
      - name: title
        type: string
`

const pageWithSlugYAML = `
types:
  - kind: document
    name: page
    fields:
      - name: title
        type: string
      - name: slug
        type: slug
`

func writeSchema(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "page.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
}

type compileMetrics struct {
	mu     sync.Mutex
	ok     int
	failed int
	types  int
}

func (m *compileMetrics) SchemaCompiled(err error, types int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failed++
		return
	}
	m.ok++
	m.types = types
}

func newHolder(t *testing.T, dir string, opts ...Option) *Holder {
	t.Helper()
	h := NewHolder(dir, Deps{Store: memory.New(), Logger: zerolog.Nop()}, opts...)
	t.Cleanup(h.Stop)
	return h
}

func TestBuild(t *testing.T) {
	types, err := schema.Parse([]byte(pageYAML))
	if err != nil {
		t.Fatal(err)
	}
	set, err := schema.NewSet(types...)
	if err != nil {
		t.Fatal(err)
	}

	fake := clock.NewFake(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	a, err := Build(set, Deps{Store: memory.New(), Logger: zerolog.Nop(), Clock: fake})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(a.Version) != 64 {
		t.Errorf("Version = %q, want 64 hex chars", a.Version)
	}
	if a.Short() != a.Version[:12] {
		t.Errorf("Short = %q", a.Short())
	}
	if !strings.Contains(a.SDL, "type Page {") {
		t.Errorf("SDL missing Page:\n%s", a.SDL)
	}
	if a.Types != 1 || !a.BuiltAt.Equal(fake.Now()) {
		t.Errorf("Types = %d, BuiltAt = %v", a.Types, a.BuiltAt)
	}
	if a.Resolvers.Field("Query", "allPage") == nil {
		t.Error("resolvers not attached")
	}

	res := executable.Execute(context.Background(), a.Schema, executable.Request{Query: `{ allPage { id } }`})
	if res.HasErrors() {
		t.Errorf("query failed: %v", res.Errors)
	}
}

func TestVersionIsContentHash(t *testing.T) {
	parse := func(src string) *schema.Set {
		types, err := schema.Parse([]byte(src))
		if err != nil {
			t.Fatal(err)
		}
		set, err := schema.NewSet(types...)
		if err != nil {
			t.Fatal(err)
		}
		return set
	}

	a, _ := Version(parse(pageYAML))
	b, _ := Version(parse(pageYAML))
	c, _ := Version(parse(pageWithSlugYAML))
	if a != b {
		t.Error("identical schemas hashed differently")
	}
	if a == c {
		t.Error("different schemas hashed the same")
	}
}

func TestHolderReload(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, pageYAML)

	metrics := &compileMetrics{}
	h := newHolder(t, dir, WithMetrics(metrics))

	if h.Get() != nil {
		t.Fatal("artifact present before first load")
	}

	swapped, err := h.Reload()
	if err != nil || !swapped {
		t.Fatalf("first Reload = %v, %v", swapped, err)
	}
	first := h.Get()
	if first == nil {
		t.Fatal("no artifact after Reload")
	}

	swapped, err = h.Reload()
	if err != nil || swapped {
		t.Errorf("unchanged Reload = %v, %v; want no swap", swapped, err)
	}
	if h.Get() != first {
		t.Error("unchanged reload replaced the artifact")
	}

	writeSchema(t, dir, pageWithSlugYAML)
	swapped, err = h.Reload()
	if err != nil || !swapped {
		t.Fatalf("changed Reload = %v, %v", swapped, err)
	}
	if h.Get().Version == first.Version {
		t.Error("version did not change")
	}

	if metrics.ok != 2 || metrics.failed != 0 || metrics.types != 1 {
		t.Errorf("metrics = %+v", metrics)
	}
}

const authorYAML = `
types:
  - kind: document
    name: author
    fields:
      - name: name
        type: string
`

func TestReloadedArtifactServesNewSchema(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, pageYAML)
	h := newHolder(t, dir)
	if _, err := h.Reload(); err != nil {
		t.Fatal(err)
	}

	var errs []string
	h.OnChange(func(a *Artifact) {
		for _, q := range []string{
			`mutation { createPage(data: {title: "A", slug: "a"}) { slug } }`,
			`mutation { createAuthor(data: {name: "Ann"}, publish: true) { id } }`,
			`{ allAuthor { name } }`,
		} {
			res := executable.Execute(context.Background(), a.Schema, executable.Request{Query: q})
			for _, e := range res.Errors {
				errs = append(errs, e.Message)
			}
		}
	})

	writeSchema(t, dir, pageWithSlugYAML)
	if err := os.WriteFile(filepath.Join(dir, "author.yaml"), []byte(authorYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if swapped, err := h.Reload(); err != nil || !swapped {
		t.Fatalf("Reload = %v, %v", swapped, err)
	}
	if len(errs) != 0 {
		t.Errorf("new artifact rejected requests for its own schema: %v", errs)
	}
}

func TestHolderReloadKeepsCurrentOnError(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, pageYAML)

	metrics := &compileMetrics{}
	h := newHolder(t, dir, WithMetrics(metrics))
	if _, err := h.Reload(); err != nil {
		t.Fatal(err)
	}
	good := h.Get()

	writeSchema(t, dir, "types:\n  - kind: document\n    name: page\n    fields: []\n")
	swapped, err := h.Reload()
	if err == nil || swapped {
		t.Fatalf("Reload = %v, %v; want error", swapped, err)
	}
	if h.Get() != good {
		t.Error("failed reload replaced the artifact")
	}
	if metrics.failed != 1 {
		t.Errorf("failed = %d, want 1", metrics.failed)
	}
}

func TestHolderReloadMissingDir(t *testing.T) {
	h := newHolder(t, filepath.Join(t.TempDir(), "missing"))
	_, err := h.Reload()
	var pathErr *os.PathError
	if !errors.As(err, &pathErr) {
		t.Errorf("err = %v, want a path error", err)
	}
}

func TestHolderWatch(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, pageYAML)

	h := newHolder(t, dir, WithDebounce(10*time.Millisecond))
	if _, err := h.Reload(); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Artifact, 1)
	h.OnChange(func(a *Artifact) {
		select {
		case changed <- a:
		default:
		}
	})

	if err := h.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	writeSchema(t, dir, pageWithSlugYAML)

	select {
	case a := <-changed:
		if !strings.Contains(a.SDL, "slug: String") {
			t.Errorf("reloaded SDL missing slug:\n%s", a.SDL)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not trigger a reload")
	}
}

func TestHolderConcurrentGet(t *testing.T) {
	dir := t.TempDir()
	writeSchema(t, dir, pageYAML)
	h := newHolder(t, dir)
	if _, err := h.Reload(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("Get returned nil")
					return
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		content := pageYAML
		if i%2 == 0 {
			content = pageWithSlugYAML
		}
		writeSchema(t, dir, content)
		if _, err := h.Reload(); err != nil {
			t.Errorf("Reload failed: %v", err)
		}
	}
	wg.Wait()
}
