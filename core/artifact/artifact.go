// Package artifact compiles a schema set into everything the API serves:
// the SDL text, the resolver map and the executable schema. An artifact is
// keyed by a content hash of the canonical schema.
package artifact

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/blake2b"

	"github.com/artpar/contentgate/core/convention"
	"github.com/artpar/contentgate/core/executable"
	"github.com/artpar/contentgate/core/resolver"
	"github.com/artpar/contentgate/core/schema"
	"github.com/artpar/contentgate/core/sdl"
	"github.com/artpar/contentgate/ports"
)

// Artifact is one compiled schema generation. It is immutable once built.
type Artifact struct {
	Version   string
	SDL       string
	Set       *schema.Set
	Resolvers *resolver.Map
	Types     int
	Schema    graphql.Schema
	BuiltAt   time.Time
}

// Deps carries what resolvers need at runtime.
type Deps struct {
	Store    ports.DocumentStore
	Logger   zerolog.Logger
	Metrics  ports.ResolverMetrics
	Defaults resolver.Defaults
	Clock    ports.Clock
}

// Version returns the content hash of set.
func Version(set *schema.Set) (string, error) {
	data, err := set.Canonical()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Build compiles set. The SDL and the resolvers draw synthesized names
// from one namer so they agree.
func Build(set *schema.Set, deps Deps) (*Artifact, error) {
	version, err := Version(set)
	if err != nil {
		return nil, err
	}

	namer, err := convention.NewNamer(set)
	if err != nil {
		return nil, err
	}

	source, err := sdl.CompileWith(set, namer)
	if err != nil {
		return nil, fmt.Errorf("compile sdl: %w", err)
	}

	m, err := resolver.Build(set, namer, resolver.Deps{
		Store:    deps.Store,
		Logger:   deps.Logger,
		Metrics:  deps.Metrics,
		Defaults: deps.Defaults,
	})
	if err != nil {
		return nil, fmt.Errorf("build resolvers: %w", err)
	}

	s, err := executable.Build(source, m, deps.Logger)
	if err != nil {
		return nil, err
	}

	builtAt := time.Now().UTC()
	if deps.Clock != nil {
		builtAt = deps.Clock.Now()
	}

	for _, u := range set.Unresolved() {
		deps.Logger.Warn().Str("ref", u.String()).Msg("unresolved type reference")
	}

	return &Artifact{
		Version:   version,
		SDL:       source,
		Set:       set,
		Resolvers: m,
		Types:     set.Len(),
		Schema:    s,
		BuiltAt:   builtAt,
	}, nil
}

// Short returns the leading characters of the version for logs.
func (a *Artifact) Short() string {
	if len(a.Version) > 12 {
		return a.Version[:12]
	}
	return a.Version
}
