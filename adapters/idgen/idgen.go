// Package idgen provides document ID generators.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/contentgate/ports"
	"github.com/google/uuid"
)

// UUID generates time-ordered UUIDs (version 7), so ids sort roughly by
// creation time in both stores.
type UUID struct{}

// New generates a new UUID. It falls back to a random v4 UUID if the v7
// generator fails.
func (UUID) New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Ensure interface compliance.
var _ ports.IDGenerator = UUID{}

// Sequential generates predictable ids such as "page-1", "page-2" (for testing).
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Ensure interface compliance.
var _ ports.IDGenerator = (*Sequential)(nil)
