// Package document provides the stored document row contract and pure functions over it.
package document

import (
	"fmt"
	"strings"
	"time"
)

// ContractVersion identifies the shape of Document and Row.
// Stores declare the version they produce; see ports.DocumentStore.
const ContractVersion = 1

// Perspective selects which payload of a document is visible.
type Perspective string

const (
	PerspectiveDraft     Perspective = "draft"
	PerspectivePublished Perspective = "published"
)

// ParsePerspective parses a perspective name.
func ParsePerspective(s string) (Perspective, bool) {
	switch Perspective(s) {
	case PerspectiveDraft, PerspectivePublished:
		return Perspective(s), true
	default:
		return "", false
	}
}

// Status is the lifecycle state of a document.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Document is a single stored document as seen through one perspective
// (immutable value type).
type Document struct {
	ID          string
	Type        string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time

	// Fields holds the schema-shaped payload.
	Fields map[string]any

	// Meta holds store-internal bookkeeping. It never reaches API payloads.
	Meta map[string]any
}

// Row is a raw stored record carrying both payloads.
type Row struct {
	ID          string
	Type        string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time

	DraftData     map[string]any
	PublishedData map[string]any
}

// Data returns the payload visible through the perspective, or nil.
func (r *Row) Data(p Perspective) map[string]any {
	if r == nil {
		return nil
	}
	if p == PerspectiveDraft {
		return r.DraftData
	}
	return r.PublishedData
}

// View returns the document as seen through the perspective.
// Returns nil when that payload does not exist.
// This is a PURE function.
func (r *Row) View(p Perspective) *Document {
	data := r.Data(p)
	if data == nil {
		return nil
	}
	status := r.Status
	if p == PerspectivePublished {
		status = StatusPublished
	}
	return &Document{
		ID:          r.ID,
		Type:        r.Type,
		Status:      status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		PublishedAt: r.PublishedAt,
		Fields:      data,
	}
}

// Issue describes one failed validation rule.
type Issue struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Field, i.Message)
}

// ValidationError reports document data rejected by field validation.
type ValidationError struct {
	Type   string
	Issues []Issue
}

// Error returns a combined error message.
func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		msgs = append(msgs, i.String())
	}
	return fmt.Sprintf("invalid %s: %s", e.Type, strings.Join(msgs, "; "))
}
