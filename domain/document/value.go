package document

import (
	"sort"
	"strings"
	"time"
)

// Envelope field names exposed alongside schema fields.
const (
	FieldID          = "id"
	FieldType        = "type"
	FieldStatus      = "status"
	FieldCreatedAt   = "createdAt"
	FieldUpdatedAt   = "updatedAt"
	FieldPublishedAt = "publishedAt"
)

// EnvelopeFields lists the envelope fields in API order.
var EnvelopeFields = []string{FieldID, FieldType, FieldStatus, FieldCreatedAt, FieldUpdatedAt, FieldPublishedAt}

// IsEnvelopeField reports whether name is an envelope field.
func IsEnvelopeField(name string) bool {
	for _, f := range EnvelopeFields {
		if f == name {
			return true
		}
	}
	return false
}

// TimeLayout is RFC 3339 with a fixed microsecond fraction, so formatted
// timestamps order correctly as strings.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTime renders a timestamp the way the API and stores expose it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Value returns an envelope or payload field. Timestamps are rendered with
// FormatTime so they compare and sort as strings.
func (d *Document) Value(field string) (any, bool) {
	switch field {
	case FieldID:
		return d.ID, true
	case FieldType:
		return d.Type, true
	case FieldStatus:
		return string(d.Status), true
	case FieldCreatedAt:
		return FormatTime(d.CreatedAt), true
	case FieldUpdatedAt:
		return FormatTime(d.UpdatedAt), true
	case FieldPublishedAt:
		if d.PublishedAt == nil {
			return nil, false
		}
		return FormatTime(*d.PublishedAt), true
	}
	v, ok := d.Fields[field]
	return v, ok
}

// ParseSort splits a sort argument into a field and direction.
// "-title" sorts by title descending. Empty input sorts by createdAt.
func ParseSort(s string) (field string, desc bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		desc = true
		s = s[1:]
	}
	if s == "" {
		s = FieldCreatedAt
	}
	return s, desc
}

// Sort orders docs by the sort argument. Missing values sort last in
// either direction and ties break by id.
func Sort(docs []Document, order string) {
	field, desc := ParseSort(order)
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Value(field)
		b, bok := docs[j].Value(field)
		if a == nil {
			aok = false
		}
		if b == nil {
			bok = false
		}
		switch {
		case !aok && !bok:
			return docs[i].ID < docs[j].ID
		case !aok:
			return false
		case !bok:
			return true
		}
		c := compare(a, b)
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b any) int {
	fa, aNum := number(a)
	fb, bNum := number(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			}
			return 1
		}
	}
	sa, _ := a.(string)
	sb, _ := b.(string)
	return strings.Compare(sa, sb)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Window applies offset and limit. A zero limit means no limit.
func Window(docs []Document, offset, limit int) []Document {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(docs) {
		return []Document{}
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}
