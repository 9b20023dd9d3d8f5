package document

import "time"

// NewRow builds a fresh row holding data as its draft. With publish set the
// draft is also copied to the published payload.
// This is a PURE function.
func NewRow(id, typeName string, data map[string]any, now time.Time, publish bool) *Row {
	r := &Row{
		ID:        id,
		Type:      typeName,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		DraftData: Clone(data),
	}
	if r.DraftData == nil {
		r.DraftData = map[string]any{}
	}
	if publish {
		r.Publish(now)
	}
	return r
}

// Merge returns the draft payload with data's keys applied over it.
// Neither input is modified.
func (r *Row) Merge(data map[string]any) map[string]any {
	merged := Clone(r.DraftData)
	if merged == nil {
		merged = make(map[string]any, len(data))
	}
	for k, v := range data {
		merged[k] = cloneValue(v)
	}
	return merged
}

// Apply replaces the draft with merged and updates status. Without publish
// the row becomes a draft; any published payload stays visible.
func (r *Row) Apply(merged map[string]any, now time.Time, publish bool) {
	r.DraftData = merged
	r.UpdatedAt = now
	if publish {
		r.Publish(now)
		return
	}
	r.Status = StatusDraft
}

// Publish copies the draft to the published payload.
func (r *Row) Publish(now time.Time) {
	r.PublishedData = Clone(r.DraftData)
	r.Status = StatusPublished
	r.UpdatedAt = now
	published := now
	r.PublishedAt = &published
}

// Unpublish clears the published payload.
func (r *Row) Unpublish(now time.Time) {
	r.PublishedData = nil
	r.PublishedAt = nil
	r.Status = StatusDraft
	r.UpdatedAt = now
}

// Clone deep-copies a payload. Maps and slices are copied, other values
// are shared.
func Clone(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return Clone(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
