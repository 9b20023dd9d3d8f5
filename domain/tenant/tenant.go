// Package tenant carries the tenancy scope of a request through context.
// The core never interprets it; stores use it to isolate data.
package tenant

import "context"

// Default is the tenant used when none is set.
const Default = "default"

type contextKey struct{}

// With returns a context scoped to the tenant.
func With(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, id)
}

// From returns the tenant of the context, or Default.
func From(ctx context.Context) string {
	if ctx == nil {
		return Default
	}
	if id, ok := ctx.Value(contextKey{}).(string); ok && id != "" {
		return id
	}
	return Default
}
