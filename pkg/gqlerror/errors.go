// Package gqlerror provides typed GraphQL API errors. Each error carries a
// machine-readable code that reaches clients as extensions.code.
package gqlerror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/artpar/contentgate/domain/document"
)

// Code classifies an API error.
type Code string

const (
	CodeNotFound   Code = "NOT_FOUND"
	CodeBadRequest Code = "BAD_REQUEST"
	CodeInternal   Code = "INTERNAL_SERVER_ERROR"
)

// StatusCode maps the code onto the closest HTTP status.
func (c Code) StatusCode() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is an API error with a code and optional extension metadata.
type Error struct {
	Code    Code
	Message string
	Meta    map[string]any

	cause error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Extensions implements graphql-go's ExtendedError.
func (e *Error) Extensions() map[string]any {
	ext := make(map[string]any, len(e.Meta)+1)
	for k, v := range e.Meta {
		ext[k] = v
	}
	ext["code"] = string(e.Code)
	return ext
}

// Builder provides a fluent API for building Error values.
type Builder struct {
	err Error
}

// New creates a Builder with the given code and message.
func New(code Code, message string) *Builder {
	return &Builder{err: Error{Code: code, Message: message}}
}

// Messagef sets the message with formatting.
func (b *Builder) Messagef(format string, args ...any) *Builder {
	b.err.Message = fmt.Sprintf(format, args...)
	return b
}

// Meta adds an extension entry.
func (b *Builder) Meta(key string, value any) *Builder {
	if b.err.Meta == nil {
		b.err.Meta = make(map[string]any)
	}
	b.err.Meta[key] = value
	return b
}

// Cause records the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.cause = err
	return b
}

// Build returns the constructed Error.
func (b *Builder) Build() *Error {
	e := b.err
	return &e
}

// Common error constructors

// NotFound reports a missing document or document type.
func NotFound(typeName, id string) *Error {
	b := New(CodeNotFound, "")
	if id == "" {
		return b.Messagef("unknown document type %q", typeName).Meta("type", typeName).Build()
	}
	return b.Messagef("%s with id %q was not found", typeName, id).
		Meta("type", typeName).
		Meta("id", id).
		Build()
}

// BadRequest reports invalid client input.
func BadRequest(message string) *Error {
	return New(CodeBadRequest, message).Build()
}

// Internal wraps an unexpected failure. The cause stays out of the message.
func Internal(err error) *Error {
	return New(CodeInternal, "internal server error").Cause(err).Build()
}

// From converts any error into an API error. Typed errors pass through
// unchanged and validation failures become BAD_REQUEST with their issues
// attached.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}

	var verr *document.ValidationError
	if errors.As(err, &verr) {
		return New(CodeBadRequest, verr.Error()).
			Meta("issues", verr.Issues).
			Cause(err).
			Build()
	}

	return Internal(err)
}
