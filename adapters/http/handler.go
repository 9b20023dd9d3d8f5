// Package http serves the GraphQL API over HTTP.
package http

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/core/artifact"
	"github.com/artpar/contentgate/core/executable"
)

// MaxBodyBytes bounds the size of a GraphQL request body.
const MaxBodyBytes = 1 << 20

// ArtifactSource returns the artifact requests run against.
type ArtifactSource interface {
	Get() *artifact.Artifact
}

// errorBody is the GraphQL-shaped body of a request that never executed.
type errorBody struct {
	Errors []errorEntry `json:"errors"`
}

type errorEntry struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// GraphQLHandler executes GraphQL requests against the current artifact.
type GraphQLHandler struct {
	source ArtifactSource
	logger zerolog.Logger
}

// NewGraphQLHandler creates a GraphQL handler.
func NewGraphQLHandler(source ArtifactSource, logger zerolog.Logger) *GraphQLHandler {
	return &GraphQLHandler{source: source, logger: logger}
}

// ServeHTTP accepts GET with query parameters, and POST with either a JSON
// body or an application/graphql body.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a := h.source.Get()
	if a == nil {
		writeError(w, http.StatusServiceUnavailable, "schema not loaded", "UNAVAILABLE")
		return
	}

	req, err := decodeRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required", "BAD_REQUEST")
		return
	}

	res := executable.Execute(r.Context(), a.Schema, req)
	if res.HasErrors() {
		h.logger.Debug().
			Int("errors", len(res.Errors)).
			Str("operation", req.OperationName).
			Str("schema_version", a.Short()).
			Msg("graphql request returned errors")
	}

	w.Header().Set("X-Schema-Version", a.Version)
	writeJSON(w, http.StatusOK, res)
}

func decodeRequest(r *http.Request) (executable.Request, error) {
	var req executable.Request

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				return req, fmt.Errorf("invalid variables: %w", err)
			}
		}
		return req, nil

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
		if err != nil {
			return req, fmt.Errorf("read body: %w", err)
		}
		if len(body) > MaxBodyBytes {
			return req, fmt.Errorf("request body exceeds %d bytes", MaxBodyBytes)
		}

		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/graphql" {
			req.Query = string(body)
			return req, nil
		}

		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&req); err != nil {
			return req, fmt.Errorf("invalid request body: %w", err)
		}
		req.Variables = plainNumbers(req.Variables).(map[string]any)
		return req, nil
	}

	return req, fmt.Errorf("method %s not allowed", r.Method)
}

// plainNumbers turns json.Number values into int or float64 so GraphQL
// coercion sees the Go types it expects.
func plainNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = plainNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = plainNumbers(item)
		}
		return val
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return int(n)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	}
	return v
}

// SchemaHandler serves the SDL of the current artifact.
type SchemaHandler struct {
	source ArtifactSource
}

// NewSchemaHandler creates a schema handler.
func NewSchemaHandler(source ArtifactSource) *SchemaHandler {
	return &SchemaHandler{source: source}
}

func (h *SchemaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a := h.source.Get()
	if a == nil {
		http.Error(w, "schema not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Schema-Version", a.Version)
	io.WriteString(w, a.SDL)
}

// HealthHandler reports liveness and readiness.
type HealthHandler struct {
	source ArtifactSource
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(source ArtifactSource) *HealthHandler {
	return &HealthHandler{source: source}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness reports ready once a schema is loaded.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	a := h.source.Get()
	if a == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "schema not loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"schema_version": a.Version,
		"types":          a.Types,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorBody{Errors: []errorEntry{{
		Message:    message,
		Extensions: map[string]any{"code": code},
	}}})
}
