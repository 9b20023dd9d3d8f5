package gqlerror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/artpar/contentgate/domain/document"
)

func TestBuilder(t *testing.T) {
	err := New(CodeBadRequest, "").
		Messagef("bad %s", "thing").
		Meta("field", "title").
		Build()

	if err.Error() != "bad thing" {
		t.Errorf("Error() = %q", err.Error())
	}

	ext := err.Extensions()
	if ext["code"] != "BAD_REQUEST" {
		t.Errorf("extensions.code = %v", ext["code"])
	}
	if ext["field"] != "title" {
		t.Errorf("extensions.field = %v", ext["field"])
	}
}

func TestNotFound(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		id       string
		wantMsg  string
	}{
		{"document", "page", "p1", `page with id "p1" was not found`},
		{"type", "ghost", "", `unknown document type "ghost"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NotFound(tt.typeName, tt.id)
			if err.Code != CodeNotFound {
				t.Errorf("Code = %v", err.Code)
			}
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	typed := BadRequest("data must be an object")
	verr := &document.ValidationError{Type: "page", Issues: []document.Issue{{Field: "title", Rule: "required", Message: "is required"}}}
	plain := errors.New("disk on fire")

	tests := []struct {
		name     string
		err      error
		wantCode Code
		wantMsg  string
	}{
		{"typed passes through", typed, CodeBadRequest, "data must be an object"},
		{"wrapped typed", fmt.Errorf("resolve: %w", typed), CodeBadRequest, "data must be an object"},
		{"validation", verr, CodeBadRequest, "invalid page: title: is required"},
		{"other", plain, CodeInternal, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := From(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}

	if From(typed) != typed {
		t.Error("typed error should be returned as is")
	}
	if !errors.Is(From(plain), plain) {
		t.Error("internal error should keep its cause")
	}
	if From(nil) != nil {
		t.Error("From(nil) should be nil")
	}
}

func TestStatusCode(t *testing.T) {
	if CodeNotFound.StatusCode() != http.StatusNotFound {
		t.Error("NOT_FOUND should map to 404")
	}
	if CodeInternal.StatusCode() != http.StatusInternalServerError {
		t.Error("INTERNAL_SERVER_ERROR should map to 500")
	}
}
