package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NotFound("AI system", "x"), CodeNotFound},
		{Conflict("duplicate name"), CodeConflict},
		{InvalidTransition("draft", "active"), CodeInvalidTransition},
		{Forbidden("ADMIN", "COMPLIANCE"), CodeForbidden},
		{UnsupportedCondition("x ~= y", "operator"), CodeUnsupportedCondition},
		{Validation("name", "must not be empty"), CodeValidation},
		{errors.New("disk on fire"), ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestCodeOfWrapped(t *testing.T) {
	err := fmt.Errorf("activate prompt: %w", Conflict("change request not approved"))
	if got := CodeOf(err); got != CodeConflict {
		t.Errorf("CodeOf(wrapped) = %q, want %q", got, CodeConflict)
	}
	if got := StatusOf(err); got != http.StatusConflict {
		t.Errorf("StatusOf(wrapped) = %d", got)
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("incident", "x"), http.StatusNotFound},
		{Conflict("already linked"), http.StatusConflict},
		{InvalidTransition("rejected", "approved"), http.StatusConflict},
		{Forbidden("COMPLIANCE"), http.StatusForbidden},
		{UnsupportedCondition("...", ""), http.StatusUnprocessableEntity},
		{Validation("role", "unknown"), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorTyped(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, InvalidTransition("draft", "active"))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != CodeInvalidTransition {
		t.Errorf("error code = %q", body.Error)
	}
	if body.Message != "invalid transition: draft -> active" {
		t.Errorf("message = %q", body.Message)
	}
}

func TestWriteErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused at 10.0.0.5"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "INTERNAL" || body.Message != "internal error" {
		t.Errorf("body = %+v, internals leaked", body)
	}
}
