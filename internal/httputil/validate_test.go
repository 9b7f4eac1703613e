package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type greeting struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func (g *greeting) Validate() error {
	var errs ValidationErrors
	errs.Check(g.Name != "", "name is required")
	errs.Check(g.Count > 0, "count must be positive")
	return errs.Err()
}

type brokenValidator struct{}

func (b *brokenValidator) Validate() error { return errors.New("boom") }

func serve(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestValidateBody_PassesDecodedBody(t *testing.T) {
	var got *greeting
	h := ValidateBody[greeting]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = BodyFromContext[greeting](r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(h, `{"name":"ana","count":2}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got == nil || got.Name != "ana" || got.Count != 2 {
		t.Fatalf("unexpected decoded body: %+v", got)
	}
}

func TestValidateBody_ListsAllIssues(t *testing.T) {
	h := ValidateBody[greeting]()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next must not run for an invalid body")
	}))

	rec := serve(h, `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "invalid request body" {
		t.Errorf("unexpected error: %q", resp["error"])
	}
	if resp["details"] != "name is required, count must be positive" {
		t.Errorf("unexpected details: %q", resp["details"])
	}
}

func TestValidateBody_MalformedJSON(t *testing.T) {
	h := ValidateBody[greeting]()(http.NotFoundHandler())
	rec := serve(h, `{"name":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidateBody_UnknownValidatorError(t *testing.T) {
	h := ValidateBody[brokenValidator]()(http.NotFoundHandler())
	rec := serve(h, `{}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}
