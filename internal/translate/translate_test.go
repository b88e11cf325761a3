package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCode(t *testing.T) {
	cases := []struct {
		in   string
		code string
		ok   bool
	}{
		{"English", "en", true},
		{"Hindi", "hi", true},
		{"Spanish", "es", true},
		{"es", "es", true},
		{"Klingon", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		code, ok := Code(tc.in)
		if ok != tc.ok || code != tc.code {
			t.Errorf("Code(%q) = (%q, %v), want (%q, %v)", tc.in, code, ok, tc.code, tc.ok)
		}
	}
}

func TestPassthrough(t *testing.T) {
	out, err := Passthrough{}.Enrich(context.Background(), "hola", "es", "en")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hola" {
		t.Fatalf("expected content unchanged, got %q", out)
	}
}

func TestHTTPEnricher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Source != "en" || req.Target != "es" {
			t.Errorf("unexpected language pair %s->%s", req.Source, req.Target)
		}
		json.NewEncoder(w).Encode(translateResponse{Translated: "hola"})
	}))
	defer srv.Close()

	out, err := NewHTTPEnricher(srv.URL).Enrich(context.Background(), "hello", "en", "es")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hola" {
		t.Fatalf("expected hola, got %q", out)
	}
}

func TestHTTPEnricherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPEnricher(srv.URL).Enrich(context.Background(), "hello", "en", "fr"); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
