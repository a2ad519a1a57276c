package platform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestClientSendsAuthHeader(t *testing.T) {
	var gotToken, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Auth-Token")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", zerolog.Nop())
	if _, err := c.ListAgents(context.Background()); err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if gotToken != "secret-token" {
		t.Errorf("X-Auth-Token = %q", gotToken)
	}
	if gotAccept != "application/json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"permission denied", http.StatusUnauthorized, `{"reason":"invalid token"}`, ErrPermission},
		{"forbidden", http.StatusForbidden, `{"reason":"missing acl"}`, ErrPermission},
		{"expired token", http.StatusUnauthorized, `{"reason":"Token Expired"}`, ErrTokenExpired},
		{"not found", http.StatusNotFound, ``, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "tok", zerolog.Nop())
			_, err := c.ListAgents(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClientGenericServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zerolog.Nop())
	_, err := c.ListAgents(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrPermission) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrTokenExpired) {
		t.Errorf("500 must not map onto the sentinel errors, got %v", err)
	}
}

func TestHasSessionTreats404AsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zerolog.Nop())
	active, err := c.HasSession(context.Background(), "user-x")
	if err != nil {
		t.Fatalf("HasSession: %v", err)
	}
	if active {
		t.Error("404 should mean no session")
	}
}

func TestLookupExtensionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", zerolog.Nop())
	_, err := c.LookupExtension(context.Background(), "9999")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
