package contact

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "astres/internal/domain/contact"
)

func TestFormRelay_Relay(t *testing.T) {
	var got http.Header
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		form = map[string]string{
			"name":     r.PostForm.Get("name"),
			"email":    r.PostForm.Get("email"),
			"message":  r.PostForm.Get("message"),
			"_subject": r.PostForm.Get("_subject"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	relay, err := NewFormRelay(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewFormRelay: %v", err)
	}
	msg := domain.Message{Name: "Alice", Email: "alice@example.com", Body: "Bonjour & merci"}
	if err := relay.Relay(context.Background(), msg); err != nil {
		t.Fatalf("Relay: %v", err)
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	want := map[string]string{"name": "Alice", "email": "alice@example.com", "message": "Bonjour & merci", "_subject": "Message de Alice"}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
}

func TestFormRelay_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"form not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	relay, _ := NewFormRelay(srv.URL, srv.Client())
	err := relay.Relay(context.Background(), domain.Message{Name: "A", Email: "a@b.fr", Body: "x"})
	if !errors.Is(err, ErrRelayRejected) {
		t.Fatalf("error = %v, want ErrRelayRejected", err)
	}
}

func TestNewFormRelay_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "ftp://relay.example/x", "https://"} {
		if _, err := NewFormRelay(u, nil); err == nil {
			t.Errorf("NewFormRelay(%q) expected error", u)
		}
	}
}
