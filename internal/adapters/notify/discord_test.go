package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestParseWebhookURL(t *testing.T) {
	tests := []struct {
		raw       string
		wantID    string
		wantToken string
		wantErr   bool
	}{
		{"https://discord.com/api/webhooks/123/abc-DEF", "123", "abc-DEF", false},
		{"https://discord.com/api/v10/webhooks/123/abc/", "123", "abc", false},
		{"http://discord.com/api/webhooks/123/abc", "", "", true},
		{"https://discord.com/api/webhooks/123", "", "", true},
		{"not a url", "", "", true},
	}
	for _, tt := range tests {
		id, token, err := ParseWebhookURL(tt.raw)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidWebhookURL) {
				t.Errorf("ParseWebhookURL(%q) error = %v, want ErrInvalidWebhookURL", tt.raw, err)
			}
			continue
		}
		if err != nil || id != tt.wantID || token != tt.wantToken {
			t.Errorf("ParseWebhookURL(%q) = %q, %q, %v", tt.raw, id, token, err)
		}
	}
}

func TestBuildEmbed(t *testing.T) {
	n := Notice{
		Title:     "Nouvelle inscription",
		Body:      "Léa pour Bain sonore",
		Fields:    []Field{{"Email", "lea@example.com"}, {"Téléphone", ""}, {"Places", "3/10"}},
		Timestamp: time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC),
	}
	e := BuildEmbed(n)
	if e.Title != n.Title || e.Description != n.Body {
		t.Errorf("unexpected embed: %+v", e)
	}
	if len(e.Fields) != 2 {
		t.Errorf("fields = %d, want 2 (empty values skipped)", len(e.Fields))
	}
	if e.Timestamp != "2026-03-02T18:30:00Z" {
		t.Errorf("Timestamp = %q", e.Timestamp)
	}
}

func TestNoopNotifier(t *testing.T) {
	id, err := NoopNotifier{}.Notify(context.Background(), Notice{Title: "x"})
	if err != nil || id == "" {
		t.Errorf("Notify() = %q, %v", id, err)
	}
}
