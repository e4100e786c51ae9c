package email

import (
	"context"
	"errors"
	"testing"
)

func TestResendSender_Params(t *testing.T) {
	s := NewResendSender("re_test", "Son et Astres <contact@example.com>")

	p := s.params(SendRequest{To: []string{"a@example.com"}, Subject: "Hello", Text: "plain"})
	if p.From != "Son et Astres <contact@example.com>" {
		t.Errorf("From = %q, want default sender", p.From)
	}
	if p.Text != "plain" || p.Html != "" || p.ReplyTo != "" {
		t.Errorf("unexpected params: %+v", p)
	}

	p = s.params(SendRequest{To: []string{"a@example.com"}, From: "other@example.com", ReplyTo: "visitor@example.com"})
	if p.From != "other@example.com" || p.ReplyTo != "visitor@example.com" {
		t.Errorf("overrides not applied: %+v", p)
	}
}

func TestResendSender_NoRecipient(t *testing.T) {
	s := NewResendSender("re_test", "contact@example.com")
	if _, err := s.Send(context.Background(), SendRequest{Subject: "x"}); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("Send() error = %v, want ErrNoRecipient", err)
	}
}

func TestNoopSender(t *testing.T) {
	s := NewNoopSender()
	res, err := s.Send(context.Background(), SendRequest{To: []string{"a@example.com"}, Subject: "x"})
	if err != nil || res.MessageID == "" {
		t.Errorf("Send() = %+v, %v", res, err)
	}
	if s.Configured() {
		t.Error("noop sender must not report itself configured")
	}
}
