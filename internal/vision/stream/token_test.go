package stream

import (
	"testing"
	"time"
)

func TestIssueProducesValidatableToken(t *testing.T) {
	s := NewTokenStore()
	token, expiry, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(token) != tokenLength {
		t.Fatalf("token length = %d, want %d", len(token), tokenLength)
	}
	if !expiry.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}
	if !s.Validate(token, time.Now()) {
		t.Fatal("freshly issued token should validate")
	}
}

func TestValidateRejectsUnknownToken(t *testing.T) {
	s := NewTokenStore()
	if s.Validate("does-not-exist", time.Now()) {
		t.Fatal("unknown token should not validate")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	s := NewTokenStore()
	token, _, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	// Validate as of a time after the one-hour TTL.
	future := time.Now().Add(2 * time.Hour)
	if s.Validate(token, future) {
		t.Fatal("expected token to be expired after 2 hours")
	}
}

func TestJanitorRemovesExpiredEntriesOnly(t *testing.T) {
	s := NewTokenStore()
	expired, _, _ := s.Issue()
	fresh, _, _ := s.Issue()

	// Manually age the "expired" token past its TTL.
	s.mu.Lock()
	s.expiry[expired] = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	s.Janitor(time.Now())

	if s.Validate(expired, time.Now()) {
		t.Fatal("janitor should have removed the expired token")
	}
	if !s.Validate(fresh, time.Now()) {
		t.Fatal("janitor should not remove a still-valid token")
	}
}

func TestIssueGeneratesDistinctTokens(t *testing.T) {
	s := NewTokenStore()
	a, _, _ := s.Issue()
	b, _, _ := s.Issue()
	if a == b {
		t.Fatal("two successive Issue calls produced the same token")
	}
}
