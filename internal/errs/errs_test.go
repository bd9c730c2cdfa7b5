package errs

import (
	"fmt"
	"testing"
)

func TestOfRecoversKind(t *testing.T) {
	err := New(Auth, "broker rejected credentials", nil)
	if got := Of(err); got != Auth {
		t.Fatalf("Of(err) = %v, want Auth", got)
	}
}

func TestOfReturnsUnknownForPlainError(t *testing.T) {
	err := fmt.Errorf("plain failure")
	if got := Of(err); got != Unknown {
		t.Fatalf("Of(plain error) = %v, want Unknown", got)
	}
}

func TestOfWalksWrappedCause(t *testing.T) {
	cause := New(TLS, "loading CA trust anchor", fmt.Errorf("no such file"))
	wrapped := New(Transport, "connect failed", cause)
	// wrapped's own kind should win; the chain-walk is over pkg/errors
	// Cause() links inside a single kindError, not across two.
	if got := Of(wrapped); got != Transport {
		t.Fatalf("Of(wrapped) = %v, want Transport", got)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := New(Device, "no wireless transport wired in", nil)
	if !Is(err, Device) {
		t.Fatal("expected Is(err, Device) to be true")
	}
	if Is(err, Config) {
		t.Fatal("expected Is(err, Config) to be false")
	}
}

func TestErrorMessageIncludesKindAndCause(t *testing.T) {
	err := New(Input, "malformed payload", fmt.Errorf("unexpected token"))
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected non-empty error message")
	}
}

func TestKindStringNames(t *testing.T) {
	cases := map[Kind]string{
		Config:    "config",
		Transport: "transport",
		Auth:      "auth",
		TLS:       "tls",
		Device:    "device",
		Input:     "input",
		FatalInit: "fatal_init",
		Transient: "transient",
		Unknown:   "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Fatalf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
