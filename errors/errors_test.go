package errors

import (
	"fmt"
	"testing"
)

func TestDeckError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeRemoteStatus, "bad status")
	if err.Code != ErrCodeRemoteStatus {
		t.Errorf("expected code %s, got %s", ErrCodeRemoteStatus, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("connection refused")
	wrapped := Wrap(cause, ErrCodeRemoteRequest, "request failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	if !Is(wrapped, ErrCodeRemoteRequest) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeRemoteStatus) {
		t.Error("Is should return false for non-matching code")
	}

	detailed := err.WithDetail("status", 502).WithDetail("operation", "fetch")
	if detailed.Details["status"] != 502 {
		t.Error("WithDetail should add details")
	}
}

func TestGetCodeThroughFmtWrap(t *testing.T) {
	inner := ConfigurationMissing("ctx-1", "api token")
	outer := fmt.Errorf("toggle: %w", inner)

	if got := GetCode(outer); got != ErrCodeConfigurationMissing {
		t.Errorf("expected %s, got %s", ErrCodeConfigurationMissing, got)
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("plain errors should have no code")
	}
	if Is(nil, ErrCodeInternal) {
		t.Error("nil error should not match any code")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := ConfigurationMissing("ctx-1", "workspace id")
	if err.Code != ErrCodeConfigurationMissing {
		t.Errorf("expected code %s, got %s", ErrCodeConfigurationMissing, err.Code)
	}
	if err.Details["button"] != "ctx-1" || err.Details["field"] != "workspace id" {
		t.Error("ConfigurationMissing should include button and field details")
	}

	err = RemoteStatus("start entry", 401, "unauthorized")
	if err.Code != ErrCodeRemoteStatus {
		t.Errorf("expected code %s, got %s", ErrCodeRemoteStatus, err.Code)
	}
	if err.Details["status"] != 401 {
		t.Error("RemoteStatus should include status detail")
	}

	cause := fmt.Errorf("dial tcp: refused")
	err = RemoteRequestFailed("fetch running entry", cause)
	if err.Unwrap() != cause {
		t.Error("RemoteRequestFailed should keep the cause")
	}
}

func TestFind(t *testing.T) {
	inner := ConfigurationMissing("btn", "apiToken")
	outer := fmt.Errorf("toggle: %w", inner)

	got, ok := Find(outer)
	if !ok || got != inner {
		t.Fatalf("expected to find the wrapped DeckError, got %v", got)
	}
	if _, ok := Find(fmt.Errorf("plain")); ok {
		t.Error("expected no DeckError in a plain error")
	}
}
