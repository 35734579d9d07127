package errors

import (
	"fmt"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *DeckError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *DeckError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// ConfigurationMissing reports a button whose settings lack a required field.
func ConfigurationMissing(button, field string) *DeckError {
	return New(ErrCodeConfigurationMissing, fmt.Sprintf("button is missing %s", field)).
		WithDetail("button", button).
		WithDetail("field", field)
}

// RemoteRequestFailed wraps a transport failure talking to the time-tracking API.
func RemoteRequestFailed(op string, err error) *DeckError {
	return Wrap(err, ErrCodeRemoteRequest, fmt.Sprintf("%s request failed", op)).
		WithDetail("operation", op)
}

// RemoteStatus reports a non-success HTTP status from the time-tracking API.
func RemoteStatus(op string, status int, body string) *DeckError {
	return New(ErrCodeRemoteStatus, fmt.Sprintf("%s returned status %d", op, status)).
		WithDetail("operation", op).
		WithDetail("status", status).
		WithDetail("body", body)
}

// HostConnection wraps a failure on the host WebSocket.
func HostConnection(addr string, err error) *DeckError {
	return Wrap(err, ErrCodeHostConnection, fmt.Sprintf("host connection to %s failed", addr)).
		WithDetail("addr", addr)
}

// PromptCancelled reports a prompt that was dismissed, emptied or timed out.
func PromptCancelled(button string) *DeckError {
	return New(ErrCodePromptCancelled, "prompt was cancelled").
		WithDetail("button", button)
}
