package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrSessionExpired is returned when an authenticated call comes back with
// HTTP 401. By the time a caller sees it the session has already been cleared
// by the unauthorized hook; callers only need to stop their own work.
var ErrSessionExpired = errors.New("session expired, please log in again")

// genericMessage is the fallback when the server's error payload has no
// recognisable message field.
const genericMessage = "request failed"

// AuthenticationError means the login endpoint rejected the credentials.
// User-visible and non-fatal; the login form stays editable.
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}

// ValidationError means a registration or profile-edit payload was rejected.
// Fields carries the per-field messages when the server provided them.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// FieldMessage returns the first message for a field, or "".
func (e *ValidationError) FieldMessage(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// NetworkError wraps a transport-level failure where no response was
// received. Never retried automatically.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is any non-2xx response that is not covered by a more specific
// error type. Message is extracted from the payload per errorMessage.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// messageFields is the order in which field-specific validation arrays are
// consulted when the payload has no top-level message.
var messageFields = []string{"username", "email", "password"}

// errorMessage derives a human-readable message and any field-level messages
// from an error payload. Checks, in order: a structured "detail" field, an
// "error" field, then the field-specific validation arrays, falling back to a
// generic message.
func errorMessage(body []byte) (string, map[string][]string) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return genericMessage, nil
	}

	var fields map[string][]string
	for key, raw := range payload {
		var msgs []string
		if err := json.Unmarshal(raw, &msgs); err == nil && len(msgs) > 0 {
			if fields == nil {
				fields = make(map[string][]string)
			}
			fields[key] = msgs
		}
	}

	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil && msg != "" {
			return msg, fields
		}
	}

	for _, key := range messageFields {
		if msgs := fields[key]; len(msgs) > 0 {
			return msgs[0], fields
		}
	}

	return genericMessage, fields
}
