package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed backend call.
type Kind int

const (
	// KindTransport means the request never produced an HTTP response.
	KindTransport Kind = iota + 1
	// KindStatus means the backend answered with a non-2xx status.
	KindStatus
	// KindDecode means a 2xx body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned for every failed backend call.
type Error struct {
	Kind    Kind
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Message != "" {
			return fmt.Sprintf("apiclient: %s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
		}
		return fmt.Sprintf("apiclient: %s %s: status %d", e.Method, e.Path, e.Status)
	default:
		return fmt.Sprintf("apiclient: %s %s: %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the backend's own error text, verbatim.
func (e *Error) UserMessage() string {
	if e.Kind == KindStatus {
		return e.Message
	}
	if e.Kind == KindTransport {
		return "The server could not be reached. Please try again."
	}
	return ""
}

// IsUnauthorized reports whether err means the bearer token was rejected.
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Kind != KindStatus {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsNotFound reports whether the backend answered 404.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindStatus && apiErr.Status == http.StatusNotFound
}

type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// backendMessage extracts a structured error message from a response body.
// Both {"error": "..."} and {"message": "..."} are understood; anything else
// yields "".
func backendMessage(body []byte) string {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if len(parsed.Error) > 0 {
		var text string
		if err := json.Unmarshal(parsed.Error, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(parsed.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
	}
	return strings.TrimSpace(parsed.Message)
}
