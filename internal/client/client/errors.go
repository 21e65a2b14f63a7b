package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTimeout      = errors.New("request timed out")
)

// NonFieldErrorsKey is the key the backend uses for validation errors that
// are not tied to a single field.
const NonFieldErrorsKey = "non_field_errors"

// APIError is a non-2xx response of the auth backend.
//
// Detail holds a top-level "detail" (or "message"/"error") string when the
// body has one. Fields holds field-keyed validation messages such as
// {"email": ["user with this email already exists."]}.
type APIError struct {
	Status int
	Detail string
	Fields map[string][]string
}

func (e *APIError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("auth service returned %d: %s", e.Status, e.Detail)
	case len(e.Fields) > 0:
		return fmt.Sprintf("auth service returned %d: %s", e.Status, e.fieldSummary())
	default:
		return fmt.Sprintf("auth service returned %d", e.Status)
	}
}

// Is reports 401 responses as ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// FieldError returns the first message recorded for field, or "".
func (e *APIError) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *APIError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return strings.Join(parts, "; ")
}

// ParseAPIError builds an APIError from a response status and body. Bodies
// that are not JSON objects leave Detail and Fields empty.
func ParseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return apiErr
	}

	for key, value := range raw {
		switch key {
		case "detail", "message", "error":
			var s string
			if json.Unmarshal(value, &s) == nil && apiErr.Detail == "" {
				apiErr.Detail = s
			}
		default:
			if msgs := decodeMessages(value); len(msgs) > 0 {
				if apiErr.Fields == nil {
					apiErr.Fields = map[string][]string{}
				}
				apiErr.Fields[key] = msgs
			}
		}
	}
	return apiErr
}

func decodeMessages(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}
	var single string
	if err := json.Unmarshal(value, &single); err == nil && single != "" {
		return []string{single}
	}
	return nil
}
