package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// UnknownError is the message used when nothing better is available.
const UnknownError = "Unknown error"

// APIError is a failed API call with a human-readable message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// errorPayload covers the error bodies the API produces: FastAPI's
// {"detail": "..."} or {"detail": [{"msg": "..."}]}, and {"error": "..."}.
type errorPayload struct {
	Detail  json.RawMessage `json:"detail"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// newAPIError builds an APIError preferring the structured payload, then a
// generic status message, then UnknownError.
func newAPIError(statusCode int, status string, body []byte) *APIError {
	if msg := structuredMessage(body); msg != "" {
		return &APIError{StatusCode: statusCode, Message: msg}
	}
	if status != "" {
		return &APIError{StatusCode: statusCode, Message: fmt.Sprintf("request failed: %s", status)}
	}
	return &APIError{StatusCode: statusCode, Message: UnknownError}
}

func structuredMessage(body []byte) string {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return strings.TrimSpace(detail)
		}
		var details []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &details); err == nil {
			for _, d := range details {
				if strings.TrimSpace(d.Msg) != "" {
					return strings.TrimSpace(d.Msg)
				}
			}
		}
	}
	if strings.TrimSpace(payload.Error) != "" {
		return strings.TrimSpace(payload.Error)
	}
	return strings.TrimSpace(payload.Message)
}

// ErrorMessage returns the human-readable text for a failed call.
func ErrorMessage(err error) string {
	if err == nil {
		return UnknownError
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return UnknownError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return UnknownError
}
