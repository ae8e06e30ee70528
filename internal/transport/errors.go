package transport

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError describes a response the API clients could not turn into a
// result: a non-2xx status, or a 2xx whose body did not decode. It keeps
// the status so callers can classify the failure.
type APIError struct {
	// StatusCode is the HTTP status, or StatusNetworkError.
	StatusCode int

	// Message is the API's own error message when one was present,
	// otherwise a short description of what went wrong.
	Message string

	// Body is the raw response body.
	Body []byte
}

func (e *APIError) Error() string {
	if e.StatusCode == StatusNetworkError {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// StatusOf returns the status carried by err, or -1 if err is not an
// *APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return -1
}

// ErrorFromResponse builds an APIError for a failed response, extracting
// the error message from either the GitHub ({"message": ...}) or Google
// ({"error": {"message": ...}}) body shapes.
func ErrorFromResponse(resp Response) *APIError {
	return &APIError{
		StatusCode: resp.Status,
		Message:    messageFromBody(resp),
		Body:       resp.Body,
	}
}

func messageFromBody(resp Response) string {
	if resp.Status == StatusNetworkError {
		return string(resp.Body)
	}

	var body struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error.Message != "" {
			return body.Error.Message
		}
	}
	return "Unknown error"
}

// Details decodes a response body for inclusion in an event log entry.
// Bodies that are not JSON are wrapped as {"raw": body}; empty bodies
// yield nil.
func Details(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]string{"raw": string(body)}
	}
	return v
}
