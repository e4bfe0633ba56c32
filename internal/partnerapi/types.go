// Package partnerapi provides a client for the partner master-data backend's
// audit endpoints. This package centralizes all audit API interactions for
// the engine.
package partnerapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError represents a non-2xx response from the partner backend.
// Messages holds the structured error body when the backend returns
// message as an array of strings; Message holds it when it is a single
// string or when the body is unstructured text.
type APIError struct {
	StatusCode int
	Message    string
	Messages   []string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("partner API error: %s (status: %d, endpoint: %s)", e.BackendMessage(), e.StatusCode, e.Endpoint)
}

// BackendMessage returns the backend-provided error detail, joining array
// messages with spaces. Returns "" when the body carried no usable message.
func (e *APIError) BackendMessage() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, " ")
	}
	return e.Message
}

// errorBody is the structured error envelope some backend services return.
// message may be a string or an array of strings; errorEnvelope tolerates both.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

// newAPIError builds an APIError from a response body, parsing the
// structured envelope when present and falling back to the raw text.
func newAPIError(statusCode int, endpoint string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
	}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Message) > 0 {
			var single string
			if err := json.Unmarshal(envelope.Message, &single); err == nil {
				apiErr.Message = single
				return apiErr
			}
			var many []string
			if err := json.Unmarshal(envelope.Message, &many); err == nil {
				apiErr.Messages = many
				return apiErr
			}
		}
		if envelope.Error != "" {
			apiErr.Message = envelope.Error
			return apiErr
		}
	}

	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
