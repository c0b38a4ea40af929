package core

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// FailureClass tags the reason a probe or fetch failed. Every I/O operation
// converts transport faults and HTTP error statuses into one of these; nothing
// crosses the adapter boundary as an unclassified failure.
type FailureClass string

const (
	FailureNone             FailureClass = ""
	FailureEmptyCredential  FailureClass = "empty_credential"
	FailureAuthentication   FailureClass = "authentication_failed"
	FailureAccessDenied     FailureClass = "access_denied"
	FailureRateLimited      FailureClass = "rate_limited"
	FailureTimeout          FailureClass = "transport_timeout"
	FailureTransport        FailureClass = "transport_error"
	FailureUnexpectedStatus FailureClass = "unexpected_status"
	FailureUnknownProvider  FailureClass = "unknown_provider"
	FailureModelNotFound    FailureClass = "model_not_found"
	FailureParse            FailureClass = "parse_error"
)

// ProbeError is the error value returned by adapter fetch operations.
// It preserves the failure class and HTTP status so callers can distinguish
// "rate limited, try later" from "this key is wrong".
type ProbeError struct {
	Provider   ProviderID
	Class      FailureClass
	StatusCode int
	Message    string
	Err        error
}

func (e *ProbeError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Class, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// NewProbeError creates a ProbeError with an explicit class.
func NewProbeError(provider ProviderID, class FailureClass, statusCode int, message string, err error) *ProbeError {
	return &ProbeError{
		Provider:   provider,
		Class:      class,
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// NewTimeoutError reports that the single bounded network attempt timed out.
func NewTimeoutError(provider ProviderID, err error) *ProbeError {
	return NewProbeError(provider, FailureTimeout, 0, "request timed out", err)
}

// NewTransportError reports a DNS/connection-level failure.
func NewTransportError(provider ProviderID, err error) *ProbeError {
	return NewProbeError(provider, FailureTransport, 0, "connection error: "+err.Error(), err)
}

// NewModelNotFoundError reports that a model id is absent from both the direct
// endpoint and the listing fallback.
func NewModelNotFoundError(provider ProviderID, modelID string) *ProbeError {
	return NewProbeError(provider, FailureModelNotFound, http.StatusNotFound, "Model not found", nil)
}

// ClassifyStatus converts a non-200 HTTP status into a ProbeError. The body is
// scanned for the common `{"error": {"message": ...}}` envelope; when present,
// that message is preserved, otherwise a generic one per class is used.
func ClassifyStatus(provider ProviderID, statusCode int, body []byte) *ProbeError {
	message := extractErrorMessage(body)

	switch statusCode {
	case http.StatusUnauthorized:
		if message == "" {
			message = "authentication failed"
		}
		return NewProbeError(provider, FailureAuthentication, statusCode, message, nil)
	case http.StatusForbidden:
		if message == "" {
			message = "access denied"
		}
		return NewProbeError(provider, FailureAccessDenied, statusCode, message, nil)
	case http.StatusTooManyRequests:
		if message == "" {
			message = "rate limit exceeded"
		}
		return NewProbeError(provider, FailureRateLimited, statusCode, message, nil)
	default:
		if message == "" {
			message = fmt.Sprintf("unexpected status %d", statusCode)
		}
		return NewProbeError(provider, FailureUnexpectedStatus, statusCode, message, nil)
	}
}

// extractErrorMessage pulls the human-readable message out of a provider error
// body. Providers disagree on everything else but most wrap errors this way.
func extractErrorMessage(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		return envelope.Error.Message
	}
	return ""
}

// AsProbeError unwraps err into a ProbeError, wrapping foreign errors as
// parse failures so callers always get a classified value.
func AsProbeError(provider ProviderID, err error) *ProbeError {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProbeError); ok {
		return pe
	}
	return NewProbeError(provider, FailureParse, 0, err.Error(), err)
}
