package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status    int
		body      string
		wantClass FailureClass
		wantMsg   string
	}{
		{http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, FailureAuthentication, "bad key"},
		{http.StatusUnauthorized, ``, FailureAuthentication, "authentication failed"},
		{http.StatusForbidden, `{}`, FailureAccessDenied, "access denied"},
		{http.StatusTooManyRequests, ``, FailureRateLimited, "rate limit exceeded"},
		{http.StatusServiceUnavailable, ``, FailureUnexpectedStatus, "unexpected status 503"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			pe := ClassifyStatus(ProviderOpenAI, tt.status, []byte(tt.body))
			if pe.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", pe.Class, tt.wantClass)
			}
			if pe.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", pe.Message, tt.wantMsg)
			}
			if pe.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", pe.StatusCode, tt.status)
			}
			if pe.Provider != ProviderOpenAI {
				t.Errorf("Provider = %q", pe.Provider)
			}
		})
	}
}

func TestProbeError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	pe := NewTransportError(ProviderGrok, inner)

	if !errors.Is(pe, inner) {
		t.Error("errors.Is failed to reach wrapped error")
	}

	var target *ProbeError
	if !errors.As(error(pe), &target) {
		t.Fatal("errors.As failed")
	}
	if target.Class != FailureTransport {
		t.Errorf("Class = %q", target.Class)
	}
}

func TestAsProbeError(t *testing.T) {
	if got := AsProbeError(ProviderOpenAI, nil); got != nil {
		t.Errorf("AsProbeError(nil) = %v", got)
	}

	pe := NewTimeoutError(ProviderOpenAI, nil)
	if got := AsProbeError(ProviderOpenAI, pe); got != pe {
		t.Error("existing ProbeError not passed through")
	}

	wrapped := AsProbeError(ProviderGemini, errors.New("boom"))
	if wrapped.Class != FailureParse {
		t.Errorf("Class = %q, want %q", wrapped.Class, FailureParse)
	}
	if wrapped.Provider != ProviderGemini {
		t.Errorf("Provider = %q", wrapped.Provider)
	}
}
