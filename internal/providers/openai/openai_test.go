package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"keymate/internal/core"
	"keymate/internal/providers"
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewWithHTTPClient(srv.URL, srv.Client())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		responseBody string
		wantValid    bool
		wantMessage  string
		wantFailure  core.FailureClass
	}{
		{
			name:         "paid account with gpt-4",
			statusCode:   http.StatusOK,
			responseBody: `{"data":[{"id":"gpt-4o"},{"id":"gpt-3.5-turbo"}]}`,
			wantValid:    true,
			wantMessage:  "Valid OpenAI API key (Paid account)",
		},
		{
			name:         "free account without gpt-4",
			statusCode:   http.StatusOK,
			responseBody: `{"data":[{"id":"gpt-3.5-turbo"},{"id":"text-embedding-3-small"}]}`,
			wantValid:    true,
			wantMessage:  "Valid OpenAI API key (Free account)",
		},
		{
			name:         "unauthorized",
			statusCode:   http.StatusUnauthorized,
			responseBody: `{"error":{"message":"Incorrect API key provided"}}`,
			wantValid:    false,
			wantMessage:  "Invalid OpenAI API key - Authentication failed",
			wantFailure:  core.FailureAuthentication,
		},
		{
			name:         "forbidden",
			statusCode:   http.StatusForbidden,
			responseBody: `{"error":{"message":"permission denied"}}`,
			wantValid:    false,
			wantMessage:  "OpenAI API key access denied - Check permissions",
			wantFailure:  core.FailureAccessDenied,
		},
		{
			name:         "rate limited",
			statusCode:   http.StatusTooManyRequests,
			responseBody: `{"error":{"message":"rate limit reached"}}`,
			wantValid:    false,
			wantMessage:  "OpenAI API rate limit exceeded - try again later",
			wantFailure:  core.FailureRateLimited,
		},
		{
			name:         "unexpected status",
			statusCode:   http.StatusInternalServerError,
			responseBody: `{}`,
			wantValid:    false,
			wantMessage:  "OpenAI API error: 500",
			wantFailure:  core.FailureUnexpectedStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
					t.Errorf("Authorization = %q, want %q", got, "Bearer sk-test")
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.responseBody))
			})

			v := adapter.Validate(context.Background(), "sk-test")
			if v.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", v.Valid, tt.wantValid)
			}
			if v.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", v.Message, tt.wantMessage)
			}
			if v.Failure != tt.wantFailure {
				t.Errorf("Failure = %q, want %q", v.Failure, tt.wantFailure)
			}
			if v.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", v.StatusCode, tt.statusCode)
			}
		})
	}
}

func TestValidate_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)

	client := srv.Client()
	client.Timeout = 20 * time.Millisecond
	adapter := NewWithHTTPClient(srv.URL, client)

	v := adapter.Validate(context.Background(), "sk-test")
	if v.Valid {
		t.Fatal("Valid = true, want false")
	}
	if v.Failure != core.FailureTimeout {
		t.Errorf("Failure = %q, want %q", v.Failure, core.FailureTimeout)
	}
	if v.Message != "OpenAI API request timed out" {
		t.Errorf("Message = %q", v.Message)
	}
}

func TestValidate_ConnectionError(t *testing.T) {
	// Closed server: connection refused
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	adapter := NewWithHTTPClient(url, &http.Client{})
	v := adapter.Validate(context.Background(), "sk-test")
	if v.Valid {
		t.Fatal("Valid = true, want false")
	}
	if v.Failure != core.FailureTransport {
		t.Errorf("Failure = %q, want %q", v.Failure, core.FailureTransport)
	}
}

func TestListModels(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[
			{"id":"gpt-4o"},
			{"id":"gpt-3.5-turbo"},
			{"id":"text-embedding-3-small"},
			{"id":"whisper-1"}
		]}`))
	})

	details, err := adapter.ListModels(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if details.Provider != core.ProviderOpenAI {
		t.Errorf("Provider = %q", details.Provider)
	}
	if details.TotalModels != 4 {
		t.Errorf("TotalModels = %d, want 4", details.TotalModels)
	}
	if got := len(details.Buckets["gpt"]); got != 2 {
		t.Errorf("gpt bucket size = %d, want 2", got)
	}
	if got := len(details.Buckets["embedding"]); got != 1 {
		t.Errorf("embedding bucket size = %d, want 1", got)
	}
	if got := details.Buckets[providers.BucketOther]; len(got) != 1 || got[0] != "whisper-1" {
		t.Errorf("other bucket = %v, want [whisper-1]", got)
	}
	if len(details.PerModel) != 4 {
		t.Fatalf("len(PerModel) = %d, want 4", len(details.PerModel))
	}
	if details.PerModel[0].RPM != nil {
		t.Error("RPM should be nil")
	}
}

func TestListModels_AuthFailure(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	_, err := adapter.ListModels(context.Background(), "sk-bad")
	if err == nil {
		t.Fatal("expected error")
	}
	pe := core.AsProbeError(core.ProviderOpenAI, err)
	if pe.Class != core.FailureAuthentication {
		t.Errorf("Class = %q, want %q", pe.Class, core.FailureAuthentication)
	}
	if pe.Message != "bad key" {
		t.Errorf("Message = %q, want %q", pe.Message, "bad key")
	}
}

func TestAccountStatus(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-3.5-turbo"}]}`))
	})

	status, err := adapter.AccountStatus(context.Background(), "sk-test")
	if err != nil {
		t.Fatalf("AccountStatus() error = %v", err)
	}
	if !status.Paid {
		t.Error("Paid = false, want true")
	}
	if status.Tier != core.TierPaid {
		t.Errorf("Tier = %q, want %q", status.Tier, core.TierPaid)
	}
	if !status.Flags["has_gpt4"] || !status.Flags["has_gpt4o"] {
		t.Errorf("Flags = %v", status.Flags)
	}
	if status.Flags["has_gpt4_turbo"] {
		t.Error("has_gpt4_turbo should be false")
	}
}

func TestGetModelInfo_Direct(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gpt-4o" {
			t.Errorf("path = %q, want /models/gpt-4o", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"gpt-4o","object":"model"}`))
	})

	info, err := adapter.GetModelInfo(context.Background(), "sk-test", "gpt-4o")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if !strings.Contains(string(info), `"gpt-4o"`) {
		t.Errorf("info = %s", info)
	}
}

func TestGetModelInfo_ListingFallback(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data":[{"id":"gpt-4o","owned_by":"openai"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	info, err := adapter.GetModelInfo(context.Background(), "sk-test", "gpt-4o")
	if err != nil {
		t.Fatalf("GetModelInfo() error = %v", err)
	}
	if !strings.Contains(string(info), `"owned_by"`) {
		t.Errorf("info = %s", info)
	}
}

func TestGetModelInfo_NotFound(t *testing.T) {
	adapter := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			_, _ = w.Write([]byte(`{"data":[{"id":"gpt-3.5-turbo"}]}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := adapter.GetModelInfo(context.Background(), "sk-test", "no-such-model")
	if err == nil {
		t.Fatal("expected error")
	}
	pe := core.AsProbeError(core.ProviderOpenAI, err)
	if pe.Class != core.FailureModelNotFound {
		t.Errorf("Class = %q, want %q", pe.Class, core.FailureModelNotFound)
	}
	if pe.Message != "Model not found" {
		t.Errorf("Message = %q", pe.Message)
	}
}
