package urlclassifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

func TestPredict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.URL != "http://login.example.xyz/verify" || req.Features["LengthOfURL"] != 31 {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"is_phishing": true, "probability_phishing": 0.91, "probability_legitimate": 0.09}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, zap.NewNop())
	pred, err := client.Predict(context.Background(), "http://login.example.xyz/verify", core.URLFeatures{"LengthOfURL": 31})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pred.IsPhishing || pred.ProbabilityPhishing != 0.91 || pred.ProbabilityLegitimate != 0.09 {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestPredictDerivesMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"probability_phishing": 0.25}`))
	}))
	defer server.Close()

	pred, err := NewClient(server.URL, time.Second, zap.NewNop()).Predict(context.Background(), "https://example.com", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.IsPhishing || pred.ProbabilityLegitimate != 0.75 {
		t.Errorf("unexpected prediction %+v", pred)
	}
}

func TestPredictErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error": "model not loaded"}`},
		{"missing probability", http.StatusOK, `{"is_phishing": true}`},
		{"out of range", http.StatusOK, `{"probability_phishing": 1.5}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			if _, err := NewClient(server.URL, time.Second, zap.NewNop()).Predict(context.Background(), "https://example.com", nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
