package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	w := cfg.GetWeights()
	if w.Heuristic != 0.30 || w.URLModel != 0.40 || w.LLM != 0.30 {
		t.Errorf("unexpected default weights %+v", w)
	}

	cacheCfg, err := cfg.GetCache()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cacheCfg.Type != "memory" || cacheCfg.TTL != 720*time.Hour {
		t.Errorf("unexpected cache config %+v", cacheCfg)
	}

	server := cfg.GetServer()
	if server.Headers.Verdict != "X-PhishGard-Verdict" {
		t.Errorf("expected X-PhishGard-Verdict, got %q", server.Headers.Verdict)
	}
	if server.PostfixPort != 10026 {
		t.Errorf("expected postfix port 10026, got %d", server.PostfixPort)
	}

	osint, err := cfg.GetOsint()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if osint.Timeout != 5*time.Second || osint.Concurrency != 4 {
		t.Errorf("unexpected osint config %+v", osint)
	}

	urlCtx, err := cfg.GetURLContext()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !urlCtx.Enabled || urlCtx.Timeout != 20*time.Second || urlCtx.FetchTimeout != 10*time.Second {
		t.Errorf("unexpected url context config %+v", urlCtx)
	}

	if got := cfg.GetNotify().Verdicts; len(got) != 1 || got[0] != "Phishing" {
		t.Errorf("expected notification on Phishing only, got %v", got)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PHISHGARD_LLM_PROVIDER", "gemini")
	t.Setenv("ABUSEIPDB_API_KEY", "abuse-key")
	t.Setenv("PHISHGARD_OSINT_IPINFO_API_KEY", "ipinfo-key")

	cfg := NewFromViper(NewEmptyViper())

	if got := cfg.GetLLM().Provider; got != "gemini" {
		t.Errorf("expected gemini, got %q", got)
	}
	osint, err := cfg.GetOsint()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if osint.AbuseIPDBAPIKey != "abuse-key" {
		t.Errorf("expected abuse-key, got %q", osint.AbuseIPDBAPIKey)
	}
	if osint.IPInfoAPIKey != "ipinfo-key" {
		t.Errorf("expected ipinfo-key, got %q", osint.IPInfoAPIKey)
	}
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("cache.ttl", "forever")

	if _, err := cfg.GetCache(); err == nil {
		t.Error("expected an error for an invalid ttl")
	}

	cfg.Set("urlcontext.fetch_timeout", "soon")
	if _, err := cfg.GetURLContext(); err == nil {
		t.Error("expected an error for an invalid fetch timeout")
	}
}
