package core

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{82.5, "82.5%"},
		{100, "100.0%"},
		{0, "0.0%"},
		{63.41, "63.41%"},
	}
	for _, tt := range tests {
		if got := FormatPercent(tt.in); got != tt.want {
			t.Errorf("FormatPercent(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestParsePercent(t *testing.T) {
	if v, err := ParsePercent(" 82.5% "); err != nil || v != 82.5 {
		t.Errorf("expected 82.5, got %v (%v)", v, err)
	}
	if _, err := ParsePercent("N/A"); err == nil {
		t.Error("expected error for N/A")
	}
}

func TestStoredAnalysisReport(t *testing.T) {
	stored := &StoredAnalysis{
		EmailID:         "abc",
		Verdict:         VerdictPhishing,
		ConfidenceScore: 82.5,
		FinalScore:      -82.5,
	}
	report := stored.Report()

	if report.ConfidenceScore != "82.5%" {
		t.Errorf("expected 82.5%%, got %q", report.ConfidenceScore)
	}
	if report.FinalScoreInternal != -82.5 {
		t.Errorf("expected signed score -82.5, got %v", report.FinalScoreInternal)
	}
	if report.IDEmail != "abc" || report.Verdict != VerdictPhishing {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestURLModelResultShape(t *testing.T) {
	tests := []struct {
		in   URLModelResult
		want URLResultShape
	}{
		{URLModelResult{ProbabilityPhishing: "12%"}, URLShapeProbability},
		{URLModelResult{Verdict: "✅ Legitimate", Confidence: "90%"}, URLShapeVerdict},
		{URLModelResult{Prediction: "N/A"}, URLShapeNone},
	}
	for _, tt := range tests {
		if got := tt.in.Shape(); got != tt.want {
			t.Errorf("Shape(%+v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestVerdictReportJSONKeys(t *testing.T) {
	data, err := json.Marshal(&VerdictReport{IDEmail: "x", Verdict: VerdictSuspicious})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	for _, key := range []string{`"id_email"`, `"phishgard_verdict":"Suspicious"`, `"final_score_internal"`, `"heuristic_analysis"`, `"osint_enrichment"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("expected %s in %s", key, data)
		}
	}
}

func TestDomainAligned(t *testing.T) {
	tests := []struct {
		domain, parent string
		want           bool
	}{
		{"example.com", "example.com", true},
		{"Mail.Example.com", "example.COM", true},
		{"notexample.com", "example.com", false},
		{"example.com", "mail.example.com", false},
		{"", "example.com", false},
	}
	for _, tt := range tests {
		if got := DomainAligned(tt.domain, tt.parent); got != tt.want {
			t.Errorf("DomainAligned(%q, %q): expected %v, got %v", tt.domain, tt.parent, tt.want, got)
		}
	}
}
