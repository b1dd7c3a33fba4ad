package urlmodel

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mikey/phishgard/internal/core"
)

func TestExtractURLs(t *testing.T) {
	text := `Click https://login.example.com/verify?id=1, or <a href="http://evil.example/x">here</a>.
Again: https://login.example.com/verify?id=1`

	got := ExtractURLs(text)
	want := []string{"https://login.example.com/verify?id=1", "http://evil.example/x"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if got := ExtractURLs("no links here"); len(got) != 0 {
		t.Errorf("expected no URLs, got %v", got)
	}
}

func TestExtractFeatures(t *testing.T) {
	f := ExtractFeatures("https://secure.login.example.co.uk/account/verify?user=1&token=abc#top")

	checks := map[string]float64{
		"IsDomainIP":         0,
		"HasSSL":             1,
		"NumberOfSubdomains": 2,
		"TLDLength":          5,
		"HavingPath":         1,
		"HavingQuery":        1,
		"HavingFragment":     1,
		"NumberOfHashtags":   1,
		"EqualCharCntInURL":  2,
		"QuesMarkCntInURL":   1,
		"AmpCharCntInURL":    1,
	}
	for name, want := range checks {
		if got := f[name]; got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
	if f["ShannonEntropy"] <= 0 {
		t.Error("expected positive entropy")
	}

	ip := ExtractFeatures("http://192.0.2.1/login")
	if ip["IsDomainIP"] != 1 {
		t.Error("expected IP host to be flagged")
	}
	if ip["HasSSL"] != 0 {
		t.Error("expected http URL to have no SSL flag")
	}
}

func TestRegistrableDomain(t *testing.T) {
	if got := RegistrableDomain("https://a.b.example.co.uk/x"); got != "example.co.uk" {
		t.Errorf("expected example.co.uk, got %q", got)
	}
}

func TestPhishingProbability(t *testing.T) {
	tests := []struct {
		name string
		in   core.URLModelResult
		want float64
		ok   bool
	}{
		{"probability shape", core.URLModelResult{ProbabilityPhishing: "82.5%"}, 82.5, true},
		{"probability without sign", core.URLModelResult{ProbabilityPhishing: "12"}, 12, true},
		{"malformed probability", core.URLModelResult{ProbabilityPhishing: "N/A"}, 0, false},
		{"garbage probability", core.URLModelResult{ProbabilityPhishing: "high"}, 0, false},
		{"phishing verdict", core.URLModelResult{Verdict: VerdictPhishing, Confidence: "91.00%"}, 91, true},
		{"legitimate verdict", core.URLModelResult{Verdict: VerdictLegitimate, Confidence: "90.00%"}, 10, true},
		{"verdict without confidence", core.URLModelResult{Verdict: VerdictLegitimate}, 0, false},
		{"not applicable", core.URLModelResult{Prediction: "N/A", Details: "No URL found in the email."}, 0, false},
		{"clamped", core.URLModelResult{ProbabilityPhishing: "130%"}, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PhishingProbability(tt.in)
			if ok != tt.ok || (ok && got != tt.want) {
				t.Errorf("expected (%v, %v), got (%v, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

type fakePredictor struct {
	prediction *core.ModelPrediction
	err        error
	gotURL     string
	gotLen     float64
}

func (f *fakePredictor) Predict(ctx context.Context, url string, features core.URLFeatures) (*core.ModelPrediction, error) {
	f.gotURL = url
	f.gotLen = features["LengthOfURL"]
	return f.prediction, f.err
}

func TestAnalyzerNoURL(t *testing.T) {
	a := NewAnalyzer(&fakePredictor{}, nil)
	got := a.Analyze(context.Background(), "hello")
	if got.Prediction != "N/A" || got.Shape() != core.URLShapeNone {
		t.Errorf("expected not applicable result, got %+v", got)
	}
}

func TestAnalyzerPhishing(t *testing.T) {
	p := &fakePredictor{prediction: &core.ModelPrediction{IsPhishing: true, ProbabilityPhishing: 0.8, ProbabilityLegitimate: 0.2}}
	a := NewAnalyzer(p, nil)

	got := a.Analyze(context.Background(), "see http://evil.example/login and https://ok.example")

	if p.gotURL != "http://evil.example/login" {
		t.Errorf("expected the first URL to be analyzed, got %q", p.gotURL)
	}
	if p.gotLen != float64(len("http://evil.example/login")) {
		t.Errorf("expected features to be passed, got length %v", p.gotLen)
	}
	if got.Verdict != VerdictPhishing || got.Confidence != "80.00%" || got.RiskLevel != RiskHigh {
		t.Errorf("unexpected result %+v", got)
	}
	if prob, ok := PhishingProbability(got); !ok || prob != 80 {
		t.Errorf("expected phishing probability 80, got %v (%v)", prob, ok)
	}
}

func TestAnalyzerLegitimate(t *testing.T) {
	p := &fakePredictor{prediction: &core.ModelPrediction{ProbabilityPhishing: 0.1, ProbabilityLegitimate: 0.9}}
	got := NewAnalyzer(p, nil).Analyze(context.Background(), "https://ok.example")

	if got.Verdict != VerdictLegitimate || got.Confidence != "90.00%" || got.RiskLevel != RiskLow {
		t.Errorf("unexpected result %+v", got)
	}
	if prob, ok := PhishingProbability(got); !ok || prob != 10 {
		t.Errorf("expected phishing probability 10, got %v (%v)", prob, ok)
	}
}

func TestAnalyzerPredictorFailure(t *testing.T) {
	p := &fakePredictor{err: errors.New("connection refused")}
	got := NewAnalyzer(p, nil).Analyze(context.Background(), "https://ok.example")

	if got.Prediction != "N/A" || got.Error != "connection refused" {
		t.Errorf("unexpected result %+v", got)
	}
	if _, ok := PhishingProbability(got); ok {
		t.Error("a failed prediction must not yield a probability")
	}
}
