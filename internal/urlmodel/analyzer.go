package urlmodel

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/phishgard/internal/core"
)

// Verdict labels of the verdict-centric result shape
const (
	VerdictPhishing   = "⚠️ Phishing"
	VerdictLegitimate = "✅ Legitimate"
)

// Risk levels
const (
	RiskHigh   = "High Risk"
	RiskMedium = "Medium Risk"
	RiskLow    = "Low Risk"
)

const highRiskProbability = 0.75

// Analyzer implements core.URLAnalyzer and core.URLScorer on top of a URL
// model
type Analyzer struct {
	predictor core.URLPredictor
	logger    *zap.Logger
}

// NewAnalyzer creates a new URL analyzer. predictor may be nil when no
// model is configured.
func NewAnalyzer(predictor core.URLPredictor, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		predictor: predictor,
		logger:    logger,
	}
}

// Analyze classifies the first URL found in text. It never fails: without
// a URL or a working model the not-applicable shape is returned.
func (a *Analyzer) Analyze(ctx context.Context, text string) core.URLModelResult {
	urls := ExtractURLs(text)
	if len(urls) == 0 {
		return core.URLModelResult{Prediction: "N/A", Details: "No URL found in the email."}
	}
	return a.classify(ctx, urls[0], len(urls))
}

// AnalyzeURL classifies a single URL as given by a user. A missing scheme
// is taken as http.
func (a *Analyzer) AnalyzeURL(ctx context.Context, rawURL string) core.URLModelResult {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return core.URLModelResult{URL: rawURL, Prediction: "N/A", Details: "Invalid URL.", Error: err.Error()}
	}
	return a.classify(ctx, target, 1)
}

func (a *Analyzer) classify(ctx context.Context, target string, found int) core.URLModelResult {
	if a.predictor == nil {
		return core.URLModelResult{URL: target, Prediction: "N/A", Details: "URL model not configured."}
	}

	prediction, err := a.predictor.Predict(ctx, target, ExtractFeatures(target))
	if err != nil {
		a.logger.Warn("URL prediction failed",
			zap.String("url", target),
			zap.Error(err))
		return core.URLModelResult{
			URL:        target,
			Prediction: "N/A",
			Details:    "URL model unavailable.",
			Error:      err.Error(),
		}
	}

	a.logger.Debug("URL analyzed",
		zap.String("url", target),
		zap.Bool("phishing", prediction.IsPhishing),
		zap.Float64("probability_phishing", prediction.ProbabilityPhishing),
		zap.Int("urls_found", found))

	return BuildResult(target, prediction)
}

// BuildResult renders a model prediction in the verdict-centric shape
func BuildResult(target string, p *core.ModelPrediction) core.URLModelResult {
	result := core.URLModelResult{
		URL: target,
		Probability: &core.URLProbabilities{
			Phishing:   percent(p.ProbabilityPhishing),
			Legitimate: percent(p.ProbabilityLegitimate),
		},
	}

	if p.IsPhishing {
		result.Prediction = "phishing"
		result.Verdict = VerdictPhishing
		result.Confidence = percent(p.ProbabilityPhishing)
		if p.ProbabilityPhishing > highRiskProbability {
			result.RiskLevel = RiskHigh
		} else {
			result.RiskLevel = RiskMedium
		}
	} else {
		result.Prediction = "legitimate"
		result.Verdict = VerdictLegitimate
		result.Confidence = percent(p.ProbabilityLegitimate)
		result.RiskLevel = RiskLow
	}
	return result
}

func percent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}
