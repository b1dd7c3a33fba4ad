package aggregator

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/urlmodel"
)

// Decision thresholds on the composite score
const (
	LegitimeThreshold = 40.0
	PhishingThreshold = -40.0
)

// Veto rule parameters
const (
	VetoMaxDomainAgeDays = 2
	VetoMinAbuseScore    = 90
	VetoScore            = -100.0
)

// Veto rule names
const (
	RuleDomainAge    = "domain_age"
	RuleIPReputation = "ip_reputation"
)

// DefaultSummary is used when no veto fired
const DefaultSummary = "Aggregation of heuristic, URL and LLM analyses."

// neutralURLProbability is assumed when the URL model gave no usable probability
const neutralURLProbability = 50.0

// Weights of the three scored analyses
type Weights struct {
	Heuristic float64
	URLModel  float64
	LLM       float64
}

// DefaultWeights returns the standard weighting
func DefaultWeights() Weights {
	return Weights{Heuristic: 0.30, URLModel: 0.40, LLM: 0.30}
}

// Validate checks the weights are non-negative and sum to one
func (w Weights) Validate() error {
	for name, v := range map[string]float64{"heuristic": w.Heuristic, "url_model": w.URLModel, "llm": w.LLM} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if sum := w.Heuristic + w.URLModel + w.LLM; math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// Aggregator implements core.VerdictAggregator. It holds no mutable state
// and is safe for concurrent use.
type Aggregator struct {
	weights Weights
}

// New creates an aggregator with validated weights
func New(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}
	return &Aggregator{weights: w}, nil
}

// Weights returns the configured weights
func (a *Aggregator) Weights() Weights {
	return a.weights
}

// Aggregate builds the final report. Veto rules are checked first and
// short-circuit the weighted scoring.
func (a *Aggregator) Aggregate(in core.AggregationInput) *core.VerdictReport {
	var (
		verdict core.Verdict
		score   float64
		summary = DefaultSummary
		fired   *core.VetoDecision
	)

	if veto, ok := a.Veto(&in.Osint); ok {
		verdict = core.VerdictPhishing
		score = VetoScore
		summary = veto.Reason
		fired = &veto
	} else {
		score = a.Composite(
			NormalizeHeuristic(in.Heuristic),
			NormalizeURL(in.URLModel),
			NormalizeLLM(in.LLM),
		)
		verdict = Classify(score)
	}

	if math.IsNaN(score) {
		score = 0
	}
	rounded := round2(score)

	return &core.VerdictReport{
		IDEmail:            in.EmailID,
		Verdict:            verdict,
		ConfidenceScore:    core.FormatPercent(math.Abs(rounded)),
		FinalScoreInternal: rounded,
		Summary:            summary,
		Breakdown: core.Breakdown{
			HeuristicAnalysis: in.Heuristic,
			URLMLAnalysis:     in.URLModel,
			LLMAnalysis:       in.LLM,
			OsintEnrichment:   in.Osint,
		},
		Veto: fired,
	}
}

// Veto returns the first override rule matching the OSINT evidence.
// Domains are checked in name order before IPs.
func (a *Aggregator) Veto(osint *core.OsintResults) (core.VetoDecision, bool) {
	if osint == nil {
		return core.VetoDecision{}, false
	}

	domains := make([]string, 0, len(osint.DomainAnalysis))
	for d := range osint.DomainAnalysis {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	for _, d := range domains {
		info := osint.DomainAnalysis[d]
		if info.AgeDays == nil {
			continue
		}
		if age := *info.AgeDays; age >= 0 && age < VetoMaxDomainAgeDays {
			return core.VetoDecision{
				Rule:   RuleDomainAge,
				Reason: fmt.Sprintf("Veto: domain '%s' is extremely recent (%d day(s)).", d, age),
			}, true
		}
	}

	for _, ip := range osint.IPAnalysis {
		if score, ok := ip.AbuseIPDB.Score(); ok && score > VetoMinAbuseScore {
			return core.VetoDecision{
				Rule:   RuleIPReputation,
				Reason: fmt.Sprintf("Veto: IP '%s' has a very high reputation score (%d%%).", ip.IP, score),
			}, true
		}
	}
	return core.VetoDecision{}, false
}

// Composite returns the weighted sum of the normalized scores, 0 when not a number
func (a *Aggregator) Composite(heuristic, url, llm float64) float64 {
	final := heuristic*a.weights.Heuristic + url*a.weights.URLModel + llm*a.weights.LLM
	if math.IsNaN(final) {
		return 0
	}
	return final
}

// NormalizeHeuristic maps the heuristic score onto [-100, 100]
func NormalizeHeuristic(h core.HeuristicResult) float64 {
	return clamp(float64(h.Score)*2.5, -100, 100)
}

// NormalizeURL maps the phishing probability onto [-100, 100], treating a
// missing probability as neutral
func NormalizeURL(r core.URLModelResult) float64 {
	p, ok := urlmodel.PhishingProbability(r)
	if !ok {
		p = neutralURLProbability
	}
	return 100 - 2*p
}

// NormalizeLLM maps the LLM confidence onto [-100, 100], negative for phishing
func NormalizeLLM(r core.LLMResult) float64 {
	confidence, err := strconv.Atoi(strings.TrimSpace(r.ConfidenceScore))
	if err != nil {
		confidence = 0
	}
	magnitude := clamp(float64(confidence), 0, 10) * 10
	if strings.EqualFold(strings.TrimSpace(r.Classification), "PHISHING") {
		return -magnitude
	}
	return magnitude
}

// Classify maps a composite score to a verdict
func Classify(score float64) core.Verdict {
	switch {
	case score > LegitimeThreshold:
		return core.VerdictLegitime
	case score < PhishingThreshold:
		return core.VerdictPhishing
	default:
		return core.VerdictSuspicious
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
