package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by caches when no live entry exists
var ErrNotFound = errors.New("analysis not found")

// LLMClient defines the interface for interacting with LLM services
type LLMClient interface {
	// Classify asks the model whether the email is phishing
	Classify(ctx context.Context, email *Email) (*LLMResult, error)
}

// AnalysisCache defines the interface for caching analysis results
type AnalysisCache interface {
	// Get retrieves the analysis of an email for a user
	Get(ctx context.Context, userID, emailID string) (*StoredAnalysis, error)

	// Set stores an analysis
	Set(ctx context.Context, entry *StoredAnalysis) error

	// Delete removes an analysis
	Delete(ctx context.Context, userID, emailID string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// HeaderParser turns raw header fields into their structured view
type HeaderParser interface {
	Parse(fields []HeaderField) *ParsedHeaders
	SplitRaw(raw string) []HeaderField
}

// OsintEnricher queries reputation sources for the IPs and domains of a message.
// Lookup failures are reported inside the result, never returned.
type OsintEnricher interface {
	Enrich(ctx context.Context, headers *ParsedHeaders) *OsintResults
}

// HeuristicScorer scores header authentication evidence
type HeuristicScorer interface {
	Score(headers *ParsedHeaders, osint *OsintResults) HeuristicResult
}

// URLAnalyzer classifies the URLs found in a text
type URLAnalyzer interface {
	Analyze(ctx context.Context, text string) URLModelResult
}

// URLScorer classifies one URL submitted on its own
type URLScorer interface {
	AnalyzeURL(ctx context.Context, rawURL string) URLModelResult
}

// AggregationInput is everything the final decision is made from
type AggregationInput struct {
	Heuristic HeuristicResult
	URLModel  URLModelResult
	LLM       LLMResult
	Osint     OsintResults
	EmailID   string
}

// VetoDecision describes an override fired on OSINT evidence
type VetoDecision struct {
	Rule   string
	Reason string
}

// VerdictAggregator combines the analyses into the final report. A fired
// veto is reported in VerdictReport.Veto.
type VerdictAggregator interface {
	Aggregate(in AggregationInput) *VerdictReport
}

// Notifier is told about analyses that deserve attention
type Notifier interface {
	Notify(ctx context.Context, email *Email, report *VerdictReport) error
}

// MetricsRecorder receives pipeline measurements
type MetricsRecorder interface {
	AnalysisCompleted(verdict Verdict, source string, elapsed time.Duration)
	VetoApplied(rule string)
	CacheLookup(hit bool)
}

// IPInfoLookup returns geolocation data for an IP
type IPInfoLookup interface {
	LookupIP(ctx context.Context, ip string) (*IPInfo, error)
}

// AbuseLookup returns reputation data for an IP
type AbuseLookup interface {
	CheckIP(ctx context.Context, ip string) (*AbuseReport, error)
}

// DomainAgeLookup returns registration data for a domain
type DomainAgeLookup interface {
	LookupDomain(ctx context.Context, domain string) (*DomainInfo, error)
}

// ReverseDNSLookup returns the PTR names of an IP
type ReverseDNSLookup interface {
	LookupPTR(ctx context.Context, ip string) ([]string, error)
}

// URLPredictor is the trained URL model
type URLPredictor interface {
	Predict(ctx context.Context, url string, features URLFeatures) (*ModelPrediction, error)
}
