package core

import (
	"strconv"
	"strings"
	"time"
)

// Verdict is the final label. The three values are used verbatim as label
// names by the mail filter and must not change.
type Verdict string

const (
	VerdictLegitime   Verdict = "Legitime"
	VerdictSuspicious Verdict = "Suspicious"
	VerdictPhishing   Verdict = "Phishing"
)

// IPInfo is the geolocation record of an IP
type IPInfo struct {
	IP       string `json:"ip,omitempty"`
	Hostname string `json:"hostname,omitempty"`
	City     string `json:"city,omitempty"`
	Region   string `json:"region,omitempty"`
	Country  string `json:"country,omitempty"`
	Loc      string `json:"loc,omitempty"`
	Org      string `json:"org,omitempty"`
	Postal   string `json:"postal,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AbuseReport is the reputation record of an IP
type AbuseReport struct {
	IPAddress            string `json:"ipAddress,omitempty"`
	IsPublic             bool   `json:"isPublic,omitempty"`
	AbuseConfidenceScore *int   `json:"abuseConfidenceScore,omitempty"`
	CountryCode          string `json:"countryCode,omitempty"`
	UsageType            string `json:"usageType,omitempty"`
	ISP                  string `json:"isp,omitempty"`
	Domain               string `json:"domain,omitempty"`
	TotalReports         int    `json:"totalReports,omitempty"`
	LastReportedAt       string `json:"lastReportedAt,omitempty"`
	Error                string `json:"error,omitempty"`
}

// Score returns the abuse confidence score, ok is false when unknown
func (a *AbuseReport) Score() (int, bool) {
	if a == nil || a.AbuseConfidenceScore == nil {
		return 0, false
	}
	return *a.AbuseConfidenceScore, true
}

// IPAnalysis groups every lookup made for one IP
type IPAnalysis struct {
	IP        string      `json:"ip"`
	IPInfo    IPInfo      `json:"ipinfo"`
	AbuseIPDB AbuseReport `json:"abuseipdb"`
	PTR       []string    `json:"ptr,omitempty"`
}

// DomainInfo is the WHOIS summary of a domain
type DomainInfo struct {
	CreationDate string `json:"creation_date,omitempty"`
	AgeDays      *int   `json:"age_days,omitempty"`
	Error        string `json:"error,omitempty"`
}

// PathAnalysis holds the chronological hop facts. HopDelaysSeconds is one
// shorter than HopCountries; a nil entry means a timestamp was unusable.
type PathAnalysis struct {
	HopCountries     []string `json:"hop_countries"`
	HopDelaysSeconds []*int64 `json:"hop_delays_seconds"`
}

// OsintResults is the output of the enricher
type OsintResults struct {
	IPAnalysis     []IPAnalysis          `json:"ip_analysis"`
	DomainAnalysis map[string]DomainInfo `json:"domain_analysis"`
	PathAnalysis   PathAnalysis          `json:"path_analysis"`
}

// HeuristicClass is the classification of the header heuristics
type HeuristicClass string

const (
	HeuristicLegitime   HeuristicClass = "LEGITIME"
	HeuristicSuspicious HeuristicClass = "SUSPICIOUS"
	HeuristicPhishing   HeuristicClass = "PHISHING"
)

// AuthStrength summarises the authentication outcome
type AuthStrength string

const (
	AuthWeak     AuthStrength = "weak"
	AuthModerate AuthStrength = "moderate"
	AuthStrong   AuthStrength = "strong"
)

// HeuristicDetails lists the labelled deltas in evaluation order
type HeuristicDetails struct {
	AuthenticationStrength AuthStrength `json:"authentication_strength"`
	PositiveIndicators     []string     `json:"positive_indicators"`
	NegativeIndicators     []string     `json:"negative_indicators"`
}

// HeuristicResult is the output of the header scorer
type HeuristicResult struct {
	Classification HeuristicClass   `json:"classification"`
	Score          int              `json:"score"`
	Details        HeuristicDetails `json:"details"`
}

// URLResultShape discriminates the URL model result variants
type URLResultShape int

const (
	URLShapeNone URLResultShape = iota
	URLShapeProbability
	URLShapeVerdict
)

// URLProbabilities carries per-class probabilities as percentage strings
type URLProbabilities struct {
	Phishing   string `json:"phishing"`
	Legitimate string `json:"legitimate"`
}

// URLModelResult is the output of the URL classifier. Two shapes exist:
// probability-centric (ProbabilityPhishing set) and verdict-centric
// (Verdict and Confidence set). Neither means the analysis did not apply.
type URLModelResult struct {
	URL                 string            `json:"url,omitempty"`
	Prediction          string            `json:"prediction,omitempty"`
	ProbabilityPhishing string            `json:"probability_phishing,omitempty"`
	Verdict             string            `json:"verdict,omitempty"`
	Confidence          string            `json:"confidence,omitempty"`
	RiskLevel           string            `json:"risk_level,omitempty"`
	Probability         *URLProbabilities `json:"probability,omitempty"`
	Details             string            `json:"details,omitempty"`
	Error               string            `json:"error,omitempty"`
}

// Shape reports which variant r holds
func (r URLModelResult) Shape() URLResultShape {
	switch {
	case r.ProbabilityPhishing != "":
		return URLShapeProbability
	case r.Verdict != "":
		return URLShapeVerdict
	default:
		return URLShapeNone
	}
}

// URLFeatures is the lexical feature vector of a URL
type URLFeatures map[string]float64

// ModelPrediction is the raw answer of the URL model. Probabilities are
// fractions in [0,1].
type ModelPrediction struct {
	IsPhishing            bool
	ProbabilityPhishing   float64
	ProbabilityLegitimate float64
}

// LLMResult is the output of the LLM classifier
type LLMResult struct {
	Classification  string `json:"classification"`
	ConfidenceScore string `json:"confidence_score"`
	Reason          string `json:"reason,omitempty"`
	Details         string `json:"details,omitempty"`
	Model           string `json:"model,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Breakdown embeds the four inputs of the aggregator
type Breakdown struct {
	HeuristicAnalysis HeuristicResult `json:"heuristic_analysis"`
	URLMLAnalysis     URLModelResult  `json:"url_ml_analysis"`
	LLMAnalysis       LLMResult       `json:"llm_analysis"`
	OsintEnrichment   OsintResults    `json:"osint_enrichment"`
}

// VerdictReport is the final, immutable result of one analysis
type VerdictReport struct {
	IDEmail            string    `json:"id_email"`
	Verdict            Verdict   `json:"phishgard_verdict"`
	ConfidenceScore    string    `json:"confidence_score"`
	FinalScoreInternal float64   `json:"final_score_internal"`
	Summary            string    `json:"summary"`
	Breakdown          Breakdown `json:"breakdown"`

	// Veto is the override that decided the verdict, if any
	Veto *VetoDecision `json:"-" yaml:"-"`
}

// CachedSummary replaces the summary of reports served from the cache
const CachedSummary = "Result loaded from the analysis cache."

// StoredAnalysis is a persisted report keyed by user and email
type StoredAnalysis struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	EmailID         string    `json:"email_id"`
	Sender          string    `json:"sender"`
	Subject         string    `json:"subject"`
	Verdict         Verdict   `json:"verdict"`
	ConfidenceScore float64   `json:"confidence_score"`
	FinalScore      float64   `json:"final_score"`
	Breakdown       Breakdown `json:"breakdown"`
	AnalyzedAt      time.Time `json:"analyzed_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// Report rebuilds the report shape from a stored analysis
func (s *StoredAnalysis) Report() *VerdictReport {
	return &VerdictReport{
		IDEmail:            s.EmailID,
		Verdict:            s.Verdict,
		ConfidenceScore:    FormatPercent(s.ConfidenceScore),
		FinalScoreInternal: s.FinalScore,
		Summary:            CachedSummary,
		Breakdown:          s.Breakdown,
	}
}

// FormatPercent renders v with the shortest exact representation and at
// least one decimal: 82.5 -> "82.5%", 100 -> "100.0%".
func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + "%"
}

// ParsePercent parses "82.5%" or "82.5" into 82.5
func ParsePercent(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return strconv.ParseFloat(s, 64)
}
