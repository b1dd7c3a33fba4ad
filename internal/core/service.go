package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HeaderOnlyEmailID is the id_email of reports built from headers alone
const HeaderOnlyEmailID = "on-demand-header-analysis"

// ServiceDeps bundles the collaborators of PhishGardService. LLM, Cache,
// Notifier and Metrics may be nil.
type ServiceDeps struct {
	Parser     HeaderParser
	Enricher   OsintEnricher
	Scorer     HeuristicScorer
	URLs       URLAnalyzer
	LLM        LLMClient
	Aggregator VerdictAggregator
	Cache      AnalysisCache
	Notifier   Notifier
	Metrics    MetricsRecorder
	Logger     *zap.Logger
}

// ServiceOptions are the tunables of PhishGardService
type ServiceOptions struct {
	CacheEnabled   bool
	CacheTTL       time.Duration
	NotifyVerdicts []Verdict
}

// PhishGardService is the analysis pipeline
type PhishGardService struct {
	parser         HeaderParser
	enricher       OsintEnricher
	scorer         HeuristicScorer
	urls           URLAnalyzer
	llmClient      LLMClient
	aggregator     VerdictAggregator
	cache          AnalysisCache
	notifier       Notifier
	metrics        MetricsRecorder
	logger         *zap.Logger
	cacheEnabled   bool
	cacheTTL       time.Duration
	notifyVerdicts map[Verdict]bool
}

// NewPhishGardService creates a new analysis service
func NewPhishGardService(deps ServiceDeps, opts ServiceOptions) *PhishGardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	notify := make(map[Verdict]bool, len(opts.NotifyVerdicts))
	for _, v := range opts.NotifyVerdicts {
		notify[v] = true
	}
	return &PhishGardService{
		parser:         deps.Parser,
		enricher:       deps.Enricher,
		scorer:         deps.Scorer,
		urls:           deps.URLs,
		llmClient:      deps.LLM,
		aggregator:     deps.Aggregator,
		cache:          deps.Cache,
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		logger:         logger,
		cacheEnabled:   opts.CacheEnabled && deps.Cache != nil,
		cacheTTL:       opts.CacheTTL,
		notifyVerdicts: notify,
	}
}

// AnalyzeEmail runs the full pipeline on an email. A stored analysis for the
// same user and email is returned instead of analysing again.
func (s *PhishGardService) AnalyzeEmail(ctx context.Context, userID string, email *Email) (*VerdictReport, error) {
	if email == nil {
		return nil, errors.New("email is nil")
	}
	start := time.Now()
	emailID := email.ID
	if emailID == "" {
		emailID = emailIdentifier(email)
	}

	if s.cacheEnabled {
		entry, err := s.cache.Get(ctx, userID, emailID)
		switch {
		case err == nil:
			s.logger.Debug("Cache hit for email",
				zap.String("user_id", userID),
				zap.String("email_id", emailID))
			s.cacheLookup(true)
			report := entry.Report()
			s.completed(report, "cache", start)
			return report, nil
		case errors.Is(err, ErrNotFound):
			s.cacheLookup(false)
		default:
			s.logger.Warn("Failed to read analysis cache", zap.Error(err))
			s.cacheLookup(false)
		}
	}

	headers := s.parser.Parse(email.Headers)
	osint := s.enrich(ctx, headers)
	heuristic := s.scorer.Score(headers, osint)

	var (
		llmResult LLMResult
		urlResult URLModelResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		llmResult = s.classify(gctx, emailID, email)
		return nil
	})
	g.Go(func() error {
		urlResult = s.analyzeURLs(gctx, email)
		return nil
	})
	_ = g.Wait()

	report := s.aggregate(AggregationInput{
		Heuristic: heuristic,
		URLModel:  urlResult,
		LLM:       llmResult,
		Osint:     *osint,
		EmailID:   emailID,
	})

	if s.cacheEnabled {
		s.store(ctx, userID, emailID, email, report)
	}
	s.notify(ctx, email, report)
	s.completed(report, "pipeline", start)

	s.logger.Info("Email analyzed",
		zap.String("email_id", emailID),
		zap.String("sender", email.From),
		zap.String("verdict", string(report.Verdict)),
		zap.Float64("score", report.FinalScoreInternal))

	return report, nil
}

// AnalyzeHeaders scores a raw header block alone. URL and LLM inputs are
// neutral and the result is never cached.
func (s *PhishGardService) AnalyzeHeaders(ctx context.Context, raw string) (*VerdictReport, error) {
	fields := s.parser.SplitRaw(raw)
	if len(fields) == 0 {
		return nil, errors.New("no header fields found")
	}
	start := time.Now()

	headers := s.parser.Parse(fields)
	osint := s.enrich(ctx, headers)
	heuristic := s.scorer.Score(headers, osint)

	report := s.aggregate(AggregationInput{
		Heuristic: heuristic,
		URLModel: URLModelResult{
			Prediction: "N/A",
			Details:    "URL analysis not applicable (headers only)",
		},
		LLM: LLMResult{
			Classification:  "N/A",
			ConfidenceScore: "0",
			Details:         "LLM analysis not applicable (headers only)",
		},
		Osint:   *osint,
		EmailID: HeaderOnlyEmailID,
	})
	s.completed(report, "headers", start)
	return report, nil
}

// Lookup returns a stored report or ErrNotFound
func (s *PhishGardService) Lookup(ctx context.Context, userID, emailID string) (*VerdictReport, error) {
	if !s.cacheEnabled {
		return nil, ErrNotFound
	}
	entry, err := s.cache.Get(ctx, userID, emailID)
	if err != nil {
		return nil, err
	}
	return entry.Report(), nil
}

func (s *PhishGardService) enrich(ctx context.Context, headers *ParsedHeaders) *OsintResults {
	if s.enricher == nil {
		return &OsintResults{DomainAnalysis: map[string]DomainInfo{}}
	}
	return s.enricher.Enrich(ctx, headers)
}

func (s *PhishGardService) classify(ctx context.Context, emailID string, email *Email) LLMResult {
	if s.llmClient == nil {
		return LLMResult{
			Classification:  "N/A",
			ConfidenceScore: "0",
			Details:         "LLM analysis disabled",
		}
	}
	result, err := s.llmClient.Classify(ctx, email)
	if err != nil {
		s.logger.Error("LLM classification failed",
			zap.String("email_id", emailID),
			zap.Error(err))
		return LLMResult{
			Classification:  "UNKNOWN",
			ConfidenceScore: "0",
			Error:           err.Error(),
		}
	}
	return *result
}

func (s *PhishGardService) analyzeURLs(ctx context.Context, email *Email) URLModelResult {
	if s.urls == nil {
		return URLModelResult{Prediction: "N/A", Details: "URL analysis disabled"}
	}
	text := email.Body
	if email.HTMLBody != "" {
		text += "\n" + email.HTMLBody
	}
	return s.urls.Analyze(ctx, text)
}

func (s *PhishGardService) aggregate(in AggregationInput) *VerdictReport {
	report := s.aggregator.Aggregate(in)
	if report.Veto != nil && s.metrics != nil {
		s.metrics.VetoApplied(report.Veto.Rule)
	}
	return report
}

func (s *PhishGardService) store(ctx context.Context, userID, emailID string, email *Email, report *VerdictReport) {
	now := time.Now()
	confidence := report.FinalScoreInternal
	if confidence < 0 {
		confidence = -confidence
	}
	entry := &StoredAnalysis{
		ID:              uuid.NewString(),
		UserID:          userID,
		EmailID:         emailID,
		Sender:          email.From,
		Subject:         email.Subject,
		Verdict:         report.Verdict,
		ConfidenceScore: confidence,
		FinalScore:      report.FinalScoreInternal,
		Breakdown:       report.Breakdown,
		AnalyzedAt:      now,
		ExpiresAt:       now.Add(s.cacheTTL),
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		s.logger.Error("Failed to update cache", zap.Error(err))
	}
}

func (s *PhishGardService) notify(ctx context.Context, email *Email, report *VerdictReport) {
	if s.notifier == nil || !s.notifyVerdicts[report.Verdict] {
		return
	}
	if err := s.notifier.Notify(ctx, email, report); err != nil {
		s.logger.Error("Failed to send notification",
			zap.String("email_id", report.IDEmail),
			zap.Error(err))
	}
}

func (s *PhishGardService) completed(report *VerdictReport, source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.AnalysisCompleted(report.Verdict, source, time.Since(start))
	}
}

func (s *PhishGardService) cacheLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.CacheLookup(hit)
	}
}

// emailIdentifier falls back to the Message-ID, then to a random UUID
func emailIdentifier(email *Email) string {
	id := strings.TrimSpace(email.HeaderValue("Message-ID"))
	id = strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">")
	if id != "" {
		return id
	}
	return uuid.NewString()
}
