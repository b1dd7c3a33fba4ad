package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Output formats of the CLI filter
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CLIUserID owns the analyses made from the command line
const CLIUserID = "cli"

// CliFilter analyses emails from the command line and prints the report
type CliFilter struct {
	service ports.Analyzer
	logger  *zap.Logger
	out     io.Writer
	format  string
	verbose bool
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(service ports.Analyzer, logger *zap.Logger, out io.Writer, format string, verbose bool) (*CliFilter, error) {
	switch format {
	case "":
		format = FormatText
	case FormatText, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &CliFilter{
		service: service,
		logger:  logger,
		out:     out,
		format:  format,
		verbose: verbose,
	}, nil
}

// ProcessEmail analyses an email and prints the report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.VerdictReport, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	if f.format == FormatText {
		fmt.Fprintf(f.out, "=== Email Summary ===\n")
		fmt.Fprintf(f.out, "From: %s\n", email.From)
		fmt.Fprintf(f.out, "To: %s\n", strings.Join(email.To, ", "))
		fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
		fmt.Fprintf(f.out, "Body length: %d bytes\n", len(email.Body))
		if f.verbose {
			preview := email.Body
			if len(preview) > 500 {
				preview = preview[:500] + "..."
			}
			fmt.Fprintf(f.out, "\nBody preview:\n%s\n", preview)
		}
		fmt.Fprintln(f.out)
	}

	start := time.Now()
	report, err := f.service.AnalyzeEmail(ctx, CLIUserID, email)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	return report, f.print(report, time.Since(start))
}

// ProcessHeaders analyses a raw header block and prints the report
func (f *CliFilter) ProcessHeaders(ctx context.Context, raw string) (*core.VerdictReport, error) {
	start := time.Now()
	report, err := f.service.AnalyzeHeaders(ctx, raw)
	if err != nil {
		f.logger.Error("Failed to analyze headers", zap.Error(err))
		return nil, err
	}
	return report, f.print(report, time.Since(start))
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}

func (f *CliFilter) print(report *core.VerdictReport, elapsed time.Duration) error {
	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(f.out)
		enc.SetIndent(2)
		if err := enc.Encode(reportDocument(report)); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()
	}
	writeText(f.out, report, f.verbose)
	fmt.Fprintf(f.out, "Processing time: %v\n", elapsed.Round(time.Millisecond))
	return nil
}

// reportDocument round-trips through JSON so YAML keys match the JSON ones
func reportDocument(report *core.VerdictReport) interface{} {
	data, err := json.Marshal(report)
	if err != nil {
		return report
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return report
	}
	return doc
}

func writeText(w io.Writer, report *core.VerdictReport, verbose bool) {
	b := report.Breakdown
	fmt.Fprintf(w, "=== Verdict ===\n")
	fmt.Fprintf(w, "Email ID: %s\n", report.IDEmail)
	fmt.Fprintf(w, "Verdict: %s\n", report.Verdict)
	fmt.Fprintf(w, "Confidence: %s\n", report.ConfidenceScore)
	fmt.Fprintf(w, "Final score: %.2f\n", report.FinalScoreInternal)
	fmt.Fprintf(w, "Summary: %s\n", report.Summary)

	fmt.Fprintf(w, "\n=== Breakdown ===\n")
	h := b.HeuristicAnalysis
	fmt.Fprintf(w, "Heuristics: %s (score %d, authentication %s)\n",
		h.Classification, h.Score, h.Details.AuthenticationStrength)
	for _, s := range h.Details.PositiveIndicators {
		fmt.Fprintf(w, "  + %s\n", s)
	}
	for _, s := range h.Details.NegativeIndicators {
		fmt.Fprintf(w, "  - %s\n", s)
	}

	u := b.URLMLAnalysis
	switch u.Shape() {
	case core.URLShapeProbability:
		fmt.Fprintf(w, "URL model: %s phishing\n", u.ProbabilityPhishing)
	case core.URLShapeVerdict:
		fmt.Fprintf(w, "URL model: %s (%s, risk %s) %s\n", u.Verdict, u.Confidence, u.RiskLevel, u.URL)
	default:
		fmt.Fprintf(w, "URL model: %s\n", firstNonEmpty(u.Error, u.Details, "N/A"))
	}

	l := b.LLMAnalysis
	fmt.Fprintf(w, "LLM: %s (confidence %s/10)", l.Classification, l.ConfidenceScore)
	if l.Model != "" {
		fmt.Fprintf(w, " [%s]", l.Model)
	}
	fmt.Fprintln(w)
	if reason := firstNonEmpty(l.Error, l.Reason, l.Details); reason != "" {
		fmt.Fprintf(w, "  %s\n", reason)
	}

	if !verbose {
		return
	}
	o := b.OsintEnrichment
	fmt.Fprintf(w, "\n=== OSINT ===\n")
	for _, ip := range o.IPAnalysis {
		abuse := "unknown"
		if score, ok := ip.AbuseIPDB.Score(); ok {
			abuse = fmt.Sprintf("%d%%", score)
		}
		fmt.Fprintf(w, "IP %s: country %s, org %s, abuse %s\n",
			ip.IP, firstNonEmpty(ip.IPInfo.Country, "?"), firstNonEmpty(ip.IPInfo.Org, "?"), abuse)
	}
	domains := make([]string, 0, len(o.DomainAnalysis))
	for domain := range o.DomainAnalysis {
		domains = append(domains, domain)
	}
	sort.Strings(domains)
	for _, domain := range domains {
		info := o.DomainAnalysis[domain]
		age := firstNonEmpty(info.Error, "unknown")
		if info.AgeDays != nil {
			age = fmt.Sprintf("%d day(s)", *info.AgeDays)
		}
		fmt.Fprintf(w, "Domain %s: %s\n", domain, age)
	}
	if len(o.PathAnalysis.HopCountries) > 0 {
		fmt.Fprintf(w, "Path: %s\n", strings.Join(o.PathAnalysis.HopCountries, " -> "))
	}
	fmt.Fprintln(w)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
