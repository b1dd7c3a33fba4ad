package urlmodel

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/phishgard/internal/core"
)

// Overview labels
const (
	HTTPSValid   = "✅ Valid"
	HTTPSInvalid = "❌ Invalid"
	notAvailable = "N/A"
)

// ContextSources are the lookups behind a contextual report. Any of them
// may be nil, in which case its section carries an error.
type ContextSources struct {
	Whois   core.DomainAgeLookup
	DNS     core.DNSRecordLookup
	TLS     core.TLSInspector
	Geo     core.IPInfoLookup
	Content core.PageFetcher
}

// ContextAnalyzer implements core.URLContextAnalyzer
type ContextAnalyzer struct {
	sources ContextSources
	timeout time.Duration
	logger  *zap.Logger
}

// NewContextAnalyzer creates a contextual analyzer. A timeout of 0 leaves
// the caller's context in charge.
func NewContextAnalyzer(sources ContextSources, timeout time.Duration, logger *zap.Logger) *ContextAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextAnalyzer{
		sources: sources,
		timeout: timeout,
		logger:  logger,
	}
}

// Context collects WHOIS, DNS, certificate, location and page facts about
// rawURL concurrently. Only an unusable URL is an error; failing sources
// are reported in their section.
func (a *ContextAnalyzer) Context(ctx context.Context, rawURL string) (*core.URLContextReport, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.ToLower(u.Hostname())

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	report := &core.URLContextReport{URL: target}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		report.Whois = a.whois(gctx, host)
		return nil
	})
	g.Go(func() error {
		report.TLS = a.certificate(gctx, host)
		return nil
	})
	g.Go(func() error {
		report.Content = a.content(gctx, target)
		return nil
	})
	g.Go(func() error {
		report.DNS = a.records(gctx, host)
		report.ServerLocation = a.location(gctx, host, report.DNS.IPs())
		return nil
	})
	_ = g.Wait()

	report.Overview = overview(host, report)

	a.logger.Debug("URL context collected",
		zap.String("url", target),
		zap.Int("resolved_ips", len(report.Overview.ResolvedIPs)),
		zap.Bool("tls_valid", report.TLS.Valid))
	return report, nil
}

func (a *ContextAnalyzer) whois(ctx context.Context, host string) core.DomainInfo {
	if a.sources.Whois == nil {
		return core.DomainInfo{Error: "WHOIS lookup not configured"}
	}
	if net.ParseIP(host) != nil {
		return core.DomainInfo{Error: "host is an IP address"}
	}
	info, err := a.sources.Whois.LookupDomain(ctx, host)
	if err != nil {
		return core.DomainInfo{Error: err.Error()}
	}
	return *info
}

func (a *ContextAnalyzer) certificate(ctx context.Context, host string) core.TLSInfo {
	if a.sources.TLS == nil {
		return core.TLSInfo{Error: "TLS inspection not configured"}
	}
	info, err := a.sources.TLS.Inspect(ctx, host)
	if err != nil {
		return core.TLSInfo{Error: err.Error()}
	}
	return *info
}

func (a *ContextAnalyzer) content(ctx context.Context, target string) core.PageContent {
	if a.sources.Content == nil {
		return core.PageContent{Error: "page fetching not configured"}
	}
	page, err := a.sources.Content.Fetch(ctx, target)
	if err != nil {
		return core.PageContent{Error: err.Error()}
	}
	return *page
}

func (a *ContextAnalyzer) records(ctx context.Context, host string) core.DNSRecords {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() != nil {
			return core.DNSRecords{A: []string{host}}
		}
		return core.DNSRecords{AAAA: []string{host}}
	}
	if a.sources.DNS == nil {
		return core.DNSRecords{Error: "DNS lookup not configured"}
	}
	records, err := a.sources.DNS.LookupRecords(ctx, host)
	if err != nil {
		return core.DNSRecords{Error: err.Error()}
	}
	return *records
}

// location geolocates the first resolved address
func (a *ContextAnalyzer) location(ctx context.Context, host string, ips []string) core.IPInfo {
	if len(ips) == 0 {
		return core.IPInfo{Error: fmt.Sprintf("no address resolved for %s", host)}
	}
	if a.sources.Geo == nil {
		return core.IPInfo{IP: ips[0], Error: "geolocation not configured"}
	}
	info, err := a.sources.Geo.LookupIP(ctx, ips[0])
	if err != nil {
		return core.IPInfo{IP: ips[0], Error: err.Error()}
	}
	return *info
}

func overview(host string, report *core.URLContextReport) core.URLOverview {
	o := core.URLOverview{
		Domain:      host,
		ResolvedIPs: report.DNS.IPs(),
		Country:     notAvailable,
		DomainAge:   notAvailable,
		HTTPS:       HTTPSInvalid,
	}
	if o.ResolvedIPs == nil {
		o.ResolvedIPs = []string{}
	}
	if report.ServerLocation.Error == "" && report.ServerLocation.Country != "" {
		o.Country = report.ServerLocation.Country
	}
	if report.Whois.AgeDays != nil {
		o.DomainAge = FormatDomainAge(*report.Whois.AgeDays)
	}
	if report.TLS.Valid {
		o.HTTPS = HTTPSValid
	}
	return o
}

// FormatDomainAge renders a day count with 365-day years and 30-day months
func FormatDomainAge(days int) string {
	if days < 0 {
		days = 0
	}
	years := days / 365
	rest := days % 365
	return fmt.Sprintf("%d years, %d months, %d days", years, rest/30, rest%30)
}
