package osint

import (
	"context"
	"net"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mikey/phishgard/internal/core"
)

// Lookup sources, used as metric labels
const (
	SourceIPInfo    = "ipinfo"
	SourceAbuseIPDB = "abuseipdb"
	SourceWhois     = "whois"
	SourceDNS       = "dns"
)

// ErrorRecorder counts failed lookups
type ErrorRecorder interface {
	LookupFailed(source string)
}

// Lookups are the reputation sources queried by the enricher. Any of them
// may be nil.
type Lookups struct {
	IPInfo     core.IPInfoLookup
	Abuse      core.AbuseLookup
	Whois      core.DomainAgeLookup
	ReverseDNS core.ReverseDNSLookup
}

// Options tune the enricher
type Options struct {
	// Concurrency bounds the number of targets queried at once
	Concurrency int
	// Timeout applies to each individual lookup
	Timeout time.Duration
}

// Enricher implements core.OsintEnricher
type Enricher struct {
	lookups  Lookups
	opts     Options
	logger   *zap.Logger
	recorder ErrorRecorder
}

// NewEnricher creates a new OSINT enricher
func NewEnricher(lookups Lookups, opts Options, logger *zap.Logger, recorder ErrorRecorder) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{
		lookups:  lookups,
		opts:     opts,
		logger:   logger,
		recorder: recorder,
	}
}

// Enrich queries every unique IP and domain of the headers and derives the
// path analysis. Lookup failures end up in the error fields of the result.
func (e *Enricher) Enrich(ctx context.Context, headers *core.ParsedHeaders) *core.OsintResults {
	ips := CollectIPs(headers)
	domains := CollectDomains(headers)

	ipResults := make([]core.IPAnalysis, len(ips))
	domainResults := make([]core.DomainInfo, len(domains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for i, ip := range ips {
		i, ip := i, ip
		g.Go(func() error {
			ipResults[i] = e.analyzeIP(gctx, ip)
			return nil
		})
	}
	for i, domain := range domains {
		i, domain := i, domain
		g.Go(func() error {
			domainResults[i] = e.analyzeDomain(gctx, domain)
			return nil
		})
	}
	_ = g.Wait()

	results := &core.OsintResults{
		IPAnalysis:     ipResults,
		DomainAnalysis: make(map[string]core.DomainInfo, len(domains)),
	}
	geo := make(map[string]string, len(ips))
	for _, r := range ipResults {
		if r.IPInfo.Country != "" {
			geo[r.IP] = r.IPInfo.Country
		}
	}
	for i, domain := range domains {
		results.DomainAnalysis[domain] = domainResults[i]
	}
	results.PathAnalysis = DerivePath(headers.ReceivedPath, geo)

	e.logger.Debug("OSINT enrichment completed",
		zap.Int("ips", len(ips)),
		zap.Int("domains", len(domains)),
		zap.Strings("hop_countries", results.PathAnalysis.HopCountries))

	return results
}

func (e *Enricher) analyzeIP(ctx context.Context, ip string) core.IPAnalysis {
	analysis := core.IPAnalysis{IP: ip}

	if e.lookups.IPInfo == nil {
		analysis.IPInfo = core.IPInfo{Error: "ipinfo lookup not configured"}
	} else if info, err := e.lookupIPInfo(ctx, ip); err != nil {
		e.failed(SourceIPInfo, ip, err)
		analysis.IPInfo = core.IPInfo{Error: err.Error()}
	} else {
		analysis.IPInfo = *info
	}

	if e.lookups.Abuse == nil {
		analysis.AbuseIPDB = core.AbuseReport{Error: "abuseipdb lookup not configured"}
	} else if report, err := e.checkAbuse(ctx, ip); err != nil {
		e.failed(SourceAbuseIPDB, ip, err)
		analysis.AbuseIPDB = core.AbuseReport{Error: err.Error()}
	} else {
		analysis.AbuseIPDB = *report
	}

	if e.lookups.ReverseDNS != nil {
		names, err := e.lookupPTR(ctx, ip)
		if err != nil {
			e.failed(SourceDNS, ip, err)
		} else {
			analysis.PTR = names
		}
	}
	return analysis
}

func (e *Enricher) analyzeDomain(ctx context.Context, domain string) core.DomainInfo {
	if e.lookups.Whois == nil {
		return core.DomainInfo{Error: "whois lookup disabled"}
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	info, err := e.lookups.Whois.LookupDomain(ctx, domain)
	if err != nil {
		e.failed(SourceWhois, domain, err)
		return core.DomainInfo{Error: err.Error()}
	}
	return *info
}

func (e *Enricher) lookupIPInfo(ctx context.Context, ip string) (*core.IPInfo, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.lookups.IPInfo.LookupIP(ctx, ip)
}

func (e *Enricher) checkAbuse(ctx context.Context, ip string) (*core.AbuseReport, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.lookups.Abuse.CheckIP(ctx, ip)
}

func (e *Enricher) lookupPTR(ctx context.Context, ip string) ([]string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return e.lookups.ReverseDNS.LookupPTR(ctx, ip)
}

func (e *Enricher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opts.Timeout)
}

func (e *Enricher) failed(source, target string, err error) {
	e.logger.Warn("OSINT lookup failed",
		zap.String("source", source),
		zap.String("target", target),
		zap.Error(err))
	if e.recorder != nil {
		e.recorder.LookupFailed(source)
	}
}

// CollectIPs returns the unique IPs worth querying: X-Originating-IP first,
// then the received hops from the earliest to the latest.
func CollectIPs(headers *core.ParsedHeaders) []string {
	seen := make(map[string]bool)
	var ips []string
	add := func(ip string) {
		if ip == "" || seen[ip] || net.ParseIP(ip) == nil {
			return
		}
		seen[ip] = true
		ips = append(ips, ip)
	}

	add(headers.XOriginatingIP)
	for i := len(headers.ReceivedPath) - 1; i >= 0; i-- {
		add(headers.ReceivedPath[i].FromIP)
	}
	return ips
}

// CollectDomains returns the sorted unique sender-side domains: From,
// Return-Path, Reply-To and every DKIM signing domain.
func CollectDomains(headers *core.ParsedHeaders) []string {
	seen := make(map[string]bool)
	add := func(domain string) {
		if domain != "" {
			seen[domain] = true
		}
	}

	add(headers.FromDomain())
	add(headers.ReturnPathDomain())
	add(headers.ReplyToDomain())
	for _, set := range headers.AuthenticationResults {
		for _, dkim := range set.DKIM {
			add(dkim.Domain)
		}
	}

	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
