package factory

import (
	"github.com/mikey/phishgard/internal/adapters/abuseipdb"
	"github.com/mikey/phishgard/internal/adapters/dnsresolver"
	"github.com/mikey/phishgard/internal/adapters/ipinfo"
	"github.com/mikey/phishgard/internal/adapters/whois"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/osint"
	"go.uber.org/zap"
)

// OsintFactory creates the reputation enricher
type OsintFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOsintFactory creates a new OSINT factory
func NewOsintFactory(cfg *config.Config, logger *zap.Logger) *OsintFactory {
	return &OsintFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateEnricher wires the configured lookups into an enricher. Sources
// without credentials stay in the pipeline and report their error per target.
func (f *OsintFactory) CreateEnricher(recorder osint.ErrorRecorder) (*osint.Enricher, error) {
	osintCfg, err := f.cfg.GetOsint()
	if err != nil {
		return nil, err
	}
	logger := f.logger.Named("osint")

	lookups := osint.Lookups{
		IPInfo: ipinfo.NewClient(osintCfg.IPInfoAPIKey, osintCfg.IPInfoBaseURL, osintCfg.Timeout, logger),
		Abuse:  abuseipdb.NewClient(osintCfg.AbuseIPDBAPIKey, osintCfg.AbuseIPDBBaseURL, osintCfg.AbuseMaxAgeDays, osintCfg.Timeout, logger),
	}
	if osintCfg.IPInfoAPIKey == "" {
		logger.Warn("IPinfo API key not set, geolocation lookups will fail")
	}
	if osintCfg.AbuseIPDBAPIKey == "" {
		logger.Warn("AbuseIPDB API key not set, reputation lookups will fail")
	}
	if osintCfg.WhoisEnabled {
		lookups.Whois = whois.NewClient(osintCfg.Timeout, logger)
	}
	if osintCfg.DNSEnabled {
		lookups.ReverseDNS = dnsresolver.NewResolver(osintCfg.DNSResolver, osintCfg.Timeout, logger)
	}

	return osint.NewEnricher(lookups, osint.Options{
		Concurrency: osintCfg.Concurrency,
		Timeout:     osintCfg.Timeout,
	}, logger, recorder), nil
}
