package factory

import (
	"github.com/mikey/phishgard/internal/adapters/certinfo"
	"github.com/mikey/phishgard/internal/adapters/dnsresolver"
	"github.com/mikey/phishgard/internal/adapters/ipinfo"
	"github.com/mikey/phishgard/internal/adapters/urlclassifier"
	"github.com/mikey/phishgard/internal/adapters/webcontent"
	"github.com/mikey/phishgard/internal/adapters/whois"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/urlmodel"
	"go.uber.org/zap"
)

// URLModelFactory creates the URL analyzer
type URLModelFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewURLModelFactory creates a new URL model factory
func NewURLModelFactory(cfg *config.Config, logger *zap.Logger) *URLModelFactory {
	return &URLModelFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateURLAnalyzer creates the analyzer, backed by the model server when an
// endpoint is configured
func (f *URLModelFactory) CreateURLAnalyzer() (*urlmodel.Analyzer, error) {
	modelCfg, err := f.cfg.GetURLModel()
	if err != nil {
		return nil, err
	}
	logger := f.logger.Named("urlmodel")

	if modelCfg.Endpoint == "" {
		logger.Warn("URL model endpoint not set, URL analysis will be neutral")
		return urlmodel.NewAnalyzer(nil, logger), nil
	}
	client := urlclassifier.NewClient(modelCfg.Endpoint, modelCfg.Timeout, logger)
	return urlmodel.NewAnalyzer(client, logger), nil
}

// CreateContextAnalyzer creates the contextual URL report, reusing the OSINT
// sources for WHOIS, DNS and geolocation. It returns nil when disabled.
func (f *URLModelFactory) CreateContextAnalyzer() (*urlmodel.ContextAnalyzer, error) {
	ctxCfg, err := f.cfg.GetURLContext()
	if err != nil {
		return nil, err
	}
	if !ctxCfg.Enabled {
		return nil, nil
	}
	osintCfg, err := f.cfg.GetOsint()
	if err != nil {
		return nil, err
	}
	logger := f.logger.Named("urlcontext")

	sources := urlmodel.ContextSources{
		DNS:     dnsresolver.NewResolver(osintCfg.DNSResolver, osintCfg.Timeout, logger),
		TLS:     certinfo.NewInspector(osintCfg.Timeout, logger),
		Geo:     ipinfo.NewClient(osintCfg.IPInfoAPIKey, osintCfg.IPInfoBaseURL, osintCfg.Timeout, logger),
		Content: webcontent.NewFetcher(ctxCfg.FetchTimeout, logger),
	}
	if osintCfg.WhoisEnabled {
		sources.Whois = whois.NewClient(osintCfg.Timeout, logger)
	}
	return urlmodel.NewContextAnalyzer(sources, ctxCfg.Timeout, logger), nil
}
