package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phishgard/internal/adapters/api"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/factory"
	"github.com/mikey/phishgard/internal/logging"
	"github.com/mikey/phishgard/internal/metrics"
	"github.com/mikey/phishgard/internal/osint"
	"github.com/mikey/phishgard/internal/ports"
	"github.com/mikey/phishgard/internal/urlmodel"
	"github.com/mikey/phishgard/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := providePipeline(container); err != nil {
		return nil, err
	}

	// Register contextual URL analyzer
	if err := container.Provide(func(f *factory.URLModelFactory) (core.URLContextAnalyzer, error) {
		analyzer, err := f.CreateContextAnalyzer()
		if err != nil || analyzer == nil {
			return nil, err
		}
		return analyzer, nil
	}); err != nil {
		return nil, err
	}

	// Register HTTP API
	if err := container.Provide(func(
		cfg *config.Config,
		logger *zap.Logger,
		analyzer ports.Analyzer,
		urls *urlmodel.Analyzer,
		contexts core.URLContextAnalyzer,
		recorder *metrics.Recorder,
	) *api.Server {
		return api.NewServer(analyzer, urls, contexts, recorder.Handler(), logger.Named("api"), cfg.GetAPI().ListenAddress)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// serviceParams are the collaborators of the analysis service. The LLM
// client, cache and notifier are nil when disabled.
type serviceParams struct {
	dig.In

	Config    *config.Config
	Logger    *zap.Logger
	Pipeline  *factory.PipelineFactory
	Notifiers *factory.NotifierFactory
	Enricher  *osint.Enricher
	URLs      *urlmodel.Analyzer
	Recorder  *metrics.Recorder
	LLM       core.LLMClient
	Cache     core.AnalysisCache
	Notifier  core.Notifier
}

// providePipeline registers everything below the outer surfaces. It expects
// *config.Config and *zap.Logger to be provided.
func providePipeline(container *dig.Container) error {
	// Register factories
	for _, constructor := range []interface{}{
		factory.NewLLMFactory,
		factory.NewCacheFactory,
		factory.NewFilterFactory,
		factory.NewTextProcessorFactory,
		factory.NewOsintFactory,
		factory.NewURLModelFactory,
		factory.NewNotifierFactory,
		factory.NewPipelineFactory,
		metrics.NewRecorder,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register LLM client
	if err := container.Provide(func(f *factory.LLMFactory) (core.LLMClient, error) {
		return f.CreateLLMClient()
	}); err != nil {
		return err
	}

	// Register analysis cache
	if err := container.Provide(func(f *factory.CacheFactory) (core.AnalysisCache, error) {
		return f.CreateAnalysisCache()
	}); err != nil {
		return err
	}

	// Register OSINT enricher
	if err := container.Provide(func(f *factory.OsintFactory, recorder *metrics.Recorder) (*osint.Enricher, error) {
		return f.CreateEnricher(recorder)
	}); err != nil {
		return err
	}

	// Register URL analyzer
	if err := container.Provide(func(f *factory.URLModelFactory) (*urlmodel.Analyzer, error) {
		return f.CreateURLAnalyzer()
	}); err != nil {
		return err
	}

	// Register notifier
	if err := container.Provide(func(f *factory.NotifierFactory) (core.Notifier, error) {
		return f.CreateNotifier(context.Background())
	}); err != nil {
		return err
	}

	// Register analysis service
	if err := container.Provide(newService); err != nil {
		return err
	}
	if err := container.Provide(func(s *core.PhishGardService) ports.Analyzer {
		return s
	}); err != nil {
		return err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return err
	}

	return nil
}

func newService(p serviceParams) (*core.PhishGardService, error) {
	agg, err := p.Pipeline.CreateAggregator()
	if err != nil {
		return nil, err
	}
	cacheCfg, err := p.Config.GetCache()
	if err != nil {
		return nil, err
	}
	verdicts, err := p.Notifiers.NotifyVerdicts()
	if err != nil {
		return nil, err
	}

	deps := core.ServiceDeps{
		Parser:     p.Pipeline.CreateHeaderParser(),
		Enricher:   p.Enricher,
		Scorer:     p.Pipeline.CreateScorer(),
		URLs:       p.URLs,
		LLM:        p.LLM,
		Aggregator: agg,
		Cache:      p.Cache,
		Notifier:   p.Notifier,
		Metrics:    p.Recorder,
		Logger:     p.Logger,
	}
	return core.NewPhishGardService(deps, core.ServiceOptions{
		CacheEnabled:   cacheCfg.Enabled,
		CacheTTL:       cacheCfg.TTL,
		NotifyVerdicts: verdicts,
	}), nil
}
