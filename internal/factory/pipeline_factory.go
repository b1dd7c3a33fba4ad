package factory

import (
	"github.com/mikey/phishgard/internal/aggregator"
	"github.com/mikey/phishgard/internal/allowlist"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/headers"
	"github.com/mikey/phishgard/internal/heuristic"
	"go.uber.org/zap"
)

// PipelineFactory creates the pure stages of the analysis pipeline
type PipelineFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewPipelineFactory creates a new pipeline factory
func NewPipelineFactory(cfg *config.Config, logger *zap.Logger) *PipelineFactory {
	return &PipelineFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHeaderParser creates the header parser
func (f *PipelineFactory) CreateHeaderParser() core.HeaderParser {
	return headers.NewParser()
}

// CreateScorer creates the header heuristics with the known providers
func (f *PipelineFactory) CreateScorer() core.HeuristicScorer {
	providers := allowlist.NewMatcher(f.cfg.GetKnownProviders(), f.logger.Named("allowlist"))
	return heuristic.NewScorer(providers)
}

// CreateAggregator creates the verdict aggregator with the configured weights
func (f *PipelineFactory) CreateAggregator() (core.VerdictAggregator, error) {
	w := f.cfg.GetWeights()
	agg, err := aggregator.New(aggregator.Weights{
		Heuristic: w.Heuristic,
		URLModel:  w.URLModel,
		LLM:       w.LLM,
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}
