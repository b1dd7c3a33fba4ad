package factory

import (
	"fmt"
	"os"

	"github.com/mikey/phishgard/internal/adapters/filter"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	analyzer ports.Analyzer
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, analyzer ports.Analyzer) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		analyzer: analyzer,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	serverCfg := f.cfg.GetServer()

	switch serverCfg.FilterType {
	case "postfix":
		return filter.NewPostfixFilter(f.analyzer, f.logger.Named("filter"), serverCfg), nil
	case "cli":
		cli, err := filter.NewCliFilter(
			f.analyzer,
			f.logger,
			os.Stdout,
			f.cfg.GetString("cli.format"),
			f.cfg.GetBool("cli.verbose"),
		)
		if err != nil {
			return nil, err
		}
		return cli, nil
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
