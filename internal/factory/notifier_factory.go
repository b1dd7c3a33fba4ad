package factory

import (
	"context"
	"fmt"

	"github.com/mikey/phishgard/internal/adapters/notify"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates alert notifiers
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier creates the configured notifier, nil for "none"
func (f *NotifierFactory) CreateNotifier(ctx context.Context) (core.Notifier, error) {
	notifyCfg := f.cfg.GetNotify()
	logger := f.logger.Named("notify")

	switch notifyCfg.Type {
	case "log":
		return notify.NewLogNotifier(logger), nil
	case "ses":
		n, err := notify.NewSESNotifier(ctx, notify.SESConfig{
			Region:          notifyCfg.SESRegion,
			Sender:          notifyCfg.SESSender,
			Recipients:      notifyCfg.SESRecipients,
			AccessKeyID:     notifyCfg.SESAccessKeyID,
			SecretAccessKey: notifyCfg.SESSecretAccessKey,
		}, logger)
		if err != nil {
			return nil, err
		}
		return n, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", notifyCfg.Type)
	}
}

// NotifyVerdicts returns the verdicts that trigger a notification
func (f *NotifierFactory) NotifyVerdicts() ([]core.Verdict, error) {
	var verdicts []core.Verdict
	for _, name := range f.cfg.GetNotify().Verdicts {
		switch v := core.Verdict(name); v {
		case core.VerdictLegitime, core.VerdictSuspicious, core.VerdictPhishing:
			verdicts = append(verdicts, v)
		default:
			return nil, fmt.Errorf("unknown verdict in notify.verdicts: %s", name)
		}
	}
	return verdicts, nil
}
