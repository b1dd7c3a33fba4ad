package notify

import (
	"context"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// LogNotifier writes alerts to the application log
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the verdict of an email
func (n *LogNotifier) Notify(ctx context.Context, email *core.Email, report *core.VerdictReport) error {
	n.logger.Warn("Email flagged",
		zap.String("email_id", report.IDEmail),
		zap.String("from", email.From),
		zap.String("subject", email.Subject),
		zap.String("verdict", string(report.Verdict)),
		zap.String("confidence", report.ConfidenceScore),
		zap.String("summary", report.Summary))
	return nil
}
