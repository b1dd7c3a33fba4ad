package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// Columns shared by the SQL backends. Timestamps are unix seconds so that
// expiry comparisons do not depend on the database clock or time zone.
const analysisColumns = `id, user_id, email_id, sender, subject, verdict, confidence_score, final_score, breakdown, analyzed_at, expires_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row rowScanner) (*core.StoredAnalysis, error) {
	var (
		entry      core.StoredAnalysis
		verdict    string
		breakdown  string
		analyzedAt int64
		expiresAt  int64
	)
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.EmailID,
		&entry.Sender,
		&entry.Subject,
		&verdict,
		&entry.ConfidenceScore,
		&entry.FinalScore,
		&breakdown,
		&analyzedAt,
		&expiresAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(breakdown), &entry.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to decode breakdown: %w", err)
	}
	entry.Verdict = core.Verdict(verdict)
	entry.AnalyzedAt = time.Unix(analyzedAt, 0).UTC()
	entry.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return &entry, nil
}

func analysisArgs(entry *core.StoredAnalysis) ([]interface{}, error) {
	breakdown, err := json.Marshal(entry.Breakdown)
	if err != nil {
		return nil, fmt.Errorf("failed to encode breakdown: %w", err)
	}
	return []interface{}{
		entry.ID,
		entry.UserID,
		entry.EmailID,
		entry.Sender,
		entry.Subject,
		string(entry.Verdict),
		entry.ConfidenceScore,
		entry.FinalScore,
		string(breakdown),
		entry.AnalyzedAt.Unix(),
		entry.ExpiresAt.Unix(),
	}, nil
}

// runCleanup calls cleanup every freq until stopCh is closed
func runCleanup(freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger, cleanup func() error) {
	if freq <= 0 {
		return
	}
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := cleanup(); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
