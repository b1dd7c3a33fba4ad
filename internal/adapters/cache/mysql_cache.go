package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the AnalysisCache interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS analyses (
			id CHAR(36) NOT NULL,
			user_id VARCHAR(191) NOT NULL,
			email_id VARCHAR(191) NOT NULL,
			sender VARCHAR(320) NOT NULL DEFAULT '',
			subject TEXT NOT NULL,
			verdict VARCHAR(16) NOT NULL,
			confidence_score DOUBLE NOT NULL,
			final_score DOUBLE NOT NULL,
			breakdown MEDIUMTEXT NOT NULL,
			analyzed_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, email_id),
			INDEX idx_analyses_expires_at (expires_at)
		) CHARACTER SET utf8mb4
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go runCleanup(cleanupFreq, cache.stopCh, logger, func() error {
		return cache.Cleanup(context.Background())
	})

	return cache, nil
}

// Get retrieves the analysis of an email for a user
func (c *MySQLCache) Get(ctx context.Context, userID, emailID string) (*core.StoredAnalysis, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE user_id = ? AND email_id = ? AND expires_at > ?
	`, userID, emailID, time.Now().Unix())

	entry, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	return entry, nil
}

// Set stores an analysis
func (c *MySQLCache) Set(ctx context.Context, entry *core.StoredAnalysis) error {
	args, err := analysisArgs(entry)
	if err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			id = VALUES(id),
			sender = VALUES(sender),
			subject = VALUES(subject),
			verdict = VALUES(verdict),
			confidence_score = VALUES(confidence_score),
			final_score = VALUES(final_score),
			breakdown = VALUES(breakdown),
			analyzed_at = VALUES(analyzed_at),
			expires_at = VALUES(expires_at)
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes an analysis
func (c *MySQLCache) Delete(ctx context.Context, userID, emailID string) error {
	_, err := c.db.ExecContext(ctx, `
		DELETE FROM analyses
		WHERE user_id = ? AND email_id = ?
	`, userID, emailID)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM analyses
		WHERE expires_at <= ?
	`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
