package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// PostgresCache is a PostgreSQL implementation of the AnalysisCache interface
type PostgresCache struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewPostgresCache creates a new PostgreSQL cache
func NewPostgresCache(databaseURL string, logger *zap.Logger, cleanupFreq time.Duration) (*PostgresCache, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 5 * time.Minute
	poolCfg.MaxConnIdleTime = 2 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analyses (
			id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			email_id TEXT NOT NULL,
			sender TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			verdict TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			final_score DOUBLE PRECISION NOT NULL,
			breakdown TEXT NOT NULL,
			analyzed_at BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			PRIMARY KEY (user_id, email_id)
		)
	`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_analyses_expires_at ON analyses(expires_at)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &PostgresCache{
		pool:        pool,
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
func (c *PostgresCache) Get(ctx context.Context, userID, emailID string) (*core.StoredAnalysis, error) {
	row := c.pool.QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE user_id = $1 AND email_id = $2 AND expires_at > $3
	`, userID, emailID, time.Now().Unix())

	entry, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}
	return entry, nil
}

// Set stores an analysis
func (c *PostgresCache) Set(ctx context.Context, entry *core.StoredAnalysis) error {
	args, err := analysisArgs(entry)
	if err != nil {
		return err
	}

	_, err = c.pool.Exec(ctx, `
		INSERT INTO analyses (`+analysisColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, email_id) DO UPDATE SET
			id = EXCLUDED.id,
			sender = EXCLUDED.sender,
			subject = EXCLUDED.subject,
			verdict = EXCLUDED.verdict,
			confidence_score = EXCLUDED.confidence_score,
			final_score = EXCLUDED.final_score,
			breakdown = EXCLUDED.breakdown,
			analyzed_at = EXCLUDED.analyzed_at,
			expires_at = EXCLUDED.expires_at
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes an analysis
func (c *PostgresCache) Delete(ctx context.Context, userID, emailID string) error {
	_, err := c.pool.Exec(ctx, `
		DELETE FROM analyses
		WHERE user_id = $1 AND email_id = $2
	`, userID, emailID)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup removes expired entries
func (c *PostgresCache) Cleanup(ctx context.Context) error {
	tag, err := c.pool.Exec(ctx, `
		DELETE FROM analyses
		WHERE expires_at <= $1
	`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", tag.RowsAffected()))
	return nil
}

// Stop stops the background cleanup task and closes the connection pool
func (c *PostgresCache) Stop() {
	close(c.stopCh)
	c.pool.Close()
}
