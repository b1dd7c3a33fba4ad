package abuseipdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// DefaultBaseURL is the AbuseIPDB v2 API
const DefaultBaseURL = "https://api.abuseipdb.com/api/v2"

// DefaultMaxAgeDays is the report window used when none is configured
const DefaultMaxAgeDays = 90

// ErrMissingAPIKey is returned when no key is configured
var ErrMissingAPIKey = errors.New("AbuseIPDB API key not configured")

// Client checks IP reputation on AbuseIPDB
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxAgeDays int
	logger     *zap.Logger
}

type checkResponse struct {
	Data   core.AbuseReport `json:"data"`
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}

// NewClient creates a new AbuseIPDB client
func NewClient(apiKey, baseURL string, maxAgeDays int, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultMaxAgeDays
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxAgeDays: maxAgeDays,
		logger:     logger,
	}
}

// CheckIP returns the reputation record of ip
func (c *Client) CheckIP(ctx context.Context, ip string) (*core.AbuseReport, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params := url.Values{}
	params.Set("ipAddress", ip)
	params.Set("maxAgeInDays", strconv.Itoa(c.maxAgeDays))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create AbuseIPDB request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call AbuseIPDB: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("AbuseIPDB rate limit exceeded (retry after %q)", resp.Header.Get("Retry-After"))
	}

	var body checkResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &body) == nil && len(body.Errors) > 0 {
			return nil, fmt.Errorf("AbuseIPDB returned status %d: %s", resp.StatusCode, body.Errors[0].Detail)
		}
		return nil, fmt.Errorf("AbuseIPDB returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode AbuseIPDB response: %w", err)
	}

	report := body.Data
	if score, ok := report.Score(); ok {
		c.logger.Debug("AbuseIPDB lookup",
			zap.String("ip", ip),
			zap.Int("abuse_confidence_score", score),
			zap.Int("total_reports", report.TotalReports))
	}
	return &report, nil
}
