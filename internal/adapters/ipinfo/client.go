package ipinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// DefaultBaseURL is the public IPinfo endpoint
const DefaultBaseURL = "https://ipinfo.io"

// ErrMissingAPIKey is returned when no token is configured
var ErrMissingAPIKey = errors.New("IPinfo API key not configured")

// Client looks up IP geolocation on IPinfo
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// NewClient creates a new IPinfo client
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		logger:     logger,
	}
}

// LookupIP returns the geolocation record of ip
func (c *Client) LookupIP(ctx context.Context, ip string) (*core.IPInfo, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	endpoint := fmt.Sprintf("%s/%s?token=%s", c.baseURL, url.PathEscape(ip), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create IPinfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call IPinfo: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("IPinfo rate limit exceeded")
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("IPinfo returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info core.IPInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode IPinfo response: %w", err)
	}
	if info.IP == "" {
		info.IP = ip
	}

	c.logger.Debug("IPinfo lookup",
		zap.String("ip", ip),
		zap.String("country", info.Country),
		zap.String("org", info.Org))
	return &info, nil
}
