package urlclassifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// Client calls the URL classifier served over HTTP
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     *zap.Logger
}

type predictRequest struct {
	URL      string           `json:"url"`
	Features core.URLFeatures `json:"features"`
}

type predictResponse struct {
	IsPhishing            *bool    `json:"is_phishing"`
	ProbabilityPhishing   *float64 `json:"probability_phishing"`
	ProbabilityLegitimate *float64 `json:"probability_legitimate"`
	Error                 string   `json:"error"`
}

// NewClient creates a client posting to endpoint
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimSpace(endpoint),
		logger:     logger,
	}
}

// Predict returns the model answer for one URL
func (c *Client) Predict(ctx context.Context, url string, features core.URLFeatures) (*core.ModelPrediction, error) {
	payload, err := json.Marshal(predictRequest{URL: url, Features: features})
	if err != nil {
		return nil, fmt.Errorf("failed to encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call URL model: %w", err)
	}
	defer resp.Body.Close()

	var body predictResponse
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			return nil, fmt.Errorf("URL model returned status %d: %s", resp.StatusCode, body.Error)
		}
		return nil, fmt.Errorf("URL model returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode URL model response: %w", err)
	}
	if body.ProbabilityPhishing == nil {
		return nil, fmt.Errorf("URL model response has no probability_phishing")
	}

	phishing := *body.ProbabilityPhishing
	if math.IsNaN(phishing) || phishing < 0 || phishing > 1 {
		return nil, fmt.Errorf("URL model returned an invalid probability %v", phishing)
	}
	legitimate := 1 - phishing
	if body.ProbabilityLegitimate != nil {
		legitimate = *body.ProbabilityLegitimate
	}
	isPhishing := phishing > legitimate
	if body.IsPhishing != nil {
		isPhishing = *body.IsPhishing
	}

	c.logger.Debug("URL model prediction",
		zap.String("url", url),
		zap.Float64("probability_phishing", phishing))

	return &core.ModelPrediction{
		IsPhishing:            isPhishing,
		ProbabilityPhishing:   phishing,
		ProbabilityLegitimate: legitimate,
	}, nil
}
