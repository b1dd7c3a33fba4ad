package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// WeightsConfig is the weighting of the final aggregation
type WeightsConfig struct {
	Heuristic float64
	URLModel  float64
	LLM       float64
}

// OsintConfig represents the configuration of the reputation lookups
type OsintConfig struct {
	Timeout          time.Duration
	Concurrency      int
	IPInfoAPIKey     string
	IPInfoBaseURL    string
	AbuseIPDBAPIKey  string
	AbuseIPDBBaseURL string
	AbuseMaxAgeDays  int
	WhoisEnabled     bool
	DNSEnabled       bool
	DNSResolver      string
}

// URLModelConfig represents the configuration of the URL model server
type URLModelConfig struct {
	Endpoint string
	Timeout  time.Duration
}

// URLContextConfig represents the configuration of the contextual URL report
type URLContextConfig struct {
	Enabled      bool
	Timeout      time.Duration
	FetchTimeout time.Duration
}

// CacheConfig represents the configuration of the analysis cache
type CacheConfig struct {
	Enabled          bool
	Type             string
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
	PostgresURL      string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
}

// HeadersConfig names the headers written by the mail filter
type HeadersConfig struct {
	Verdict string
	Score   string
	Summary string
}

// ServerConfig represents the configuration of the mail filter
type ServerConfig struct {
	FilterType     string
	ListenAddress  string
	UserID         string
	BlockPhishing  bool
	ModifySubject  bool
	Headers        HeadersConfig
	PostfixAddress string
	PostfixPort    int
	PostfixEnabled bool
}

// APIConfig represents the configuration of the HTTP API
type APIConfig struct {
	Enabled       bool
	ListenAddress string
}

// NotifyConfig represents the configuration of alert notifications
type NotifyConfig struct {
	Type          string
	Verdicts      []string
	SESRegion     string
	SESSender     string
	SESRecipients []string

	SESAccessKeyID     string
	SESSecretAccessKey string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetWeights returns the aggregation weights
func (c *Config) GetWeights() WeightsConfig {
	return WeightsConfig{
		Heuristic: c.GetFloat64("aggregator.weights.heuristic"),
		URLModel:  c.GetFloat64("aggregator.weights.url_model"),
		LLM:       c.GetFloat64("aggregator.weights.llm"),
	}
}

// GetKnownProviders returns the organisation names trusted by the heuristics
func (c *Config) GetKnownProviders() []string {
	return c.GetStringSlice("heuristic.known_providers")
}

// GetOsint returns the OSINT configuration
func (c *Config) GetOsint() (OsintConfig, error) {
	timeout, err := c.GetDuration("osint.timeout")
	if err != nil {
		return OsintConfig{}, fmt.Errorf("invalid osint.timeout: %w", err)
	}
	return OsintConfig{
		Timeout:          timeout,
		Concurrency:      c.GetInt("osint.concurrency"),
		IPInfoAPIKey:     c.GetString("osint.ipinfo.api_key"),
		IPInfoBaseURL:    c.GetString("osint.ipinfo.base_url"),
		AbuseIPDBAPIKey:  c.GetString("osint.abuseipdb.api_key"),
		AbuseIPDBBaseURL: c.GetString("osint.abuseipdb.base_url"),
		AbuseMaxAgeDays:  c.GetInt("osint.abuseipdb.max_age_days"),
		WhoisEnabled:     c.GetBool("osint.whois.enabled"),
		DNSEnabled:       c.GetBool("osint.dns.enabled"),
		DNSResolver:      c.GetString("osint.dns.resolver"),
	}, nil
}

// GetURLModel returns the URL model configuration
func (c *Config) GetURLModel() (URLModelConfig, error) {
	timeout, err := c.GetDuration("urlmodel.timeout")
	if err != nil {
		return URLModelConfig{}, fmt.Errorf("invalid urlmodel.timeout: %w", err)
	}
	return URLModelConfig{
		Endpoint: c.GetString("urlmodel.endpoint"),
		Timeout:  timeout,
	}, nil
}

// GetURLContext returns the contextual URL report configuration
func (c *Config) GetURLContext() (URLContextConfig, error) {
	timeout, err := c.GetDuration("urlcontext.timeout")
	if err != nil {
		return URLContextConfig{}, fmt.Errorf("invalid urlcontext.timeout: %w", err)
	}
	fetchTimeout, err := c.GetDuration("urlcontext.fetch_timeout")
	if err != nil {
		return URLContextConfig{}, fmt.Errorf("invalid urlcontext.fetch_timeout: %w", err)
	}
	return URLContextConfig{
		Enabled:      c.GetBool("urlcontext.enabled"),
		Timeout:      timeout,
		FetchTimeout: fetchTimeout,
	}, nil
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.ttl: %w", err)
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, fmt.Errorf("invalid cache.cleanup_frequency: %w", err)
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		Type:             c.GetString("cache.type"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("cache.sqlite_path"),
		MySQLDSN:         c.GetString("cache.mysql_dsn"),
		PostgresURL:      c.GetString("cache.postgres_url"),
		RedisAddr:        c.GetString("cache.redis_addr"),
		RedisPassword:    c.GetString("cache.redis_password"),
		RedisDB:          c.GetInt("cache.redis_db"),
	}, nil
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:    c.GetString("server.filter_type"),
		ListenAddress: c.GetString("server.listen_address"),
		UserID:        c.GetString("server.user_id"),
		BlockPhishing: c.GetBool("server.block_phishing"),
		ModifySubject: c.GetBool("server.modify_subject"),
		Headers: HeadersConfig{
			Verdict: c.GetString("server.headers.verdict"),
			Score:   c.GetString("server.headers.score"),
			Summary: c.GetString("server.headers.summary"),
		},
		PostfixAddress: c.GetString("server.postfix.address"),
		PostfixPort:    c.GetInt("server.postfix.port"),
		PostfixEnabled: c.GetBool("server.postfix.enabled"),
	}
}

// GetAPI returns the HTTP API configuration
func (c *Config) GetAPI() APIConfig {
	return APIConfig{
		Enabled:       c.GetBool("api.enabled"),
		ListenAddress: c.GetString("api.listen_address"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		Type:          c.GetString("notify.type"),
		Verdicts:      c.GetStringSlice("notify.verdicts"),
		SESRegion:     c.GetString("notify.ses.region"),
		SESSender:     c.GetString("notify.ses.sender"),
		SESRecipients: c.GetStringSlice("notify.ses.recipients"),

		SESAccessKeyID:     c.GetString("notify.ses.access_key_id"),
		SESSecretAccessKey: c.GetString("notify.ses.secret_access_key"),
	}
}
