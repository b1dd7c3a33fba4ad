package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultProviders are the mail and cloud providers whose network
// organisation names are considered a good sign
var DefaultProviders = []string{"google", "microsoft", "amazon", "mailgun", "salesforce"}

// Matcher checks organisation names and domains against a list of known-good providers
type Matcher struct {
	providers []string
	logger    *zap.Logger
}

// NewMatcher creates a new provider matcher. An empty list falls back to
// DefaultProviders.
func NewMatcher(providers []string, logger *zap.Logger) *Matcher {
	if len(providers) == 0 {
		providers = DefaultProviders
	}

	// Normalize entries (lowercase)
	normalized := make([]string, 0, len(providers))
	for _, p := range providers {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			normalized = append(normalized, p)
		}
	}

	if logger != nil {
		logger.Info("Initialized provider allowlist", zap.Strings("providers", normalized))
	}

	return &Matcher{
		providers: normalized,
		logger:    logger,
	}
}

// MatchOrg reports whether org contains a known provider name
// (case-insensitive) and returns the provider that matched
func (m *Matcher) MatchOrg(org string) (string, bool) {
	if m == nil || org == "" {
		return "", false
	}
	lower := strings.ToLower(org)
	for _, p := range m.providers {
		if strings.Contains(lower, p) {
			if m.logger != nil {
				m.logger.Debug("Organisation matches known provider",
					zap.String("org", org),
					zap.String("provider", p))
			}
			return p, true
		}
	}
	return "", false
}

// Providers returns a copy of the configured provider names
func (m *Matcher) Providers() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.providers))
	copy(out, m.providers)
	return out
}
