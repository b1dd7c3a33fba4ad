package osint

import (
	"math"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/mikey/phishgard/internal/core"
)

// UnknownCountry marks a hop whose IP has no geolocation entry
const UnknownCountry = "LOCAL/UNKNOWN"

var trailingComment = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// DerivePath computes the per-hop countries and delays of a received path.
// path is in header order (newest first); both outputs are chronological.
// Hops without an IP are skipped, and a delay is emitted for every pair of
// consecutive hops that produced a country, nil when a timestamp is unusable.
func DerivePath(path []core.Hop, geo map[string]string) core.PathAnalysis {
	result := core.PathAnalysis{
		HopCountries:     []string{},
		HopDelaysSeconds: []*int64{},
	}

	var located []core.Hop
	for i := len(path) - 1; i >= 0; i-- {
		hop := path[i]
		if hop.FromIP == "" {
			continue
		}
		country, ok := geo[hop.FromIP]
		if !ok || country == "" {
			country = UnknownCountry
		}
		result.HopCountries = append(result.HopCountries, country)
		located = append(located, hop)
	}

	for i := 0; i+1 < len(located); i++ {
		result.HopDelaysSeconds = append(result.HopDelaysSeconds, hopDelay(located[i], located[i+1]))
	}
	return result
}

func hopDelay(earlier, later core.Hop) *int64 {
	t1, ok := ParseTimestamp(earlier.Timestamp)
	if !ok {
		return nil
	}
	t2, ok := ParseTimestamp(later.Timestamp)
	if !ok {
		return nil
	}
	delay := int64(math.Round(t2.Sub(t1).Seconds()))
	return &delay
}

// ParseTimestamp leniently parses a Received timestamp
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	s = trailingComment.ReplaceAllString(s, "")
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
