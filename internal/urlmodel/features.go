package urlmodel

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"

	"github.com/mikey/phishgard/internal/core"
)

var (
	urlRe       = regexp.MustCompile(`https?://[^\s"'<>]+`)
	hexRe       = regexp.MustCompile(`(?i)(?:%[0-9a-f]{2}|0x[0-9a-f]+)`)
	base64Re    = regexp.MustCompile(`[A-Za-z0-9+/]{16,}={0,2}`)
	schemeRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
	urlSpecials = "=?&"
)

// ExtractURLs returns the unique http(s) URLs of a text in order of appearance
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:)]")
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}

// ExtractFeatures derives the lexical part of the model feature vector.
// Features needing network access are left to the model server.
func ExtractFeatures(rawURL string) core.URLFeatures {
	f := core.URLFeatures{}
	length := float64(len(rawURL))
	f["LengthOfURL"] = length

	u, err := url.Parse(rawURL)
	if err != nil {
		return f
	}
	host := strings.ToLower(u.Hostname())

	f["DomainLengthOfURL"] = float64(len(host))
	f["IsDomainIP"] = boolFeature(net.ParseIP(host) != nil)
	f["HasSSL"] = boolFeature(u.Scheme == "https")

	if suffix, _ := publicsuffix.PublicSuffix(host); suffix != "" && net.ParseIP(host) == nil {
		f["TLDLength"] = float64(len(suffix))
		if registrable, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
			subdomains := 0
			if sub := strings.TrimSuffix(strings.TrimSuffix(host, registrable), "."); sub != "" {
				subdomains = strings.Count(sub, ".") + 1
			}
			f["NumberOfSubdomains"] = float64(subdomains)
		}
	}

	var letters, digits, equals, quest, amps, others float64
	for _, r := range rawURL {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case r == '=':
			equals++
		case r == '?':
			quest++
		case r == '&':
			amps++
		case !strings.ContainsRune(":/.-_"+urlSpecials, r):
			others++
		}
	}
	f["LetterCntInURL"] = letters
	f["DigitCntInURL"] = digits
	f["EqualCharCntInURL"] = equals
	f["QuesMarkCntInURL"] = quest
	f["AmpCharCntInURL"] = amps
	f["OtherSpclCharCntInURL"] = others
	if length > 0 {
		f["URLLetterRatio"] = letters / length
		f["URLDigitRatio"] = digits / length
		f["URLOtherSpclCharRatio"] = others / length
	}

	f["HavingPath"] = boolFeature(u.Path != "" && u.Path != "/")
	f["PathLength"] = float64(len(u.Path))
	f["HavingQuery"] = boolFeature(u.RawQuery != "")
	f["HavingFragment"] = boolFeature(u.Fragment != "")
	f["HavingAnchor"] = boolFeature(strings.Contains(rawURL, "#"))
	f["NumberOfHashtags"] = float64(strings.Count(rawURL, "#"))
	f["ShannonEntropy"] = shannonEntropy(rawURL)
	f["HexPatternCnt"] = float64(len(hexRe.FindAllString(rawURL, -1)))
	f["Base64PatternCnt"] = float64(len(base64Re.FindAllString(rawURL, -1)))
	f["UniqueFeatureCnt"] = float64(uniqueRunes(rawURL))
	return f
}

// NormalizeURL accepts a URL as users type it. Without a scheme http:// is
// assumed; the result must name a host.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !schemeRe.MatchString(rawURL) {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", rawURL)
	}
	return u.String(), nil
}

// RegistrableDomain returns the eTLD+1 of a URL host, or the host itself
func RegistrableDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

func shannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	counts := make(map[rune]float64)
	total := 0.0
	for _, r := range s {
		counts[r]++
		total++
	}
	entropy := 0.0
	for _, c := range counts {
		p := c / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func uniqueRunes(s string) int {
	seen := make(map[rune]struct{})
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
