package heuristic

import (
	"fmt"
	"strings"

	"github.com/mikey/phishgard/internal/allowlist"
	"github.com/mikey/phishgard/internal/core"
)

// Classification thresholds on the raw heuristic score
const (
	LegitimeThreshold = 20
	PhishingThreshold = -20
)

// finding is one labelled score delta
type finding struct {
	delta int
	label string
}

func found(delta int, name string) finding {
	return finding{delta: delta, label: fmt.Sprintf("%s (%+d)", name, delta)}
}

// evidence is the read-only view every rule works from
type evidence struct {
	auth             core.AuthResultSet
	fromDomain       string
	returnPathDomain string
	replyToDomain    string
	osint            *core.OsintResults
}

// rule inspects the evidence and the authentication strength reached so far
type rule func(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength)

// Scorer implements core.HeuristicScorer
type Scorer struct {
	rules []rule
}

// NewScorer creates a scorer. A nil matcher uses the default provider list.
func NewScorer(providers *allowlist.Matcher) *Scorer {
	if providers == nil {
		providers = allowlist.NewMatcher(nil, nil)
	}
	return &Scorer{
		rules: []rule{
			dmarcRule,
			dkimRule,
			spfRule,
			consistencyRule,
			domainAgeRule,
			ipReputationRule(providers),
		},
	}
}

// Score is a convenience wrapper using the default provider list
func Score(ph *core.ParsedHeaders, osint *core.OsintResults) core.HeuristicResult {
	return NewScorer(nil).Score(ph, osint)
}

// Score applies every rule in order. It never fails: absent evidence is
// scored by the rules themselves.
func (s *Scorer) Score(ph *core.ParsedHeaders, osint *core.OsintResults) core.HeuristicResult {
	if ph == nil {
		ph = &core.ParsedHeaders{}
	}
	if osint == nil {
		osint = &core.OsintResults{}
	}
	auth, _ := ph.PrimaryAuth()
	ev := &evidence{
		auth:             auth,
		fromDomain:       ph.FromDomain(),
		returnPathDomain: ph.ReturnPathDomain(),
		replyToDomain:    ph.ReplyToDomain(),
		osint:            osint,
	}

	score := 0
	strength := core.AuthWeak
	positive := []string{}
	negative := []string{}

	for _, r := range s.rules {
		var findings []finding
		findings, strength = r(ev, strength)
		for _, f := range findings {
			score += f.delta
			if f.delta > 0 {
				positive = append(positive, f.label)
			} else {
				negative = append(negative, f.label)
			}
		}
	}

	return core.HeuristicResult{
		Classification: Classify(score),
		Score:          score,
		Details: core.HeuristicDetails{
			AuthenticationStrength: strength,
			PositiveIndicators:     positive,
			NegativeIndicators:     negative,
		},
	}
}

// Classify maps a heuristic score to its class
func Classify(score int) core.HeuristicClass {
	switch {
	case score >= LegitimeThreshold:
		return core.HeuristicLegitime
	case score <= PhishingThreshold:
		return core.HeuristicPhishing
	default:
		return core.HeuristicSuspicious
	}
}

func dmarcRule(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
	if len(ev.auth.DMARC) == 0 {
		return []finding{found(-10, "DMARC_RECORD_MISSING")}, strength
	}
	dmarc := ev.auth.DMARC[0]
	switch dmarc.Result {
	case "pass":
		if dmarc.Policy == "reject" || dmarc.Policy == "quarantine" {
			return []finding{found(25, "DMARC_PASS_STRICT")}, core.AuthStrong
		}
		if strength != core.AuthStrong {
			strength = core.AuthModerate
		}
		return []finding{found(10, "DMARC_PASS_MONITOR")}, strength
	case "fail":
		return []finding{found(-30, "DMARC_FAIL")}, strength
	}
	return nil, strength
}

func dkimRule(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
	if len(ev.auth.DKIM) == 0 {
		return []finding{found(-10, "DKIM_SIGNATURE_MISSING")}, strength
	}
	var findings []finding
	for _, dkim := range ev.auth.DKIM {
		switch dkim.Result {
		case "fail":
			findings = append(findings, found(-20, fmt.Sprintf("DKIM_FAIL(domain:%s)", dkim.Domain)))
		case "pass":
			if core.DomainAligned(dkim.Domain, ev.fromDomain) {
				findings = append(findings, found(15, fmt.Sprintf("DKIM_PASS_ALIGNED(domain:%s)", dkim.Domain)))
				if strength != core.AuthStrong {
					strength = core.AuthModerate
				}
			} else {
				findings = append(findings, found(-5, fmt.Sprintf("DKIM_PASS_UNALIGNED(domain:%s)", dkim.Domain)))
			}
		}
	}
	return findings, strength
}

func spfRule(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
	if len(ev.auth.SPF) == 0 {
		return []finding{found(-10, "SPF_RECORD_MISSING")}, strength
	}
	switch result := ev.auth.SPF[0].Result; result {
	case "pass":
		return []finding{found(5, "SPF_PASS")}, strength
	case "fail", "softfail":
		return []finding{found(-10, "SPF_"+strings.ToUpper(result))}, strength
	}
	return nil, strength
}

// consistencyRule penalises Return-Path and Reply-To domains that do not
// belong to the From domain. The Return-Path penalty only applies while
// authentication is weak.
func consistencyRule(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
	var findings []finding
	if ev.fromDomain != "" && ev.returnPathDomain != "" &&
		!core.DomainAligned(ev.returnPathDomain, ev.fromDomain) && strength == core.AuthWeak {
		findings = append(findings, found(-5, "FROM_RETURN_PATH_MISMATCH_WEAK_AUTH"))
	}
	if ev.fromDomain != "" && ev.replyToDomain != "" && !core.DomainAligned(ev.replyToDomain, ev.fromDomain) {
		findings = append(findings, found(-15,
			fmt.Sprintf("REPLY_TO_DOMAIN_MISMATCH(from:%s, reply-to:%s)", ev.fromDomain, ev.replyToDomain)))
	}
	return findings, strength
}

func domainAgeRule(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
	if ev.fromDomain == "" {
		return nil, strength
	}
	info, ok := ev.osint.DomainAnalysis[ev.fromDomain]
	if !ok || info.AgeDays == nil {
		return nil, strength
	}
	age := *info.AgeDays
	switch {
	case age < 30:
		return []finding{found(-25, fmt.Sprintf("OSINT_DOMAIN_VERY_RECENT(age:%dd)", age))}, strength
	case age < 180:
		return []finding{found(-15, fmt.Sprintf("OSINT_DOMAIN_RECENT(age:%dd)", age))}, strength
	case age > 730:
		return []finding{found(10, fmt.Sprintf("OSINT_DOMAIN_ESTABLISHED(age:%dd)", age))}, strength
	case age > 365:
		return []finding{found(5, fmt.Sprintf("OSINT_DOMAIN_MATURE(age:%dd)", age))}, strength
	}
	return nil, strength
}

// ipReputationRule only looks at the first IP, the one closest to the source
func ipReputationRule(providers *allowlist.Matcher) rule {
	return func(ev *evidence, strength core.AuthStrength) ([]finding, core.AuthStrength) {
		if len(ev.osint.IPAnalysis) == 0 {
			return nil, strength
		}
		source := ev.osint.IPAnalysis[0]

		var findings []finding
		if score, ok := source.AbuseIPDB.Score(); ok {
			switch {
			case score > 80:
				findings = append(findings, found(-30, fmt.Sprintf("OSINT_IP_BLACKLISTED(abuse_score:%d)", score)))
			case score > 25:
				findings = append(findings, found(-15, fmt.Sprintf("OSINT_IP_SUSPICIOUS(abuse_score:%d)", score)))
			}
		}
		if _, ok := providers.MatchOrg(source.IPInfo.Org); ok {
			findings = append(findings, found(5, "OSINT_IP_FROM_KNOWN_PROVIDER"))
		}
		return findings, strength
	}
}
