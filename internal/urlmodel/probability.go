package urlmodel

import (
	"math"
	"strings"

	"github.com/mikey/phishgard/internal/core"
)

// PhishingProbability normalizes both result shapes into a phishing
// probability percentage in [0, 100]. ok is false when r carries none.
//
// The probability-centric shape gives it directly. The verdict-centric
// shape gives the confidence of its own verdict, so a legitimate verdict
// at 90% means a 10% phishing probability.
func PhishingProbability(r core.URLModelResult) (float64, bool) {
	switch r.Shape() {
	case core.URLShapeProbability:
		return parseProbability(r.ProbabilityPhishing)
	case core.URLShapeVerdict:
		confidence, ok := parseProbability(r.Confidence)
		if !ok {
			return 0, false
		}
		if strings.Contains(strings.ToLower(r.Verdict), "phishing") {
			return confidence, true
		}
		return 100 - confidence, true
	default:
		return 0, false
	}
}

func parseProbability(s string) (float64, bool) {
	if strings.EqualFold(strings.TrimSpace(s), "N/A") {
		return 0, false
	}
	p, err := core.ParsePercent(s)
	if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return math.Max(0, math.Min(100, p)), true
}
