package utils

import (
	"bufio"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mikey/phishgard/internal/core"
)

const (
	// ClassPhishing is the label returned for phishing mail
	ClassPhishing = "PHISHING"
	// ClassLegitime is the label returned for legitimate mail
	ClassLegitime = "LEGITIME"
	// ClassUnknown is used when the model answer cannot be read
	ClassUnknown = "UNKNOWN"

	maxConfidence = 10
)

// PhishingSystemPrompt is sent as the system message to chat models
const PhishingSystemPrompt = "You are a phishing email detector. Respond only with JSON."

// PhishingPromptFormat takes the sender, the subject and the body
const PhishingPromptFormat = `You are a phishing email detector. Analyze the following email and decide whether it is legitimate or malicious.

EMAIL:
From: %s
Subject: %s
Body:
%s

Signs of phishing include:
- Urgency or threats
- Requests for personal information or credentials
- Suspicious links or URLs
- Poor spelling or grammar
- A doubtful sender address
- Offers that are too good to be true

Respond with a JSON object containing:
- classification: "PHISHING" or "LEGITIME"
- confidence: integer from 0 to 10, where 10 is very confident
- reason: one concise sentence explaining the decision

Respond only with the JSON object and nothing else.`

var leadingNumberRegex = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// Classification is the answer of a model once parsed
type Classification struct {
	Classification string
	Confidence     int
	Reason         string
}

type classificationJSON struct {
	Classification string          `json:"classification"`
	Class          string          `json:"class"`
	Confidence     json.RawMessage `json:"confidence"`
	Reason         string          `json:"reason"`
}

// ParseClassification reads a model answer. JSON is preferred, including a
// JSON object embedded in prose; otherwise "Classification:", "Confidence:"
// and "Reason:" lines are read (the French "Classe:", "Confiance:" and
// "Raison:" are accepted too).
func ParseClassification(text string) Classification {
	result := Classification{Classification: ClassUnknown, Reason: "N/A"}
	text = strings.TrimSpace(text)
	if text == "" {
		return result
	}

	if parsed, ok := parseClassificationJSON(text); ok {
		return parsed
	}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.Trim(strings.TrimSpace(key), "*-# ")) {
		case "classification", "class", "classe":
			if label := normalizeLabel(value); label != "" {
				result.Classification = label
			}
		case "confidence", "confiance":
			result.Confidence = parseConfidence(value)
		case "reason", "raison":
			result.Reason = value
		}
	}
	return result
}

// Result converts the parsed answer into the pipeline result
func (c Classification) Result(model string) *core.LLMResult {
	return &core.LLMResult{
		Classification:  c.Classification,
		ConfidenceScore: strconv.Itoa(c.Confidence),
		Reason:          c.Reason,
		Model:           model,
	}
}

func parseClassificationJSON(text string) (Classification, bool) {
	var raw classificationJSON
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		// Try the outermost {...} span
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Classification{}, false
		}
		raw = classificationJSON{}
		if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
			return Classification{}, false
		}
	}

	label := raw.Classification
	if label == "" {
		label = raw.Class
	}
	label = normalizeLabel(label)
	if label == "" {
		return Classification{}, false
	}

	result := Classification{
		Classification: label,
		Confidence:     parseConfidence(strings.Trim(string(raw.Confidence), `"`)),
		Reason:         strings.TrimSpace(raw.Reason),
	}
	if result.Reason == "" {
		result.Reason = "N/A"
	}
	return result, true
}

// normalizeLabel maps the model's label on its leading word. A leading NOT
// or NON flips the following word.
func normalizeLabel(value string) string {
	label := strings.ToUpper(strings.Trim(strings.TrimSpace(value), `[]"'*.`))
	words := strings.FieldsFunc(label, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(words) == 0 {
		return label
	}

	negated := words[0] == "NOT" || words[0] == "NON"
	word := words[0]
	if negated && len(words) > 1 {
		word = words[1]
	}
	switch {
	case word == ClassPhishing && !negated:
		return ClassPhishing
	case word == ClassPhishing:
		return ClassLegitime
	case strings.HasPrefix(word, "LEGIT") && !negated:
		return ClassLegitime
	case strings.HasPrefix(word, "LEGIT"):
		return ClassPhishing
	default:
		return label
	}
}

// parseConfidence returns the first number of value clamped to 0..10
func parseConfidence(value string) int {
	match := leadingNumberRegex.FindString(value)
	if match == "" {
		return 0
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(f) {
		return 0
	}
	n := int(math.Round(f))
	if n < 0 {
		return 0
	}
	if n > maxConfidence {
		return maxConfidence
	}
	return n
}
