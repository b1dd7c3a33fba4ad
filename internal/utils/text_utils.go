package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"

	"github.com/mikey/phishgard/internal/core"
)

// TruncationMarker is appended to bodies cut to the prompt budget
const TruncationMarker = "\n[... Content truncated due to size limits ...]"

// TextProcessor prepares message text for the LLM prompt
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText cuts text to at most maxSize bytes on a rune boundary.
// A maxSize of 0 or less disables the limit.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	cut := maxSize
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}

	tp.logger.Debug("Prompt body truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", cut),
		zap.Int("max_size", maxSize))

	return text[:cut] + TruncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 sequences
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	clean := strings.ToValidUTF8(text, "")
	tp.logger.Debug("Invalid UTF-8 removed",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(clean)))
	return clean
}

// Normalize returns the NFC form of text
func (tp *TextProcessor) Normalize(text string) string {
	if norm.NFC.IsNormalString(text) {
		return text
	}
	return norm.NFC.String(text)
}

// ProcessText sanitizes, normalizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateText(tp.Normalize(tp.SanitizeUTF8(text)), maxSize)
}

// PromptBody returns the body shown to the model: the text part when there
// is one, otherwise the visible text of the HTML part.
func (tp *TextProcessor) PromptBody(email *core.Email, maxSize int) string {
	body := email.Body
	if strings.TrimSpace(body) == "" && email.HTMLBody != "" {
		body = HTMLText(email.HTMLBody)
	}
	return tp.ProcessText(body, maxSize)
}

// HTMLText extracts the visible text of an HTML document. Link targets are
// kept next to their anchor text since they matter for phishing.
func HTMLText(doc string) string {
	var (
		sb   strings.Builder
		skip int
	)
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "script", "style":
				if tok.Type == html.StartTagToken {
					skip++
				}
			case "a":
				for _, attr := range tok.Attr {
					if attr.Key == "href" && attr.Val != "" {
						sb.WriteString(" [" + attr.Val + "] ")
					}
				}
			case "br", "p", "div", "tr", "li":
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); (string(name) == "script" || string(name) == "style") && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
				sb.WriteByte(' ')
			}
		}
	}
}
