package webcontent

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/mikey/phishgard/internal/core"
)

const (
	maxPageSize  = 2 << 20
	maxRedirects = 5
	userAgent    = "Mozilla/5.0 (compatible; phishgard/1.0)"
)

// Fetcher downloads a page and counts the elements phishing kits rely on
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// NewFetcher creates a fetcher with the given request timeout
func NewFetcher(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		logger: logger,
	}
}

// Fetch downloads rawURL and summarises the returned document. Non-2xx
// answers are still parsed since phishing pages often sit behind them.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*core.PageContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	final := resp.Request.URL
	content := Summarise(io.LimitReader(resp.Body, maxPageSize), final)
	content.FinalURL = final.String()
	content.StatusCode = resp.StatusCode
	content.Redirected = final.String() != req.URL.String()

	f.logger.Debug("Page fetched",
		zap.String("url", rawURL),
		zap.String("final_url", content.FinalURL),
		zap.Int("status", resp.StatusCode),
		zap.Int("forms", content.Forms))
	return content, nil
}

// Summarise counts the structural features of an HTML document. Relative
// references are resolved against base to tell own links from external ones.
func Summarise(r io.Reader, base *url.URL) *core.PageContent {
	content := &core.PageContent{}
	z := html.NewTokenizer(r)
	inTitle := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			content.Title = strings.TrimSpace(content.Title)
			return content
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = tok.Type == html.StartTagToken && content.Title == ""
			case "meta":
				if strings.EqualFold(attr(tok, "name"), "description") && attr(tok, "content") != "" {
					content.HasDescription = true
				}
			case "link":
				if strings.Contains(strings.ToLower(attr(tok, "rel")), "icon") {
					content.HasFavicon = true
				}
			case "form":
				content.Forms++
				if isExternal(attr(tok, "action"), base) {
					content.ExternalForms++
				}
			case "input":
				switch strings.ToLower(attr(tok, "type")) {
				case "password":
					content.PasswordFields++
				case "hidden":
					content.HiddenFields++
				}
			case "iframe":
				content.IFrames++
			case "script":
				content.Scripts++
			case "img":
				content.Images++
			case "a":
				href := strings.TrimSpace(attr(tok, "href"))
				switch {
				case isEmptyLink(href):
					content.EmptyLinks++
				case isExternal(href, base):
					content.ExternalLinks++
				default:
					content.SelfLinks++
				}
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == "title" {
				inTitle = false
			}
		case html.TextToken:
			if inTitle {
				content.Title += string(z.Text())
			}
		}
	}
}

func attr(tok html.Token, key string) string {
	for _, a := range tok.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func isEmptyLink(href string) bool {
	lower := strings.ToLower(href)
	return href == "" || href == "#" || strings.HasPrefix(lower, "javascript:")
}

// isExternal reports whether ref points to another host than base. Empty
// references and unparsable ones count as local.
func isExternal(ref string, base *url.URL) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == nil {
		return false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	u = base.ResolveReference(u)
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return !strings.EqualFold(u.Hostname(), base.Hostname())
}
