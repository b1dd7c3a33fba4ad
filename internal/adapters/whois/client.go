package whois

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// ErrNoCreationDate is returned when the record carries no creation date
var ErrNoCreationDate = errors.New("creation date not found")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// Client resolves the registration date of domains
type Client struct {
	fetch  func(domain string) (string, error)
	logger *zap.Logger
	now    func() time.Time
}

// NewClient creates a WHOIS client using the given query timeout
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	wc := whois.NewClient()
	if timeout > 0 {
		wc.SetTimeout(timeout)
	}
	return &Client{
		fetch: func(domain string) (string, error) {
			return wc.Whois(domain)
		},
		logger: logger,
		now:    time.Now,
	}
}

// LookupDomain returns the creation date and age of domain. Subdomains
// without their own record fall back to the registrable domain.
func (c *Client) LookupDomain(ctx context.Context, domain string) (*core.DomainInfo, error) {
	domain = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(domain), "."))
	if domain == "" {
		return nil, fmt.Errorf("empty domain")
	}

	created, err := c.creationDate(ctx, domain)
	if err != nil {
		parent, perr := publicsuffix.EffectiveTLDPlusOne(domain)
		if perr != nil || parent == domain {
			return nil, err
		}
		c.logger.Debug("WHOIS lookup failed, trying registrable domain",
			zap.String("domain", domain),
			zap.String("parent", parent),
			zap.Error(err))
		if created, err = c.creationDate(ctx, parent); err != nil {
			return nil, err
		}
	}

	age := int(math.Floor(c.now().Sub(created).Hours() / 24))
	return &core.DomainInfo{
		CreationDate: created.Format(time.RFC3339),
		AgeDays:      &age,
	}, nil
}

func (c *Client) creationDate(ctx context.Context, domain string) (time.Time, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := c.fetch(domain)
		done <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return time.Time{}, fmt.Errorf("WHOIS lookup for %s: %w", domain, ctx.Err())
	case res = <-done:
	}
	if res.err != nil {
		return time.Time{}, fmt.Errorf("WHOIS lookup for %s failed: %w", domain, res.err)
	}

	info, err := whoisparser.Parse(res.raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse WHOIS record for %s: %w", domain, err)
	}
	if info.Domain == nil || strings.TrimSpace(info.Domain.CreatedDate) == "" {
		return time.Time{}, ErrNoCreationDate
	}
	return ParseDate(info.Domain.CreatedDate)
}

// ParseDate reads the creation date formats found in WHOIS records
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	t, err := dateparse.ParseAny(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognised WHOIS date %q: %w", value, err)
	}
	return t, nil
}
