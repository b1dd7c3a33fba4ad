package whois

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

const verisignRecord = `   Domain Name: EXAMPLE.COM
   Registry Domain ID: 2336799_DOMAIN_COM-VRSN
   Registrar WHOIS Server: whois.iana.org
   Registrar URL: http://res-dom.iana.org
   Updated Date: 2024-08-14T07:01:34Z
   Creation Date: 1995-08-14T04:00:00Z
   Registry Expiry Date: 2025-08-13T04:00:00Z
   Registrar: RESERVED-Internet Assigned Numbers Authority
   Registrar IANA ID: 376
   Domain Status: clientDeleteProhibited https://icann.org/epp#clientDeleteProhibited
   Name Server: A.IANA-SERVERS.NET
   Name Server: B.IANA-SERVERS.NET
   DNSSEC: signedDelegation
`

func newTestClient(records map[string]string, now time.Time) (*Client, *[]string) {
	var queried []string
	c := &Client{
		fetch: func(domain string) (string, error) {
			queried = append(queried, domain)
			if raw, ok := records[domain]; ok {
				return raw, nil
			}
			return "", errors.New("no match for domain")
		},
		logger: zap.NewNop(),
		now:    func() time.Time { return now },
	}
	return c, &queried
}

func TestLookupDomain(t *testing.T) {
	now := time.Date(1995, 8, 24, 4, 0, 0, 0, time.UTC)
	c, _ := newTestClient(map[string]string{"example.com": verisignRecord}, now)

	info, err := c.LookupDomain(context.Background(), "Example.COM.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.AgeDays == nil || *info.AgeDays != 10 {
		t.Errorf("expected age 10 days, got %v", info.AgeDays)
	}
	if info.CreationDate != "1995-08-14T04:00:00Z" {
		t.Errorf("unexpected creation date %q", info.CreationDate)
	}
}

func TestLookupDomainFallsBackToRegistrableDomain(t *testing.T) {
	now := time.Date(1996, 8, 14, 4, 0, 0, 0, time.UTC)
	c, queried := newTestClient(map[string]string{"example.com": verisignRecord}, now)

	info, err := c.LookupDomain(context.Background(), "mail.news.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.AgeDays == nil || *info.AgeDays != 366 {
		t.Errorf("expected age 366 days, got %v", info.AgeDays)
	}
	if len(*queried) != 2 || (*queried)[1] != "example.com" {
		t.Errorf("expected a retry on example.com, got %v", *queried)
	}
}

func TestLookupDomainFailure(t *testing.T) {
	c, queried := newTestClient(nil, time.Now())
	if _, err := c.LookupDomain(context.Background(), "unknown.example"); err == nil {
		t.Error("expected an error")
	}
	if len(*queried) != 1 {
		t.Errorf("expected a single query for a registrable domain, got %v", *queried)
	}
}

func TestLookupDomainCancelled(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	c := &Client{
		fetch: func(domain string) (string, error) {
			<-block
			return "", nil
		},
		logger: zap.NewNop(),
		now:    time.Now,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.LookupDomain(ctx, "example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"1995-08-14T04:00:00Z", time.Date(1995, 8, 14, 4, 0, 0, 0, time.UTC)},
		{"2020-01-02", time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"02-Jan-2021", time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2019.05.06", time.Date(2019, 5, 6, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if err != nil {
			t.Errorf("ParseDate(%q): unexpected error %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
	if _, err := ParseDate("not a date"); err == nil {
		t.Error("expected an error for garbage")
	}
}
