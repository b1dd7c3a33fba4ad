package dnsresolver

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/mikey/phishgard/internal/core"
)

type fakeExchanger struct {
	question string
	rcode    int
	answer   []dns.RR
	err      error
}

func (f *fakeExchanger) ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.question = m.Question[0].Name
	resp := new(dns.Msg)
	resp.SetRcode(m, f.rcode)
	resp.Answer = f.answer
	return resp, time.Millisecond, nil
}

func newTestResolver(ex Exchanger) *Resolver {
	return &Resolver{client: ex, server: "127.0.0.1:53", logger: zap.NewNop()}
}

func TestLookupPTR(t *testing.T) {
	rr, err := dns.NewRR("4.113.0.203.in-addr.arpa. 300 IN PTR mail-out.example.com.")
	if err != nil {
		t.Fatalf("failed to build RR: %v", err)
	}
	ex := &fakeExchanger{rcode: dns.RcodeSuccess, answer: []dns.RR{rr}}

	names, err := newTestResolver(ex).LookupPTR(context.Background(), "203.0.113.4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"mail-out.example.com"}) {
		t.Errorf("unexpected names %v", names)
	}
	if ex.question != "4.113.0.203.in-addr.arpa." {
		t.Errorf("unexpected question %q", ex.question)
	}
}

func TestLookupPTRNXDomain(t *testing.T) {
	names, err := newTestResolver(&fakeExchanger{rcode: dns.RcodeNameError}).LookupPTR(context.Background(), "192.0.2.1")
	if err != nil || names != nil {
		t.Errorf("expected no names and no error, got %v, %v", names, err)
	}
}

func TestLookupPTRFailures(t *testing.T) {
	if _, err := newTestResolver(&fakeExchanger{rcode: dns.RcodeServerFailure}).LookupPTR(context.Background(), "192.0.2.1"); err == nil {
		t.Error("expected an error on SERVFAIL")
	}
	if _, err := newTestResolver(&fakeExchanger{err: errors.New("timeout")}).LookupPTR(context.Background(), "192.0.2.1"); err == nil {
		t.Error("expected an error on exchange failure")
	}
	if _, err := newTestResolver(&fakeExchanger{}).LookupPTR(context.Background(), "not-an-ip"); err == nil {
		t.Error("expected an error for an invalid IP")
	}
}

func TestWithPort(t *testing.T) {
	if got := withPort("8.8.8.8"); got != "8.8.8.8:53" {
		t.Errorf("expected default port, got %q", got)
	}
	if got := withPort("1.1.1.1:5353"); got != "1.1.1.1:5353" {
		t.Errorf("expected port kept, got %q", got)
	}
}

type zoneExchanger struct {
	records map[uint16][]string
	failing map[uint16]bool
}

func (z *zoneExchanger) ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error) {
	qtype := m.Question[0].Qtype
	if z.failing[qtype] {
		return nil, 0, errors.New("timeout")
	}
	resp := new(dns.Msg)
	resp.SetReply(m)
	for _, text := range z.records[qtype] {
		rr, err := dns.NewRR(text)
		if err != nil {
			return nil, 0, err
		}
		resp.Answer = append(resp.Answer, rr)
	}
	return resp, time.Millisecond, nil
}

func TestLookupRecords(t *testing.T) {
	ex := &zoneExchanger{
		records: map[uint16][]string{
			dns.TypeA:   {"login.example.com. 300 IN A 203.0.113.10"},
			dns.TypeMX:  {"login.example.com. 300 IN MX 10 mx1.example.com."},
			dns.TypeNS:  {"login.example.com. 300 IN NS ns1.example.net."},
			dns.TypeTXT: {`login.example.com. 300 IN TXT "v=spf1 " "-all"`},
		},
		failing: map[uint16]bool{dns.TypeAAAA: true},
	}

	records, err := newTestResolver(ex).LookupRecords(context.Background(), "Login.Example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &core.DNSRecords{
		A:   []string{"203.0.113.10"},
		MX:  []string{"10 mx1.example.com"},
		NS:  []string{"ns1.example.net"},
		TXT: []string{"v=spf1 -all"},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("LookupRecords() = %+v, want %+v", records, want)
	}
	if got := records.IPs(); !reflect.DeepEqual(got, []string{"203.0.113.10"}) {
		t.Errorf("unexpected IPs %v", got)
	}
}

func TestLookupRecordsAllFailed(t *testing.T) {
	ex := &zoneExchanger{failing: map[uint16]bool{
		dns.TypeA: true, dns.TypeAAAA: true, dns.TypeMX: true, dns.TypeNS: true, dns.TypeTXT: true,
	}}
	if _, err := newTestResolver(ex).LookupRecords(context.Background(), "example.com"); err == nil {
		t.Error("expected an error when every query fails")
	}
}
