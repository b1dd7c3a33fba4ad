package dnsresolver

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"

	"github.com/mikey/phishgard/internal/core"
)

// Exchanger sends a DNS query to a server
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (*dns.Msg, time.Duration, error)
}

// Resolver performs DNS lookups against one resolver
type Resolver struct {
	client Exchanger
	server string
	logger *zap.Logger
}

// NewResolver creates a resolver querying server ("host" or "host:port")
func NewResolver(server string, timeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: &dns.Client{Timeout: timeout},
		server: withPort(server),
		logger: logger,
	}
}

func withPort(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}

// LookupPTR returns the PTR names of ip without their trailing dot. An
// NXDOMAIN answer yields no names and no error.
func (r *Resolver) LookupPTR(ctx context.Context, ip string) ([]string, error) {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("invalid IP %q: %w", ip, err)
	}

	answer, err := r.query(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, fmt.Errorf("failed to query PTR for %s: %w", ip, err)
	}

	var names []string
	for _, rr := range answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
		}
	}
	return names, nil
}

// LookupRecords returns the A, AAAA, MX, NS and TXT records of host. A
// failed record type is skipped; an error is returned only when every
// query failed.
func (r *Resolver) LookupRecords(ctx context.Context, host string) (*core.DNSRecords, error) {
	fqdn := dns.Fqdn(strings.ToLower(host))
	records := &core.DNSRecords{}

	var (
		failures int
		lastErr  error
	)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA, dns.TypeMX, dns.TypeNS, dns.TypeTXT} {
		answer, err := r.query(ctx, fqdn, qtype)
		if err != nil {
			failures++
			lastErr = err
			r.logger.Debug("DNS query failed",
				zap.String("host", host),
				zap.String("type", dns.TypeToString[qtype]),
				zap.Error(err))
			continue
		}
		for _, rr := range answer {
			switch v := rr.(type) {
			case *dns.A:
				records.A = append(records.A, v.A.String())
			case *dns.AAAA:
				records.AAAA = append(records.AAAA, v.AAAA.String())
			case *dns.MX:
				records.MX = append(records.MX, fmt.Sprintf("%d %s", v.Preference, strings.TrimSuffix(v.Mx, ".")))
			case *dns.NS:
				records.NS = append(records.NS, strings.TrimSuffix(v.Ns, "."))
			case *dns.TXT:
				records.TXT = append(records.TXT, strings.Join(v.Txt, ""))
			}
		}
	}
	if failures == 5 {
		return nil, fmt.Errorf("failed to query records for %s: %w", host, lastErr)
	}
	return records, nil
}

// query sends one question, retrying over TCP when the UDP answer is
// truncated. NXDOMAIN is an empty answer.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		r.logger.Debug("Truncated UDP answer, retrying over TCP", zap.String("name", name))
		if client, ok := r.client.(*dns.Client); ok {
			tcp := &dns.Client{Net: "tcp", Timeout: client.Timeout}
			if resp, _, err = tcp.ExchangeContext(ctx, msg, r.server); err != nil {
				return nil, fmt.Errorf("over TCP: %w", err)
			}
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess:
		return resp.Answer, nil
	case dns.RcodeNameError:
		return nil, nil
	default:
		return nil, fmt.Errorf("%s query returned %s", dns.TypeToString[qtype], dns.RcodeToString[resp.Rcode])
	}
}
