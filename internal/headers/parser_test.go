package headers

import (
	"testing"

	"github.com/mikey/phishgard/internal/core"
)

const gmailAuth = `mx.google.com; dkim=pass header.i=@example.com header.s=s1 header.b=AbCd; spf=pass (google.com: domain of bounce@example.com designates 203.0.113.5 as permitted sender) smtp.mailfrom=bounce@example.com; dmarc=pass (p=REJECT sp=QUARANTINE dis=NONE) header.from=example.com`

func TestParseAuthenticationResults(t *testing.T) {
	set := ParseAuthenticationResults("authentication-results", gmailAuth)

	if set.Server != "mx.google.com" {
		t.Errorf("expected server mx.google.com, got %q", set.Server)
	}
	if set.RawValue != "" {
		t.Errorf("expected no raw value, got %q", set.RawValue)
	}

	if len(set.SPF) != 1 {
		t.Fatalf("expected 1 spf result, got %d", len(set.SPF))
	}
	if set.SPF[0].Result != "pass" {
		t.Errorf("expected spf pass, got %q", set.SPF[0].Result)
	}
	if set.SPF[0].MailFromOrHelo != "bounce@example.com" {
		t.Errorf("expected mailfrom bounce@example.com, got %q", set.SPF[0].MailFromOrHelo)
	}

	if len(set.DKIM) != 1 {
		t.Fatalf("expected 1 dkim result, got %d", len(set.DKIM))
	}
	if set.DKIM[0].Domain != "example.com" {
		t.Errorf("expected dkim domain example.com, got %q", set.DKIM[0].Domain)
	}
	if set.DKIM[0].Selector != "s1" {
		t.Errorf("expected selector s1, got %q", set.DKIM[0].Selector)
	}

	if len(set.DMARC) != 1 {
		t.Fatalf("expected 1 dmarc result, got %d", len(set.DMARC))
	}
	dmarc := set.DMARC[0]
	if dmarc.Result != "pass" || dmarc.Policy != "reject" || dmarc.SubdomainPolicy != "quarantine" || dmarc.Disposition != "none" {
		t.Errorf("unexpected dmarc result: %+v", dmarc)
	}
	if dmarc.FromDomain != "example.com" {
		t.Errorf("expected from domain example.com, got %q", dmarc.FromDomain)
	}
}

func TestParseAuthenticationResultsUnparsed(t *testing.T) {
	set := ParseAuthenticationResults("arc-authentication-results", "i=1; mx.example.net; none")
	if set.RawValue == "" {
		t.Error("expected raw value to be kept when nothing matched")
	}
	if len(set.SPF)+len(set.DKIM)+len(set.DMARC) != 0 {
		t.Errorf("expected no results, got %+v", set)
	}
}

func TestParseReceived(t *testing.T) {
	raw := "from mail.example.com (mail.example.com [203.0.113.5]) by mx.google.com with ESMTPS id abc; Tue, 01 Oct 2024 10:00:00 -0700 (PDT)"
	hop := ParseReceived(raw)

	if hop.FromIP != "203.0.113.5" {
		t.Errorf("expected ip 203.0.113.5, got %q", hop.FromIP)
	}
	if hop.FromHost != "mail.example.com" {
		t.Errorf("expected from host mail.example.com, got %q", hop.FromHost)
	}
	if hop.ByHost != "mx.google.com" {
		t.Errorf("expected by host mx.google.com, got %q", hop.ByHost)
	}
	if hop.Protocol != "ESMTPS" {
		t.Errorf("expected protocol ESMTPS, got %q", hop.Protocol)
	}
	if hop.Timestamp != "Tue, 01 Oct 2024 10:00:00 -0700 (PDT)" {
		t.Errorf("unexpected timestamp %q", hop.Timestamp)
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		address string
		domain  string
	}{
		{`"Alice" <alice@Example.COM>`, "Alice", "alice@Example.COM", "example.com"},
		{"bob@example.org", "", "bob@example.org", "example.org"},
		{"Broken Name <carol@bad.example>", "Broken Name", "carol@bad.example", "bad.example"},
		{"not-an-address", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseAddress(tt.in)
			if got == nil {
				t.Fatal("expected parts, got nil")
			}
			if got.Name != tt.name || got.Address != tt.address || got.Domain != tt.domain {
				t.Errorf("expected {%q %q %q}, got %+v", tt.name, tt.address, tt.domain, got)
			}
		})
	}

	if ParseAddress("  ") != nil {
		t.Error("expected nil for an empty value")
	}
}

func TestParseKeepsReceivedOrder(t *testing.T) {
	fields := []core.HeaderField{
		{Name: "Received", Value: "from b.example ([198.51.100.2]) by c.example; Tue, 01 Oct 2024 10:00:05 +0000"},
		{Name: "Received", Value: "from a.example ([198.51.100.1]) by b.example; Tue, 01 Oct 2024 10:00:00 +0000"},
		{Name: "From", Value: "Alice <alice@example.com>"},
		{Name: "Return-Path", Value: "<bounce@mailer.example.com>"},
		{Name: "Reply-To", Value: "attacker@evil.example"},
		{Name: "To", Value: "x@example.com, y@example.com"},
		{Name: "Cc", Value: "z@example.com"},
		{Name: "Message-ID", Value: "<abc123@mail.example.com>"},
		{Name: "X-Originating-IP", Value: "[192.0.2.10]"},
		{Name: "User-Agent", Value: "Thunderbird"},
		{Name: "X-Spam-Flag", Value: "NO"},
		{Name: "Authentication-Results", Value: gmailAuth},
	}

	parsed := Parse(fields)

	if len(parsed.ReceivedPath) != 2 {
		t.Fatalf("expected 2 hops, got %d", len(parsed.ReceivedPath))
	}
	if parsed.ReceivedPath[0].FromIP != "198.51.100.2" || parsed.ReceivedPath[1].FromIP != "198.51.100.1" {
		t.Errorf("received path order changed: %+v", parsed.ReceivedPath)
	}
	if parsed.FromDomain() != "example.com" {
		t.Errorf("expected from domain example.com, got %q", parsed.FromDomain())
	}
	if parsed.ReturnPathDomain() != "mailer.example.com" {
		t.Errorf("expected return-path domain mailer.example.com, got %q", parsed.ReturnPathDomain())
	}
	if parsed.ReplyToDomain() != "evil.example" {
		t.Errorf("expected reply-to domain evil.example, got %q", parsed.ReplyToDomain())
	}
	if len(parsed.To) != 2 || len(parsed.Cc) != 1 {
		t.Errorf("expected 2 to and 1 cc, got %d and %d", len(parsed.To), len(parsed.Cc))
	}
	if parsed.MessageID == nil || parsed.MessageID.Domain != "mail.example.com" {
		t.Errorf("unexpected message id %+v", parsed.MessageID)
	}
	if parsed.XOriginatingIP != "192.0.2.10" {
		t.Errorf("expected x-originating-ip 192.0.2.10, got %q", parsed.XOriginatingIP)
	}
	if parsed.XMailer != "Thunderbird" {
		t.Errorf("expected x-mailer Thunderbird, got %q", parsed.XMailer)
	}
	if parsed.OtherXHeaders["x-spam-flag"] != "NO" {
		t.Errorf("expected x-spam-flag to be kept, got %v", parsed.OtherXHeaders)
	}
	if _, ok := parsed.OtherXHeaders["x-originating-ip"]; ok {
		t.Error("x-originating-ip must not be duplicated in other x headers")
	}

	primary, ok := parsed.PrimaryAuth()
	if !ok || primary.Server != "mx.google.com" {
		t.Errorf("unexpected primary auth set %+v", primary)
	}
}

func TestMessageIDWithoutDottedDomain(t *testing.T) {
	parsed := Parse([]core.HeaderField{{Name: "Message-ID", Value: "<abc@localhost>"}})
	if parsed.MessageID.ID != "abc@localhost" {
		t.Errorf("expected id abc@localhost, got %q", parsed.MessageID.ID)
	}
	if parsed.MessageID.Domain != "" {
		t.Errorf("expected no domain, got %q", parsed.MessageID.Domain)
	}
}

func TestSplitRaw(t *testing.T) {
	raw := "Received: from a.example\r\n\tby b.example; Tue, 01 Oct 2024 10:00:00 +0000\r\n" +
		"From: alice@example.com\r\n" +
		"Subject: hello\r\n  world\r\n" +
		"\r\n" +
		"Body: not a header\r\n"

	fields := SplitRaw(raw)
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d: %+v", len(fields), fields)
	}
	if fields[0].Value != "from a.example by b.example; Tue, 01 Oct 2024 10:00:00 +0000" {
		t.Errorf("unexpected unfolded value %q", fields[0].Value)
	}
	if fields[2].Name != "Subject" || fields[2].Value != "hello world" {
		t.Errorf("unexpected subject field %+v", fields[2])
	}
}
