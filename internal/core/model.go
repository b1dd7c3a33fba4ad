package core

import (
	"strings"
)

// HeaderField is a single raw header as it appeared in the message
type HeaderField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Email represents an email message submitted for analysis
type Email struct {
	ID       string
	From     string
	To       []string
	Subject  string
	Body     string
	HTMLBody string
	// Headers keeps the original header order, Received lines included
	Headers []HeaderField
}

// HeaderValue returns the first value of the named header (case-insensitive)
func (e *Email) HeaderValue(name string) string {
	for _, h := range e.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// AddressParts is a mailbox split into display name, address and domain
type AddressParts struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Domain  string `json:"domain,omitempty"`
}

// SPFResult is one spf= clause of an Authentication-Results header
type SPFResult struct {
	Result         string `json:"result"`
	Details        string `json:"details,omitempty"`
	MailFromOrHelo string `json:"mailfrom_or_helo,omitempty"`
}

// DKIMResult is one dkim= clause of an Authentication-Results header
type DKIMResult struct {
	Result   string `json:"result"`
	Domain   string `json:"domain,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// DMARCResult is one dmarc= clause of an Authentication-Results header
type DMARCResult struct {
	Result          string `json:"result"`
	Policy          string `json:"policy,omitempty"`
	SubdomainPolicy string `json:"subdomain_policy,omitempty"`
	Disposition     string `json:"disposition,omitempty"`
	FromDomain      string `json:"from_domain,omitempty"`
	RawDetails      string `json:"raw_details,omitempty"`
}

// AuthResultSet is a parsed Authentication-Results or ARC-Authentication-Results header
type AuthResultSet struct {
	Type     string        `json:"type"`
	Server   string        `json:"server"`
	SPF      []SPFResult   `json:"spf"`
	DKIM     []DKIMResult  `json:"dkim"`
	DMARC    []DMARCResult `json:"dmarc"`
	RawValue string        `json:"raw_value,omitempty"`
}

// Hop is one parsed Received header
type Hop struct {
	Raw       string `json:"raw"`
	FromHost  string `json:"from_host,omitempty"`
	FromIP    string `json:"from_ip,omitempty"`
	ByHost    string `json:"by_host,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Protocol  string `json:"protocol,omitempty"`
}

// MessageID is a parsed Message-ID header
type MessageID struct {
	ID     string `json:"id"`
	Domain string `json:"domain,omitempty"`
}

// ParsedHeaders is the structured view of a message's headers.
// ReceivedPath keeps header order: newest hop first, earliest hop last.
type ParsedHeaders struct {
	AuthenticationResults []AuthResultSet   `json:"authentication_results_summary"`
	ReceivedPath          []Hop             `json:"received_path"`
	ReturnPath            *AddressParts     `json:"return_path"`
	From                  *AddressParts     `json:"from_address"`
	ReplyTo               *AddressParts     `json:"reply_to_address"`
	To                    []AddressParts    `json:"to_addresses"`
	Cc                    []AddressParts    `json:"cc_addresses"`
	MessageID             *MessageID        `json:"message_id"`
	Subject               string            `json:"subject,omitempty"`
	Date                  string            `json:"date,omitempty"`
	XOriginatingIP        string            `json:"x_originating_ip,omitempty"`
	XMailer               string            `json:"x_mailer,omitempty"`
	OtherXHeaders         map[string]string `json:"other_x_headers"`
}

// FromDomain returns the From domain or an empty string
func (p *ParsedHeaders) FromDomain() string {
	return domainOf(p.From)
}

// ReturnPathDomain returns the Return-Path domain or an empty string
func (p *ParsedHeaders) ReturnPathDomain() string {
	return domainOf(p.ReturnPath)
}

// ReplyToDomain returns the Reply-To domain or an empty string
func (p *ParsedHeaders) ReplyToDomain() string {
	return domainOf(p.ReplyTo)
}

// PrimaryAuth returns the first authentication-results set, falling back to
// the first set of any type. ok is false when the message carries none.
func (p *ParsedHeaders) PrimaryAuth() (AuthResultSet, bool) {
	for _, set := range p.AuthenticationResults {
		if set.Type == "authentication-results" {
			return set, true
		}
	}
	if len(p.AuthenticationResults) > 0 {
		return p.AuthenticationResults[0], true
	}
	return AuthResultSet{}, false
}

func domainOf(a *AddressParts) string {
	if a == nil {
		return ""
	}
	return a.Domain
}

// DomainAligned reports whether domain equals parent or is a subdomain of it
func DomainAligned(domain, parent string) bool {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	parent = strings.ToLower(strings.TrimSuffix(parent, "."))
	if domain == "" || parent == "" {
		return false
	}
	return domain == parent || strings.HasSuffix(domain, "."+parent)
}
