package headers

import (
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/phishgard/internal/core"
)

var (
	spfRe   = regexp.MustCompile(`(?i)spf=([\w-]+)\s*(?:\((.*?)\))?\s*(?:smtp\.mailfrom=(\S+)|smtp\.helo=(\S+))?`)
	dkimRe  = regexp.MustCompile(`(?i)dkim=([\w-]+)\s+(?:header\.i=(\S+))?\s*(?:header\.s=(\S+))?\s*(?:header\.b=(\S+))?`)
	dmarcRe = regexp.MustCompile(`(?i)dmarc=([\w-]+)\s*(?:\((.*?)\))?\s*(?:header\.from=(\S+))?`)

	dmarcPolicyRe      = regexp.MustCompile(`(?i)\bp=([\w-]+)`)
	dmarcSubPolicyRe   = regexp.MustCompile(`(?i)\bsp=([\w-]+)`)
	dmarcDispositionRe = regexp.MustCompile(`(?i)\bdis=([\w-]+)`)

	receivedIPRe       = regexp.MustCompile(`\[(\d{1,3}(?:\.\d{1,3}){3})\]`)
	receivedFromByRe   = regexp.MustCompile(`(?i)from\s+([\w.\-]+(?:\s+\([\w.\-]+\))?)\s*(?:\((?:[^)]*?\[[^\]]+\]|[^)]+)\))?\s+by\s+([\w.\-]+)`)
	receivedTimeRe     = regexp.MustCompile(`;\s*([^;]*)$`)
	receivedProtocolRe = regexp.MustCompile(`(?i)with\s+([^\s;]+)`)
)

// Parser implements core.HeaderParser
type Parser struct{}

// NewParser creates a new header parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse implements core.HeaderParser
func (p *Parser) Parse(fields []core.HeaderField) *core.ParsedHeaders {
	return Parse(fields)
}

// SplitRaw implements core.HeaderParser
func (p *Parser) SplitRaw(raw string) []core.HeaderField {
	return SplitRaw(raw)
}

// Parse builds the structured view of an ordered header list. Unknown
// headers are ignored except X-* headers, which are kept by lowercase name.
func Parse(fields []core.HeaderField) *core.ParsedHeaders {
	parsed := &core.ParsedHeaders{
		AuthenticationResults: []core.AuthResultSet{},
		ReceivedPath:          []core.Hop{},
		To:                    []core.AddressParts{},
		Cc:                    []core.AddressParts{},
		OtherXHeaders:         map[string]string{},
	}

	for _, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field.Name))
		value := field.Value

		switch {
		case name == "authentication-results" || name == "arc-authentication-results":
			parsed.AuthenticationResults = append(parsed.AuthenticationResults, ParseAuthenticationResults(name, value))
		case name == "received":
			parsed.ReceivedPath = append(parsed.ReceivedPath, ParseReceived(value))
		case name == "return-path":
			parsed.ReturnPath = ParseAddress(strings.Trim(strings.TrimSpace(value), "<>"))
		case name == "from":
			parsed.From = ParseAddress(value)
		case name == "reply-to":
			parsed.ReplyTo = ParseAddress(value)
		case name == "to":
			parsed.To = append(parsed.To, parseAddressList(value)...)
		case name == "cc":
			parsed.Cc = append(parsed.Cc, parseAddressList(value)...)
		case name == "message-id":
			parsed.MessageID = parseMessageID(value)
		case name == "subject":
			parsed.Subject = value
		case name == "date":
			parsed.Date = value
		case name == "x-originating-ip":
			parsed.XOriginatingIP = strings.Trim(strings.TrimSpace(value), "[]")
		case name == "x-mailer" || name == "user-agent":
			parsed.XMailer = value
		case strings.HasPrefix(name, "x-"):
			parsed.OtherXHeaders[name] = value
		}
	}

	return parsed
}

// ParseAuthenticationResults parses one Authentication-Results style header
func ParseAuthenticationResults(headerType, value string) core.AuthResultSet {
	set := core.AuthResultSet{
		Type:   headerType,
		Server: strings.TrimSpace(strings.SplitN(value, ";", 2)[0]),
		SPF:    []core.SPFResult{},
		DKIM:   []core.DKIMResult{},
		DMARC:  []core.DMARCResult{},
	}

	for _, m := range spfRe.FindAllStringSubmatch(value, -1) {
		mailFrom := m[3]
		if mailFrom == "" {
			mailFrom = m[4]
		}
		set.SPF = append(set.SPF, core.SPFResult{
			Result:         strings.ToLower(m[1]),
			Details:        strings.TrimSpace(m[2]),
			MailFromOrHelo: trimValue(mailFrom),
		})
	}

	for _, m := range dkimRe.FindAllStringSubmatch(value, -1) {
		set.DKIM = append(set.DKIM, core.DKIMResult{
			Result:   strings.ToLower(m[1]),
			Domain:   dkimDomain(m[2]),
			Selector: trimValue(m[3]),
		})
	}

	for _, m := range dmarcRe.FindAllStringSubmatch(value, -1) {
		details := strings.TrimSpace(m[2])
		set.DMARC = append(set.DMARC, core.DMARCResult{
			Result:          strings.ToLower(m[1]),
			Policy:          firstGroupLower(dmarcPolicyRe, details),
			SubdomainPolicy: firstGroupLower(dmarcSubPolicyRe, details),
			Disposition:     firstGroupLower(dmarcDispositionRe, details),
			FromDomain:      strings.ToLower(trimValue(m[3])),
			RawDetails:      details,
		})
	}

	if len(set.SPF) == 0 && len(set.DKIM) == 0 && len(set.DMARC) == 0 && value != "" {
		set.RawValue = value
	}
	return set
}

// ParseReceived parses one Received header
func ParseReceived(value string) core.Hop {
	hop := core.Hop{Raw: value}

	if m := receivedIPRe.FindStringSubmatch(value); m != nil {
		hop.FromIP = m[1]
	}
	if m := receivedFromByRe.FindStringSubmatch(value); m != nil {
		hop.FromHost = strings.Fields(m[1])[0]
		hop.ByHost = m[2]
	}
	if m := receivedTimeRe.FindStringSubmatch(value); m != nil {
		hop.Timestamp = strings.TrimSpace(m[1])
	}
	if m := receivedProtocolRe.FindStringSubmatch(value); m != nil {
		hop.Protocol = m[1]
	}
	return hop
}

// ParseAddress splits a mailbox into name, address and lowercase domain.
// It returns nil for an empty value.
func ParseAddress(value string) *core.AddressParts {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	parts := &core.AddressParts{}
	if addr, err := mail.ParseAddress(value); err == nil {
		parts.Name = addr.Name
		parts.Address = addr.Address
	} else {
		// Lenient fallback for headers net/mail rejects
		if open := strings.LastIndex(value, "<"); open >= 0 {
			if end := strings.Index(value[open:], ">"); end > 0 {
				parts.Address = strings.TrimSpace(value[open+1 : open+end])
				parts.Name = strings.Trim(strings.TrimSpace(value[:open]), `"`)
			}
		}
		if parts.Address == "" && strings.Contains(value, "@") {
			parts.Address = value
		}
	}

	if at := strings.LastIndex(parts.Address, "@"); at >= 0 && at < len(parts.Address)-1 {
		parts.Domain = strings.ToLower(parts.Address[at+1:])
	}
	return parts
}

// SplitRaw splits a raw header block into ordered fields, unfolding
// continuation lines. Parsing stops at the first empty line.
func SplitRaw(raw string) []core.HeaderField {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	var fields []core.HeaderField

	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(fields) > 0 {
				break
			}
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if len(fields) > 0 {
				last := &fields[len(fields)-1]
				last.Value = strings.TrimSpace(last.Value + " " + strings.TrimSpace(line))
			}
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || strings.ContainsAny(name, " \t") {
			continue
		}
		fields = append(fields, core.HeaderField{
			Name:  name,
			Value: strings.TrimSpace(value),
		})
	}
	return fields
}

func parseAddressList(value string) []core.AddressParts {
	var out []core.AddressParts
	for _, item := range strings.Split(value, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		if parts := ParseAddress(item); parts != nil {
			out = append(out, *parts)
		}
	}
	return out
}

func parseMessageID(value string) *core.MessageID {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	id := strings.Trim(value, "<>")
	msgID := &core.MessageID{ID: id}
	if at := strings.LastIndex(id, "@"); at >= 0 {
		if domain := id[at+1:]; strings.Contains(domain, ".") {
			msgID.Domain = domain
		}
	}
	return msgID
}

// dkimDomain extracts the signing domain from a header.i value like
// "@example.com" or "user@example.com"
func dkimDomain(identity string) string {
	identity = trimValue(identity)
	if at := strings.LastIndex(identity, "@"); at >= 0 {
		identity = identity[at+1:]
	}
	return strings.ToLower(identity)
}

func trimValue(v string) string {
	return strings.TrimRight(v, ";,")
}

func firstGroupLower(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return strings.ToLower(m[1])
	}
	return ""
}
