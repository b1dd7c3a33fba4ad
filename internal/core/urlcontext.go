package core

import "context"

// DNSRecords are the public records of a host
type DNSRecords struct {
	A     []string `json:"a,omitempty"`
	AAAA  []string `json:"aaaa,omitempty"`
	MX    []string `json:"mx,omitempty"`
	NS    []string `json:"ns,omitempty"`
	TXT   []string `json:"txt,omitempty"`
	Error string   `json:"error,omitempty"`
}

// IPs returns the IPv4 then IPv6 addresses
func (r *DNSRecords) IPs() []string {
	if r == nil {
		return nil
	}
	return append(append([]string{}, r.A...), r.AAAA...)
}

// TLSInfo describes the certificate served by a host
type TLSInfo struct {
	HasTLS          bool     `json:"has_tls"`
	Valid           bool     `json:"valid"`
	Protocol        string   `json:"protocol,omitempty"`
	CipherSuite     string   `json:"cipher_suite,omitempty"`
	Issuer          string   `json:"issuer,omitempty"`
	Subject         string   `json:"subject,omitempty"`
	DNSNames        []string `json:"dns_names,omitempty"`
	ValidFrom       string   `json:"valid_from,omitempty"`
	ValidTo         string   `json:"valid_to,omitempty"`
	DaysUntilExpiry int      `json:"days_until_expiry"`
	VerifyError     string   `json:"verify_error,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// PageContent summarises the landing page of a URL
type PageContent struct {
	FinalURL       string `json:"final_url,omitempty"`
	StatusCode     int    `json:"status_code,omitempty"`
	Redirected     bool   `json:"redirected"`
	Title          string `json:"title,omitempty"`
	HasDescription bool   `json:"has_description"`
	HasFavicon     bool   `json:"has_favicon"`
	Forms          int    `json:"forms"`
	ExternalForms  int    `json:"external_forms"`
	PasswordFields int    `json:"password_fields"`
	HiddenFields   int    `json:"hidden_fields"`
	IFrames        int    `json:"iframes"`
	Scripts        int    `json:"scripts"`
	Images         int    `json:"images"`
	SelfLinks      int    `json:"self_links"`
	ExternalLinks  int    `json:"external_links"`
	EmptyLinks     int    `json:"empty_links"`
	Error          string `json:"error,omitempty"`
}

// URLOverview is the headline of a contextual analysis
type URLOverview struct {
	Domain      string   `json:"domain"`
	ResolvedIPs []string `json:"resolved_ip"`
	Country     string   `json:"country"`
	DomainAge   string   `json:"domain_age"`
	HTTPS       string   `json:"https"`
}

// URLContextReport gathers what is publicly known about a URL. Each section
// carries its own error; a failing source never fails the report.
type URLContextReport struct {
	URL            string      `json:"url"`
	Overview       URLOverview `json:"overview"`
	Whois          DomainInfo  `json:"domain_whois"`
	DNS            DNSRecords  `json:"dns"`
	TLS            TLSInfo     `json:"ssl_hosting"`
	ServerLocation IPInfo      `json:"server_location"`
	Content        PageContent `json:"content"`
}

// DNSRecordLookup returns the public records of a host
type DNSRecordLookup interface {
	LookupRecords(ctx context.Context, host string) (*DNSRecords, error)
}

// TLSInspector reads the certificate served by a host
type TLSInspector interface {
	Inspect(ctx context.Context, host string) (*TLSInfo, error)
}

// PageFetcher downloads and summarises a page
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}

// URLContextAnalyzer builds the contextual report of a URL
type URLContextAnalyzer interface {
	Context(ctx context.Context, rawURL string) (*URLContextReport, error)
}
