package filter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	mu      sync.Mutex
	report  *core.VerdictReport
	err     error
	userIDs []string
	emails  []*core.Email
}

func (s *stubAnalyzer) AnalyzeEmail(ctx context.Context, userID string, email *core.Email) (*core.VerdictReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userIDs = append(s.userIDs, userID)
	s.emails = append(s.emails, email)
	return s.report, s.err
}

func (s *stubAnalyzer) AnalyzeHeaders(ctx context.Context, raw string) (*core.VerdictReport, error) {
	return s.report, s.err
}

func (s *stubAnalyzer) Lookup(ctx context.Context, userID, emailID string) (*core.VerdictReport, error) {
	return nil, core.ErrNotFound
}

var testHeaders = config.HeadersConfig{
	Verdict: "X-PhishGard-Verdict",
	Score:   "X-PhishGard-Score",
	Summary: "X-PhishGard-Summary",
}

const rawMessage = "From: Billing <billing@example.com>\r\n" +
	"To: bob@example.org\r\n" +
	"Subject: Invoice overdue\r\n" +
	"X-PhishGard-Verdict: Legitime\r\n" +
	"Message-ID: <inv-7@example.com>\r\n" +
	"\r\n" +
	"Pay now at https://example.com/pay\r\n"

func phishingReport() *core.VerdictReport {
	return &core.VerdictReport{
		IDEmail:            "inv-7@example.com",
		Verdict:            core.VerdictPhishing,
		ConfidenceScore:    "82.5%",
		FinalScoreInternal: -82.5,
		Summary:            "Veto: domain 'example.com' is extremely recent (1 day(s)).",
	}
}

func headerBlock(t *testing.T, data []byte) string {
	t.Helper()
	i := bytes.Index(data, []byte("\r\n\r\n"))
	if i < 0 {
		t.Fatalf("no header/body separator in %q", data)
	}
	return string(data[:i+2])
}

func TestLabelMessagePhishing(t *testing.T) {
	out, err := labelMessage([]byte(rawMessage), testHeaders, true, phishingReport(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	head := headerBlock(t, out)

	if !strings.Contains(head, "X-Phishgard-Verdict: Phishing\r\n") && !strings.Contains(head, "X-PhishGard-Verdict: Phishing\r\n") {
		t.Errorf("expected verdict header, got:\n%s", head)
	}
	if strings.Contains(head, "Verdict: Legitime") {
		t.Errorf("expected spoofed verdict header to be replaced, got:\n%s", head)
	}
	if !strings.Contains(head, "-82.50") {
		t.Errorf("expected score header, got:\n%s", head)
	}
	if !strings.Contains(head, "Subject: [Phishing] Invoice overdue\r\n") {
		t.Errorf("expected tagged subject, got:\n%s", head)
	}
	if !bytes.HasSuffix(out, []byte("\r\n\r\nPay now at https://example.com/pay\r\n")) {
		t.Errorf("expected body untouched, got %q", out)
	}
}

func TestLabelMessageLegitimeKeepsSubject(t *testing.T) {
	report := phishingReport()
	report.Verdict = core.VerdictLegitime
	out, err := labelMessage([]byte(rawMessage), testHeaders, true, report, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(headerBlock(t, out), "Subject: Invoice overdue\r\n") {
		t.Errorf("expected subject unchanged, got %q", out)
	}
}

func TestLabelMessageSubjectTaggedOnce(t *testing.T) {
	report := phishingReport()
	report.Verdict = core.VerdictSuspicious
	first, err := labelMessage([]byte(rawMessage), testHeaders, true, report, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := labelMessage(first, testHeaders, true, report, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := strings.Count(headerBlock(t, second), "[Suspicious]"); n != 1 {
		t.Errorf("expected a single subject tag, got %d in:\n%s", n, second)
	}
}

func TestLabelMessageError(t *testing.T) {
	out, err := labelMessage([]byte(rawMessage), testHeaders, true, nil, errors.New("pipeline down"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	head := headerBlock(t, out)
	if !strings.Contains(strings.ToLower(head), strings.ToLower(ErrorHeader)+": pipeline down") {
		t.Errorf("expected error header, got:\n%s", head)
	}
	if !strings.Contains(head, "Subject: Invoice overdue") {
		t.Errorf("expected subject unchanged, got:\n%s", head)
	}
}

func TestCliFilterFormats(t *testing.T) {
	svc := &stubAnalyzer{report: phishingReport()}
	email := &core.Email{From: "billing@example.com", Subject: "Invoice overdue"}

	var buf bytes.Buffer
	f, err := NewCliFilter(svc, zap.NewNop(), &buf, FormatJSON, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.ProcessEmail(context.Background(), email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if decoded["phishgard_verdict"] != "Phishing" {
		t.Errorf("unexpected verdict in %v", decoded)
	}
	if svc.userIDs[0] != CLIUserID {
		t.Errorf("expected user %q, got %q", CLIUserID, svc.userIDs[0])
	}

	buf.Reset()
	f, _ = NewCliFilter(svc, zap.NewNop(), &buf, FormatYAML, false)
	if _, err := f.ProcessHeaders(context.Background(), "From: a@example.com\r\n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "phishgard_verdict: Phishing") {
		t.Errorf("expected YAML output, got:\n%s", buf.String())
	}

	buf.Reset()
	f, _ = NewCliFilter(svc, zap.NewNop(), &buf, "", true)
	if _, err := f.ProcessEmail(context.Background(), email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Verdict: Phishing", "Confidence: 82.5%", "From: billing@example.com"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("expected %q in text output:\n%s", want, buf.String())
		}
	}

	if _, err := NewCliFilter(svc, zap.NewNop(), &buf, "xml", false); err == nil {
		t.Error("expected an error for an unknown format")
	}
}

// downstream stands in for the Postfix re-injection listener
type downstream struct {
	mu       sync.Mutex
	messages [][]byte
}

func (d *downstream) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &downstreamSession{d: d}, nil
}

type downstreamSession struct{ d *downstream }

func (s *downstreamSession) Reset() {}
func (s *downstreamSession) Logout() error { return nil }
func (s *downstreamSession) Mail(string, *smtp.MailOptions) error { return nil }
func (s *downstreamSession) Rcpt(string, *smtp.RcptOptions) error { return nil }
func (s *downstreamSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.messages = append(s.d.messages, data)
	return nil
}

func startDownstream(t *testing.T) (*downstream, string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	d := &downstream{}
	srv := smtp.NewServer(d)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	go srv.Serve(ln)
	t.Cleanup(func() { srv.Close() })

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return d, host, port
}

func startFilter(t *testing.T, svc *stubAnalyzer, cfg config.ServerConfig) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	f := NewPostfixFilter(svc, zap.NewNop(), cfg)
	if err := f.Serve(ln); err != nil {
		t.Fatalf("failed to serve: %v", err)
	}
	t.Cleanup(func() { f.Stop() })
	return ln.Addr().String()
}

func TestPostfixFilterRelaysLabelledMessage(t *testing.T) {
	d, host, port := startDownstream(t)
	report := phishingReport()
	report.Verdict = core.VerdictSuspicious
	svc := &stubAnalyzer{report: report}

	addr := startFilter(t, svc, config.ServerConfig{
		UserID:         "postfix",
		ModifySubject:  true,
		BlockPhishing:  true,
		Headers:        testHeaders,
		PostfixAddress: host,
		PostfixPort:    port,
		PostfixEnabled: true,
	})

	err := smtp.SendMail(addr, nil, "bounce@example.com", []string{"bob@example.org"}, strings.NewReader(rawMessage))
	if err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) != 1 {
		t.Fatalf("expected one relayed message, got %d", len(d.messages))
	}
	if !strings.Contains(string(d.messages[0]), "Subject: [Suspicious] Invoice overdue") {
		t.Errorf("expected tagged subject in relayed message:\n%s", d.messages[0])
	}
	if svc.userIDs[0] != "postfix" || svc.emails[0].From != "billing@example.com" {
		t.Errorf("unexpected analysis call: %v %+v", svc.userIDs, svc.emails[0])
	}
}

func TestPostfixFilterRejectsPhishing(t *testing.T) {
	d, host, port := startDownstream(t)
	svc := &stubAnalyzer{report: phishingReport()}

	addr := startFilter(t, svc, config.ServerConfig{
		UserID:         "postfix",
		BlockPhishing:  true,
		Headers:        testHeaders,
		PostfixAddress: host,
		PostfixPort:    port,
		PostfixEnabled: true,
	})

	err := smtp.SendMail(addr, nil, "bounce@example.com", []string{"bob@example.org"}, strings.NewReader(rawMessage))
	var smtpErr *smtp.SMTPError
	if !errors.As(err, &smtpErr) || smtpErr.Code != 550 {
		t.Fatalf("expected a 550 rejection, got %v", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.messages) != 0 {
		t.Errorf("rejected mail must not be relayed, got %d", len(d.messages))
	}
}
