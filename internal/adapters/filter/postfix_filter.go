package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/message"
	"github.com/mikey/phishgard/internal/ports"
	"go.uber.org/zap"
)

const analysisTimeout = 60 * time.Second

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	service        ports.Analyzer
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	userID         string
	blockPhishing  bool
	modifySubject  bool
	headers        config.HeadersConfig
	postfixAddr    string
	postfixPort    int
	postfixEnabled bool
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(service ports.Analyzer, logger *zap.Logger, cfg config.ServerConfig) *PostfixFilter {
	return &PostfixFilter{
		service:        service,
		logger:         logger,
		listenAddr:     cfg.ListenAddress,
		userID:         cfg.UserID,
		blockPhishing:  cfg.BlockPhishing,
		modifySubject:  cfg.ModifySubject,
		headers:        cfg.Headers,
		postfixAddr:    cfg.PostfixAddress,
		postfixPort:    cfg.PostfixPort,
		postfixEnabled: cfg.PostfixEnabled,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}
	return f.Serve(ln)
}

// Serve accepts SMTP connections on ln in the background
func (f *PostfixFilter) Serve(ln net.Listener) error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})
	f.server.Addr = ln.Addr().String()
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.server.Addr))

	go func() {
		if err := f.server.Serve(ln); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyses an email on behalf of the configured user
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.Email) (*core.VerdictReport, error) {
	return f.service.AnalyzeEmail(ctx, f.userID, email)
}

// sendToPostfix re-injects the labelled message into Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.postfixAddr, strconv.Itoa(f.postfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}
	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}
	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The message is already accepted at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}
	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data analyses the message, then rejects it or labels and re-injects it
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter
	raw, err := io.ReadAll(r)
	if err != nil {
		f.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	email, err := message.Parse(raw)
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.Error(err))
		return err
	}
	if email.From == "" {
		email.From = s.sender
	}

	ctx, cancel := context.WithTimeout(context.Background(), analysisTimeout)
	defer cancel()

	report, analysisErr := f.ProcessEmail(ctx, email)
	if analysisErr != nil {
		// Delivery goes on unlabelled
		f.logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", email.From))
		report = nil
	}

	if report != nil && report.Verdict == core.VerdictPhishing && f.blockPhishing {
		f.logger.Info("Rejecting phishing email",
			zap.String("email_id", report.IDEmail),
			zap.String("from", email.From),
			zap.Float64("score", report.FinalScoreInternal),
			zap.String("summary", report.Summary))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      "Message rejected as phishing",
		}
	}

	labelled, err := labelMessage(raw, f.headers, f.modifySubject, report, analysisErr)
	if err != nil {
		f.logger.Warn("Failed to label message, forwarding it unchanged", zap.Error(err))
		labelled = raw
	}

	if f.postfixEnabled {
		if err := f.sendToPostfix(s.sender, s.recipients, labelled); err != nil {
			f.logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", email.From))
			return err
		}
	} else {
		f.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	if report != nil {
		f.logger.Info("Processed email",
			zap.String("email_id", report.IDEmail),
			zap.String("from", email.From),
			zap.String("verdict", string(report.Verdict)),
			zap.Float64("score", report.FinalScoreInternal))
	}
	return nil
}

func (s *smtpSession) Logout() error {
	return nil
}
