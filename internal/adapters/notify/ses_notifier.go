package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
)

// SendEmailAPI is the SES v2 operation used to deliver alerts
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails an alert through AWS SES v2
type SESNotifier struct {
	client     SendEmailAPI
	sender     string
	recipients []string
	logger     *zap.Logger
}

// SESConfig holds the SES alert settings. Static keys are optional; without
// them the default AWS credential chain is used.
type SESConfig struct {
	Region          string
	Sender          string
	Recipients      []string
	AccessKeyID     string
	SecretAccessKey string
}

// NewSESNotifier creates a notifier from the given configuration
func NewSESNotifier(ctx context.Context, cfg SESConfig, logger *zap.Logger) (*SESNotifier, error) {
	if cfg.Sender == "" || len(cfg.Recipients) == 0 {
		return nil, fmt.Errorf("SES notifier needs a sender and at least one recipient")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewSESNotifierWithClient(sesv2.NewFromConfig(awsCfg), cfg.Sender, cfg.Recipients, logger), nil
}

// NewSESNotifierWithClient creates a notifier with a custom client
func NewSESNotifierWithClient(client SendEmailAPI, sender string, recipients []string, logger *zap.Logger) *SESNotifier {
	return &SESNotifier{
		client:     client,
		sender:     sender,
		recipients: recipients,
		logger:     logger,
	}
}

// Notify sends one alert email for the report
func (n *SESNotifier) Notify(ctx context.Context, email *core.Email, report *core.VerdictReport) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(AlertSubject(email, report)),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(AlertBody(email, report)),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	out, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send SES alert: %w", err)
	}
	n.logger.Debug("SES alert sent",
		zap.String("email_id", report.IDEmail),
		zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}

// AlertSubject is the subject line of an alert
func AlertSubject(email *core.Email, report *core.VerdictReport) string {
	return fmt.Sprintf("[PhishGard] %s (%s): %s", report.Verdict, report.ConfidenceScore, email.Subject)
}

// AlertBody renders the report as plain text
func AlertBody(email *core.Email, report *core.VerdictReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Verdict: %s\n", report.Verdict)
	fmt.Fprintf(&sb, "Confidence: %s (internal score %.2f)\n", report.ConfidenceScore, report.FinalScoreInternal)
	fmt.Fprintf(&sb, "Email ID: %s\n", report.IDEmail)
	fmt.Fprintf(&sb, "From: %s\n", email.From)
	fmt.Fprintf(&sb, "Subject: %s\n\n", email.Subject)
	fmt.Fprintf(&sb, "%s\n\n", report.Summary)

	h := report.Breakdown.HeuristicAnalysis
	fmt.Fprintf(&sb, "Heuristics: %s (%d)\n", h.Classification, h.Score)
	for _, ind := range h.Details.NegativeIndicators {
		fmt.Fprintf(&sb, "  - %s\n", ind)
	}
	llm := report.Breakdown.LLMAnalysis
	fmt.Fprintf(&sb, "LLM: %s (%s/10) %s\n", llm.Classification, llm.ConfidenceScore, llm.Reason)
	u := report.Breakdown.URLMLAnalysis
	if u.URL != "" {
		fmt.Fprintf(&sb, "URL model: %s %s %s\n", u.URL, u.Verdict, u.Confidence)
	}
	return sb.String()
}
