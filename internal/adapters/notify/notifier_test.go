package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/mikey/phishgard/internal/core"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockSESClient struct {
	lastInput *sesv2.SendEmailInput
	err       error
}

func (m *mockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	m.lastInput = params
	if m.err != nil {
		return nil, m.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func phishingReport() (*core.Email, *core.VerdictReport) {
	email := &core.Email{From: "security@paypa1.example", Subject: "Account locked"}
	report := &core.VerdictReport{
		IDEmail:            "msg-1",
		Verdict:            core.VerdictPhishing,
		ConfidenceScore:    "100.0%",
		FinalScoreInternal: -100,
		Summary:            "Veto: domain 'paypa1.example' is extremely recent (1 day(s)).",
	}
	report.Breakdown.HeuristicAnalysis.Details.NegativeIndicators = []string{"DMARC_FAIL (-50)"}
	report.Breakdown.LLMAnalysis = core.LLMResult{Classification: "PHISHING", ConfidenceScore: "9", Reason: "Credential lure"}
	return email, report
}

func TestSESNotifier(t *testing.T) {
	mock := &mockSESClient{}
	n := NewSESNotifierWithClient(mock, "alerts@example.com", []string{"soc@example.com"}, zap.NewNop())

	email, report := phishingReport()
	if err := n.Notify(context.Background(), email, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	in := mock.lastInput
	if aws.ToString(in.FromEmailAddress) != "alerts@example.com" {
		t.Errorf("unexpected sender %q", aws.ToString(in.FromEmailAddress))
	}
	if len(in.Destination.ToAddresses) != 1 || in.Destination.ToAddresses[0] != "soc@example.com" {
		t.Errorf("unexpected recipients %v", in.Destination.ToAddresses)
	}
	subject := aws.ToString(in.Content.Simple.Subject.Data)
	if subject != "[PhishGard] Phishing (100.0%): Account locked" {
		t.Errorf("unexpected subject %q", subject)
	}
	body := aws.ToString(in.Content.Simple.Body.Text.Data)
	for _, want := range []string{"Verdict: Phishing", "DMARC_FAIL (-50)", "Credential lure", "extremely recent"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body:\n%s", want, body)
		}
	}
}

func TestSESNotifierError(t *testing.T) {
	n := NewSESNotifierWithClient(&mockSESClient{err: errors.New("throttled")}, "a@example.com", []string{"b@example.com"}, zap.NewNop())
	email, report := phishingReport()
	if err := n.Notify(context.Background(), email, report); err == nil {
		t.Error("expected an error")
	}
}

func TestLogNotifier(t *testing.T) {
	obsCore, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(obsCore))

	email, report := phishingReport()
	if err := n.Notify(context.Background(), email, report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := logs.FilterMessage("Email flagged").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["verdict"]; got != "Phishing" {
		t.Errorf("expected verdict field Phishing, got %v", got)
	}
}
