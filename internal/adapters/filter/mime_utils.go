package filter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message/textproto"
	"github.com/mikey/phishgard/internal/config"
	"github.com/mikey/phishgard/internal/core"
	"github.com/mikey/phishgard/internal/message"
)

// ErrorHeader carries the analysis error when no verdict could be produced
const ErrorHeader = "X-PhishGard-Error"

// SubjectTag is the subject prefix applied for a verdict
func SubjectTag(verdict core.Verdict) string {
	return "[" + string(verdict) + "] "
}

// labelMessage rewrites the header block of raw with the verdict headers and
// leaves the body bytes untouched. Verdict headers already present in the
// message are replaced. A nil report writes the error header only.
func labelMessage(raw []byte, headers config.HeadersConfig, modifySubject bool, report *core.VerdictReport, analysisErr error) ([]byte, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	header, err := message.ReadHeader(br)
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}

	header.Del(ErrorHeader)
	if analysisErr != nil {
		header.SetText(ErrorHeader, analysisErr.Error())
	}
	if report != nil {
		header.Set(headers.Verdict, string(report.Verdict))
		header.Set(headers.Score, fmt.Sprintf("%.2f", report.FinalScoreInternal))
		header.SetText(headers.Summary, report.Summary)

		if modifySubject && report.Verdict != core.VerdictLegitime {
			subject, err := header.Subject()
			if err != nil {
				subject = header.Get("Subject")
			}
			tag := SubjectTag(report.Verdict)
			if !strings.HasPrefix(subject, tag) {
				header.SetSubject(tag + subject)
			}
		}
	}

	var out bytes.Buffer
	if err := textproto.WriteHeader(&out, header.Header.Header); err != nil {
		return nil, fmt.Errorf("failed to write message header: %w", err)
	}
	if _, err := io.Copy(&out, br); err != nil {
		return nil, fmt.Errorf("failed to copy message body: %w", err)
	}
	return out.Bytes(), nil
}
