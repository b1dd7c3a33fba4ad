package message

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
	"github.com/jhillyerd/enmime"
	"github.com/mikey/phishgard/internal/core"
)

// ErrEmptyMessage is returned when there is nothing to parse
var ErrEmptyMessage = errors.New("empty message")

// Parse reads a raw RFC 5322 message into an Email. Header fields keep
// their original order with RFC 2047 words decoded. Bodies are decoded
// from their transfer and charset encodings; a body that cannot be read
// leaves the headers usable.
func Parse(raw []byte) (*core.Email, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptyMessage
	}

	header, err := ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to read message header: %w", err)
	}

	email := &core.Email{
		Headers: Fields(header),
	}
	email.Subject, _ = header.Subject()
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
	} else {
		email.From = strings.TrimSpace(header.Get("From"))
	}
	for _, key := range []string{"To", "Cc"} {
		if list, err := header.AddressList(key); err == nil {
			for _, addr := range list {
				email.To = append(email.To, addr.Address)
			}
		}
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		email.Body = rawBody(raw)
		return email, nil
	}
	email.Body = env.Text
	email.HTMLBody = env.HTML
	return email, nil
}

// ParseReader is Parse on a stream
func ParseReader(r io.Reader) (*core.Email, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}
	return Parse(raw)
}

// ReadHeader reads the header block at the start of r, leaving r on the body
func ReadHeader(r *bufio.Reader) (mail.Header, error) {
	h, err := textproto.ReadHeader(r)
	if err != nil {
		return mail.Header{}, err
	}
	return mail.Header{Header: gomessage.Header{Header: h}}, nil
}

// Fields lists the header fields top to bottom
func Fields(header mail.Header) []core.HeaderField {
	var out []core.HeaderField
	fields := header.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, core.HeaderField{Name: fields.Key(), Value: value})
	}
	return out
}

func rawBody(raw []byte) string {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return string(raw[i+4:])
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return string(raw[i+2:])
	}
	return ""
}
