package certinfo

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/phishgard/internal/core"
)

// DefaultPort is the HTTPS port
const DefaultPort = "443"

// Inspector reads the certificate a host serves and checks it against the
// system roots
type Inspector struct {
	port    string
	timeout time.Duration
	roots   *x509.CertPool
	logger  *zap.Logger
	now     func() time.Time
}

// NewInspector creates an inspector connecting to port 443
func NewInspector(timeout time.Duration, logger *zap.Logger) *Inspector {
	return &Inspector{
		port:    DefaultPort,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Inspect performs a handshake with host and describes the leaf
// certificate. Invalid certificates are still described; the verification
// failure goes to VerifyError.
func (i *Inspector) Inspect(ctx context.Context, host string) (*core.TLSInfo, error) {
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: i.timeout},
		Config: &tls.Config{ //nolint:gosec // verification is done below so bad certificates can be reported
			ServerName:         host,
			InsecureSkipVerify: true,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, i.port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("no certificate presented by %s", host)
	}
	leaf := state.PeerCertificates[0]

	info := &core.TLSInfo{
		HasTLS:          true,
		Protocol:        versionName(state.Version),
		CipherSuite:     tls.CipherSuiteName(state.CipherSuite),
		Issuer:          issuerName(leaf),
		Subject:         leaf.Subject.CommonName,
		DNSNames:        leaf.DNSNames,
		ValidFrom:       leaf.NotBefore.UTC().Format(time.RFC3339),
		ValidTo:         leaf.NotAfter.UTC().Format(time.RFC3339),
		DaysUntilExpiry: int(leaf.NotAfter.Sub(i.now()).Hours() / 24),
	}

	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}
	_, err = leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         i.roots,
		Intermediates: intermediates,
		CurrentTime:   i.now(),
	})
	if err != nil {
		info.VerifyError = err.Error()
	} else {
		info.Valid = true
	}

	i.logger.Debug("TLS inspected",
		zap.String("host", host),
		zap.String("protocol", info.Protocol),
		zap.Bool("valid", info.Valid))
	return info, nil
}

func issuerName(cert *x509.Certificate) string {
	name := cert.Issuer.CommonName
	if len(cert.Issuer.Organization) > 0 {
		name = cert.Issuer.Organization[0]
	}
	if len(cert.Issuer.Country) > 0 && name != "" {
		return fmt.Sprintf("%s (%s)", name, strings.Join(cert.Issuer.Country, ","))
	}
	if name == "" {
		return "N/A"
	}
	return name
}

func versionName(v uint16) string {
	switch v {
	case tls.VersionTLS13:
		return "TLSv1.3"
	case tls.VersionTLS12:
		return "TLSv1.2"
	case tls.VersionTLS11:
		return "TLSv1.1"
	case tls.VersionTLS10:
		return "TLSv1.0"
	default:
		return fmt.Sprintf("TLS 0x%04x", v)
	}
}
