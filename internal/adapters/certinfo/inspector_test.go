package certinfo

import (
	"context"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestInspector(t *testing.T, server *httptest.Server) *Inspector {
	t.Helper()
	_, port, err := net.SplitHostPort(server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to split listener address: %v", err)
	}
	i := NewInspector(2*time.Second, zap.NewNop())
	i.port = port
	return i
}

func TestInspect(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	t.Run("trusted", func(t *testing.T) {
		i := newTestInspector(t, server)
		i.roots = x509.NewCertPool()
		i.roots.AddCert(server.Certificate())

		info, err := i.Inspect(context.Background(), "127.0.0.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.HasTLS || !info.Valid {
			t.Errorf("expected a valid certificate, got %+v", info)
		}
		if info.Protocol != "TLSv1.3" {
			t.Errorf("expected TLSv1.3, got %s", info.Protocol)
		}
		if info.CipherSuite == "" {
			t.Error("expected a cipher suite")
		}
		if info.Issuer != "Acme Co" {
			t.Errorf("expected the httptest issuer, got %q", info.Issuer)
		}
		if info.DaysUntilExpiry <= 0 {
			t.Errorf("expected a future expiry, got %d days", info.DaysUntilExpiry)
		}
		if info.ValidFrom == "" || info.ValidTo == "" {
			t.Error("expected validity dates")
		}
	})

	t.Run("untrusted", func(t *testing.T) {
		i := newTestInspector(t, server)

		info, err := i.Inspect(context.Background(), "127.0.0.1")
		if err != nil {
			t.Fatalf("an untrusted certificate should still be described: %v", err)
		}
		if !info.HasTLS || info.Valid {
			t.Errorf("expected an invalid certificate, got %+v", info)
		}
		if info.VerifyError == "" {
			t.Error("expected the verification failure to be reported")
		}
	})

	t.Run("expired clock", func(t *testing.T) {
		i := newTestInspector(t, server)
		i.roots = x509.NewCertPool()
		i.roots.AddCert(server.Certificate())
		i.now = func() time.Time { return server.Certificate().NotAfter.Add(48 * time.Hour) }

		info, err := i.Inspect(context.Background(), "127.0.0.1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.Valid {
			t.Error("expected an expired certificate to be invalid")
		}
		if info.DaysUntilExpiry >= 0 {
			t.Errorf("expected negative days, got %d", info.DaysUntilExpiry)
		}
	})
}

func TestInspectNoListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	i := NewInspector(time.Second, zap.NewNop())
	i.port = port
	if _, err := i.Inspect(context.Background(), "127.0.0.1"); err == nil {
		t.Error("expected a connection error")
	}
}

func TestVersionName(t *testing.T) {
	tests := map[uint16]string{
		0x0304: "TLSv1.3",
		0x0303: "TLSv1.2",
		0x0301: "TLSv1.0",
		0x0200: "TLS 0x0200",
	}
	for v, want := range tests {
		if got := versionName(v); got != want {
			t.Errorf("versionName(%#x) = %q, want %q", v, got, want)
		}
	}
}
