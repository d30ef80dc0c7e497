package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	standardtls "crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func leafOf(t *testing.T, cert *standardtls.Certificate) *x509.Certificate {
	t.Helper()
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse certificate: %v", err)
	}
	return leaf
}

func TestGenerateSelfSignedCert(t *testing.T) {
	t.Parallel()

	cert, err := GenerateSelfSignedCert("relay.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	leaf := leafOf(t, cert)

	if leaf.Subject.CommonName != "relay.example.com" {
		t.Errorf("CN: got %q, want %q", leaf.Subject.CommonName, "relay.example.com")
	}
	for _, want := range []string{"relay.example.com", "localhost"} {
		if !slices.Contains(leaf.DNSNames, want) {
			t.Errorf("DNS SANs: %v does not contain %s", leaf.DNSNames, want)
		}
	}
	if err := leaf.VerifyHostname("relay.example.com"); err != nil {
		t.Errorf("VerifyHostname: %v", err)
	}

	// Approximately 1 year, allowing for the backdated start.
	validDuration := leaf.NotAfter.Sub(leaf.NotBefore)
	if validDuration < validity || validDuration > validity+time.Hour {
		t.Errorf("validity duration: got %v, want approximately %v", validDuration, validity)
	}

	ecKey, ok := leaf.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		t.Fatal("public key is not ECDSA")
	}
	if ecKey.Curve != elliptic.P256() {
		t.Errorf("curve: got %v, want P-256", ecKey.Curve.Params().Name)
	}

	if leaf.Issuer.CommonName != leaf.Subject.CommonName {
		t.Errorf("issuer CN %q does not match subject CN %q", leaf.Issuer.CommonName, leaf.Subject.CommonName)
	}
}

func TestSubjectAltNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host    string
		wantDNS []string
		wantIPs []string
	}{
		{"localhost", []string{"localhost"}, []string{"127.0.0.1"}},
		{"relay.example.com", []string{"relay.example.com", "localhost"}, []string{"127.0.0.1"}},
		{"10.0.0.5", []string{"localhost"}, []string{"127.0.0.1", "10.0.0.5"}},
		{"127.0.0.1", []string{"localhost"}, []string{"127.0.0.1"}},
	}

	for _, tt := range tests {
		dns, ips := subjectAltNames(tt.host)
		if !slices.Equal(dns, tt.wantDNS) {
			t.Errorf("subjectAltNames(%q) DNS: got %v, want %v", tt.host, dns, tt.wantDNS)
		}
		var gotIPs []string
		for _, ip := range ips {
			gotIPs = append(gotIPs, ip.String())
		}
		if !slices.Equal(gotIPs, tt.wantIPs) {
			t.Errorf("subjectAltNames(%q) IPs: got %v, want %v", tt.host, gotIPs, tt.wantIPs)
		}
	}
}

func TestLoadOrGenerateTLS_SelfSigned(t *testing.T) {
	t.Parallel()

	tlsConfig, err := LoadOrGenerateTLS("", "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tlsConfig.Certificates) != 1 {
		t.Errorf("Certificates: got %d, want 1", len(tlsConfig.Certificates))
	}
	if tlsConfig.MinVersion != standardtls.VersionTLS12 {
		t.Errorf("MinVersion: got %d, want TLS 1.2 (%d)", tlsConfig.MinVersion, standardtls.VersionTLS12)
	}
	if cn := leafOf(t, &tlsConfig.Certificates[0]).Subject.CommonName; cn != "localhost" {
		t.Errorf("CN: got %q, want localhost", cn)
	}
}

func TestLoadOrGenerateTLS_FromFiles(t *testing.T) {
	t.Parallel()

	cert, err := GenerateSelfSignedCert("files.example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	key, ok := cert.PrivateKey.(*ecdsa.PrivateKey)
	if !ok {
		t.Fatal("private key is not ECDSA")
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: cert.Certificate[0]}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}

	tlsConfig, err := LoadOrGenerateTLS(certFile, keyFile, "ignored.example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cn := leafOf(t, &tlsConfig.Certificates[0]).Subject.CommonName; cn != "files.example.com" {
		t.Errorf("CN: got %q, want files.example.com", cn)
	}
}

func TestLoadOrGenerateTLS_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadOrGenerateTLS("/nonexistent/cert.pem", "/nonexistent/key.pem", "")
	if err == nil {
		t.Error("expected error for nonexistent files, got nil")
	}
}
