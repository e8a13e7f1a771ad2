package certgen

import (
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeAuthority(t *testing.T, a *Authority) (string, string) {
	t.Helper()
	keyPEM, err := a.KeyPEM()
	if err != nil {
		t.Fatalf("KeyPEM: %v", err)
	}
	dir := t.TempDir()
	if err := WriteFiles(dir, map[string][]byte{"ca.crt": a.CertPEM(), "ca.key": keyPEM}); err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	return filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key")
}

func TestNewAuthority(t *testing.T) {
	a, err := NewAuthority("Test CA")
	if err != nil {
		t.Fatalf("NewAuthority: %v", err)
	}
	if !a.Cert.IsCA || !a.Cert.BasicConstraintsValid {
		t.Error("CA certificate should be a valid CA")
	}
	if a.Cert.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Errorf("KeyUsage = %v; want CertSign", a.Cert.KeyUsage)
	}
}

func TestLoadAuthority_RoundTrip(t *testing.T) {
	a, err := NewAuthority("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	certPath, keyPath := writeAuthority(t, a)

	loaded, err := LoadAuthority(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadAuthority: %v", err)
	}
	if loaded.Cert.Subject.CommonName != "Test CA" {
		t.Errorf("CommonName = %q; want %q", loaded.Cert.Subject.CommonName, "Test CA")
	}
	key, ok := loaded.Key.(*ecdsa.PrivateKey)
	if !ok {
		t.Fatalf("key type = %T; want *ecdsa.PrivateKey", loaded.Key)
	}
	if !key.PublicKey.Equal(&a.Key.(*ecdsa.PrivateKey).PublicKey) {
		t.Error("public key mismatch")
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %v; want 0600", info.Mode().Perm())
	}
}

func TestLoadAuthority_Errors(t *testing.T) {
	a, err := NewAuthority("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	certPath, keyPath := writeAuthority(t, a)
	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	if err := os.WriteFile(garbage, []byte("not a pem"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		cert     string
		key      string
		contains string
	}{
		{"missing cert", "/no/such/file.pem", keyPath, "read ca cert"},
		{"missing key", certPath, "/no/such/key.pem", "read ca key"},
		{"bad cert", garbage, keyPath, "invalid CA cert PEM"},
		{"bad key", certPath, garbage, "invalid CA key PEM"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadAuthority(tt.cert, tt.key)
			if err == nil || !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("got %v; want error containing %q", err, tt.contains)
			}
		})
	}
}

func TestServerCertificate(t *testing.T) {
	a, err := NewAuthority("Test CA")
	if err != nil {
		t.Fatal(err)
	}

	certPEM, keyPEM, err := a.ServerCertificate("localhost", "127.0.0.1")
	if err != nil {
		t.Fatalf("ServerCertificate: %v", err)
	}
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("cert PEM invalid")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	if cert.Subject.CommonName != "localhost" {
		t.Errorf("CommonName = %q; want localhost", cert.Subject.CommonName)
	}
	if len(cert.DNSNames) != 1 || len(cert.IPAddresses) != 1 {
		t.Errorf("SANs = %v %v", cert.DNSNames, cert.IPAddresses)
	}
	if err := cert.CheckSignatureFrom(a.Cert); err != nil {
		t.Errorf("signature check failed: %v", err)
	}

	pool := x509.NewCertPool()
	pool.AddCert(a.Cert)
	if _, err := cert.Verify(x509.VerifyOptions{DNSName: "localhost", Roots: pool}); err != nil {
		t.Errorf("verify: %v", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil || keyBlock.Type != "EC PRIVATE KEY" {
		t.Fatal("key PEM invalid")
	}
}

func TestServerCertificate_NoHosts(t *testing.T) {
	a, err := NewAuthority("Test CA")
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.ServerCertificate(); err == nil {
		t.Error("expected error without hosts")
	}
}
