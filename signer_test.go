package sri_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"

	sri "github.com/repuestocontrol/sriinvoice"
)

// writeTestP12 builds a self-signed RSA certificate with the given
// expiry and writes it as a PKCS#12 file, the same container format SRI
// issues emitter certificates in.
func writeTestP12(t *testing.T, dir, password string, notAfter time.Time) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sriinvoice test emitter"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating test certificate: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parsing test certificate: %v", err)
	}

	pfx, err := pkcs12.Encode(rand.Reader, key, cert, nil, password)
	if err != nil {
		t.Fatalf("encoding pkcs12: %v", err)
	}

	path := filepath.Join(dir, "emitter.p12")
	if err := os.WriteFile(path, pfx, 0o600); err != nil {
		t.Fatalf("writing pkcs12 file: %v", err)
	}
	return path
}

func TestLoadCertificate_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestP12(t, dir, "s3cret", time.Now().AddDate(1, 0, 0))

	cert, err := sri.LoadCertificate(path, "s3cret")
	if err != nil {
		t.Fatalf("LoadCertificate: %v", err)
	}
	if cert.PrivateKey == nil || cert.Certificate == nil {
		t.Fatal("expected both a private key and a certificate to be populated")
	}
}

func TestLoadCertificate_RejectsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := sri.LoadCertificate(filepath.Join(t.TempDir(), "missing.p12"), "whatever")
	if !sri.IsKind(err, sri.KindCertificateNotFound) {
		t.Errorf("expected KindCertificateNotFound, got %v", err)
	}
}

func TestLoadCertificate_RejectsExpired(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestP12(t, dir, "s3cret", time.Now().Add(-24*time.Hour))

	_, err := sri.LoadCertificate(path, "s3cret")
	if !sri.IsKind(err, sri.KindCertificateExpired) {
		t.Errorf("expected KindCertificateExpired, got %v", err)
	}
}

func TestLoadCertificate_RejectsWrongPassword(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestP12(t, dir, "s3cret", time.Now().AddDate(1, 0, 0))

	_, err := sri.LoadCertificate(path, "wrong")
	if !sri.IsKind(err, sri.KindWrongPassword) {
		t.Errorf("expected KindWrongPassword, got %v", err)
	}
}

func TestSignXML_ProducesEnvelopedSignature(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := writeTestP12(t, dir, "s3cret", time.Now().AddDate(1, 0, 0))
	cert, err := sri.LoadCertificate(path, "s3cret")
	if err != nil {
		t.Fatalf("LoadCertificate: %v", err)
	}

	doc := sampleDocument()
	if err := sri.BuildXML(doc, sampleSale()); err != nil {
		t.Fatalf("BuildXML: %v", err)
	}

	if err := sri.SignXML(doc, cert); err != nil {
		t.Fatalf("SignXML: %v", err)
	}
	if doc.State != sri.StateSigned {
		t.Errorf("expected StateSigned, got %s", doc.State)
	}

	signed := string(doc.XMLSigned)
	for _, want := range []string{
		"<ds:Signature",
		"<ds:SignedInfo>",
		"<ds:DigestValue>",
		"<ds:SignatureValue>",
		"<ds:X509Certificate>",
	} {
		if !strings.Contains(signed, want) {
			t.Errorf("expected signed xml to contain %q", want)
		}
	}
}
