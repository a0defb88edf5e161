package httpserver

import (
	"crypto/tls"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// LoadKeyStore reads a PKCS#12 (.p12/.pfx) file and returns the certificate
// chain and private key it contains.
func LoadKeyStore(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrKeyStore, err)
	}
	return ParseKeyStore(data, password)
}

// ParseKeyStore decodes PKCS#12 data. Only the legacy 3DES/RC2 encryption
// schemes understood by golang.org/x/crypto/pkcs12 are supported; export with
// `openssl pkcs12 -export -certpbe PBE-SHA1-3DES -keypbe PBE-SHA1-3DES -macalg sha1`.
// Expired leaf certificates are rejected.
func ParseKeyStore(data []byte, password string) (tls.Certificate, error) {
	if len(data) == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: empty key store", ErrKeyStore)
	}

	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrKeyStore, err)
	}

	var buf []byte
	for _, b := range blocks {
		buf = append(buf, pem.EncodeToMemory(b)...)
	}

	// X509KeyPair picks CERTIFICATE blocks and the PRIVATE KEY block out of the same bundle.
	cert, err := tls.X509KeyPair(buf, buf)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: %w", ErrKeyStore, err)
	}

	if cert.Leaf != nil && time.Now().After(cert.Leaf.NotAfter) {
		return tls.Certificate{}, fmt.Errorf("%w: certificate expired at %s", ErrKeyStore, cert.Leaf.NotAfter.Format(time.RFC3339))
	}
	return cert, nil
}
