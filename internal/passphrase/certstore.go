package passphrase

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CertStore is the certificate-backed unwrap collaborator. It holds a folder
// of PEM files, each carrying a certificate and its private key, and selects
// the certificate by distinguished subject name.
type CertStore struct {
	dir string
}

// NewCertStore returns a store over the given PEM folder.
func NewCertStore(dir string) *CertStore {
	return &CertStore{dir: dir}
}

// UnwrapWithCert decrypts a base64 RSA ciphertext with the private key of the
// certificate matching subjectName. The plaintext carries the entropy value
// as a prefix; a mismatch means the blob was sealed for a different
// deployment and is rejected.
func (c *CertStore) UnwrapWithCert(ciphertext, entropy, subjectName string) (string, error) {
	key, err := c.privateKeyFor(subjectName)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("ciphertext is not valid base64: %w", err)
	}

	plain, err := rsa.DecryptPKCS1v15(nil, key, data)
	if err != nil {
		return "", fmt.Errorf("certificate unwrap failed: %w", err)
	}
	if !strings.HasPrefix(string(plain), entropy) {
		return "", fmt.Errorf("unwrapped blob does not carry the configured entropy")
	}
	return strings.TrimPrefix(string(plain), entropy), nil
}

// WrapWithCert seals a secret for the certificate's key. Used by
// provisioning tooling to produce the settings-file blob values.
func WrapWithCert(pub *rsa.PublicKey, secret, entropy string) (string, error) {
	ciphertext, err := rsa.EncryptPKCS1v15(nil, pub, []byte(entropy+secret))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// privateKeyFor scans the PEM folder for a certificate whose subject matches
// subjectName and returns the private key found alongside it.
func (c *CertStore) privateKeyFor(subjectName string) (*rsa.PrivateKey, error) {
	if c.dir == "" {
		return nil, fmt.Errorf("no certificate store folder configured")
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("reading certificate store: %w", err)
	}

	want := strings.ToLower(strings.TrimSpace(subjectName))
	for _, entry := range entries {
		if entry.IsDir() || !isPEMFile(entry.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		cert, key := parsePEMBundle(data)
		if cert == nil || key == nil {
			continue
		}
		if strings.Contains(strings.ToLower(cert.Subject.String()), want) {
			return key, nil
		}
	}
	return nil, fmt.Errorf("no certificate matching subject %q in %s", subjectName, c.dir)
}

func isPEMFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pem", ".crt", ".key":
		return true
	}
	return false
}

// parsePEMBundle extracts the first certificate and RSA private key from a
// PEM file. Either may be nil when absent or unparsable.
func parsePEMBundle(data []byte) (*x509.Certificate, *rsa.PrivateKey) {
	var cert *x509.Certificate
	var key *rsa.PrivateKey

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		switch block.Type {
		case "CERTIFICATE":
			if cert == nil {
				cert, _ = x509.ParseCertificate(block.Bytes)
			}
		case "RSA PRIVATE KEY":
			if key == nil {
				key, _ = x509.ParsePKCS1PrivateKey(block.Bytes)
			}
		case "PRIVATE KEY":
			if key == nil {
				if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
					if rsaKey, ok := parsed.(*rsa.PrivateKey); ok {
						key = rsaKey
					}
				}
			}
		}
	}
	return cert, key
}
