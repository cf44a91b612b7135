package passphrase

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/pbkdf2"
)

// Protected blob layout: base64( salt[16] || nonce[24] || secretbox ).
// The secretbox key is derived from the configured entropy with PBKDF2.
const (
	blobSaltSize   = 16
	blobNonceSize  = 24
	blobKeySize    = 32
	blobIterations = 4096
)

// ProtectedBlob is the machine-scoped unwrap collaborator: an entropy-keyed
// authenticated blob. Anyone holding the settings file alone cannot recover
// the passphrase without the separately provisioned entropy value.
type ProtectedBlob struct{}

// Unwrap opens a sealed blob with the given entropy.
func (ProtectedBlob) Unwrap(ciphertext, entropy string) (string, error) {
	return OpenBlob(ciphertext, entropy)
}

// SealBlob protects a secret under the given entropy. Used by provisioning
// tooling to produce the settings-file blob values.
func SealBlob(secret, entropy string) (string, error) {
	salt := make([]byte, blobSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	var nonce [blobNonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", err
	}

	var key [blobKeySize]byte
	copy(key[:], pbkdf2.Key([]byte(entropy), salt, blobIterations, blobKeySize, sha256.New))

	out := make([]byte, 0, blobSaltSize+blobNonceSize+len(secret)+secretbox.Overhead)
	out = append(out, salt...)
	out = append(out, nonce[:]...)
	out = secretbox.Seal(out, []byte(secret), &nonce, &key)

	return base64.StdEncoding.EncodeToString(out), nil
}

// OpenBlob recovers the secret sealed by SealBlob. A wrong entropy value
// fails authentication rather than yielding garbage.
func OpenBlob(blob, entropy string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", fmt.Errorf("blob is not valid base64: %w", err)
	}
	if len(data) < blobSaltSize+blobNonceSize+secretbox.Overhead {
		return "", errors.New("blob is too short")
	}

	salt := data[:blobSaltSize]
	var nonce [blobNonceSize]byte
	copy(nonce[:], data[blobSaltSize:blobSaltSize+blobNonceSize])

	var key [blobKeySize]byte
	copy(key[:], pbkdf2.Key([]byte(entropy), salt, blobIterations, blobKeySize, sha256.New))

	secret, ok := secretbox.Open(nil, data[blobSaltSize+blobNonceSize:], &nonce, &key)
	if !ok {
		return "", errors.New("blob authentication failed")
	}
	return string(secret), nil
}
