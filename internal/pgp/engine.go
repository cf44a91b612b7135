package pgp

import (
	"context"
	"time"
)

// KeyRecord describes a key held by the engine's keystore. Records are built
// once during workflow initialization and read-only thereafter.
type KeyRecord struct {
	// Email is the primary identity bound to the key. Empty when the key
	// carries no identity packet; such keys cannot be bound to a role.
	Email string

	// Fingerprints lists subkey fingerprints in key order, primary key
	// fingerprint first. Lowercase hex.
	Fingerprints []string

	// Handle is the engine-opaque key object. Callers pass it back to the
	// engine unchanged and never inspect it.
	Handle any
}

// PassphraseFunc supplies the passphrase protecting a private key. The engine
// invokes it zero or one time per operation, synchronously, while the
// operation is in flight. Implementations must never prompt interactively.
type PassphraseFunc func() ([]byte, error)

// EncryptRequest describes one encrypt+sign file operation.
type EncryptRequest struct {
	SourcePath      string
	DestinationPath string

	// RecipientKeys are the keys the file is encrypted for.
	RecipientKeys []KeyRecord

	// SignerKey signs the encrypted file.
	SignerKey KeyRecord

	// TrustOverride marks every recipient as trusted regardless of local
	// key validity, mirroring a batch job that curates its own recipient
	// list. The keystore engine has no trust database, so the override is
	// implicit there; engines with one must honor it.
	TrustOverride bool

	// Passphrase unlocks the signer's private key when it is protected.
	Passphrase PassphraseFunc
}

// InvalidRecipient is a per-recipient diagnostic for keys the engine refused
// to encrypt for.
type InvalidRecipient struct {
	Fingerprint string
	Reason      string
}

// EncryptionOutcome is the result of an encrypt+sign attempt.
type EncryptionOutcome struct {
	InvalidRecipients []InvalidRecipient
}

// Succeeded reports whether the engine accepted every recipient.
func (o *EncryptionOutcome) Succeeded() bool {
	return len(o.InvalidRecipients) == 0
}

// DecryptRequest describes one decrypt+verify file operation.
type DecryptRequest struct {
	SourcePath      string
	DestinationPath string

	// DecryptionKey holds the private key material for decryption.
	DecryptionKey KeyRecord

	// VerificationKey is the key embedded signatures are checked against.
	VerificationKey KeyRecord

	// Passphrase unlocks the decryption key when it is protected.
	Passphrase PassphraseFunc
}

// Validity is the trust level the engine assigns to a verified signature.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityMarginal
	ValidityFull
)

func (v Validity) String() string {
	switch v {
	case ValidityFull:
		return "full"
	case ValidityMarginal:
		return "marginal"
	default:
		return "unknown"
	}
}

// SignatureRecord describes one signature found on a decrypted message.
type SignatureRecord struct {
	// Fingerprint of the exact (sub)key that issued the signature.
	// Empty when the issuer is not present in the keystore.
	Fingerprint string

	HashAlgorithm string
	KeyAlgorithm  string
	CreationTime  time.Time

	// Valid reports that the signature is cryptographically good.
	Valid bool

	// Validity is the trust level of the issuing key. Only ValidityFull
	// signatures count toward sender authentication.
	Validity Validity
}

// RecipientInfo identifies a key the message was decrypted with.
type RecipientInfo struct {
	KeyID     string
	Algorithm string
}

// VerificationOutcome is the result of a decrypt+verify attempt.
type VerificationOutcome struct {
	Recipients []RecipientInfo
	Signatures []SignatureRecord
}

// Engine is the minimal contract this workflow consumes from an OpenPGP
// implementation. One engine instance, its key selection, and its passphrase
// wiring belong to a single workflow session at a time; they are not safe to
// share across concurrent jobs.
type Engine interface {
	// ListKeys returns keys whose identities match any of the given
	// patterns, with signature metadata included. With secretOnly set,
	// only keys carrying private material are returned.
	ListKeys(ctx context.Context, identityPatterns []string, secretOnly bool) ([]KeyRecord, error)

	// EncryptAndSign encrypts and signs the source file into the
	// destination file.
	EncryptAndSign(ctx context.Context, req EncryptRequest) (*EncryptionOutcome, error)

	// DecryptAndVerify decrypts the source file into the destination file
	// and verifies any embedded signatures. A bad or untrusted signature
	// is reported in the outcome, not as an error; the caller owns the
	// authentication decision.
	DecryptAndVerify(ctx context.Context, req DecryptRequest) (*VerificationOutcome, error)
}
