package workflows

import (
	"context"
	"fmt"
	"os"

	"pgpgate/internal/archive"
	"pgpgate/internal/audit"
	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/passphrase"
	"pgpgate/internal/pgp"
)

// DecryptOptions configures one decrypt+verify file operation.
type DecryptOptions struct {
	// SourcePath is the encrypted inbound file.
	SourcePath string

	// DestinationPath receives the decrypted plaintext. It only survives
	// the call when sender authentication succeeds.
	DestinationPath string

	// ArchivePath, when set, is where the source file is moved after
	// processing, regardless of the verification outcome.
	ArchivePath string
}

// DecryptResult contains the outcome of a decrypt+verify operation.
type DecryptResult struct {
	SourcePath      string
	DestinationPath string

	// Recipients identifies the keys the message was decrypted with.
	Recipients []pgp.RecipientInfo

	// Signatures lists every signature the engine found, matched or not.
	Signatures []pgp.SignatureRecord

	// MatchCount is the number of valid, fully trusted signatures whose
	// fingerprint matches the configured sender key. Zero means the
	// plaintext was destroyed and the operation failed.
	MatchCount int

	// Archived reports whether the source file was moved to ArchivePath.
	Archived bool

	// ArchiveWarning describes a failed archival.
	ArchiveWarning string
}

// DecryptAndVerify decrypts the source file into the destination path,
// verifies the embedded signatures, and authenticates the sender.
//
// A signature that is not both cryptographically valid and fully trusted is
// logged as a concern but does not abort processing; only the aggregate
// count of sender-matching signatures decides the outcome. Archival of the
// source is attempted after the engine call independent of that outcome.
//
// Fail-closed invariant: when no signature matches the configured sender
// key's thumbprints, the freshly written plaintext is deleted before
// ErrSenderAuthentication is returned. The diagnostics remain available in
// the returned result.
//
// Returns ErrNotInitialized before Initialize, ErrKeyNotConfigured when a
// role has no key, and ErrDecryptFailed when the engine cannot process the
// file.
func DecryptAndVerify(ctx context.Context, session *Session, opts DecryptOptions) (*DecryptResult, error) {
	if err := session.ready(); err != nil {
		return nil, err
	}

	// Both roles are needed: the recipient key decrypts, the sender key
	// authenticates.
	senderKey, err := session.directory.SenderKey()
	if err != nil {
		return nil, err
	}
	recipientKey, err := session.directory.RecipientKey()
	if err != nil {
		return nil, err
	}

	result := &DecryptResult{
		SourcePath:      opts.SourcePath,
		DestinationPath: opts.DestinationPath,
	}
	entry := audit.Entry{
		Operation:   "decrypt",
		Source:      opts.SourcePath,
		Destination: opts.DestinationPath,
	}

	session.log.Debugf("Decrypting %s as %s", opts.SourcePath, recipientKey.Email)
	outcome, err := session.engine.DecryptAndVerify(ctx, pgp.DecryptRequest{
		SourcePath:      opts.SourcePath,
		DestinationPath: opts.DestinationPath,
		DecryptionKey:   recipientKey,
		VerificationKey: senderKey,
		Passphrase:      session.passphraseFor(ctx, passphrase.RoleRecipient),
	})
	if err != nil {
		entry.Error = err.Error()
		session.trail.Log(entry)
		return nil, fmt.Errorf("%w: %v", gerrors.ErrDecryptFailed, err)
	}

	result.Recipients = outcome.Recipients
	result.Signatures = outcome.Signatures

	for _, sig := range outcome.Signatures {
		if !sig.Valid || sig.Validity != pgp.ValidityFull {
			session.log.Warnf("Ignoring signature %s: valid=%t validity=%s", signatureLabel(sig), sig.Valid, sig.Validity)
			continue
		}
		if session.directory.MatchThumbprint(senderKey, sig.Fingerprint) {
			result.MatchCount++
			entry.SignatureFingerprint = sig.Fingerprint
		} else {
			session.log.Warnf("Trusted signature %s does not belong to the configured sender %s", sig.Fingerprint, session.sender)
		}
	}
	entry.MatchCount = result.MatchCount

	// Archival happens before the authentication gate: the inbound file
	// was processed either way and must not be picked up again.
	if opts.ArchivePath != "" {
		moved := archive.Move(opts.SourcePath, opts.ArchivePath)
		result.Archived = moved.Moved
		entry.Archived = moved.Moved
		if moved.Err != nil {
			result.ArchiveWarning = moved.Err.Error()
			entry.ArchiveError = moved.Err.Error()
			session.log.Warnf("Could not archive %s: %v", opts.SourcePath, moved.Err)
		}
	}

	if result.MatchCount == 0 {
		if err := os.Remove(opts.DestinationPath); err != nil && !os.IsNotExist(err) {
			// The plaintext could not be removed; say so loudly, the
			// operation still fails.
			session.log.Errorf("Failed to remove unauthenticated plaintext %s: %v", opts.DestinationPath, err)
		}
		err := fmt.Errorf("%w: no valid signature from %s", gerrors.ErrSenderAuthentication, session.sender)
		entry.Error = err.Error()
		session.trail.Log(entry)
		return result, err
	}

	entry.Authenticated = true
	session.trail.Log(entry)
	return result, nil
}

func signatureLabel(sig pgp.SignatureRecord) string {
	if sig.Fingerprint != "" {
		return sig.Fingerprint
	}
	return "(unknown issuer)"
}
