package workflows

import (
	"context"
	"fmt"

	"pgpgate/internal/archive"
	"pgpgate/internal/audit"
	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/passphrase"
	"pgpgate/internal/pgp"
)

// EncryptOptions configures one encrypt+sign file operation.
type EncryptOptions struct {
	// SourcePath is the plaintext file to protect.
	SourcePath string

	// DestinationPath receives the encrypted, signed message.
	DestinationPath string

	// ArchivePath, when set, is where the source file is moved after a
	// successful encryption. A move failure is a warning, never an error.
	ArchivePath string
}

// EncryptResult contains the outcome of an encrypt+sign operation.
type EncryptResult struct {
	SourcePath      string
	DestinationPath string

	// InvalidRecipients lists recipient keys the engine rejected. Non-empty
	// only when the operation failed with ErrEncryptionRecipient.
	InvalidRecipients []pgp.InvalidRecipient

	// Archived reports whether the source file was moved to ArchivePath.
	Archived bool

	// ArchiveWarning describes a failed archival. The operation still
	// succeeded; the source file stays in place for manual handling.
	ArchiveWarning string
}

// EncryptAndSign encrypts the source file for the recipient key and signs it
// with the sender key, writing the result to the destination path.
//
// The sender passphrase is resolved through the session's resolver when the
// engine's signing step requires it; delivery is always program-supplied,
// never interactive. The recipient key is used with a trust override: a
// batch job curates its own recipient list and does not require the key to
// be locally trusted.
//
// Returns ErrNotInitialized before Initialize, ErrKeyNotConfigured when a
// role has no key, ErrEncryptionRecipient (with diagnostics in the result)
// when the engine rejects recipients, and ErrEncryptFailed otherwise. On
// recipient rejection archival is skipped.
func EncryptAndSign(ctx context.Context, session *Session, opts EncryptOptions) (*EncryptResult, error) {
	if err := session.ready(); err != nil {
		return nil, err
	}

	senderKey, err := session.directory.SenderKey()
	if err != nil {
		return nil, err
	}
	recipientKey, err := session.directory.RecipientKey()
	if err != nil {
		return nil, err
	}

	result := &EncryptResult{
		SourcePath:      opts.SourcePath,
		DestinationPath: opts.DestinationPath,
	}
	entry := audit.Entry{
		Operation:   "encrypt",
		Source:      opts.SourcePath,
		Destination: opts.DestinationPath,
	}

	session.log.Debugf("Encrypting %s for %s, signing as %s", opts.SourcePath, recipientKey.Email, senderKey.Email)
	outcome, err := session.engine.EncryptAndSign(ctx, pgp.EncryptRequest{
		SourcePath:      opts.SourcePath,
		DestinationPath: opts.DestinationPath,
		RecipientKeys:   []pgp.KeyRecord{recipientKey},
		SignerKey:       senderKey,
		TrustOverride:   true,
		Passphrase:      session.passphraseFor(ctx, passphrase.RoleSender),
	})
	if err != nil {
		entry.Error = err.Error()
		session.trail.Log(entry)
		return nil, fmt.Errorf("%w: %v", gerrors.ErrEncryptFailed, err)
	}

	if !outcome.Succeeded() {
		result.InvalidRecipients = outcome.InvalidRecipients
		for _, rejected := range outcome.InvalidRecipients {
			session.log.Warnf("Recipient key %s rejected: %s", rejected.Fingerprint, rejected.Reason)
		}
		err := fmt.Errorf("%w: %d recipient key(s) rejected", gerrors.ErrEncryptionRecipient, len(outcome.InvalidRecipients))
		entry.Error = err.Error()
		session.trail.Log(entry)
		return result, err
	}

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

	session.trail.Log(entry)
	return result, nil
}
