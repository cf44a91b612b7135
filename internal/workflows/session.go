package workflows

import (
	"context"
	"errors"
	"fmt"

	"pgpgate/internal/audit"
	"pgpgate/internal/configs"
	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/keys"
	logger "pgpgate/internal/logging"
	"pgpgate/internal/passphrase"
	"pgpgate/internal/pgp"
)

// InitOptions configures workflow initialization.
type InitOptions struct {
	// Settings is the immutable runtime configuration.
	Settings configs.RuntimeSettings

	// Engine is the OpenPGP engine the session owns for its lifetime.
	Engine pgp.Engine

	// Resolver overrides the passphrase resolver. If nil, one is built
	// from Settings with the real backends.
	Resolver *passphrase.Resolver

	// Logger receives progress and warning output.
	Logger logger.Logger
}

// Session is the explicit, immutable context shared by the file operations.
// It is constructed once by Initialize and passed into every call; there is
// no hidden global state. A session owns its engine and must not be shared
// across concurrent jobs.
type Session struct {
	settings  configs.RuntimeSettings
	engine    pgp.Engine
	resolver  *passphrase.Resolver
	directory *keys.Directory
	trail     *audit.Trail
	log       logger.Logger

	sender    string
	recipient string
}

// Initialize validates the configured identities, queries the engine's
// keystore for keys matching either identity, and binds the key directory.
//
// Returns ErrMissingSetting when the sender or recipient email is blank.
// Returns ErrInvalidKey when the engine returned a key without identity
// information. A role with no matching key does not fail here; the failure
// is deferred to the first operation that needs it.
func Initialize(ctx context.Context, opts InitOptions) (*Session, error) {
	if opts.Engine == nil {
		return nil, errors.New("an engine is required")
	}
	if err := opts.Settings.Require(configs.KeySenderEmail, configs.KeyRecipientEmail); err != nil {
		return nil, err
	}

	sender := opts.Settings.Trimmed(configs.KeySenderEmail)
	recipient := opts.Settings.Trimmed(configs.KeyRecipientEmail)

	opts.Logger.Debugf("Listing keys for %s and %s", sender, recipient)
	candidates, err := opts.Engine.ListKeys(ctx, []string{sender, recipient}, false)
	if err != nil {
		return nil, fmt.Errorf("listing keys: %w", err)
	}

	directory := &keys.Directory{}
	if err := directory.Bind(sender, recipient, candidates); err != nil {
		return nil, err
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = passphrase.New(opts.Settings)
	}

	s := &Session{
		settings:  opts.Settings,
		engine:    opts.Engine,
		resolver:  resolver,
		directory: directory,
		trail:     audit.New(opts.Settings.Trimmed(configs.KeyAuditLogFolder)),
		log:       opts.Logger,
		sender:    sender,
		recipient: recipient,
	}

	if key, err := directory.SenderKey(); err == nil {
		opts.Logger.Infof("Sender key bound: %s (%s)", key.Email, primaryFingerprint(key))
	} else {
		opts.Logger.Warnf("No key matched the sender identity %s", sender)
	}
	if key, err := directory.RecipientKey(); err == nil {
		opts.Logger.Infof("Recipient key bound: %s (%s)", key.Email, primaryFingerprint(key))
	} else {
		opts.Logger.Warnf("No key matched the recipient identity %s", recipient)
	}

	return s, nil
}

// SenderEmail returns the configured sender identity.
func (s *Session) SenderEmail() string { return s.sender }

// RecipientEmail returns the configured recipient identity.
func (s *Session) RecipientEmail() string { return s.recipient }

// SenderKey returns the key bound to the sender identity, or
// ErrKeyNotConfigured.
func (s *Session) SenderKey() (pgp.KeyRecord, error) { return s.directory.SenderKey() }

// RecipientKey returns the key bound to the recipient identity, or
// ErrKeyNotConfigured.
func (s *Session) RecipientKey() (pgp.KeyRecord, error) { return s.directory.RecipientKey() }

// passphraseFor adapts the resolver into the engine's callback contract:
// invoked zero or one time, synchronously, within the engine call.
func (s *Session) passphraseFor(ctx context.Context, role passphrase.Role) pgp.PassphraseFunc {
	return func() ([]byte, error) {
		secret, err := s.resolver.Resolve(ctx, role)
		if err != nil {
			return nil, err
		}
		return []byte(secret), nil
	}
}

func (s *Session) ready() error {
	if s == nil || s.directory == nil || s.engine == nil {
		return gerrors.ErrNotInitialized
	}
	return nil
}

func primaryFingerprint(key pgp.KeyRecord) string {
	if len(key.Fingerprints) > 0 {
		return key.Fingerprints[0]
	}
	return "unknown"
}
