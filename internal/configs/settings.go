package configs

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"

	gerrors "pgpgate/internal/errors"
)

// Settings keys consumed by the exchange workflow. Keys are case-sensitive
// and match the flat layout of the settings file.
const (
	KeySenderEmail    = "SenderEmailAddress"
	KeyRecipientEmail = "RecipientEmailAddress"

	KeyPassphraseMode = "PassphraseProtectionMode"

	KeySenderAWSSecretsName    = "SenderAWSSecretsName"
	KeyRecipientAWSSecretsName = "RecipientAWSSecretsName"
	KeyAWSRegion               = "AWSRegion"

	KeySenderBlobWindows    = "SenderEncryptedSecretPassPhrase_WIND_DPAPI"
	KeyRecipientBlobWindows = "RecipientEncryptedSecretPassPhrase_WIND_DPAPI"
	KeySenderBlobCert       = "SenderEncryptedSecretPassPhrase_ASP_DPAPI"
	KeyRecipientBlobCert    = "RecipientEncryptedSecretPassPhrase_ASP_DPAPI"
	KeyEntropy              = "entropy"
	KeyCertSubjectName      = "SSLCertDistinguishedSubjectName"

	KeyKeyStoreFolder  = "KeyStoreFolderPath"
	KeyCertStoreFolder = "CertStoreFolderPath"
	KeyInboundFolder   = "InboundFolderPath"
	KeyOutboundFolder  = "OutboundFolderPath"
	KeyArchiveFolder   = "ArchiveFolderPath"
	KeyAuditLogFolder  = "AuditLogFolderPath"
)

// RuntimeSettings is the flat string-keyed configuration supplied once at
// startup. It is immutable input, not mutable state; nothing in the workflow
// writes to it after Load.
type RuntimeSettings map[string]string

// Load reads a JSON settings file and flattens it into RuntimeSettings.
// Nested objects flatten with dotted keys, though the expected layout is a
// single flat object.
func Load(path string) (RuntimeSettings, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", gerrors.ErrSettingsNotFound, err)
	}

	settings := make(RuntimeSettings, len(k.Keys()))
	for _, key := range k.Keys() {
		settings[key] = k.String(key)
	}
	return settings, nil
}

// Get returns the raw value for key, or "" when absent.
func (s RuntimeSettings) Get(key string) string {
	return s[key]
}

// Trimmed returns the value for key with surrounding whitespace removed.
func (s RuntimeSettings) Trimmed(key string) string {
	return strings.TrimSpace(s[key])
}

// Require verifies every named key is present and non-blank after trimming.
// Returns ErrMissingSetting naming the first offending key.
func (s RuntimeSettings) Require(keys ...string) error {
	for _, key := range keys {
		if strings.TrimSpace(s[key]) == "" {
			return fmt.Errorf("%w: %s", gerrors.ErrMissingSetting, key)
		}
	}
	return nil
}
