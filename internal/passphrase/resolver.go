package passphrase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"pgpgate/internal/configs"
	gerrors "pgpgate/internal/errors"
)

// Role selects which identity's passphrase is being resolved. The role name
// expands into the settings keys holding that role's secret locator.
type Role int

const (
	RoleSender Role = iota
	RoleRecipient
)

func (r Role) String() string {
	if r == RoleRecipient {
		return "Recipient"
	}
	return "Sender"
}

// Protection modes accepted in the PassphraseProtectionMode setting. The
// comparison is trimmed and case-insensitive; anything unrecognized falls
// back to the certificate-backed default.
const (
	ModeAWSSecretsManager = "AWS_SECRETSMANAGER"
	ModeWindowsProtected  = "WINDOWS_DPAPI"
	ModeCertProtected     = "ASPNET_DPAPI"
)

// Settings key suffixes, prefixed with the role name.
const (
	suffixAWSSecretsName = "AWSSecretsName"
	suffixWindowsBlob    = "EncryptedSecretPassPhrase_WIND_DPAPI"
	suffixCertBlob       = "EncryptedSecretPassPhrase_ASP_DPAPI"
)

// secretPassphraseField is the field extracted from the AWS secret's JSON
// payload.
const secretPassphraseField = "SecretPassPhrase"

// SecretFetcher fetches a named secret blob from a remote secrets service.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, name string) (string, error)
}

// BlobUnwrapper unwraps a base64 ciphertext protected by a machine-scoped
// mechanism keyed by the configured entropy.
type BlobUnwrapper interface {
	Unwrap(ciphertext, entropy string) (string, error)
}

// CertUnwrapper unwraps a base64 ciphertext protected by a certificate
// selected by distinguished subject name.
type CertUnwrapper interface {
	UnwrapWithCert(ciphertext, entropy, subjectName string) (string, error)
}

// Resolver returns the plaintext passphrase for a role, dispatching to the
// backend declared in the runtime settings. It holds no mutable state beyond
// the immutable settings and its collaborators, so it is safe to call
// concurrently for independent roles.
type Resolver struct {
	settings  configs.RuntimeSettings
	fetcher   SecretFetcher
	unwrapper BlobUnwrapper
	certStore CertUnwrapper
}

// Option overrides one of the resolver's backend collaborators.
type Option func(*Resolver)

// WithSecretFetcher replaces the remote secrets collaborator.
func WithSecretFetcher(f SecretFetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// WithBlobUnwrapper replaces the machine-scoped unwrap collaborator.
func WithBlobUnwrapper(u BlobUnwrapper) Option {
	return func(r *Resolver) { r.unwrapper = u }
}

// WithCertUnwrapper replaces the certificate-backed unwrap collaborator.
func WithCertUnwrapper(c CertUnwrapper) Option {
	return func(r *Resolver) { r.certStore = c }
}

// New builds a resolver over the given settings. Collaborators default to
// the real backends: AWS Secrets Manager, the entropy-keyed protected blob,
// and the PEM certificate store named by CertStoreFolderPath.
func New(settings configs.RuntimeSettings, opts ...Option) *Resolver {
	r := &Resolver{
		settings:  settings,
		fetcher:   NewAWSFetcher(settings.Trimmed(configs.KeyAWSRegion)),
		unwrapper: ProtectedBlob{},
		certStore: NewCertStore(settings.Trimmed(configs.KeyCertStoreFolder)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the passphrase for role. Every failure path reports
// ErrSecretRetrieval: a missing settings key, a backend call failure, or a
// malformed secret payload.
func (r *Resolver) Resolve(ctx context.Context, role Role) (string, error) {
	mode := strings.ToUpper(r.settings.Trimmed(configs.KeyPassphraseMode))
	switch mode {
	case ModeAWSSecretsManager:
		return r.resolveAWS(ctx, role)
	case ModeWindowsProtected:
		return r.resolveWindows(role)
	default:
		// ASPNET_DPAPI is the default mode, blank included.
		return r.resolveCert(role)
	}
}

func (r *Resolver) resolveAWS(ctx context.Context, role Role) (string, error) {
	name := r.settings.Trimmed(role.String() + suffixAWSSecretsName)
	if name == "" {
		return "", retrievalErr("setting %s%s is missing", role, suffixAWSSecretsName)
	}
	if r.fetcher == nil {
		return "", fmt.Errorf("%w: %s", gerrors.ErrUnknownBackend, ModeAWSSecretsManager)
	}

	raw, err := r.fetcher.FetchSecret(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: fetching secret %s: %v", gerrors.ErrSecretRetrieval, name, err)
	}

	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", retrievalErr("secret %s is not a flat JSON string map: %v", name, err)
	}
	pass, ok := fields[secretPassphraseField]
	if !ok {
		return "", retrievalErr("secret %s has no %s field", name, secretPassphraseField)
	}
	return pass, nil
}

func (r *Resolver) resolveWindows(role Role) (string, error) {
	blob := r.settings.Trimmed(role.String() + suffixWindowsBlob)
	entropy := r.settings.Trimmed(configs.KeyEntropy)
	if blob == "" || entropy == "" {
		return "", retrievalErr("mode %s requires %s%s and %s", ModeWindowsProtected, role, suffixWindowsBlob, configs.KeyEntropy)
	}
	if r.unwrapper == nil {
		return "", fmt.Errorf("%w: %s", gerrors.ErrUnknownBackend, ModeWindowsProtected)
	}

	pass, err := r.unwrapper.Unwrap(blob, entropy)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gerrors.ErrSecretRetrieval, err)
	}
	return pass, nil
}

func (r *Resolver) resolveCert(role Role) (string, error) {
	blob := r.settings.Trimmed(role.String() + suffixCertBlob)
	entropy := r.settings.Trimmed(configs.KeyEntropy)
	subject := r.settings.Trimmed(configs.KeyCertSubjectName)
	if blob == "" || entropy == "" || subject == "" {
		return "", retrievalErr("mode %s requires %s%s, %s and %s",
			ModeCertProtected, role, suffixCertBlob, configs.KeyEntropy, configs.KeyCertSubjectName)
	}
	if r.certStore == nil {
		return "", fmt.Errorf("%w: %s", gerrors.ErrUnknownBackend, ModeCertProtected)
	}

	pass, err := r.certStore.UnwrapWithCert(blob, entropy, subject)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gerrors.ErrSecretRetrieval, err)
	}
	return pass, nil
}

func retrievalErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", gerrors.ErrSecretRetrieval, fmt.Sprintf(format, args...))
}
