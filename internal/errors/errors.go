package errors

import "errors"

// Configuration errors indicate problems with the runtime settings supplied
// at startup. They abort the whole run and are never retried.
var (
	// ErrMissingSetting indicates a required settings key is absent or blank.
	ErrMissingSetting = errors.New("required setting is missing or blank")

	// ErrSettingsNotFound indicates the settings file could not be read.
	ErrSettingsNotFound = errors.New("settings file not found")
)

// Key errors indicate issues binding configured identities to engine keys.
var (
	// ErrInvalidKey indicates the engine returned a key without identity metadata.
	ErrInvalidKey = errors.New("key is missing identity information")

	// ErrKeyNotConfigured indicates no key was matched for the requested role.
	ErrKeyNotConfigured = errors.New("no key configured for role")

	// ErrNotInitialized indicates an operation was invoked before Initialize.
	ErrNotInitialized = errors.New("workflow has not been initialized")
)

// Secret errors indicate failures resolving a role's passphrase.
var (
	// ErrSecretRetrieval indicates the configured secret backend failed or is
	// missing its required settings.
	ErrSecretRetrieval = errors.New("failed to retrieve secret passphrase")

	// ErrUnknownBackend indicates the passphrase collaborator for the declared
	// mode was not wired.
	ErrUnknownBackend = errors.New("passphrase backend not available")
)

// Operation errors indicate per-file failures. They abort only the current
// file; the batch loop carries on.
var (
	// ErrEncryptFailed indicates the engine could not encrypt and sign the file.
	ErrEncryptFailed = errors.New("failed to encrypt and sign file")

	// ErrDecryptFailed indicates the engine could not decrypt the file.
	ErrDecryptFailed = errors.New("failed to decrypt file")

	// ErrEncryptionRecipient indicates the engine rejected one or more
	// recipient keys as invalid.
	ErrEncryptionRecipient = errors.New("encryption rejected invalid recipient")

	// ErrSenderAuthentication indicates no signature on the decrypted file
	// could be traced to the configured sender key. The decrypted plaintext is
	// removed before this error is returned.
	ErrSenderAuthentication = errors.New("sender authentication failed")
)
