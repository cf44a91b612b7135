// Package passphrase resolves the secret passphrases protecting the sender
// and recipient private keys.
//
// The runtime settings declare one of three protection modes, and the
// resolver dispatches to the matching backend:
//
//   - AWS_SECRETSMANAGER: fetch a JSON secret by name and extract its
//     SecretPassPhrase field.
//   - WINDOWS_DPAPI: open an entropy-keyed protected blob from the settings.
//   - ASPNET_DPAPI (default): unwrap a blob with the private key of a
//     certificate selected by distinguished subject name.
//
// Each backend sits behind a narrow collaborator interface (SecretFetcher,
// BlobUnwrapper, CertUnwrapper) so tests substitute fakes and new backends
// extend the variant set instead of editing a shared switch. The resolver is
// invoked exactly once per cryptographic operation that needs a passphrase,
// via the engine's passphrase callback, and never prompts interactively.
package passphrase
