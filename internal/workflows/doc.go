// Package workflows orchestrates the pgpgate file operations.
//
// Initialize builds a Session: it validates the configured identities, asks
// the engine for matching keys, and binds the key directory. The session is
// then passed explicitly into EncryptAndSign, DecryptAndVerify, and
// RunBatch; each call is one file operation, attempted once, with no retry
// loop. Per-file errors (a rejected recipient, a failed authentication)
// abort only that file; configuration and key errors abort the run.
//
// # Design Philosophy
//
// The cmd/ package should be a thin layer that parses flags, calls a
// workflow, and formats the result. Workflows handle everything else:
// loading keys, resolving passphrases through the configured backend,
// driving the engine, archival, and the audit trail.
//
// # The authentication gate
//
// DecryptAndVerify is fail-closed. Decrypted plaintext only survives on disk
// when at least one signature is cryptographically valid, fully trusted, and
// traceable to the configured sender key's thumbprints. Otherwise the
// plaintext is deleted before ErrSenderAuthentication is returned. The state
// machine per file is:
//
//	Idle -> Decrypting -> Verifying -> (Authenticated | Unauthenticated-Deleted)
//
// # Error Handling
//
// Workflows return sentinel errors from the internal/errors package, so the
// CLI layer distinguishes conditions with errors.Is instead of string
// matching. ErrEncryptionRecipient and ErrSenderAuthentication are returned
// together with a non-nil result carrying the diagnostics.
package workflows
