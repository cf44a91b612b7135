// Package errors defines sentinel errors returned by pgpgate operations.
//
// Errors fall into two classes. Configuration and key errors abort the whole
// run: the settings or keystore are wrong and no file will ever process.
// Operation errors abort a single file: the batch loop logs them and moves on.
//
// Callers distinguish conditions with errors.Is:
//
//	result, err := workflows.DecryptAndVerify(ctx, session, opts)
//	if errors.Is(err, gerrors.ErrSenderAuthentication) {
//	    // plaintext has already been removed; quarantine the source
//	}
//
// Wrapping convention follows the rest of the codebase: sentinel first,
// detail second, as in fmt.Errorf("%w: %v", ErrSecretRetrieval, err).
package errors
