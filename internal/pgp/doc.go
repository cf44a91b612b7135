// Package pgp defines the OpenPGP engine contract the exchange workflow
// consumes, and a keystore-folder implementation of it.
//
// The workflow never touches OpenPGP primitives directly. It sees keys as
// opaque KeyRecord values, hands them back to the engine for encrypt and
// decrypt calls, and reads the outcomes: per-recipient diagnostics on
// encryption, per-signature records on decryption. The engine reports bad
// signatures as data rather than errors because the authentication decision
// (and the fail-closed cleanup it triggers) belongs to the workflow.
//
// # Keystore model
//
// KeystoreEngine loads armored key files from a single folder. That folder is
// the exchange's curated key list: there is no trust database, so any key
// present verifies at full validity. Sender authentication still requires the
// signature fingerprint to match the configured sender key exactly, so a
// stray key in the folder cannot impersonate the sender.
//
// # Passphrases
//
// Private-key operations take a PassphraseFunc. It is called at most once per
// operation, synchronously, and must never prompt a human; the passphrase
// package supplies implementations backed by the configured secret backend.
package pgp
