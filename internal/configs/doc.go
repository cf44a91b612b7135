// Package configs loads and exposes the runtime settings for pgpgate.
//
// Settings are a flat, case-sensitive string map read once at startup from a
// JSON file and treated as immutable for the life of the process. The key
// names mirror the deployment's settings surface: sender and recipient
// identities, folder paths, the passphrase protection mode, and the
// mode-specific secret locators.
//
// Components that need configuration take a RuntimeSettings value; none of
// them mutate it, which is what makes the passphrase resolver safe to call
// concurrently for independent roles.
package configs
