// Package keys binds configured email identities to engine keys and answers
// thumbprint queries during sender authentication.
package keys
