// Package audit records an append-only JSONL trail of exchange operations:
// what was encrypted, what was released after authentication, and what was
// destroyed. Logging is best-effort; an operation never fails because its
// trail entry could not be written.
package audit
