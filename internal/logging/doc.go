// Package logger provides leveled logging for pgpgate CLI commands.
//
// Verbosity is controlled by two flags:
//
//   - --verbose: shows info messages
//   - --debug: shows all messages including debug details
//
// Warnings and errors are always shown on stderr. Commands build a logger
// from the parsed flags at the top of RunE and pass it down to the workflows.
package logger
