// Package archive relocates successfully processed source files. Archival is
// a convenience, not a correctness requirement: every failure is captured in
// the Result for warning-level reporting and never escalates.
package archive

import "os"

// Result describes one archival attempt.
type Result struct {
	// Moved reports whether the source now lives at the archive path.
	Moved bool

	// Err holds the move failure, if any. Callers log it as a warning; the
	// source file is left untouched for manual handling.
	Err error
}

// Move relocates sourcePath to archivePath. Permissions, a missing archive
// directory, or a cross-device rename all surface in the Result rather than
// as an error.
func Move(sourcePath, archivePath string) Result {
	if err := os.Rename(sourcePath, archivePath); err != nil {
		return Result{Err: err}
	}
	return Result{Moved: true}
}
