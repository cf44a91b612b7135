package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	gerrors "pgpgate/internal/errors"
)

// Direction selects which way a batch run moves files.
type Direction int

const (
	// DirectionOutbound encrypts and signs plaintext files.
	DirectionOutbound Direction = iota

	// DirectionInbound decrypts and authenticates encrypted files.
	DirectionInbound
)

// encryptedExts are the filename extensions treated as encrypted messages.
var encryptedExts = []string{".pgp", ".asc", ".gpg"}

// BatchOptions configures a folder sweep.
type BatchOptions struct {
	Direction Direction

	// SourceFolder is scanned non-recursively for eligible files.
	SourceFolder string

	// DestinationFolder receives the processed output files.
	DestinationFolder string

	// ArchiveFolder, when set, receives each processed source file.
	ArchiveFolder string
}

// FileOutcome records one file's fate within a batch.
type FileOutcome struct {
	Source      string
	Destination string
	Err         error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Outcomes  []FileOutcome
	Succeeded int
	Failed    int
}

// RunBatch processes every eligible file in the source folder, continuing
// past per-file failures. Configuration-class errors (an uninitialized
// session, an unbound role key) abort the run immediately since no later
// file could succeed either.
func RunBatch(ctx context.Context, session *Session, opts BatchOptions) (*BatchResult, error) {
	if err := session.ready(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(opts.SourceFolder)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		source := filepath.Join(opts.SourceFolder, entry.Name())
		destination, eligible := destinationFor(opts, entry.Name())
		if !eligible {
			session.log.Debugf("Skipping %s", source)
			continue
		}

		archivePath := ""
		if opts.ArchiveFolder != "" {
			archivePath = filepath.Join(opts.ArchiveFolder, entry.Name())
		}

		var opErr error
		if opts.Direction == DirectionInbound {
			_, opErr = DecryptAndVerify(ctx, session, DecryptOptions{
				SourcePath:      source,
				DestinationPath: destination,
				ArchivePath:     archivePath,
			})
		} else {
			_, opErr = EncryptAndSign(ctx, session, EncryptOptions{
				SourcePath:      source,
				DestinationPath: destination,
				ArchivePath:     archivePath,
			})
		}

		if opErr != nil && (errors.Is(opErr, gerrors.ErrNotInitialized) || errors.Is(opErr, gerrors.ErrKeyNotConfigured)) {
			return result, opErr
		}

		result.Outcomes = append(result.Outcomes, FileOutcome{Source: source, Destination: destination, Err: opErr})
		if opErr != nil {
			result.Failed++
			session.log.Warnf("Skipping %s after error: %v", source, opErr)
			continue
		}
		result.Succeeded++
	}

	return result, nil
}

// destinationFor maps a source filename to its output path, reporting
// whether the file is eligible for the run's direction.
func destinationFor(opts BatchOptions, name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	encrypted := false
	for _, e := range encryptedExts {
		if ext == e {
			encrypted = true
			break
		}
	}

	if opts.Direction == DirectionInbound {
		if !encrypted {
			return "", false
		}
		return filepath.Join(opts.DestinationFolder, strings.TrimSuffix(name, filepath.Ext(name))), true
	}

	// Outbound: never re-encrypt something that already looks encrypted.
	if encrypted {
		return "", false
	}
	return filepath.Join(opts.DestinationFolder, name+".pgp"), true
}
