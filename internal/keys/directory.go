package keys

import (
	"fmt"
	"strings"

	gerrors "pgpgate/internal/errors"
	"pgpgate/internal/pgp"
)

// Directory binds the configured sender and recipient identities to concrete
// engine keys. It is populated once during workflow initialization and
// read-only afterwards.
type Directory struct {
	sender    pgp.KeyRecord
	recipient pgp.KeyRecord

	senderBound    bool
	recipientBound bool
}

// Bind scans the candidate keys and assigns the first key matching each
// identity to that role. A candidate without an identity email fails the scan
// with ErrInvalidKey.
//
// Bind deliberately completes even when a role stays unmatched; an
// encrypt-only deployment legitimately runs without the recipient's secret
// key present. The unmatched role surfaces as ErrKeyNotConfigured at first
// use instead.
func (d *Directory) Bind(sender, recipient string, candidates []pgp.KeyRecord) error {
	for _, candidate := range candidates {
		email := strings.TrimSpace(candidate.Email)
		if email == "" {
			return fmt.Errorf("%w: key %s", gerrors.ErrInvalidKey, fingerprintLabel(candidate))
		}
		if !d.recipientBound && strings.EqualFold(email, recipient) {
			d.recipient = candidate
			d.recipientBound = true
			continue
		}
		if !d.senderBound && strings.EqualFold(email, sender) {
			d.sender = candidate
			d.senderBound = true
		}
	}
	return nil
}

// SenderKey returns the key bound to the sender identity.
func (d *Directory) SenderKey() (pgp.KeyRecord, error) {
	if !d.senderBound {
		return pgp.KeyRecord{}, fmt.Errorf("%w: sender", gerrors.ErrKeyNotConfigured)
	}
	return d.sender, nil
}

// RecipientKey returns the key bound to the recipient identity.
func (d *Directory) RecipientKey() (pgp.KeyRecord, error) {
	if !d.recipientBound {
		return pgp.KeyRecord{}, fmt.Errorf("%w: recipient", gerrors.ErrKeyNotConfigured)
	}
	return d.recipient, nil
}

// MatchThumbprint reports whether fingerprint identifies key. Only the
// primary fingerprint and the immediate next subkey fingerprint are
// considered; deeper subkey chains are not traversed.
func (d *Directory) MatchThumbprint(key pgp.KeyRecord, fingerprint string) bool {
	candidate := strings.ToLower(strings.TrimSpace(fingerprint))
	if candidate == "" {
		return false
	}
	for i, fp := range key.Fingerprints {
		if i > 1 {
			break
		}
		if strings.ToLower(fp) == candidate {
			return true
		}
	}
	return false
}

func fingerprintLabel(key pgp.KeyRecord) string {
	if len(key.Fingerprints) > 0 {
		return key.Fingerprints[0]
	}
	return "(no fingerprint)"
}
