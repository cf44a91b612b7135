package pgp

import (
	"bufio"
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
)

// messageBlockType is the armor block type for encrypted messages.
const messageBlockType = "PGP MESSAGE"

// armorPrefix is what an ASCII-armored input file starts with.
var armorPrefix = []byte("-----BEGIN PGP")

// KeystoreEngine is an Engine backed by a folder of armored OpenPGP key
// files. All keys are loaded once at construction; the folder is the curated
// key list of the exchange, so every key present is treated as fully trusted
// (there is no separate trust database).
//
// A KeystoreEngine and its unlocked key material belong to one workflow
// session at a time.
type KeystoreEngine struct {
	dir      string
	entities openpgp.EntityList
	config   *packet.Config
}

// NewKeystoreEngine loads every key file (.asc, .gpg, .pgp, .key) in dir.
func NewKeystoreEngine(dir string) (*KeystoreEngine, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading keystore folder: %w", err)
	}

	e := &KeystoreEngine{
		dir: dir,
		config: &packet.Config{
			DefaultHash:   crypto.SHA256,
			DefaultCipher: packet.CipherAES256,
		},
	}

	for _, entry := range entries {
		if entry.IsDir() || !isKeyFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ents, err := readKeyFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading key file %s: %w", path, err)
		}
		e.entities = append(e.entities, ents...)
	}

	return e, nil
}

func isKeyFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".asc", ".gpg", ".pgp", ".key":
		return true
	}
	return false
}

// readKeyFile parses one key file, armored or binary.
func readKeyFile(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), armorPrefix) {
		return openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	}
	return openpgp.ReadKeyRing(bytes.NewReader(data))
}

// ListKeys returns records for every loaded key whose identity matches any
// pattern. Matching is a case-insensitive substring test against the key's
// identity emails, the same loose matching a keyserver lookup uses.
func (e *KeystoreEngine) ListKeys(ctx context.Context, identityPatterns []string, secretOnly bool) ([]KeyRecord, error) {
	var records []KeyRecord
	for _, ent := range e.entities {
		if secretOnly && ent.PrivateKey == nil {
			continue
		}
		if !matchesAny(ent, identityPatterns) {
			continue
		}
		records = append(records, recordFromEntity(ent))
	}
	return records, nil
}

func matchesAny(ent *openpgp.Entity, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		p := strings.ToLower(strings.TrimSpace(pattern))
		if p == "" {
			continue
		}
		for _, ident := range ent.Identities {
			if ident.UserId == nil {
				continue
			}
			if strings.Contains(strings.ToLower(ident.UserId.Email), p) {
				return true
			}
		}
	}
	return false
}

// recordFromEntity builds the engine-opaque KeyRecord: primary fingerprint
// first, then subkey fingerprints in key order.
func recordFromEntity(ent *openpgp.Entity) KeyRecord {
	rec := KeyRecord{
		Email:  primaryEmail(ent),
		Handle: ent,
	}
	rec.Fingerprints = append(rec.Fingerprints, hex.EncodeToString(ent.PrimaryKey.Fingerprint[:]))
	for _, sk := range ent.Subkeys {
		rec.Fingerprints = append(rec.Fingerprints, hex.EncodeToString(sk.PublicKey.Fingerprint[:]))
	}
	return rec
}

func primaryEmail(ent *openpgp.Entity) string {
	if ident := ent.PrimaryIdentity(); ident != nil && ident.UserId != nil && ident.UserId.Email != "" {
		return ident.UserId.Email
	}
	for _, ident := range ent.Identities {
		if ident.UserId != nil && ident.UserId.Email != "" {
			return ident.UserId.Email
		}
	}
	return ""
}

// EncryptAndSign encrypts the source file for the recipient keys and signs it
// with the signer key, writing an armored message to the destination file.
// Recipient keys without usable encryption material are reported in the
// outcome and nothing is written.
func (e *KeystoreEngine) EncryptAndSign(ctx context.Context, req EncryptRequest) (*EncryptionOutcome, error) {
	outcome := &EncryptionOutcome{}
	now := e.config.Now()

	var recipients []*openpgp.Entity
	for _, rec := range req.RecipientKeys {
		ent, err := entityHandle(rec)
		if err != nil {
			return nil, err
		}
		if _, ok := ent.EncryptionKey(now); !ok {
			outcome.InvalidRecipients = append(outcome.InvalidRecipients, InvalidRecipient{
				Fingerprint: hex.EncodeToString(ent.PrimaryKey.Fingerprint[:]),
				Reason:      "no usable encryption key",
			})
			continue
		}
		recipients = append(recipients, ent)
	}
	if len(outcome.InvalidRecipients) > 0 {
		return outcome, nil
	}

	signer, err := entityHandle(req.SignerKey)
	if err != nil {
		return nil, err
	}
	if signer.PrivateKey == nil {
		return nil, fmt.Errorf("signer key %s has no private material", req.SignerKey.Email)
	}
	if err := unlockEntity(signer, req.Passphrase); err != nil {
		return nil, err
	}

	src, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := os.OpenFile(req.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	if err := encryptStream(dst, src, recipients, signer, e.config); err != nil {
		dst.Close()
		os.Remove(req.DestinationPath)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(req.DestinationPath)
		return nil, err
	}

	return outcome, nil
}

func encryptStream(dst io.Writer, src io.Reader, recipients []*openpgp.Entity, signer *openpgp.Entity, config *packet.Config) error {
	armored, err := armor.Encode(dst, messageBlockType, nil)
	if err != nil {
		return err
	}
	plaintext, err := openpgp.Encrypt(armored, recipients, signer, nil, config)
	if err != nil {
		return err
	}
	if _, err := io.Copy(plaintext, src); err != nil {
		return err
	}
	if err := plaintext.Close(); err != nil {
		return err
	}
	return armored.Close()
}

// DecryptAndVerify decrypts the source file into the destination file and
// reports every embedded signature. Signature problems are outcome data, not
// errors; the caller decides whether the plaintext survives.
func (e *KeystoreEngine) DecryptAndVerify(ctx context.Context, req DecryptRequest) (*VerificationOutcome, error) {
	decKey, err := entityHandle(req.DecryptionKey)
	if err != nil {
		return nil, err
	}
	if decKey.PrivateKey == nil {
		return nil, fmt.Errorf("decryption key %s has no private material", req.DecryptionKey.Email)
	}
	if err := unlockEntity(decKey, req.Passphrase); err != nil {
		return nil, err
	}

	keyring := openpgp.EntityList{decKey}
	if verKey, err := entityHandle(req.VerificationKey); err == nil && verKey != decKey {
		keyring = append(keyring, verKey)
	}

	src, err := os.Open(req.SourcePath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	reader := bufio.NewReader(src)
	var message io.Reader = reader
	if peek, _ := reader.Peek(len(armorPrefix)); bytes.HasPrefix(peek, armorPrefix) {
		block, err := armor.Decode(reader)
		if err != nil {
			return nil, err
		}
		message = block.Body
	}

	// Keys are unlocked up front, so ReadMessage never needs a prompt.
	md, err := openpgp.ReadMessage(message, keyring, nil, e.config)
	if err != nil {
		return nil, err
	}

	dst, err := os.OpenFile(req.DestinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, md.UnverifiedBody); err != nil {
		dst.Close()
		os.Remove(req.DestinationPath)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(req.DestinationPath)
		return nil, err
	}

	// The body has been fully read; signature results are now final.
	outcome := &VerificationOutcome{}
	if md.IsEncrypted && md.DecryptedWith.PublicKey != nil {
		outcome.Recipients = append(outcome.Recipients, RecipientInfo{
			KeyID:     md.DecryptedWith.PublicKey.KeyIdString(),
			Algorithm: pubKeyAlgoName(md.DecryptedWith.PublicKey.PubKeyAlgo),
		})
	}
	if md.IsSigned {
		outcome.Signatures = append(outcome.Signatures, signatureRecord(md))
	}

	return outcome, nil
}

func signatureRecord(md *openpgp.MessageDetails) SignatureRecord {
	rec := SignatureRecord{}
	if md.SignedBy != nil && md.SignedBy.PublicKey != nil {
		rec.Fingerprint = hex.EncodeToString(md.SignedBy.PublicKey.Fingerprint[:])
		rec.KeyAlgorithm = pubKeyAlgoName(md.SignedBy.PublicKey.PubKeyAlgo)
	}
	if md.Signature != nil {
		rec.HashAlgorithm = hashName(md.Signature.Hash)
		rec.CreationTime = md.Signature.CreationTime
		if rec.KeyAlgorithm == "" {
			rec.KeyAlgorithm = pubKeyAlgoName(md.Signature.PubKeyAlgo)
		}
	}

	rec.Valid = md.SignedBy != nil && md.SignatureError == nil
	if rec.Valid {
		// The keystore folder is the curated key list; a key present in
		// it carries full validity.
		rec.Validity = ValidityFull
	}
	return rec
}

// unlockEntity decrypts the private key material of ent with the passphrase
// from pass. The passphrase source is consulted at most once.
func unlockEntity(ent *openpgp.Entity, pass PassphraseFunc) error {
	locked := ent.PrivateKey != nil && ent.PrivateKey.Encrypted
	for _, sk := range ent.Subkeys {
		if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
			locked = true
		}
	}
	if !locked {
		return nil
	}
	if pass == nil {
		return fmt.Errorf("key %s is passphrase-protected and no passphrase source is wired", primaryEmail(ent))
	}

	passphrase, err := pass()
	if err != nil {
		return err
	}

	if ent.PrivateKey != nil && ent.PrivateKey.Encrypted {
		if err := ent.PrivateKey.Decrypt(passphrase); err != nil {
			return fmt.Errorf("unlocking primary key: %w", err)
		}
	}
	for _, sk := range ent.Subkeys {
		if sk.PrivateKey != nil && sk.PrivateKey.Encrypted {
			if err := sk.PrivateKey.Decrypt(passphrase); err != nil {
				return fmt.Errorf("unlocking subkey %s: %w", sk.PublicKey.KeyIdString(), err)
			}
		}
	}
	return nil
}

func entityHandle(rec KeyRecord) (*openpgp.Entity, error) {
	ent, ok := rec.Handle.(*openpgp.Entity)
	if !ok || ent == nil {
		return nil, fmt.Errorf("key record for %q does not belong to this engine", rec.Email)
	}
	return ent, nil
}

func pubKeyAlgoName(algo packet.PublicKeyAlgorithm) string {
	switch algo {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSAEncryptOnly, packet.PubKeyAlgoRSASignOnly:
		return "rsa"
	case packet.PubKeyAlgoElGamal:
		return "elgamal"
	case packet.PubKeyAlgoDSA:
		return "dsa"
	case packet.PubKeyAlgoECDH:
		return "ecdh"
	case packet.PubKeyAlgoECDSA:
		return "ecdsa"
	case packet.PubKeyAlgoEdDSA:
		return "eddsa"
	default:
		return fmt.Sprintf("algo-%d", int(algo))
	}
}

func hashName(h crypto.Hash) string {
	if h == 0 {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(h.String(), "-", ""))
}

// Now exposes the engine's clock, used by tests that reason about key
// validity windows.
func (e *KeystoreEngine) Now() time.Time {
	return e.config.Now()
}
