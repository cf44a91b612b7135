package workflows

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pgpgate/internal/audit"
	"pgpgate/internal/configs"
	gerrors "pgpgate/internal/errors"
	logger "pgpgate/internal/logging"
	"pgpgate/internal/passphrase"
	"pgpgate/internal/pgp"
)

// fakeEngine is a scriptable engine standing in for the keystore. It writes
// the destination file the way the real engine does so archival and the
// fail-closed deletion can be observed on disk.
type fakeEngine struct {
	keys []pgp.KeyRecord

	encryptOutcome *pgp.EncryptionOutcome
	encryptErr     error
	decryptOutcome *pgp.VerificationOutcome
	decryptErr     error

	encryptReqs []pgp.EncryptRequest
	decryptReqs []pgp.DecryptRequest
	passphrases []string
}

func (e *fakeEngine) ListKeys(ctx context.Context, identityPatterns []string, secretOnly bool) ([]pgp.KeyRecord, error) {
	return e.keys, nil
}

func (e *fakeEngine) EncryptAndSign(ctx context.Context, req pgp.EncryptRequest) (*pgp.EncryptionOutcome, error) {
	e.encryptReqs = append(e.encryptReqs, req)
	if req.Passphrase != nil {
		if pass, err := req.Passphrase(); err == nil {
			e.passphrases = append(e.passphrases, string(pass))
		}
	}
	if e.encryptErr != nil {
		return nil, e.encryptErr
	}
	outcome := e.encryptOutcome
	if outcome == nil {
		outcome = &pgp.EncryptionOutcome{}
	}
	if outcome.Succeeded() {
		if err := os.WriteFile(req.DestinationPath, []byte("encrypted"), 0600); err != nil {
			return nil, err
		}
	}
	return outcome, nil
}

func (e *fakeEngine) DecryptAndVerify(ctx context.Context, req pgp.DecryptRequest) (*pgp.VerificationOutcome, error) {
	e.decryptReqs = append(e.decryptReqs, req)
	if e.decryptErr != nil {
		return nil, e.decryptErr
	}
	if err := os.WriteFile(req.DestinationPath, []byte("plaintext"), 0600); err != nil {
		return nil, err
	}
	outcome := e.decryptOutcome
	if outcome == nil {
		outcome = &pgp.VerificationOutcome{}
	}
	return outcome, nil
}

var (
	testSenderKey = pgp.KeyRecord{
		Email:        "alice@example.com",
		Fingerprints: []string{"aaaa1111", "aaaa2222", "aaaa3333"},
	}
	testRecipientKey = pgp.KeyRecord{
		Email:        "bob@example.com",
		Fingerprints: []string{"bbbb1111"},
	}
)

func testSettings() configs.RuntimeSettings {
	return configs.RuntimeSettings{
		configs.KeySenderEmail:    "alice@example.com",
		configs.KeyRecipientEmail: "bob@example.com",
	}
}

func newTestSession(t *testing.T, engine *fakeEngine, settings configs.RuntimeSettings) *Session {
	t.Helper()
	session, err := Initialize(context.Background(), InitOptions{
		Settings: settings,
		Engine:   engine,
		Logger:   logger.Logger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return session
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("report body"), 0600); err != nil {
		t.Fatalf("Failed to write source file: %v", err)
	}
	return path
}

func TestInitialize_RequiresEngine(t *testing.T) {
	_, err := Initialize(context.Background(), InitOptions{Settings: testSettings()})
	if err == nil {
		t.Fatal("Expected initialization without an engine to fail")
	}
}

func TestInitialize_RequiresIdentities(t *testing.T) {
	settings := testSettings()
	settings[configs.KeyRecipientEmail] = "   "

	_, err := Initialize(context.Background(), InitOptions{
		Settings: settings,
		Engine:   &fakeEngine{},
		Logger:   logger.Logger{},
	})
	if !errors.Is(err, gerrors.ErrMissingSetting) {
		t.Errorf("Expected ErrMissingSetting, got: %v", err)
	}
}

func TestInitialize_BindsRoles(t *testing.T) {
	engine := &fakeEngine{keys: []pgp.KeyRecord{testSenderKey, testRecipientKey}}
	session := newTestSession(t, engine, testSettings())

	sender, err := session.SenderKey()
	if err != nil {
		t.Fatalf("SenderKey failed: %v", err)
	}
	if sender.Email != "alice@example.com" {
		t.Errorf("Expected sender key, got %q", sender.Email)
	}

	recipient, err := session.RecipientKey()
	if err != nil {
		t.Fatalf("RecipientKey failed: %v", err)
	}
	if recipient.Email != "bob@example.com" {
		t.Errorf("Expected recipient key, got %q", recipient.Email)
	}
}

func TestInitialize_UnmatchedRoleFailsAtFirstUse(t *testing.T) {
	engine := &fakeEngine{keys: []pgp.KeyRecord{testSenderKey}}
	session := newTestSession(t, engine, testSettings())

	if _, err := session.RecipientKey(); !errors.Is(err, gerrors.ErrKeyNotConfigured) {
		t.Errorf("Expected ErrKeyNotConfigured, got: %v", err)
	}

	_, err := EncryptAndSign(context.Background(), session, EncryptOptions{})
	if !errors.Is(err, gerrors.ErrKeyNotConfigured) {
		t.Errorf("Expected encryption to fail with ErrKeyNotConfigured, got: %v", err)
	}
}

func TestEncryptAndSign(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt")
	dest := filepath.Join(dir, "report.txt.pgp")
	archiveDir := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archiveDir, 0700); err != nil {
		t.Fatalf("Failed to create archive folder: %v", err)
	}

	engine := &fakeEngine{keys: []pgp.KeyRecord{testSenderKey, testRecipientKey}}
	session := newTestSession(t, engine, testSettings())

	result, err := EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: dest,
		ArchivePath:     filepath.Join(archiveDir, "report.txt"),
	})
	if err != nil {
		t.Fatalf("EncryptAndSign failed: %v", err)
	}

	if !result.Archived {
		t.Error("Expected the source to be archived")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("Expected encrypted output at %s: %v", dest, err)
	}
	if _, err := os.Stat(source); !os.IsNotExist(err) {
		t.Error("Expected the source to be moved out of place")
	}

	if len(engine.encryptReqs) != 1 {
		t.Fatalf("Expected one engine call, got %d", len(engine.encryptReqs))
	}
	req := engine.encryptReqs[0]
	if !req.TrustOverride {
		t.Error("Expected recipient trust override to be set")
	}
	if len(req.RecipientKeys) != 1 || req.RecipientKeys[0].Email != "bob@example.com" {
		t.Errorf("Expected the recipient key only, got %+v", req.RecipientKeys)
	}
	if req.SignerKey.Email != "alice@example.com" {
		t.Errorf("Expected the sender key as signer, got %q", req.SignerKey.Email)
	}
}

// staticFetcher satisfies passphrase.SecretFetcher for wiring tests.
type staticFetcher struct{ payload string }

func (f *staticFetcher) FetchSecret(ctx context.Context, name string) (string, error) {
	return f.payload, nil
}

func TestEncryptAndSign_DeliversResolvedPassphrase(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt")

	settings := testSettings()
	settings[configs.KeyPassphraseMode] = "AWS_SECRETSMANAGER"
	settings[configs.KeySenderAWSSecretsName] = "exchange/sender"

	engine := &fakeEngine{keys: []pgp.KeyRecord{testSenderKey, testRecipientKey}}
	session, err := Initialize(context.Background(), InitOptions{
		Settings: settings,
		Engine:   engine,
		Resolver: passphrase.New(settings, passphrase.WithSecretFetcher(&staticFetcher{payload: `{"SecretPassPhrase":"hunter2"}`})),
		Logger:   logger.Logger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	_, err = EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt.pgp"),
	})
	if err != nil {
		t.Fatalf("EncryptAndSign failed: %v", err)
	}

	if len(engine.passphrases) != 1 || engine.passphrases[0] != "hunter2" {
		t.Errorf("Expected the resolved sender passphrase, got %v", engine.passphrases)
	}
}

func TestEncryptAndSign_RecipientRejected(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt")

	engine := &fakeEngine{
		keys: []pgp.KeyRecord{testSenderKey, testRecipientKey},
		encryptOutcome: &pgp.EncryptionOutcome{
			InvalidRecipients: []pgp.InvalidRecipient{{Fingerprint: "bbbb1111", Reason: "key expired"}},
		},
	}
	session := newTestSession(t, engine, testSettings())

	result, err := EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt.pgp"),
		ArchivePath:     filepath.Join(dir, "archived-report.txt"),
	})
	if !errors.Is(err, gerrors.ErrEncryptionRecipient) {
		t.Fatalf("Expected ErrEncryptionRecipient, got: %v", err)
	}
	if result == nil || len(result.InvalidRecipients) != 1 {
		t.Fatalf("Expected recipient diagnostics in the result, got %+v", result)
	}
	if result.InvalidRecipients[0].Reason != "key expired" {
		t.Errorf("Unexpected rejection reason: %q", result.InvalidRecipients[0].Reason)
	}

	// A failed operation must leave the source for the next run.
	if _, err := os.Stat(source); err != nil {
		t.Errorf("Expected source left in place: %v", err)
	}
}

func TestEncryptAndSign_EngineFailure(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt")

	engine := &fakeEngine{
		keys:       []pgp.KeyRecord{testSenderKey, testRecipientKey},
		encryptErr: errors.New("disk full"),
	}
	session := newTestSession(t, engine, testSettings())

	_, err := EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt.pgp"),
	})
	if !errors.Is(err, gerrors.ErrEncryptFailed) {
		t.Errorf("Expected ErrEncryptFailed, got: %v", err)
	}
}

func TestEncryptAndSign_ArchiveFailureIsWarning(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt")

	engine := &fakeEngine{keys: []pgp.KeyRecord{testSenderKey, testRecipientKey}}
	session := newTestSession(t, engine, testSettings())

	result, err := EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt.pgp"),
		ArchivePath:     filepath.Join(dir, "no-such-folder", "report.txt"),
	})
	if err != nil {
		t.Fatalf("Expected the operation to succeed despite the failed move, got: %v", err)
	}
	if result.Archived {
		t.Error("Expected the archival to be reported as failed")
	}
	if result.ArchiveWarning == "" {
		t.Error("Expected an archive warning")
	}
	if _, err := os.Stat(source); err != nil {
		t.Errorf("Expected source left in place after a failed move: %v", err)
	}
}

func fullSignature(fingerprint string) pgp.SignatureRecord {
	return pgp.SignatureRecord{Fingerprint: fingerprint, Valid: true, Validity: pgp.ValidityFull}
}

func TestDecryptAndVerify_AuthenticatedSender(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt.pgp")
	dest := filepath.Join(dir, "report.txt")
	archiveDir := filepath.Join(dir, "archive")
	if err := os.MkdirAll(archiveDir, 0700); err != nil {
		t.Fatalf("Failed to create archive folder: %v", err)
	}

	engine := &fakeEngine{
		keys: []pgp.KeyRecord{testSenderKey, testRecipientKey},
		decryptOutcome: &pgp.VerificationOutcome{
			Recipients: []pgp.RecipientInfo{{KeyID: "bbbb1111", Algorithm: "RSA"}},
			Signatures: []pgp.SignatureRecord{fullSignature("aaaa1111")},
		},
	}
	session := newTestSession(t, engine, testSettings())

	result, err := DecryptAndVerify(context.Background(), session, DecryptOptions{
		SourcePath:      source,
		DestinationPath: dest,
		ArchivePath:     filepath.Join(archiveDir, "report.txt.pgp"),
	})
	if err != nil {
		t.Fatalf("DecryptAndVerify failed: %v", err)
	}

	if result.MatchCount != 1 {
		t.Errorf("Expected one matching signature, got %d", result.MatchCount)
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "plaintext" {
		t.Errorf("Expected plaintext preserved at %s: %v", dest, err)
	}
	if !result.Archived {
		t.Error("Expected the inbound file to be archived")
	}
	if len(result.Recipients) != 1 || result.Recipients[0].KeyID != "bbbb1111" {
		t.Errorf("Expected decryption key diagnostics, got %+v", result.Recipients)
	}
}

func TestDecryptAndVerify_SubkeySignatureCounts(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt.pgp")
	dest := filepath.Join(dir, "report.txt")

	engine := &fakeEngine{
		keys: []pgp.KeyRecord{testSenderKey, testRecipientKey},
		decryptOutcome: &pgp.VerificationOutcome{
			Signatures: []pgp.SignatureRecord{fullSignature("aaaa2222")},
		},
	}
	session := newTestSession(t, engine, testSettings())

	result, err := DecryptAndVerify(context.Background(), session, DecryptOptions{
		SourcePath:      source,
		DestinationPath: dest,
	})
	if err != nil {
		t.Fatalf("Expected the first subkey signature to authenticate, got: %v", err)
	}
	if result.MatchCount != 1 {
		t.Errorf("Expected one matching signature, got %d", result.MatchCount)
	}
}

func TestDecryptAndVerify_FailClosed(t *testing.T) {
	cases := []struct {
		name       string
		signatures []pgp.SignatureRecord
	}{
		{"no signatures", nil},
		{"unknown issuer", []pgp.SignatureRecord{fullSignature("")}},
		{"wrong key", []pgp.SignatureRecord{fullSignature("cccc9999")}},
		{"deep subkey not matched", []pgp.SignatureRecord{fullSignature("aaaa3333")}},
		{"invalid signature", []pgp.SignatureRecord{{Fingerprint: "aaaa1111", Valid: false, Validity: pgp.ValidityFull}}},
		{"marginal trust", []pgp.SignatureRecord{{Fingerprint: "aaaa1111", Valid: true, Validity: pgp.ValidityMarginal}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			source := writeSource(t, dir, "report.txt.pgp")
			dest := filepath.Join(dir, "report.txt")
			archiveDir := filepath.Join(dir, "archive")
			if err := os.MkdirAll(archiveDir, 0700); err != nil {
				t.Fatalf("Failed to create archive folder: %v", err)
			}

			engine := &fakeEngine{
				keys:           []pgp.KeyRecord{testSenderKey, testRecipientKey},
				decryptOutcome: &pgp.VerificationOutcome{Signatures: tc.signatures},
			}
			session := newTestSession(t, engine, testSettings())

			result, err := DecryptAndVerify(context.Background(), session, DecryptOptions{
				SourcePath:      source,
				DestinationPath: dest,
				ArchivePath:     filepath.Join(archiveDir, "report.txt.pgp"),
			})
			if !errors.Is(err, gerrors.ErrSenderAuthentication) {
				t.Fatalf("Expected ErrSenderAuthentication, got: %v", err)
			}

			// The plaintext must not survive a failed authentication.
			if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
				t.Error("Expected the unauthenticated plaintext to be deleted")
			}

			if result == nil {
				t.Fatal("Expected diagnostics in the result")
			}
			if result.MatchCount != 0 {
				t.Errorf("Expected no matches, got %d", result.MatchCount)
			}
			// The inbound file was processed and is archived either way.
			if !result.Archived {
				t.Error("Expected the inbound file to be archived despite the failure")
			}
		})
	}
}

func TestDecryptAndVerify_EngineFailure(t *testing.T) {
	dir := t.TempDir()
	source := writeSource(t, dir, "report.txt.pgp")

	engine := &fakeEngine{
		keys:       []pgp.KeyRecord{testSenderKey, testRecipientKey},
		decryptErr: errors.New("no usable key"),
	}
	session := newTestSession(t, engine, testSettings())

	_, err := DecryptAndVerify(context.Background(), session, DecryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt"),
	})
	if !errors.Is(err, gerrors.ErrDecryptFailed) {
		t.Errorf("Expected ErrDecryptFailed, got: %v", err)
	}
}

func TestWorkflows_WriteAuditTrail(t *testing.T) {
	dir := t.TempDir()
	auditDir := filepath.Join(dir, "audit")
	if err := os.MkdirAll(auditDir, 0700); err != nil {
		t.Fatalf("Failed to create audit folder: %v", err)
	}

	settings := testSettings()
	settings[configs.KeyAuditLogFolder] = auditDir

	engine := &fakeEngine{
		keys: []pgp.KeyRecord{testSenderKey, testRecipientKey},
		decryptOutcome: &pgp.VerificationOutcome{
			Signatures: []pgp.SignatureRecord{fullSignature("aaaa1111")},
		},
	}
	session := newTestSession(t, engine, settings)

	source := writeSource(t, dir, "report.txt")
	if _, err := EncryptAndSign(context.Background(), session, EncryptOptions{
		SourcePath:      source,
		DestinationPath: filepath.Join(dir, "report.txt.pgp"),
	}); err != nil {
		t.Fatalf("EncryptAndSign failed: %v", err)
	}

	if _, err := DecryptAndVerify(context.Background(), session, DecryptOptions{
		SourcePath:      filepath.Join(dir, "report.txt.pgp"),
		DestinationPath: filepath.Join(dir, "report-out.txt"),
	}); err != nil {
		t.Fatalf("DecryptAndVerify failed: %v", err)
	}

	entries, err := audit.New(auditDir).ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Operation != "encrypt" || entries[0].Error != "" {
		t.Errorf("Unexpected encrypt entry: %+v", entries[0])
	}
	if entries[1].Operation != "decrypt" || !entries[1].Authenticated || entries[1].MatchCount != 1 {
		t.Errorf("Unexpected decrypt entry: %+v", entries[1])
	}
}
