package configs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "pgpgate/internal/errors"
)

func writeSettingsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write settings file: %v", err)
	}
	return path
}

func TestLoad_FlatSettingsFile(t *testing.T) {
	path := writeSettingsFile(t, `{
		"SenderEmailAddress": "alice@example.com",
		"RecipientEmailAddress": "bob@example.com",
		"PassphraseProtectionMode": "AWS_SECRETSMANAGER"
	}`)

	settings, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if settings.Get(KeySenderEmail) != "alice@example.com" {
		t.Errorf("Expected sender email, got %q", settings.Get(KeySenderEmail))
	}
	if settings.Get(KeyRecipientEmail) != "bob@example.com" {
		t.Errorf("Expected recipient email, got %q", settings.Get(KeyRecipientEmail))
	}
	if settings.Get(KeyPassphraseMode) != "AWS_SECRETSMANAGER" {
		t.Errorf("Expected protection mode, got %q", settings.Get(KeyPassphraseMode))
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.json"))
	if !errors.Is(err, gerrors.ErrSettingsNotFound) {
		t.Errorf("Expected ErrSettingsNotFound, got: %v", err)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := writeSettingsFile(t, `{"SenderEmailAddress": `)

	_, err := Load(path)
	if !errors.Is(err, gerrors.ErrSettingsNotFound) {
		t.Errorf("Expected ErrSettingsNotFound, got: %v", err)
	}
}

func TestTrimmed(t *testing.T) {
	settings := RuntimeSettings{KeySenderEmail: "  alice@example.com  "}

	if got := settings.Trimmed(KeySenderEmail); got != "alice@example.com" {
		t.Errorf("Expected trimmed value, got %q", got)
	}
	if got := settings.Get(KeySenderEmail); got != "  alice@example.com  " {
		t.Errorf("Expected raw value unchanged, got %q", got)
	}
}

func TestRequire(t *testing.T) {
	settings := RuntimeSettings{
		KeySenderEmail:    "alice@example.com",
		KeyRecipientEmail: "   ",
	}

	if err := settings.Require(KeySenderEmail); err != nil {
		t.Errorf("Expected present key to pass, got: %v", err)
	}

	err := settings.Require(KeySenderEmail, KeyRecipientEmail)
	if !errors.Is(err, gerrors.ErrMissingSetting) {
		t.Fatalf("Expected ErrMissingSetting, got: %v", err)
	}
	if !strings.Contains(err.Error(), KeyRecipientEmail) {
		t.Errorf("Expected error to name the offending key, got: %v", err)
	}

	if err := settings.Require(KeyKeyStoreFolder); !errors.Is(err, gerrors.ErrMissingSetting) {
		t.Errorf("Expected absent key to fail, got: %v", err)
	}
}
