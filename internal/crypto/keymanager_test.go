package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptKeyRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "hunter3")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptKeyRejectsTamperedCiphertext(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	var stored keyFile
	require.NoError(t, json.Unmarshal(blob, &stored))
	stored.Ciphertext = stored.Ciphertext[1:] + "A"
	tampered, err := json.Marshal(stored)
	require.NoError(t, err)

	_, err = DecryptKey(tampered, "hunter2")
	require.Error(t, err)
}

func TestDecryptKeyRejectsUnknownVersion(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	var stored keyFile
	require.NoError(t, json.Unmarshal(blob, &stored))
	stored.Version = 99
	bumped, err := json.Marshal(stored)
	require.NoError(t, err)

	_, err = DecryptKey(bumped, "hunter2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported key file version")
}

func TestEncryptKeyValidation(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	require.Error(t, err)

	_, err = EncryptKey("zz", "hunter2")
	require.Error(t, err)

	// 16 bytes, not a full private key.
	_, err = EncryptKey(testKeyHex[:32], "hunter2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "32-byte key")
}

func TestLoadKeyRawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{
		RawPrivateKey:    "0x" + testKeyHex,
		EncryptedKeyPath: "/nonexistent/key.json",
	})
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestLoadKeyRejectsBadHex(t *testing.T) {
	_, err := LoadKey(KeyConfig{RawPrivateKey: "0xnothex"})
	require.Error(t, err)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no private key source")
}
