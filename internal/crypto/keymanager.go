// Package crypto resolves the transaction signer's private key, either from
// a raw hex string or from a password-protected key file. Key files are
// produced by EncryptKey (exposed through the -encrypt-key command) and
// consumed by LoadKey at startup.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	// keyFileVersion is the key file JSON schema version.
	keyFileVersion = 1
)

// keyFile is the on-disk format of an encrypted signer key. All binary
// fields are standard base64.
type keyFile struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeyConfig names the private key sources LoadKey tries, in order.
type KeyConfig struct {
	// RawPrivateKey is a hex-encoded key, with or without 0x prefix. Takes
	// precedence when non-empty.
	RawPrivateKey string

	// EncryptedKeyPath points at a key file written by EncryptKey.
	EncryptedKeyPath string

	// KeyPassword decrypts the file at EncryptedKeyPath.
	KeyPassword string
}

// LoadKey resolves the signer key and returns it hex-encoded without the 0x
// prefix. It fails when no source is configured.
func LoadKey(cfg KeyConfig) (string, error) {
	if cfg.RawPrivateKey != "" {
		k := strings.TrimPrefix(cfg.RawPrivateKey, "0x")
		if _, err := hex.DecodeString(k); err != nil {
			return "", fmt.Errorf("crypto: private key is not valid hex: %w", err)
		}
		return k, nil
	}

	if cfg.EncryptedKeyPath != "" {
		data, err := os.ReadFile(cfg.EncryptedKeyPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading key file: %w", err)
		}
		return DecryptKey(data, cfg.KeyPassword)
	}

	return "", errors.New("crypto: no private key source configured (set private_key or encrypted_key_path)")
}

// EncryptKey seals a hex-encoded private key under a password and returns
// the key file JSON. PBKDF2-HMAC-SHA256 derives the AES-256 key; AES-GCM
// authenticates the ciphertext.
func EncryptKey(privateKeyHex, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}
	keyBytes, err := hex.DecodeString(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte key, got %d bytes", len(keyBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}
	gcm, err := aeadForPassword(password, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	out := keyFile{
		Version:    keyFileVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(gcm.Seal(nil, nonce, keyBytes, nil)),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptKey opens a key file produced by EncryptKey, returning the
// hex-encoded private key without the 0x prefix.
func DecryptKey(data []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	var stored keyFile
	if err := json.Unmarshal(data, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing key file: %w", err)
	}
	if stored.Version != keyFileVersion {
		return "", fmt.Errorf("crypto: unsupported key file version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	gcm, err := aeadForPassword(password, salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// aeadForPassword derives the AES-256-GCM cipher both seal and open use.
func aeadForPassword(password string, salt []byte) (cipher.AEAD, error) {
	derived := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}
	return gcm, nil
}
