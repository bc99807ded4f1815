package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"coop-payments/pkg/apperror"

	"golang.org/x/crypto/scrypt"
)

// Key derivation parameters. The salt is fixed so a master secret always
// derives the same key.
const (
	vaultSalt   = "coop-payments/credential-vault/v1"
	scryptN     = 32768
	scryptR     = 8
	scryptP     = 1
	vaultKeyLen = 32
)

var errNoMasterSecret = errors.New("master secret is not configured")

// ScryptVault implements ports.CredentialVault with an scrypt-derived
// AES-256-GCM key. Envelopes are hex(nonce) + ":" + hex(ciphertext||tag).
type ScryptVault struct {
	aead cipher.AEAD
	err  error // set when no usable key could be derived
}

// NewScryptVault derives the vault key from masterSecret. An empty secret
// yields a vault whose every operation fails with a vault error.
func NewScryptVault(masterSecret string) *ScryptVault {
	if masterSecret == "" {
		return &ScryptVault{err: errNoMasterSecret}
	}

	key, err := scrypt.Key([]byte(masterSecret), []byte(vaultSalt), scryptN, scryptR, scryptP, vaultKeyLen)
	if err != nil {
		return &ScryptVault{err: fmt.Errorf("deriving key: %w", err)}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return &ScryptVault{err: fmt.Errorf("creating cipher: %w", err)}
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return &ScryptVault{err: fmt.Errorf("creating GCM: %w", err)}
	}

	return &ScryptVault{aead: aead}
}

// Encrypt seals plaintext under a fresh random nonce.
func (v *ScryptVault) Encrypt(plaintext string) (string, error) {
	if v.err != nil {
		return "", apperror.ErrEncryption(v.err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", apperror.ErrEncryption(fmt.Errorf("generating nonce: %w", err))
	}

	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed), nil
}

// Decrypt opens an envelope produced by Encrypt.
func (v *ScryptVault) Decrypt(envelope string) (string, error) {
	if v.err != nil {
		return "", apperror.ErrDecryption(v.err)
	}

	nonceHex, cipherHex, ok := strings.Cut(envelope, ":")
	if !ok {
		return "", apperror.ErrDecryption(errors.New("malformed envelope"))
	}

	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return "", apperror.ErrDecryption(errors.New("invalid nonce encoding"))
	}
	if len(nonce) != v.aead.NonceSize() {
		return "", apperror.ErrDecryption(errors.New("invalid nonce length"))
	}

	sealed, err := hex.DecodeString(cipherHex)
	if err != nil {
		return "", apperror.ErrDecryption(errors.New("invalid ciphertext encoding"))
	}

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", apperror.ErrDecryption(fmt.Errorf("opening envelope: %w", err))
	}

	return string(plaintext), nil
}
