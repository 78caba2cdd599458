package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	ErrInvalidAESKeySize    = errors.New("invalid AES key size")
	ErrInvalidPayloadFormat = errors.New("invalid payload format, expecting base64 encoded nonce+ciphertext")
	ErrCiphertextTooShort   = errors.New("ciphertext too short, cannot extract nonce")
	ErrDecryptionFailed     = errors.New("payload decryption failed")
)

const (
	// AES-256 requires a 32-byte key.
	aes256KeyBytes = 32
	// GCM standard nonce size.
	gcmNonceSizeBytes = 12
)

func newGCM(aesKeyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(aesKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AES key from hex: %w", err)
	}
	if len(key) != aes256KeyBytes {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAESKeySize, aes256KeyBytes, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return aesgcm, nil
}

// EncryptAESGCM seals plaintext with a random nonce and returns
// base64url(nonce || ciphertext). aesKeyHex is a hex encoded 32-byte key.
func EncryptAESGCM(aesKeyHex string, plaintext []byte) (string, error) {
	aesgcm, err := newGCM(aesKeyHex)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcmNonceSizeBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptAESGCM reverses EncryptAESGCM.
func DecryptAESGCM(aesKeyHex string, payloadB64 string) ([]byte, error) {
	aesgcm, err := newGCM(aesKeyHex)
	if err != nil {
		return nil, err
	}

	sealed, err := base64.URLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadFormat, err)
	}
	if len(sealed) < gcmNonceSizeBytes {
		return nil, fmt.Errorf("%w: length %d, minimum %d", ErrCiphertextTooShort, len(sealed), gcmNonceSizeBytes)
	}

	plaintext, err := aesgcm.Open(nil, sealed[:gcmNonceSizeBytes], sealed[gcmNonceSizeBytes:], nil)
	if err != nil {
		// "cipher: message authentication failed" says nothing more than this.
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}
