package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecrypt(t *testing.T) {
	sealed, err := EncryptAESGCM(testKey, []byte(`{"accessToken":"a"}`))
	require.NoError(t, err)

	plain, err := DecryptAESGCM(testKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"accessToken":"a"}`, string(plain))
}

func TestDecryptRejectsTampering(t *testing.T) {
	sealed, err := EncryptAESGCM(testKey, []byte("secret"))
	require.NoError(t, err)

	other := strings.Repeat("ab", 32)
	_, err = DecryptAESGCM(other, sealed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = DecryptAESGCM(testKey, "AAAA")
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = DecryptAESGCM(testKey, "%%%")
	assert.ErrorIs(t, err, ErrInvalidPayloadFormat)
}

func TestKeySize(t *testing.T) {
	_, err := EncryptAESGCM("0011", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, "", Fingerprint(""))
	assert.Len(t, Fingerprint("token"), 12)
	assert.Equal(t, Fingerprint("token"), Fingerprint("token"))
}
