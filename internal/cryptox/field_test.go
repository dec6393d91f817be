package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newCipher(t *testing.T) *FieldCipher {
	t.Helper()
	c, err := NewFieldCipher(testSecret)
	require.NoError(t, err)
	return c
}

func TestNewFieldCipher_ShortSecret(t *testing.T) {
	_, err := NewFieldCipher("too-short")
	assert.Error(t, err)
}

func TestEncryptDecrypt(t *testing.T) {
	c := newCipher(t)

	enc, err := c.Encrypt("buyer@example.com")
	require.NoError(t, err)
	assert.NotContains(t, enc, "buyer")

	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", dec)
}

func TestEncrypt_FreshNonce(t *testing.T) {
	c := newCipher(t)

	a, err := c.Encrypt("cus_123")
	require.NoError(t, err)
	b, err := c.Encrypt("cus_123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestEncrypt_Empty(t *testing.T) {
	c := newCipher(t)

	enc, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, enc)

	dec, err := c.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, dec)
}

func TestDecrypt_Tampered(t *testing.T) {
	c := newCipher(t)

	enc, err := c.Encrypt("secret")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(enc)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xff

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString(raw))
	assert.Error(t, err)
}

func TestDecrypt_Malformed(t *testing.T) {
	c := newCipher(t)

	_, err := c.Decrypt("!!not-base64!!")
	assert.ErrorIs(t, err, ErrMalformedCiphertext)

	_, err = c.Decrypt(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
}

func TestDecrypt_OtherKey(t *testing.T) {
	a := newCipher(t)
	b, err := NewFieldCipher("fedcba9876543210fedcba9876543210")
	require.NoError(t, err)

	enc, err := a.Encrypt("value")
	require.NoError(t, err)

	_, err = b.Decrypt(enc)
	assert.Error(t, err)
}

func TestHashEmail_Normalized(t *testing.T) {
	c := newCipher(t)

	h1 := c.HashEmail("Buyer@Example.com ")
	h2 := c.HashEmail("buyer@example.com")
	h3 := c.HashEmail("other@example.com")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 64)
}
