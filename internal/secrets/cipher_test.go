package secrets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestAEADCipher_RoundTrip(t *testing.T) {
	cipher, err := NewAEADCipher(testKey())
	require.NoError(t, err)

	for _, plaintext := range []string{"the-token", "a", "token with spaces and ünïcode"} {
		sealed, err := cipher.Encrypt(plaintext)
		require.NoError(t, err)
		require.NotEqual(t, plaintext, sealed)

		opened, err := cipher.Decrypt(sealed)
		require.NoError(t, err)
		require.Equal(t, plaintext, opened)
	}
}

func TestAEADCipher_EmptyStringPassesThrough(t *testing.T) {
	cipher, err := NewAEADCipher(testKey())
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("")
	require.NoError(t, err)
	require.Equal(t, "", sealed)

	opened, err := cipher.Decrypt("")
	require.NoError(t, err)
	require.Equal(t, "", opened)
}

func TestAEADCipher_NoncesDiffer(t *testing.T) {
	cipher, err := NewAEADCipher(testKey())
	require.NoError(t, err)

	first, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same plaintext")
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestAEADCipher_RejectsTamperedCiphertext(t *testing.T) {
	cipher, err := NewAEADCipher(testKey())
	require.NoError(t, err)

	sealed, err := cipher.Encrypt("the-token")
	require.NoError(t, err)

	_, err = cipher.Decrypt("A" + sealed[1:])
	require.Error(t, err)
}

func TestNewAEADCipher_RejectsBadKeyLength(t *testing.T) {
	_, err := NewAEADCipher([]byte("short"))
	require.Error(t, err)
}
