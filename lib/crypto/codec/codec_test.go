package codec

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	c := Light()

	msgs := []string{
		"",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		`{"wallet":{"accounts":{}}}`,
		"ünïcødé ✓",
		strings.Repeat("x", 4096),
	}

	for _, m := range msgs {
		ct, err := c.Encrypt(m, "correct-horse")
		require.NoError(t, err)

		pt, err := c.Decrypt(ct, "correct-horse")
		require.NoError(t, err)
		require.Equal(t, m, pt)
	}
}

func TestNonDeterministic(t *testing.T) {
	c := Light()

	a, err := c.Encrypt("same", "pw")
	require.NoError(t, err)
	b, err := c.Encrypt("same", "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestGenericErrors(t *testing.T) {
	c := Light()

	_, err := c.Encrypt("data", "")
	assert.Equal(t, ErrCodec, err)

	_, err = c.Encrypt(string([]byte{0xff, 0xfe}), "pw")
	assert.Equal(t, ErrCodec, err)

	ct, err := c.Encrypt("data", "pw")
	require.NoError(t, err)

	_, err = c.Decrypt(ct, "wrong")
	assert.Equal(t, ErrCodec, err)

	_, err = c.Decrypt("not json", "pw")
	assert.Equal(t, ErrCodec, err)

	_, err = c.Decrypt(ct, "")
	assert.Equal(t, ErrCodec, err)

	// flip the mac
	env := new(envelopeJSON)
	require.NoError(t, json.Unmarshal([]byte(ct), env))
	env.Crypto.MAC = strings.Repeat("00", 32)
	tampered, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = c.Decrypt(string(tampered), "pw")
	assert.Equal(t, ErrCodec, err)

	// absurd kdf parameters are refused before running scrypt
	env.Crypto.KDFParams.N = 1 << 30
	tampered, err = json.Marshal(env)
	require.NoError(t, err)

	_, err = c.Decrypt(string(tampered), "pw")
	assert.Equal(t, ErrCodec, err)
}

func TestBytesRoundTrip(t *testing.T) {
	c := Light()
	pw := []byte("correct-horse")

	ct, err := c.EncryptBytes([]byte("seed words"), pw)
	require.NoError(t, err)
	require.Equal(t, []byte("correct-horse"), pw)

	// both forms read the same envelope
	plain, err := c.DecryptBytes(ct, pw)
	require.NoError(t, err)
	require.Equal(t, []byte("seed words"), plain)

	pt, err := c.Decrypt(ct, "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "seed words", pt)

	_, err = c.DecryptBytes(ct, []byte("wrong"))
	assert.Equal(t, ErrCodec, err)
	_, err = c.DecryptBytes(ct, nil)
	assert.Equal(t, ErrCodec, err)
	_, err = c.EncryptBytes([]byte("seed"), nil)
	assert.Equal(t, ErrCodec, err)
}

func TestDecryptWithOtherStrength(t *testing.T) {
	ct, err := New(1<<10, 1).Encrypt("seed", "pw")
	require.NoError(t, err)

	// parameters travel with the envelope
	pt, err := Light().Decrypt(ct, "pw")
	require.NoError(t, err)
	require.Equal(t, "seed", pt)
}

func TestVerifier(t *testing.T) {
	c := Light()

	v, err := c.NewVerifier([]byte("correct-horse"))
	require.NoError(t, err)

	assert.True(t, v.Check("correct-horse"))
	assert.False(t, v.Check("wrong"))
	assert.False(t, v.Check(""))

	var nilv *Verifier
	assert.False(t, nilv.Check("correct-horse"))

	_, err = c.NewVerifier(nil)
	assert.Equal(t, ErrCodec, err)
}
