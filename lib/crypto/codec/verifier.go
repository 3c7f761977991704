package codec

import (
	"crypto/subtle"

	"golang.org/x/crypto/scrypt"
	"lukechampine.com/frand"
)

// Verifier is the persisted password check. It holds a salted scrypt hash,
// never the password.
type Verifier struct {
	Salt []byte `cbor:"1,keyasint"`
	Hash []byte `cbor:"2,keyasint"`
	N    int    `cbor:"3,keyasint"`
	P    int    `cbor:"4,keyasint"`
}

func (c *Codec) NewVerifier(password []byte) (*Verifier, error) {
	if len(password) == 0 {
		return nil, ErrCodec
	}

	salt := frand.Bytes(32)
	hash, err := scrypt.Key(password, salt, c.scryptN, scryptR, c.scryptP, scryptDKLen)
	if err != nil {
		return nil, ErrCodec
	}

	return &Verifier{
		Salt: salt,
		Hash: hash,
		N:    c.scryptN,
		P:    c.scryptP,
	}, nil
}

// Check always runs the full KDF, whatever the input, and compares in
// constant time.
func (v *Verifier) Check(password string) bool {
	if v == nil || len(v.Hash) != scryptDKLen || v.N <= 1 || v.N > maxScryptN || v.P <= 0 || v.P > 16 {
		return false
	}

	hash, err := scrypt.Key([]byte(password), v.Salt, v.N, scryptR, v.P, scryptDKLen)
	if err != nil {
		return false
	}
	defer zero(hash)

	ok := subtle.ConstantTimeCompare(hash, v.Hash) == 1
	return ok && password != ""
}
