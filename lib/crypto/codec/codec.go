package codec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"golang.org/x/crypto/scrypt"
	"lukechampine.com/frand"
)

const (
	// StandardScryptN is the N parameter of Scrypt encryption algorithm, using 256MB
	// memory and taking approximately 1s CPU time on a modern processor.
	StandardScryptN = 1 << 18

	// StandardScryptP is the P parameter of Scrypt encryption algorithm, using 256MB
	// memory and taking approximately 1s CPU time on a modern processor.
	StandardScryptP = 1

	// LightScryptN is the N parameter of Scrypt encryption algorithm, using 4MB
	// memory and taking approximately 100ms CPU time on a modern processor.
	LightScryptN = 1 << 12

	// LightScryptP is the P parameter of Scrypt encryption algorithm, using 4MB
	// memory and taking approximately 100ms CPU time on a modern processor.
	LightScryptP = 6

	scryptR     = 8
	scryptDKLen = 32

	// upper bound accepted when reading parameters back from an envelope
	maxScryptN = 1 << 20

	keyHeaderKDF  = "scrypt"
	cipherName    = "aes-128-ctr"
	latestVersion = 3
)

// ErrCodec is the only error Encrypt and Decrypt return. It never says
// which check failed.
var ErrCodec = errors.New("could not encrypt or decrypt with given password")

type cipherparamsJSON struct {
	IV string `json:"iv"`
}

type kdfparamsJSON struct {
	N     int    `json:"n"`
	R     int    `json:"r"`
	P     int    `json:"p"`
	DKLen int    `json:"dklen"`
	Salt  string `json:"salt"`
}

type cryptoJSON struct {
	Cipher       string           `json:"cipher"`
	CipherText   string           `json:"ciphertext"`
	CipherParams cipherparamsJSON `json:"cipherparams"`
	KDF          string           `json:"kdf"`
	KDFParams    kdfparamsJSON    `json:"kdfparams"`
	MAC          string           `json:"mac"`
}

type envelopeJSON struct {
	Crypto  cryptoJSON `json:"crypto"`
	Id      string     `json:"id"`
	Version int        `json:"version"`
}

// Codec encrypts text under a password. The zero value is not usable, use
// New, Standard or Light.
type Codec struct {
	scryptN int
	scryptP int
}

func New(scryptN, scryptP int) *Codec {
	return &Codec{scryptN: scryptN, scryptP: scryptP}
}

// Standard is the strength used for persisted vaults.
func Standard() *Codec {
	return New(StandardScryptN, StandardScryptP)
}

// Light trades strength for speed.
func Light() *Codec {
	return New(LightScryptN, LightScryptP)
}

func (c *Codec) ScryptN() int {
	return c.scryptN
}

func (c *Codec) ScryptP() int {
	return c.scryptP
}

// Encrypt returns a JSON envelope; two calls on the same input differ.
func (c *Codec) Encrypt(plaintext, password string) (string, error) {
	return c.EncryptBytes([]byte(plaintext), []byte(password))
}

// EncryptBytes is Encrypt on caller owned buffers. Neither is retained.
func (c *Codec) EncryptBytes(plaintext, password []byte) (string, error) {
	if len(password) == 0 || !utf8.Valid(plaintext) {
		return "", ErrCodec
	}

	salt := frand.Bytes(32)
	derivedKey, err := scrypt.Key(password, salt, c.scryptN, scryptR, c.scryptP, scryptDKLen)
	if err != nil {
		return "", ErrCodec
	}
	defer zero(derivedKey)

	iv := frand.Bytes(aes.BlockSize)
	cipherText, err := aesCTRXOR(derivedKey[:16], plaintext, iv)
	if err != nil {
		return "", ErrCodec
	}
	mac := crypto.Keccak256(derivedKey[16:32], cipherText)

	id, err := uuid.NewRandom()
	if err != nil {
		return "", ErrCodec
	}

	env := envelopeJSON{
		Crypto: cryptoJSON{
			Cipher:     cipherName,
			CipherText: hex.EncodeToString(cipherText),
			CipherParams: cipherparamsJSON{
				IV: hex.EncodeToString(iv),
			},
			KDF: keyHeaderKDF,
			KDFParams: kdfparamsJSON{
				N:     c.scryptN,
				R:     scryptR,
				P:     c.scryptP,
				DKLen: scryptDKLen,
				Salt:  hex.EncodeToString(salt),
			},
			MAC: hex.EncodeToString(mac),
		},
		Id:      id.String(),
		Version: latestVersion,
	}

	out, err := json.Marshal(env)
	if err != nil {
		return "", ErrCodec
	}
	return string(out), nil
}

// Decrypt reverses Encrypt. A wrong password and a corrupt envelope are
// indistinguishable to the caller.
func (c *Codec) Decrypt(ciphertext, password string) (string, error) {
	plain, err := c.DecryptBytes(ciphertext, []byte(password))
	if err != nil {
		return "", err
	}
	defer zero(plain)
	return string(plain), nil
}

// DecryptBytes is Decrypt returning a buffer the caller should wipe.
func (c *Codec) DecryptBytes(ciphertext string, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrCodec
	}

	env := new(envelopeJSON)
	if err := json.Unmarshal([]byte(ciphertext), env); err != nil {
		return nil, ErrCodec
	}

	plain, err := decryptV3(env, password)
	if err != nil {
		return nil, ErrCodec
	}
	return plain, nil
}

func decryptV3(env *envelopeJSON, password []byte) ([]byte, error) {
	cj := env.Crypto
	if env.Version != latestVersion || cj.Cipher != cipherName || cj.KDF != keyHeaderKDF {
		return nil, ErrCodec
	}

	kp := cj.KDFParams
	if kp.N <= 1 || kp.N > maxScryptN || kp.R != scryptR || kp.P <= 0 || kp.P > 16 || kp.DKLen != scryptDKLen {
		return nil, ErrCodec
	}

	mac, err := hex.DecodeString(cj.MAC)
	if err != nil {
		return nil, err
	}
	iv, err := hex.DecodeString(cj.CipherParams.IV)
	if err != nil {
		return nil, err
	}
	cipherText, err := hex.DecodeString(cj.CipherText)
	if err != nil {
		return nil, err
	}
	salt, err := hex.DecodeString(kp.Salt)
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, ErrCodec
	}

	derivedKey, err := scrypt.Key(password, salt, kp.N, kp.R, kp.P, kp.DKLen)
	if err != nil {
		return nil, err
	}
	defer zero(derivedKey)

	calculatedMAC := crypto.Keccak256(derivedKey[16:32], cipherText)
	if subtle.ConstantTimeCompare(calculatedMAC, mac) != 1 {
		return nil, ErrCodec
	}

	return aesCTRXOR(derivedKey[:16], cipherText, iv)
}

func aesCTRXOR(key, inText, iv []byte) ([]byte, error) {
	// AES-128 is selected due to size of encryptKey.
	aesBlock, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	stream := cipher.NewCTR(aesBlock, iv)
	outText := make([]byte, len(inText))
	stream.XORKeyStream(outText, inText)
	return outText, err
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
