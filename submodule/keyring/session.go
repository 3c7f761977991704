package keyring

import (
	"github.com/awnumar/memguard"

	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
)

// session owns the password of an unlocked wallet and seals key material
// with it. The password never leaves the locked buffer.
type session struct {
	password *memguard.LockedBuffer
	codec    *codec.Codec
}

func newSession(password string, c *codec.Codec) *session {
	// wipes the copy
	return &session{
		password: memguard.NewBufferFromBytes([]byte(password)),
		codec:    c,
	}
}

func (s *session) alive() bool {
	return s != nil && s.password != nil && s.password.IsAlive()
}

// with hands f the locked password bytes. f must not keep them.
func (s *session) with(f func(pw []byte) error) error {
	if !s.alive() {
		return ErrLockedWallet
	}
	return f(s.password.Bytes())
}

// clone copies the password into a new session.
func (s *session) clone() (*session, error) {
	var c *session
	err := s.with(func(pw []byte) error {
		buf := make([]byte, len(pw))
		copy(buf, pw)
		c = &session{password: memguard.NewBufferFromBytes(buf), codec: s.codec}
		return nil
	})
	return c, err
}

func (s *session) Seal(plaintext string) (string, error) {
	var ct string
	err := s.with(func(pw []byte) error {
		var err error
		ct, err = s.codec.EncryptBytes([]byte(plaintext), pw)
		return err
	})
	return ct, err
}

func (s *session) Open(ciphertext string) (string, error) {
	var pt string
	err := s.with(func(pw []byte) error {
		plain, err := s.codec.DecryptBytes(ciphertext, pw)
		if err != nil {
			return err
		}
		pt = string(plain)
		zero(plain)
		return nil
	})
	return pt, err
}

// destroy wipes the password.
func (s *session) destroy() {
	if s == nil || s.password == nil {
		return
	}
	s.password.Destroy()
}
