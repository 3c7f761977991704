package signer

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
	"golang.org/x/xerrors"
)

var ErrInvalidMnemonic = xerrors.New("invalid mnemonic")

// NewMnemonic returns a fresh 12 word english phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}

func ValidateMnemonic(phrase string) bool {
	return bip39.IsMnemonicValid(NormalizeMnemonic(phrase))
}

// SeedFromMnemonic checks the phrase checksum and expands it into a seed.
func SeedFromMnemonic(phrase string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(NormalizeMnemonic(phrase), "")
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", err, ErrInvalidMnemonic)
	}
	return seed, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
