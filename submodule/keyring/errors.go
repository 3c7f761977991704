package keyring

import (
	"fmt"

	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/signer"
	"github.com/Pollum-io/sysweb3/submodule/vault"
)

var (
	ErrInvalidCredentials  = vault.ErrInvalidCredentials
	ErrInvalidPasswordType = vault.ErrInvalidPasswordType
	ErrPersistence         = vault.ErrPersistence
	ErrCodec               = codec.ErrCodec
	ErrSigning             = signer.ErrSigning
	ErrNetworkMismatch     = signer.ErrNetworkMismatch
	ErrInvalidMnemonic     = signer.ErrInvalidMnemonic

	ErrLockedWallet         = xerrors.New("wallet is locked")
	ErrNotInitialized       = xerrors.New("wallet is not initialized")
	ErrAlreadyInitialized   = xerrors.New("wallet already initialized")
	ErrActiveAccountRemoval = xerrors.New("cannot remove the active account")
	ErrAccountNotFound      = xerrors.New("account not found")
	ErrUnknownNetwork       = xerrors.New("unknown network")
	ErrInvalidNetwork       = xerrors.New("invalid network")
	ErrActiveNetworkRemoval = xerrors.New("cannot remove the active network")
	ErrChainQuery           = xerrors.New("chain query failed")
)

// ChainQueryError reports a refresh that left cached chain data stale, the
// indexer failed or its answer could not be stored. It is returned next to a
// valid result.
type ChainQueryError struct {
	Op      string
	Network types.Network
	Err     error
}

func (e *ChainQueryError) Error() string {
	return fmt.Sprintf("%s: %s on %s: %s", ErrChainQuery, e.Op, e.Network, e.Err)
}

func (e *ChainQueryError) Unwrap() error {
	return e.Err
}

func (e *ChainQueryError) Is(target error) bool {
	return target == ErrChainQuery
}

// IsChainQuery is true for errors that leave state intact with stale chain
// data.
func IsChainQuery(err error) bool {
	return xerrors.Is(err, ErrChainQuery)
}
