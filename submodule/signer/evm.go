package signer

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/address"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/indexer"
)

const bip44Purpose = 44

// EVM signs for every ethereum style network with the keys at
// m/44'/60'/0'/0/index.
type EVM struct {
	*seedKeeper

	netLk   sync.RWMutex
	network types.Network

	sealer  Sealer
	indexer indexer.EVMIndexer
}

var _ Signer = (*EVM)(nil)

func NewEVM(seed []byte, network types.Network, sealer Sealer, idx indexer.EVMIndexer) (*EVM, error) {
	if network.ChainFamily != types.Ethereum {
		return nil, ErrFamilyMismatch
	}

	sk, err := newSeedKeeper(seed)
	if err != nil {
		return nil, err
	}

	return &EVM{
		seedKeeper: sk,
		network:    network,
		sealer:     sealer,
		indexer:    idx,
	}, nil
}

func (e *EVM) Family() types.ChainFamily {
	return types.Ethereum
}

func (e *EVM) Network() types.Network {
	e.netLk.RLock()
	defer e.netLk.RUnlock()
	return e.network
}

func (e *EVM) SetNetwork(n types.Network) error {
	if n.ChainFamily != types.Ethereum {
		return ErrFamilyMismatch
	}
	e.netLk.Lock()
	e.network = n
	e.netLk.Unlock()
	return nil
}

func indexKey(seed []byte, index uint32) (*hdkeychain.ExtendedKey, error) {
	if index >= hdkeychain.HardenedKeyStart {
		return nil, xerrors.Errorf("account index %d out of range", index)
	}

	// version bytes only matter for the xpub string
	k, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, err
	}

	path := []uint32{
		hdkeychain.HardenedKeyStart + bip44Purpose,
		hdkeychain.HardenedKeyStart + address.EthereumCoinType,
		hdkeychain.HardenedKeyStart,
		0,
		index,
	}
	for _, i := range path {
		child, err := k.Child(i)
		k.Zero()
		if err != nil {
			return nil, err
		}
		k = child
	}
	return k, nil
}

func (e *EVM) DeriveAccount(index uint32) (*types.AccountMaterial, error) {
	var am *types.AccountMaterial
	err := e.useSeed(func(seed []byte) error {
		k, err := indexKey(seed, index)
		if err != nil {
			return err
		}
		defer k.Zero()

		pub, err := k.Neuter()
		if err != nil {
			return err
		}
		xpub := pub.String()

		priv, err := k.ECPrivKey()
		if err != nil {
			return err
		}
		sk := priv.ToECDSA()
		defer sk.D.SetInt64(0)

		skb := crypto.FromECDSA(sk)
		sealed, err := e.sealer.Seal(hexutil.Encode(skb))
		zero(skb)
		if err != nil {
			return err
		}

		am = &types.AccountMaterial{
			Xpub:                xpub,
			Address:             crypto.PubkeyToAddress(sk.PublicKey).Hex(),
			EncryptedPrivateKey: sealed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return am, nil
}

func (e *EVM) DeriveNext() (uint32, *types.AccountMaterial, error) {
	return e.deriveNext(e.DeriveAccount)
}

// PrivateKey returns the 0x prefixed hex private key.
func (e *EVM) PrivateKey(acct *types.Account) (string, error) {
	if e.closed() {
		return "", ErrClosed
	}
	if acct.Family != types.Ethereum {
		return "", ErrFamilyMismatch
	}
	return e.sealer.Open(acct.EncryptedPrivateKey)
}

func (e *EVM) AccountInfo(ctx context.Context, acct *types.Account) (*types.AccountInfo, error) {
	if e.indexer == nil {
		return nil, xerrors.New("no evm indexer")
	}
	n := e.Network()
	return e.indexer.AddressInfo(ctx, n.URL, acct.Address)
}

// Probe checks the endpoint serves the network's chain id.
func (e *EVM) Probe(ctx context.Context) error {
	if e.indexer == nil {
		return xerrors.New("no evm indexer")
	}

	n := e.Network()
	id, err := e.indexer.ChainID(ctx, n.URL)
	if err != nil {
		return err
	}
	if id != n.ChainID {
		return xerrors.Errorf("%s reports chain id %d, want %d: %w", n.URL, id, n.ChainID, ErrNetworkMismatch)
	}
	return nil
}

func (e *EVM) useKey(acct *types.Account, f func(k *hdkeychain.ExtendedKey) error) error {
	if acct == nil || acct.Family != types.Ethereum {
		return signingError("not an ethereum account")
	}

	err := e.useSeed(func(seed []byte) error {
		k, err := indexKey(seed, acct.ID)
		if err != nil {
			return signingError("derive account %d: %s", acct.ID, err)
		}
		defer k.Zero()

		pk, err := k.ECPubKey()
		if err != nil {
			return signingError("%s", err)
		}
		if !strings.EqualFold(crypto.PubkeyToAddress(*pk.ToECDSA()).Hex(), acct.Address) {
			return signingError("account %d is not derived from this wallet", acct.ID)
		}

		return f(k)
	})
	if xerrors.Is(err, ErrClosed) {
		return signingError("%s", err)
	}
	return err
}

// SignMessage is an EIP-191 personal signature, hex encoded with v in {27,28}.
func (e *EVM) SignMessage(acct *types.Account, msg []byte) (string, error) {
	var res string
	err := e.useKey(acct, func(k *hdkeychain.ExtendedKey) error {
		priv, err := k.ECPrivKey()
		if err != nil {
			return signingError("%s", err)
		}
		sk := priv.ToECDSA()
		defer sk.D.SetInt64(0)

		sig, err := crypto.Sign(accounts.TextHash(msg), sk)
		if err != nil {
			return signingError("%s", err)
		}
		sig[crypto.RecoveryIDOffset] += 27
		res = hexutil.Encode(sig)
		return nil
	})
	return res, err
}

// SignTransaction takes a binary encoded unsigned transaction and returns
// the signed one in the same encoding.
func (e *EVM) SignTransaction(ctx context.Context, acct *types.Account, payload []byte, opts SignOptions) ([]byte, error) {
	tx := new(ethtypes.Transaction)
	err := tx.UnmarshalBinary(payload)
	if err != nil {
		return nil, signingError("decode transaction: %s", err)
	}

	n := e.Network()
	chainID := new(big.Int).SetUint64(n.ChainID)
	if tx.Type() != ethtypes.LegacyTxType && tx.ChainId().Cmp(chainID) != 0 {
		return nil, signingError("transaction chain id %s, active network is %d", tx.ChainId(), n.ChainID)
	}

	var raw []byte
	err = e.useKey(acct, func(k *hdkeychain.ExtendedKey) error {
		priv, err := k.ECPrivKey()
		if err != nil {
			return signingError("%s", err)
		}
		sk := priv.ToECDSA()
		defer sk.D.SetInt64(0)

		stx, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(chainID), sk)
		if err != nil {
			return signingError("%s", err)
		}
		raw, err = stx.MarshalBinary()
		if err != nil {
			return signingError("%s", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (e *EVM) Close() {
	e.seedKeeper.Close()
}
