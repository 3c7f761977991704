package signer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"sync"

	"github.com/btcsuite/btcd/btcec"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/hdkeychain"
	"github.com/btcsuite/btcutil/psbt"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/address"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/indexer"
)

const (
	bip84Purpose = 84

	externalBranch = 0
	internalBranch = 1

	// addresses per branch scanned when matching psbt inputs
	gapLimit = 20

	syscoinMessageMagic = "Syscoin Signed Message:\n"
)

var ErrNetworkMismatch = xerrors.New("endpoint serves a different network")

// UTXO is the Syscoin signer: BIP84 accounts m/84'/coin'/index', the
// receiving address is the native segwit address of branch 0, index 0.
type UTXO struct {
	*seedKeeper

	netLk   sync.RWMutex
	network types.Network
	params  *chaincfg.Params

	sealer  Sealer
	indexer indexer.UTXOIndexer
}

var _ Signer = (*UTXO)(nil)

func NewUTXO(seed []byte, network types.Network, sealer Sealer, idx indexer.UTXOIndexer) (*UTXO, error) {
	if network.ChainFamily != types.Syscoin {
		return nil, ErrFamilyMismatch
	}

	sk, err := newSeedKeeper(seed)
	if err != nil {
		return nil, err
	}

	return &UTXO{
		seedKeeper: sk,
		network:    network,
		params:     address.SyscoinParams(network.IsTestnet),
		sealer:     sealer,
		indexer:    idx,
	}, nil
}

func (u *UTXO) Family() types.ChainFamily {
	return types.Syscoin
}

func (u *UTXO) Network() types.Network {
	u.netLk.RLock()
	defer u.netLk.RUnlock()
	return u.network
}

func (u *UTXO) chainParams() *chaincfg.Params {
	u.netLk.RLock()
	defer u.netLk.RUnlock()
	return u.params
}

func (u *UTXO) SetNetwork(n types.Network) error {
	if n.ChainFamily != types.Syscoin {
		return ErrFamilyMismatch
	}

	u.netLk.Lock()
	u.network = n
	u.params = address.SyscoinParams(n.IsTestnet)
	u.netLk.Unlock()
	return nil
}

func accountKey(seed []byte, params *chaincfg.Params, index uint32) (*hdkeychain.ExtendedKey, error) {
	if index >= hdkeychain.HardenedKeyStart {
		return nil, xerrors.Errorf("account index %d out of range", index)
	}

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	purpose, err := master.Child(hdkeychain.HardenedKeyStart + bip84Purpose)
	if err != nil {
		return nil, err
	}
	defer purpose.Zero()

	coin, err := purpose.Child(hdkeychain.HardenedKeyStart + params.HDCoinType)
	if err != nil {
		return nil, err
	}
	defer coin.Zero()

	return coin.Child(hdkeychain.HardenedKeyStart + index)
}

func addressKey(acct *hdkeychain.ExtendedKey, branch, index uint32) (*hdkeychain.ExtendedKey, error) {
	bk, err := acct.Child(branch)
	if err != nil {
		return nil, err
	}
	defer bk.Zero()

	return bk.Child(index)
}

func witnessAddress(pub *btcec.PublicKey, params *chaincfg.Params) (*btcutil.AddressWitnessPubKeyHash, error) {
	return btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(pub.SerializeCompressed()), params)
}

func (u *UTXO) DeriveAccount(index uint32) (*types.AccountMaterial, error) {
	params := u.chainParams()

	var am *types.AccountMaterial
	err := u.useSeed(func(seed []byte) error {
		ak, err := accountKey(seed, params, index)
		if err != nil {
			return err
		}
		defer ak.Zero()

		// neutered keys share the chain code, serialize before zeroing
		pub, err := ak.Neuter()
		if err != nil {
			return err
		}
		xpub := pub.String()

		rk, err := addressKey(ak, externalBranch, 0)
		if err != nil {
			return err
		}
		defer rk.Zero()

		pk, err := rk.ECPubKey()
		if err != nil {
			return err
		}
		addr, err := witnessAddress(pk, params)
		if err != nil {
			return err
		}

		sealed, err := u.sealer.Seal(ak.String())
		if err != nil {
			return err
		}

		am = &types.AccountMaterial{
			Xpub:                xpub,
			Address:             addr.EncodeAddress(),
			EncryptedPrivateKey: sealed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return am, nil
}

func (u *UTXO) DeriveNext() (uint32, *types.AccountMaterial, error) {
	return u.deriveNext(u.DeriveAccount)
}

// PrivateKey returns the account extended private key.
func (u *UTXO) PrivateKey(acct *types.Account) (string, error) {
	if u.closed() {
		return "", ErrClosed
	}
	if acct.Family != types.Syscoin {
		return "", ErrFamilyMismatch
	}
	return u.sealer.Open(acct.EncryptedPrivateKey)
}

func (u *UTXO) AccountInfo(ctx context.Context, acct *types.Account) (*types.AccountInfo, error) {
	if u.indexer == nil {
		return nil, xerrors.New("no utxo indexer")
	}
	n := u.Network()
	return u.indexer.XpubInfo(ctx, n.URL, acct.Xpub)
}

// Probe checks the endpoint answers and serves the expected chain class.
func (u *UTXO) Probe(ctx context.Context) error {
	if u.indexer == nil {
		return xerrors.New("no utxo indexer")
	}

	n := u.Network()
	bi, err := u.indexer.BackendInfo(ctx, n.URL)
	if err != nil {
		return err
	}
	if bi.Testnet != n.IsTestnet {
		return xerrors.Errorf("%s reports chain %q: %w", n.URL, bi.Chain, ErrNetworkMismatch)
	}
	return nil
}

// ownedAccountKey derives the account key and checks it matches acct.
func (u *UTXO) ownedAccountKey(seed []byte, acct *types.Account) (*hdkeychain.ExtendedKey, *chaincfg.Params, error) {
	if acct == nil || acct.Family != types.Syscoin {
		return nil, nil, signingError("not a syscoin account")
	}

	params := u.chainParams()
	ak, err := accountKey(seed, params, acct.ID)
	if err != nil {
		return nil, nil, signingError("derive account %d: %s", acct.ID, err)
	}

	pub, err := ak.Neuter()
	if err != nil {
		ak.Zero()
		return nil, nil, signingError("derive account %d: %s", acct.ID, err)
	}
	if pub.String() != acct.Xpub {
		ak.Zero()
		return nil, nil, signingError("account %d is not derived from this wallet on %s", acct.ID, u.Network().Label)
	}

	return ak, params, nil
}

func (u *UTXO) SignMessage(acct *types.Account, msg []byte) (string, error) {
	var res string
	err := u.useSeed(func(seed []byte) error {
		ak, _, err := u.ownedAccountKey(seed, acct)
		if err != nil {
			return err
		}
		defer ak.Zero()

		rk, err := addressKey(ak, externalBranch, 0)
		if err != nil {
			return signingError("%s", err)
		}
		defer rk.Zero()

		priv, err := rk.ECPrivKey()
		if err != nil {
			return signingError("%s", err)
		}
		defer priv.D.SetInt64(0)

		var buf bytes.Buffer
		wire.WriteVarString(&buf, 0, syscoinMessageMagic)
		wire.WriteVarString(&buf, 0, string(msg))
		digest := chainhash.DoubleHashB(buf.Bytes())

		sig, err := btcec.SignCompact(btcec.S256(), priv, digest, true)
		if err != nil {
			return signingError("%s", err)
		}
		res = base64.StdEncoding.EncodeToString(sig)
		return nil
	})
	if xerrors.Is(err, ErrClosed) {
		return "", signingError("%s", err)
	}
	return res, err
}

// VerifyMessage checks a base64 compact signature against a segwit address.
func VerifyMessage(addr string, msg []byte, sig string, params *chaincfg.Params) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false, err
	}

	var buf bytes.Buffer
	wire.WriteVarString(&buf, 0, syscoinMessageMagic)
	wire.WriteVarString(&buf, 0, string(msg))
	digest := chainhash.DoubleHashB(buf.Bytes())

	pub, _, err := btcec.RecoverCompact(btcec.S256(), raw, digest)
	if err != nil {
		return false, err
	}
	wa, err := witnessAddress(pub, params)
	if err != nil {
		return false, err
	}
	return wa.EncodeAddress() == addr, nil
}

// SignTransaction signs every P2WPKH input of a base64 psbt that pays from
// the account. The result is the updated psbt in base64, or the raw
// transaction hex when opts.Extract is set.
func (u *UTXO) SignTransaction(ctx context.Context, acct *types.Account, payload []byte, opts SignOptions) ([]byte, error) {
	pkt, err := psbt.NewFromRawBytes(bytes.NewReader(bytes.TrimSpace(payload)), true)
	if err != nil {
		return nil, signingError("decode psbt: %s", err)
	}

	var signed []int
	err = u.useSeed(func(seed []byte) error {
		ak, params, err := u.ownedAccountKey(seed, acct)
		if err != nil {
			return err
		}
		defer ak.Zero()

		keys, err := scriptKeys(ak, params)
		if err != nil {
			return signingError("%s", err)
		}
		defer func() {
			for _, k := range keys {
				k.D.SetInt64(0)
			}
		}()

		signed, err = signInputs(pkt, keys)
		return err
	})
	if err != nil {
		if xerrors.Is(err, ErrClosed) {
			return nil, signingError("%s", err)
		}
		return nil, err
	}

	if len(signed) == 0 {
		return nil, signingError("no input of the psbt belongs to account %d", acct.ID)
	}
	logger.Debugf("signed %d of %d inputs for account %d", len(signed), len(pkt.Inputs), acct.ID)

	if opts.Finalize || opts.Extract {
		for _, i := range signed {
			err := psbt.Finalize(pkt, i)
			if err != nil {
				return nil, signingError("finalize input %d: %s", i, err)
			}
		}
	}

	if opts.Extract {
		tx, err := psbt.Extract(pkt)
		if err != nil {
			return nil, signingError("extract: %s", err)
		}
		var buf bytes.Buffer
		err = tx.Serialize(&buf)
		if err != nil {
			return nil, signingError("%s", err)
		}
		return []byte(hex.EncodeToString(buf.Bytes())), nil
	}

	b64, err := pkt.B64Encode()
	if err != nil {
		return nil, signingError("%s", err)
	}
	return []byte(b64), nil
}

// scriptKeys maps the witness script of every address within the gap limit
// to its private key.
func scriptKeys(ak *hdkeychain.ExtendedKey, params *chaincfg.Params) (map[string]*btcec.PrivateKey, error) {
	keys := make(map[string]*btcec.PrivateKey, 2*gapLimit)
	for _, branch := range []uint32{externalBranch, internalBranch} {
		for i := uint32(0); i < gapLimit; i++ {
			k, err := addressKey(ak, branch, i)
			if err != nil {
				return nil, err
			}
			priv, err := k.ECPrivKey()
			k.Zero()
			if err != nil {
				return nil, err
			}

			wa, err := witnessAddress(priv.PubKey(), params)
			if err != nil {
				return nil, err
			}
			script, err := txscript.PayToAddrScript(wa)
			if err != nil {
				return nil, err
			}
			keys[string(script)] = priv
		}
	}
	return keys, nil
}

func signInputs(pkt *psbt.Packet, keys map[string]*btcec.PrivateKey) ([]int, error) {
	upd, err := psbt.NewUpdater(pkt)
	if err != nil {
		return nil, signingError("%s", err)
	}

	sigHashes := txscript.NewTxSigHashes(pkt.UnsignedTx)

	var signed []int
	for i, in := range pkt.Inputs {
		if in.WitnessUtxo == nil || len(in.FinalScriptWitness) > 0 {
			continue
		}
		priv, ok := keys[string(in.WitnessUtxo.PkScript)]
		if !ok {
			continue
		}

		sig, err := txscript.RawTxInWitnessSignature(pkt.UnsignedTx, sigHashes, i,
			in.WitnessUtxo.Value, in.WitnessUtxo.PkScript, txscript.SigHashAll, priv)
		if err != nil {
			return nil, signingError("sign input %d: %s", i, err)
		}

		res, err := upd.Sign(i, sig, priv.PubKey().SerializeCompressed(), nil, nil)
		if err != nil {
			return nil, signingError("sign input %d: %s", i, err)
		}
		if res != psbt.SignSuccesful {
			return nil, signingError("sign input %d: outcome %d", i, res)
		}
		signed = append(signed, i)
	}
	return signed, nil
}

func (u *UTXO) Close() {
	u.seedKeeper.Close()
}
