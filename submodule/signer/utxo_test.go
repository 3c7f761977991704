package signer

import (
	"bytes"
	"context"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/btcsuite/btcutil/psbt"
	"github.com/stretchr/testify/require"

	"github.com/Pollum-io/sysweb3/lib/address"
	"github.com/Pollum-io/sysweb3/lib/types"
)

func TestUTXODerive(t *testing.T) {
	s, err := NewUTXO(testSeed(t), sysMain, plainSealer{}, nil)
	require.NoError(t, err)
	defer s.Close()

	am, err := s.DeriveAccount(0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(am.Address, "sys1q"), am.Address)
	require.True(t, strings.HasPrefix(am.Xpub, "zpub"), am.Xpub)
	require.NoError(t, address.ValidateSyscoin(am.Address, false))

	again, err := s.DeriveAccount(0)
	require.NoError(t, err)
	require.Equal(t, am.Address, again.Address)
	require.Equal(t, am.Xpub, again.Xpub)

	next, err := s.DeriveAccount(1)
	require.NoError(t, err)
	require.NotEqual(t, am.Address, next.Address)

	acct := &types.Account{ID: 0, Family: types.Syscoin, Xpub: am.Xpub, EncryptedPrivateKey: am.EncryptedPrivateKey}
	xprv, err := s.PrivateKey(acct)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(xprv, "zprv"), xprv)
}

func TestUTXOTestnetScope(t *testing.T) {
	s, err := NewUTXO(testSeed(t), sysMain, plainSealer{}, &fakeUTXOIndexer{testnet: true})
	require.NoError(t, err)
	defer s.Close()

	main, err := s.DeriveAccount(0)
	require.NoError(t, err)

	require.ErrorIs(t, s.Probe(context.Background()), ErrNetworkMismatch)

	require.NoError(t, s.SetNetwork(sysTest))
	require.NoError(t, s.Probe(context.Background()))

	test, err := s.DeriveAccount(0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(test.Address, "tsys1q"), test.Address)
	require.True(t, strings.HasPrefix(test.Xpub, "vpub"), test.Xpub)
	require.NotEqual(t, main.Address, test.Address)

	// same scope, other endpoint
	alt := sysTest
	alt.URL = "https://other-blockbook.example"
	require.NoError(t, s.SetNetwork(alt))
	again, err := s.DeriveAccount(0)
	require.NoError(t, err)
	require.Equal(t, test.Address, again.Address)
}

func TestUTXOAccountInfo(t *testing.T) {
	info := &types.AccountInfo{Balance: "100", TxCount: 1}
	s, err := NewUTXO(testSeed(t), sysMain, plainSealer{}, &fakeUTXOIndexer{info: info})
	require.NoError(t, err)
	defer s.Close()

	am, err := s.DeriveAccount(0)
	require.NoError(t, err)

	got, err := s.AccountInfo(context.Background(), &types.Account{Family: types.Syscoin, Xpub: am.Xpub})
	require.NoError(t, err)
	require.Equal(t, "100", got.Balance)
}

func TestUTXOSignMessage(t *testing.T) {
	s, err := NewUTXO(testSeed(t), sysMain, plainSealer{}, nil)
	require.NoError(t, err)
	defer s.Close()

	am, err := s.DeriveAccount(0)
	require.NoError(t, err)
	acct := &types.Account{ID: 0, Family: types.Syscoin, Address: am.Address, Xpub: am.Xpub}

	sig, err := s.SignMessage(acct, []byte("hello syscoin"))
	require.NoError(t, err)

	ok, err := VerifyMessage(am.Address, []byte("hello syscoin"), sig, address.SyscoinParams(false))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyMessage(am.Address, []byte("tampered"), sig, address.SyscoinParams(false))
	require.NoError(t, err)
	require.False(t, ok)

	// account from another scope
	require.NoError(t, s.SetNetwork(sysTest))
	_, err = s.SignMessage(acct, []byte("hello syscoin"))
	require.ErrorIs(t, err, ErrSigning)
}

func TestUTXOSignPsbt(t *testing.T) {
	s, err := NewUTXO(testSeed(t), sysMain, plainSealer{}, nil)
	require.NoError(t, err)
	defer s.Close()

	am, err := s.DeriveAccount(0)
	require.NoError(t, err)
	acct := &types.Account{ID: 0, Family: types.Syscoin, Address: am.Address, Xpub: am.Xpub}

	params := address.SyscoinParams(false)
	from, err := btcutil.DecodeAddress(am.Address, params)
	require.NoError(t, err)
	pkScript, err := txscript.PayToAddrScript(from)
	require.NoError(t, err)

	const amount = 100000000
	prev := wire.NewOutPoint(&chainhash.Hash{1, 2, 3}, 0)
	out := wire.NewTxOut(amount-1000, pkScript)

	pkt, err := psbt.New([]*wire.OutPoint{prev}, []*wire.TxOut{out}, 2, 0, []uint32{wire.MaxTxInSequenceNum})
	require.NoError(t, err)
	pkt.Inputs[0].WitnessUtxo = wire.NewTxOut(amount, pkScript)

	b64, err := pkt.B64Encode()
	require.NoError(t, err)

	// partially signed, still a psbt
	res, err := s.SignTransaction(context.Background(), acct, []byte(b64), SignOptions{})
	require.NoError(t, err)
	signed, err := psbt.NewFromRawBytes(bytes.NewReader(res), true)
	require.NoError(t, err)
	require.Len(t, signed.Inputs[0].PartialSigs, 1)

	res, err = s.SignTransaction(context.Background(), acct, []byte(b64), SignOptions{Extract: true})
	require.NoError(t, err)

	raw, err := hex.DecodeString(string(res))
	require.NoError(t, err)
	tx := wire.NewMsgTx(2)
	require.NoError(t, tx.Deserialize(bytes.NewReader(raw)))
	require.Len(t, tx.TxIn[0].Witness, 2)

	vm, err := txscript.NewEngine(pkScript, tx, 0, txscript.StandardVerifyFlags, nil, txscript.NewTxSigHashes(tx), amount)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())

	// nothing to sign for another account
	other, err := s.DeriveAccount(1)
	require.NoError(t, err)
	_, err = s.SignTransaction(context.Background(), &types.Account{ID: 1, Family: types.Syscoin, Xpub: other.Xpub}, []byte(b64), SignOptions{})
	require.ErrorIs(t, err, ErrSigning)

	_, err = s.SignTransaction(context.Background(), acct, []byte("not a psbt"), SignOptions{})
	require.ErrorIs(t, err, ErrSigning)
}
