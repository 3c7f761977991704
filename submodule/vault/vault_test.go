package vault

import (
	"errors"
	"testing"

	"github.com/bits-and-blooms/bitset"
	"github.com/stretchr/testify/require"

	"github.com/Pollum-io/sysweb3/lib/backend/dskv"
	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

func testState() *types.WalletState {
	ws := types.NewWalletState()
	main := types.Network{ChainFamily: types.Syscoin, ChainID: 57, URL: "https://blockbook.elint.services", Label: "Syscoin Mainnet"}
	ws.ActiveNetwork = main
	ws.Networks[types.Syscoin] = map[uint64]types.Network{57: main}
	ws.Accounts[main.Scope()] = map[uint32]*types.Account{
		0: {ID: 0, Label: "Account 1", Family: types.Syscoin, Address: "sys1qtest", Xpub: "zpubtest", EncryptedPrivateKey: "ct"},
	}
	bs := bitset.New(8)
	bs.Set(0)
	ws.Allocated[main.Scope()] = bs
	return ws
}

func TestPersistLoad(t *testing.T) {
	s := New(dskv.NewMemStore(), codec.Light())

	ws, mn, digest, err := s.LoadEncrypted("pw")
	require.NoError(t, err)
	require.True(t, ws.Empty())
	require.Empty(t, mn)
	require.Nil(t, digest)

	ok, err := s.Exists()
	require.NoError(t, err)
	require.False(t, ok)

	_, err = s.Persist(testState(), "enc-mnemonic", nil)
	require.ErrorIs(t, err, ErrInvalidPasswordType)

	d, err := s.Persist(testState(), "enc-mnemonic", []byte("pw"))
	require.NoError(t, err)
	require.Len(t, d, 32)

	ok, err = s.Exists()
	require.NoError(t, err)
	require.True(t, ok)

	ws, mn, digest, err = s.LoadEncrypted("pw")
	require.NoError(t, err)
	require.Equal(t, "enc-mnemonic", mn)
	require.Equal(t, d, digest)
	require.Equal(t, "sys1qtest", ws.Accounts["syscoin"][0].Address)
	require.True(t, ws.Allocated["syscoin"].Test(0))

	_, _, _, err = s.LoadEncrypted("wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	cur, err := s.VaultDigest()
	require.NoError(t, err)
	require.Equal(t, d, cur)
}

func TestSnapshot(t *testing.T) {
	s := New(dskv.NewMemStore(), codec.Light())

	snap, err := s.ReadSnapshot()
	require.NoError(t, err)
	require.Nil(t, snap)

	_, err = s.Snapshot(testState(), true, []byte{1, 2, 3})
	require.NoError(t, err)

	snap, err = s.ReadSnapshot()
	require.NoError(t, err)
	require.True(t, snap.Unlocked)
	require.Equal(t, []byte{1, 2, 3}, snap.VaultDigest)
	require.Equal(t, uint64(57), snap.Wallet.ActiveNetwork.ChainID)
	require.Equal(t, "zpubtest", snap.Wallet.Accounts["syscoin"][0].Xpub)
	require.True(t, snap.Wallet.Allocated["syscoin"].Test(0))
	require.False(t, snap.Wallet.Allocated["syscoin"].Test(1))
}

func TestPasswordVerifier(t *testing.T) {
	s := New(dskv.NewMemStore(), codec.Light())

	check := func(pw string) bool {
		ok, err := s.CheckPassword(pw)
		require.NoError(t, err)
		return ok
	}

	require.False(t, check("pw"))
	require.ErrorIs(t, s.SetPasswordVerifier(nil), ErrInvalidPasswordType)
	require.NoError(t, s.SetPasswordVerifier([]byte("pw")))

	ok, err := s.HasPasswordVerifier()
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, check("pw"))
	require.False(t, check("pw2"))
	require.False(t, check(""))
}

func TestBootstrap(t *testing.T) {
	s := New(dskv.NewMemStore(), codec.Light())

	b, err := s.ReadBootstrap()
	require.NoError(t, err)
	require.Nil(t, b)
	require.NoError(t, s.ClearBootstrap())

	net := types.Network{ChainFamily: types.Ethereum, ChainID: 1}
	require.NoError(t, s.WriteBootstrap(&Bootstrap{Mnemonic: "ct", ActiveNetwork: net}))

	b, err = s.ReadBootstrap()
	require.NoError(t, err)
	require.Equal(t, "ct", b.Mnemonic)
	require.True(t, b.ActiveNetwork.Same(net))

	require.NoError(t, s.ClearBootstrap())
	b, err = s.ReadBootstrap()
	require.NoError(t, err)
	require.Empty(t, b.Mnemonic)
	require.True(t, b.ActiveNetwork.Same(net))
}

func TestForget(t *testing.T) {
	ds := dskv.NewMemStore()
	s := New(ds, codec.Light())

	_, err := s.Persist(testState(), "m", []byte("pw"))
	require.NoError(t, err)
	require.NoError(t, s.SetPasswordVerifier([]byte("pw")))
	require.NoError(t, s.WriteBootstrap(&Bootstrap{Mnemonic: "m"}))
	_, err = s.Snapshot(testState(), false, nil)
	require.NoError(t, err)

	require.NoError(t, s.Forget())

	for _, k := range []string{"vault", "vault-key", "signers-key", "keyring"} {
		ok, err := ds.Has([]byte(k))
		require.NoError(t, err)
		require.False(t, ok, k)
	}
}

type failStore struct {
	store.Store
}

func (f failStore) Put(key, value []byte) error {
	return errors.New("disk full")
}

type unreadableStore struct {
	store.Store
}

func (u unreadableStore) Get(key []byte) ([]byte, error) {
	return nil, errors.New("io error")
}

func TestPersistFailure(t *testing.T) {
	s := New(failStore{dskv.NewMemStore()}, codec.Light())

	_, err := s.Persist(testState(), "m", []byte("pw"))
	require.ErrorIs(t, err, ErrPersistence)

	_, err = s.Snapshot(testState(), true, nil)
	require.ErrorIs(t, err, ErrPersistence)
}

func TestCheckPasswordReadFailure(t *testing.T) {
	ds := dskv.NewMemStore()
	require.NoError(t, New(ds, codec.Light()).SetPasswordVerifier([]byte("pw")))

	s := New(unreadableStore{ds}, codec.Light())
	ok, err := s.CheckPassword("pw")
	require.ErrorIs(t, err, ErrPersistence)
	require.False(t, ok)

	// a garbled verifier is a storage problem, not a wrong password
	require.NoError(t, ds.Put([]byte("vault-key"), []byte{0xff, 0x00}))
	ok, err = New(ds, codec.Light()).CheckPassword("pw")
	require.ErrorIs(t, err, ErrPersistence)
	require.False(t, ok)
}
