package keyring

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Pollum-io/sysweb3/lib/types"
)

func material(addr string) *types.AccountMaterial {
	return &types.AccountMaterial{Address: addr, Xpub: "xpub-" + addr, EncryptedPrivateKey: "ct"}
}

func TestDirectoryAllocation(t *testing.T) {
	ws := types.NewWalletState()
	ws.ActiveNetwork = DefaultNetwork()
	scope := ws.ActiveScope()
	dir := newDirectory(ws)

	require.EqualValues(t, 0, dir.NextIndex(scope))
	require.NoError(t, dir.Insert(scope, newAccount(0, "", types.Syscoin, material("a"))))
	require.NoError(t, dir.Insert(scope, newAccount(1, "", types.Syscoin, material("b"))))

	// out of order and reused ids are refused
	require.Error(t, dir.Insert(scope, newAccount(5, "", types.Syscoin, material("c"))))
	require.Error(t, dir.Insert(scope, newAccount(1, "", types.Syscoin, material("c"))))

	require.ErrorIs(t, dir.Remove(0), ErrActiveAccountRemoval)
	require.NoError(t, dir.Remove(1))
	require.ErrorIs(t, dir.Remove(1), ErrAccountNotFound)
	require.EqualValues(t, 2, dir.NextIndex(scope))

	acct, ok := dir.Active()
	require.True(t, ok)
	require.Equal(t, "Account 1", acct.Label)
	require.Equal(t, "0", acct.Balance())

	require.ErrorIs(t, dir.SetActive(1), ErrAccountNotFound)
}

func TestDirectoryPick(t *testing.T) {
	ws := types.NewWalletState()
	ws.ActiveNetwork = DefaultNetwork()
	dir := newDirectory(ws)

	eth := types.Scope(types.Ethereum)
	_, ok := dir.Pick(eth)
	require.False(t, ok)

	for i := uint32(0); i < 3; i++ {
		require.NoError(t, dir.Insert(eth, newAccount(i, "", types.Ethereum, material("e"))))
	}
	require.NoError(t, dir.Insert(ws.ActiveScope(), newAccount(0, "", types.Syscoin, material("s"))))

	ws.ActiveAccountID = 2
	id, ok := dir.Pick(eth)
	require.True(t, ok)
	require.EqualValues(t, 2, id)

	delete(ws.Accounts[eth], 2)
	id, ok = dir.Pick(eth)
	require.True(t, ok)
	require.EqualValues(t, 0, id)
}

func TestRegistry(t *testing.T) {
	ws := types.NewWalletState()
	ws.Networks = DefaultNetworks()
	ws.ActiveNetwork = DefaultNetwork()
	reg := newRegistry(ws)

	label, ok := NetworkLabel(types.Ethereum, 57)
	require.True(t, ok)
	require.Equal(t, "Syscoin NEVM", label)

	require.Equal(t, DefaultNetwork(), reg.Preferred(types.Syscoin))
	pe := reg.Preferred(types.Ethereum)
	require.EqualValues(t, 1, pe.ChainID)

	nets := reg.List(types.Syscoin)
	require.Len(t, nets, 2)
	require.EqualValues(t, 57, nets[0].ChainID)
	require.EqualValues(t, 5700, nets[1].ChainID)
	require.Len(t, reg.List(""), len(defaultNetworks))

	require.ErrorIs(t, reg.Put(types.Network{ChainFamily: "cosmos", ChainID: 1, URL: "https://x"}), ErrInvalidNetwork)
	require.ErrorIs(t, reg.Put(types.Network{ChainFamily: types.Ethereum, URL: "https://x"}), ErrInvalidNetwork)

	flipped := DefaultNetwork()
	flipped.IsTestnet = true
	require.ErrorIs(t, reg.Put(flipped), ErrInvalidNetwork)

	require.NoError(t, reg.Put(types.Network{ChainFamily: types.Ethereum, ChainID: 1, URL: "https://eth.example"}))
	n, ok := reg.Get(types.Ethereum, 1)
	require.True(t, ok)
	require.Equal(t, "Ethereum Mainnet", n.Label)
	require.Equal(t, "https://eth.example", n.URL)

	require.ErrorIs(t, reg.SetActive(types.Network{ChainFamily: types.Ethereum, ChainID: 99}), ErrUnknownNetwork)
	require.NoError(t, reg.SetActive(types.Network{ChainFamily: types.Ethereum, ChainID: 1}))
	require.Equal(t, "https://eth.example", reg.Active().URL)
}

func TestChainQueryError(t *testing.T) {
	cause := ErrNetworkMismatch
	err := error(&ChainQueryError{Op: "probe", Network: DefaultNetwork(), Err: cause})
	require.True(t, IsChainQuery(err))
	require.ErrorIs(t, err, ErrNetworkMismatch)
	require.Contains(t, err.Error(), "probe")
	require.False(t, IsChainQuery(ErrLockedWallet))
}
