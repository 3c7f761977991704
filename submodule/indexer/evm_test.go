package indexer

import (
	"context"
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

type fakeEth struct {
	chainID uint64
}

func (f *fakeEth) ChainId() *hexutil.Big {
	return (*hexutil.Big)(new(big.Int).SetUint64(f.chainID))
}

func (f *fakeEth) GetBalance(addr common.Address, block string) *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1e18))
}

func (f *fakeEth) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	return 7
}

func rpcServer(t *testing.T, chainID uint64) string {
	srv := rpc.NewServer()
	require.NoError(t, srv.RegisterName("eth", &fakeEth{chainID: chainID}))
	hs := httptest.NewServer(srv)
	t.Cleanup(func() {
		hs.Close()
		srv.Stop()
	})
	return hs.URL
}

func TestEVMAddressInfo(t *testing.T) {
	ep := rpcServer(t, 57)

	e, err := NewEVM(2)
	require.NoError(t, err)
	defer e.Close()

	ai, err := e.AddressInfo(context.Background(), ep, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.NoError(t, err)
	require.Equal(t, "1000000000000000000", ai.Balance)
	require.EqualValues(t, 7, ai.TxCount)
	// no history over plain json-rpc
	require.NotNil(t, ai.Transactions)
	require.Empty(t, ai.Transactions)
	require.NotNil(t, ai.Assets)
	require.Empty(t, ai.Assets)

	_, err = e.AddressInfo(context.Background(), ep, "sys1notanevmaddress")
	require.Error(t, err)
}

func TestEVMChainID(t *testing.T) {
	e, err := NewEVM(1)
	require.NoError(t, err)
	defer e.Close()

	a := rpcServer(t, 57)
	b := rpcServer(t, 5700)

	id, err := e.ChainID(context.Background(), a)
	require.NoError(t, err)
	require.EqualValues(t, 57, id)

	// cache of one evicts the first client
	id, err = e.ChainID(context.Background(), b)
	require.NoError(t, err)
	require.EqualValues(t, 5700, id)
	require.Equal(t, 1, e.clients.Len())

	id, err = e.ChainID(context.Background(), a)
	require.NoError(t, err)
	require.EqualValues(t, 57, id)
}
