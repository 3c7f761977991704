package indexer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/metrics"
)

// EVM keeps one dialed client per endpoint; evicted clients are closed.
type EVM struct {
	lk      sync.Mutex
	clients *lru.Cache
}

var _ EVMIndexer = (*EVM)(nil)

func NewEVM(size int) (*EVM, error) {
	if size <= 0 {
		size = 8
	}
	c, err := lru.NewWithEvict(size, func(key, value interface{}) {
		if cl, ok := value.(*ethclient.Client); ok {
			logger.Debugf("close rpc client for %s", key)
			cl.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return &EVM{clients: c}, nil
}

func (e *EVM) client(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	e.lk.Lock()
	defer e.lk.Unlock()

	val, ok := e.clients.Get(endpoint)
	if ok {
		return val.(*ethclient.Client), nil
	}

	cl, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	e.clients.Add(endpoint, cl)
	return cl, nil
}

// drop forgets a client after a transport failure so the next call redials.
func (e *EVM) drop(endpoint string) {
	e.lk.Lock()
	e.clients.Remove(endpoint)
	e.lk.Unlock()
}

func (e *EVM) AddressInfo(ctx context.Context, endpoint, address string) (*types.AccountInfo, error) {
	if !common.IsHexAddress(address) {
		return nil, xerrors.Errorf("invalid address %q", address)
	}

	ctx = metrics.Tagged(ctx, metrics.ChainFamily, string(types.Ethereum))
	stop := metrics.Timer(ctx, metrics.IndexerRequestDuration)
	defer stop()

	ai, err := e.addressInfo(ctx, endpoint, common.HexToAddress(address))
	if err != nil {
		metrics.Inc(ctx, metrics.IndexerFailure)
		e.drop(endpoint)
		return nil, err
	}
	return ai, nil
}

func (e *EVM) addressInfo(ctx context.Context, endpoint string, addr common.Address) (*types.AccountInfo, error) {
	cl, err := e.client(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	bal, err := cl.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, xerrors.Errorf("balance of %s: %w", addr, err)
	}

	nonce, err := cl.NonceAt(ctx, addr, nil)
	if err != nil {
		return nil, xerrors.Errorf("nonce of %s: %w", addr, err)
	}

	// rpc nodes keep no history or token index, the nonce is the sent
	// count. Transactions and Assets stay empty.
	return &types.AccountInfo{
		Balance:      bal.String(),
		Transactions: []types.Transaction{},
		TxCount:      int64(nonce),
		Assets:       []types.Asset{},
	}, nil
}

func (e *EVM) ChainID(ctx context.Context, endpoint string) (uint64, error) {
	ctx = metrics.Tagged(ctx, metrics.ChainFamily, string(types.Ethereum))

	cl, err := e.client(ctx, endpoint)
	if err != nil {
		metrics.Inc(ctx, metrics.IndexerFailure)
		return 0, err
	}

	id, err := cl.ChainID(ctx)
	if err != nil {
		metrics.Inc(ctx, metrics.IndexerFailure)
		e.drop(endpoint)
		return 0, err
	}
	if !id.IsUint64() {
		return 0, xerrors.Errorf("chain id %s out of range", id)
	}
	return id.Uint64(), nil
}

// Close closes every cached client.
func (e *EVM) Close() {
	e.lk.Lock()
	e.clients.Purge()
	e.lk.Unlock()
}
