package indexer

import (
	"context"
	"strconv"

	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types"
)

var logger = logging.Logger("indexer")

// UTXOIndexer is a Blockbook style indexer keyed by account xpub.
type UTXOIndexer interface {
	XpubInfo(ctx context.Context, endpoint, xpub string) (*types.AccountInfo, error)
	BackendInfo(ctx context.Context, endpoint string) (*BackendInfo, error)
}

// EVMIndexer answers balance and chain questions over JSON-RPC.
type EVMIndexer interface {
	AddressInfo(ctx context.Context, endpoint, address string) (*types.AccountInfo, error)
	ChainID(ctx context.Context, endpoint string) (uint64, error)
}

type BackendInfo struct {
	Coin    string
	Chain   string
	Testnet bool
	Blocks  int64
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
