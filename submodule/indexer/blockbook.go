package indexer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/submodule/metrics"
)

const maxBlockbookBody = 8 << 20

type Blockbook struct {
	client   *http.Client
	pageSize int
}

var _ UTXOIndexer = (*Blockbook)(nil)

func NewBlockbook(timeout time.Duration) *Blockbook {
	return &Blockbook{
		client:   &http.Client{Timeout: timeout},
		pageSize: 30,
	}
}

type blockbookStatus struct {
	Blockbook struct {
		Coin       string `json:"coin"`
		InSync     bool   `json:"inSync"`
		BestHeight int64  `json:"bestHeight"`
	} `json:"blockbook"`
	Backend struct {
		Chain  string `json:"chain"`
		Blocks int64  `json:"blocks"`
	} `json:"backend"`
}

type blockbookXpub struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	Txs          int    `json:"txs"`
	Transactions []struct {
		Txid          string `json:"txid"`
		BlockHeight   int64  `json:"blockHeight"`
		Confirmations int64  `json:"confirmations"`
		BlockTime     int64  `json:"blockTime"`
		Value         string `json:"value"`
	} `json:"transactions"`
	TokensAsset []struct {
		AssetGuid string `json:"assetGuid"`
		Symbol    string `json:"symbol"`
		Balance   string `json:"balance"`
		Decimals  int    `json:"decimals"`
	} `json:"tokensAsset"`
}

type blockbookError struct {
	Error string `json:"error"`
}

func (b *Blockbook) BackendInfo(ctx context.Context, endpoint string) (*BackendInfo, error) {
	var st blockbookStatus
	err := b.get(ctx, strings.TrimRight(endpoint, "/")+"/api/v2", &st)
	if err != nil {
		return nil, err
	}

	return &BackendInfo{
		Coin:    st.Blockbook.Coin,
		Chain:   st.Backend.Chain,
		Testnet: st.Backend.Chain != "main",
		Blocks:  st.Backend.Blocks,
	}, nil
}

func (b *Blockbook) XpubInfo(ctx context.Context, endpoint, xpub string) (*types.AccountInfo, error) {
	q := url.Values{}
	q.Set("details", "txs")
	q.Set("pageSize", itoa(b.pageSize))
	u := strings.TrimRight(endpoint, "/") + "/api/v2/xpub/" + url.PathEscape(xpub) + "?" + q.Encode()

	var xr blockbookXpub
	err := b.get(ctx, u, &xr)
	if err != nil {
		return nil, err
	}

	ai := &types.AccountInfo{
		Balance:      xr.Balance,
		TxCount:      int64(xr.Txs),
		Transactions: make([]types.Transaction, 0, len(xr.Transactions)),
		Assets:       make([]types.Asset, 0, len(xr.TokensAsset)),
	}
	if ai.Balance == "" {
		ai.Balance = "0"
	}
	for _, tx := range xr.Transactions {
		ai.Transactions = append(ai.Transactions, types.Transaction{
			TxID:          tx.Txid,
			BlockHeight:   tx.BlockHeight,
			Confirmations: tx.Confirmations,
			BlockTime:     tx.BlockTime,
			Value:         tx.Value,
		})
	}
	for _, as := range xr.TokensAsset {
		ai.Assets = append(ai.Assets, types.Asset{
			ID:       as.AssetGuid,
			Symbol:   as.Symbol,
			Balance:  as.Balance,
			Decimals: as.Decimals,
		})
	}

	return ai, nil
}

func (b *Blockbook) get(ctx context.Context, u string, out interface{}) error {
	ctx = metrics.Tagged(ctx, metrics.ChainFamily, string(types.Syscoin))
	stop := metrics.Timer(ctx, metrics.IndexerRequestDuration)
	defer stop()

	err := b.doGet(ctx, u, out)
	if err != nil {
		metrics.Inc(ctx, metrics.IndexerFailure)
		logger.Debugf("blockbook request %s failed: %s", u, err)
	}
	return err
}

func (b *Blockbook) doGet(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBlockbookBody))
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var be blockbookError
		if json.Unmarshal(body, &be) == nil && be.Error != "" {
			return xerrors.Errorf("blockbook status %d: %s", resp.StatusCode, be.Error)
		}
		return xerrors.Errorf("blockbook status %d", resp.StatusCode)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return xerrors.Errorf("decode blockbook response: %w", err)
	}
	return nil
}
