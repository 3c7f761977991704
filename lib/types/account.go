package types

// Account is one derived key of a scope. Xpub is the account level extended
// key for UTXO scopes and the index key for EVM scopes.
type Account struct {
	ID                  uint32                 `json:"id"`
	Label               string                 `json:"label"`
	Family              ChainFamily            `json:"family"`
	Address             string                 `json:"address"`
	Xpub                string                 `json:"xpub"`
	EncryptedPrivateKey string                 `json:"xprv"`
	Balances            map[ChainFamily]string `json:"balances"`
	Transactions        []Transaction          `json:"transactions"`
	TxCount             int64                  `json:"txCount"`
	Assets              []Asset                `json:"assets"`
	IsHardwareWallet    bool                   `json:"isTrezorWallet"`
	HardwareWalletID    string                 `json:"trezorId,omitempty"`
}

// Balance returns the cached native balance for the account's family.
func (a *Account) Balance() string {
	if a.Balances == nil {
		return "0"
	}
	b, ok := a.Balances[a.Family]
	if !ok || b == "" {
		return "0"
	}
	return b
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	na := *a
	na.Balances = make(map[ChainFamily]string, len(a.Balances))
	for k, v := range a.Balances {
		na.Balances[k] = v
	}
	na.Transactions = append([]Transaction(nil), a.Transactions...)
	na.Assets = append([]Asset(nil), a.Assets...)
	return &na
}

// Apply overwrites the cached chain data, never the key material.
func (a *Account) Apply(info *AccountInfo) {
	if info == nil {
		return
	}
	if a.Balances == nil {
		a.Balances = make(map[ChainFamily]string)
	}
	a.Balances[a.Family] = info.Balance
	a.Transactions = append([]Transaction(nil), info.Transactions...)
	a.TxCount = info.TxCount
	a.Assets = append([]Asset(nil), info.Assets...)
}

// AccountMaterial is what a signer hands back for one derivation index.
type AccountMaterial struct {
	Xpub                string
	Address             string
	EncryptedPrivateKey string
}

// AccountInfo is what a chain indexer knows about an address or xpub.
type AccountInfo struct {
	Balance      string        `json:"balance"`
	Transactions []Transaction `json:"transactions"`
	TxCount      int64         `json:"txCount"`
	Assets       []Asset       `json:"assets"`
}

type Transaction struct {
	TxID          string `json:"txid"`
	BlockHeight   int64  `json:"blockHeight"`
	Confirmations int64  `json:"confirmations"`
	BlockTime     int64  `json:"blockTime"`
	Value         string `json:"value"`
}

type Asset struct {
	ID       string `json:"assetGuid"`
	Symbol   string `json:"symbol"`
	Balance  string `json:"balance"`
	Decimals int    `json:"decimals"`
}
