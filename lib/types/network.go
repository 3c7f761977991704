package types

import (
	"strconv"
)

// ChainFamily groups chains sharing one address, derivation and signing model.
type ChainFamily string

const (
	// Syscoin is the UTXO/HD family.
	Syscoin ChainFamily = "syscoin"
	// Ethereum is the account based family, every EVM chain belongs to it.
	Ethereum ChainFamily = "ethereum"
)

func (f ChainFamily) Valid() bool {
	return f == Syscoin || f == Ethereum
}

func (f ChainFamily) IsUTXO() bool {
	return f == Syscoin
}

// Network identity is (ChainFamily, ChainID).
type Network struct {
	ChainFamily ChainFamily `json:"chainFamily"`
	ChainID     uint64      `json:"chainId"`
	URL         string      `json:"url"`
	Label       string      `json:"label"`
	Currency    string      `json:"currency"`
	IsTestnet   bool        `json:"isTestnet"`
}

func (n Network) Empty() bool {
	return n.ChainFamily == "" && n.ChainID == 0
}

func (n Network) Same(o Network) bool {
	return n.ChainFamily == o.ChainFamily && n.ChainID == o.ChainID
}

func (n Network) Scope() Scope {
	return ScopeOf(n.ChainFamily, n.IsTestnet)
}

func (n Network) String() string {
	return string(n.ChainFamily) + "/" + strconv.FormatUint(n.ChainID, 10)
}

// Scope names one deterministic key hierarchy. UTXO testnet keys derive
// under a different coin type than mainnet keys, EVM keys do not depend on
// the network at all.
type Scope string

func ScopeOf(f ChainFamily, testnet bool) Scope {
	if f.IsUTXO() && testnet {
		return Scope(string(f) + "-testnet")
	}
	return Scope(f)
}

func (s Scope) Family() ChainFamily {
	switch s {
	case Scope(Syscoin), Scope(Syscoin) + "-testnet":
		return Syscoin
	default:
		return ChainFamily(s)
	}
}
