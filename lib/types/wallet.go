package types

import (
	"github.com/bits-and-blooms/bitset"
)

// WalletState is the unit persisted in the vault blob and in the keyring
// snapshot. Accounts and allocated indexes are kept per derivation scope.
type WalletState struct {
	Accounts        map[Scope]map[uint32]*Account      `json:"accounts"`
	Allocated       map[Scope]*bitset.BitSet           `json:"allocated"`
	ActiveAccountID uint32                             `json:"activeAccountId"`
	Networks        map[ChainFamily]map[uint64]Network `json:"networks"`
	ActiveNetwork   Network                            `json:"activeNetwork"`
}

func NewWalletState() *WalletState {
	return &WalletState{
		Accounts:  make(map[Scope]map[uint32]*Account),
		Allocated: make(map[Scope]*bitset.BitSet),
		Networks:  make(map[ChainFamily]map[uint64]Network),
	}
}

// Empty is true before the first account has been derived.
func (ws *WalletState) Empty() bool {
	if ws == nil {
		return true
	}
	for _, accs := range ws.Accounts {
		if len(accs) > 0 {
			return false
		}
	}
	return true
}

// ActiveScope is the derivation scope of the active network.
func (ws *WalletState) ActiveScope() Scope {
	return ws.ActiveNetwork.Scope()
}

// Normalize fills nil maps left by decoding.
func (ws *WalletState) Normalize() {
	if ws.Accounts == nil {
		ws.Accounts = make(map[Scope]map[uint32]*Account)
	}
	if ws.Allocated == nil {
		ws.Allocated = make(map[Scope]*bitset.BitSet)
	}
	if ws.Networks == nil {
		ws.Networks = make(map[ChainFamily]map[uint64]Network)
	}
}

// Clone is a deep copy, used to roll back a failed mutation.
func (ws *WalletState) Clone() *WalletState {
	if ws == nil {
		return nil
	}

	nws := NewWalletState()
	nws.ActiveAccountID = ws.ActiveAccountID
	nws.ActiveNetwork = ws.ActiveNetwork

	for scope, accs := range ws.Accounts {
		m := make(map[uint32]*Account, len(accs))
		for id, acc := range accs {
			m[id] = acc.Clone()
		}
		nws.Accounts[scope] = m
	}

	for scope, bs := range ws.Allocated {
		nws.Allocated[scope] = bs.Clone()
	}

	for fam, nets := range ws.Networks {
		m := make(map[uint64]Network, len(nets))
		for id, n := range nets {
			m[id] = n
		}
		nws.Networks[fam] = m
	}

	return nws
}
