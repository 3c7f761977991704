package keyring

import (
	"sort"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
)

// AccountDirectory is the account view of a wallet state. Ids are derivation
// indexes; within a scope they are handed out in order and never reused,
// removed ids stay allocated.
type AccountDirectory struct {
	ws *types.WalletState
}

func newDirectory(ws *types.WalletState) *AccountDirectory {
	return &AccountDirectory{ws: ws}
}

func (d *AccountDirectory) allocated(scope types.Scope) *bitset.BitSet {
	bs, ok := d.ws.Allocated[scope]
	if !ok || bs == nil {
		bs = bitset.New(8)
		d.ws.Allocated[scope] = bs
	}
	return bs
}

// NextIndex is the first index never handed out in scope.
func (d *AccountDirectory) NextIndex(scope types.Scope) uint32 {
	bs, ok := d.ws.Allocated[scope]
	if !ok || bs == nil {
		return 0
	}
	return uint32(bs.Count())
}

// Insert records acct under a freshly allocated id.
func (d *AccountDirectory) Insert(scope types.Scope, acct *types.Account) error {
	next := d.NextIndex(scope)
	bs := d.allocated(scope)
	if acct.ID != next || bs.Test(uint(acct.ID)) {
		return xerrors.Errorf("account id %d in %s is not the next free index %d", acct.ID, scope, next)
	}
	bs.Set(uint(acct.ID))

	if d.ws.Accounts[scope] == nil {
		d.ws.Accounts[scope] = make(map[uint32]*types.Account)
	}
	d.ws.Accounts[scope][acct.ID] = acct
	return nil
}

func (d *AccountDirectory) Get(scope types.Scope, id uint32) (*types.Account, bool) {
	acct, ok := d.ws.Accounts[scope][id]
	return acct, ok
}

// Active is the active account of the active scope.
func (d *AccountDirectory) Active() (*types.Account, bool) {
	return d.Get(d.ws.ActiveScope(), d.ws.ActiveAccountID)
}

func (d *AccountDirectory) SetActive(id uint32) error {
	if _, ok := d.Get(d.ws.ActiveScope(), id); !ok {
		return ErrAccountNotFound
	}
	d.ws.ActiveAccountID = id
	return nil
}

// Remove deletes an account of the active scope; its id stays allocated.
func (d *AccountDirectory) Remove(id uint32) error {
	scope := d.ws.ActiveScope()
	if id == d.ws.ActiveAccountID {
		return ErrActiveAccountRemoval
	}
	if _, ok := d.Get(scope, id); !ok {
		return ErrAccountNotFound
	}
	delete(d.ws.Accounts[scope], id)
	return nil
}

// List returns the scope's accounts ordered by id.
func (d *AccountDirectory) List(scope types.Scope) []*types.Account {
	res := make([]*types.Account, 0, len(d.ws.Accounts[scope]))
	for _, acct := range d.ws.Accounts[scope] {
		res = append(res, acct)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Pick chooses the account to activate in scope: the current active id when
// it exists there, else the lowest id. ok is false for an empty scope.
func (d *AccountDirectory) Pick(scope types.Scope) (uint32, bool) {
	if _, ok := d.Get(scope, d.ws.ActiveAccountID); ok {
		return d.ws.ActiveAccountID, true
	}
	accs := d.List(scope)
	if len(accs) == 0 {
		return 0, false
	}
	return accs[0].ID, true
}

func defaultLabel(id uint32) string {
	return "Account " + strconv.FormatUint(uint64(id)+1, 10)
}

func newAccount(id uint32, label string, f types.ChainFamily, am *types.AccountMaterial) *types.Account {
	if label == "" {
		label = defaultLabel(id)
	}
	return &types.Account{
		ID:                  id,
		Label:               label,
		Family:              f,
		Address:             am.Address,
		Xpub:                am.Xpub,
		EncryptedPrivateKey: am.EncryptedPrivateKey,
		Balances:            map[types.ChainFamily]string{f: "0"},
		Transactions:        []types.Transaction{},
		Assets:              []types.Asset{},
	}
}
