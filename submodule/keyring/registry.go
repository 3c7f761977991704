package keyring

import (
	"net/url"
	"sort"

	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/types"
)

var defaultNetworks = []types.Network{
	{ChainFamily: types.Syscoin, ChainID: 57, URL: "https://blockbook.elint.services/", Label: "Syscoin Mainnet", Currency: "sys"},
	{ChainFamily: types.Syscoin, ChainID: 5700, URL: "https://blockbook-dev.elint.services/", Label: "Syscoin Testnet", Currency: "tsys", IsTestnet: true},

	{ChainFamily: types.Ethereum, ChainID: 1, URL: "https://rpc.ankr.com/eth", Label: "Ethereum Mainnet", Currency: "eth"},
	{ChainFamily: types.Ethereum, ChainID: 5, URL: "https://rpc.ankr.com/eth_goerli", Label: "Goerli", Currency: "eth", IsTestnet: true},
	{ChainFamily: types.Ethereum, ChainID: 57, URL: "https://rpc.syscoin.org", Label: "Syscoin NEVM", Currency: "sys"},
	{ChainFamily: types.Ethereum, ChainID: 5700, URL: "https://rpc.tanenbaum.io", Label: "Syscoin Tanenbaum", Currency: "tsys", IsTestnet: true},
	{ChainFamily: types.Ethereum, ChainID: 137, URL: "https://polygon-rpc.com", Label: "Polygon Mainnet", Currency: "matic"},
	{ChainFamily: types.Ethereum, ChainID: 80001, URL: "https://rpc-mumbai.maticvigil.com", Label: "Mumbai", Currency: "matic", IsTestnet: true},
}

// DefaultNetwork is the active network of a new wallet.
func DefaultNetwork() types.Network {
	return defaultNetworks[0]
}

// DefaultNetworks returns the built in table keyed by family and chain id.
func DefaultNetworks() map[types.ChainFamily]map[uint64]types.Network {
	res := make(map[types.ChainFamily]map[uint64]types.Network)
	for _, n := range defaultNetworks {
		if res[n.ChainFamily] == nil {
			res[n.ChainFamily] = make(map[uint64]types.Network)
		}
		res[n.ChainFamily][n.ChainID] = n
	}
	return res
}

// NetworkLabel names a chain id from the default table.
func NetworkLabel(f types.ChainFamily, chainID uint64) (string, bool) {
	for _, n := range defaultNetworks {
		if n.ChainFamily == f && n.ChainID == chainID {
			return n.Label, true
		}
	}
	return "", false
}

func ValidateNetwork(n types.Network) error {
	if !n.ChainFamily.Valid() {
		return xerrors.Errorf("chain family %q: %w", n.ChainFamily, ErrInvalidNetwork)
	}
	if n.ChainID == 0 {
		return xerrors.Errorf("zero chain id: %w", ErrInvalidNetwork)
	}
	u, err := url.Parse(n.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Errorf("bad url %q: %w", n.URL, ErrInvalidNetwork)
	}
	return nil
}

// NetworkRegistry is the network view of a wallet state.
type NetworkRegistry struct {
	ws *types.WalletState
}

func newRegistry(ws *types.WalletState) *NetworkRegistry {
	return &NetworkRegistry{ws: ws}
}

func (r *NetworkRegistry) Get(f types.ChainFamily, chainID uint64) (types.Network, bool) {
	n, ok := r.ws.Networks[f][chainID]
	return n, ok
}

func (r *NetworkRegistry) Active() types.Network {
	return r.ws.ActiveNetwork
}

// Put adds or replaces a network. The active pointer follows a replaced
// active network.
func (r *NetworkRegistry) Put(n types.Network) error {
	err := ValidateNetwork(n)
	if err != nil {
		return err
	}
	if n.Label == "" {
		n.Label, _ = NetworkLabel(n.ChainFamily, n.ChainID)
	}

	if r.ws.Networks[n.ChainFamily] == nil {
		r.ws.Networks[n.ChainFamily] = make(map[uint64]types.Network)
	}
	if r.ws.ActiveNetwork.Same(n) {
		if r.ws.ActiveNetwork.IsTestnet != n.IsTestnet {
			return xerrors.Errorf("cannot change the test flag of the active network: %w", ErrInvalidNetwork)
		}
		r.ws.ActiveNetwork = n
	}
	r.ws.Networks[n.ChainFamily][n.ChainID] = n
	return nil
}

func (r *NetworkRegistry) Remove(f types.ChainFamily, chainID uint64) error {
	if _, ok := r.Get(f, chainID); !ok {
		return ErrUnknownNetwork
	}
	if r.ws.ActiveNetwork.ChainFamily == f && r.ws.ActiveNetwork.ChainID == chainID {
		return ErrActiveNetworkRemoval
	}
	delete(r.ws.Networks[f], chainID)
	return nil
}

func (r *NetworkRegistry) SetActive(n types.Network) error {
	known, ok := r.Get(n.ChainFamily, n.ChainID)
	if !ok {
		return ErrUnknownNetwork
	}
	r.ws.ActiveNetwork = known
	return nil
}

// Preferred is the network a family signer binds to: the active network
// for the active family, else the family's default entry.
func (r *NetworkRegistry) Preferred(f types.ChainFamily) types.Network {
	if r.ws.ActiveNetwork.ChainFamily == f {
		return r.ws.ActiveNetwork
	}
	for _, n := range defaultNetworks {
		if n.ChainFamily != f {
			continue
		}
		if known, ok := r.Get(f, n.ChainID); ok {
			return known
		}
	}
	nets := r.List(f)
	if len(nets) > 0 {
		return nets[0]
	}
	return types.Network{}
}

// List returns the family's networks ordered by chain id, every network when
// f is empty.
func (r *NetworkRegistry) List(f types.ChainFamily) []types.Network {
	var res []types.Network
	for fam, nets := range r.ws.Networks {
		if f != "" && fam != f {
			continue
		}
		for _, n := range nets {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].ChainFamily != res[j].ChainFamily {
			return res[i].ChainFamily > res[j].ChainFamily
		}
		return res[i].ChainID < res[j].ChainID
	})
	return res
}
