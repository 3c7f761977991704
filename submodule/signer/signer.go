package signer

import (
	"context"
	"sync"

	"github.com/awnumar/memguard"
	"golang.org/x/xerrors"

	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types"
)

var logger = logging.Logger("signer")

var (
	ErrSigning        = xerrors.New("signing failed")
	ErrClosed         = xerrors.New("signer is closed")
	ErrFamilyMismatch = xerrors.New("network belongs to another chain family")
)

// Signer derives accounts and signs for one chain family. Derivation depends
// only on the seed and the index, never on the network endpoint.
type Signer interface {
	Family() types.ChainFamily
	Network() types.Network
	// SetNetwork rebinds the endpoint; accounts already derived keep their
	// address as long as the scope is unchanged.
	SetNetwork(types.Network) error

	NextIndex() uint32
	SetNextIndex(uint32)
	DeriveNext() (uint32, *types.AccountMaterial, error)
	DeriveAccount(index uint32) (*types.AccountMaterial, error)

	PrivateKey(acct *types.Account) (string, error)

	AccountInfo(ctx context.Context, acct *types.Account) (*types.AccountInfo, error)
	Probe(ctx context.Context) error

	SignTransaction(ctx context.Context, acct *types.Account, payload []byte, opts SignOptions) ([]byte, error)
	SignMessage(acct *types.Account, msg []byte) (string, error)

	Close()
}

// Sealer encrypts key material under the session password.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}

type SignOptions struct {
	// utxo only: finalize signed inputs, and extract the raw transaction
	// hex once every input is final
	Finalize bool
	Extract  bool
}

// seedKeeper holds the wallet seed in an encrypted enclave and tracks the
// next unused account index.
type seedKeeper struct {
	lk   sync.RWMutex
	seed *memguard.Enclave
	next uint32
}

func newSeedKeeper(seed []byte) (*seedKeeper, error) {
	if len(seed) == 0 {
		return nil, xerrors.New("empty seed")
	}
	cp := make([]byte, len(seed))
	copy(cp, seed)
	// wipes cp
	return &seedKeeper{seed: memguard.NewEnclave(cp)}, nil
}

func (s *seedKeeper) useSeed(f func([]byte) error) error {
	s.lk.RLock()
	enc := s.seed
	s.lk.RUnlock()
	if enc == nil {
		return ErrClosed
	}

	buf, err := enc.Open()
	if err != nil {
		return err
	}
	defer buf.Destroy()

	return f(buf.Bytes())
}

func (s *seedKeeper) NextIndex() uint32 {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.next
}

func (s *seedKeeper) SetNextIndex(n uint32) {
	s.lk.Lock()
	s.next = n
	s.lk.Unlock()
}

func (s *seedKeeper) closed() bool {
	s.lk.RLock()
	defer s.lk.RUnlock()
	return s.seed == nil
}

func (s *seedKeeper) Close() {
	s.lk.Lock()
	s.seed = nil
	s.next = 0
	s.lk.Unlock()
}

// deriveNext runs derive on the next index and advances only on success.
func (s *seedKeeper) deriveNext(derive func(uint32) (*types.AccountMaterial, error)) (uint32, *types.AccountMaterial, error) {
	idx := s.NextIndex()
	am, err := derive(idx)
	if err != nil {
		return 0, nil, err
	}

	s.lk.Lock()
	if s.next == idx {
		s.next++
	}
	s.lk.Unlock()
	return idx, am, nil
}

func signingError(format string, args ...interface{}) error {
	return xerrors.Errorf(format+": %w", append(args, ErrSigning)...)
}
