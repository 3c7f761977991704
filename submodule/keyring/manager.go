package keyring

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/awnumar/memguard"
	"golang.org/x/sync/semaphore"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/lib/types/store"
	"github.com/Pollum-io/sysweb3/submodule/indexer"
	"github.com/Pollum-io/sysweb3/submodule/metrics"
	"github.com/Pollum-io/sysweb3/submodule/signer"
	"github.com/Pollum-io/sysweb3/submodule/vault"
)

var logger = logging.Logger("keyring")

const DefaultQueryTimeout = 10 * time.Second

type State int

const (
	Uninitialized State = iota
	Locked
	Unlocked
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

type Options struct {
	Store store.Store
	// defaults to the standard scrypt strength
	Codec *codec.Codec

	UTXOIndexer indexer.UTXOIndexer
	EVMIndexer  indexer.EVMIndexer

	Sink         Sink
	QueryTimeout time.Duration

	// appended to the built in network table of new wallets
	Networks []types.Network
}

type VaultOptions struct {
	// empty uses the password given to SetWalletPassword
	Password string
	// empty uses the seed from CreateSeed, or a fresh one
	Mnemonic string
	// wipe an existing wallet first
	Reset bool
	// password of the wallet a Reset replaces
	CurrentPassword string
	// label of the first account
	Label string
}

// Manager is the keyring state machine. Operations run one at a time.
type Manager struct {
	sem *semaphore.Weighted

	vault        *vault.Store
	codec        *codec.Codec
	utxoIndexer  indexer.UTXOIndexer
	evmIndexer   indexer.EVMIndexer
	sink         Sink
	queryTimeout time.Duration
	extra        []types.Network

	// pending setup before the vault exists
	pendingSession  *session
	pendingMnemonic *memguard.Enclave

	lk          sync.RWMutex
	state       State
	wallet      *types.WalletState
	sess        *session
	signers     map[types.ChainFamily]signer.Signer
	encMnemonic string
	digest      []byte
}

func New(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, xerrors.New("keyring needs a store")
	}
	if opts.Codec == nil {
		opts.Codec = codec.Standard()
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = DefaultQueryTimeout
	}
	for _, n := range opts.Networks {
		err := ValidateNetwork(n)
		if err != nil {
			return nil, err
		}
	}

	m := &Manager{
		sem:          semaphore.NewWeighted(1),
		vault:        vault.New(opts.Store, opts.Codec),
		codec:        opts.Codec,
		utxoIndexer:  opts.UTXOIndexer,
		evmIndexer:   opts.EVMIndexer,
		sink:         opts.Sink,
		queryTimeout: opts.QueryTimeout,
		extra:        opts.Networks,
		state:        Uninitialized,
	}

	ok, err := m.vault.Exists()
	if err != nil {
		return nil, err
	}
	if ok {
		m.state = Locked
	}

	logger.Infof("keyring is %s", m.state)
	return m, nil
}

// do runs f as the only operation in flight.
func (m *Manager) do(ctx context.Context, op string, f func(ctx context.Context) error) error {
	ctx = metrics.Tagged(ctx, metrics.Operation, op)
	err := m.sem.Acquire(ctx, 1)
	if err != nil {
		return err
	}
	defer m.sem.Release(1)

	stop := metrics.Timer(ctx, metrics.OperationDuration)
	defer stop()

	err = f(ctx)
	if err != nil && !IsChainQuery(err) {
		metrics.Inc(ctx, metrics.OperationFailure)
		logger.Debugf("%s failed: %s", op, err)
	}
	return err
}

func (m *Manager) State() State {
	m.lk.RLock()
	defer m.lk.RUnlock()
	return m.state
}

func (m *Manager) requireUnlocked() error {
	m.lk.RLock()
	defer m.lk.RUnlock()
	return m.stateErr()
}

// stateErr is nil while unlocked. Callers hold lk.
func (m *Manager) stateErr() error {
	switch m.state {
	case Unlocked:
		return nil
	case Uninitialized:
		return ErrNotInitialized
	default:
		return ErrLockedWallet
	}
}

func (m *Manager) networkTable() map[types.ChainFamily]map[uint64]types.Network {
	nets := DefaultNetworks()
	for _, n := range m.extra {
		if nets[n.ChainFamily] == nil {
			nets[n.ChainFamily] = make(map[uint64]types.Network)
		}
		nets[n.ChainFamily][n.ChainID] = n
	}
	return nets
}

// buildSigners binds one signer per family, each on its preferred network.
func (m *Manager) buildSigners(seed []byte, ws *types.WalletState, sess *session) (map[types.ChainFamily]signer.Signer, error) {
	reg := newRegistry(ws)

	utxo, err := signer.NewUTXO(seed, reg.Preferred(types.Syscoin), sess, m.utxoIndexer)
	if err != nil {
		return nil, err
	}
	evm, err := signer.NewEVM(seed, reg.Preferred(types.Ethereum), sess, m.evmIndexer)
	if err != nil {
		utxo.Close()
		return nil, err
	}

	dir := newDirectory(ws)
	sgs := map[types.ChainFamily]signer.Signer{
		types.Syscoin:  utxo,
		types.Ethereum: evm,
	}
	for _, s := range sgs {
		s.SetNextIndex(dir.NextIndex(s.Network().Scope()))
	}
	return sgs, nil
}

func closeSigners(sgs map[types.ChainFamily]signer.Signer) {
	for _, s := range sgs {
		s.Close()
	}
}

// teardown wipes the session secret and the signers. Callers hold lk.
func (m *Manager) teardown() {
	m.sess.destroy()
	m.sess = nil
	closeSigners(m.signers)
	m.signers = nil
	m.encMnemonic = ""
	m.wallet = nil
	m.digest = nil
}

func (m *Manager) clearPending() {
	m.pendingSession.destroy()
	m.pendingSession = nil
	m.pendingMnemonic = nil
}

func (m *Manager) activeSigner() (signer.Signer, *types.Account, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()

	if m.state != Unlocked {
		return nil, nil, ErrLockedWallet
	}
	acct, ok := newDirectory(m.wallet).Active()
	if !ok {
		return nil, nil, ErrAccountNotFound
	}
	s, ok := m.signers[acct.Family]
	if !ok {
		return nil, nil, xerrors.Errorf("no signer for %s", acct.Family)
	}
	return s, acct.Clone(), nil
}

// commit persists next, writes the snapshot, swaps next in and notifies.
// Nothing is swapped in when a write fails.
func (m *Manager) commit(next *types.WalletState) error {
	m.lk.RLock()
	prev := m.wallet
	enc := m.encMnemonic
	m.lk.RUnlock()

	var digest []byte
	var snap *vault.Snapshot
	err := m.sess.with(func(pw []byte) error {
		var err error
		digest, err = m.vault.Persist(next, enc, pw)
		if err != nil {
			return err
		}

		snap, err = m.vault.Snapshot(next, true, digest)
		if err != nil && prev != nil {
			_, rerr := m.vault.Persist(prev, enc, pw)
			if rerr != nil {
				logger.Errorf("restore vault after failed snapshot: %s", rerr)
			}
		}
		return err
	})
	if err != nil {
		return err
	}

	m.lk.Lock()
	m.wallet = next
	m.digest = digest
	m.lk.Unlock()

	m.sink.Emit(EventUpdate, snap)
	return nil
}

// syncSigners resets every signer's next index from the live state.
func (m *Manager) syncSigners() {
	m.lk.RLock()
	defer m.lk.RUnlock()

	if m.wallet == nil {
		return
	}
	dir := newDirectory(m.wallet)
	for _, s := range m.signers {
		s.SetNextIndex(dir.NextIndex(s.Network().Scope()))
	}
}

// refresh pulls chain data for the active account. An indexer failure, or a
// failure to store what it returned, comes back as a *ChainQueryError next to
// the cached account.
func (m *Manager) refresh(ctx context.Context) (*types.Account, error) {
	s, acct, err := m.activeSigner()
	if err != nil {
		return nil, err
	}

	qctx, cancel := context.WithTimeout(ctx, m.queryTimeout)
	defer cancel()

	info, err := s.AccountInfo(qctx, acct)
	if err != nil {
		logger.Warnf("refresh account %d on %s: %s", acct.ID, s.Network(), err)
		return acct, &ChainQueryError{Op: "account info", Network: s.Network(), Err: err}
	}

	m.lk.RLock()
	next := m.wallet.Clone()
	m.lk.RUnlock()

	cur, ok := newDirectory(next).Active()
	if !ok {
		return nil, ErrAccountNotFound
	}
	cur.Apply(info)

	// nothing is swapped in on failure, the cached account stays valid
	err = m.commit(next)
	if err != nil {
		logger.Warnf("store refreshed account %d: %s", acct.ID, err)
		return acct, &ChainQueryError{Op: "store account info", Network: s.Network(), Err: err}
	}
	return cur.Clone(), nil
}

// SetWalletPassword stores the password before the vault is created.
func (m *Manager) SetWalletPassword(ctx context.Context, password string) error {
	return m.do(ctx, "set_password", func(ctx context.Context) error {
		if m.State() != Uninitialized || m.pendingSession != nil {
			return ErrAlreadyInitialized
		}
		if password == "" {
			return ErrInvalidPasswordType
		}

		sess := newSession(password, m.codec)
		err := sess.with(m.vault.SetPasswordVerifier)
		if err != nil {
			sess.destroy()
			return err
		}
		m.pendingSession = sess
		return nil
	})
}

// CreateSeed generates the mnemonic the next CreateVault will use.
func (m *Manager) CreateSeed(ctx context.Context) (string, error) {
	var phrase string
	err := m.do(ctx, "create_seed", func(ctx context.Context) error {
		if m.State() != Uninitialized {
			return ErrAlreadyInitialized
		}

		var err error
		phrase, err = signer.NewMnemonic()
		if err != nil {
			return err
		}
		m.pendingMnemonic = memguard.NewEnclave([]byte(phrase))
		return nil
	})
	return phrase, err
}

// ValidateSeed checks a mnemonic phrase. It holds no secret and runs in any
// state.
func (m *Manager) ValidateSeed(phrase string) bool {
	return signer.ValidateMnemonic(phrase)
}

// CheckPassword verifies password against the stored verifier. The error is
// set only when the verifier cannot be read.
func (m *Manager) CheckPassword(password string) (bool, error) {
	return m.vault.CheckPassword(password)
}

// verifyPassword is nil when password matches the stored verifier.
func (m *Manager) verifyPassword(password string) error {
	ok, err := m.vault.CheckPassword(password)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

// vaultSession binds the password of a new vault: the given one, else the
// one from SetWalletPassword.
func (m *Manager) vaultSession(password string) (*session, error) {
	if password != "" {
		return newSession(password, m.codec), nil
	}
	if m.pendingSession.alive() {
		return m.pendingSession.clone()
	}
	return nil, ErrInvalidPasswordType
}

// CreateVault creates the wallet and unlocks it with the first account of
// the default network. Replacing an existing wallet takes its password in
// CurrentPassword.
func (m *Manager) CreateVault(ctx context.Context, opts VaultOptions) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "create_vault", func(ctx context.Context) error {
		existing := m.State() != Uninitialized
		if existing && !opts.Reset {
			return ErrAlreadyInitialized
		}
		if existing {
			err := m.verifyPassword(opts.CurrentPassword)
			if err != nil {
				return err
			}
		}

		sess, err := m.vaultSession(opts.Password)
		if err != nil {
			return err
		}
		bound := false
		defer func() {
			if !bound {
				sess.destroy()
			}
		}()

		phrase := opts.Mnemonic
		if phrase == "" && m.pendingMnemonic != nil {
			buf, err := m.pendingMnemonic.Open()
			if err != nil {
				return err
			}
			phrase = string(buf.Bytes())
			buf.Destroy()
		}
		if phrase == "" {
			phrase, err = signer.NewMnemonic()
			if err != nil {
				return err
			}
		}
		seed, err := signer.SeedFromMnemonic(phrase)
		if err != nil {
			return err
		}
		defer zero(seed)

		if opts.Reset {
			m.lk.Lock()
			m.teardown()
			m.state = Uninitialized
			m.lk.Unlock()

			err = m.vault.Forget()
			if err != nil {
				return err
			}
		}

		enc, err := sess.Seal(signer.NormalizeMnemonic(phrase))
		if err != nil {
			return err
		}

		ws := types.NewWalletState()
		ws.Networks = m.networkTable()
		ws.ActiveNetwork = DefaultNetwork()

		sgs, err := m.buildSigners(seed, ws, sess)
		if err != nil {
			return err
		}

		acct, err = m.initVault(ws, sgs, sess, enc, opts.Label)
		if err != nil {
			closeSigners(sgs)
			ferr := m.vault.Forget()
			if ferr != nil {
				logger.Errorf("clean up after failed create: %s", ferr)
			}
			return err
		}

		bound = true
		m.clearPending()
		logger.Infof("created wallet, account %d on %s", acct.ID, ws.ActiveNetwork.Label)
		m.sink.Emit(EventUnlock, acct.Clone())

		// a restored seed may already hold funds
		refreshed, qerr := m.refresh(ctx)
		if refreshed != nil {
			acct = refreshed
		}
		return qerr
	})
	return partial(acct, err)
}

func (m *Manager) initVault(ws *types.WalletState, sgs map[types.ChainFamily]signer.Signer, sess *session, enc, label string) (*types.Account, error) {
	scope := ws.ActiveScope()
	s := sgs[scope.Family()]

	idx, am, err := s.DeriveNext()
	if err != nil {
		return nil, err
	}
	acct := newAccount(idx, label, scope.Family(), am)

	err = newDirectory(ws).Insert(scope, acct)
	if err != nil {
		return nil, err
	}
	ws.ActiveAccountID = idx

	var digest []byte
	err = sess.with(func(pw []byte) error {
		var err error
		digest, err = m.vault.Persist(ws, enc, pw)
		if err != nil {
			return err
		}
		return m.vault.SetPasswordVerifier(pw)
	})
	if err != nil {
		return nil, err
	}
	err = m.vault.WriteBootstrap(&vault.Bootstrap{Mnemonic: enc, ActiveNetwork: ws.ActiveNetwork, IsTestnet: ws.ActiveNetwork.IsTestnet})
	if err != nil {
		return nil, err
	}
	snap, err := m.vault.Snapshot(ws, true, digest)
	if err != nil {
		return nil, err
	}

	m.lk.Lock()
	m.state = Unlocked
	m.wallet = ws
	m.sess = sess
	m.signers = sgs
	m.encMnemonic = enc
	m.digest = digest
	m.lk.Unlock()

	m.sink.Emit(EventUpdate, snap)
	return acct.Clone(), nil
}

// Login unlocks the wallet and returns the refreshed active account. A
// *ChainQueryError next to the account means the balances are stale.
func (m *Manager) Login(ctx context.Context, password string) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "login", func(ctx context.Context) error {
		switch m.State() {
		case Uninitialized:
			return ErrNotInitialized
		case Unlocked:
			err := m.verifyPassword(password)
			if err != nil {
				return err
			}
		default:
			err := m.verifyPassword(password)
			if err != nil {
				return err
			}
			err = m.unlock(password)
			if err != nil {
				return err
			}
		}

		var qerr error
		acct, qerr = m.refresh(ctx)
		return qerr
	})
	return partial(acct, err)
}

// unlock loads the wallet, preferring the snapshot when it was written with
// the current vault blob and the bootstrap record still holds the mnemonic.
func (m *Manager) unlock(password string) error {
	snap, err := m.vault.ReadSnapshot()
	if err != nil {
		return err
	}
	boot, err := m.vault.ReadBootstrap()
	if err != nil {
		return err
	}
	digest, err := m.vault.VaultDigest()
	if err != nil {
		return err
	}

	var ws *types.WalletState
	var enc string
	if snap != nil && boot != nil && boot.Mnemonic != "" && digest != nil && bytes.Equal(snap.VaultDigest, digest) {
		logger.Debug("load wallet from snapshot")
		ws, enc = snap.Wallet, boot.Mnemonic
	} else {
		ws, enc, digest, err = m.vault.LoadEncrypted(password)
		if err != nil {
			return err
		}
	}
	if enc == "" {
		return xerrors.Errorf("vault holds no mnemonic: %w", ErrPersistence)
	}
	if ws.ActiveNetwork.Empty() {
		ws.ActiveNetwork = DefaultNetwork()
	}
	if len(ws.Networks) == 0 {
		ws.Networks = m.networkTable()
	}

	sess := newSession(password, m.codec)
	phrase, err := sess.Open(enc)
	if err != nil {
		sess.destroy()
		return ErrInvalidCredentials
	}
	seed, err := signer.SeedFromMnemonic(phrase)
	if err != nil {
		sess.destroy()
		return err
	}
	defer zero(seed)

	sgs, err := m.buildSigners(seed, ws, sess)
	if err != nil {
		sess.destroy()
		return err
	}

	// rebind the active account
	dir := newDirectory(ws)
	if id, ok := dir.Pick(ws.ActiveScope()); ok {
		ws.ActiveAccountID = id
	} else {
		s := sgs[ws.ActiveScope().Family()]
		idx, am, err := s.DeriveNext()
		if err == nil {
			err = dir.Insert(ws.ActiveScope(), newAccount(idx, "", s.Family(), am))
		}
		if err != nil {
			closeSigners(sgs)
			sess.destroy()
			return err
		}
		ws.ActiveAccountID = idx
		err = sess.with(func(pw []byte) error {
			var err error
			digest, err = m.vault.Persist(ws, enc, pw)
			return err
		})
		if err != nil {
			closeSigners(sgs)
			sess.destroy()
			return err
		}
	}

	err = m.vault.WriteBootstrap(&vault.Bootstrap{Mnemonic: enc, ActiveNetwork: ws.ActiveNetwork, IsTestnet: ws.ActiveNetwork.IsTestnet})
	if err == nil {
		_, err = m.vault.Snapshot(ws, true, digest)
	}
	if err != nil {
		closeSigners(sgs)
		sess.destroy()
		return err
	}

	m.lk.Lock()
	m.state = Unlocked
	m.wallet = ws
	m.sess = sess
	m.signers = sgs
	m.encMnemonic = enc
	m.digest = digest
	m.lk.Unlock()

	acct, _ := dir.Active()
	m.sink.Emit(EventUnlock, acct.Clone())
	return nil
}

// Logout locks the wallet. It always succeeds, write failures are logged.
func (m *Manager) Logout() {
	m.do(context.Background(), "logout", func(ctx context.Context) error {
		m.lk.Lock()
		if m.state != Unlocked {
			m.lk.Unlock()
			return nil
		}
		ws, digest := m.wallet, m.digest
		m.teardown()
		m.state = Locked
		m.lk.Unlock()

		err := m.vault.ClearBootstrap()
		if err != nil {
			logger.Warnf("clear bootstrap record: %s", err)
		}
		_, err = m.vault.Snapshot(ws, false, digest)
		if err != nil {
			logger.Warnf("write locked snapshot: %s", err)
		}

		m.sink.Emit(EventLock, nil)
		return nil
	})
}

// Close wipes in memory secrets without touching stored records.
func (m *Manager) Close() {
	m.sem.Acquire(context.Background(), 1)
	defer m.sem.Release(1)

	m.lk.Lock()
	if m.state == Unlocked {
		m.teardown()
		m.state = Locked
	}
	m.clearPending()
	m.lk.Unlock()
}

// AddAccount derives the next account of the active scope. The active
// account does not change.
func (m *Manager) AddAccount(ctx context.Context, label string) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "add_account", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		s := m.signers[next.ActiveScope().Family()]
		m.lk.RUnlock()

		scope := next.ActiveScope()
		dir := newDirectory(next)
		s.SetNextIndex(dir.NextIndex(scope))

		idx, am, err := s.DeriveNext()
		if err != nil {
			return err
		}
		acct = newAccount(idx, label, s.Family(), am)

		err = dir.Insert(scope, acct)
		if err == nil {
			err = m.commit(next)
		}
		if err != nil {
			m.syncSigners()
			return err
		}

		metrics.Inc(metrics.Tagged(ctx, metrics.ChainFamily, string(s.Family())), metrics.AccountsDerived)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct.Clone(), nil
}

func (m *Manager) RemoveAccount(ctx context.Context, id uint32) error {
	return m.do(ctx, "remove_account", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		m.lk.RUnlock()

		err = newDirectory(next).Remove(id)
		if err != nil {
			return err
		}
		return m.commit(next)
	})
}

func (m *Manager) SetAccountLabel(ctx context.Context, id uint32, label string) error {
	return m.do(ctx, "set_label", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}
		if label == "" {
			return xerrors.New("empty label")
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		m.lk.RUnlock()

		acct, ok := newDirectory(next).Get(next.ActiveScope(), id)
		if !ok {
			return ErrAccountNotFound
		}
		acct.Label = label
		return m.commit(next)
	})
}

// SetActiveAccount moves the active pointer within the active scope and
// refreshes the new active account.
func (m *Manager) SetActiveAccount(ctx context.Context, id uint32) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "set_active_account", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		m.lk.RUnlock()

		err = newDirectory(next).SetActive(id)
		if err != nil {
			return err
		}
		err = m.commit(next)
		if err != nil {
			return err
		}

		var qerr error
		acct, qerr = m.refresh(ctx)
		return qerr
	})
	return partial(acct, err)
}

// SwitchNetwork makes network the active one. The endpoint is probed first;
// an unreachable or mismatched endpoint leaves everything unchanged. The
// active account keeps its id when it exists in the target scope, otherwise
// the lowest id there is used, or the scope's first account is derived.
func (m *Manager) SwitchNetwork(ctx context.Context, network types.Network, family types.ChainFamily) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "switch_network", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}
		if network.ChainFamily == "" {
			network.ChainFamily = family
		}
		if network.ChainFamily != family || !family.Valid() {
			return xerrors.Errorf("network %s is not in family %q: %w", network, family, ErrInvalidNetwork)
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		s := m.signers[family]
		m.lk.RUnlock()

		reg := newRegistry(next)
		target, ok := reg.Get(family, network.ChainID)
		if !ok {
			return xerrors.Errorf("%s: %w", network, ErrUnknownNetwork)
		}

		prevNet := s.Network()
		err = s.SetNetwork(target)
		if err != nil {
			return err
		}
		restore := func() {
			err := s.SetNetwork(prevNet)
			if err != nil {
				logger.Errorf("restore %s signer network: %s", family, err)
			}
			m.syncSigners()
		}

		pctx, cancel := context.WithTimeout(ctx, m.queryTimeout)
		err = s.Probe(pctx)
		cancel()
		if err != nil {
			restore()
			return &ChainQueryError{Op: "probe", Network: target, Err: err}
		}

		err = reg.SetActive(target)
		if err != nil {
			restore()
			return err
		}

		scope := target.Scope()
		dir := newDirectory(next)
		if id, ok := dir.Pick(scope); ok {
			next.ActiveAccountID = id
		} else {
			s.SetNextIndex(dir.NextIndex(scope))
			idx, am, err := s.DeriveNext()
			if err == nil {
				err = dir.Insert(scope, newAccount(idx, "", family, am))
			}
			if err != nil {
				restore()
				return err
			}
			next.ActiveAccountID = idx
		}

		err = m.commit(next)
		if err != nil {
			restore()
			return err
		}
		m.syncSigners()

		err = m.vault.WriteBootstrap(&vault.Bootstrap{Mnemonic: m.encMnemonic, ActiveNetwork: target, IsTestnet: target.IsTestnet})
		if err != nil {
			logger.Warnf("update bootstrap record: %s", err)
		}

		logger.Infof("switched to %s (%s)", target.Label, target)

		var qerr error
		acct, qerr = m.refresh(ctx)
		return qerr
	})
	return partial(acct, err)
}

// AddNetwork registers a custom network or replaces an existing entry.
func (m *Manager) AddNetwork(ctx context.Context, network types.Network) error {
	return m.do(ctx, "add_network", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		m.lk.RUnlock()

		err = newRegistry(next).Put(network)
		if err != nil {
			return err
		}
		err = m.commit(next)
		if err != nil {
			return err
		}

		if next.ActiveNetwork.Same(network) {
			m.lk.RLock()
			s := m.signers[network.ChainFamily]
			m.lk.RUnlock()
			return s.SetNetwork(next.ActiveNetwork)
		}
		return nil
	})
}

func (m *Manager) RemoveNetwork(ctx context.Context, family types.ChainFamily, chainID uint64) error {
	return m.do(ctx, "remove_network", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}

		m.lk.RLock()
		next := m.wallet.Clone()
		m.lk.RUnlock()

		err = newRegistry(next).Remove(family, chainID)
		if err != nil {
			return err
		}
		return m.commit(next)
	})
}

// RefreshActiveAccount updates the active account's chain data.
func (m *Manager) RefreshActiveAccount(ctx context.Context) (*types.Account, error) {
	var acct *types.Account
	err := m.do(ctx, "refresh", func(ctx context.Context) error {
		err := m.requireUnlocked()
		if err != nil {
			return err
		}
		var qerr error
		acct, qerr = m.refresh(ctx)
		return qerr
	})
	return partial(acct, err)
}

func partial(acct *types.Account, err error) (*types.Account, error) {
	if err != nil && !(acct != nil && IsChainQuery(err)) {
		return nil, err
	}
	return acct, err
}

func (m *Manager) GetEncryptedMnemonic() (string, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return "", err
	}
	return m.encMnemonic, nil
}

func (m *Manager) GetDecryptedMnemonic() (string, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return "", err
	}
	return m.sess.Open(m.encMnemonic)
}

// GetPrivateKey exports the key of an account in the active scope.
func (m *Manager) GetPrivateKey(id uint32) (string, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return "", err
	}

	acct, ok := newDirectory(m.wallet).Get(m.wallet.ActiveScope(), id)
	if !ok {
		return "", ErrAccountNotFound
	}
	return m.signers[acct.Family].PrivateKey(acct)
}

func (m *Manager) SignMessage(ctx context.Context, msg []byte) (string, error) {
	var sig string
	err := m.do(ctx, "sign_message", func(ctx context.Context) error {
		s, acct, err := m.activeSigner()
		if err != nil {
			return err
		}
		sig, err = s.SignMessage(acct, msg)
		return err
	})
	return sig, err
}

// SignTransaction signs with the active account: a base64 psbt on syscoin,
// a binary encoded transaction on ethereum networks.
func (m *Manager) SignTransaction(ctx context.Context, payload []byte, opts signer.SignOptions) ([]byte, error) {
	var res []byte
	err := m.do(ctx, "sign_transaction", func(ctx context.Context) error {
		s, acct, err := m.activeSigner()
		if err != nil {
			return err
		}
		res, err = s.SignTransaction(ctx, acct, payload, opts)
		return err
	})
	return res, err
}

// ForgetWallet deletes every stored record once password checks out.
func (m *Manager) ForgetWallet(ctx context.Context, password string) error {
	return m.do(ctx, "forget", func(ctx context.Context) error {
		ok, err := m.vault.HasPasswordVerifier()
		if err != nil {
			return err
		}
		if !ok && m.State() == Uninitialized {
			return ErrNotInitialized
		}
		err = m.verifyPassword(password)
		if err != nil {
			return err
		}

		m.lk.Lock()
		m.teardown()
		m.state = Uninitialized
		m.clearPending()
		m.lk.Unlock()

		err = m.vault.Forget()
		if err != nil {
			return err
		}

		logger.Info("wallet forgotten")
		m.sink.Emit(EventLock, nil)
		return nil
	})
}

// ActiveAccount is a copy of the active account.
func (m *Manager) ActiveAccount() (*types.Account, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return nil, err
	}
	acct, ok := newDirectory(m.wallet).Active()
	if !ok {
		return nil, ErrAccountNotFound
	}
	return acct.Clone(), nil
}

// Accounts lists copies of the accounts of scope, the active scope when
// scope is empty.
func (m *Manager) Accounts(scope types.Scope) ([]*types.Account, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return nil, err
	}
	if scope == "" {
		scope = m.wallet.ActiveScope()
	}
	accs := newDirectory(m.wallet).List(scope)
	res := make([]*types.Account, 0, len(accs))
	for _, a := range accs {
		res = append(res, a.Clone())
	}
	return res, nil
}

func (m *Manager) ActiveNetwork() (types.Network, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return types.Network{}, err
	}
	return m.wallet.ActiveNetwork, nil
}

// Networks lists the registered networks of family, all when family is
// empty.
func (m *Manager) Networks(family types.ChainFamily) ([]types.Network, error) {
	m.lk.RLock()
	defer m.lk.RUnlock()
	err := m.stateErr()
	if err != nil {
		return nil, err
	}
	return newRegistry(m.wallet).List(family), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
