package vault

import (
	"encoding/json"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
	"golang.org/x/xerrors"

	"github.com/Pollum-io/sysweb3/lib/crypto/codec"
	logging "github.com/Pollum-io/sysweb3/lib/log"
	"github.com/Pollum-io/sysweb3/lib/types"
	"github.com/Pollum-io/sysweb3/lib/types/store"
)

var logger = logging.Logger("vault")

var (
	vaultKey     = []byte("vault")
	verifierKey  = []byte("vault-key")
	bootstrapKey = []byte("signers-key")
	snapshotKey  = []byte("keyring")
)

var (
	ErrInvalidPasswordType = xerrors.New("invalid password type")
	ErrInvalidCredentials  = xerrors.New("invalid credentials")
	ErrPersistence         = xerrors.New("persistence failure")
)

// Snapshot is the plaintext view of the wallet kept next to the vault blob.
// VaultDigest ties it to the blob it was written with.
type Snapshot struct {
	Wallet      *types.WalletState `cbor:"1,keyasint"`
	Unlocked    bool               `cbor:"2,keyasint"`
	VaultDigest []byte             `cbor:"3,keyasint"`
	UpdatedAt   int64              `cbor:"4,keyasint"`
}

// Bootstrap lets signers be rebuilt without decrypting the vault. The
// mnemonic is codec ciphertext and is cleared on logout.
type Bootstrap struct {
	Mnemonic      string        `cbor:"1,keyasint"`
	ActiveNetwork types.Network `cbor:"2,keyasint"`
	IsTestnet     bool          `cbor:"3,keyasint"`
}

type vaultContent struct {
	Wallet   *types.WalletState `json:"wallet"`
	Mnemonic string             `json:"mnemonic"`
}

// Store keeps the four keyring records in a store.Store.
type Store struct {
	ds    store.Store
	codec *codec.Codec
}

func New(ds store.Store, c *codec.Codec) *Store {
	if c == nil {
		c = codec.Standard()
	}
	return &Store{ds: ds, codec: c}
}

func (s *Store) Codec() *codec.Codec {
	return s.codec
}

func persistErr(op string, err error) error {
	return xerrors.Errorf("%s: %s: %w", op, err, ErrPersistence)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Digest identifies a vault blob.
func Digest(blob []byte) []byte {
	h := blake3.Sum256(blob)
	return h[:]
}

// Exists reports whether a vault blob is stored.
func (s *Store) Exists() (bool, error) {
	ok, err := s.ds.Has(vaultKey)
	if err != nil {
		return false, persistErr("has vault", err)
	}
	return ok, nil
}

// Persist encrypts the wallet with mnemonic under password and writes the
// vault blob. It returns the digest of the written blob.
func (s *Store) Persist(ws *types.WalletState, encryptedMnemonic string, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, ErrInvalidPasswordType
	}

	pt, err := json.Marshal(&vaultContent{Wallet: ws, Mnemonic: encryptedMnemonic})
	if err != nil {
		return nil, xerrors.Errorf("marshal vault: %w", err)
	}

	ct, err := s.codec.EncryptBytes(pt, password)
	zero(pt)
	if err != nil {
		return nil, err
	}

	blob := []byte(ct)
	err = s.ds.Put(vaultKey, blob)
	if err != nil {
		return nil, persistErr("put vault", err)
	}

	return Digest(blob), nil
}

// LoadEncrypted decrypts the vault blob. Without a blob it returns an empty
// default state.
func (s *Store) LoadEncrypted(password string) (*types.WalletState, string, []byte, error) {
	blob, err := s.ds.Get(vaultKey)
	if err != nil {
		return nil, "", nil, persistErr("get vault", err)
	}
	if blob == nil {
		return types.NewWalletState(), "", nil, nil
	}

	pt, err := s.codec.Decrypt(string(blob), password)
	if err != nil {
		return nil, "", nil, ErrInvalidCredentials
	}

	var vc vaultContent
	err = json.Unmarshal([]byte(pt), &vc)
	if err != nil {
		return nil, "", nil, xerrors.Errorf("decode vault: %s: %w", err, ErrPersistence)
	}
	if vc.Wallet == nil {
		vc.Wallet = types.NewWalletState()
	}
	vc.Wallet.Normalize()

	return vc.Wallet, vc.Mnemonic, Digest(blob), nil
}

// VaultDigest is the digest of the stored blob, nil when there is none.
func (s *Store) VaultDigest() ([]byte, error) {
	blob, err := s.ds.Get(vaultKey)
	if err != nil {
		return nil, persistErr("get vault", err)
	}
	if blob == nil {
		return nil, nil
	}
	return Digest(blob), nil
}

func (s *Store) Snapshot(ws *types.WalletState, unlocked bool, digest []byte) (*Snapshot, error) {
	snap := &Snapshot{
		Wallet:      ws,
		Unlocked:    unlocked,
		VaultDigest: digest,
		UpdatedAt:   time.Now().Unix(),
	}

	b, err := cbor.Marshal(snap)
	if err != nil {
		return nil, xerrors.Errorf("marshal snapshot: %w", err)
	}

	err = s.ds.Put(snapshotKey, b)
	if err != nil {
		return nil, persistErr("put snapshot", err)
	}
	return snap, nil
}

// ReadSnapshot returns nil when no snapshot was written.
func (s *Store) ReadSnapshot() (*Snapshot, error) {
	b, err := s.ds.Get(snapshotKey)
	if err != nil {
		return nil, persistErr("get snapshot", err)
	}
	if b == nil {
		return nil, nil
	}

	snap := new(Snapshot)
	err = cbor.Unmarshal(b, snap)
	if err != nil {
		logger.Warnf("drop unreadable snapshot: %s", err)
		return nil, nil
	}
	if snap.Wallet == nil {
		snap.Wallet = types.NewWalletState()
	}
	snap.Wallet.Normalize()
	return snap, nil
}

func (s *Store) SetPasswordVerifier(password []byte) error {
	if len(password) == 0 {
		return ErrInvalidPasswordType
	}

	v, err := s.codec.NewVerifier(password)
	if err != nil {
		return err
	}

	b, err := cbor.Marshal(v)
	if err != nil {
		return xerrors.Errorf("marshal verifier: %w", err)
	}

	err = s.ds.Put(verifierKey, b)
	if err != nil {
		return persistErr("put verifier", err)
	}
	return nil
}

// HasPasswordVerifier reports whether a password was set.
func (s *Store) HasPasswordVerifier() (bool, error) {
	ok, err := s.ds.Has(verifierKey)
	if err != nil {
		return false, persistErr("has verifier", err)
	}
	return ok, nil
}

// CheckPassword is false for a wrong password or a missing verifier. Only a
// failed or unreadable read is an error.
func (s *Store) CheckPassword(password string) (bool, error) {
	if password == "" {
		return false, nil
	}

	b, err := s.ds.Get(verifierKey)
	if err != nil {
		return false, persistErr("get verifier", err)
	}
	if b == nil {
		return false, nil
	}

	v := new(codec.Verifier)
	err = cbor.Unmarshal(b, v)
	if err != nil {
		return false, xerrors.Errorf("decode verifier: %s: %w", err, ErrPersistence)
	}
	return v.Check(password), nil
}

func (s *Store) WriteBootstrap(b *Bootstrap) error {
	buf, err := cbor.Marshal(b)
	if err != nil {
		return xerrors.Errorf("marshal bootstrap: %w", err)
	}
	err = s.ds.Put(bootstrapKey, buf)
	if err != nil {
		return persistErr("put bootstrap", err)
	}
	return nil
}

// ReadBootstrap returns nil when the record is absent.
func (s *Store) ReadBootstrap() (*Bootstrap, error) {
	buf, err := s.ds.Get(bootstrapKey)
	if err != nil {
		return nil, persistErr("get bootstrap", err)
	}
	if buf == nil {
		return nil, nil
	}

	b := new(Bootstrap)
	err = cbor.Unmarshal(buf, b)
	if err != nil {
		logger.Warnf("drop unreadable bootstrap record: %s", err)
		return nil, nil
	}
	return b, nil
}

// ClearBootstrap drops the mnemonic from the bootstrap record and keeps the
// network hint.
func (s *Store) ClearBootstrap() error {
	b, err := s.ReadBootstrap()
	if err != nil {
		return err
	}
	if b == nil {
		return nil
	}
	b.Mnemonic = ""
	return s.WriteBootstrap(b)
}

// Forget deletes every keyring record.
func (s *Store) Forget() error {
	for _, key := range [][]byte{vaultKey, verifierKey, bootstrapKey, snapshotKey} {
		err := s.ds.Delete(key)
		if err != nil {
			return persistErr("delete "+string(key), err)
		}
	}
	return nil
}
