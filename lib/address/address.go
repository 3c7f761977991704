package address

import (
	"errors"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrInvalidLength is returned when encountering an address or key of invalid length.
	ErrInvalidLength = errors.New("invalid address length")
	// ErrInvalidChecksum is returned when a mixed case EVM address fails EIP-55.
	ErrInvalidChecksum = errors.New("invalid address checksum")
	// ErrWrongNetwork is returned when an address belongs to another network.
	ErrWrongNetwork = errors.New("address is for another network")
)

// BIP44 coin types
const (
	SyscoinCoinType  = 57
	TestnetCoinType  = 1
	EthereumCoinType = 60
)

// SyscoinMainNetParams encodes native segwit addresses with the sys HRP and
// extended keys as zpub/zprv.
var SyscoinMainNetParams = func() chaincfg.Params {
	p := chaincfg.MainNetParams
	p.Name = "syscoin"
	p.Net = wire.BitcoinNet(0xcee2caff)
	p.Bech32HRPSegwit = "sys"
	p.PubKeyHashAddrID = 0x3f
	p.ScriptHashAddrID = 0x05
	p.PrivateKeyID = 0x80
	p.HDPrivateKeyID = [4]byte{0x04, 0xb2, 0x43, 0x0c} // zprv
	p.HDPublicKeyID = [4]byte{0x04, 0xb2, 0x47, 0x46}  // zpub
	p.HDCoinType = SyscoinCoinType
	return p
}()

// SyscoinTestNetParams uses tsys and vpub/vprv.
var SyscoinTestNetParams = func() chaincfg.Params {
	p := chaincfg.TestNet3Params
	p.Name = "syscoin-testnet"
	p.Net = wire.BitcoinNet(0xcee2cafe)
	p.Bech32HRPSegwit = "tsys"
	p.PubKeyHashAddrID = 0x41
	p.ScriptHashAddrID = 0xc4
	p.PrivateKeyID = 0xef
	p.HDPrivateKeyID = [4]byte{0x04, 0x5f, 0x18, 0xbc} // vprv
	p.HDPublicKeyID = [4]byte{0x04, 0x5f, 0x1c, 0xf6}  // vpub
	p.HDCoinType = TestnetCoinType
	return p
}()

func init() {
	// DecodeAddress only knows registered HRPs
	for _, p := range []*chaincfg.Params{&SyscoinMainNetParams, &SyscoinTestNetParams} {
		if err := chaincfg.Register(p); err != nil && err != chaincfg.ErrDuplicateNet {
			panic(err)
		}
	}
}

// SyscoinParams picks the chain parameters for the network classification.
func SyscoinParams(testnet bool) *chaincfg.Params {
	if testnet {
		return &SyscoinTestNetParams
	}
	return &SyscoinMainNetParams
}

// ToEthAddress returns the 20 byte account address of an uncompressed
// secp256k1 public key (65 bytes).
func ToEthAddress(pubkey []byte) ([]byte, error) {
	if len(pubkey) != 65 {
		return nil, ErrInvalidLength
	}

	d := sha3.NewLegacyKeccak256()
	d.Write(pubkey[1:])
	payload := d.Sum(nil)
	return payload[12:], nil
}

// ValidateEthereum accepts lower/upper case hex and EIP-55 mixed case.
func ValidateEthereum(addr string) error {
	if !common.IsHexAddress(addr) {
		return ErrInvalidLength
	}

	body := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}

	if common.HexToAddress(addr).Hex() != "0x"+body {
		return ErrInvalidChecksum
	}
	return nil
}

// ValidateSyscoin checks an address decodes for the given classification.
func ValidateSyscoin(addr string, testnet bool) error {
	params := SyscoinParams(testnet)
	a, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return err
	}
	if !a.IsForNet(params) {
		return ErrWrongNetwork
	}
	return nil
}
