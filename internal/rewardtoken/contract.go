package rewardtoken

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ContractConfig is the immutable connection and signing configuration shared
// by Reader, Writer and Distributor. It is built once at startup.
type ContractConfig struct {
	address    common.Address
	hasAddress bool
	key        *ecdsa.PrivateKey
	rpcURL     string
	chainID    *big.Int
}

// NewContractConfig validates its inputs. An empty contractAddress is allowed
// and later reported as ErrNotConfigured; an empty signingKeyHex yields a
// read-only config. chainID may be nil, in which case it is asked from the node.
func NewContractConfig(contractAddress, signingKeyHex, rpcURL string, chainID *big.Int) (ContractConfig, error) {
	cfg := ContractConfig{rpcURL: strings.TrimSpace(rpcURL)}
	if a := strings.TrimSpace(contractAddress); a != "" {
		addr, err := ParseAddress(a)
		if err != nil {
			return ContractConfig{}, fmt.Errorf("contract address: %w", err)
		}
		cfg.address, cfg.hasAddress = addr, true
	}
	if strings.TrimSpace(signingKeyHex) != "" {
		key, err := hexToECDSAPriv(signingKeyHex)
		if err != nil {
			return ContractConfig{}, fmt.Errorf("signing key: %w", err)
		}
		cfg.key = key
	}
	if chainID != nil {
		cfg.chainID = new(big.Int).Set(chainID)
	}
	return cfg, nil
}

// ContractAddress returns the token contract address and whether it is set.
func (c ContractConfig) ContractAddress() (common.Address, bool) {
	return c.address, c.hasAddress
}

// WithAddress returns a copy of c pointing at addr, as used right after a
// deployment.
func (c ContractConfig) WithAddress(addr common.Address) ContractConfig {
	c.address, c.hasAddress = addr, true
	c.chainID = c.ChainID()
	return c
}

// Configured reports whether a contract address is present.
func (c ContractConfig) Configured() bool { return c.hasAddress }

func (c ContractConfig) RPCURL() string { return c.rpcURL }

// ChainID returns a copy of the configured chain ID, or nil.
func (c ContractConfig) ChainID() *big.Int {
	if c.chainID == nil {
		return nil
	}
	return new(big.Int).Set(c.chainID)
}

// Sender returns the address derived from the signing key, if any.
func (c ContractConfig) Sender() (common.Address, bool) {
	if c.key == nil {
		return common.Address{}, false
	}
	return gethcrypto.PubkeyToAddress(c.key.PublicKey), true
}

func (c ContractConfig) String() string {
	addr := "<unset>"
	if c.hasAddress {
		addr = lower(c.address)
	}
	return fmt.Sprintf("contract=%s rpc=%s", addr, c.rpcURL)
}

// Parse hex ECDSA private key (with / without 0x).
func hexToECDSAPriv(s string) (*ecdsa.PrivateKey, error) {
	h := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if len(h) == 0 {
		return nil, errors.New("empty private key")
	}
	return gethcrypto.HexToECDSA(h)
}
