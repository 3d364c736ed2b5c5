// Package keys provides the signing credential for outgoing transactions.
package keys

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/config"
)

type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

type PrivateKeySigner struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func NewPrivateKeySigner(privateKeyHex string) (*PrivateKeySigner, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if keyHex == "" {
		return nil, errors.New("private key is empty")
	}
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("keys: invalid private key: %w", err)
	}
	return &PrivateKeySigner{key: pk, addr: ethcrypto.PubkeyToAddress(pk.PublicKey)}, nil
}

func (s *PrivateKeySigner) Address() common.Address {
	return s.addr
}

func (s *PrivateKeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if tx == nil {
		return nil, errors.New("transaction is nil")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// FromConfig prefers a raw private key and falls back to the keystore.
func FromConfig(cfg *config.Config) (Signer, error) {
	if cfg.Wallet.PrivateKey != "" {
		s, err := NewPrivateKeySigner(cfg.Wallet.PrivateKey)
		if err != nil {
			return nil, err
		}
		if cfg.Wallet.Address != "" && s.Address() != common.HexToAddress(cfg.Wallet.Address) {
			return nil, fmt.Errorf("keys: private key address %s does not match wallet.address %s", s.Address().Hex(), cfg.Wallet.Address)
		}
		return s, nil
	}
	m, err := NewManager(cfg.Wallet.KeystoreDir, os.Getenv(cfg.Wallet.PassphraseEnv))
	if err != nil {
		return nil, err
	}
	var addr common.Address
	if cfg.Wallet.Address != "" {
		addr = common.HexToAddress(cfg.Wallet.Address)
	}
	return m.Signer(addr)
}
