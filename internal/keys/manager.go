package keys

import (
	"errors"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Manager signs with accounts held in an encrypted go-ethereum keystore.
type Manager struct {
	ks         *keystore.KeyStore
	passphrase string
}

func NewManager(dir string, passphrase string) (*Manager, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("keystore dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	return &Manager{ks: ks, passphrase: passphrase}, nil
}

func (m *Manager) Accounts() []common.Address {
	acctList := m.ks.Accounts()
	out := make([]common.Address, 0, len(acctList))
	for _, acct := range acctList {
		out = append(out, acct.Address)
	}
	return out
}

func (m *Manager) FindAccount(addr common.Address) (accounts.Account, error) {
	for _, acct := range m.ks.Accounts() {
		if acct.Address == addr {
			return acct, nil
		}
	}
	return accounts.Account{}, errors.New("account not found")
}

func (m *Manager) SignTransaction(addr common.Address, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if m.passphrase == "" {
		return nil, errors.New("keystore passphrase is empty")
	}
	acct, err := m.FindAccount(addr)
	if err != nil {
		return nil, err
	}
	return m.ks.SignTxWithPassphrase(acct, m.passphrase, tx, chainID)
}

// Signer binds the manager to one account. An empty addr selects the first
// account in the keystore.
func (m *Manager) Signer(addr common.Address) (Signer, error) {
	if addr == (common.Address{}) {
		all := m.Accounts()
		if len(all) == 0 {
			return nil, errors.New("keystore has no accounts")
		}
		addr = all[0]
	}
	if _, err := m.FindAccount(addr); err != nil {
		return nil, err
	}
	return &keystoreSigner{m: m, addr: addr}, nil
}

type keystoreSigner struct {
	m    *Manager
	addr common.Address
}

func (s *keystoreSigner) Address() common.Address {
	return s.addr
}

func (s *keystoreSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return s.m.SignTransaction(s.addr, tx, chainID)
}
