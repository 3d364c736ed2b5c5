package keys

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestPrivateKeySignerRecoversSender(t *testing.T) {
	s, err := NewPrivateKeySigner(testKey)
	require.NoError(t, err)

	pk, err := ethcrypto.HexToECDSA(testKey[2:])
	require.NoError(t, err)
	require.Equal(t, ethcrypto.PubkeyToAddress(pk.PublicKey), s.Address())

	chainID := big.NewInt(42161)
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     3,
		Gas:       21000,
		GasFeeCap: big.NewInt(2),
		GasTipCap: big.NewInt(1),
		To:        &to,
		Value:     big.NewInt(0),
	})
	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	from, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	require.Equal(t, s.Address(), from)
}

func TestPrivateKeySignerRejectsGarbage(t *testing.T) {
	_, err := NewPrivateKeySigner("")
	require.Error(t, err)
	_, err = NewPrivateKeySigner("0xnothex")
	require.Error(t, err)
}

func TestKeystoreSignerWithoutAccounts(t *testing.T) {
	m, err := NewManager(t.TempDir(), "pw")
	require.NoError(t, err)
	_, err = m.Signer(common.Address{})
	require.Error(t, err)
}
