package txbuilder

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

type FeeParams struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

type BuildParams struct {
	Nonce    uint64
	GasLimit uint64
	Fee      FeeParams
}

// Builder assembles unsigned EIP-1559 transactions for the swap flow.
type Builder struct {
	ChainID *big.Int
}

func NewBuilder(chainID *big.Int) *Builder {
	return &Builder{ChainID: new(big.Int).Set(chainID)}
}

func (b *Builder) BuildApproveTx(token common.Address, spender common.Address, amount *big.Int, p BuildParams) (*types.Transaction, error) {
	data, err := uniswap.PackApprove(spender, amount)
	if err != nil {
		return nil, err
	}
	return buildDynamicTx(b.ChainID, token, big.NewInt(0), data, p)
}

func (b *Builder) BuildSwapTx(router common.Address, swap uniswap.ExactInputSingleParams, p BuildParams) (*types.Transaction, error) {
	data, err := uniswap.PackExactInputSingle(swap)
	if err != nil {
		return nil, err
	}
	return buildDynamicTx(b.ChainID, router, big.NewInt(0), data, p)
}

func buildDynamicTx(chainID *big.Int, to common.Address, value *big.Int, data []byte, p BuildParams) (*types.Transaction, error) {
	if chainID == nil {
		return nil, errors.New("chainID is required")
	}
	if value == nil {
		return nil, errors.New("value is required")
	}
	if p.GasLimit == 0 {
		return nil, errors.New("gasLimit is required")
	}
	if p.Fee.MaxFeePerGas == nil || p.Fee.MaxPriorityFeePerGas == nil {
		return nil, errors.New("maxFeePerGas and maxPriorityFeePerGas are required")
	}
	if p.Fee.MaxFeePerGas.Sign() < 0 || p.Fee.MaxPriorityFeePerGas.Sign() < 0 {
		return nil, errors.New("fee values must be non-negative")
	}
	if p.Fee.MaxPriorityFeePerGas.Cmp(p.Fee.MaxFeePerGas) > 0 {
		return nil, errors.New("maxPriorityFeePerGas exceeds maxFeePerGas")
	}
	if value.Sign() < 0 {
		return nil, errors.New("value must be non-negative")
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     p.Nonce,
		Gas:       p.GasLimit,
		GasFeeCap: p.Fee.MaxFeePerGas,
		GasTipCap: p.Fee.MaxPriorityFeePerGas,
		To:        &to,
		Value:     value,
		Data:      data,
	}), nil
}
