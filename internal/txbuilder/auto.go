package txbuilder

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

type AutoBuilderConfig struct {
	GasLimitMultiplier float64
}

// AutoBuilder fills in fees (and, for approvals, nonce and gas) from the
// chain before handing the transaction to Builder.
type AutoBuilder struct {
	builder *Builder
	client  ChainClient
	oracle  *FeeOracle
	cfg     AutoBuilderConfig
}

func NewAutoBuilder(builder *Builder, client ChainClient, oracle *FeeOracle, cfg AutoBuilderConfig) *AutoBuilder {
	if cfg.GasLimitMultiplier <= 0 {
		cfg.GasLimitMultiplier = 1.2
	}
	return &AutoBuilder{builder: builder, client: client, oracle: oracle, cfg: cfg}
}

func (a *AutoBuilder) Start(ctx context.Context) {
	if a.oracle == nil {
		return
	}
	a.oracle.Start(ctx)
}

// BuildApproveTx uses the account's pending nonce and an estimated gas limit.
func (a *AutoBuilder) BuildApproveTx(ctx context.Context, from common.Address, token common.Address, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	if a.builder == nil || a.client == nil {
		return nil, errors.New("builder and client are required")
	}
	data, err := uniswap.PackApprove(spender, amount)
	if err != nil {
		return nil, err
	}
	fees, err := a.fees(ctx)
	if err != nil {
		return nil, err
	}
	nonce, err := a.client.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, err
	}
	gasLimit, err := a.estimateGas(ctx, from, token, big.NewInt(0), data, fees)
	if err != nil {
		return nil, err
	}
	return a.builder.BuildApproveTx(token, spender, amount, BuildParams{
		Nonce:    nonce,
		GasLimit: gasLimit,
		Fee:      fees,
	})
}

// BuildSwapTx uses the caller's nonce and a fixed gas limit; the swap retry
// loop owns both.
func (a *AutoBuilder) BuildSwapTx(ctx context.Context, router common.Address, swap uniswap.ExactInputSingleParams, nonce uint64, gasLimit uint64) (*types.Transaction, error) {
	if a.builder == nil {
		return nil, errors.New("builder is required")
	}
	fees, err := a.fees(ctx)
	if err != nil {
		return nil, err
	}
	return a.builder.BuildSwapTx(router, swap, BuildParams{
		Nonce:    nonce,
		GasLimit: gasLimit,
		Fee:      fees,
	})
}

func (a *AutoBuilder) ChainID() *big.Int {
	if a.builder == nil || a.builder.ChainID == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(a.builder.ChainID)
}

func (a *AutoBuilder) fees(ctx context.Context) (FeeParams, error) {
	if a.oracle == nil {
		return FeeParams{}, errors.New("fee oracle is not configured")
	}
	return a.oracle.Fees(ctx)
}

func (a *AutoBuilder) estimateGas(ctx context.Context, from common.Address, to common.Address, value *big.Int, data []byte, fees FeeParams) (uint64, error) {
	msg := ethereum.CallMsg{
		From:      from,
		To:        &to,
		Value:     value,
		Data:      data,
		GasFeeCap: fees.MaxFeePerGas,
		GasTipCap: fees.MaxPriorityFeePerGas,
	}
	gas, err := a.client.EstimateGas(ctx, msg)
	if err != nil {
		return 0, &EstimateGasError{Err: err, CallMsg: msg}
	}
	return applyGasMultiplier(gas, a.cfg.GasLimitMultiplier), nil
}

func applyGasMultiplier(gas uint64, mult float64) uint64 {
	if mult <= 0 {
		return gas
	}
	adjusted := uint64(float64(gas) * mult)
	if adjusted < gas {
		return gas
	}
	return adjusted
}

func GweiToWei(gwei float64) (*big.Int, error) {
	if gwei < 0 {
		return nil, errors.New("gwei must be non-negative")
	}
	v := new(big.Rat).SetFloat64(gwei)
	v.Mul(v, new(big.Rat).SetInt(big.NewInt(1_000_000_000)))
	out := new(big.Int)
	out.Div(v.Num(), v.Denom())
	return out, nil
}
