// Package uniswap binds the Uniswap V3 factory, pool, QuoterV2 and SwapRouter
// contracts plus the ERC-20 calls the swap flow needs.
package uniswap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// FeeTier is a pool fee in hundredths of a bip (500 = 0.05%).
type FeeTier uint32

func (f FeeTier) String() string {
	return strconv.FormatUint(uint64(f), 10)
}

func (f FeeTier) big() *big.Int {
	return new(big.Int).SetUint64(uint64(f))
}

type Pool struct {
	Address   common.Address
	Liquidity *big.Int
}

type QuoteParams struct {
	TokenIn  common.Address
	TokenOut common.Address
	AmountIn *big.Int
	Fee      FeeTier
}

type QuoteResult struct {
	AmountOut               *big.Int
	SqrtPriceX96After       *big.Int
	InitializedTicksCrossed uint32
	GasEstimate             *big.Int
}

// ExactInputSingleParams mirrors ISwapRouter.ExactInputSingleParams.
type ExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               FeeTier
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Reader performs read-only calls against the AMM and token contracts.
type Reader struct {
	caller  ethereum.ContractCaller
	factory common.Address
	quoter  common.Address
}

func NewReader(caller ethereum.ContractCaller, factory, quoter common.Address) *Reader {
	return &Reader{caller: caller, factory: factory, quoter: quoter}
}

func (r *Reader) GetPool(ctx context.Context, tokenA, tokenB common.Address, fee FeeTier) (common.Address, error) {
	out, err := r.call(ctx, factoryABI, r.factory, "getPool", tokenA, tokenB, fee.big())
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("getPool: unexpected output type %T", out[0])
	}
	return addr, nil
}

func (r *Reader) Liquidity(ctx context.Context, pool common.Address) (*big.Int, error) {
	out, err := r.call(ctx, poolABI, pool, "liquidity")
	if err != nil {
		return nil, err
	}
	return bigOutput("liquidity", out[0])
}

// PoolWithLiquidity returns nil without error when the pool does not exist
// or currently holds zero liquidity.
func (r *Reader) PoolWithLiquidity(ctx context.Context, tokenIn, tokenOut common.Address, fee FeeTier) (*Pool, error) {
	addr, err := r.GetPool(ctx, tokenIn, tokenOut, fee)
	if err != nil {
		return nil, err
	}
	if addr == (common.Address{}) {
		return nil, nil
	}
	liq, err := r.Liquidity(ctx, addr)
	if err != nil {
		return nil, err
	}
	if liq.Sign() == 0 {
		return nil, nil
	}
	return &Pool{Address: addr, Liquidity: liq}, nil
}

type quoteExactInputSingleArgs struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// QuoteExactInputSingle simulates a single-pool exact-input swap with no
// price limit.
func (r *Reader) QuoteExactInputSingle(ctx context.Context, p QuoteParams) (*QuoteResult, error) {
	if p.AmountIn == nil {
		return nil, errors.New("amountIn is required")
	}
	args := quoteExactInputSingleArgs{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		AmountIn:          p.AmountIn,
		Fee:               p.Fee.big(),
		SqrtPriceLimitX96: big.NewInt(0),
	}
	out, err := r.call(ctx, quoterV2ABI, r.quoter, "quoteExactInputSingle", args)
	if err != nil {
		return nil, err
	}
	if len(out) != 4 {
		return nil, fmt.Errorf("quoteExactInputSingle: expected 4 outputs, got %d", len(out))
	}
	amountOut, err := bigOutput("amountOut", out[0])
	if err != nil {
		return nil, err
	}
	sqrtAfter, err := bigOutput("sqrtPriceX96After", out[1])
	if err != nil {
		return nil, err
	}
	ticks, ok := out[2].(uint32)
	if !ok {
		return nil, fmt.Errorf("initializedTicksCrossed: unexpected output type %T", out[2])
	}
	gas, err := bigOutput("gasEstimate", out[3])
	if err != nil {
		return nil, err
	}
	return &QuoteResult{
		AmountOut:               amountOut,
		SqrtPriceX96After:       sqrtAfter,
		InitializedTicksCrossed: ticks,
		GasEstimate:             gas,
	}, nil
}

func (r *Reader) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := r.call(ctx, erc20ABI, token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return bigOutput("allowance", out[0])
}

func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.call(ctx, erc20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected output type %T", out[0])
	}
	return d, nil
}

func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if r.caller == nil {
		return nil, errors.New("contract caller is nil")
	}
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}
	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("%s: unpack: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty result", method)
	}
	return out, nil
}

func bigOutput(name string, v interface{}) (*big.Int, error) {
	b, ok := v.(*big.Int)
	if !ok || b == nil {
		return nil, fmt.Errorf("%s: unexpected output type %T", name, v)
	}
	return b, nil
}
