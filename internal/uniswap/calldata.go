package uniswap

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type exactInputSingleArgs struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Fee               *big.Int
	Recipient         common.Address
	Deadline          *big.Int
	AmountIn          *big.Int
	AmountOutMinimum  *big.Int
	SqrtPriceLimitX96 *big.Int
}

// PackExactInputSingle encodes SwapRouter.exactInputSingle calldata. A nil
// SqrtPriceLimitX96 is encoded as zero (no price limit).
func PackExactInputSingle(p ExactInputSingleParams) ([]byte, error) {
	if p.AmountIn == nil || p.AmountOutMinimum == nil || p.Deadline == nil {
		return nil, errors.New("amountIn, amountOutMinimum and deadline are required")
	}
	limit := p.SqrtPriceLimitX96
	if limit == nil {
		limit = big.NewInt(0)
	}
	return swapRouterABI.Pack("exactInputSingle", exactInputSingleArgs{
		TokenIn:           p.TokenIn,
		TokenOut:          p.TokenOut,
		Fee:               p.Fee.big(),
		Recipient:         p.Recipient,
		Deadline:          p.Deadline,
		AmountIn:          p.AmountIn,
		AmountOutMinimum:  p.AmountOutMinimum,
		SqrtPriceLimitX96: limit,
	})
}

func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	if amount == nil {
		return nil, errors.New("amount is required")
	}
	return erc20ABI.Pack("approve", spender, amount)
}

// UnpackExactInputSingle decodes the amountOut returned by a simulated
// exactInputSingle call.
func UnpackExactInputSingle(out []byte) (*big.Int, error) {
	values, err := swapRouterABI.Unpack("exactInputSingle", out)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, errors.New("unexpected exactInputSingle output")
	}
	amountOut, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected exactInputSingle output type")
	}
	return amountOut, nil
}
