package swap

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

// Request holds the swap parameters fixed once quoting and the allowance
// check are done. Retries resubmit the same Request.
type Request struct {
	TokenIn          common.Address
	TokenOut         common.Address
	FeeTier          uniswap.FeeTier
	Recipient        common.Address
	AmountIn         *big.Int
	AmountOutMinimum *big.Int
	Deadline         time.Time
}

// Params renders the request as exactInputSingle arguments with no price limit.
func (r Request) Params() uniswap.ExactInputSingleParams {
	return uniswap.ExactInputSingleParams{
		TokenIn:           r.TokenIn,
		TokenOut:          r.TokenOut,
		Fee:               r.FeeTier,
		Recipient:         r.Recipient,
		Deadline:          big.NewInt(r.Deadline.Unix()),
		AmountIn:          new(big.Int).Set(r.AmountIn),
		AmountOutMinimum:  new(big.Int).Set(r.AmountOutMinimum),
		SqrtPriceLimitX96: big.NewInt(0),
	}
}

// Attempt is one submission try. Index starts at 1.
type Attempt struct {
	Nonce uint64
	Index int
}

func (a Attempt) Next() Attempt {
	return Attempt{Nonce: a.Nonce + 1, Index: a.Index + 1}
}

type Receipt struct {
	TxHash         string  `json:"txHash"`
	BlockNumber    uint64  `json:"blockNumber"`
	GasUsed        uint64  `json:"gasUsed"`
	FeeTier        uint32  `json:"feeTier"`
	AmountIn       string  `json:"amountIn"`
	AmountOut      string  `json:"amountOut"`
	EffectivePrice float64 `json:"effectivePrice"`
	Attempts       int     `json:"attempts"`
}

// QuoteView is the quote-only answer, in token units.
type QuoteView struct {
	AmountIn     string `json:"amountIn"`
	AmountOut    string `json:"amountOut"`
	MinAmountOut string `json:"minAmountOut"`
	FeeTier      uint32 `json:"feeTier"`
	SlippageBps  int    `json:"slippageBps"`
	GasEstimate  string `json:"gasEstimate"`
	Pool         string `json:"pool"`
}
