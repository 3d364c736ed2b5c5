package quote

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

type Outcome int

const (
	OutcomeQuoted Outcome = iota
	OutcomeNoLiquidity
	OutcomeGasExceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeQuoted:
		return "quoted"
	case OutcomeNoLiquidity:
		return "no_liquidity"
	case OutcomeGasExceeded:
		return "gas_exceeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Candidate is the evaluation result for one fee tier.
type Candidate struct {
	FeeTier     uniswap.FeeTier
	Pool        common.Address
	Outcome     Outcome
	AmountOut   *big.Int
	GasEstimate *big.Int
	Err         error
}

type Quote struct {
	AmountIn            *big.Int
	AmountOut           *big.Int
	FeeTier             uniswap.FeeTier
	SlippageAdjustedOut *big.Int
	GasEstimate         *big.Int
	Pool                common.Address
}

// best returns the quoted candidate with the strictly greatest positive
// output; the earliest candidate wins ties.
func best(candidates []Candidate) (Candidate, bool) {
	var (
		winner Candidate
		found  bool
	)
	for _, c := range candidates {
		if c.Outcome != OutcomeQuoted || c.AmountOut == nil || c.AmountOut.Sign() <= 0 {
			continue
		}
		if !found || c.AmountOut.Cmp(winner.AmountOut) > 0 {
			winner = c
			found = true
		}
	}
	return winner, found
}

func gasSkipped(candidates []Candidate) []uniswap.FeeTier {
	var tiers []uniswap.FeeTier
	for _, c := range candidates {
		if c.Outcome == OutcomeGasExceeded {
			tiers = append(tiers, c.FeeTier)
		}
	}
	return tiers
}

// ApplySlippage returns floor(amount * (10000 - bps) / 10000).
func ApplySlippage(amount *big.Int, bps int) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(int64(10_000-bps)))
	return out.Quo(out, big.NewInt(10_000))
}
