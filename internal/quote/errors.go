package quote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

// ErrQuoteUnavailable matches every selector failure that means no tier
// could be used.
var ErrQuoteUnavailable = errors.New("quote unavailable")

type NoLiquidityError struct {
	Pair string
}

func (e *NoLiquidityError) Error() string {
	if e.Pair == "" {
		return "no valid pool found for this trade"
	}
	return fmt.Sprintf("no valid %s pool found for this trade", e.Pair)
}

func (e *NoLiquidityError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}

// GasBudgetExceededError is returned only when every evaluated tier was
// skipped for exceeding the gas budget.
type GasBudgetExceededError struct {
	Tiers  []uniswap.FeeTier
	Budget uint64
}

func (e *GasBudgetExceededError) Error() string {
	tiers := make([]string, 0, len(e.Tiers))
	for _, t := range e.Tiers {
		tiers = append(tiers, t.String())
	}
	return fmt.Sprintf(
		"all available pools were skipped due to gas exceeding the configured limit of %d; fee tiers tried: %s; try increasing gas limit or lowering input amount",
		e.Budget, strings.Join(tiers, ", "),
	)
}

func (e *GasBudgetExceededError) Is(target error) bool {
	return target == ErrQuoteUnavailable
}
