// Package quote picks the fee tier with the best output for an exact-input
// swap on a single token pair.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

type PoolSource interface {
	PoolWithLiquidity(ctx context.Context, tokenIn, tokenOut common.Address, fee uniswap.FeeTier) (*uniswap.Pool, error)
}

type Quoter interface {
	QuoteExactInputSingle(ctx context.Context, p uniswap.QuoteParams) (*uniswap.QuoteResult, error)
}

type Token struct {
	Symbol   string
	Address  common.Address
	Decimals uint8
}

type SelectorConfig struct {
	TokenIn  Token
	TokenOut Token
	// GasBudget is the largest quoter gas estimate a tier may report.
	GasBudget uint64
}

type Selector struct {
	pools  PoolSource
	quoter Quoter
	cfg    SelectorConfig
	logger *slog.Logger
}

func NewSelector(pools PoolSource, quoter Quoter, cfg SelectorConfig, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{pools: pools, quoter: quoter, cfg: cfg, logger: logger}
}

// SelectBestQuote evaluates feeTiers in order and returns the best quote with
// its slippage-adjusted minimum output. Per-tier failures are skipped.
func (s *Selector) SelectBestQuote(ctx context.Context, amountIn *big.Int, slippageBps int, feeTiers []uniswap.FeeTier) (*Quote, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, errors.New("amountIn must be positive")
	}
	if slippageBps < 0 || slippageBps > 10_000 {
		return nil, fmt.Errorf("slippage %d bps outside [0, 10000]", slippageBps)
	}
	if err := checkTiers(feeTiers); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(feeTiers))
	for _, tier := range feeTiers {
		candidates = append(candidates, s.evaluate(ctx, amountIn, tier))
	}

	winner, ok := best(candidates)
	if !ok {
		skipped := gasSkipped(candidates)
		if len(skipped) == len(feeTiers) {
			return nil, &GasBudgetExceededError{Tiers: skipped, Budget: s.cfg.GasBudget}
		}
		return nil, &NoLiquidityError{Pair: s.pairName()}
	}

	q := &Quote{
		AmountIn:            new(big.Int).Set(amountIn),
		AmountOut:           winner.AmountOut,
		FeeTier:             winner.FeeTier,
		SlippageAdjustedOut: ApplySlippage(winner.AmountOut, slippageBps),
		GasEstimate:         winner.GasEstimate,
		Pool:                winner.Pool,
	}
	s.logger.Info("best quote selected",
		"fee_tier", q.FeeTier,
		"amount_in", amountIn.String(),
		"amount_out", q.AmountOut.String(),
		"min_out", q.SlippageAdjustedOut.String(),
		"slippage_bps", slippageBps,
		"gas_estimate", q.GasEstimate.String(),
	)
	return q, nil
}

func (s *Selector) evaluate(ctx context.Context, amountIn *big.Int, tier uniswap.FeeTier) Candidate {
	c := Candidate{FeeTier: tier}
	logger := s.logger.With("fee_tier", tier)

	pool, err := s.pools.PoolWithLiquidity(ctx, s.cfg.TokenIn.Address, s.cfg.TokenOut.Address, tier)
	if err != nil {
		logger.Error("pool lookup failed", "error", err)
		c.Outcome, c.Err = OutcomeFailed, err
		return c
	}
	if pool == nil {
		logger.Debug("skipping fee tier: no pool or zero liquidity")
		c.Outcome = OutcomeNoLiquidity
		return c
	}
	c.Pool = pool.Address

	res, err := s.quoter.QuoteExactInputSingle(ctx, uniswap.QuoteParams{
		TokenIn:  s.cfg.TokenIn.Address,
		TokenOut: s.cfg.TokenOut.Address,
		AmountIn: amountIn,
		Fee:      tier,
	})
	if err != nil {
		logger.Error("quote failed", "pool", pool.Address.Hex(), "error", err)
		c.Outcome, c.Err = OutcomeFailed, err
		return c
	}
	if res == nil || res.AmountOut == nil || res.GasEstimate == nil {
		err := errors.New("malformed quoter response")
		logger.Error("quote failed", "pool", pool.Address.Hex(), "error", err)
		c.Outcome, c.Err = OutcomeFailed, err
		return c
	}
	c.AmountOut = res.AmountOut
	c.GasEstimate = res.GasEstimate

	if res.GasEstimate.Cmp(new(big.Int).SetUint64(s.cfg.GasBudget)) > 0 {
		logger.Warn("skipping fee tier: estimated gas exceeds limit",
			"gas_estimate", res.GasEstimate.String(),
			"gas_budget", s.cfg.GasBudget,
		)
		c.Outcome = OutcomeGasExceeded
		return c
	}
	logger.Debug("fee tier quoted",
		"pool", pool.Address.Hex(),
		"amount_out", res.AmountOut.String(),
		"gas_estimate", res.GasEstimate.String(),
	)
	c.Outcome = OutcomeQuoted
	return c
}

func (s *Selector) pairName() string {
	if s.cfg.TokenIn.Symbol == "" || s.cfg.TokenOut.Symbol == "" {
		return ""
	}
	return s.cfg.TokenIn.Symbol + "/" + s.cfg.TokenOut.Symbol
}

func checkTiers(tiers []uniswap.FeeTier) error {
	if len(tiers) == 0 {
		return errors.New("at least one fee tier is required")
	}
	seen := make(map[uniswap.FeeTier]struct{}, len(tiers))
	for _, t := range tiers {
		if _, ok := seen[t]; ok {
			return fmt.Errorf("duplicate fee tier %s", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}
