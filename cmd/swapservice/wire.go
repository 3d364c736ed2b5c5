package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/chain"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/config"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/journal"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/keys"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/quote"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/swap"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/txbuilder"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
)

type service struct {
	eth      *ethclient.Client
	chain    *chain.Client
	auto     *txbuilder.AutoBuilder
	executor *swap.Executor
	journal  *journal.Journal
}

func (s *service) Close() {
	if s.journal != nil {
		_ = s.journal.Close()
	}
	s.eth.Close()
}

func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, withJournal bool) (*service, error) {
	eth, err := chain.DialHTTP(ctx, cfg.RPC.HTTP, cfg.Performance.RequestTimeout.Duration, cfg.ChainID, logger)
	if err != nil {
		return nil, fmt.Errorf("rpc dial: %w", err)
	}
	svc := &service{eth: eth}

	signer, err := keys.FromConfig(cfg)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("signer: %w", err)
	}
	auto, err := txbuilder.NewAutoBuilderFromConfig(eth, cfg, logger)
	if err != nil {
		svc.Close()
		return nil, fmt.Errorf("tx builder: %w", err)
	}
	svc.auto = auto
	svc.chain = chain.NewClient(eth, auto, signer, chain.Config{
		Factory:        common.HexToAddress(cfg.Contracts.Factory),
		Quoter:         common.HexToAddress(cfg.Contracts.QuoterV2),
		PollInterval:   cfg.Swap.ConfirmPollInterval.Duration,
		RequestTimeout: cfg.Performance.RequestTimeout.Duration,
		RetryMax:       cfg.Performance.RetryMax,
		RetryBackoff:   cfg.Performance.RetryBackoff.Duration,
	}, logger)

	tokenIn, tokenOut := token(cfg.Tokens.In), token(cfg.Tokens.Out)
	selector := quote.NewSelector(svc.chain, svc.chain, quote.SelectorConfig{
		TokenIn:   tokenIn,
		TokenOut:  tokenOut,
		GasBudget: cfg.Swap.GasBudget,
	}, logger)

	var recorder swap.Recorder
	if withJournal {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("journal: %w", err)
		}
		svc.journal = j
		recorder = j
	}

	svc.executor = swap.NewExecutor(svc.chain, selector, recorder, swap.ExecutorConfig{
		TokenIn:              tokenIn,
		TokenOut:             tokenOut,
		Router:               common.HexToAddress(cfg.Contracts.SwapRouter),
		SlippageBps:          cfg.Slippage(),
		GasLimit:             cfg.Swap.GasLimit,
		FeeTiers:             feeTiers(cfg.Swap.FeeTiers),
		MaxAttempts:          cfg.Swap.MaxAttempts,
		Deadline:             cfg.Swap.Deadline.Duration,
		ApproveConfirmations: cfg.Swap.ApproveConfirmations,
		SwapConfirmations:    cfg.Swap.SwapConfirmations,
	}, logger)

	logger.Info("swap service ready",
		"account", signer.Address().Hex(),
		"router", cfg.Contracts.SwapRouter,
		"pair", tokenIn.Symbol+"/"+tokenOut.Symbol,
		"fee_tiers", cfg.Swap.FeeTiers,
		"slippage_bps", cfg.Slippage(),
		"gas_limit", cfg.Swap.GasLimit,
	)
	return svc, nil
}

// checkDecimals warns when the configured decimals disagree with the token
// contracts; amounts would otherwise be scaled wrongly.
func checkDecimals(ctx context.Context, c *chain.Client, cfg *config.Config, logger *slog.Logger) {
	for _, t := range []config.Token{cfg.Tokens.In, cfg.Tokens.Out} {
		got, err := c.Decimals(ctx, common.HexToAddress(t.Address))
		if err != nil {
			logger.Warn("decimals check failed", "token", t.Symbol, "error", err)
			continue
		}
		if got != t.Decimals {
			logger.Warn("configured decimals differ from token contract",
				"token", t.Symbol,
				"configured", t.Decimals,
				"onchain", got,
			)
		}
	}
}

func token(t config.Token) quote.Token {
	return quote.Token{Symbol: t.Symbol, Address: common.HexToAddress(t.Address), Decimals: t.Decimals}
}

func feeTiers(tiers []uint32) []uniswap.FeeTier {
	out := make([]uniswap.FeeTier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, uniswap.FeeTier(t))
	}
	return out
}
