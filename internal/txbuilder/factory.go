package txbuilder

import (
	"log/slog"
	"math/big"
	"time"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/config"
)

func NewOracleFromConfig(client ChainClient, cfg *config.Config, logger *slog.Logger) (*FeeOracle, error) {
	minTipWei, err := GweiToWei(cfg.Tx.MinPriorityFeeGwei)
	if err != nil {
		return nil, err
	}
	oracleCfg := FeeOracleConfig{
		RefreshInterval:   time.Duration(cfg.Tx.FeeRefreshSeconds) * time.Second,
		MaxFeeMultiplier:  cfg.Tx.MaxFeeMultiplier,
		MinPriorityFeeWei: minTipWei,
	}
	return NewFeeOracle(client, oracleCfg, logger), nil
}

func NewAutoBuilderFromConfig(client ChainClient, cfg *config.Config, logger *slog.Logger) (*AutoBuilder, error) {
	oracle, err := NewOracleFromConfig(client, cfg, logger)
	if err != nil {
		return nil, err
	}
	builder := NewBuilder(new(big.Int).SetUint64(cfg.ChainID))
	return NewAutoBuilder(builder, client, oracle, AutoBuilderConfig{
		GasLimitMultiplier: cfg.Swap.ApproveGasMultiplier,
	}), nil
}
