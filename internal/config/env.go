package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognised on top of the YAML file.
const (
	EnvRPCURL      = "ARBITRUM_RPC_URL"
	EnvPrivateKey  = "DEV_WALLET_PRIVATE_KEY"
	EnvSlippageBps = "SLIPPAGE_BPS"
	EnvGasLimit    = "GAS_LIMIT"
	EnvPort        = "PORT"
)

func applyEnv(cfg *Config) error {
	// .env is optional.
	_ = godotenv.Load()

	setStr(&cfg.RPC.HTTP, EnvRPCURL)
	setStr(&cfg.Wallet.PrivateKey, EnvPrivateKey)
	if v := os.Getenv(EnvSlippageBps); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSlippageBps, err)
		}
		cfg.Swap.SlippageBps = &n
	}
	if v := os.Getenv(EnvGasLimit); v != "" {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvGasLimit, err)
		}
		cfg.Swap.GasLimit = n
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		cfg.API.Listen = fmt.Sprintf(":%d", port)
	}
	return nil
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}
