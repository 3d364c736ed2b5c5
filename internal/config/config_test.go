package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvRPCURL, EnvPrivateKey, EnvSlippageBps, EnvGasLimit, EnvPort} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsFromEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRPCURL, "https://arb1.example.org")
	t.Setenv(EnvPrivateKey, testKey)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "https://arb1.example.org", cfg.RPC.HTTP)
	require.Equal(t, uint64(42161), cfg.ChainID)
	require.Equal(t, 50, cfg.Slippage())
	require.Equal(t, uint64(1_500_000), cfg.Swap.GasLimit)
	require.Equal(t, cfg.Swap.GasLimit, cfg.Swap.GasBudget)
	require.Equal(t, []uint32{100, 500, 3000}, cfg.Swap.FeeTiers)
	require.Equal(t, 3, cfg.Swap.MaxAttempts)
	require.Equal(t, 10*time.Minute, cfg.Swap.Deadline.Duration)
	require.Equal(t, uint64(1), cfg.Swap.ApproveConfirmations)
	require.Equal(t, uint64(2), cfg.Swap.SwapConfirmations)
	require.Equal(t, "USDC", cfg.Tokens.In.Symbol)
	require.Equal(t, uint8(6), cfg.Tokens.Out.Decimals)
	require.Equal(t, ":3000", cfg.API.Listen)
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
rpc:
  http: https://from-file.example.org
swap:
  slippage_bps: 25
  gas_limit: 900000
  fee_tiers: [500, 100]
  deadline: 5m
  confirm_poll_interval: 250
wallet:
  keystore_dir: ./keystore
api:
  listen: ":8080"
`)
	t.Setenv(EnvSlippageBps, "0")
	t.Setenv(EnvGasLimit, "2000000")
	t.Setenv(EnvPort, "4000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://from-file.example.org", cfg.RPC.HTTP)
	require.Equal(t, 0, cfg.Slippage())
	require.Equal(t, uint64(2_000_000), cfg.Swap.GasLimit)
	require.Equal(t, []uint32{500, 100}, cfg.Swap.FeeTiers)
	require.Equal(t, 5*time.Minute, cfg.Swap.Deadline.Duration)
	require.Equal(t, 250*time.Millisecond, cfg.Swap.ConfirmPollInterval.Duration)
	require.Equal(t, ":4000", cfg.API.Listen)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"missing rpc":        "wallet:\n  private_key: " + testKey + "\n",
		"missing credential": "rpc:\n  http: http://localhost:8545\n",
		"bad tier":           "rpc:\n  http: http://x\nwallet:\n  private_key: k\nswap:\n  fee_tiers: [100, 250]\n",
		"duplicate tier":     "rpc:\n  http: http://x\nwallet:\n  private_key: k\nswap:\n  fee_tiers: [500, 500]\n",
		"slippage too high":  "rpc:\n  http: http://x\nwallet:\n  private_key: k\nswap:\n  slippage_bps: 10001\n",
		"negative slippage":  "rpc:\n  http: http://x\nwallet:\n  private_key: k\nswap:\n  slippage_bps: -1\n",
		"bad router":         "rpc:\n  http: http://x\nwallet:\n  private_key: k\ncontracts:\n  swap_router: nope\n",
		"same tokens":        "rpc:\n  http: http://x\nwallet:\n  private_key: k\ntokens:\n  out:\n    address: \"0xaf88d065e77c8cC2239327C5EDb3A432268e5831\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsBadEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvRPCURL, "http://x")
	t.Setenv(EnvPrivateKey, testKey)
	t.Setenv(EnvPort, "http")
	_, err := Load("")
	require.Error(t, err)

	t.Setenv(EnvPort, "")
	t.Setenv(EnvSlippageBps, "1%")
	_, err = Load("")
	require.Error(t, err)
}
