package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	if value.Tag == "!!int" {
		var v int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		d.Duration = time.Duration(v) * time.Millisecond
		return nil
	}
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	d.Duration = dur
	return nil
}

// Admissible Uniswap V3 fee tiers, in hundredths of a bip.
var AdmissibleFeeTiers = []uint32{100, 500, 3000, 10000}

type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals uint8  `yaml:"decimals"`
}

type Config struct {
	Chain    string `yaml:"chain"`
	ChainID  uint64 `yaml:"chain_id"`
	LogLevel string `yaml:"log_level"`

	RPC struct {
		HTTP string `yaml:"http"`
	} `yaml:"rpc"`

	Contracts struct {
		Factory    string `yaml:"factory"`
		SwapRouter string `yaml:"swap_router"`
		QuoterV2   string `yaml:"quoter_v2"`
	} `yaml:"contracts"`

	Tokens struct {
		In  Token `yaml:"in"`
		Out Token `yaml:"out"`
	} `yaml:"tokens"`

	Swap struct {
		SlippageBps          *int     `yaml:"slippage_bps"`
		GasLimit             uint64   `yaml:"gas_limit"`
		GasBudget            uint64   `yaml:"gas_budget"`
		FeeTiers             []uint32 `yaml:"fee_tiers"`
		MaxAttempts          int      `yaml:"max_attempts"`
		Deadline             Duration `yaml:"deadline"`
		ApproveConfirmations uint64   `yaml:"approve_confirmations"`
		SwapConfirmations    uint64   `yaml:"swap_confirmations"`
		ConfirmPollInterval  Duration `yaml:"confirm_poll_interval"`
		ApproveGasMultiplier float64  `yaml:"approve_gas_multiplier"`
		SkipDecimalsCheck    bool     `yaml:"skip_decimals_check"`
	} `yaml:"swap"`

	Performance struct {
		RequestTimeout Duration `yaml:"request_timeout"`
		RetryMax       int      `yaml:"retry_max"`
		RetryBackoff   Duration `yaml:"retry_backoff"`
	} `yaml:"performance"`

	Tx struct {
		MaxFeeMultiplier   float64 `yaml:"max_fee_multiplier"`
		MinPriorityFeeGwei float64 `yaml:"min_priority_fee_gwei"`
		FeeRefreshSeconds  uint64  `yaml:"fee_refresh_seconds"`
	} `yaml:"tx"`

	Wallet struct {
		PrivateKey    string `yaml:"private_key"`
		KeystoreDir   string `yaml:"keystore_dir"`
		PassphraseEnv string `yaml:"passphrase_env"`
		Address       string `yaml:"address"`
	} `yaml:"wallet"`

	API struct {
		Listen    string `yaml:"listen"`
		AuthToken string `yaml:"auth_token"`
	} `yaml:"api"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`
}

// Load reads the YAML file at path (a missing file is not an error), layers
// .env and environment overrides on top, then applies defaults and validates.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Chain == "" {
		c.Chain = "arbitrum"
	}
	if c.ChainID == 0 {
		switch strings.ToLower(c.Chain) {
		case "arbitrum":
			c.ChainID = 42161
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Contracts.Factory == "" {
		c.Contracts.Factory = "0x1F98431c8aD98523631AE4a59f267346ea31F984"
	}
	if c.Contracts.SwapRouter == "" {
		c.Contracts.SwapRouter = "0xE592427A0AEce92De3Edee1F18E0157C05861564"
	}
	if c.Contracts.QuoterV2 == "" {
		c.Contracts.QuoterV2 = "0x61fFE014bA17989E743c5F6cB21bF9697530B21e"
	}
	if c.Tokens.In.Address == "" {
		c.Tokens.In = Token{Symbol: "USDC", Address: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", Decimals: 6}
	}
	if c.Tokens.Out.Address == "" {
		c.Tokens.Out = Token{Symbol: "USDT", Address: "0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9", Decimals: 6}
	}
	if c.Swap.SlippageBps == nil {
		bps := 50
		c.Swap.SlippageBps = &bps
	}
	if c.Swap.GasLimit == 0 {
		c.Swap.GasLimit = 1_500_000
	}
	if c.Swap.GasBudget == 0 {
		c.Swap.GasBudget = c.Swap.GasLimit
	}
	if len(c.Swap.FeeTiers) == 0 {
		c.Swap.FeeTiers = []uint32{100, 500, 3000}
	}
	if c.Swap.MaxAttempts == 0 {
		c.Swap.MaxAttempts = 3
	}
	if c.Swap.Deadline.Duration == 0 {
		c.Swap.Deadline = Duration{Duration: 10 * time.Minute}
	}
	if c.Swap.ApproveConfirmations == 0 {
		c.Swap.ApproveConfirmations = 1
	}
	if c.Swap.SwapConfirmations == 0 {
		c.Swap.SwapConfirmations = 2
	}
	if c.Swap.ConfirmPollInterval.Duration == 0 {
		c.Swap.ConfirmPollInterval = Duration{Duration: time.Second}
	}
	if c.Swap.ApproveGasMultiplier == 0 {
		c.Swap.ApproveGasMultiplier = 1.2
	}
	if c.Performance.RequestTimeout.Duration == 0 {
		c.Performance.RequestTimeout = Duration{Duration: 15 * time.Second}
	}
	if c.Performance.RetryMax == 0 {
		c.Performance.RetryMax = 3
	}
	if c.Performance.RetryBackoff.Duration == 0 {
		c.Performance.RetryBackoff = Duration{Duration: 500 * time.Millisecond}
	}
	if c.Tx.MaxFeeMultiplier == 0 {
		c.Tx.MaxFeeMultiplier = 2.0
	}
	if c.Tx.FeeRefreshSeconds == 0 {
		c.Tx.FeeRefreshSeconds = 5
	}
	if c.Wallet.PassphraseEnv == "" {
		c.Wallet.PassphraseEnv = "SWAP_KEYSTORE_PASSPHRASE"
	}
	if c.API.Listen == "" {
		c.API.Listen = ":3000"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/swaps.jsonl"
	}
}

func (c *Config) validate() error {
	if c.RPC.HTTP == "" {
		return fmt.Errorf("rpc.http is required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain_id is required for chain %q", c.Chain)
	}
	for name, addr := range map[string]string{
		"contracts.factory":     c.Contracts.Factory,
		"contracts.swap_router": c.Contracts.SwapRouter,
		"contracts.quoter_v2":   c.Contracts.QuoterV2,
		"tokens.in.address":     c.Tokens.In.Address,
		"tokens.out.address":    c.Tokens.Out.Address,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %q", name, addr)
		}
	}
	if strings.EqualFold(c.Tokens.In.Address, c.Tokens.Out.Address) {
		return fmt.Errorf("tokens.in and tokens.out must differ")
	}
	if bps := c.Slippage(); bps < 0 || bps > 10_000 {
		return fmt.Errorf("swap.slippage_bps must be within [0, 10000], got %d", bps)
	}
	if err := validateFeeTiers(c.Swap.FeeTiers); err != nil {
		return err
	}
	if c.Swap.MaxAttempts < 1 {
		return fmt.Errorf("swap.max_attempts must be >= 1")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.KeystoreDir == "" {
		return fmt.Errorf("wallet.private_key or wallet.keystore_dir is required")
	}
	if c.Wallet.Address != "" && !common.IsHexAddress(c.Wallet.Address) {
		return fmt.Errorf("wallet.address is not a valid address: %q", c.Wallet.Address)
	}
	return nil
}

// Slippage returns the configured slippage tolerance in basis points.
func (c *Config) Slippage() int {
	if c.Swap.SlippageBps == nil {
		return 0
	}
	return *c.Swap.SlippageBps
}

func validateFeeTiers(tiers []uint32) error {
	seen := make(map[uint32]struct{}, len(tiers))
	for _, t := range tiers {
		if !admissible(t) {
			return fmt.Errorf("swap.fee_tiers: %d is not an admissible fee tier", t)
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("swap.fee_tiers: duplicate fee tier %d", t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

func admissible(tier uint32) bool {
	for _, t := range AdmissibleFeeTiers {
		if t == tier {
			return true
		}
	}
	return false
}
