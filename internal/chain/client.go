// Package chain is the ethclient-backed implementation of every read and
// write the swap flow performs against the network.
package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/keys"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/txbuilder"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/uniswap"
	"github.com/darshanjain1/arbitrum-usdc-usdt-swap-service-4pgfzr/internal/util"
)

// Backend is the subset of *ethclient.Client the adapter needs.
type Backend interface {
	txbuilder.ChainClient
	ethereum.ContractCaller
	BlockNumber(ctx context.Context) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Config struct {
	Factory        common.Address
	Quoter         common.Address
	PollInterval   time.Duration
	RequestTimeout time.Duration
	RetryMax       int
	RetryBackoff   time.Duration
}

type Client struct {
	backend Backend
	reader  *uniswap.Reader
	auto    *txbuilder.AutoBuilder
	signer  keys.Signer
	cfg     Config
	logger  *slog.Logger
}

func NewClient(backend Backend, auto *txbuilder.AutoBuilder, signer keys.Signer, cfg Config, logger *slog.Logger) *Client {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		backend: backend,
		reader:  uniswap.NewReader(backend, cfg.Factory, cfg.Quoter),
		auto:    auto,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
	}
}

func (c *Client) Account() common.Address {
	return c.signer.Address()
}

func (c *Client) PoolWithLiquidity(ctx context.Context, tokenIn, tokenOut common.Address, fee uniswap.FeeTier) (*uniswap.Pool, error) {
	var pool *uniswap.Pool
	err := c.read(ctx, func(ctx context.Context) error {
		p, err := c.reader.PoolWithLiquidity(ctx, tokenIn, tokenOut, fee)
		pool = p
		return err
	})
	return pool, err
}

// QuoteExactInputSingle is not retried: a quoter revert is deterministic for
// the same block.
func (c *Client) QuoteExactInputSingle(ctx context.Context, p uniswap.QuoteParams) (*uniswap.QuoteResult, error) {
	ctx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	return c.reader.QuoteExactInputSingle(ctx, p)
}

func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var allowance *big.Int
	err := c.read(ctx, func(ctx context.Context) error {
		v, err := c.reader.Allowance(ctx, token, owner, spender)
		allowance = v
		return err
	})
	return allowance, err
}

func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	var decimals uint8
	err := c.read(ctx, func(ctx context.Context) error {
		v, err := c.reader.Decimals(ctx, token)
		decimals = v
		return err
	})
	return decimals, err
}

func (c *Client) PendingNonce(ctx context.Context) (uint64, error) {
	var nonce uint64
	err := c.read(ctx, func(ctx context.Context) error {
		n, err := c.backend.PendingNonceAt(ctx, c.Account())
		nonce = n
		return err
	})
	return nonce, err
}

// Approve sends an ERC-20 approve for exactly amount from the signing account.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	tx, err := c.auto.BuildApproveTx(ctx, c.Account(), token, spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build approve: %w", err)
	}
	return c.signAndSend(ctx, tx)
}

// SendSwap signs and broadcasts exactInputSingle with the given nonce and gas
// limit. A stale nonce is reported as ErrNonceTooLow.
func (c *Client) SendSwap(ctx context.Context, router common.Address, p uniswap.ExactInputSingleParams, nonce, gasLimit uint64) (common.Hash, error) {
	tx, err := c.auto.BuildSwapTx(ctx, router, p, nonce, gasLimit)
	if err != nil {
		return common.Hash{}, fmt.Errorf("build swap: %w", err)
	}
	return c.signAndSend(ctx, tx)
}

func (c *Client) signAndSend(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	signed, err := c.signer.SignTx(tx, c.auto.ChainID())
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	sendCtx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()
	if err := c.backend.SendTransaction(sendCtx, signed); err != nil {
		return common.Hash{}, classifySendError(err)
	}
	c.logger.Debug("transaction sent",
		"tx_hash", signed.Hash().Hex(),
		"nonce", signed.Nonce(),
		"gas", signed.Gas(),
		"max_fee_wei", signed.GasFeeCap().String(),
	)
	return signed.Hash(), nil
}

// WaitConfirmed polls until the transaction is mined and the head is at
// least depth-1 blocks past its block. The receipt is re-read on every poll
// so a reorged inclusion is picked up at its new height.
func (c *Client) WaitConfirmed(ctx context.Context, hash common.Hash, depth uint64) (*types.Receipt, error) {
	if depth == 0 {
		depth = 1
	}
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	logger := c.logger.With("tx_hash", hash.Hex(), "depth", depth)
	for {
		rcpt, done, err := c.checkConfirmed(ctx, hash, depth)
		if err != nil {
			return nil, err
		}
		if done {
			logger.Debug("transaction confirmed", "block", rcpt.BlockNumber.Uint64())
			return rcpt, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) checkConfirmed(ctx context.Context, hash common.Hash, depth uint64) (*types.Receipt, bool, error) {
	rctx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	rcpt, err := c.backend.TransactionReceipt(rctx, hash)
	cancel()
	switch {
	case errors.Is(err, ethereum.NotFound):
		return nil, false, nil
	case err != nil:
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		c.logger.Warn("receipt poll failed", "tx_hash", hash.Hex(), "error", err)
		return nil, false, nil
	case rcpt == nil || rcpt.BlockNumber == nil:
		return nil, false, nil
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		return nil, false, fmt.Errorf("%w: %s in block %d", ErrTxReverted, hash.Hex(), rcpt.BlockNumber.Uint64())
	}

	hctx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	head, err := c.backend.BlockNumber(hctx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		c.logger.Warn("head poll failed", "error", err)
		return nil, false, nil
	}
	return rcpt, head+1 >= rcpt.BlockNumber.Uint64()+depth, nil
}

const maxReadBackoff = 5 * time.Second

// read retries fn on transport errors. Errors carrying revert data come from
// the EVM and are returned at once.
func (c *Client) read(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := util.Backoff{Max: c.cfg.RetryMax, Base: c.cfg.RetryBackoff, Cap: maxReadBackoff}
	return util.Retry(ctx, backoff, func() error {
		ctxTimeout, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
		defer cancel()
		err := fn(ctxTimeout)
		var dataErr rpc.DataError
		if errors.As(err, &dataErr) {
			return util.Permanent(err)
		}
		return err
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
